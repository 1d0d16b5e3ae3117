//go:build headless

package audio

// Open falls back to a silent real-time pump in headless builds.
func Open(sampleRate int, source SampleSource) (Output, error) {
	return OpenPump(sampleRate, source)
}
