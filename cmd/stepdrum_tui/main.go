package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Southclaws/fault/fmsg"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/cbegin/stepdrum-go"
	"github.com/cbegin/stepdrum-go/internal/pattern"
	"github.com/cbegin/stepdrum-go/internal/pitch"
)

var (
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#555"))
	activeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#fff"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#a33"))
	cursorStyle   = lipgloss.NewStyle().Background(lipgloss.Color("#444"))
	playheadStyle = lipgloss.NewStyle().Reverse(true)
	labelStyle    = lipgloss.NewStyle().Width(19)
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#f55"))
)

type model struct {
	m         *stepdrum.Machine
	events    <-chan stepdrum.StepEvent
	exportDir string
	track     int
	step      int
	playhead  int
	playing   bool
	message   string
	err       error
	quitting  bool
}

type stepMsg stepdrum.StepEvent

func listenForSteps(ch <-chan stepdrum.StepEvent) tea.Cmd {
	return func() tea.Msg {
		return stepMsg(<-ch)
	}
}

func (m model) Init() tea.Cmd {
	return listenForSteps(m.events)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		m.message, m.err = "", nil
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			m.m.Stop()
			return m, tea.Quit

		case "h", "left":
			if m.step > 0 {
				m.step--
			}

		case "l", "right":
			if m.step < pattern.NumSteps-1 {
				m.step++
			}

		case "k", "up":
			if m.track > 0 {
				m.track--
			}

		case "j", "down":
			if m.track < pattern.NumTracks-1 {
				m.track++
			}

		case " ":
			m.m.ToggleCell(m.track, m.step)

		case "m":
			m.m.ToggleMute(m.track)

		case "[":
			snap := m.m.Snapshot()
			m.m.SetTrackVolume(m.track, snap.Volumes[m.track]-0.1)

		case "]":
			snap := m.m.Snapshot()
			m.m.SetTrackVolume(m.track, snap.Volumes[m.track]+0.1)

		case "<", ",":
			snap := m.m.Snapshot()
			m.m.SetPitch(m.track, snap.Pitches[m.track]-1)

		case ">", ".":
			snap := m.m.Snapshot()
			m.m.SetPitch(m.track, snap.Pitches[m.track]+1)

		case "+", "=":
			m.m.SetTempo(m.m.Snapshot().Tempo + 5)

		case "-", "_":
			m.m.SetTempo(m.m.Snapshot().Tempo - 5)

		case "p":
			m.err = m.m.TogglePlayback()
			m.playing = m.m.IsPlaying()

		case "r":
			m.message = "preset: " + m.m.RandomPreset()

		case "c":
			m.m.Clear()

		case "e":
			path, err := m.m.ExportMIDIFile(m.exportDir)
			if err != nil {
				m.err = err
			} else {
				m.message = "saved " + path
			}
		}

	case stepMsg:
		switch msg.Kind {
		case stepdrum.EventStep:
			m.playhead = msg.Step
		case stepdrum.EventStarted:
			m.playing = true
		case stepdrum.EventStopped:
			m.playing = false
		}
		return m, listenForSteps(m.events)
	}

	return m, nil
}

func (m model) View() string {
	if m.quitting {
		return ""
	}
	snap := m.m.Snapshot()

	var b strings.Builder
	b.WriteString("\n")
	for track, inst := range pattern.Instruments() {
		label := fmt.Sprintf("%-14s%4s", inst, pitch.PitchToName(snap.Pitches[track]))
		if snap.Mutes[track] {
			b.WriteString(mutedStyle.Inherit(labelStyle).Render(label))
		} else {
			b.WriteString(labelStyle.Render(label))
		}
		b.WriteString(" ")
		for step := 0; step < pattern.NumSteps; step++ {
			char := "·"
			style := dimStyle
			if snap.Grid[track][step] {
				char = "■"
				style = activeStyle
				if snap.Mutes[track] {
					style = mutedStyle
				}
			}
			if track == m.track && step == m.step {
				style = style.Inherit(cursorStyle)
			}
			if step == m.playhead && m.playing {
				style = playheadStyle
			}
			b.WriteString(style.Render(char))
			if step%4 == 3 {
				b.WriteString(" ")
			}
		}
		b.WriteString(statusStyle.Render(fmt.Sprintf(" %3.0f%%", snap.Volumes[track]*100)))
		b.WriteString("\n")
	}

	playState := "stop"
	if m.playing {
		playState = "play"
	}
	preset := snap.Preset
	if preset == "" {
		preset = "custom"
	}
	b.WriteString("\n")
	b.WriteString(statusStyle.Render(fmt.Sprintf("%s %3dbpm  %s", playState, snap.Tempo, preset)))
	b.WriteString("\n")
	switch {
	case m.err != nil:
		issue := fmsg.GetIssue(m.err)
		if issue == "" {
			issue = m.err.Error()
		}
		b.WriteString(errorStyle.Render(issue))
	case m.message != "":
		b.WriteString(statusStyle.Render(m.message))
	}
	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render("hjkl:move  space:toggle  m:mute  [/]:volume  </>:pitch  +/-:tempo  p:play  r:random  c:clear  e:export  q:quit"))
	b.WriteString("\n")
	return b.String()
}

func main() {
	var (
		sampleRate = flag.Int("sample-rate", 48000, "output sample rate")
		preset     = flag.String("preset", pattern.DefaultPreset, "preset pattern to load")
		exportDir  = flag.String("export-dir", ".", "directory for exported MIDI files")
		logPath    = flag.String("log-file", "", "write logs to this file")
		logLevel   = flag.String("log-level", "info", "log level: debug|info|warn|error")
	)
	flag.Parse()

	log := logrus.New()
	log.SetOutput(io.Discard)
	if *logPath != "" {
		f, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer f.Close()
		log.SetOutput(f)
	}
	if level, err := logrus.ParseLevel(*logLevel); err == nil {
		log.SetLevel(level)
	}

	dm, err := stepdrum.NewMachine(*sampleRate, stepdrum.WithLogger(log), stepdrum.WithPreset(*preset))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer dm.Close()

	m := model{m: dm, events: dm.Watch(), exportDir: *exportDir}
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.WithError(err).Error("tui exited")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
