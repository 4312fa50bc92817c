package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"bandmate/debug"
	"bandmate/midi"
	"bandmate/music"
	"bandmate/sequencer"
	"bandmate/theme"
	"bandmate/widgets"
)

// meterMax is the smoothed RMS that fills the energy meter
const meterMax = 0.2

// FormatStatus is the one-line status used by the plain output mode
func FormatStatus(snap music.Snapshot) string {
	return fmt.Sprintf("BPM ~ %5.1f | Chord: %s | Energy: %0.3f", snap.Tempo, snap.Chord, snap.Energy)
}

// Model is the live monitor: status line, energy meter and step grid
type Model struct {
	Ticks  <-chan sequencer.Tick
	Voices sequencer.Voices
	Theme  *theme.Theme
	Port   string // output name
	Input  string // capture description
	Cancel context.CancelFunc

	Captured   func() int64 // samples written to the ring, may be nil
	SampleRate int

	last     sequencer.Tick
	started  bool
	quitting bool
}

// TickMsg carries one scheduler step into the program
type TickMsg sequencer.Tick

// NewModel builds a monitor fed by ticks; cancel stops the session on quit
func NewModel(ticks <-chan sequencer.Tick, voices sequencer.Voices, th *theme.Theme, port, input string, cancel context.CancelFunc) Model {
	return Model{
		Ticks:  ticks,
		Voices: voices,
		Theme:  th,
		Port:   port,
		Input:  input,
		Cancel: cancel,
	}
}

// WithCapture shows the captured audio length in the header
func (m Model) WithCapture(written func() int64, sampleRate int) Model {
	m.Captured = written
	m.SampleRate = sampleRate
	return m
}

// header names input and output, plus captured seconds and debug state
func (m Model) header() string {
	h := fmt.Sprintf("bandmate  %s  →  %s", m.Input, m.Port)
	if m.Captured != nil && m.SampleRate > 0 {
		h += fmt.Sprintf("  (%.1fs heard)", float64(m.Captured())/float64(m.SampleRate))
	}
	if debug.Enabled() {
		h += "  [debug]"
	}
	return h
}

// ListenForTicks waits for the next step
func ListenForTicks(ticks <-chan sequencer.Tick) tea.Cmd {
	return func() tea.Msg {
		t, ok := <-ticks
		if !ok {
			return nil
		}
		return TickMsg(t)
	}
}

func (m Model) Init() tea.Cmd {
	return ListenForTicks(m.Ticks)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			if m.Cancel != nil {
				m.Cancel()
			}
			return m, tea.Quit
		}

	case TickMsg:
		m.last = sequencer.Tick(msg)
		m.started = true
		return m, ListenForTicks(m.Ticks)
	}

	return m, nil
}

// lanes derives the grid from the generator so the display always matches
// what is being played for the current chord and energy
func (m Model) lanes() (hat, kick, snare, bass []bool) {
	snap := music.Snapshot{Tempo: m.last.Tempo, Chord: m.last.Chord, Energy: m.last.Energy}
	hat, kick, snare, bass = make([]bool, 16), make([]bool, 16), make([]bool, 16), make([]bool, 16)
	k := m.Voices.Kit
	for step := 0; step < sequencer.Steps; step++ {
		events, _ := sequencer.Generate(step, snap, nil, m.Voices)
		for _, e := range events {
			if e.Type != midi.NoteOn {
				continue
			}
			switch {
			case e.Channel == m.Voices.BassChannel && e.Channel != m.Voices.DrumChannel:
				bass[step] = true
			case e.Note == k.Kick:
				kick[step] = true
			case e.Note == k.Snare:
				snare[step] = true
			case e.Note == k.OpenHat, e.Note == k.ClosedHat:
				hat[step] = true
			}
		}
	}
	return
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())
	warnStyle := lipgloss.NewStyle().Foreground(m.Theme.Warning())

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(headerStyle.Render(m.header()))
	out.WriteString("\n\n")

	if !m.started {
		out.WriteString(dimStyle.Render("waiting for the first step..."))
		out.WriteString("\n")
	} else {
		snap := music.Snapshot{Tempo: m.last.Tempo, Chord: m.last.Chord, Energy: m.last.Energy}
		out.WriteString(FormatStatus(snap))
		root := m.last.Chord.Root.MIDINote(m.Voices.BassOctave)
		out.WriteString(dimStyle.Render(" | bass " + music.NoteName(root)))
		if m.last.Overruns > 0 {
			out.WriteString(warnStyle.Render(fmt.Sprintf("  overruns: %d", m.last.Overruns)))
		}
		out.WriteString("\n")
		out.WriteString("energy " + widgets.RenderMeter(m.Theme, m.last.Energy, meterMax, 32))
		out.WriteString("\n\n")

		hat, kick, snare, bass := m.lanes()
		for _, lane := range []struct {
			name string
			hits []bool
		}{{"hat", hat}, {"kick", kick}, {"snare", snare}, {"bass", bass}} {
			out.WriteString(widgets.RenderStepRow(m.Theme, lane.name, lane.hits, m.last.Step))
			out.WriteString("\n")
		}
	}

	out.WriteString("\n")
	out.WriteString(dimStyle.Render(widgets.RenderKeyHelp([]widgets.KeySection{
		{Keys: []widgets.KeyBinding{{Key: "q / esc", Desc: "stop and quit"}}},
	})))
	return out.String()
}
