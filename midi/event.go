package midi

import (
	"fmt"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// MIDI message types
const (
	NoteOn        uint8 = 0x90
	NoteOff       uint8 = 0x80
	CC            uint8 = 0xB0
	ProgramChange uint8 = 0xC0
)

// Event is one outgoing channel message. For CC, Note carries the
// controller number and Velocity its value.
type Event struct {
	Type     uint8
	Channel  uint8 // 0-15
	Note     uint8
	Velocity uint8
	Program  uint8
}

// On builds a note-on event
func On(ch, note, vel uint8) Event {
	return Event{Type: NoteOn, Channel: ch, Note: note, Velocity: vel}
}

// Off builds a note-off event
func Off(ch, note uint8) Event {
	return Event{Type: NoteOff, Channel: ch, Note: note}
}

// Program builds a program change event
func Program(ch, program uint8) Event {
	return Event{Type: ProgramChange, Channel: ch, Program: program}
}

// Message converts the event to a wire message
func (e Event) Message() gomidi.Message {
	switch e.Type {
	case NoteOn:
		return gomidi.NoteOn(e.Channel, e.Note, e.Velocity)
	case NoteOff:
		return gomidi.NoteOff(e.Channel, e.Note)
	case CC:
		return gomidi.ControlChange(e.Channel, e.Note, e.Velocity)
	case ProgramChange:
		return gomidi.ProgramChange(e.Channel, e.Program)
	}
	return nil
}

func (e Event) String() string {
	switch e.Type {
	case NoteOn:
		return fmt.Sprintf("on ch=%d note=%d vel=%d", e.Channel, e.Note, e.Velocity)
	case NoteOff:
		return fmt.Sprintf("off ch=%d note=%d", e.Channel, e.Note)
	case CC:
		return fmt.Sprintf("cc ch=%d ctl=%d val=%d", e.Channel, e.Note, e.Velocity)
	case ProgramChange:
		return fmt.Sprintf("prog ch=%d program=%d", e.Channel, e.Program)
	}
	return fmt.Sprintf("unknown type=%#x", e.Type)
}
