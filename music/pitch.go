// Package music holds the harmonic vocabulary shared by analysis and
// playback: pitch classes, triad chords and the live musical state.
package music

import "fmt"

// PitchClass is a chromatic note independent of octave, 0=C .. 11=B
type PitchClass uint8

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

func (p PitchClass) String() string {
	return noteNames[p%12]
}

// MIDINote returns the note number of this pitch class in octave, with
// C4 = 60 (so C2 = 36)
func (p PitchClass) MIDINote(octave int) uint8 {
	return uint8(12*(octave+1) + int(p%12))
}

// Quality is the triad quality
type Quality uint8

const (
	Major Quality = iota
	Minor
)

func (q Quality) String() string {
	if q == Minor {
		return "min"
	}
	return "maj"
}

// Intervals returns the triad plus flat seventh, in semitones above the root
func (q Quality) Intervals() []int {
	if q == Minor {
		return []int{0, 3, 7, 10}
	}
	return []int{0, 4, 7, 10}
}

// Chord is a root and quality
type Chord struct {
	Root    PitchClass
	Quality Quality
}

// DefaultChord is used until the first successful detection
var DefaultChord = Chord{Root: 0, Quality: Major}

// String renders "C" for major and "Cm" for minor
func (c Chord) String() string {
	if c.Quality == Minor {
		return c.Root.String() + "m"
	}
	return c.Root.String()
}

// PitchClasses returns the chord tones (triad + b7) as pitch classes
func (c Chord) PitchClasses() []PitchClass {
	iv := c.Quality.Intervals()
	pcs := make([]PitchClass, len(iv))
	for i, s := range iv {
		pcs[i] = PitchClass((int(c.Root) + s) % 12)
	}
	return pcs
}

// NoteName renders a MIDI note number as "C2", "F#3", ...
func NoteName(note uint8) string {
	return fmt.Sprintf("%s%d", noteNames[note%12], int(note)/12-1)
}
