package sequencer

import (
	"bandmate/midi"
	"bandmate/music"
)

// Steps per bar (sixteenth notes)
const Steps = 16

// LoudThreshold is the smoothed RMS above which the groove opens up
const LoudThreshold = 0.03

const (
	hatVelocity   = 70
	kickVelocity  = 100
	snareVelocity = 110
	bassSoft      = 75
	bassLoud      = 95
)

// Voices routes the generated parts
type Voices struct {
	DrumChannel uint8
	BassChannel uint8
	BassOctave  int // octave of the bass root, C2 = 36 at octave 2
	Kit         Kit
}

// DefaultVoices is GM drums on channel 10 (index 9) and bass on channel 1
func DefaultVoices() Voices {
	return Voices{DrumChannel: 9, BassChannel: 0, BassOctave: 2, Kit: GetKit(DefaultKit)}
}

func onStep(step int, steps ...int) bool {
	for _, s := range steps {
		if step == s {
			return true
		}
	}
	return false
}

// Generate returns the events for one sixteenth step and the bass notes
// left sounding afterwards. Drum hits come first (note-on then note-off),
// then note-offs for every note in active, then at most one bass note-on.
// active is not modified.
func Generate(step int, snap music.Snapshot, active []uint8, v Voices) ([]midi.Event, []uint8) {
	step = ((step % Steps) + Steps) % Steps
	loud := snap.Energy > LoudThreshold
	offbeat := onStep(step, 2, 6, 10, 14)

	events := make([]midi.Event, 0, 8)
	hit := func(note, vel uint8) {
		events = append(events, midi.On(v.DrumChannel, note, vel), midi.Off(v.DrumChannel, note))
	}

	// Drums
	hat := v.Kit.ClosedHat
	if loud && offbeat {
		hat = v.Kit.OpenHat
	}
	hit(hat, hatVelocity)
	if onStep(step, 0, 8) {
		hit(v.Kit.Kick, kickVelocity)
	}
	if onStep(step, 4, 12) {
		hit(v.Kit.Snare, snareVelocity)
	}

	// Bass
	for _, n := range active {
		events = append(events, midi.Off(v.BassChannel, n))
	}

	root := snap.Chord.Root.MIDINote(v.BassOctave)
	var note uint8
	switch {
	case onStep(step, 0, 4, 8, 12):
		note = root
	case onStep(step, 3, 7, 11, 15):
		// walk third, fifth, seventh, third; needs the 4-note chord
		pcs := snap.Chord.PitchClasses()
		pc := pcs[1+(step/4)%(len(pcs)-1)]
		note = root + uint8((int(pc)-int(snap.Chord.Root)+12)%12)
	case loud && offbeat:
		note = root + 12 // ghost
	default:
		return events, nil
	}

	vel := uint8(bassLoud)
	if snap.Energy < LoudThreshold {
		vel = bassSoft
	}
	events = append(events, midi.On(v.BassChannel, note, vel))
	return events, []uint8{note}
}
