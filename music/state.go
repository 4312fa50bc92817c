package music

import "sync"

// Snapshot is one consistent view of the musical state
type Snapshot struct {
	Tempo  float64 // smoothed BPM
	Chord  Chord
	Energy float64 // smoothed RMS
}

// State is the live musical state shared by the analysis engine (writer)
// and the scheduler (reader). All fields move together under one lock so a
// reader never sees half of an update.
type State struct {
	mu   sync.Mutex
	snap Snapshot
}

// NewState creates the state with the seed tempo, C major and no energy
func NewState(seedBPM float64) *State {
	return &State{snap: Snapshot{
		Tempo: seedBPM,
		Chord: DefaultChord,
	}}
}

// Load returns all fields in one locked read
func (s *State) Load() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Store replaces all fields in one locked write
func (s *State) Store(snap Snapshot) {
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
}
