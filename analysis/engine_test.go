package analysis

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"bandmate/music"
)

type constRing struct {
	samples []float32
}

func (r constRing) Snapshot() []float32 {
	return append([]float32(nil), r.samples...)
}

func filled(v float32, n int) constRing {
	s := make([]float32, n)
	for i := range s {
		s[i] = v
	}
	return constRing{s}
}

// fakeAnalyzer returns canned results; a non-nil panic value is raised
type fakeAnalyzer struct {
	tempos     []float64
	tempoErr   error
	tempoPanic any
	chroma     [][]float64
	chromaErr  error
	onsetCalls atomic.Int32
}

func (f *fakeAnalyzer) OnsetStrength(y []float64, sr int) ([]float64, error) {
	f.onsetCalls.Add(1)
	if f.tempoPanic != nil {
		panic(f.tempoPanic)
	}
	return []float64{0, 1, 0}, nil
}

func (f *fakeAnalyzer) EstimateTempo(env []float64, sr int) ([]float64, error) {
	return f.tempos, f.tempoErr
}

func (f *fakeAnalyzer) ChromaFeatures(y []float64, sr int) ([][]float64, error) {
	return f.chroma, f.chromaErr
}

// chromaFor builds a two-frame chromagram with energy on the given classes
func chromaFor(pcs ...int) [][]float64 {
	c := make([][]float64, 12)
	for i := range c {
		c[i] = []float64{0, 0}
	}
	for _, pc := range pcs {
		c[pc] = []float64{1, 1}
	}
	return c
}

var gMajor = music.Chord{Root: 7, Quality: music.Major}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestSilenceIsSkipped(t *testing.T) {
	state := music.NewState(100)
	an := &fakeAnalyzer{tempos: []float64{150}, chroma: chromaFor(7, 11, 2)}
	e := New(filled(0, 1000), state, an, Options{})

	r := e.AnalyzeOnce()
	if !r.Skipped {
		t.Fatal("silent input was analysed")
	}
	if got := state.Load(); got.Tempo != 100 || got.Chord != music.DefaultChord || got.Energy != 0 {
		t.Errorf("state changed on silence: %+v", got)
	}
	if an.onsetCalls.Load() != 0 {
		t.Error("primitives called on silence")
	}

	// tiny noise below the threshold still counts as silence
	if r := New(filled(1e-9, 1000), state, an, Options{}).AnalyzeOnce(); !r.Skipped {
		t.Error("1e-9 input was analysed")
	}
}

func TestCycleUpdatesAllFields(t *testing.T) {
	state := music.NewState(100)
	an := &fakeAnalyzer{tempos: []float64{118, 120, 122}, chroma: chromaFor(7, 11, 2)}
	r := New(filled(0.5, 1000), state, an, Options{}).AnalyzeOnce()

	if r.Skipped || r.TempoErr != nil || r.ChordErr != nil {
		t.Fatalf("report = %+v", r)
	}
	wantRMS := math.Sqrt(0.25 + 1e-9)
	if !near(r.RMS, wantRMS) {
		t.Errorf("rms = %v, want %v", r.RMS, wantRMS)
	}

	got := state.Load()
	if !near(got.Tempo, 106) {
		t.Errorf("tempo = %v, want 106", got.Tempo)
	}
	if !near(got.Energy, 0.1*wantRMS) {
		t.Errorf("energy = %v, want %v", got.Energy, 0.1*wantRMS)
	}
	if got.Chord != gMajor {
		t.Errorf("chord = %v, want G", got.Chord)
	}
}

func TestEnergyIsSmoothed(t *testing.T) {
	state := music.NewState(100)
	an := &fakeAnalyzer{tempos: []float64{100}, chroma: chromaFor(0, 4, 7)}
	e := New(filled(0.5, 1000), state, an, Options{})
	e.AnalyzeOnce()
	e.AnalyzeOnce()

	rms := math.Sqrt(0.25 + 1e-9)
	want := 0.9*(0.1*rms) + 0.1*rms
	if got := state.Load().Energy; !near(got, want) {
		t.Errorf("energy after two cycles = %v, want %v", got, want)
	}
}

func TestTempoIsClamped(t *testing.T) {
	tests := []struct {
		cands []float64
		raw   float64
	}{
		{[]float64{240}, 180},
		{[]float64{20, 30, 40}, 60},
		{[]float64{200, 300}, 180},
	}
	for _, tt := range tests {
		state := music.NewState(100)
		an := &fakeAnalyzer{tempos: tt.cands, chroma: chromaFor(0, 4, 7)}
		r := New(filled(0.2, 100), state, an, Options{}).AnalyzeOnce()
		if r.RawTempo != tt.raw {
			t.Errorf("%v: raw = %v, want %v", tt.cands, r.RawTempo, tt.raw)
		}
		if want := 0.7*100 + 0.3*tt.raw; !near(state.Load().Tempo, want) {
			t.Errorf("%v: tempo = %v, want %v", tt.cands, state.Load().Tempo, want)
		}
	}
}

func TestNonFiniteTempoCandidatesAreIgnored(t *testing.T) {
	state := music.NewState(100)
	an := &fakeAnalyzer{tempos: []float64{math.NaN(), 120, math.Inf(-1)}, chroma: chromaFor(0, 4, 7)}
	r := New(filled(0.2, 100), state, an, Options{}).AnalyzeOnce()
	if r.TempoErr != nil || r.RawTempo != 120 {
		t.Fatalf("raw = %v err = %v, want 120", r.RawTempo, r.TempoErr)
	}
	if got := state.Load().Tempo; !near(got, 106) {
		t.Errorf("tempo = %v, want 106", got)
	}

	// a NaN seed is replaced instead of smoothed
	state = music.NewState(math.NaN())
	New(filled(0.2, 100), state, an, Options{}).AnalyzeOnce()
	if got := state.Load().Tempo; got != 120 {
		t.Errorf("tempo from NaN seed = %v, want 120", got)
	}
}

func TestFailuresLeaveFieldsUnchanged(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name      string
		an        *fakeAnalyzer
		tempoOK   bool
		chordOK   bool
		errSubstr string
	}{
		{"tempo error", &fakeAnalyzer{tempoErr: boom, chroma: chromaFor(7, 11, 2)}, false, true, "boom"},
		{"tempo empty", &fakeAnalyzer{chroma: chromaFor(7, 11, 2)}, false, true, "empty"},
		{"tempo only non-finite", &fakeAnalyzer{tempos: []float64{math.NaN(), math.Inf(1)}, chroma: chromaFor(7, 11, 2)}, false, true, "empty"},
		{"tempo panic", &fakeAnalyzer{tempoPanic: "index out of range", chroma: chromaFor(7, 11, 2)}, false, true, "panic"},
		{"chroma error", &fakeAnalyzer{tempos: []float64{120}, chromaErr: boom}, true, false, "boom"},
		{"chroma no frames", &fakeAnalyzer{tempos: []float64{120}, chroma: make([][]float64, 12)}, true, false, "no frames"},
		{"chroma bad shape", &fakeAnalyzer{tempos: []float64{120}, chroma: [][]float64{{1}}}, true, false, "12"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := music.NewState(100)
			r := New(filled(0.5, 1000), state, tt.an, Options{}).AnalyzeOnce()
			got := state.Load()

			if tt.tempoOK != near(got.Tempo, 106) {
				t.Errorf("tempo = %v (ok=%v)", got.Tempo, tt.tempoOK)
			}
			if !tt.tempoOK && got.Tempo != 100 {
				t.Errorf("failed tempo changed state to %v", got.Tempo)
			}
			if tt.chordOK != (got.Chord == gMajor) {
				t.Errorf("chord = %v (ok=%v)", got.Chord, tt.chordOK)
			}
			if !tt.chordOK && got.Chord != music.DefaultChord {
				t.Errorf("failed chord changed state to %v", got.Chord)
			}
			if got.Energy == 0 {
				t.Error("energy not updated")
			}

			err := r.TempoErr
			if !tt.chordOK {
				err = r.ChordErr
			}
			if err == nil || !strings.Contains(err.Error(), tt.errSubstr) {
				t.Errorf("reported err = %v, want %q", err, tt.errSubstr)
			}
		})
	}
}

func TestFixedTempoSkipsEstimation(t *testing.T) {
	state := music.NewState(100)
	an := &fakeAnalyzer{tempos: []float64{150}, chroma: chromaFor(7, 11, 2)}
	New(filled(0.5, 1000), state, an, Options{FixedTempo: 90}).AnalyzeOnce()

	if an.onsetCalls.Load() != 0 {
		t.Error("tempo estimated with a fixed tempo")
	}
	if got := state.Load(); got.Tempo != 100 || got.Chord != gMajor {
		t.Errorf("state = %+v", got)
	}
}

func TestRunAnalysesImmediatelyAndStops(t *testing.T) {
	state := music.NewState(100)
	an := &fakeAnalyzer{tempos: []float64{120}, chroma: chromaFor(0, 4, 7)}
	e := New(filled(0.5, 1000), state, an, Options{Interval: time.Hour, Quantum: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for an.onsetCalls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if an.onsetCalls.Load() != 1 {
		t.Errorf("cycles = %d, want 1", an.onsetCalls.Load())
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
	if an.onsetCalls.Load() != 1 {
		t.Errorf("cycles = %d, want 1 with an hour interval", an.onsetCalls.Load())
	}
}
