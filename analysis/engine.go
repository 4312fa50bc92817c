// Package analysis turns the most recent audio into tempo, chord and
// energy estimates and publishes them to the shared musical state.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"bandmate/debug"
	"bandmate/dsp"
	"bandmate/music"

	"github.com/viterin/vek"
)

// Defaults
const (
	DefaultInterval = 2 * time.Second
	DefaultQuantum  = 10 * time.Millisecond

	MinBPM = 60
	MaxBPM = 180

	tempoSmoothing  = 0.7
	energySmoothing = 0.9
	silence         = 1e-8
)

// ErrEmpty is recorded when a primitive succeeds but returns nothing
// usable (no candidates, or only NaN/Inf ones)
var ErrEmpty = errors.New("empty result")

// Snapshotter provides a time-ordered copy of recent audio
type Snapshotter interface {
	Snapshot() []float32
}

// Options configures an Engine
type Options struct {
	SampleRate int
	Interval   time.Duration
	Quantum    time.Duration
	FixedTempo float64 // > 0 skips tempo estimation
}

// Report describes one analysis cycle
type Report struct {
	Skipped  bool // input was silent, state untouched
	RMS      float64
	RawTempo float64 // clamped median candidate, 0 when unavailable
	TempoErr error
	Match    music.Match
	ChordErr error
	Took     time.Duration
}

// Engine periodically analyses the ring and updates the state. It is the
// only writer of the state.
type Engine struct {
	ring  Snapshotter
	state *music.State
	an    dsp.Analyzer
	opts  Options
}

// New creates an engine; zero options take the defaults
func New(ring Snapshotter, state *music.State, an dsp.Analyzer, opts Options) *Engine {
	if opts.SampleRate <= 0 {
		opts.SampleRate = 22050
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Quantum <= 0 {
		opts.Quantum = DefaultQuantum
	}
	return &Engine{ring: ring, state: state, an: an, opts: opts}
}

// Run analyses every Interval until ctx is cancelled. The first cycle
// runs immediately.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.opts.Quantum)
	defer ticker.Stop()

	var last time.Time
	for {
		if last.IsZero() || time.Since(last) >= e.opts.Interval {
			last = time.Now()
			r := e.AnalyzeOnce()
			e.log(r)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (e *Engine) log(r Report) {
	if r.Skipped {
		debug.Log("analysis", "silent, skipped")
		return
	}
	debug.Log("analysis", "rms=%.4f tempo=%.1f chord=%s score=%.3f took=%v",
		r.RMS, r.RawTempo, r.Match.Chord, r.Match.Score, r.Took)
	if r.TempoErr != nil {
		debug.Log("analysis", "tempo failed: %v", r.TempoErr)
	}
	if r.ChordErr != nil {
		debug.Log("analysis", "chord failed: %v", r.ChordErr)
	}
}

// AnalyzeOnce runs one cycle. Failures of individual estimates leave the
// matching fields unchanged and are only reported.
func (e *Engine) AnalyzeOnce() Report {
	start := time.Now()
	raw := e.ring.Snapshot()

	y := make([]float64, len(raw))
	for i, v := range raw {
		y[i] = float64(v)
	}
	if isSilent(y) {
		return Report{Skipped: true, Took: time.Since(start)}
	}

	snap := e.state.Load()
	var r Report

	r.RMS = math.Sqrt(vek.Dot(y, y)/float64(len(y)) + 1e-9)
	snap.Energy = energySmoothing*snap.Energy + (1-energySmoothing)*r.RMS

	if e.opts.FixedTempo <= 0 {
		r.RawTempo, r.TempoErr = e.tempo(y)
		switch {
		case r.TempoErr != nil:
		case math.IsNaN(snap.Tempo) || math.IsInf(snap.Tempo, 0):
			// a non-finite seed would never decay
			snap.Tempo = r.RawTempo
		default:
			snap.Tempo = tempoSmoothing*snap.Tempo + (1-tempoSmoothing)*r.RawTempo
		}
	}

	r.Match, r.ChordErr = e.chord(y)
	if r.ChordErr == nil {
		snap.Chord = r.Match.Chord
	}

	e.state.Store(snap)
	r.Took = time.Since(start)
	return r
}

func isSilent(y []float64) bool {
	return len(y) == 0 || vek.Max(vek.Abs(y)) <= silence
}

// safely runs fn, turning a panic into an error
func safely(what string, fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%s: panic: %v", what, p)
		}
	}()
	return fn()
}

func (e *Engine) tempo(y []float64) (float64, error) {
	var bpm float64
	err := safely("tempo", func() error {
		env, err := e.an.OnsetStrength(y, e.opts.SampleRate)
		if err != nil {
			return fmt.Errorf("onset strength: %w", err)
		}
		cands, err := e.an.EstimateTempo(env, e.opts.SampleRate)
		if err != nil {
			return fmt.Errorf("estimate tempo: %w", err)
		}
		finite := make([]float64, 0, len(cands))
		for _, c := range cands {
			if !math.IsNaN(c) && !math.IsInf(c, 0) {
				finite = append(finite, c)
			}
		}
		if len(finite) == 0 {
			return fmt.Errorf("estimate tempo: %d candidates: %w", len(cands), ErrEmpty)
		}
		bpm = min(max(vek.Median(finite), MinBPM), MaxBPM)
		return nil
	})
	return bpm, err
}

func (e *Engine) chord(y []float64) (music.Match, error) {
	var m music.Match
	err := safely("chord", func() error {
		chroma, err := e.an.ChromaFeatures(y, e.opts.SampleRate)
		if err != nil {
			return fmt.Errorf("chroma: %w", err)
		}
		mean, err := music.MeanChroma(chroma)
		if err != nil {
			return fmt.Errorf("chroma: %w", err)
		}
		m = music.BestChord(mean)
		return nil
	})
	return m, err
}
