package sequencer

import (
	"context"
	"math"
	"runtime"
	"sync/atomic"
	"time"

	"bandmate/debug"
	"bandmate/midi"
	"bandmate/music"
)

// Tempo bounds applied at playback
const (
	MinBPM = 60
	MaxBPM = 180
)

// DefaultBassProgram is GM 34 "Electric Bass (finger)", zero based
const DefaultBassProgram = 33

// SchedulerOptions configures a Scheduler
type SchedulerOptions struct {
	Voices      Voices
	BassProgram uint8
	FixedTempo  float64 // > 0 ignores the analysed tempo
	Clock       Clock   // nil means WallClock
}

// DefaultSchedulerOptions follows the analysed tempo with GM voices
func DefaultSchedulerOptions() SchedulerOptions {
	return SchedulerOptions{Voices: DefaultVoices(), BassProgram: DefaultBassProgram}
}

// Tick describes the step just played
type Tick struct {
	Step     int
	Tempo    float64
	Chord    music.Chord
	Energy   float64
	Overruns int64
	At       time.Time
}

// Scheduler plays the generated groove against the live musical state
type Scheduler struct {
	state   *music.State
	sink    midi.Sink
	voices  Voices
	program uint8
	fixed   float64
	clock   Clock

	overruns atomic.Int64
	ticks    chan Tick
}

// NewScheduler creates a scheduler reading state and sending to sink
func NewScheduler(state *music.State, sink midi.Sink, opts SchedulerOptions) *Scheduler {
	s := &Scheduler{
		state:   state,
		sink:    sink,
		voices:  opts.Voices,
		program: opts.BassProgram,
		fixed:   opts.FixedTempo,
		clock:   opts.Clock,
		ticks:   make(chan Tick, 1),
	}
	if s.clock == nil {
		s.clock = WallClock{}
	}
	return s
}

// Ticks delivers the most recent step for display. Steps are dropped
// while the receiver is behind.
func (s *Scheduler) Ticks() <-chan Tick {
	return s.ticks
}

// Overruns is the number of steps that started late
func (s *Scheduler) Overruns() int64 {
	return s.overruns.Load()
}

// Tempo returns the tempo that will be played for an analysed value.
// NaN plays at MinBPM; min and max would pass it through.
func (s *Scheduler) Tempo(analysed float64) float64 {
	bpm := analysed
	if s.fixed > 0 {
		bpm = s.fixed
	}
	if math.IsNaN(bpm) {
		return MinBPM
	}
	return min(max(bpm, MinBPM), MaxBPM)
}

// Run plays until ctx is cancelled, then releases any sounding bass note.
// Late steps never stack up: the schedule restarts from now instead.
func (s *Scheduler) Run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	s.send(midi.Program(s.voices.BassChannel, s.program))
	debug.Log("sched", "start: sink=%s program=%d fixed=%.1f", s.sink.Name(), s.program, s.fixed)

	var active []uint8
	defer func() {
		for _, n := range active {
			s.send(midi.Off(s.voices.BassChannel, n))
		}
		debug.Log("sched", "stopped, released %d notes", len(active))
	}()

	step := 0
	target := s.clock.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		snap := s.state.Load()
		tempo := s.Tempo(snap.Tempo)

		var events []midi.Event
		events, active = Generate(step, snap, active, s.voices)
		for _, e := range events {
			s.send(e)
		}

		now := s.clock.Now()
		s.publish(Tick{
			Step:     step,
			Tempo:    tempo,
			Chord:    snap.Chord,
			Energy:   snap.Energy,
			Overruns: s.overruns.Load(),
			At:       now,
		})
		debug.LogEvery(16, "sched", "step=%d bpm=%.1f chord=%s energy=%.3f", step, tempo, snap.Chord, snap.Energy)

		target = target.Add(StepDuration(tempo))
		if wait := target.Sub(s.clock.Now()); wait > 0 {
			if !s.clock.Sleep(ctx, wait) {
				return nil
			}
		} else {
			target = s.clock.Now()
			n := s.overruns.Add(1)
			debug.Log("sched", "overrun at step %d by %v (total %d)", step, -wait, n)
		}

		step = (step + 1) % Steps
	}
}

func (s *Scheduler) send(e midi.Event) {
	if err := s.sink.Send(e); err != nil {
		debug.Log("sched", "send %v: %v", e, err)
	}
}

func (s *Scheduler) publish(t Tick) {
	select {
	case s.ticks <- t:
	default:
	}
}
