package sequencer

import (
	"context"
	"time"
)

// Clock is the scheduler's time source
type Clock interface {
	Now() time.Time
	// Sleep waits for d and reports false if ctx was cancelled first
	Sleep(ctx context.Context, d time.Duration) bool
}

// WallClock is the real-time Clock
type WallClock struct{}

func (WallClock) Now() time.Time { return time.Now() }

func (WallClock) Sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return false
	case <-timer.C:
		return true
	}
}

// StepDuration is the length of one sixteenth note at bpm
func StepDuration(bpm float64) time.Duration {
	return time.Duration(float64(time.Second) * 60 / bpm / 4)
}
