package midi

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sync"
	"time"

	"gitlab.com/gomidi/midi/v2/smf"
)

const (
	recordResolution = 960
	// recordBPM only sets the tick grid; wall-clock timing is preserved
	recordBPM = 120.0
)

type stamped struct {
	at    time.Duration
	event Event
}

// Recorder forwards events to another Sink and keeps a timestamped copy
// that is written as a Standard MIDI File when the recorder is closed.
type Recorder struct {
	sink Sink
	path string
	now  func() time.Time

	mu     sync.Mutex
	start  time.Time
	events []stamped
}

// NewRecorder wraps sink, writing the performance to path on Close
func NewRecorder(sink Sink, path string) *Recorder {
	return &Recorder{sink: sink, path: path, now: time.Now}
}

func (r *Recorder) Send(e Event) error {
	r.mu.Lock()
	now := r.now()
	if r.start.IsZero() {
		r.start = now
	}
	r.events = append(r.events, stamped{at: now.Sub(r.start), event: e})
	r.mu.Unlock()
	return r.sink.Send(e)
}

func (r *Recorder) Name() string {
	return r.sink.Name() + " (recording)"
}

// Len returns the number of events captured so far
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// Close closes the wrapped sink and writes the file
func (r *Recorder) Close() error {
	err := r.sink.Close()
	if r.path == "" {
		return err
	}
	f, ferr := os.Create(r.path)
	if ferr != nil {
		return errors.Join(err, fmt.Errorf("record: %w", ferr))
	}
	_, werr := r.WriteTo(f)
	return errors.Join(err, werr, f.Close())
}

// WriteTo encodes the captured events as a single-track SMF
func (r *Recorder) WriteTo(w io.Writer) (int64, error) {
	r.mu.Lock()
	events := append([]stamped(nil), r.events...)
	r.mu.Unlock()

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(recordResolution)

	var tr smf.Track
	tr.Add(0, smf.MetaTrackSequenceName("bandmate"))
	tr.Add(0, smf.MetaTempo(recordBPM))
	var last uint32
	for _, st := range events {
		msg := st.event.Message()
		if msg == nil {
			continue
		}
		tick := toTicks(st.at)
		tr.Add(tick-last, msg)
		last = tick
	}
	tr.Close(0)
	if err := s.Add(tr); err != nil {
		return 0, fmt.Errorf("record: %w", err)
	}
	n, err := s.WriteTo(w)
	if err != nil {
		return n, fmt.Errorf("record: %w", err)
	}
	return n, nil
}

func toTicks(d time.Duration) uint32 {
	return uint32(math.Round(d.Seconds() * recordBPM / 60 * recordResolution))
}
