package midi

import (
	"errors"
	"fmt"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// ErrUnknownEvent is returned by Send for events with no wire form
var ErrUnknownEvent = errors.New("unknown midi event type")

// Sink accepts outgoing events. Send is called from the scheduler thread
// and must not block for long.
type Sink interface {
	Send(Event) error
	Name() string
	Close() error
}

// portSink sends to an opened driver port
type portSink struct {
	out     drivers.Out
	send    func(gomidi.Message) error
	name    string
	onClose func() error
}

func newPortSink(out drivers.Out, name string, onClose func() error) (*portSink, error) {
	send, err := gomidi.SendTo(out)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", name, err)
	}
	return &portSink{out: out, send: send, name: name, onClose: onClose}, nil
}

func (p *portSink) Send(e Event) error {
	msg := e.Message()
	if msg == nil {
		return fmt.Errorf("%v: %w", e, ErrUnknownEvent)
	}
	return p.send(msg)
}

func (p *portSink) Name() string { return p.name }

func (p *portSink) Close() error {
	err := p.out.Close()
	if p.onClose != nil {
		err = errors.Join(err, p.onClose())
	}
	return err
}

// Panic silences every note on the given channels (all notes off and all
// sound off controllers)
func Panic(s Sink, channels ...uint8) error {
	var errs []error
	for _, ch := range channels {
		errs = append(errs,
			s.Send(Event{Type: CC, Channel: ch, Note: 123}),
			s.Send(Event{Type: CC, Channel: ch, Note: 120}),
		)
	}
	return errors.Join(errs...)
}
