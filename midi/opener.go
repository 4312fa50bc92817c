package midi

import (
	"fmt"
	"time"

	"bandmate/debug"

	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// VirtualName is the endpoint name used when no hardware port exists
const VirtualName = "AI Bandmate (virtual)"

// Opener opens an output sink. For PortOpener name is a substring hint,
// for VirtualOpener it is the endpoint name.
type Opener interface {
	Open(name string) (Sink, error)
}

// PortOpener opens an existing output port
type PortOpener struct {
	Timeout time.Duration
}

func (o PortOpener) Open(hint string) (Sink, error) {
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = DefaultScanTimeout
	}
	outs, err := outPorts(timeout)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(outs))
	for i, p := range outs {
		names[i] = p.String()
	}
	idx := pickPort(names, hint)
	if idx < 0 {
		return nil, ErrNoOutputs
	}
	debug.Log("midi", "opening port %d %q (hint %q)", idx, names[idx], hint)
	return newPortSink(outs[idx], names[idx], nil)
}

// VirtualOpener creates a virtual output endpoint other applications can
// connect to
type VirtualOpener struct{}

func (VirtualOpener) Open(name string) (Sink, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("rtmididrv: %w", err)
	}
	out, err := drv.OpenVirtualOut(name)
	if err != nil {
		drv.Close()
		return nil, fmt.Errorf("virtual port %q: %w", name, err)
	}
	debug.Log("midi", "created virtual port %q", name)
	sink, err := newPortSink(out, name, drv.Close)
	if err != nil {
		drv.Close()
		return nil, err
	}
	return sink, nil
}

// OpenOutput opens the port matching hint when any output exists and a
// virtual endpoint otherwise
func OpenOutput(hint string, timeout time.Duration) (Sink, error) {
	names, err := OutputNames(timeout)
	if err != nil {
		debug.Log("midi", "listing outputs: %v", err)
	}
	return openWith(names, hint, PortOpener{Timeout: timeout}, VirtualOpener{})
}

func openWith(names []string, hint string, physical, virtual Opener) (Sink, error) {
	var (
		sink Sink
		err  error
	)
	if len(names) > 0 {
		sink, err = physical.Open(hint)
	} else {
		sink, err = virtual.Open(VirtualName)
	}
	if err != nil {
		return nil, fmt.Errorf("open midi output: %w", err)
	}
	return sink, nil
}
