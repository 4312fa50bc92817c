package midi

import (
	"errors"
	"strings"
	"time"

	"bandmate/debug"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver
)

// DefaultScanTimeout bounds port enumeration (CoreMIDI can hang)
const DefaultScanTimeout = 3 * time.Second

var (
	// ErrNoOutputs is returned when no output port exists
	ErrNoOutputs = errors.New("no midi output ports")
	// ErrScanTimeout is returned when the driver does not answer in time
	ErrScanTimeout = errors.New("midi port scan timed out")
)

// outPorts lists driver output ports with a timeout
func outPorts(timeout time.Duration) ([]drivers.Out, error) {
	ch := make(chan []drivers.Out, 1)
	go func() {
		ch <- gomidi.GetOutPorts()
	}()

	select {
	case outs := <-ch:
		return outs, nil
	case <-time.After(timeout):
		// User needs to run: sudo killall coreaudiod midiserver
		debug.Log("midi", "port scan timed out after %v", timeout)
		return nil, ErrScanTimeout
	}
}

// OutputNames returns the names of all output ports
func OutputNames(timeout time.Duration) ([]string, error) {
	outs, err := outPorts(timeout)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(outs))
	for i, p := range outs {
		names[i] = p.String()
	}
	return names, nil
}

// pickPort returns the index of the first name containing hint
// (case-insensitive), or 0 when nothing matches. -1 means no ports.
func pickPort(names []string, hint string) int {
	if len(names) == 0 {
		return -1
	}
	if hint != "" {
		h := strings.ToLower(hint)
		for i, n := range names {
			if strings.Contains(strings.ToLower(n), h) {
				return i
			}
		}
	}
	return 0
}

// CloseDriver releases the registered port driver; call once at exit
func CloseDriver() {
	gomidi.CloseDriver()
}
