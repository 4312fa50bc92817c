package audio

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gordonklaus/portaudio"

	"bandmate/debug"
)

// Source delivers mono blocks to a Writer until ctx is cancelled
type Source interface {
	Run(ctx context.Context) error
}

// ErrNoInputDevice is returned when no capture device matches the selector
var ErrNoInputDevice = errors.New("no matching audio input device")

// DeviceInfo describes an input device for listing
type DeviceInfo struct {
	Index      int
	Name       string
	Channels   int
	SampleRate float64
	IsDefault  bool
}

// Capture streams a PortAudio input device into a Writer
type Capture struct {
	out        Writer
	device     string // index or name substring, "" = default input
	sampleRate int
	blockSize  int
}

// NewCapture creates a capture source; nothing is opened until Run
func NewCapture(out Writer, device string, sampleRate, blockSize int) *Capture {
	return &Capture{
		out:        out,
		device:     device,
		sampleRate: sampleRate,
		blockSize:  blockSize,
	}
}

// Run opens the input stream and blocks until ctx is done
func (c *Capture) Run(ctx context.Context) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("portaudio init: %w", err)
	}
	defer portaudio.Terminate()

	dev, err := findInput(c.device)
	if err != nil {
		return err
	}

	params := portaudio.LowLatencyParameters(dev, nil)
	params.Input.Channels = 1
	params.SampleRate = float64(c.sampleRate)
	params.FramesPerBuffer = c.blockSize

	// The callback runs on the audio thread: copy into the ring and return
	stream, err := portaudio.OpenStream(params, func(in []float32) {
		c.out.Write(in)
	})
	if err != nil {
		return fmt.Errorf("open input %q: %w", dev.Name, err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("start input %q: %w", dev.Name, err)
	}
	debug.Log("capture", "started %q sr=%d block=%d", dev.Name, c.sampleRate, c.blockSize)

	<-ctx.Done()

	if err := stream.Stop(); err != nil {
		return fmt.Errorf("stop input %q: %w", dev.Name, err)
	}
	debug.Log("capture", "stopped %q", dev.Name)
	return nil
}

// ListDevices returns every device with at least one input channel
func ListDevices() ([]DeviceInfo, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio init: %w", err)
	}
	defer portaudio.Terminate()

	devs, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	def, _ := portaudio.DefaultInputDevice()

	var out []DeviceInfo
	for i, d := range devs {
		if d.MaxInputChannels < 1 {
			continue
		}
		out = append(out, DeviceInfo{
			Index:      i,
			Name:       d.Name,
			Channels:   d.MaxInputChannels,
			SampleRate: d.DefaultSampleRate,
			IsDefault:  def != nil && def.Name == d.Name,
		})
	}
	return out, nil
}

// findInput resolves a selector: "" = default, a number = device index,
// anything else = case-insensitive name substring
func findInput(selector string) (*portaudio.DeviceInfo, error) {
	if selector == "" {
		dev, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoInputDevice, err)
		}
		return dev, nil
	}

	devs, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}

	if idx, err := strconv.Atoi(selector); err == nil {
		if idx < 0 || idx >= len(devs) || devs[idx].MaxInputChannels < 1 {
			return nil, fmt.Errorf("%w: index %d", ErrNoInputDevice, idx)
		}
		return devs[idx], nil
	}

	want := strings.ToLower(selector)
	for _, d := range devs {
		if d.MaxInputChannels > 0 && strings.Contains(strings.ToLower(d.Name), want) {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNoInputDevice, selector)
}
