package audio

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"

	"bandmate/debug"
)

// FileSource replays a WAV file into a Writer at real-time cadence, as if
// it were arriving from a microphone
type FileSource struct {
	out        Writer
	path       string
	sampleRate int
	blockSize  int
	loop       bool
}

// NewFileSource creates a replay source for the WAV file at path
func NewFileSource(out Writer, path string, sampleRate, blockSize int, loop bool) *FileSource {
	return &FileSource{
		out:        out,
		path:       path,
		sampleRate: sampleRate,
		blockSize:  blockSize,
		loop:       loop,
	}
}

// Run decodes, resamples to the analysis rate and feeds one block per
// block period until the file ends (or forever when looping)
func (f *FileSource) Run(ctx context.Context) error {
	for {
		done, err := f.playOnce(ctx)
		if err != nil || done || !f.loop {
			return err
		}
		debug.Log("capture", "looping %s", f.path)
	}
}

// playOnce returns done=true when ctx was cancelled mid-file
func (f *FileSource) playOnce(ctx context.Context) (bool, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return false, fmt.Errorf("open: %w", err)
	}
	streamer, format, err := wav.Decode(file)
	if err != nil {
		file.Close()
		return false, fmt.Errorf("decode %s: %w", f.path, err)
	}
	defer streamer.Close()

	var s beep.Streamer = streamer
	target := beep.SampleRate(f.sampleRate)
	if format.SampleRate != target {
		s = beep.Resample(4, format.SampleRate, target, s)
	}

	period := target.D(f.blockSize)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	stereo := make([][2]float64, f.blockSize)
	mono := make([]float32, f.blockSize)

	for {
		n, ok := s.Stream(stereo)
		if n > 0 {
			mono = downmix(mono, stereo[:n])
			f.out.Write(mono)
		}
		if !ok {
			return false, s.Err()
		}

		select {
		case <-ctx.Done():
			return true, nil
		case <-ticker.C:
		}
	}
}

// downmix averages stereo frames into dst
func downmix(dst []float32, frames [][2]float64) []float32 {
	dst = dst[:len(frames)]
	for i, fr := range frames {
		dst[i] = float32((fr[0] + fr[1]) / 2)
	}
	return dst
}
