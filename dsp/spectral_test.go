package dsp

import (
	"errors"
	"math"
	"sort"
	"testing"

	"bandmate/music"
)

const sr = 22050

func tones(seconds float64, freqs ...float64) []float64 {
	y := make([]float64, int(seconds*sr))
	for i := range y {
		t := float64(i) / sr
		for _, f := range freqs {
			y[i] += 0.3 * math.Sin(2*math.Pi*f*t)
		}
	}
	return y
}

// clicks renders a short 1 kHz blip every beat
func clicks(seconds, bpm float64) []float64 {
	y := make([]float64, int(seconds*sr))
	period := int(sr * 60 / bpm)
	blip := sr / 100
	for start := 0; start < len(y); start += period {
		for i := 0; i < blip && start+i < len(y); i++ {
			decay := 1 - float64(i)/float64(blip)
			y[start+i] = 0.8 * decay * math.Sin(2*math.Pi*1000*float64(i)/sr)
		}
	}
	return y
}

func detect(t *testing.T, y []float64) music.Chord {
	t.Helper()
	chroma, err := Spectral{}.ChromaFeatures(y, sr)
	if err != nil {
		t.Fatal(err)
	}
	mean, err := music.MeanChroma(chroma)
	if err != nil {
		t.Fatal(err)
	}
	return music.BestChord(mean).Chord
}

func TestChromaTriads(t *testing.T) {
	tests := []struct {
		name  string
		freqs []float64
		want  music.Chord
	}{
		{"c major", []float64{261.63, 329.63, 392.00}, music.Chord{Root: 0, Quality: music.Major}},
		{"a minor", []float64{220.00, 261.63, 329.63}, music.Chord{Root: 9, Quality: music.Minor}},
		{"g major", []float64{196.00, 246.94, 293.66}, music.Chord{Root: 7, Quality: music.Major}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detect(t, tones(2, tt.freqs...)); got != tt.want {
				t.Errorf("detected %v, want %v", got, tt.want)
			}
		})
	}
}

func TestChromaShape(t *testing.T) {
	chroma, err := Spectral{}.ChromaFeatures(tones(1, 440), sr)
	if err != nil {
		t.Fatal(err)
	}
	if len(chroma) != 12 {
		t.Fatalf("rows = %d, want 12", len(chroma))
	}
	frames := 1 + (sr-4096)/2048
	for pc, row := range chroma {
		if len(row) != frames {
			t.Fatalf("row %d has %d frames, want %d", pc, len(row), frames)
		}
	}
	// A is the loudest class in every frame
	for f := 0; f < frames; f++ {
		if math.Abs(chroma[9][f]-1) > 1e-9 {
			t.Errorf("frame %d: A = %v, want 1", f, chroma[9][f])
		}
	}
}

func TestChromaSilenceIsZero(t *testing.T) {
	chroma, err := Spectral{}.ChromaFeatures(make([]float64, sr), sr)
	if err != nil {
		t.Fatal(err)
	}
	for pc, row := range chroma {
		for f, v := range row {
			if v != 0 {
				t.Fatalf("chroma[%d][%d] = %v on silence", pc, f, v)
			}
		}
	}
}

func TestTempoClickTrack(t *testing.T) {
	for _, bpm := range []float64{100, 120} {
		s := Spectral{}
		env, err := s.OnsetStrength(clicks(8, bpm), sr)
		if err != nil {
			t.Fatal(err)
		}
		cands, err := s.EstimateTempo(env, sr)
		if err != nil {
			t.Fatal(err)
		}
		if len(cands) == 0 {
			t.Fatalf("%v bpm: no tempo candidates", bpm)
		}
		sort.Float64s(cands)
		got := cands[len(cands)/2]
		if math.Abs(got-bpm) > 8 {
			t.Errorf("estimated %.1f bpm (candidates %v), want %v", got, cands, bpm)
		}
	}
}

func TestOnsetStrengthLength(t *testing.T) {
	env, err := Spectral{}.OnsetStrength(make([]float64, 8*sr), sr)
	if err != nil {
		t.Fatal(err)
	}
	if want := 1 + (8*sr-2048)/512; len(env) != want {
		t.Errorf("len = %d, want %d", len(env), want)
	}
	for i, v := range env {
		if v != 0 {
			t.Fatalf("env[%d] = %v on silence", i, v)
		}
	}
}

func TestTempoSilenceHasNoCandidates(t *testing.T) {
	cands, err := Spectral{}.EstimateTempo(make([]float64, 300), sr)
	if err != nil {
		t.Fatal(err)
	}
	if len(cands) != 0 {
		t.Errorf("candidates on flat envelope: %v", cands)
	}
}

func TestTooShort(t *testing.T) {
	s := Spectral{}
	if _, err := s.OnsetStrength(make([]float64, 100), sr); !errors.Is(err, ErrTooShort) {
		t.Errorf("onset err = %v", err)
	}
	if _, err := s.ChromaFeatures(make([]float64, 4000), sr); !errors.Is(err, ErrTooShort) {
		t.Errorf("chroma err = %v", err)
	}
	if _, err := s.EstimateTempo(make([]float64, 5), sr); !errors.Is(err, ErrTooShort) {
		t.Errorf("tempo err = %v", err)
	}
}
