package dsp

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
	"github.com/viterin/vek"
)

// Spectral is an Analyzer built on a Hann-windowed short-time Fourier
// transform. The zero value uses the defaults below.
type Spectral struct {
	FFTSize    int     // onset STFT frame, default 2048
	Hop        int     // onset STFT hop, default 512
	ChromaSize int     // chroma STFT frame, default 4096
	PriorBPM   float64 // centre of the tempo prior, default 120
}

const (
	defaultFFTSize    = 2048
	defaultHop        = 512
	defaultChromaSize = 4096
	defaultPriorBPM   = 120

	minTempoBPM = 30
	maxTempoBPM = 300

	tempoWindowSec = 4.0
	tempoHopSec    = 2.0

	chromaMinHz = 65
	chromaMaxHz = 2100
)

func (s Spectral) fftSize() int {
	if s.FFTSize > 0 {
		return s.FFTSize
	}
	return defaultFFTSize
}

func (s Spectral) hop() int {
	if s.Hop > 0 {
		return s.Hop
	}
	return defaultHop
}

func (s Spectral) chromaSize() int {
	if s.ChromaSize > 0 {
		return s.ChromaSize
	}
	return defaultChromaSize
}

func (s Spectral) priorBPM() float64 {
	if s.PriorBPM > 0 {
		return s.PriorBPM
	}
	return defaultPriorBPM
}

// stft calls fn with the one-sided magnitude spectrum of every full frame
func stft(y []float64, size, hop int, fn func(t int, mag []float64)) int {
	if len(y) < size {
		return 0
	}
	hann := window.Hann(size)
	frame := make([]float64, size)
	mag := make([]float64, size/2+1)
	frames := 1 + (len(y)-size)/hop
	for t := 0; t < frames; t++ {
		copy(frame, y[t*hop:t*hop+size])
		vek.Mul_Inplace(frame, hann)
		spec := fft.FFTReal(frame)
		for k := range mag {
			mag[k] = cmplx.Abs(spec[k])
		}
		fn(t, mag)
	}
	return frames
}

// OnsetStrength is the half-wave rectified spectral flux of the
// log-compressed magnitude spectrum. The first frame has no predecessor
// and is 0.
func (s Spectral) OnsetStrength(y []float64, sr int) ([]float64, error) {
	size, hop := s.fftSize(), s.hop()
	if len(y) < size {
		return nil, fmt.Errorf("onset strength: %d samples < frame %d: %w", len(y), size, ErrTooShort)
	}

	env := make([]float64, 1+(len(y)-size)/hop)
	prev := make([]float64, size/2+1)
	stft(y, size, hop, func(t int, mag []float64) {
		var flux float64
		for k, m := range mag {
			c := math.Log1p(100 * m)
			if t > 0 && c > prev[k] {
				flux += c - prev[k]
			}
			prev[k] = c
		}
		env[t] = flux
	})
	return env, nil
}

// EstimateTempo autocorrelates the onset envelope in overlapping windows
// and returns one BPM candidate per window that shows any periodicity.
// Lags are weighted by a log-normal prior (one octave wide) around
// PriorBPM so that octave errors favour the usual dance range.
func (s Spectral) EstimateTempo(env []float64, sr int) ([]float64, error) {
	fps := float64(sr) / float64(s.hop())
	minLag := int(math.Ceil(60 * fps / maxTempoBPM))
	maxLag := int(math.Floor(60 * fps / minTempoBPM))

	win := int(math.Round(tempoWindowSec * fps))
	step := int(math.Round(tempoHopSec * fps))
	if win > len(env) {
		win = len(env)
	}
	if maxLag > win-2 {
		maxLag = win - 2
	}
	if maxLag <= minLag {
		return nil, fmt.Errorf("tempo: %d onset frames: %w", len(env), ErrTooShort)
	}

	prior := make([]float64, maxLag+2)
	for lag := 1; lag < len(prior); lag++ {
		octaves := math.Log2(60 * fps / float64(lag) / s.priorBPM())
		prior[lag] = math.Exp(-0.5 * octaves * octaves)
	}

	smooth := smooth3(env)
	var candidates []float64
	x := make([]float64, win)
	score := make([]float64, maxLag+2)
	for start := 0; start+win <= len(env); start += step {
		copy(x, smooth[start:start+win])
		vek.SubNumber_Inplace(x, vek.Mean(x))

		best, bestLag := 0.0, 0
		for lag := minLag - 1; lag <= maxLag+1; lag++ {
			// normalised by overlap length
			ac := vek.Dot(x[:win-lag], x[lag:]) / float64(win-lag)
			score[lag] = ac * prior[lag]
		}
		for lag := minLag; lag <= maxLag; lag++ {
			if score[lag] > best {
				best, bestLag = score[lag], lag
			}
		}
		if bestLag == 0 {
			continue
		}
		candidates = append(candidates, 60*fps/refine(score, bestLag))
	}
	return candidates, nil
}

// smooth3 applies a [1 2 1]/4 kernel so onsets that land on neighbouring
// frames still correlate
func smooth3(env []float64) []float64 {
	out := make([]float64, len(env))
	for i := range env {
		l, r := env[i], env[i]
		if i > 0 {
			l = env[i-1]
		}
		if i+1 < len(env) {
			r = env[i+1]
		}
		out[i] = 0.25*l + 0.5*env[i] + 0.25*r
	}
	return out
}

// refine fits a parabola through the peak and its neighbours
func refine(score []float64, lag int) float64 {
	a, b, c := score[lag-1], score[lag], score[lag+1]
	den := a - 2*b + c
	if den == 0 {
		return float64(lag)
	}
	d := 0.5 * (a - c) / den
	if math.Abs(d) >= 1 {
		return float64(lag)
	}
	return float64(lag) + d
}

// ChromaFeatures folds STFT power between 65 Hz and 2.1 kHz onto the 12
// equal-tempered pitch classes (A4 = 440 Hz). Each frame is normalised to
// a maximum of 1; silent frames stay zero.
func (s Spectral) ChromaFeatures(y []float64, sr int) ([][]float64, error) {
	size := s.chromaSize()
	if len(y) < size {
		return nil, fmt.Errorf("chroma: %d samples < frame %d: %w", len(y), size, ErrTooShort)
	}

	bins := size/2 + 1
	pcOf := make([]int, bins)
	for k := range pcOf {
		pcOf[k] = -1
		f := float64(k) * float64(sr) / float64(size)
		if f < chromaMinHz || f > chromaMaxHz {
			continue
		}
		note := int(math.Round(12*math.Log2(f/440) + 69))
		pcOf[k] = ((note % 12) + 12) % 12
	}

	hop := size / 2
	frames := 1 + (len(y)-size)/hop
	chroma := make([][]float64, 12)
	for pc := range chroma {
		chroma[pc] = make([]float64, frames)
	}
	col := make([]float64, 12)
	stft(y, size, hop, func(t int, mag []float64) {
		for i := range col {
			col[i] = 0
		}
		for k, m := range mag {
			if pc := pcOf[k]; pc >= 0 {
				col[pc] += m * m
			}
		}
		if peak := vek.Max(col); peak > 0 {
			vek.DivNumber_Inplace(col, peak)
		}
		for pc, v := range col {
			chroma[pc][t] = v
		}
	})
	return chroma, nil
}
