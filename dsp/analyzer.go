// Package dsp provides the signal-processing primitives used by the
// analysis engine: an onset-strength envelope, tempo candidates from that
// envelope, and a 12-bin chromagram.
package dsp

import "errors"

// ErrTooShort is returned when the input cannot fill a single analysis frame
var ErrTooShort = errors.New("signal too short for analysis")

// Analyzer is the set of primitives the analysis engine depends on. All
// inputs are mono samples (or envelopes) at sample rate sr.
type Analyzer interface {
	// OnsetStrength returns one value per STFT hop; higher means a more
	// likely note onset.
	OnsetStrength(y []float64, sr int) ([]float64, error)
	// EstimateTempo returns zero or more BPM candidates for an onset
	// envelope produced by OnsetStrength at the same sr.
	EstimateTempo(env []float64, sr int) ([]float64, error)
	// ChromaFeatures returns a 12 x frames matrix, rows indexed by pitch
	// class (0 = C).
	ChromaFeatures(y []float64, sr int) ([][]float64, error)
}
