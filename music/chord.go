package music

import (
	"errors"

	"github.com/viterin/vek"
)

var (
	// ErrNoFrames is returned when a chromagram has no time frames
	ErrNoFrames = errors.New("chromagram has no frames")
	// ErrChromaShape is returned when a chromagram is not 12 rows of equal length
	ErrChromaShape = errors.New("chromagram must have 12 equal-length rows")
)

// Binary triad templates rooted at C
var (
	majorTemplate = []float64{1, 0, 0, 0, 1, 0, 0, 1, 0, 0, 0, 0} // root, +4, +7
	minorTemplate = []float64{1, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0, 0} // root, +3, +7
)

// Match is the best scoring triad for a chroma vector
type Match struct {
	Chord Chord
	Score float64
}

// BestChord scores all 24 major/minor triads against a pitch-class energy
// vector. Candidates are visited root ascending, major before minor, and
// only a strictly greater score replaces the best, so ties resolve to the
// earliest candidate. A zero vector yields C major with score 0.
func BestChord(chroma [12]float64) Match {
	v := vek.MaximumNumber(chroma[:], 0)
	if sum := vek.Sum(v); sum > 0 {
		vek.DivNumber_Inplace(v, sum+1e-9)
	}

	best := Match{Chord: DefaultChord, Score: -1}
	tmpl := make([]float64, 12)
	for root := 0; root < 12; root++ {
		rotate(tmpl, majorTemplate, root)
		if s := vek.Dot(v, tmpl); s > best.Score {
			best = Match{Chord: Chord{Root: PitchClass(root), Quality: Major}, Score: s}
		}
		rotate(tmpl, minorTemplate, root)
		if s := vek.Dot(v, tmpl); s > best.Score {
			best = Match{Chord: Chord{Root: PitchClass(root), Quality: Minor}, Score: s}
		}
	}
	return best
}

// rotate writes src shifted right by n into dst (dst[(i+n)%12] = src[i])
func rotate(dst, src []float64, n int) {
	for i := range src {
		dst[(i+n)%12] = src[i]
	}
}

// MeanChroma averages a 12 x frames chromagram over time
func MeanChroma(chroma [][]float64) ([12]float64, error) {
	var out [12]float64
	if len(chroma) != 12 {
		return out, ErrChromaShape
	}
	frames := len(chroma[0])
	if frames == 0 {
		return out, ErrNoFrames
	}
	for pc, row := range chroma {
		if len(row) != frames {
			return out, ErrChromaShape
		}
		out[pc] = vek.Mean(row)
	}
	return out, nil
}
