package ml

import (
	"math"

	"github.com/rustyeddy/quantlab/quanterr"
)

// Scaler standardises features to zero mean and unit variance. Fit it on
// training data only; fitting over a span that includes evaluation rows is
// leakage.
type Scaler struct {
	mean []float64
	std  []float64
}

func (s *Scaler) Fit(X [][]float64) error {
	if len(X) == 0 || len(X[0]) == 0 {
		return quanterr.Contractf("ml", len(X), "scaler needs a non-empty matrix")
	}

	cols := len(X[0])
	s.mean = make([]float64, cols)
	s.std = make([]float64, cols)

	for _, row := range X {
		for j, v := range row {
			s.mean[j] += v
		}
	}
	for j := range s.mean {
		s.mean[j] /= float64(len(X))
	}
	for _, row := range X {
		for j, v := range row {
			d := v - s.mean[j]
			s.std[j] += d * d
		}
	}
	for j := range s.std {
		s.std[j] = math.Sqrt(s.std[j] / float64(len(X)))
		if s.std[j] == 0 {
			s.std[j] = 1 // constant column, leave centred values at zero
		}
	}
	return nil
}

func (s *Scaler) Fitted() bool { return s.mean != nil }

// Transform returns a scaled copy of X.
func (s *Scaler) Transform(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		scaled := make([]float64, len(row))
		for j, v := range row {
			scaled[j] = (v - s.mean[j]) / s.std[j]
		}
		out[i] = scaled
	}
	return out
}
