package stats

import (
	"github.com/pkg/errors"
)

// CombineMode selects how sub-model probabilities fold into one score.
type CombineMode string

const (
	// CombineMean is the weighted average of the sub-model outputs.
	CombineMean CombineMode = "mean"

	// CombineMin takes the weighted minimum: min over sub-models with a
	// positive weight of w_i * x_i, scaled by the largest weight so the
	// result stays on the probability scale. Zero-weight sub-models are
	// excluded from the minimum.
	CombineMin CombineMode = "min"
)

var (
	// ErrWeightMismatch indicates the weight vector does not match the
	// number of sub-model inputs. This is a configuration error, never a
	// silent truncation.
	ErrWeightMismatch = errors.New("weight vector length does not match sub-model count")

	// ErrZeroWeights indicates an all-zero weight vector, which defines no
	// score in either combine mode.
	ErrZeroWeights = errors.New("weight vector must contain at least one positive weight")

	// ErrNegativeWeight indicates a negative entry in the weight vector.
	ErrNegativeWeight = errors.New("weights must be non-negative")

	errCombineMode = errors.New("unknown combine mode")
)

// Combine folds the sub-model probability vectors into one score per sample.
// All inputs must share one length; the weight vector must match the number
// of inputs and contain at least one positive entry.
func Combine(mode CombineMode, weights []float64, inputs ...[]float64) ([]float64, error) {
	if len(weights) != len(inputs) || len(inputs) == 0 {
		return nil, ErrWeightMismatch
	}

	var wSum, wMax float64
	for _, w := range weights {
		if w < 0 {
			return nil, ErrNegativeWeight
		}
		wSum += w
		if w > wMax {
			wMax = w
		}
	}
	if wSum == 0 {
		return nil, ErrZeroWeights
	}

	n := len(inputs[0])
	for _, in := range inputs[1:] {
		if len(in) != n {
			return nil, ErrShapeMismatch
		}
	}

	out := make([]float64, n)
	switch mode {
	case CombineMean:
		for i := 0; i < n; i++ {
			var s float64
			for m, in := range inputs {
				s += weights[m] * in[i]
			}
			out[i] = s / wSum
		}
	case CombineMin:
		for i := 0; i < n; i++ {
			first := true
			var min float64
			for m, in := range inputs {
				if weights[m] == 0 {
					continue
				}
				v := weights[m] * in[i]
				if first || v < min {
					min = v
					first = false
				}
			}
			out[i] = min / wMax
		}
	default:
		return nil, errors.Wrapf(errCombineMode, "%q", mode)
	}
	return out, nil
}

// ParseCombineMode validates a configured mode string.
func ParseCombineMode(s string) (CombineMode, error) {
	switch CombineMode(s) {
	case CombineMean, CombineMin:
		return CombineMode(s), nil
	}
	return "", errors.Wrapf(errCombineMode, "%q", s)
}
