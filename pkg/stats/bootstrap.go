package stats

import (
	"math"
	"math/rand"
	"runtime"
	"sort"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

const (
	// ReplicatesDefault is the number of bootstrap resamples drawn when the
	// caller does not configure one.
	ReplicatesDefault = 2000

	// LevelDefault is the two-sided confidence level.
	LevelDefault = 0.95

	minValidReplicates = 2
)

var (
	// ErrDegenerate indicates the statistic is undefined for the given data
	// (fewer than two observations, or a label vector with zero variance).
	// Callers are expected to omit the affected cell rather than abort.
	ErrDegenerate = errors.New("statistic undefined for degenerate data")

	// ErrShapeMismatch indicates label and score vectors of unequal length.
	ErrShapeMismatch = errors.New("label and score vectors differ in length")
)

// Statistic computes a scalar summary of paired label/score vectors.
// Implementations may return NaN when the statistic is undefined for a
// particular resample; such replicates are dropped.
type Statistic func(labels, scores []float64) float64

// Estimate is a point estimate with an empirical percentile interval.
type Estimate struct {
	Value      float64 `json:"value" yaml:"value"`
	Lower      float64 `json:"lower" yaml:"lower"`
	Upper      float64 `json:"upper" yaml:"upper"`
	Level      float64 `json:"level" yaml:"level"`
	Replicates int     `json:"replicates" yaml:"replicates"`
}

// Estimator draws paired resamples with replacement and summarizes the
// resample distribution of an arbitrary statistic. A given seed fully
// determines the resample indices, so repeated runs reproduce the same
// intervals even though replicate statistics are evaluated in parallel.
type Estimator struct {
	Replicates int
	Level      float64
	Seed       int64
	Workers    int
}

// NewEstimator returns an Estimator with defaults applied.
func NewEstimator(replicates int, level float64, seed int64) *Estimator {
	if replicates <= 0 {
		replicates = ReplicatesDefault
	}
	if level <= 0 || level >= 1 {
		level = LevelDefault
	}
	return &Estimator{
		Replicates: replicates,
		Level:      level,
		Seed:       seed,
		Workers:    runtime.NumCPU(),
	}
}

// Run computes the statistic on the original pairs and attaches a two-sided
// percentile interval from Replicates resamples. The point estimate is always
// the statistic of the non-resampled data.
func (e *Estimator) Run(labels, scores []float64, fn Statistic) (*Estimate, error) {
	if len(labels) != len(scores) {
		return nil, ErrShapeMismatch
	}
	n := len(labels)
	if n < 2 {
		return nil, ErrDegenerate
	}
	if zeroVariance(labels) {
		return nil, ErrDegenerate
	}

	point := fn(labels, scores)
	if math.IsNaN(point) {
		return nil, ErrDegenerate
	}

	// Index sets are drawn up front from a single seeded source so the
	// parallel evaluation below cannot perturb the stream.
	rng := rand.New(rand.NewSource(e.Seed))
	indices := make([][]int, e.Replicates)
	for b := range indices {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = rng.Intn(n)
		}
		indices[b] = idx
	}

	vals := make([]float64, e.Replicates)
	workers := e.Workers
	if workers < 1 {
		workers = 1
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for b := range indices {
		b := b
		g.Go(func() error {
			rl := make([]float64, n)
			rs := make([]float64, n)
			for i, j := range indices[b] {
				rl[i] = labels[j]
				rs[i] = scores[j]
			}
			vals[b] = fn(rl, rs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "bootstrap replication failed")
	}

	valid := vals[:0]
	for _, v := range vals {
		if !math.IsNaN(v) {
			valid = append(valid, v)
		}
	}
	if len(valid) < minValidReplicates {
		return nil, ErrDegenerate
	}
	sort.Float64s(valid)

	alpha := (1 - e.Level) / 2
	return &Estimate{
		Value:      point,
		Lower:      stat.Quantile(alpha, stat.Empirical, valid, nil),
		Upper:      stat.Quantile(1-alpha, stat.Empirical, valid, nil),
		Level:      e.Level,
		Replicates: len(valid),
	}, nil
}

func zeroVariance(xs []float64) bool {
	for _, x := range xs[1:] {
		if x != xs[0] {
			return false
		}
	}
	return true
}
