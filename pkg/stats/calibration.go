package stats

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const (
	// MinGroupSizeDefault is the smallest stratum reported on. Smaller
	// groups are dropped from the output rather than reported with
	// unstable estimates.
	MinGroupSizeDefault = 50

	// GridSizeDefault is the number of probability-grid points the
	// calibration error is averaged over.
	GridSizeDefault = 99

	// OverallGroup names the single pseudo-group used when no grouping
	// variable is supplied.
	OverallGroup = "all"

	logitEps      = 1e-6
	irlsMaxIter   = 50
	irlsTolerance = 1e-9
)

// ErrNoGroups indicates every stratum fell below the minimum size or had a
// degenerate label vector, leaving nothing to report.
var ErrNoGroups = errors.New("no group met the reporting criteria")

// CurvePoint pairs a grid probability with the probability the logistic
// smoother assigns to it. On a perfectly calibrated predictor the two match.
type CurvePoint struct {
	Predicted float64 `json:"predicted" yaml:"predicted"`
	Observed  float64 `json:"observed" yaml:"observed"`
}

// GroupSummary is the calibration report for one stratum.
type GroupSummary struct {
	Group            string       `json:"group" yaml:"group"`
	N                int          `json:"n" yaml:"n"`
	CalibrationError float64      `json:"calibration_error" yaml:"calibration_error"`
	Discrimination   float64      `json:"discrimination" yaml:"discrimination"`
	Intercept        float64      `json:"intercept" yaml:"intercept"`
	Slope            float64      `json:"slope" yaml:"slope"`
	Curve            []CurvePoint `json:"curve" yaml:"curve"`
}

// Analyzer fits a one-variable logistic smoother per stratum and reports
// calibration error and a rank-based discrimination index.
type Analyzer struct {
	MinGroupSize int
	GridSize     int
}

// NewAnalyzer returns an Analyzer with defaults applied.
func NewAnalyzer(minGroupSize, gridSize int) *Analyzer {
	if minGroupSize < 2 {
		minGroupSize = MinGroupSizeDefault
	}
	if gridSize < 2 {
		gridSize = GridSizeDefault
	}
	return &Analyzer{MinGroupSize: minGroupSize, GridSize: gridSize}
}

// Analyze stratifies the (score, label) pairs by the grouping values and
// produces one summary per surviving stratum, sorted by group name. A nil
// grouping vector yields a single overall summary. Undersized or degenerate
// strata are dropped, not errored.
func (a *Analyzer) Analyze(scores, labels []float64, groups []string) ([]GroupSummary, error) {
	if len(scores) != len(labels) {
		return nil, ErrShapeMismatch
	}
	if groups != nil && len(groups) != len(scores) {
		return nil, ErrShapeMismatch
	}

	byGroup := make(map[string][]int)
	for i := range scores {
		g := OverallGroup
		if groups != nil {
			g = groups[i]
		}
		byGroup[g] = append(byGroup[g], i)
	}

	names := make([]string, 0, len(byGroup))
	for g := range byGroup {
		names = append(names, g)
	}
	sort.Strings(names)

	out := make([]GroupSummary, 0, len(names))
	for _, g := range names {
		idx := byGroup[g]
		if len(idx) < a.MinGroupSize {
			log.Debugf("dropping group %q: n=%d below minimum %d", g, len(idx), a.MinGroupSize)
			continue
		}
		gs := make([]float64, len(idx))
		gl := make([]float64, len(idx))
		for i, j := range idx {
			gs[i] = scores[j]
			gl[i] = labels[j]
		}
		s, err := a.analyzeOne(g, gs, gl)
		if err != nil {
			log.Debugf("dropping group %q: %v", g, err)
			continue
		}
		out = append(out, *s)
	}
	if len(out) == 0 {
		return nil, ErrNoGroups
	}
	return out, nil
}

func (a *Analyzer) analyzeOne(group string, scores, labels []float64) (*GroupSummary, error) {
	if zeroVariance(labels) {
		return nil, ErrDegenerate
	}

	x := make([]float64, len(scores))
	for i, s := range scores {
		x[i] = logit(clampUnit(s))
	}

	intercept, slope, err := logisticFit(x, labels)
	if err != nil {
		return nil, err
	}

	grid := a.probGrid(scores)
	curve := make([]CurvePoint, len(grid))
	var mae float64
	for i, g := range grid {
		obs := sigmoid(intercept + slope*logit(g))
		curve[i] = CurvePoint{Predicted: g, Observed: obs}
		mae += math.Abs(obs - g)
	}
	mae /= float64(len(grid))

	return &GroupSummary{
		Group:            group,
		N:                len(scores),
		CalibrationError: mae,
		Discrimination:   Concordance(labels, scores),
		Intercept:        intercept,
		Slope:            slope,
		Curve:            curve,
	}, nil
}

// probGrid spaces GridSize points evenly between the 5th and 95th percentile
// of the scores, clamped away from 0 and 1. Restricting the grid to the
// observed range keeps the error estimate out of extrapolation territory.
func (a *Analyzer) probGrid(scores []float64) []float64 {
	s := make([]float64, len(scores))
	copy(s, scores)
	sort.Float64s(s)
	lo := clampUnit(stat.Quantile(0.05, stat.Empirical, s, nil))
	hi := clampUnit(stat.Quantile(0.95, stat.Empirical, s, nil))
	if hi <= lo {
		lo, hi = clampUnit(s[0]), clampUnit(s[len(s)-1])
	}
	if hi <= lo {
		hi = lo + logitEps
	}
	grid := make([]float64, a.GridSize)
	step := (hi - lo) / float64(a.GridSize-1)
	for i := range grid {
		grid[i] = lo + float64(i)*step
	}
	return grid
}

// Concordance is the rank-based discrimination index: the probability that a
// random positive outranks a random negative, with midranks for ties. Usable
// as a bootstrap Statistic. NaN when either class is empty.
func Concordance(labels, scores []float64) float64 {
	n := len(scores)
	if n == 0 || len(labels) != n {
		return math.NaN()
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return scores[idx[a]] < scores[idx[b]] })

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j < n && scores[idx[j]] == scores[idx[i]] {
			j++
		}
		mid := float64(i+j+1) / 2 // average of 1-based ranks i+1..j
		for k := i; k < j; k++ {
			ranks[idx[k]] = mid
		}
		i = j
	}

	var nPos, nNeg, rankSum float64
	for i, l := range labels {
		if l > 0 {
			nPos++
			rankSum += ranks[i]
		} else {
			nNeg++
		}
	}
	if nPos == 0 || nNeg == 0 {
		return math.NaN()
	}
	return (rankSum - nPos*(nPos+1)/2) / (nPos * nNeg)
}

// logisticFit estimates intercept and slope of P(y=1|x) = sigmoid(b0 + b1*x)
// by iteratively reweighted least squares on the two-column design.
func logisticFit(x, y []float64) (intercept, slope float64, err error) {
	n := len(x)
	if n < 2 {
		return 0, 0, ErrDegenerate
	}

	var b0, b1 float64
	for iter := 0; iter < irlsMaxIter; iter++ {
		var a00, a01, a11, g0, g1 float64
		for i := 0; i < n; i++ {
			eta := b0 + b1*x[i]
			p := sigmoid(eta)
			w := p*(1-p) + 1e-10
			r := y[i] - p
			a00 += w
			a01 += w * x[i]
			a11 += w * x[i] * x[i]
			g0 += r
			g1 += r * x[i]
		}

		am := mat.NewDense(2, 2, []float64{a00, a01, a01, a11})
		gv := mat.NewVecDense(2, []float64{g0, g1})
		var d mat.VecDense
		if err := d.SolveVec(am, gv); err != nil {
			return 0, 0, errors.Wrap(err, "singular system in logistic fit")
		}

		b0 += d.AtVec(0)
		b1 += d.AtVec(1)
		if math.Abs(d.AtVec(0))+math.Abs(d.AtVec(1)) < irlsTolerance {
			break
		}
	}
	if math.IsNaN(b0) || math.IsNaN(b1) || math.IsInf(b0, 0) || math.IsInf(b1, 0) {
		return 0, 0, errors.New("logistic fit diverged")
	}
	return b0, b1, nil
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func logit(p float64) float64 {
	return math.Log(p / (1 - p))
}

func clampUnit(p float64) float64 {
	if p < logitEps {
		return logitEps
	}
	if p > 1-logitEps {
		return 1 - logitEps
	}
	return p
}

// RescaleUnit maps a vector onto [0,1] by min-max. Ordinal predictors such as
// dispatch priority go through this before calibration. A constant vector
// comes back as all zeros.
func RescaleUnit(xs []float64) []float64 {
	out := make([]float64, len(xs))
	if len(xs) == 0 {
		return out
	}
	lo, hi := xs[0], xs[0]
	for _, x := range xs {
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
	}
	if hi == lo {
		return out
	}
	for i, x := range xs {
		out[i] = (x - lo) / (hi - lo)
	}
	return out
}
