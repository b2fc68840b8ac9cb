package stats

import (
	"math"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// Point is a single operating point on a ROC curve.
type Point struct {
	Threshold   float64 `json:"threshold" yaml:"threshold"`
	Sensitivity float64 `json:"sensitivity" yaml:"sensitivity"`
	Specificity float64 `json:"specificity" yaml:"specificity"`
}

// Curve is the ROC curve for one (label, predictor) pair. AUC is nil when the
// pair is non-informative (a predictor that takes a single value, or a label
// with zero variance).
type Curve struct {
	Predictor      string    `json:"predictor" yaml:"predictor"`
	Outcome        string    `json:"outcome" yaml:"outcome"`
	Points         []Point   `json:"points" yaml:"points"`
	AUC            *Estimate `json:"auc,omitempty" yaml:"auc,omitempty"`
	NonInformative bool      `json:"non_informative,omitempty" yaml:"non_informative,omitempty"`
}

// AUC is the area under the ROC curve for binary labels, usable as a
// bootstrap Statistic. Returns NaN when undefined (zero-variance labels).
func AUC(labels, scores []float64) float64 {
	if len(labels) != len(scores) || len(labels) < 2 || zeroVariance(labels) {
		return math.NaN()
	}
	tpr, fpr := rocRates(labels, scores)
	return integrate.Trapezoidal(fpr, tpr)
}

// ROCPoints computes (threshold, sensitivity, specificity) triples across the
// sorted unique predictor values. Ties in the predictor collapse to a single
// threshold.
func ROCPoints(labels, scores []float64) ([]Point, error) {
	if len(labels) != len(scores) {
		return nil, ErrShapeMismatch
	}
	if len(labels) < 2 || zeroVariance(labels) {
		return nil, ErrDegenerate
	}
	tpr, fpr, thresh := rocFull(labels, scores)
	pts := make([]Point, len(tpr))
	for i := range tpr {
		pts[i] = Point{
			Threshold:   thresh[i],
			Sensitivity: tpr[i],
			Specificity: 1 - fpr[i],
		}
	}
	return pts, nil
}

// NewCurve assembles the full ROC artifact for one pair: the operating
// points plus a bootstrap interval for the AUC. Degenerate pairs come back
// flagged instead of failing the run.
func NewCurve(est *Estimator, predictor, outcome string, labels, scores []float64) (*Curve, error) {
	if len(labels) != len(scores) {
		return nil, ErrShapeMismatch
	}
	c := &Curve{Predictor: predictor, Outcome: outcome}

	if uniqueCount(scores) < 2 || len(labels) < 2 || zeroVariance(labels) {
		c.NonInformative = true
		if len(scores) > 0 {
			c.Points = []Point{{Threshold: scores[0], Sensitivity: 1, Specificity: 0}}
		}
		return c, nil
	}

	pts, err := ROCPoints(labels, scores)
	if err != nil {
		return nil, err
	}
	c.Points = pts

	auc, err := est.Run(labels, scores, AUC)
	if err != nil {
		if err == ErrDegenerate {
			c.NonInformative = true
			return c, nil
		}
		return nil, err
	}
	c.AUC = auc
	return c, nil
}

// rocFull returns tpr, fpr and thresholds over all cutoffs.
func rocFull(labels, scores []float64) (tpr, fpr, thresh []float64) {
	n := len(scores)
	y := make([]float64, n)
	copy(y, scores)
	classes := make([]bool, n)
	for i, l := range labels {
		classes[i] = l > 0
	}
	stat.SortWeightedLabeled(y, classes, nil)
	tpr, fpr, thresh = stat.ROC(nil, y, classes, nil)
	return tpr, fpr, thresh
}

func rocRates(labels, scores []float64) (tpr, fpr []float64) {
	tpr, fpr, _ = rocFull(labels, scores)
	return tpr, fpr
}

func uniqueCount(xs []float64) int {
	seen := make(map[float64]struct{}, len(xs))
	for _, x := range xs {
		seen[x] = struct{}{}
	}
	return len(seen)
}
