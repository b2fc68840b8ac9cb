// Package report orchestrates the validation report: descriptive tables,
// discrimination (ROC/AUC with bootstrap intervals), stratified calibration,
// and the weight-sensitivity sweep. The driver owns the error taxonomy:
// misaligned inputs abort the run, an invalid analysis branch is skipped with
// a recorded reason, and undersized or degenerate cells are silently omitted.
package report

import (
	"fmt"
	"log/slog"

	"github.com/Predicare/openTriage/pkg/config"
	"github.com/Predicare/openTriage/pkg/data"
	"github.com/Predicare/openTriage/pkg/stats"
	"github.com/pkg/errors"
)

// SkippedBranch records an analysis branch that could not run. Other
// branches are unaffected.
type SkippedBranch struct {
	Section string `json:"section" yaml:"section"`
	Branch  string `json:"branch" yaml:"branch"`
	Reason  string `json:"reason" yaml:"reason"`
}

// Report is the full output fed to the rendering layer.
type Report struct {
	Descriptives   []DescriptiveSection `json:"descriptives,omitempty" yaml:"descriptives,omitempty"`
	Discrimination []*stats.Curve       `json:"discrimination,omitempty" yaml:"discrimination,omitempty"`
	Calibration    *CalibrationSection  `json:"calibration,omitempty" yaml:"calibration,omitempty"`
	WeightSweep    []SweepRow           `json:"weight_sweep,omitempty" yaml:"weight_sweep,omitempty"`
	Skipped        []SkippedBranch      `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

// Driver runs report sections against one loaded dataset.
type Driver struct {
	cfg      *config.Config
	ds       *data.Dataset
	frame    *data.Frame
	est      *stats.Estimator
	analyzer *stats.Analyzer
	skipped  []SkippedBranch
}

// NewDriver validates the dataset, loads the in-memory frame, and prepares
// the estimators. The caller must Close the driver.
func NewDriver(cfg *config.Config, ds *data.Dataset) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	frame, err := data.NewFrame(ds)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load analytic frame")
	}
	return &Driver{
		cfg:      cfg,
		ds:       ds,
		frame:    frame,
		est:      stats.NewEstimator(cfg.Replicates, cfg.Level, cfg.Seed),
		analyzer: stats.NewAnalyzer(cfg.MinGroupSize, cfg.GridSize),
	}, nil
}

// Close releases the frame.
func (d *Driver) Close() error {
	return d.frame.Close()
}

// Run produces the complete report.
func (d *Driver) Run() (*Report, error) {
	slog.Debug("report run starting",
		"samples", len(d.ds.Samples),
		"replicates", d.cfg.Replicates,
		"seed", d.cfg.Seed,
		"include_all_dispatches", d.cfg.IncludeAllDispatches,
		"public_model", d.cfg.PublicModel)

	desc, err := d.Describe()
	if err != nil {
		return nil, err
	}
	disc, err := d.Discrimination()
	if err != nil {
		return nil, err
	}
	cal, err := d.Calibration()
	if err != nil {
		return nil, err
	}
	sweep := d.WeightSweep()

	return &Report{
		Descriptives:   desc,
		Discrimination: disc,
		Calibration:    cal,
		WeightSweep:    sweep,
		Skipped:        d.skipped,
	}, nil
}

// DescriptiveSection is the summary table for one grouping column plus the
// shared predictor distributions.
type DescriptiveSection struct {
	Grouping   string                  `json:"grouping" yaml:"grouping"`
	Groups     []data.GroupDescription `json:"groups" yaml:"groups"`
	Predictors []data.PredictorSummary `json:"predictors,omitempty" yaml:"predictors,omitempty"`
}

// Describe builds the descriptive tables from the frame.
func (d *Driver) Describe() ([]DescriptiveSection, error) {
	preds, err := d.frame.PredictorSummaries()
	if err != nil {
		return nil, err
	}

	var out []DescriptiveSection
	for i, grouping := range []string{"gender", "priority", "call_type"} {
		groups, err := d.frame.Describe(grouping)
		if err != nil {
			return nil, err
		}
		s := DescriptiveSection{Grouping: grouping, Groups: groups}
		if i == 0 {
			s.Predictors = preds
		}
		out = append(out, s)
	}
	return out, nil
}

// Discrimination computes one ROC curve with a bootstrap AUC interval per
// configured (predictor, outcome) pair. Degenerate pairs are flagged
// non-informative, not fatal.
func (d *Driver) Discrimination() ([]*stats.Curve, error) {
	pairs := d.pairs()
	out := make([]*stats.Curve, 0, len(pairs))
	for _, p := range pairs {
		curve, err := d.curveFor(p)
		if err != nil {
			d.skip("discrimination", fmt.Sprintf("%s/%s", p.Predictor, p.Outcome), err)
			continue
		}
		out = append(out, curve)
	}
	return out, nil
}

func (d *Driver) curveFor(p config.Pair) (*stats.Curve, error) {
	scores, err := d.ds.Predictor(p.Predictor)
	if err != nil {
		return nil, err
	}
	labels, err := d.ds.Outcome(p.Outcome)
	if err != nil {
		return nil, err
	}
	l, s, _, err := data.CompleteCases(labels, scores, nil)
	if err != nil {
		return nil, err
	}
	return stats.NewCurve(d.est,
		d.ds.Keys.Display(p.Predictor), d.ds.Keys.Display(p.Outcome), l, s)
}

// pairs returns the configured pair table, or the default cross of the
// overall score and dispatch priority against every outcome plus each
// sub-model against its own outcome.
func (d *Driver) pairs() []config.Pair {
	if len(d.cfg.Pairs) > 0 {
		return d.cfg.Pairs
	}
	var out []config.Pair
	for _, o := range d.ds.Labels.Outcomes {
		out = append(out, config.Pair{Predictor: data.PredictorScore, Outcome: o})
		out = append(out, config.Pair{Predictor: data.PredictorPriority, Outcome: o})
		if _, ok := d.ds.Predictions.Models[o]; ok {
			out = append(out, config.Pair{Predictor: o, Outcome: o})
		}
	}
	return out
}

func (d *Driver) skip(section, branch string, err error) {
	slog.Warn("skipping analysis branch", "section", section, "branch", branch, "error", err)
	d.skipped = append(d.skipped, SkippedBranch{Section: section, Branch: branch, Reason: err.Error()})
}

// groupingVector derives the per-row stratum labels for one grouping
// variable.
func (d *Driver) groupingVector(grouping string) ([]string, error) {
	switch grouping {
	case config.GroupAge:
		return stats.QuartileGroups(d.ds.Ages()), nil
	case config.GroupGender:
		out := make([]string, len(d.ds.Samples))
		for i, s := range d.ds.Samples {
			out[i] = s.Gender
		}
		return out, nil
	case config.GroupPriority:
		out := make([]string, len(d.ds.Samples))
		for i, s := range d.ds.Samples {
			out[i] = fmt.Sprintf("P%.0f", s.Priority)
		}
		return out, nil
	case config.GroupCallType:
		counts, err := d.frame.CallTypeCounts()
		if err != nil {
			return nil, err
		}
		rule := stats.TopCategoryElseOther(counts)
		out := make([]string, len(d.ds.Samples))
		for i, s := range d.ds.Samples {
			out[i] = rule(s.CallType)
		}
		return out, nil
	}
	return nil, errors.Errorf("unknown grouping variable: %s", grouping)
}

// calibrationScores returns the predictor on the probability scale. Ordinal
// dispatch priority is min-max rescaled first.
func (d *Driver) calibrationScores(predictor string) ([]float64, error) {
	scores, err := d.ds.Predictor(predictor)
	if err != nil {
		return nil, err
	}
	if predictor == data.PredictorPriority {
		return stats.RescaleUnit(scores), nil
	}
	return scores, nil
}
