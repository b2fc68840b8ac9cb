package report

import (
	"fmt"
	"sort"

	"github.com/Predicare/openTriage/pkg/config"
	"github.com/Predicare/openTriage/pkg/data"
	"github.com/Predicare/openTriage/pkg/stats"
)

// CalibrationRow is one long-form cell: a predictor evaluated against one
// outcome within one stratum of one grouping variable.
type CalibrationRow struct {
	Grouping         string             `json:"grouping" yaml:"grouping"`
	Group            string             `json:"group" yaml:"group"`
	Predictor        string             `json:"predictor" yaml:"predictor"`
	Outcome          string             `json:"outcome" yaml:"outcome"`
	N                int                `json:"n" yaml:"n"`
	CalibrationError float64            `json:"calibration_error" yaml:"calibration_error"`
	Discrimination   float64            `json:"discrimination" yaml:"discrimination"`
	Curve            []stats.CurvePoint `json:"curve,omitempty" yaml:"curve,omitempty"`
}

// WideRow is the pivoted view: one row per predictor and stratum, one column
// (map entry) per outcome carrying the mean absolute calibration error.
type WideRow struct {
	Predictor string             `json:"predictor" yaml:"predictor"`
	Grouping  string             `json:"grouping" yaml:"grouping"`
	Group     string             `json:"group" yaml:"group"`
	Errors    map[string]float64 `json:"errors" yaml:"errors"`
}

// CalibrationSection carries both shapes: the long table feeds the plots,
// the wide table is the printed calibration-error matrix.
type CalibrationSection struct {
	Long []CalibrationRow `json:"long" yaml:"long"`
	Wide []WideRow        `json:"wide" yaml:"wide"`
}

// Calibration runs the analyzer for every grouping variable and every
// configured pair, then pivots the long table. A stratum below the minimum
// size simply does not appear.
func (d *Driver) Calibration() (*CalibrationSection, error) {
	var long []CalibrationRow
	for _, grouping := range d.cfg.Groupings {
		groups, err := d.groupingVector(grouping)
		if err != nil {
			return nil, err
		}
		for _, p := range d.pairs() {
			rows, err := d.calibrationCells(grouping, groups, p)
			if err != nil {
				d.skip("calibration", fmt.Sprintf("%s:%s/%s", grouping, p.Predictor, p.Outcome), err)
				continue
			}
			long = append(long, rows...)
		}
	}
	return &CalibrationSection{Long: long, Wide: Pivot(long)}, nil
}

func (d *Driver) calibrationCells(grouping string, groups []string, p config.Pair) ([]CalibrationRow, error) {
	scores, err := d.calibrationScores(p.Predictor)
	if err != nil {
		return nil, err
	}
	labels, err := d.ds.Outcome(p.Outcome)
	if err != nil {
		return nil, err
	}
	l, s, g, err := data.CompleteCases(labels, scores, groups)
	if err != nil {
		return nil, err
	}

	summaries, err := d.analyzer.Analyze(s, l, g)
	if err == stats.ErrNoGroups {
		// Every stratum was too small or degenerate: omit, do not fail.
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows := make([]CalibrationRow, 0, len(summaries))
	for _, sum := range summaries {
		rows = append(rows, CalibrationRow{
			Grouping:         grouping,
			Group:            sum.Group,
			Predictor:        d.ds.Keys.Display(p.Predictor),
			Outcome:          d.ds.Keys.Display(p.Outcome),
			N:                sum.N,
			CalibrationError: sum.CalibrationError,
			Discrimination:   sum.Discrimination,
			Curve:            sum.Curve,
		})
	}
	return rows, nil
}

// Pivot folds the long calibration table into the wide calibration-error
// matrix, ordered by predictor, grouping, and group.
func Pivot(long []CalibrationRow) []WideRow {
	index := make(map[string]int)
	var wide []WideRow
	for _, r := range long {
		key := r.Predictor + "\x00" + r.Grouping + "\x00" + r.Group
		i, ok := index[key]
		if !ok {
			i = len(wide)
			index[key] = i
			wide = append(wide, WideRow{
				Predictor: r.Predictor,
				Grouping:  r.Grouping,
				Group:     r.Group,
				Errors:    make(map[string]float64),
			})
		}
		wide[i].Errors[r.Outcome] = r.CalibrationError
	}
	sort.Slice(wide, func(i, j int) bool {
		if wide[i].Predictor != wide[j].Predictor {
			return wide[i].Predictor < wide[j].Predictor
		}
		if wide[i].Grouping != wide[j].Grouping {
			return wide[i].Grouping < wide[j].Grouping
		}
		return wide[i].Group < wide[j].Group
	})
	return wide
}
