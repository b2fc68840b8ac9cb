package report

import (
	"github.com/Predicare/openTriage/pkg/data"
	"github.com/Predicare/openTriage/pkg/stats"
	"github.com/pkg/errors"
)

// SweepRow is one weight-vector candidate: the composite score it produces,
// evaluated by bootstrap AUC against every outcome.
type SweepRow struct {
	Name    string                     `json:"name" yaml:"name"`
	Weights []float64                  `json:"weights" yaml:"weights"`
	Mode    string                     `json:"mode" yaml:"mode"`
	AUC     map[string]*stats.Estimate `json:"auc" yaml:"auc"`
}

// WeightSweep enumerates the configured weight rows, builds the composite
// score for each, and evaluates it against every outcome. A bad weight row
// (wrong length, all zeros) is fatal for that row only.
func (d *Driver) WeightSweep() []SweepRow {
	mode := stats.CombineMode(d.cfg.CombineMode)

	inputs := make([][]float64, 0, len(d.cfg.SubModels))
	var missing bool
	for _, name := range d.cfg.SubModels {
		vs, ok := d.ds.Predictions.Models[name]
		if !ok {
			d.skip("weight_sweep", name, errors.Errorf("sub-model not present in model properties: %s", name))
			missing = true
			continue
		}
		inputs = append(inputs, vs)
	}
	if missing {
		return nil
	}

	out := make([]SweepRow, 0, len(d.cfg.WeightRows))
	for _, row := range d.cfg.WeightRows {
		composite, err := stats.Combine(mode, row.Weights, inputs...)
		if err != nil {
			d.skip("weight_sweep", row.Name, err)
			continue
		}

		aucs := make(map[string]*stats.Estimate, len(d.ds.Labels.Outcomes))
		for _, o := range d.ds.Labels.Outcomes {
			labels, err := d.ds.Outcome(o)
			if err != nil {
				d.skip("weight_sweep", row.Name+"/"+o, err)
				continue
			}
			l, s, _, err := data.CompleteCases(labels, composite, nil)
			if err != nil {
				d.skip("weight_sweep", row.Name+"/"+o, err)
				continue
			}
			est, err := d.est.Run(l, s, stats.AUC)
			if err != nil {
				// Degenerate cell: omit the estimate, keep the row.
				continue
			}
			aucs[o] = est
		}
		out = append(out, SweepRow{
			Name:    row.Name,
			Weights: row.Weights,
			Mode:    d.cfg.CombineMode,
			AUC:     aucs,
		})
	}
	return out
}
