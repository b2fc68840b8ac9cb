package data

import (
	"math"

	"github.com/pkg/errors"
)

// Reserved predictor names. Sub-model predictors use their outcome name.
const (
	PredictorScore    = "score"
	PredictorPriority = "priority"
)

// Sample is one prehospital encounter from the held-out test set.
type Sample struct {
	Age      float64
	Gender   string
	Priority float64
	CallType string
	// Extra carries feature columns the report does not model explicitly.
	Extra map[string]string
}

// Labels holds the binary ground-truth outcome vectors aligned by row order
// to the samples table. Missing cells are NaN.
type Labels struct {
	Outcomes []string
	Values   map[string][]float64
}

// Predictions holds the overall model score and the per-outcome sub-model
// probability vectors, aligned by row order to the samples table.
type Predictions struct {
	Score  []float64
	Models map[string][]float64
}

// Dataset bundles the three aligned inputs plus the display-name lookup.
type Dataset struct {
	Samples     []Sample
	Labels      *Labels
	Predictions *Predictions
	Keys        KeyTable
}

// Validate checks row alignment across samples, labels, and predictions.
// A mismatch is fatal for the whole run.
func (d *Dataset) Validate() error {
	n := len(d.Samples)
	if n == 0 {
		return errors.New("dataset contains no samples")
	}
	for _, o := range d.Labels.Outcomes {
		if len(d.Labels.Values[o]) != n {
			return errors.Errorf("label %q has %d rows, samples have %d", o, len(d.Labels.Values[o]), n)
		}
	}
	if len(d.Predictions.Score) != n {
		return errors.Errorf("score vector has %d rows, samples have %d", len(d.Predictions.Score), n)
	}
	for name, vs := range d.Predictions.Models {
		if len(vs) != n {
			return errors.Errorf("sub-model %q has %d rows, samples have %d", name, len(vs), n)
		}
	}
	return nil
}

// Predictor returns the named prediction vector: the overall score, the
// dispatch priority, or a per-outcome sub-model.
func (d *Dataset) Predictor(name string) ([]float64, error) {
	switch name {
	case PredictorScore:
		return d.Predictions.Score, nil
	case PredictorPriority:
		out := make([]float64, len(d.Samples))
		for i, s := range d.Samples {
			out[i] = s.Priority
		}
		return out, nil
	}
	if vs, ok := d.Predictions.Models[name]; ok {
		return vs, nil
	}
	return nil, errors.Errorf("unknown predictor: %s", name)
}

// Outcome returns the named label vector (NaN marks missing cells).
func (d *Dataset) Outcome(name string) ([]float64, error) {
	if vs, ok := d.Labels.Values[name]; ok {
		return vs, nil
	}
	return nil, errors.Errorf("unknown outcome: %s", name)
}

// Ages returns the age column.
func (d *Dataset) Ages() []float64 {
	out := make([]float64, len(d.Samples))
	for i, s := range d.Samples {
		out[i] = s.Age
	}
	return out
}

// CallTypes returns the call-type column.
func (d *Dataset) CallTypes() []string {
	out := make([]string, len(d.Samples))
	for i, s := range d.Samples {
		out[i] = s.CallType
	}
	return out
}

// CompleteCases filters the paired vectors (and the optional aligned group
// vector) down to rows where the label is observed. Analyses run on complete
// cases only; rows with a missing label drop per cell, not per run.
func CompleteCases(labels, scores []float64, groups []string) (l, s []float64, g []string, err error) {
	if len(labels) != len(scores) || (groups != nil && len(groups) != len(labels)) {
		return nil, nil, nil, errors.New("complete-case filter requires aligned vectors")
	}
	for i, v := range labels {
		if math.IsNaN(v) {
			continue
		}
		l = append(l, v)
		s = append(s, scores[i])
		if groups != nil {
			g = append(g, groups[i])
		}
	}
	return l, s, g, nil
}
