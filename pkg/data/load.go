package data

import (
	"encoding/csv"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Required sample table columns. Any additional column is preserved verbatim
// in Sample.Extra.
var sampleColumns = []string{"age", "gender", "priority", "call_type"}

// LoadDataset reads and cross-validates all report inputs. The key table
// path may be empty; everything else is required.
func LoadDataset(samplesPath, labelsPath, modelPath, keysPath string) (*Dataset, error) {
	samples, err := LoadSamples(samplesPath)
	if err != nil {
		return nil, err
	}
	labels, err := LoadLabels(labelsPath)
	if err != nil {
		return nil, err
	}
	preds, err := LoadModelProperties(modelPath)
	if err != nil {
		return nil, err
	}

	keys := KeyTable{}
	if keysPath != "" {
		if keys, err = LoadKeyTable(keysPath); err != nil {
			return nil, err
		}
	}

	ds := &Dataset{Samples: samples, Labels: labels, Predictions: preds, Keys: keys}
	if err := ds.Validate(); err != nil {
		return nil, errors.Wrap(err, "input tables are misaligned")
	}
	log.Debugf("loaded dataset: %d samples, %d outcomes, %d sub-models",
		len(ds.Samples), len(labels.Outcomes), len(preds.Models))
	return ds, nil
}

// LoadSamples parses the samples CSV: one row per encounter.
func LoadSamples(path string) ([]Sample, error) {
	header, rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range sampleColumns {
		if _, ok := col[c]; !ok {
			return nil, errors.Errorf("samples file %s is missing column %q", path, c)
		}
	}

	samples := make([]Sample, 0, len(rows))
	for i, row := range rows {
		age, err := strconv.ParseFloat(row[col["age"]], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "bad age on row %d of %s", i+2, path)
		}
		prio, err := strconv.ParseFloat(row[col["priority"]], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "bad priority on row %d of %s", i+2, path)
		}

		s := Sample{
			Age:      age,
			Gender:   strings.TrimSpace(row[col["gender"]]),
			Priority: prio,
			CallType: strings.TrimSpace(row[col["call_type"]]),
		}
		for name, j := range col {
			if name == "age" || name == "gender" || name == "priority" || name == "call_type" {
				continue
			}
			if s.Extra == nil {
				s.Extra = make(map[string]string)
			}
			s.Extra[name] = row[j]
		}
		samples = append(samples, s)
	}
	return samples, nil
}

// LoadLabels parses the labels CSV. Every column is a binary outcome; empty
// cells mark a missing label and come back as NaN.
func LoadLabels(path string) (*Labels, error) {
	header, rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	l := &Labels{Values: make(map[string][]float64, len(header))}
	for _, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		l.Outcomes = append(l.Outcomes, name)
		l.Values[name] = make([]float64, 0, len(rows))
	}

	for i, row := range rows {
		for j, h := range l.Outcomes {
			cell := strings.TrimSpace(row[j])
			switch cell {
			case "":
				l.Values[h] = append(l.Values[h], math.NaN())
			case "0":
				l.Values[h] = append(l.Values[h], 0)
			case "1":
				l.Values[h] = append(l.Values[h], 1)
			default:
				return nil, errors.Errorf("label %q on row %d of %s must be 0, 1, or empty (got %q)", h, i+2, path, cell)
			}
		}
	}
	return l, nil
}

// modelDoc is the on-disk shape of the model-properties document.
type modelDoc struct {
	Score  []float64            `yaml:"score"`
	Models map[string][]float64 `yaml:"models"`
}

// LoadModelProperties parses the model-properties YAML document and checks
// every vector is on the probability scale.
func LoadModelProperties(path string) (*Predictions, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading model properties: %s", path)
	}

	var doc modelDoc
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, errors.Wrapf(err, "error parsing model properties: %s", path)
	}
	if len(doc.Score) == 0 {
		return nil, errors.Errorf("model properties %s contain no score vector", path)
	}

	if err := checkUnit("score", doc.Score); err != nil {
		return nil, err
	}
	for name, vs := range doc.Models {
		if err := checkUnit(name, vs); err != nil {
			return nil, err
		}
	}
	return &Predictions{Score: doc.Score, Models: doc.Models}, nil
}

func checkUnit(name string, vs []float64) error {
	for i, v := range vs {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return errors.Errorf("vector %q row %d: %v is outside [0,1]", name, i+1, v)
		}
	}
	return nil
}

// KeyTable maps internal codes to human-readable display names. Used only
// for presentation.
type KeyTable map[string]string

// Display resolves a code, falling back to the code itself.
func (k KeyTable) Display(code string) string {
	if name, ok := k[code]; ok {
		return name
	}
	return code
}

// LoadKeyTable parses the code,display CSV lookup.
func LoadKeyTable(path string) (KeyTable, error) {
	header, rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	if len(header) < 2 {
		return nil, errors.Errorf("key table %s needs code and display columns", path)
	}

	keys := make(KeyTable, len(rows))
	for _, row := range rows {
		keys[strings.TrimSpace(row[0])] = strings.TrimSpace(row[1])
	}
	return keys, nil
}

func readCSV(path string) (header []string, rows [][]string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "error opening file: %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	all, err := r.ReadAll()
	if err != nil {
		return nil, nil, errors.Wrapf(err, "error parsing CSV: %s", path)
	}
	if len(all) < 2 {
		return nil, nil, errors.Errorf("file %s has no data rows", path)
	}
	return all[0], all[1:], nil
}
