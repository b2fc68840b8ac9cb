// Package config defines the report run configuration: bootstrap parameters,
// reporting thresholds, and the enumeration tables driving the calibration
// matrix and the weight-sensitivity sweep. The former implicit switches
// (inclusion criteria, public-release model) are explicit fields here and are
// threaded through the reporting driver.
package config

import (
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

// EnvPrefix prefixes environment overrides, e.g. OTVAL_REPLICATES=5000.
const EnvPrefix = "OTVAL_"

// Grouping variables the driver stratifies by.
const (
	GroupAge      = "age"
	GroupGender   = "gender"
	GroupPriority = "priority"
	GroupCallType = "call_type"
)

// Pair selects one predictor/outcome combination for the discrimination and
// calibration sections.
type Pair struct {
	Predictor string `koanf:"predictor" json:"predictor" yaml:"predictor"`
	Outcome   string `koanf:"outcome" json:"outcome" yaml:"outcome"`
}

// WeightRow is one candidate weight vector for the sensitivity sweep, in the
// fixed (admission, critical care, mortality) sub-model order.
type WeightRow struct {
	Name    string    `koanf:"name" json:"name" yaml:"name"`
	Weights []float64 `koanf:"weights" json:"weights" yaml:"weights"`
}

// Config is the full report run configuration.
type Config struct {
	Replicates   int     `koanf:"replicates"`
	Level        float64 `koanf:"level"`
	Seed         int64   `koanf:"seed"`
	MinGroupSize int     `koanf:"min_group_size"`
	GridSize     int     `koanf:"grid_size"`
	CombineMode  string  `koanf:"combine_mode"`

	// IncludeAllDispatches lifts the ambulance-dispatch inclusion criteria
	// and keeps every encounter in the test set.
	IncludeAllDispatches bool `koanf:"include_all_dispatches"`

	// PublicModel selects the public-release model's predictions where the
	// properties document carries both variants.
	PublicModel bool `koanf:"public_model"`

	// SubModels fixes the sub-model order used by both the composite
	// builder and the weight sweep.
	SubModels []string `koanf:"sub_models"`

	Groupings  []string    `koanf:"groupings"`
	Pairs      []Pair      `koanf:"pairs"`
	WeightRows []WeightRow `koanf:"weight_rows"`
}

// Default returns the configuration used when no file or env overrides are
// present. The weight table is the standard sensitivity grid: each sub-model
// alone, the uniform vector, and a severity-leaning vector.
func Default() *Config {
	return &Config{
		Replicates:   2000,
		Level:        0.95,
		Seed:         421,
		MinGroupSize: 50,
		GridSize:     99,
		CombineMode:  "mean",
		SubModels:    []string{"admitted", "critical_care", "mortality_2d"},
		Groupings:    []string{GroupAge, GroupGender, GroupPriority, GroupCallType},
		WeightRows: []WeightRow{
			{Name: "uniform", Weights: []float64{1, 1, 1}},
			{Name: "admission_only", Weights: []float64{1, 0, 0}},
			{Name: "critical_only", Weights: []float64{0, 1, 0}},
			{Name: "mortality_only", Weights: []float64{0, 0, 1}},
			{Name: "severity", Weights: []float64{1, 2, 4}},
		},
	}
}

// Load layers defaults, an optional YAML file, and OTVAL_ environment
// variables, lowest to highest precedence.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "failed to load config file: %s", path)
		}
	}

	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, errors.Wrap(err, "failed to load environment overrides")
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects globally inconsistent configuration. Per-branch problems
// (for example a weight row of the wrong length) are handled by the driver so
// a single bad row cannot sink the rest of the report.
func (c *Config) Validate() error {
	if c.Replicates < 1 {
		return errors.New("replicates must be positive")
	}
	if c.Level <= 0 || c.Level >= 1 {
		return errors.Errorf("level must be in (0,1), got %v", c.Level)
	}
	if c.MinGroupSize < 2 {
		return errors.New("min_group_size must be at least 2")
	}
	if c.GridSize < 2 {
		return errors.New("grid_size must be at least 2")
	}
	if c.CombineMode != "mean" && c.CombineMode != "min" {
		return errors.Errorf("combine_mode must be mean or min, got %q", c.CombineMode)
	}
	if len(c.SubModels) == 0 {
		return errors.New("sub_models must not be empty")
	}
	for _, g := range c.Groupings {
		switch g {
		case GroupAge, GroupGender, GroupPriority, GroupCallType:
		default:
			return errors.Errorf("unknown grouping variable: %s", g)
		}
	}
	return nil
}
