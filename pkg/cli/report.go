package cli

import (
	"fmt"
	"log/slog"

	"github.com/Predicare/openTriage/pkg/data"
	"github.com/Predicare/openTriage/pkg/report"
	"github.com/urfave/cli/v2"
)

var (
	samplesFlag = &cli.StringFlag{
		Name:     "samples",
		Usage:    "Path to the test-set samples CSV",
		Required: true,
	}

	labelsFlag = &cli.StringFlag{
		Name:     "labels",
		Usage:    "Path to the outcome labels CSV",
		Required: true,
	}

	modelFlag = &cli.StringFlag{
		Name:     "model",
		Usage:    "Path to the model properties YAML",
		Required: true,
	}

	keysFlag = &cli.StringFlag{
		Name:     "keys",
		Usage:    "Path to the display-name key table CSV (optional)",
		Required: false,
	}

	groupFlag = &cli.StringFlag{
		Name:     "group",
		Usage:    "Restrict calibration to one grouping variable [age, gender, priority, call_type]",
		Required: false,
	}

	dataFlags = []cli.Flag{
		samplesFlag,
		labelsFlag,
		modelFlag,
		keysFlag,
	}

	validateCmd = &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Load the three inputs, check row alignment, and print a summary",
		Action:  cmdValidate,
		Flags:   dataFlags,
	}

	reportCmd = &cli.Command{
		Name:    "report",
		Aliases: []string{"r"},
		Usage:   "Report section operations",
		Subcommands: []*cli.Command{
			{
				Name:    "all",
				Usage:   "Run every report section",
				Aliases: []string{"a"},
				Action:  cmdReportAll,
				Flags:   dataFlags,
			},
			{
				Name:    "describe",
				Usage:   "Descriptive tables by gender, dispatch priority, and call type",
				Aliases: []string{"d"},
				Action:  cmdDescribe,
				Flags:   dataFlags,
			},
			{
				Name:    "roc",
				Usage:   "ROC curves with bootstrap AUC intervals per predictor/outcome pair",
				Action:  cmdDiscrimination,
				Flags:   dataFlags,
			},
			{
				Name:    "calibration",
				Usage:   "Stratified calibration-error and discrimination tables",
				Aliases: []string{"c"},
				Action:  cmdCalibration,
				Flags:   append([]cli.Flag{groupFlag}, dataFlags...),
			},
			{
				Name:    "weights",
				Usage:   "Composite-score weight sensitivity sweep",
				Aliases: []string{"w"},
				Action:  cmdWeightSweep,
				Flags:   dataFlags,
			},
		},
	}
)

func loadDriver(c *cli.Context) (*report.Driver, error) {
	ds, err := data.LoadDataset(
		c.String(samplesFlag.Name),
		c.String(labelsFlag.Name),
		c.String(modelFlag.Name),
		c.String(keysFlag.Name))
	if err != nil {
		return nil, fmt.Errorf("loading dataset: %w", err)
	}
	return report.NewDriver(getConfig(c).Config, ds)
}

func cmdValidate(c *cli.Context) error {
	ds, err := data.LoadDataset(
		c.String(samplesFlag.Name),
		c.String(labelsFlag.Name),
		c.String(modelFlag.Name),
		c.String(keysFlag.Name))
	if err != nil {
		return err
	}
	slog.Debug("dataset loaded", "rows", len(ds.Samples))

	return encode(map[string]any{
		"rows":       len(ds.Samples),
		"outcomes":   ds.Labels.Outcomes,
		"sub_models": len(ds.Predictions.Models),
		"keys":       len(ds.Keys),
	})
}

func cmdReportAll(c *cli.Context) error {
	d, err := loadDriver(c)
	if err != nil {
		return err
	}
	defer d.Close()

	rep, err := d.Run()
	if err != nil {
		return err
	}
	return encode(rep)
}

func cmdDescribe(c *cli.Context) error {
	d, err := loadDriver(c)
	if err != nil {
		return err
	}
	defer d.Close()

	desc, err := d.Describe()
	if err != nil {
		return err
	}
	return encode(desc)
}

func cmdDiscrimination(c *cli.Context) error {
	d, err := loadDriver(c)
	if err != nil {
		return err
	}
	defer d.Close()

	curves, err := d.Discrimination()
	if err != nil {
		return err
	}
	return encode(curves)
}

func cmdCalibration(c *cli.Context) error {
	if g := c.String(groupFlag.Name); g != "" {
		getConfig(c).Config.Groupings = []string{g}
	}

	d, err := loadDriver(c)
	if err != nil {
		return err
	}
	defer d.Close()

	section, err := d.Calibration()
	if err != nil {
		return err
	}
	return encode(section)
}

func cmdWeightSweep(c *cli.Context) error {
	d, err := loadDriver(c)
	if err != nil {
		return err
	}
	defer d.Close()

	return encode(d.WeightSweep())
}
