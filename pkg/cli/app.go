package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Predicare/openTriage/pkg/config"
	"github.com/Predicare/openTriage/pkg/logging"
	urfave "github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

const (
	appConfigKey = "app-config"

	formatJSON = "json"
	formatYAML = "yaml"
)

var (
	version = "v0.0.1-default"
	commit  = ""
	date    = ""

	outputFormat = formatJSON

	debugFlag = &urfave.BoolFlag{
		Name:  "debug",
		Usage: "Prints verbose logs (optional, default: false)",
	}

	configFileFlag = &urfave.StringFlag{
		Name:  "config",
		Usage: "Path to the validation config file (optional)",
	}

	formatFlag = &urfave.StringFlag{
		Name:  "format",
		Usage: "Output format [json, yaml]",
		Value: formatJSON,
	}

	seedFlag = &urfave.Int64Flag{
		Name:  "seed",
		Usage: "Bootstrap random seed (optional, overrides config)",
	}

	replicatesFlag = &urfave.IntFlag{
		Name:  "replicates",
		Usage: "Number of bootstrap replicates (optional, overrides config)",
	}
)

// Execute creates and runs the CLI application.
func Execute() {
	logging.SetDefaultCLILogger("info")

	app := newApp()
	if err := app.Run(os.Args); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

type appConfig struct {
	Config *config.Config
	Debug  bool
}

func getConfig(c *urfave.Context) *appConfig {
	return c.App.Metadata[appConfigKey].(*appConfig)
}

func newApp() *urfave.App {
	return &urfave.App{
		Name:                 "otval",
		Version:              fmt.Sprintf("%s (%s - %s)", version, commit, date),
		Compiled:             time.Now(),
		EnableBashCompletion: true,
		HideHelpCommand:      true,
		Usage:                "Statistical validation of prehospital triage risk scores",
		Flags: []urfave.Flag{
			debugFlag,
			configFileFlag,
			formatFlag,
			seedFlag,
			replicatesFlag,
		},
		Commands: []*urfave.Command{
			validateCmd,
			reportCmd,
		},
		Before: func(c *urfave.Context) error {
			if c.Bool(debugFlag.Name) {
				logging.SetDefaultCLILogger("debug")
			}

			f := c.String(formatFlag.Name)
			if f == formatYAML || f == "yml" {
				outputFormat = formatYAML
			}

			cfg, err := config.Load(c.String(configFileFlag.Name))
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if c.IsSet(seedFlag.Name) {
				cfg.Seed = c.Int64(seedFlag.Name)
			}
			if c.IsSet(replicatesFlag.Name) {
				cfg.Replicates = c.Int(replicatesFlag.Name)
			}

			c.App.Metadata[appConfigKey] = &appConfig{
				Config: cfg,
				Debug:  c.Bool(debugFlag.Name),
			}
			return nil
		},
	}
}

func encode(v any) error {
	if outputFormat == formatYAML {
		return yaml.NewEncoder(os.Stdout).Encode(v)
	}
	e := json.NewEncoder(os.Stdout)
	e.SetIndent("", "  ")
	return e.Encode(v)
}
