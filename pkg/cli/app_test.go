package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

const (
	testSamplesCSV = `age,gender,priority,call_type
34,male,1,chest pain
71,female,2,breathing
55,female,1,trauma
62,male,3,chest pain
`

	testLabelsCSV = `admitted,critical_care,mortality_2d
1,0,0
0,0,1
1,1,0
0,0,0
`

	testModelYAML = `score: [0.8, 0.3, 0.6, 0.4]
models:
  admitted: [0.7, 0.2, 0.9, 0.3]
  critical_care: [0.3, 0.1, 0.6, 0.2]
  mortality_2d: [0.1, 0.4, 0.2, 0.1]
`
)

func writeTestInputs(t *testing.T) (samples, labels, model string) {
	t.Helper()
	dir := t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(content), 0600))
		return p
	}
	return write("samples.csv", testSamplesCSV),
		write("labels.csv", testLabelsCSV),
		write("model.yaml", testModelYAML)
}

func TestNewApp(t *testing.T) {
	app := newApp()
	require.NotNil(t, app)
	assert.Equal(t, "otval", app.Name)

	var names []string
	for _, cmd := range app.Commands {
		names = append(names, cmd.Name)
	}
	assert.Contains(t, names, "validate")
	assert.Contains(t, names, "report")
}

func TestAppValidateCommand(t *testing.T) {
	sp, lp, mp := writeTestInputs(t)

	app := newApp()
	err := app.Run([]string{"otval", "validate",
		"--samples", sp, "--labels", lp, "--model", mp})
	assert.NoError(t, err)
}

func TestAppValidateMissingFile(t *testing.T) {
	sp, lp, _ := writeTestInputs(t)

	app := newApp()
	err := app.Run([]string{"otval", "validate",
		"--samples", sp, "--labels", lp, "--model", "/no/such/model.yaml"})
	assert.Error(t, err)
}

func TestAppSeedOverride(t *testing.T) {
	app := newApp()
	app.Commands = append(app.Commands, testProbeCmd(t, func(seed int64, reps int) {
		assert.Equal(t, int64(99), seed)
		assert.Equal(t, 50, reps)
	}))

	err := app.Run([]string{"otval", "--seed", "99", "--replicates", "50", "probe"})
	assert.NoError(t, err)
}

// testProbeCmd exposes the resolved app config to assertions.
func testProbeCmd(t *testing.T, check func(seed int64, reps int)) *cli.Command {
	t.Helper()
	return &cli.Command{
		Name: "probe",
		Action: func(c *cli.Context) error {
			cfg := getConfig(c).Config
			check(cfg.Seed, cfg.Replicates)
			return nil
		},
	}
}

func TestAppBadConfigFile(t *testing.T) {
	app := newApp()
	err := app.Run([]string{"otval", "--config", "/no/such/config.yaml", "validate",
		"--samples", "x", "--labels", "y", "--model", "z"})
	assert.Error(t, err)
}
