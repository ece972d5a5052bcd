package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/nidsbench/pkg/errors"
	"github.com/YuminosukeSato/nidsbench/preprocessing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nidsbench.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "kddcup99_csv.csv", cfg.DataPath)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, 0.2, cfg.TestSize)
	assert.Equal(t, preprocessing.FitScopeTrain, cfg.FitScope)
	assert.Equal(t, "Random Forest", cfg.PlotModel)
	assert.Equal(t, "confusion_matrix.png", cfg.PlotPath)
	assert.Equal(t, 1, cfg.Parallelism)
	assert.Empty(t, cfg.ResultsDB)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := writeConfig(t, `
data_path = "data/flows.csv.xz"
seed = 7
fit_scope = "full"
parallelism = 2
`)
	t.Setenv("NIDS_SEED", "11")
	t.Setenv("NIDS_RESULTS_DB", "runs.db")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "data/flows.csv.xz", cfg.DataPath)
	assert.Equal(t, int64(11), cfg.Seed)
	assert.Equal(t, preprocessing.FitScopeFull, cfg.FitScope)
	assert.Equal(t, 2, cfg.Parallelism)
	assert.Equal(t, "runs.db", cfg.ResultsDB)
	// untouched keys keep their defaults
	assert.Equal(t, 0.2, cfg.TestSize)

	pc := cfg.PipelineConfig()
	assert.Equal(t, int64(11), pc.RandomState)
	assert.Equal(t, preprocessing.FitScopeFull, pc.FitScope)
	assert.Equal(t, "label", pc.LabelColumn)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, `seed = "abc"`))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, `colour = "blue"`))
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))

	t.Setenv("NIDS_PARALLELISM", "many")
	_, err = Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty data path", func(c *Config) { c.DataPath = "" }},
		{"log level", func(c *Config) { c.LogLevel = "trace" }},
		{"parallelism", func(c *Config) { c.Parallelism = 0 }},
		{"plot model", func(c *Config) { c.PlotModel = "Perceptron" }},
		{"fit scope", func(c *Config) { c.FitScope = "test" }},
		{"test size", func(c *Config) { c.TestSize = 1 }},
		{"scaler", func(c *Config) { c.Scaler = "robust" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			var ve *errors.ValidationError
			assert.True(t, errors.As(err, &ve), "got %v", err)
		})
	}

	cfg := Default()
	cfg.PlotModel = ""
	assert.NoError(t, cfg.Validate())
}
