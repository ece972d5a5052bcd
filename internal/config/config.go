// Package config loads the benchmark settings from an optional TOML file
// and NIDS_* environment variables.
package config

import (
	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"

	"github.com/YuminosukeSato/nidsbench/evaluation"
	"github.com/YuminosukeSato/nidsbench/pkg/errors"
	"github.com/YuminosukeSato/nidsbench/pkg/log"
	"github.com/YuminosukeSato/nidsbench/preprocessing"
)

// EnvPrefix prefixes every environment variable, e.g. NIDS_DATA_PATH.
const EnvPrefix = "NIDS"

// Config holds every run setting. Zero-config runs use kddcup99_csv.csv,
// seed 42, a 20% test split and the Random Forest plot.
type Config struct {
	DataPath    string  `toml:"data_path" envconfig:"DATA_PATH"`
	Seed        int64   `toml:"seed" envconfig:"SEED"`
	TestSize    float64 `toml:"test_size" envconfig:"TEST_SIZE"`
	FitScope    string  `toml:"fit_scope" envconfig:"FIT_SCOPE"`
	Scaler      string  `toml:"scaler" envconfig:"SCALER"`
	PlotModel   string  `toml:"plot_model" envconfig:"PLOT_MODEL"`
	PlotPath    string  `toml:"plot_path" envconfig:"PLOT_PATH"`
	LogLevel    string  `toml:"log_level" envconfig:"LOG_LEVEL"`
	LogConsole  bool    `toml:"log_console" envconfig:"LOG_CONSOLE"`
	Parallelism int     `toml:"parallelism" envconfig:"PARALLELISM"`
	ResultsDB   string  `toml:"results_db" envconfig:"RESULTS_DB"`
}

// Default returns the built-in settings.
func Default() Config {
	pc := preprocessing.DefaultPipelineConfig()
	return Config{
		DataPath:    "kddcup99_csv.csv",
		Seed:        pc.RandomState,
		TestSize:    pc.TestSize,
		FitScope:    pc.FitScope,
		Scaler:      pc.Scaler,
		PlotModel:   evaluation.RandomForest,
		PlotPath:    "confusion_matrix.png",
		LogLevel:    "info",
		LogConsole:  true,
		Parallelism: 1,
	}
}

// Load starts from Default, applies the TOML file at path (skipped when
// path is empty) and then the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return Config{}, errors.Wrapf(err, "read config %s", path)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return Config{}, errors.NewValidationError("config", "unknown keys", undecoded[0].String())
		}
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "read environment")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings that the pipeline and the CLI rely on.
func (c Config) Validate() error {
	if c.DataPath == "" {
		return errors.NewValidationError("data_path", "must not be empty", c.DataPath)
	}
	if _, ok := log.ParseLevel(c.LogLevel); !ok {
		return errors.NewValidationError("log_level", "must be one of debug, info, warn, error", c.LogLevel)
	}
	if c.Parallelism < 1 {
		return errors.NewValidationError("parallelism", "must be at least 1", c.Parallelism)
	}
	if c.PlotModel != "" {
		known := false
		for _, name := range evaluation.ModelNames {
			if name == c.PlotModel {
				known = true
				break
			}
		}
		if !known {
			return errors.NewValidationError("plot_model", "unknown model name", c.PlotModel)
		}
	}
	return c.PipelineConfig().Validate()
}

// PipelineConfig maps the settings onto the preprocessing defaults.
func (c Config) PipelineConfig() preprocessing.PipelineConfig {
	pc := preprocessing.DefaultPipelineConfig()
	pc.FitScope = c.FitScope
	pc.Scaler = c.Scaler
	pc.TestSize = c.TestSize
	pc.RandomState = c.Seed
	return pc
}
