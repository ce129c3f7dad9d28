// Package config loads glmexplore settings from a YAML file and from
// GLMX_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"github.com/kshedden/glmexplore/bins"
	"github.com/kshedden/glmexplore/explore"
	"gopkg.in/yaml.v2"
)

// EnvPrefix prefixes the environment variables read by Load, e.g.
// GLMX_VIEW_MAX_LEVELS.
const EnvPrefix = "GLMX"

// Config is the complete configuration.
type Config struct {
	View    ViewConfig    `yaml:"view" envconfig:"VIEW"`
	Model   ModelConfig   `yaml:"model" envconfig:"MODEL"`
	Logging LoggingConfig `yaml:"logging" envconfig:"LOGGING"`
	Export  ExportConfig  `yaml:"export" envconfig:"EXPORT"`
}

// ViewConfig controls the grouping of regressors in plots.
type ViewConfig struct {
	MaxLevels int    `yaml:"max_levels" envconfig:"MAX_LEVELS" validate:"gte=2"`
	BinMethod string `yaml:"bin_method" envconfig:"BIN_METHOD" validate:"oneof=uniform quantile"`
}

// ModelConfig holds the initial model.
type ModelConfig struct {
	Formula string `yaml:"formula" envconfig:"FORMULA"`
	Family  string `yaml:"family" envconfig:"FAMILY" validate:"oneof=gaussian binomial gamma"`
}

// LoggingConfig sets up the slog logger.  An empty File discards log
// output, the terminal shell owns stdout and stderr.
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" envconfig:"FORMAT" validate:"oneof=text json"`
	File   string `yaml:"file" envconfig:"FILE"`
}

// ExportConfig controls chart files written from the shell.  Sizes are
// in inches.
type ExportConfig struct {
	Dir    string  `yaml:"dir" envconfig:"DIR" validate:"required"`
	Format string  `yaml:"format" envconfig:"FORMAT" validate:"oneof=png svg pdf"`
	Width  float64 `yaml:"width" envconfig:"WIDTH" validate:"gt=0"`
	Height float64 `yaml:"height" envconfig:"HEIGHT" validate:"gt=0"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		View: ViewConfig{
			MaxLevels: explore.DefaultMaxLevels,
			BinMethod: string(bins.MethodUniform),
		},
		Model: ModelConfig{
			Family: "gaussian",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Export: ExportConfig{
			Dir:    ".",
			Format: "png",
			Width:  8,
			Height: 6,
		},
	}
}

// Load returns the defaults, overridden by the YAML file at path (if
// path is not empty), overridden by the environment.
func Load(path string) (*Config, error) {

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.UnmarshalStrict(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

var validate = validator.New()

// Validate normalizes the case of enumerated values and checks the
// configuration.
func (c *Config) Validate() error {

	c.View.BinMethod = strings.ToLower(c.View.BinMethod)
	c.Model.Family = strings.ToLower(c.Model.Family)
	c.Logging.Level = strings.ToLower(c.Logging.Level)
	c.Logging.Format = strings.ToLower(c.Logging.Format)
	c.Export.Format = strings.ToLower(c.Export.Format)

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	return nil
}

// ViewSettings returns the configured view settings.
func (c *Config) ViewSettings() (explore.ViewSettings, error) {

	m, err := bins.ParseMethod(c.View.BinMethod)
	if err != nil {
		return explore.ViewSettings{}, err
	}

	vs := explore.ViewSettings{MaxLevels: c.View.MaxLevels, BinMethod: m}
	if err := vs.Validate(); err != nil {
		return explore.ViewSettings{}, err
	}

	return vs, nil
}

// Family returns the configured model family.
func (c *Config) Family() (explore.Family, error) {
	return explore.ParseFamily(c.Model.Family)
}
