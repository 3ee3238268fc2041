package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/pulsetiming/internal/timing"
)

const (
	DefaultNumericStep = timing.DefaultNumericStep
	DefaultWorkers     = 4
	DefaultDataDir     = ".pulsetiming"
	DefaultPlotWidth   = 72
	DefaultPlotHeight  = 16
	DefaultMaxIter     = 10
	DefaultTolerance   = 1e-10
)

type Config struct {
	SpinParam   string       `yaml:"spin_param" toml:"spin_param"`
	NumericStep float64      `yaml:"numeric_step" toml:"numeric_step"`
	Workers     int          `yaml:"workers" toml:"workers"`
	Cache       bool         `yaml:"cache" toml:"cache"`
	DataDir     string       `yaml:"data_dir" toml:"data_dir"`
	Design      DesignConfig `yaml:"design" toml:"design"`
	Write       WriteConfig  `yaml:"write" toml:"write"`
	Fit         FitConfig    `yaml:"fit" toml:"fit"`
	Plot        PlotConfig   `yaml:"plot" toml:"plot"`
}

type DesignConfig struct {
	Scale           bool `yaml:"scale" toml:"scale"`
	IncludeFrozen   bool `yaml:"include_frozen" toml:"include_frozen"`
	IncludeOffset   bool `yaml:"include_offset" toml:"include_offset"`
	NumericFallback bool `yaml:"numeric_fallback" toml:"numeric_fallback"`
}

type WriteConfig struct {
	Start []string `yaml:"start" toml:"start"`
	Last  []string `yaml:"last" toml:"last"`
}

type FitConfig struct {
	MaxIter   int     `yaml:"max_iter" toml:"max_iter"`
	Tolerance float64 `yaml:"tolerance" toml:"tolerance"`
}

type PlotConfig struct {
	Width  int `yaml:"width" toml:"width"`
	Height int `yaml:"height" toml:"height"`
}

func DefaultConfig() *Config {
	order := timing.DefaultWriteOrder()
	return &Config{
		SpinParam:   timing.DefaultSpinParam,
		NumericStep: DefaultNumericStep,
		Workers:     DefaultWorkers,
		Cache:       true,
		DataDir:     DefaultDataDir,
		Design: DesignConfig{
			Scale:         true,
			IncludeOffset: true,
		},
		Write: WriteConfig{Start: order.Start, Last: order.Last},
		Fit:   FitConfig{MaxIter: DefaultMaxIter, Tolerance: DefaultTolerance},
		Plot:  PlotConfig{Width: DefaultPlotWidth, Height: DefaultPlotHeight},
	}
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Load reads path over the defaults. A .toml extension selects TOML,
// anything else is YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if isTOML(path) {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	if isTOML(path) {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		return toml.NewEncoder(f).Encode(cfg)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	switch {
	case c.SpinParam == "":
		return fmt.Errorf("spin_param must not be empty")
	case c.NumericStep < 0:
		return fmt.Errorf("numeric_step must not be negative, got %v", c.NumericStep)
	case c.Workers < 1:
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	case c.Fit.MaxIter < 1:
		return fmt.Errorf("fit.max_iter must be at least 1, got %d", c.Fit.MaxIter)
	}
	return nil
}

func (c *Config) DesignOptions() timing.DesignOptions {
	return timing.DesignOptions{
		ScaleBySpinFrequency: c.Design.Scale,
		IncludeFrozen:        c.Design.IncludeFrozen,
		IncludeOffset:        c.Design.IncludeOffset,
		NumericFallback:      c.Design.NumericFallback,
		NumericStep:          c.NumericStep,
	}
}

func (c *Config) WriteOrder() timing.WriteOrder {
	return timing.WriteOrder{Start: c.Write.Start, Last: c.Write.Last}
}

// ModelOptions returns the model options implied by the config.
func (c *Config) ModelOptions() []timing.Option {
	opts := []timing.Option{timing.WithSpinParam(c.SpinParam)}
	if c.Cache {
		opts = append(opts, timing.WithCache())
	}
	return opts
}
