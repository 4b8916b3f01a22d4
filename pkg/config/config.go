// Package config loads spool's YAML configuration. Every field has a
// default, so a missing file is not an error.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config is the full configuration.
type Config struct {
	Catalog  CatalogConfig  `yaml:"catalog"`
	Log      Log            `yaml:"log"`
	Builder  BuilderConfig  `yaml:"builder"`
	Planner  PlannerConfig  `yaml:"planner"`
	Adjuster AdjusterConfig `yaml:"adjuster"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Output   OutputConfig   `yaml:"output"`
}

// CatalogConfig lists the catalog files merged at startup.
type CatalogConfig struct {
	Paths []string `yaml:"paths"`
}

// Log configures the zap logger.
type Log struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// BuilderConfig configures topology building.
type BuilderConfig struct {
	// SnapWarnDegrees is the bearing deviation above which a snapped
	// segment is reported.
	SnapWarnDegrees float64 `yaml:"snap_warn_degrees"`
}

// PlannerConfig configures branch planning.
type PlannerConfig struct {
	// EndFitting is the catalog key fitted to open ends. Empty leaves them
	// open.
	EndFitting string `yaml:"end_fitting"`
}

// AdjusterConfig configures length reconciliation.
type AdjusterConfig struct {
	SingleCut bool `yaml:"single_cut"`
}

// PipelineConfig configures branch concurrency.
type PipelineConfig struct {
	// Workers bounds concurrent branches. Zero means one per CPU.
	Workers int `yaml:"workers"`
}

// OutputConfig selects what the build command writes.
type OutputConfig struct {
	Format     string  `yaml:"format"` // json, primitives, text
	DXF        string  `yaml:"dxf"`
	Mesh       string  `yaml:"mesh"`
	MeshRadius float64 `yaml:"mesh_radius"`
}

// Output formats.
const (
	FormatJSON       = "json"
	FormatPrimitives = "primitives"
	FormatText       = "text"
	FormatConsole    = "console"
)

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Catalog: CatalogConfig{Paths: []string{"catalogs/sms.hcl"}},
		Log:     Log{Level: "info", Format: FormatConsole},
		Builder: BuilderConfig{SnapWarnDegrees: 1},
		Output:  OutputConfig{Format: FormatJSON, MeshRadius: 12.5},
	}
}

// Load reads configuration from a YAML file over the defaults. A missing
// file yields the defaults. Relative catalog paths are resolved against the
// file's directory.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	for i, p := range cfg.Catalog.Paths {
		if !filepath.IsAbs(p) {
			cfg.Catalog.Paths[i] = filepath.Join(dir, p)
		}
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate checks the configuration for values no stage can accept.
func (c *Config) Validate() error {
	if len(c.Catalog.Paths) == 0 {
		return fmt.Errorf("config: no catalog paths configured")
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: log level: %w", err)
	}
	switch c.Log.Format {
	case FormatJSON, FormatConsole:
	default:
		return fmt.Errorf("config: invalid log format %q (valid: json, console)", c.Log.Format)
	}
	if c.Builder.SnapWarnDegrees < 0 || c.Builder.SnapWarnDegrees >= 30 {
		return fmt.Errorf("config: snap_warn_degrees %g out of range [0, 30)", c.Builder.SnapWarnDegrees)
	}
	if c.Pipeline.Workers < 0 {
		return fmt.Errorf("config: workers must not be negative, got %d", c.Pipeline.Workers)
	}
	switch c.Output.Format {
	case FormatJSON, FormatPrimitives, FormatText:
	default:
		return fmt.Errorf("config: invalid output format %q (valid: json, primitives, text)", c.Output.Format)
	}
	if c.Output.Mesh != "" && c.Output.MeshRadius <= 0 {
		return fmt.Errorf("config: mesh_radius must be positive when mesh output is set")
	}
	return nil
}
