package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "spool.yaml")
	src := `
catalog:
  paths: [sms.hcl, /opt/spool/extra.hcl]
log:
  level: debug
planner:
  end_fitting: SMS_CLAMP
adjuster:
  single_cut: true
pipeline:
  workers: 3
`
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "sms.hcl"), "/opt/spool/extra.hcl"}, cfg.Catalog.Paths)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, FormatConsole, cfg.Log.Format, "unset fields keep their default")
	assert.Equal(t, "SMS_CLAMP", cfg.Planner.EndFitting)
	assert.True(t, cfg.Adjuster.SingleCut)
	assert.Equal(t, 3, cfg.Pipeline.Workers)
	assert.Equal(t, 1.0, cfg.Builder.SnapWarnDegrees)
	require.NoError(t, cfg.Validate())
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log: [unclosed"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spool.yaml")
	cfg := Default()
	cfg.Catalog.Paths = []string{"/abs/sms.hcl"}
	cfg.Pipeline.Workers = 2
	require.NoError(t, cfg.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no catalogs", func(c *Config) { c.Catalog.Paths = nil }},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
		{"negative snap", func(c *Config) { c.Builder.SnapWarnDegrees = -1 }},
		{"snap too wide", func(c *Config) { c.Builder.SnapWarnDegrees = 30 }},
		{"negative workers", func(c *Config) { c.Pipeline.Workers = -2 }},
		{"bad output", func(c *Config) { c.Output.Format = "yaml" }},
		{"mesh without radius", func(c *Config) {
			c.Output.Mesh = "out.json"
			c.Output.MeshRadius = 0
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
