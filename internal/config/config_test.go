package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wbrown/saturn/datalog/validate"
)

func TestParseEmpty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, validate.AllFeatures(), cfg.Features)
	assert.Equal(t, []string{"*"}, cfg.Show)
}

func TestParseOverrides(t *testing.T) {
	cfg, err := Parse([]byte(`
workers: 4
features:
  negation: false
  unification: true
log:
  level: debug
  format: json
query_cache_size: 0
show: [tc, "path*"]
`))
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, validate.Features{Unification: true}, cfg.Features)
	assert.Equal(t, Log{Level: "debug", Format: "json"}, cfg.Log)
	assert.Equal(t, 0, cfg.QueryCacheSize)
	assert.Equal(t, []string{"tc", "path*"}, cfg.Show)

	ec := cfg.EngineConfig()
	assert.Equal(t, 4, ec.Workers)
	assert.False(t, ec.Features.Negation)
	assert.Equal(t, 0, ec.QueryCacheSize)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown key", "threads: 3\n"},
		{"negative workers", "workers: -1\n"},
		{"negative cache", "query_cache_size: -5\n"},
		{"bad level", "log:\n  level: loud\n"},
		{"bad type", "workers: many\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saturn.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: 2\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Workers)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLogger(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "warn"
	logger, err := cfg.Logger()
	require.NoError(t, err)
	assert.Equal(t, "warning", logger.GetLevel().String())
}
