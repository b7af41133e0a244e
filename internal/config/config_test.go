package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(newViper())
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.False(t, cfg.LongRunning())
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("FORGE_ALWAYS_MAKE", "true")
	t.Setenv("FORGE_TIMEOUT", "90s")
	t.Setenv("FORGE_LOG_LEVEL", "debug")
	t.Setenv("FORGE_SCHEDULE", "@every 1m")

	cfg, err := Load(newViper())
	require.NoError(t, err)
	assert.True(t, cfg.AlwaysMake)
	assert.Equal(t, 90*time.Second, cfg.Timeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "@every 1m", cfg.Schedule)
	assert.True(t, cfg.LongRunning())
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	data := "trace: true\nwatch: true\nwatch_debounce: 50ms\nlog:\n  format: json\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".forge.yaml"), []byte(data), 0o644))

	v := newViper()
	require.NoError(t, ReadFile(v, dir))

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.True(t, cfg.Trace)
	assert.True(t, cfg.Watch)
	assert.Equal(t, 50*time.Millisecond, cfg.WatchDebounce)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestReadFile_Missing(t *testing.T) {
	v := newViper()
	require.NoError(t, ReadFile(v, t.TempDir()))
}

func TestReadFile_Malformed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".forge.yaml"), []byte("trace: [\n"), 0o644))
	assert.Error(t, ReadFile(newViper(), dir))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
		fields []string
	}{
		{"valid", func(c *Config) {}, nil},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, []string{"log.level"}},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, []string{"log.format"}},
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }, []string{"timeout"}},
		{"zero debounce", func(c *Config) { c.Watch = true; c.WatchDebounce = 0 }, []string{"watch_debounce"}},
		{"bad cron", func(c *Config) { c.Schedule = "every day" }, []string{"schedule"}},
		{"watch and schedule", func(c *Config) { c.Watch = true; c.Schedule = "*/5 * * * *" }, []string{"schedule"}},
		{"upper case level", func(c *Config) { c.Log.Level = "INFO" }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			var fields []string
			for _, e := range cfg.Validate() {
				fields = append(fields, e.Field)
			}
			assert.Equal(t, tt.fields, fields)
		})
	}
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{
		{Field: "a", Value: 1, Message: "bad"},
		{Field: "b", Value: "x", Message: "worse"},
	}
	assert.Equal(t, "2 validation errors:\n  1. a: bad (got: 1)\n  2. b: worse (got: x)\n", errs.Error())
	assert.Equal(t, "a: bad (got: 1)", errs[:1].Error())
}
