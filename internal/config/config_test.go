package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "Kore", cfg.Gemini.Voice)
	assert.Equal(t, 15, cfg.Assistant.MemoryTurns)
	assert.Equal(t, 4096, cfg.Audio.BlockSize)
	assert.Equal(t, time.Second, cfg.Screen.Interval)
	assert.Equal(t, 60, cfg.Screen.Quality)
	assert.Contains(t, cfg.Assistant.SystemInstruction, "Você é ARIA.")
	assert.NoError(t, cfg.Validate())
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
gemini:
  voice: Puck
assistant:
  proactive: true
  proactive_after: 45s
history:
  backend: redis
  redis_addr: localhost:6379
screen:
  interval: 2s
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Puck", cfg.Gemini.Voice)
	assert.True(t, cfg.Assistant.Proactive)
	assert.Equal(t, 45*time.Second, cfg.Assistant.ProactiveAfter)
	assert.Equal(t, "redis", cfg.History.Backend)
	assert.Equal(t, 2*time.Second, cfg.Screen.Interval)
	// untouched keys keep their defaults
	assert.Equal(t, "aria_messages", cfg.History.RedisKey)
	assert.Equal(t, 1280, cfg.Screen.MaxWidth)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("gemini: [unclosed"), 0o600))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestLoadWithFallback_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadWithFallback("")
	require.NoError(t, err)
	assert.Equal(t, "Kore", cfg.Gemini.Voice)
}

func TestLoadWithFallback_UserFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, os.WriteFile(filepath.Join(home, ".ariarc"), []byte("gemini:\n  voice: Aoede\n"), 0o600))

	cfg, err := LoadWithFallback("")
	require.NoError(t, err)
	assert.Equal(t, "Aoede", cfg.Gemini.Voice)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Gemini.Voice = "Robot"
	cfg.History.Backend = "redis"
	cfg.Output.Format = "xml"
	cfg.Screen.Quality = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown voice")
	assert.Contains(t, err.Error(), "redis_addr")
	assert.Contains(t, err.Error(), "output format")
	assert.Contains(t, err.Error(), "screen.quality")
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	env := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(env, []byte("GEMINI_API_KEY=from-file\n"), 0o600))

	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", "")
	require.NoError(t, os.Unsetenv("GEMINI_API_KEY"))

	cfg := DefaultConfig()
	cfg.LoadEnv(env)
	assert.Equal(t, "from-file", cfg.APIKey)
}

func TestLoadEnv_FallbackVariable(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", "legacy")

	cfg := DefaultConfig()
	cfg.LoadEnv(filepath.Join(t.TempDir(), "none.env"))
	assert.Equal(t, "legacy", cfg.APIKey)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := DefaultConfig()
	cfg.APIKey = "secret"
	cfg.Gemini.Voice = "Leda"
	require.NoError(t, cfg.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Leda", loaded.Gemini.Voice)
}
