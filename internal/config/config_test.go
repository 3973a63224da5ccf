package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "gemini-2.0-flash", cfg.Backend.Model)
	assert.Equal(t, 2*time.Minute, cfg.RequestTimeout())
	assert.Equal(t, ":8080", cfg.Server.Listen)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
backend:
  model: gemini-2.5-pro
  timeout: 30s
server:
  listen: ":9090"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "gemini-2.5-pro", cfg.Backend.Model)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout())
	assert.Equal(t, ":9090", cfg.Server.Listen)
	// Untouched sections keep their defaults.
	assert.NotEmpty(t, cfg.Backend.BaseURL)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")
	t.Setenv("STUDYFLOW_MODEL", "gemini-env")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.Backend.APIKey)
	assert.Equal(t, "gemini-env", cfg.Backend.Model)
}

func TestLoad_MissingFileIsFine(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.Error(t, cfg.Validate(), "empty API key must be rejected")

	cfg.Backend.APIKey = "k"
	require.NoError(t, cfg.Validate())
}

func TestRequestTimeout_BadValue(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend.Timeout = "soon"
	assert.Equal(t, 2*time.Minute, cfg.RequestTimeout())
}
