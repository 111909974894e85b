package config

import (
	"testing"
	"time"

	"github.com/peng0105/password-xl/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, models.LoginTypeMemory, c.Backend)
	assert.NotEmpty(t, c.DataDir)
	assert.True(t, c.RememberLogin)
	assert.False(t, c.RememberSecret)
	assert.Equal(t, "warn", c.LogLevel)
	assert.Equal(t, 30*time.Second, c.RequestTimeout)
}

func TestLoadConfig_UsesDefaultsWithoutArgs(t *testing.T) {
	cfg, err := LoadConfig(nil)
	require.NoError(t, err)
	require.NotNil(t, cfg, "LoadConfig must not return nil")
	assert.Equal(t, models.LoginTypeMemory, cfg.Backend)
}

func TestLoadConfig_RejectsUnknownBackend(t *testing.T) {
	_, err := LoadConfig([]string{"-b", "ftp"})
	assert.Error(t, err)
}

func TestLoginForm(t *testing.T) {
	c := Config{Backend: models.LoginTypeWebDAV, Login: models.LoginForm{LoginType: "stale", ServerURL: "https://dav.example"}}
	form := c.LoginForm()
	assert.Equal(t, models.LoginTypeWebDAV, form.LoginType)
	assert.Equal(t, "https://dav.example", form.ServerURL)
}
