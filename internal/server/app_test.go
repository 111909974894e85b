package server

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/peng0105/password-xl/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewApp_SQLiteFile(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DatabaseDSN = filepath.Join(t.TempDir(), "server.db")
	cfg.EndpointAddr = "127.0.0.1:0"

	app, err := NewApp(ctx, cfg, nil)
	require.NoError(t, err)

	runCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()
	assert.NoError(t, app.Run(runCtx), "cancelled context stops the server cleanly")
}

func TestNewApp_Errors(t *testing.T) {
	ctx := context.Background()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DatabaseDriver = "mysql"
	_, err := NewApp(ctx, cfg, nil)
	assert.Error(t, err)

	cfg.LoadDefaults()
	cfg.DatabaseDSN = filepath.Join(t.TempDir(), "server.db")
	cfg.Users = []string{"alice:not-a-hash"}
	_, err = NewApp(ctx, cfg, nil)
	assert.Error(t, err)
}
