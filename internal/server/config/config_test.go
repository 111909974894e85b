package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, ":8080", c.EndpointAddr)
	assert.Equal(t, DriverSQLite, c.DatabaseDriver)
	assert.Equal(t, "password-xl.db", c.DatabaseDSN)
	assert.Equal(t, "password-xl", c.SecretKey)
	assert.Equal(t, 7*24*time.Hour, c.TokenValidityDuration)
	assert.Equal(t, int64(16<<20), c.MaxBlobSize)
	assert.Equal(t, int64(10<<20), c.MaxImageSize)
	assert.Equal(t, []string{"*"}, c.AllowedOrigins)
	assert.NoError(t, c.Validate())
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	c, err := LoadConfig(nil)
	require.NoError(t, err)
	require.NotNil(t, c, "LoadConfig must not return nil")

	assert.Equal(t, ":8080", c.EndpointAddr)
	assert.Equal(t, DriverSQLite, c.DatabaseDriver)
	assert.Equal(t, 7*24*time.Hour, c.TokenValidityDuration)
}

func TestLoadConfig_Validates(t *testing.T) {
	_, err := LoadConfig([]string{"-D", "mysql"})
	assert.Error(t, err)

	_, err = LoadConfig([]string{"-u", "alice"})
	assert.Error(t, err, "user without hash")

	_, err = LoadConfig([]string{"-t", "0"})
	assert.Error(t, err)

	c, err := LoadConfig([]string{"-u", "alice:$2a$10$abc", "-D", "pgx"})
	require.NoError(t, err)
	assert.Equal(t, []string{"alice:$2a$10$abc"}, c.Users)
	assert.Equal(t, DriverPostgres, c.DatabaseDriver)
}
