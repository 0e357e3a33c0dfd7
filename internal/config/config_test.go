package config

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, DriverMySQL, cfg.DBDriver)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
	assert.Equal(t, 10*time.Second, cfg.WikipediaTimeout)
	assert.Equal(t, "/articles/view/", cfg.ArticleLinkBase)
	assert.Equal(t, []string{"http://localhost:4000"}, cfg.CORSOrigins)
	assert.Empty(t, cfg.RedisAddr)
	assert.False(t, cfg.ResetDB)
	assert.GreaterOrEqual(t, cfg.HashConcurrency, 1)
}

func TestLoad_MissingSecretFailsFast(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load(nil)

	assert.Nil(t, cfg)
	assert.True(t, errors.Is(err, ErrMissingSecret))
}

func TestLoad_ShortSecretRejected(t *testing.T) {
	t.Setenv("JWT_SECRET", "change-me")

	_, err := Load(nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 32 bytes")
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("DB_DRIVER", DriverPostgres)

	cfg, err := Load([]string{"--port", "9100", "--db-driver", "sqlite", "--dsn", "file.db", "--token-ttl", "30m"})
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.ServerPort)
	assert.Equal(t, DriverSQLite, cfg.DBDriver)
	assert.Equal(t, "file.db", cfg.DSN)
	assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
		want string
	}{
		{"unknown driver", "DB_DRIVER", "oracle", "unsupported DB_DRIVER"},
		{"bad duration", "TOKEN_TTL", "soon", "TOKEN_TTL"},
		{"bad int", "REDIS_DB", "zero", "REDIS_DB"},
		{"bad bool", "RESET_DB", "maybe", "RESET_DB"},
		{"bad endpoint", "WIKIPEDIA_ENDPOINT", "wikipedia.org", "not a URL"},
		{"no hashing slots", "HASH_CONCURRENCY", "0", "HASH_CONCURRENCY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", testSecret)
			t.Setenv(tt.key, tt.val)

			_, err := Load(nil)

			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.want), err.Error())
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a, ,b "))
	assert.Nil(t, splitList(""))
}
