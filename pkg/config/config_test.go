package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("test-service")
	require.NoError(t, err)

	assert.Equal(t, "test-service", cfg.Server.ServiceName)
	assert.Equal(t, 30*time.Second, cfg.Dispatch.DefaultPollTimeout())
	assert.Equal(t, 60*time.Second, cfg.Dispatch.MaxPollTimeout())
	assert.Equal(t, 256, cfg.Dispatch.BufferCapacity)
	assert.Equal(t, "DISPATCH", cfg.Broker.StreamName)
}

func TestLoadClampsPollTimeouts(t *testing.T) {
	t.Setenv("DISPATCH_POLL_TIMEOUT", "45")
	t.Setenv("DISPATCH_MAX_POLL_TIMEOUT", "10")

	cfg, err := Load("test-service")
	require.NoError(t, err)

	// ceiling never below the default
	assert.Equal(t, 45, cfg.Dispatch.DefaultPollTimeoutSec)
	assert.Equal(t, 45, cfg.Dispatch.MaxPollTimeoutSec)
}

func TestLoadRejectsNonPositiveBuffer(t *testing.T) {
	t.Setenv("DISPATCH_BUFFER_CAPACITY", "-1")

	cfg, err := Load("test-service")
	require.NoError(t, err)

	assert.Equal(t, 256, cfg.Dispatch.BufferCapacity)
}

func TestDatabaseDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "db.internal",
		Port:     "5433",
		User:     "svc",
		Password: "pw",
		DBName:   "rides",
		SSLMode:  "require",
	}
	assert.Equal(t, "postgres://svc:pw@db.internal:5433/rides?sslmode=require", cfg.DSN())
}

func TestRedisAddr(t *testing.T) {
	cfg := RedisConfig{Host: "cache.internal", Port: "6380"}
	assert.Equal(t, "cache.internal:6380", cfg.RedisAddr())
}
