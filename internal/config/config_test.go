package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 24*time.Hour, cfg.JWT.ExpiresIn)
	assert.Equal(t, "@every 15m", cfg.SlotRotationSpec)
	assert.Equal(t, 7, cfg.TrendingWindowDays)
	assert.Equal(t, 10, cfg.PremiereReminderMin)
	assert.Equal(t, 500, cfg.ChatMaxLength)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("JWT_EXPIRES_IN", "2h")
	t.Setenv("TRENDING_WINDOW_DAYS", "3")
	t.Setenv("SLOT_ROTATION_SPEC", "@hourly")

	cfg := Load()
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 2*time.Hour, cfg.JWT.ExpiresIn)
	assert.Equal(t, 3, cfg.TrendingWindowDays)
	assert.Equal(t, "@hourly", cfg.SlotRotationSpec)
}

func TestLoadIgnoresMalformedEnv(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	t.Setenv("JWT_EXPIRES_IN", "soon")

	cfg := Load()
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 24*time.Hour, cfg.JWT.ExpiresIn)
}

func TestServerAddress(t *testing.T) {
	s := ServerConfig{Host: "", Port: 8080}
	assert.Equal(t, ":8080", s.Address())

	s.Host = "127.0.0.1"
	assert.Equal(t, "127.0.0.1:8080", s.Address())
}
