package config

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cast"
)

type ServerConfig struct {
	Host string
	Port int
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	URL string
}

func (d *DatabaseConfig) ConnectionString() string {
	return d.URL
}

type JWTConfig struct {
	Secret    string
	ExpiresIn time.Duration
}

type RedisConfig struct {
	Addr string
}

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Redis    RedisConfig

	// Platform settings, overridable from the settings table.
	SlotRotationSpec   string // cron spec for top-performer slot rotation
	TrendingWindowDays int    // engagement window for automated slots
	PremiereReminderMin int   // minutes before a premiere to notify followers
	ChatMaxLength      int
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: env("HOST", ""),
			Port: envInt("PORT", 8080),
		},
		Database: DatabaseConfig{
			URL: env("DATABASE_URL", "postgres://caribbeat:caribbeat@db:5432/caribbeat?sslmode=disable"),
		},
		JWT: JWTConfig{
			Secret:    env("JWT_SECRET", "change-me-in-production"),
			ExpiresIn: envDuration("JWT_EXPIRES_IN", 24*time.Hour),
		},
		Redis: RedisConfig{
			Addr: env("REDIS_ADDR", "redis:6379"),
		},
		SlotRotationSpec:    env("SLOT_ROTATION_SPEC", "@every 15m"),
		TrendingWindowDays:  envInt("TRENDING_WINDOW_DAYS", 7),
		PremiereReminderMin: envInt("PREMIERE_REMINDER_MIN", 10),
		ChatMaxLength:       envInt("CHAT_MAX_LENGTH", 500),
	}
}

// MergeFromDB overlays settings rows on top of the env config. Values are
// stored as text; cast handles whatever scalar shape older rows carry.
func (c *Config) MergeFromDB(db *sql.DB) {
	rows, err := db.Query("SELECT key, value FROM settings")
	if err != nil {
		log.Printf("config: skipping DB merge: %v", err)
		return
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			continue
		}
		switch key {
		case "slot_rotation_spec":
			c.SlotRotationSpec = value
		case "trending_window_days":
			if v, err := cast.ToIntE(value); err == nil && v > 0 {
				c.TrendingWindowDays = v
			}
		case "premiere_reminder_min":
			if v, err := cast.ToIntE(value); err == nil && v > 0 {
				c.PremiereReminderMin = v
			}
		case "chat_max_length":
			if v, err := cast.ToIntE(value); err == nil && v > 0 {
				c.ChatMaxLength = v
			}
		}
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
