package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validBase() *Config {
	return &Config{
		Env:            "development",
		Port:           "8468",
		JWTSecret:      "secure-secret-at-least-32-chars-long",
		DBPassword:     "secure-password",
		DBSSLMode:      "disable",
		RedisURL:       "redis://localhost:6379",
		OutboxPollSecs: 5,
		OutboxAttempts: 5,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
	}{
		{"valid development config", func(c *Config) {}, false},
		{"missing port", func(c *Config) { c.Port = "" }, true},
		{"missing jwt secret", func(c *Config) { c.JWTSecret = "" }, true},
		{"zero outbox poll interval", func(c *Config) { c.OutboxPollSecs = 0 }, true},
		{"zero outbox attempts", func(c *Config) { c.OutboxAttempts = 0 }, true},
		{"short jwt secret allowed in development", func(c *Config) { c.JWTSecret = "short" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validBase()
			tt.mutate(c)
			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateProduction(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
	}{
		{"hardened production config", func(c *Config) {}, false},
		{"default jwt secret rejected", func(c *Config) { c.JWTSecret = "your-secret-key-change-in-production" }, true},
		{"short jwt secret rejected", func(c *Config) { c.JWTSecret = "short" }, true},
		{"default db password rejected", func(c *Config) { c.DBPassword = "password" }, true},
		{"empty db password rejected", func(c *Config) { c.DBPassword = "" }, true},
		{"missing smtp host rejected", func(c *Config) { c.SMTPHost = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validBase()
			c.Env = "production"
			c.SMTPHost = "smtp.internal"
			c.DBSSLMode = "require"
			tt.mutate(c)
			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
