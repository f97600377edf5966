package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Port:                "3000",
		Env:                 "development",
		JWTSecret:           "a-test-secret-that-is-long-enough-000",
		SessionTTL:          time.Hour,
		DBHost:              "localhost",
		UploadMaxFiles:      6,
		UploadMaxFileSizeMB: 5,
		UploadNaming:        "random",
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("JWT_SECRET", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "test", cfg.Env)
	assert.Equal(t, 168*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 6, cfg.UploadMaxFiles)
	assert.Equal(t, "/images/uploads", cfg.UploadURLPrefix)
	assert.Equal(t, "random", cfg.UploadNaming)
	assert.False(t, cfg.RateLimitEnabled)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("PORT", "8088")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/snap")
	t.Setenv("UPLOAD_MAX_FILES", "3")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8088", cfg.Port)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 3, cfg.UploadMaxFiles)
	assert.Equal(t, "postgres://u:p@db:5432/snap", cfg.DSN())
}

func TestDSN_BuiltFromParts(t *testing.T) {
	cfg := validConfig()
	cfg.DBPort = "5432"
	cfg.DBUser = "snap"
	cfg.DBPassword = "secret"
	cfg.DBName = "snapfeed"

	dsn := cfg.DSN()
	assert.True(t, strings.Contains(dsn, "host=localhost"))
	assert.True(t, strings.Contains(dsn, "dbname=snapfeed"))
	assert.True(t, strings.HasSuffix(dsn, "sslmode=disable"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid development", mutate: func(*Config) {}},
		{name: "missing port", mutate: func(c *Config) { c.Port = "" }, wantErr: "PORT"},
		{name: "missing secret", mutate: func(c *Config) { c.JWTSecret = "" }, wantErr: "JWT_SECRET"},
		{name: "non-positive ttl", mutate: func(c *Config) { c.SessionTTL = 0 }, wantErr: "SESSION_TTL"},
		{name: "bad naming", mutate: func(c *Config) { c.UploadNaming = "sequential" }, wantErr: "UPLOAD_NAMING"},
		{
			name: "production default secret",
			mutate: func(c *Config) {
				c.Env = "production"
				c.JWTSecret = defaultJWTSecret
			},
			wantErr: "default value",
		},
		{
			name: "production short secret",
			mutate: func(c *Config) {
				c.Env = "production"
				c.JWTSecret = "short"
			},
			wantErr: "at least 32",
		},
		{
			name: "production weak db password",
			mutate: func(c *Config) {
				c.Env = "production"
				c.DBPassword = "password"
			},
			wantErr: "DB_PASSWORD",
		},
		{
			name: "production with database url",
			mutate: func(c *Config) {
				c.Env = "production"
				c.DatabaseURL = "postgres://snap:strong@db/snap"
				c.CookieSecure = true
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
