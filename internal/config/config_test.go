package config_test

import (
	"testing"

	"github.com/sahajkedia/student-profile-challenge/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENV", "test")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.Env)
	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, "http://localhost:3001", cfg.Server.FrontendURL)
	assert.Equal(t, 24, cfg.Session.MaxAgeHours)
	assert.Equal(t, 10, cfg.Database.MaxOpenConns)
	assert.Equal(t, "log", cfg.Notify.Driver)
	assert.Equal(t, "http://localhost:3001/reset-password", cfg.Notify.ResetURL)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("PORT", "8080")
	t.Setenv("FRONTEND_URL", "https://app.example.com/")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_USER", "svc")
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("NOTIFY_DRIVER", "nats")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "svc", cfg.Database.User)
	assert.Equal(t, "s3cret", cfg.Session.Secret)
	assert.Equal(t, "nats", cfg.Notify.Driver)
	assert.Equal(t, "https://app.example.com/reset-password", cfg.Notify.ResetURL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestConfig_IsProduction(t *testing.T) {
	tests := []struct {
		env  string
		want bool
	}{
		{"production", true},
		{"prod", true},
		{"local", false},
		{"dev", false},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := &config.Config{Env: tt.env}
			assert.Equal(t, tt.want, cfg.IsProduction())
		})
	}
}

func TestLoad_ProductionSessionSecret(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		wantErr bool
	}{
		{"default secret rejected", "", true},
		{"placeholder rejected", "your-secret-key-change-in-production", true},
		{"custom secret accepted", "a-long-random-production-secret", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ENV", "production")
			t.Setenv("SESSION_SECRET", tt.secret)

			cfg, err := config.Load()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "SESSION_SECRET")
				assert.Nil(t, cfg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.secret, cfg.Session.Secret)
			assert.True(t, cfg.IsProduction())
		})
	}
}

func TestLoad_DefaultSecretAllowedOutsideProduction(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("SESSION_SECRET", "")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "your-secret-key-change-in-production", cfg.Session.Secret)
}
