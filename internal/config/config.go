package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Env       string          `mapstructure:"env"`
	Server    ServerConfig    `mapstructure:"server"`
	Session   SessionConfig   `mapstructure:"session"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	SendGrid  SendGridConfig  `mapstructure:"sendgrid"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port         string `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout_seconds"`
	WriteTimeout int    `mapstructure:"write_timeout_seconds"`
	IdleTimeout  int    `mapstructure:"idle_timeout_seconds"`
	FrontendURL  string `mapstructure:"frontend_url"`
	StaticDir    string `mapstructure:"static_dir"`
}

type SessionConfig struct {
	Secret      string `mapstructure:"secret"`
	CookieName  string `mapstructure:"cookie_name"`
	MaxAgeHours int    `mapstructure:"max_age_hours"`
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            string `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"name"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time_seconds"`
}

// NotifyConfig selects how password reset links leave the service.
// Driver is one of "log", "nats", "kafka" or "sendgrid".
type NotifyConfig struct {
	Driver   string `mapstructure:"driver"`
	ResetURL string `mapstructure:"reset_url"`
}

type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type SendGridConfig struct {
	APIKey    string `mapstructure:"api_key"`
	FromEmail string `mapstructure:"from_email"`
	FromName  string `mapstructure:"from_name"`
}

type TelemetryConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// IsProduction reports whether cookies must be Secure and the bundled frontend served.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

const defaultSessionSecret = "your-secret-key-change-in-production"

func Load() (*Config, error) {
	// Get environment from ENV, default to "local"
	env := os.Getenv("ENV")
	if env == "" {
		env = "local"
	}

	v := viper.New()
	setDefaults(v, env)

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	v.SetConfigType("yaml")
	v.AddConfigPath("/configs")      // Kubernetes mount
	v.AddConfigPath("./configs")     // repo root
	v.AddConfigPath("../../configs") // IDE from cmd/server

	// Config file is optional - continue with ENV variables
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		slog.Debug("no config file found, using defaults and ENV", "env", env)
	}

	// Environment variables take precedence over the config file
	v.AutomaticEnv()
	for key, envVar := range envBindings {
		if err := v.BindEnv(key, envVar); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", envVar, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.IsProduction() && (config.Session.Secret == "" || config.Session.Secret == defaultSessionSecret) {
		return nil, errors.New("SESSION_SECRET must be set to a non-default value in production")
	}

	if config.Notify.ResetURL == "" {
		config.Notify.ResetURL = strings.TrimRight(config.Server.FrontendURL, "/") + "/reset-password"
	}

	return &config, nil
}

var envBindings = map[string]string{
	"env":                     "ENV",
	"server.port":             "PORT",
	"server.frontend_url":     "FRONTEND_URL",
	"server.static_dir":       "STATIC_DIR",
	"session.secret":          "SESSION_SECRET",
	"session.max_age_hours":   "SESSION_MAX_AGE_HOURS",
	"database.host":           "DB_HOST",
	"database.port":           "DB_PORT",
	"database.user":           "DB_USER",
	"database.password":       "DB_PASSWORD",
	"database.name":           "DB_NAME",
	"database.ssl_mode":       "DB_SSLMODE",
	"database.max_open_conns": "DB_MAX_OPEN_CONNS",
	"database.max_idle_conns": "DB_MAX_IDLE_CONNS",
	"notify.driver":           "NOTIFY_DRIVER",
	"notify.reset_url":        "RESET_URL",
	"nats.url":                "NATS_URL",
	"nats.subject":            "NATS_SUBJECT",
	"kafka.brokers":           "KAFKA_BROKERS",
	"kafka.topic":             "KAFKA_TOPIC",
	"sendgrid.api_key":        "SENDGRID_API_KEY",
	"sendgrid.from_email":     "SENDGRID_FROM_EMAIL",
	"sendgrid.from_name":      "SENDGRID_FROM_NAME",
	"telemetry.enabled":       "OTEL_ENABLED",
	"telemetry.endpoint":      "OTEL_EXPORTER_OTLP_ENDPOINT",
}

func setDefaults(v *viper.Viper, env string) {
	v.SetDefault("env", env)

	v.SetDefault("server.port", "3000")
	v.SetDefault("server.read_timeout_seconds", 15)
	v.SetDefault("server.write_timeout_seconds", 30)
	v.SetDefault("server.idle_timeout_seconds", 60)
	v.SetDefault("server.frontend_url", "http://localhost:3001")
	v.SetDefault("server.static_dir", "frontend/build")

	v.SetDefault("session.secret", defaultSessionSecret)
	v.SetDefault("session.cookie_name", "student_profile_session")
	v.SetDefault("session.max_age_hours", 24)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "app_user")
	v.SetDefault("database.password", "app_password")
	v.SetDefault("database.name", "student_profile_system")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime_seconds", 300)
	v.SetDefault("database.conn_max_idle_time_seconds", 60)

	v.SetDefault("notify.driver", "log")
	v.SetDefault("notify.reset_url", "")

	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.subject", "auth.password_reset")

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "auth.password-reset")

	v.SetDefault("sendgrid.api_key", "")
	v.SetDefault("sendgrid.from_email", "noreply@localhost")
	v.SetDefault("sendgrid.from_name", "Student Profile")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "localhost:4317")
}
