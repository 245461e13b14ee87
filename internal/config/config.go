package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yigit/eventhub/internal/app/fanout"
)

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port string `yaml:"port" env:"SERVER_PORT"`
		Mode string `yaml:"mode" env:"SERVER_MODE"`
	} `yaml:"server"`

	Database struct {
		Host            string `yaml:"host" env:"DB_HOST"`
		Port            string `yaml:"port" env:"DB_PORT"`
		User            string `yaml:"user" env:"DB_USER"`
		Password        string `yaml:"password" env:"DB_PASSWORD"`
		DBName          string `yaml:"dbname" env:"DB_NAME"`
		SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE"`
		MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
		MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
	} `yaml:"database"`

	JWT struct {
		Secret                string `yaml:"secret" env:"JWT_SECRET"`
		AccessTokenExpiration string `yaml:"access_token_expiration" env:"JWT_ACCESS_TOKEN_EXPIRATION"`
		Issuer                string `yaml:"issuer" env:"JWT_ISSUER"`
	} `yaml:"jwt"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`

	Redis struct {
		Addr        string `yaml:"addr" env:"REDIS_ADDR"`
		Password    string `yaml:"password" env:"REDIS_PASSWORD"`
		DB          int    `yaml:"db" env:"REDIS_DB"`
		UnreadTTL   string `yaml:"unread_ttl" env:"REDIS_UNREAD_TTL"`
		FeedChannel string `yaml:"feed_channel" env:"REDIS_FEED_CHANNEL"`
	} `yaml:"redis"`

	Notifications struct {
		SignificantFields []string `yaml:"significant_fields" env:"NOTIFY_SIGNIFICANT_FIELDS"`
		BatchLimit        int      `yaml:"batch_limit" env:"NOTIFY_BATCH_LIMIT"`
		LinkPrefix        string   `yaml:"link_prefix" env:"NOTIFY_LINK_PREFIX"`
		ReminderWindow    string   `yaml:"reminder_window" env:"NOTIFY_REMINDER_WINDOW"`
		ReminderSchedule  string   `yaml:"reminder_schedule" env:"NOTIFY_REMINDER_SCHEDULE"`
		Retention         string   `yaml:"retention" env:"NOTIFY_RETENTION"`
		RetentionSchedule string   `yaml:"retention_schedule" env:"NOTIFY_RETENTION_SCHEDULE"`
	} `yaml:"notifications"`

	Worker struct {
		PollInterval string `yaml:"poll_interval" env:"WORKER_POLL_INTERVAL"`
		ClaimBatch   int    `yaml:"claim_batch" env:"WORKER_CLAIM_BATCH"`
		LeaseTimeout string `yaml:"lease_timeout" env:"WORKER_LEASE_TIMEOUT"`
	} `yaml:"worker"`

	Tracing struct {
		ServiceName string  `yaml:"service_name" env:"TRACING_SERVICE_NAME"`
		SampleRatio float64 `yaml:"sample_ratio" env:"TRACING_SAMPLE_RATIO"`
		Exporter    string  `yaml:"exporter" env:"TRACING_EXPORTER"`
	} `yaml:"tracing"`

	// Seed creates the first administrator of an institution on startup when AdminEmail is set
	Seed struct {
		AdminEmail    string `yaml:"admin_email" env:"SEED_ADMIN_EMAIL"`
		AdminPassword string `yaml:"admin_password" env:"SEED_ADMIN_PASSWORD"`
		AdminName     string `yaml:"admin_name" env:"SEED_ADMIN_NAME"`
		Institution   string `yaml:"institution" env:"SEED_INSTITUTION"`
	} `yaml:"seed"`
}

// Span exporters selectable through tracing.exporter
const (
	TracingExporterNone   = "none"
	TracingExporterStdout = "stdout"
)

// LoadConfig loads configuration from a file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}
	setDefaults(config)

	// A missing file is not an error; defaults and env still apply
	if _, err := os.Stat(configPath); err == nil {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := applyEnv(config, os.LookupEnv); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	config.Server.Port = "8080"
	config.Server.Mode = "development"

	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "eventhub"
	config.Database.SSLMode = "disable"
	config.Database.MaxIdleConns = 5
	config.Database.MaxOpenConns = 20
	config.Database.ConnMaxLifetime = "1h"

	config.JWT.AccessTokenExpiration = "1h"
	config.JWT.Issuer = "eventhub"

	config.Logging.Level = "info"
	config.Logging.Format = "json"

	config.Redis.UnreadTTL = "10m"
	config.Redis.FeedChannel = "notifications.created"

	config.Notifications.SignificantFields = []string{"title", "scheduled_at", "location"}
	config.Notifications.BatchLimit = 500
	config.Notifications.LinkPrefix = "/events"
	config.Notifications.ReminderWindow = "24h"
	config.Notifications.ReminderSchedule = "0 8 * * *"
	config.Notifications.Retention = "2160h"
	config.Notifications.RetentionSchedule = "30 3 * * *"

	config.Worker.PollInterval = "1s"
	config.Worker.ClaimBatch = 20
	config.Worker.LeaseTimeout = "2m"

	config.Tracing.ServiceName = "eventhub"
	config.Tracing.SampleRatio = 1
	config.Tracing.Exporter = TracingExporterNone

	config.Seed.AdminName = "System Administrator"
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	if config.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	durations := map[string]string{
		"jwt.access_token_expiration":   config.JWT.AccessTokenExpiration,
		"database.conn_max_lifetime":    config.Database.ConnMaxLifetime,
		"redis.unread_ttl":              config.Redis.UnreadTTL,
		"notifications.reminder_window": config.Notifications.ReminderWindow,
		"notifications.retention":       config.Notifications.Retention,
		"worker.poll_interval":          config.Worker.PollInterval,
		"worker.lease_timeout":          config.Worker.LeaseTimeout,
	}
	for name, value := range durations {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s format: %w", name, err)
		}
	}

	// Each row binds 8 parameters and Postgres caps a statement at 65535
	if config.Notifications.BatchLimit <= 0 || config.Notifications.BatchLimit > fanout.DefaultBatchLimit {
		return fmt.Errorf("notifications.batch_limit must be within [1, %d]", fanout.DefaultBatchLimit)
	}

	policy, err := fanout.NewPolicy(config.Notifications.SignificantFields)
	if err != nil {
		return fmt.Errorf("notifications.significant_fields: %w", err)
	}
	fields := policy.Fields()
	config.Notifications.SignificantFields = make([]string, len(fields))
	for i, field := range fields {
		config.Notifications.SignificantFields[i] = string(field)
	}

	if config.Worker.ClaimBatch <= 0 {
		return fmt.Errorf("worker.claim_batch must be positive")
	}

	if config.Seed.AdminEmail != "" && (config.Seed.AdminPassword == "" || config.Seed.Institution == "") {
		return fmt.Errorf("seed.admin_password and seed.institution are required with seed.admin_email")
	}

	if config.Tracing.SampleRatio < 0 || config.Tracing.SampleRatio > 1 {
		return fmt.Errorf("tracing.sample_ratio must be within [0, 1]")
	}

	config.Tracing.Exporter = strings.ToLower(strings.TrimSpace(config.Tracing.Exporter))
	switch config.Tracing.Exporter {
	case TracingExporterNone, TracingExporterStdout:
	default:
		return fmt.Errorf("tracing.exporter must be %q or %q", TracingExporterNone, TracingExporterStdout)
	}

	return nil
}

// GetPostgresConnectionString returns postgres connection string
func (c *Config) GetPostgresConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		sslMode,
	)
}

// RedisEnabled reports whether a Redis address is configured
func (c *Config) RedisEnabled() bool {
	return strings.TrimSpace(c.Redis.Addr) != ""
}

// Duration parses a duration setting. Settings are checked by validateConfig,
// so an unparsable value only reaches here through a hand-built Config and yields 0.
func Duration(value string) time.Duration {
	d, _ := time.ParseDuration(value)
	return d
}
