// Package conf loads and exposes GearGuard settings.
package conf

import "time"

// Settings is the root configuration structure.
type Settings struct {
	Main      MainSettings      `mapstructure:"main" yaml:"main"`
	Database  DatabaseSettings  `mapstructure:"database" yaml:"database"`
	WebServer WebServerSettings `mapstructure:"webserver" yaml:"webserver"`
	CBM       CBMSettings       `mapstructure:"cbm" yaml:"cbm"`
	Simulator SimulatorSettings `mapstructure:"simulator" yaml:"simulator"`
	MQTT      MQTTSettings      `mapstructure:"mqtt" yaml:"mqtt"`
	Influx    InfluxSettings    `mapstructure:"influx" yaml:"influx"`
	NATS      NATSSettings      `mapstructure:"nats" yaml:"nats"`
	Notify    NotifySettings    `mapstructure:"notify" yaml:"notify"`
	Metrics   MetricsSettings   `mapstructure:"metrics" yaml:"metrics"`
	Sentry    SentrySettings    `mapstructure:"sentry" yaml:"sentry"`
}

// MainSettings holds process-wide options.
type MainSettings struct {
	Name string      `mapstructure:"name" yaml:"name" validate:"required"`
	Log  LogSettings `mapstructure:"log" yaml:"log"`
}

// LogSettings configures the logger.
type LogSettings struct {
	Level      string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn warning error"`
	Format     string `mapstructure:"format" yaml:"format" validate:"oneof=text json"`
	File       string `mapstructure:"file" yaml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days" validate:"gte=0"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// DatabaseSettings selects and tunes the datastore.
type DatabaseSettings struct {
	Type            string   `mapstructure:"type" yaml:"type" validate:"oneof=sqlite mysql"`
	Path            string   `mapstructure:"path" yaml:"path" validate:"required_if=Type sqlite"`
	DSN             string   `mapstructure:"dsn" yaml:"dsn" validate:"required_if=Type mysql"`
	MaxOpenConns    int      `mapstructure:"max_open_conns" yaml:"max_open_conns" validate:"gte=0"`
	MaxIdleConns    int      `mapstructure:"max_idle_conns" yaml:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime Duration `mapstructure:"conn_max_lifetime" yaml:"conn_max_lifetime"`
	Debug           bool     `mapstructure:"debug" yaml:"debug"`
}

// WebServerSettings configures the HTTP API.
type WebServerSettings struct {
	Enabled         bool     `mapstructure:"enabled" yaml:"enabled"`
	Listen          string   `mapstructure:"listen" yaml:"listen" validate:"required_if=Enabled true"`
	IngestRateLimit float64  `mapstructure:"ingest_rate_limit" yaml:"ingest_rate_limit" validate:"gte=0"`
	IngestBurst     int      `mapstructure:"ingest_burst" yaml:"ingest_burst" validate:"gte=0"`
	ShutdownTimeout Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	Debug           bool     `mapstructure:"debug" yaml:"debug"`
}

// CBMSettings configures the trigger engine.
type CBMSettings struct {
	// Cooldown suppresses repeat tickets from the same trigger within the window. 0 disables it.
	Cooldown Duration `mapstructure:"cooldown" yaml:"cooldown"`
	// LogRetention deletes telemetry log rows older than this. 0 keeps everything.
	LogRetention Duration `mapstructure:"log_retention" yaml:"log_retention"`
	SeedDefaults bool     `mapstructure:"seed_defaults" yaml:"seed_defaults"`
	WriteTimeout Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
}

// SimulatorSettings configures the random-walk telemetry driver.
type SimulatorSettings struct {
	Enabled     bool     `mapstructure:"enabled" yaml:"enabled"`
	Interval    Duration `mapstructure:"interval" yaml:"interval"`
	Step        float64  `mapstructure:"step" yaml:"step" validate:"gt=0"`
	Concurrency int      `mapstructure:"concurrency" yaml:"concurrency" validate:"gte=1"`
}

// MQTTSettings configures the sensor bridge.
type MQTTSettings struct {
	Enabled     bool     `mapstructure:"enabled" yaml:"enabled"`
	Broker      string   `mapstructure:"broker" yaml:"broker" validate:"required_if=Enabled true"`
	ClientID    string   `mapstructure:"client_id" yaml:"client_id"`
	Username    string   `mapstructure:"username" yaml:"username"`
	Password    string   `mapstructure:"password" yaml:"password"`
	TopicPrefix string   `mapstructure:"topic_prefix" yaml:"topic_prefix" validate:"required_if=Enabled true"`
	QoS         byte     `mapstructure:"qos" yaml:"qos" validate:"lte=2"`
	Timeout     Duration `mapstructure:"timeout" yaml:"timeout"`
}

// InfluxSettings configures the time-series mirror.
type InfluxSettings struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled"`
	URL         string `mapstructure:"url" yaml:"url" validate:"required_if=Enabled true"`
	Token       string `mapstructure:"token" yaml:"token"`
	Org         string `mapstructure:"org" yaml:"org" validate:"required_if=Enabled true"`
	Bucket      string `mapstructure:"bucket" yaml:"bucket" validate:"required_if=Enabled true"`
	Measurement string `mapstructure:"measurement" yaml:"measurement"`
}

// NATSSettings configures outcome event publishing.
type NATSSettings struct {
	Enabled       bool   `mapstructure:"enabled" yaml:"enabled"`
	URL           string `mapstructure:"url" yaml:"url" validate:"required_if=Enabled true"`
	SubjectPrefix string `mapstructure:"subject_prefix" yaml:"subject_prefix"`
}

// NotifySettings configures ticket push notifications.
type NotifySettings struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// URLs are shoutrrr service URLs, e.g. ntfy://ntfy.sh/plant-maintenance.
	URLs        []string `mapstructure:"urls" yaml:"urls" validate:"required_if=Enabled true,dive,url"`
	MinPriority string   `mapstructure:"min_priority" yaml:"min_priority" validate:"omitempty,oneof=Low Medium High Critical"`
	Timeout     Duration `mapstructure:"timeout" yaml:"timeout"`
}

// MetricsSettings configures the Prometheus endpoint.
type MetricsSettings struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// SentrySettings configures error reporting.
type SentrySettings struct {
	Enabled     bool    `mapstructure:"enabled" yaml:"enabled"`
	DSN         string  `mapstructure:"dsn" yaml:"dsn" validate:"required_if=Enabled true"`
	Environment string  `mapstructure:"environment" yaml:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate" yaml:"sample_rate" validate:"gte=0,lte=1"`
}

// IngestWriteTimeout returns the per-reading persistence deadline.
func (s *CBMSettings) IngestWriteTimeout() time.Duration {
	if s.WriteTimeout <= 0 {
		return 3 * time.Second
	}
	return s.WriteTimeout.Std()
}
