package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment overrides, e.g. GEARGUARD_DATABASE_TYPE.
const EnvPrefix = "GEARGUARD"

var (
	settingsInstance *Settings
	settingsMu       sync.RWMutex
)

// Setting returns the loaded settings, or nil before Load has succeeded.
func Setting() *Settings {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return settingsInstance
}

// SetSettings replaces the global settings. Used by Load and tests.
func SetSettings(s *Settings) {
	settingsMu.Lock()
	defer settingsMu.Unlock()
	settingsInstance = s
}

// Load reads configuration from configPath (or the default search path when empty),
// applies environment overrides, validates, and stores the result globally.
func Load(configPath string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".gearguard"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// An explicit path must exist; the default search path is optional.
		if configPath != "" || !asConfigNotFound(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings, viper.DecodeHook(DurationDecodeHook())); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := Validate(settings); err != nil {
		return nil, err
	}

	SetSettings(settings)
	return settings, nil
}

func asConfigNotFound(err error, target *viper.ConfigFileNotFoundError) bool {
	nf, ok := err.(viper.ConfigFileNotFoundError) //nolint:errorlint // viper returns this by value, unwrapped
	if ok {
		*target = nf
	}
	return ok
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct-tag constraints on settings.
func Validate(s *Settings) error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Defaults returns settings populated only with default values.
func Defaults() *Settings {
	v := viper.New()
	setDefaults(v)
	s := &Settings{}
	// Decoding static defaults cannot fail.
	_ = v.Unmarshal(s, viper.DecodeHook(DurationDecodeHook()))
	return s
}

// WriteDefaultConfig writes the default settings as YAML to path.
func WriteDefaultConfig(path string) error {
	data, err := yaml.Marshal(Defaults())
	if err != nil {
		return fmt.Errorf("failed to encode default config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("main.name", "gearguard")
	v.SetDefault("main.log.level", "info")
	v.SetDefault("main.log.format", "text")
	v.SetDefault("main.log.file", "")
	v.SetDefault("main.log.max_size_mb", 50)
	v.SetDefault("main.log.max_backups", 5)
	v.SetDefault("main.log.max_age_days", 30)
	v.SetDefault("main.log.compress", true)

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.path", "gearguard.db")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")
	v.SetDefault("database.debug", false)

	v.SetDefault("webserver.enabled", true)
	v.SetDefault("webserver.listen", ":8080")
	v.SetDefault("webserver.ingest_rate_limit", 50.0)
	v.SetDefault("webserver.ingest_burst", 100)
	v.SetDefault("webserver.shutdown_timeout", "10s")
	v.SetDefault("webserver.debug", false)

	v.SetDefault("cbm.cooldown", "0s")
	v.SetDefault("cbm.log_retention", "0s")
	v.SetDefault("cbm.seed_defaults", true)
	v.SetDefault("cbm.write_timeout", "3s")

	v.SetDefault("simulator.enabled", false)
	v.SetDefault("simulator.interval", (2 * time.Second).String())
	v.SetDefault("simulator.step", 5.0)
	v.SetDefault("simulator.concurrency", 4)

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", "gearguard")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.topic_prefix", "gearguard/telemetry")
	v.SetDefault("mqtt.qos", 1)
	v.SetDefault("mqtt.timeout", "10s")

	v.SetDefault("influx.enabled", false)
	v.SetDefault("influx.url", "http://localhost:8086")
	v.SetDefault("influx.token", "")
	v.SetDefault("influx.org", "gearguard")
	v.SetDefault("influx.bucket", "telemetry")
	v.SetDefault("influx.measurement", "machine_telemetry")

	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.subject_prefix", "cbm")

	v.SetDefault("notify.enabled", false)
	v.SetDefault("notify.urls", []string{})
	v.SetDefault("notify.min_priority", "Low")
	v.SetDefault("notify.timeout", "10s")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "production")
	v.SetDefault("sentry.sample_rate", 1.0)
}
