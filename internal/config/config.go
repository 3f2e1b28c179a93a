// v0
// internal/config/config.go
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config captures the runtime settings of the recovery service. Values come
// from defaults, an optional properties file and the environment, in that
// order of precedence.
type Config struct {
	// ListenAddress defines the TCP address used by the HTTP server.
	ListenAddress string
	// LogFilePath is the file mirrored by the structured logger.
	LogFilePath      string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	ShutdownTimeout  time.Duration
	// PropertiesPath records the path used to load property values.
	PropertiesPath string
	// DatasetPath points to a YAML loss table; empty selects the builtin one.
	DatasetPath string
	// SessionTTL expires idle dashboard sessions.
	SessionTTL   time.Duration
	SessionSweep time.Duration
	// AllowedOrigins feeds the CORS middleware.
	AllowedOrigins []string
	// ExportPublishEnabled turns on the Kafka export announcements.
	ExportPublishEnabled bool
	KafkaBrokers         []string
	ExportTopic          string
	BreakerMaxFailures   int
	BreakerReset         time.Duration
}

const (
	envPrefix = "RECOVERY_"

	defaultListenAddress  = ":8053"
	defaultLogFile        = "logs/recovery.log"
	defaultReadTimeout    = 5 * time.Second
	defaultWriteTimeout   = 10 * time.Second
	defaultShutdown       = 5 * time.Second
	defaultPropsPath      = "recovery.properties"
	defaultSessionTTL     = 30 * time.Minute
	defaultSessionSweep   = time.Minute
	defaultAllowedOrigins = "*"
	defaultKafkaBrokers   = "kafka:9092"
	defaultExportTopic    = "recovery.exports"
	defaultMaxFailures    = 5
	defaultBreakerReset   = 30 * time.Second
)

// propertyKeys lists every recognised key. Each one can also be set through
// the environment as RECOVERY_<KEY>.
var propertyKeys = []string{
	"listen_address",
	"log_path",
	"http_read_timeout_ms",
	"http_write_timeout_ms",
	"shutdown_timeout_ms",
	"dataset_path",
	"session_ttl_ms",
	"session_sweep_ms",
	"allowed_origins",
	"export_publish_enabled",
	"kafka_brokers",
	"export_topic",
	"breaker_max_failures",
	"breaker_reset_ms",
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		ListenAddress:      defaultListenAddress,
		LogFilePath:        filepath.Clean(defaultLogFile),
		HTTPReadTimeout:    defaultReadTimeout,
		HTTPWriteTimeout:   defaultWriteTimeout,
		ShutdownTimeout:    defaultShutdown,
		SessionTTL:         defaultSessionTTL,
		SessionSweep:       defaultSessionSweep,
		AllowedOrigins:     splitAndTrim(defaultAllowedOrigins),
		KafkaBrokers:       splitAndTrim(defaultKafkaBrokers),
		ExportTopic:        defaultExportTopic,
		BreakerMaxFailures: defaultMaxFailures,
		BreakerReset:       defaultBreakerReset,
	}
}

// Load resolves configuration by layering defaults, an optional properties
// file, and finally environment variables. The properties file location can
// be overridden with RECOVERY_PROPERTIES_PATH; a missing file is not an error.
func Load() (Config, error) {
	cfg := Default()

	propsPath := strings.TrimSpace(os.Getenv(envPrefix + "PROPERTIES_PATH"))
	if propsPath == "" {
		propsPath = defaultPropsPath
	}
	cfg.PropertiesPath = propsPath

	if err := applyProperties(&cfg, propsPath); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyProperties(cfg *Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "#") || strings.HasPrefix(raw, ";") {
			continue
		}
		parts := strings.SplitN(raw, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid properties entry on line %d", line)
		}
		key := strings.TrimSpace(parts[0])
		if err := setProperty(cfg, key, strings.TrimSpace(parts[1])); err != nil {
			return fmt.Errorf("property %s: %w", key, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read properties: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	for _, key := range propertyKeys {
		name := envPrefix + strings.ToUpper(key)
		v, ok := lookupEnvTrimmed(name)
		if !ok && key == "kafka_brokers" {
			name = "KAFKA_BROKERS"
			v, ok = lookupEnvTrimmed(name)
		}
		if !ok {
			continue
		}
		if err := setProperty(cfg, key, v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func setProperty(cfg *Config, key, value string) error {
	switch key {
	case "listen_address":
		if value == "" {
			return errors.New("listen_address cannot be empty")
		}
		cfg.ListenAddress = value
	case "log_path":
		if value == "" {
			return errors.New("log_path cannot be empty")
		}
		cfg.LogFilePath = filepath.Clean(value)
	case "http_read_timeout_ms":
		return setMillis(&cfg.HTTPReadTimeout, value)
	case "http_write_timeout_ms":
		return setMillis(&cfg.HTTPWriteTimeout, value)
	case "shutdown_timeout_ms":
		return setMillis(&cfg.ShutdownTimeout, value)
	case "dataset_path":
		cfg.DatasetPath = value
	case "session_ttl_ms":
		return setMillis(&cfg.SessionTTL, value)
	case "session_sweep_ms":
		return setMillis(&cfg.SessionSweep, value)
	case "allowed_origins":
		origins := splitAndTrim(value)
		if len(origins) == 0 {
			return errors.New("allowed_origins cannot be empty")
		}
		cfg.AllowedOrigins = origins
	case "export_publish_enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		cfg.ExportPublishEnabled = b
	case "kafka_brokers":
		brokers := splitAndTrim(value)
		if len(brokers) == 0 {
			return errors.New("kafka_brokers cannot be empty")
		}
		cfg.KafkaBrokers = brokers
	case "export_topic":
		if value == "" {
			return errors.New("export_topic cannot be empty")
		}
		cfg.ExportTopic = value
	case "breaker_max_failures":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		if n <= 0 {
			return errors.New("breaker_max_failures must be positive")
		}
		cfg.BreakerMaxFailures = n
	case "breaker_reset_ms":
		return setMillis(&cfg.BreakerReset, value)
	default:
		// unknown keys are ignored
	}
	return nil
}

func setMillis(dst *time.Duration, value string) error {
	d, err := parsePositiveMillis(value)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}

func lookupEnvTrimmed(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func splitAndTrim(raw string) []string {
	fields := strings.Split(raw, ",")
	out := make([]string, 0, len(fields))
	for _, field := range fields {
		if trimmed := strings.TrimSpace(field); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parsePositiveMillis(v string) (time.Duration, error) {
	if v == "" {
		return 0, errors.New("value cannot be empty")
	}
	ms, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid integer: %w", err)
	}
	if ms <= 0 {
		return 0, errors.New("value must be greater than zero")
	}
	return time.Duration(ms) * time.Millisecond, nil
}
