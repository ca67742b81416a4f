package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// EnvPrefix prefixes every environment variable read by taskboard.
const EnvPrefix = "TASKBOARD_"

// loadFromEnv overrides config from TASKBOARD_* environment variables
// and records the environment as the source of each value it sets.
func loadFromEnv(cfg *Config, sources map[string]ConfigSource) error {
	setString := func(key, field string, dst *string) {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			*dst = v
			sources[field] = SourceEnv
		}
	}
	setBool := func(key, field string, dst *bool) {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			*dst = boolFromString(v)
			sources[field] = SourceEnv
		}
	}
	setInt := func(key, field string, dst *int) error {
		v := os.Getenv(EnvPrefix + key)
		if v == "" {
			return nil
		}
		i, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		*dst = i
		sources[field] = SourceEnv
		return nil
	}

	setString("TASKS_FILE", "tasks_file", &cfg.TasksFile)
	setBool("VALIDATE_ON_LOAD", "validate_on_load", &cfg.ValidateOnLoad)
	if err := setInt("LOCK_TIMEOUT", "lock_timeout_seconds", &cfg.LockTimeoutSeconds); err != nil {
		return err
	}
	setString("LISTEN_ADDR", "listen_addr", &cfg.ListenAddr)
	if err := setInt("SHUTDOWN_TIMEOUT", "shutdown_timeout_seconds", &cfg.ShutdownTimeoutSeconds); err != nil {
		return err
	}
	setString("DEFAULT_SORT", "default_sort", &cfg.DefaultSort)
	setString("SERVER_URL", "server_url", &cfg.ServerURL)

	// Logging configuration
	setString("LOG_LEVEL", "log_level", &cfg.LogLevel)
	setString("LOG_FORMAT", "log_format", &cfg.LogFormat)
	setBool("LOG_TIMESTAMPS", "log_timestamps", &cfg.LogTimestamps)
	setBool("LOG_CALLER", "log_caller", &cfg.LogCaller)

	// PORT is honored for hosting platforms that only hand out a port.
	if v := os.Getenv("PORT"); v != "" && sources["listen_addr"] == SourceDefault {
		cfg.ListenAddr = ":" + strings.TrimPrefix(strings.TrimSpace(v), ":")
		sources["listen_addr"] = SourceEnv
	}
	return nil
}

func boolFromString(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
