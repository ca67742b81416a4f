package config

import "time"

// ConfigSource represents where a configuration value came from.
type ConfigSource string

const (
	SourceDefault  ConfigSource = "default"
	SourceUserFile ConfigSource = "user file"
	SourceProjFile ConfigSource = "project file"
	SourceEnv      ConfigSource = "environment"
	SourceFlag     ConfigSource = "flag"
)

// ConfigWithSources holds configuration along with source information for each field.
type ConfigWithSources struct {
	Config  *Config
	Sources map[string]ConfigSource
	// Files lists the config files that were read, in load order.
	Files []string
}

// Default values.
const (
	DefaultTasksFile              = "tasks-db.json"
	DefaultListenAddr             = "127.0.0.1:3000"
	DefaultServerURL              = "http://127.0.0.1:3000"
	DefaultSort                   = "priority"
	DefaultLockTimeoutSeconds     = 10
	DefaultShutdownTimeoutSeconds = 5
	DefaultLogLevel               = "info"
	DefaultLogFormat              = "text"
)

// Config holds the full configuration for taskboard.
type Config struct {
	// Storage
	TasksFile          string `toml:"tasks_file"`
	ValidateOnLoad     bool   `toml:"validate_on_load"`
	LockTimeoutSeconds int    `toml:"lock_timeout_seconds"`

	// HTTP server
	ListenAddr             string `toml:"listen_addr"`
	ShutdownTimeoutSeconds int    `toml:"shutdown_timeout_seconds"`

	// Presentation
	DefaultSort string `toml:"default_sort"`

	// Terminal client target
	ServerURL string `toml:"server_url"`

	// Logging configuration
	LogLevel      string `toml:"log_level"`
	LogFormat     string `toml:"log_format"`
	LogTimestamps bool   `toml:"log_timestamps"`
	LogCaller     bool   `toml:"log_caller"`

	// Working directory (computed)
	WorkDir string `toml:"-"`
}

// LockTimeout returns the store lock timeout as a duration.
func (c *Config) LockTimeout() time.Duration {
	return time.Duration(c.LockTimeoutSeconds) * time.Second
}

// ShutdownTimeout returns the graceful shutdown timeout as a duration.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// configFields returns the list of configurable field names for source tracking.
func configFields() []string {
	return []string{
		"tasks_file",
		"validate_on_load",
		"lock_timeout_seconds",
		"listen_addr",
		"shutdown_timeout_seconds",
		"default_sort",
		"server_url",
		"log_level",
		"log_format",
		"log_timestamps",
		"log_caller",
	}
}
