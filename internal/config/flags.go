package config

import (
	"flag"
)

// parseFlags defines the shared configuration flags on fs, parses args and
// applies only the flags that were explicitly set. Callers may register
// command-specific flags on fs before calling Load; positional arguments
// remain available through fs.Args().
func parseFlags(cfg *Config, fs *flag.FlagSet, args []string, sources map[string]ConfigSource) error {
	if fs == nil {
		fs = flag.NewFlagSet("taskboard", flag.ContinueOnError)
	}

	var (
		tasksFile      = cfg.TasksFile
		validateOnLoad = cfg.ValidateOnLoad
		lockTimeout    = cfg.LockTimeoutSeconds
		listenAddr     = cfg.ListenAddr
		shutdown       = cfg.ShutdownTimeoutSeconds
		defaultSort    = cfg.DefaultSort
		serverURL      = cfg.ServerURL
		logLevel       = cfg.LogLevel
		logFormat      = cfg.LogFormat
		logTimestamps  = cfg.LogTimestamps
		logCaller      = cfg.LogCaller
	)

	// Storage
	fs.StringVar(&tasksFile, "file", tasksFile, "Path to the tasks JSON file")
	fs.BoolVar(&validateOnLoad, "validate", validateOnLoad, "Validate the tasks file against the schema on every load")
	fs.IntVar(&lockTimeout, "lock-timeout", lockTimeout, "Seconds to wait for the tasks file lock")

	// Server
	fs.StringVar(&listenAddr, "addr", listenAddr, "HTTP listen address")
	fs.IntVar(&shutdown, "shutdown-timeout", shutdown, "Seconds to wait for in-flight requests on shutdown")
	fs.StringVar(&defaultSort, "sort", defaultSort, "Default sort mode (priority, date)")
	fs.StringVar(&serverURL, "server", serverURL, "Base URL of a running taskboard server")

	// Logging
	fs.StringVar(&logLevel, "log-level", logLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&logFormat, "log-format", logFormat, "Log format (text, json, logfmt)")
	fs.BoolVar(&logTimestamps, "log-timestamps", logTimestamps, "Show timestamps in logs")
	fs.BoolVar(&logCaller, "log-caller", logCaller, "Show caller location in logs")

	if err := fs.Parse(args); err != nil {
		return err
	}

	// Map flag names to source field names
	flagToSource := map[string]string{
		"file":             "tasks_file",
		"validate":         "validate_on_load",
		"lock-timeout":     "lock_timeout_seconds",
		"addr":             "listen_addr",
		"shutdown-timeout": "shutdown_timeout_seconds",
		"sort":             "default_sort",
		"server":           "server_url",
		"log-level":        "log_level",
		"log-format":       "log_format",
		"log-timestamps":   "log_timestamps",
		"log-caller":       "log_caller",
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		set[f.Name] = true
		if field, ok := flagToSource[f.Name]; ok && sources != nil {
			sources[field] = SourceFlag
		}
	})

	if set["file"] {
		cfg.TasksFile = tasksFile
	}
	if set["validate"] {
		cfg.ValidateOnLoad = validateOnLoad
	}
	if set["lock-timeout"] {
		cfg.LockTimeoutSeconds = lockTimeout
	}
	if set["addr"] {
		cfg.ListenAddr = listenAddr
	}
	if set["shutdown-timeout"] {
		cfg.ShutdownTimeoutSeconds = shutdown
	}
	if set["sort"] {
		cfg.DefaultSort = defaultSort
	}
	if set["server"] {
		cfg.ServerURL = serverURL
	}
	if set["log-level"] {
		cfg.LogLevel = logLevel
	}
	if set["log-format"] {
		cfg.LogFormat = logFormat
	}
	if set["log-timestamps"] {
		cfg.LogTimestamps = logTimestamps
	}
	if set["log-caller"] {
		cfg.LogCaller = logCaller
	}

	return nil
}
