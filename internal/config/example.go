package config

// ExampleConfig returns an example configuration showing all available options.
func ExampleConfig() string {
	return `# taskboard configuration file
# Values can be overridden by TASKBOARD_* environment variables or CLI flags

# Tasks file (relative paths resolve against the working directory,
# supports ~ expansion and %VAR% on Windows)
tasks_file = "tasks-db.json"

# Validate the tasks file against the bundled JSON schema on every load
validate_on_load = false

# Seconds to wait for the tasks file lock
lock_timeout_seconds = 10

# HTTP listen address for "taskboard serve"
listen_addr = "127.0.0.1:3000"

# Seconds to wait for in-flight requests on shutdown
shutdown_timeout_seconds = 5

# Default board ordering: priority or date
default_sort = "priority"

# Server used by "taskboard tui"
server_url = "http://127.0.0.1:3000"

# Logging
log_level = "info"      # debug, info, warn, error
log_format = "text"     # text, json, logfmt
log_timestamps = false
log_caller = false
`
}
