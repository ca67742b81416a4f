package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

var errEmptyTasksFile = errors.New("tasks_file must not be empty")

// resolveTasksFile turns the configured tasks_file into an absolute path.
// $VARS and a leading ~ are expanded; relative paths are taken from workDir.
func resolveTasksFile(raw, workDir string) (string, error) {
	p := os.ExpandEnv(strings.TrimSpace(raw))
	if p == "" {
		return "", errEmptyTasksFile
	}

	if p == "~" || strings.HasPrefix(p, "~/") || strings.HasPrefix(p, `~`+string(filepath.Separator)) {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, p[1:])
		}
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(workDir, p)
	}
	return filepath.Clean(p), nil
}
