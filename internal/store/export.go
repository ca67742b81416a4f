package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/nibzard/taskboard/internal/task"
)

// Export formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatTOML = "toml"
)

// exportTask mirrors task.Task with tags for the non-JSON encoders.
type exportTask struct {
	ID          string    `yaml:"id" toml:"id"`
	Title       string    `yaml:"title" toml:"title"`
	Description string    `yaml:"description,omitempty" toml:"description,omitempty"`
	Priority    string    `yaml:"priority" toml:"priority"`
	DueDate     string    `yaml:"dueDate,omitempty" toml:"dueDate,omitempty"`
	IsCompleted bool      `yaml:"isCompleted" toml:"isCompleted"`
	CreatedAt   time.Time `yaml:"createdAt" toml:"createdAt"`
}

type exportDoc struct {
	Tasks []exportTask `yaml:"tasks" toml:"tasks"`
}

// Encode renders tasks in the given format. JSON output matches the
// on-disk layout of a FileStore.
func Encode(tasks []task.Task, format string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatJSON:
		if tasks == nil {
			tasks = []task.Task{}
		}
		data, err := json.MarshalIndent(tasks, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal JSON: %w", err)
		}
		return append(data, '\n'), nil
	case FormatYAML, "yml":
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(toExportDoc(tasks)); err != nil {
			return nil, fmt.Errorf("marshal YAML: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("marshal YAML: %w", err)
		}
		return buf.Bytes(), nil
	case FormatTOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(toExportDoc(tasks)); err != nil {
			return nil, fmt.Errorf("marshal TOML: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported format %q, must be one of: json, yaml, toml", format)
	}
}

func toExportDoc(tasks []task.Task) exportDoc {
	doc := exportDoc{Tasks: make([]exportTask, 0, len(tasks))}
	for _, t := range tasks {
		doc.Tasks = append(doc.Tasks, exportTask{
			ID:          t.ID,
			Title:       t.Title,
			Description: t.Description,
			Priority:    string(t.Priority),
			DueDate:     t.DueDate,
			IsCompleted: t.IsCompleted,
			CreatedAt:   t.CreatedAt,
		})
	}
	return doc
}
