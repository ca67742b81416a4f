// Package task defines the task record, its priority levels and the
// partial-update patch applied by the service.
package task

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the on-disk and wire format of a due date.
const DateLayout = "2006-01-02"

// Priority represents a task priority level.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Priorities lists the valid priorities from lowest to highest.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// legacyPriorities maps the names used by older data files.
var legacyPriorities = map[string]Priority{
	"baixa": PriorityLow,
	"media": PriorityMedium,
	"média": PriorityMedium,
	"alta":  PriorityHigh,
}

// ParsePriority normalizes s to a Priority. An empty string yields low.
func ParsePriority(s string) (Priority, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	switch key {
	case "":
		return PriorityLow, nil
	case string(PriorityLow), string(PriorityMedium), string(PriorityHigh):
		return Priority(key), nil
	}
	if p, ok := legacyPriorities[key]; ok {
		return p, nil
	}
	return "", fmt.Errorf("invalid priority %q, must be one of: low, medium, high", s)
}

// Valid reports whether p is one of the three known levels.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Weight returns the sort rank of p (high=3, medium=2, low=1).
// Unknown values rank below low.
func (p Priority) Weight() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// UnmarshalJSON accepts the canonical names and the legacy ones.
func (p *Priority) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("priority must be a string: %w", err)
	}
	parsed, err := ParsePriority(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Task is a single to-do item.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Priority    Priority  `json:"priority"`
	DueDate     string    `json:"dueDate,omitempty"`
	IsCompleted bool      `json:"isCompleted"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Due returns the parsed due date and whether the task has one.
func (t *Task) Due() (time.Time, bool) {
	if t.DueDate == "" {
		return time.Time{}, false
	}
	d, err := ParseDate(t.DueDate)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// ParseDate parses a YYYY-MM-DD date. Full RFC 3339 timestamps are also
// accepted and truncated to their date part.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if d, err := time.Parse(DateLayout, s); err == nil {
		return d, nil
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC), nil
}

// NormalizeDate returns s in DateLayout form, or "" for an empty input.
func NormalizeDate(s string) (string, error) {
	if strings.TrimSpace(s) == "" {
		return "", nil
	}
	d, err := ParseDate(s)
	if err != nil {
		return "", err
	}
	return d.Format(DateLayout), nil
}

// Draft holds caller input for a new task.
type Draft struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	DueDate     string `json:"dueDate"`
}

// Validate checks the draft and returns the normalized priority and due date.
func (d Draft) Validate() (Priority, string, error) {
	if strings.TrimSpace(d.Title) == "" {
		return "", "", &ValidationError{Field: "title", Err: ErrRequired}
	}
	p, err := ParsePriority(d.Priority)
	if err != nil {
		return "", "", &ValidationError{Field: "priority", Err: err}
	}
	due, err := NormalizeDate(d.DueDate)
	if err != nil {
		return "", "", &ValidationError{Field: "dueDate", Err: err}
	}
	return p, due, nil
}
