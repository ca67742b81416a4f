// Package view holds the presentation rules shared by the web pages and
// the terminal client: partitioning, sort modes and badge colors.
//
// Everything here is a pure function of its inputs.
package view

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nibzard/taskboard/internal/task"
)

// SortMode selects how pending tasks are ordered.
type SortMode string

const (
	SortPriority SortMode = "priority"
	SortDate     SortMode = "date"
)

// DefaultSort is used when no mode is selected.
const DefaultSort = SortPriority

// ParseSortMode parses a sort mode. An empty string yields DefaultSort.
func ParseSortMode(s string) (SortMode, error) {
	switch SortMode(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return DefaultSort, nil
	case SortPriority:
		return SortPriority, nil
	case SortDate, "due", "duedate":
		return SortDate, nil
	}
	return "", fmt.Errorf("invalid sort mode %q, must be priority or date", s)
}

// Next returns the other sort mode.
func (m SortMode) Next() SortMode {
	if m == SortDate {
		return SortPriority
	}
	return SortDate
}

// Partition splits tasks into pending and completed, keeping input order.
func Partition(tasks []task.Task) (pending, completed []task.Task) {
	pending = make([]task.Task, 0, len(tasks))
	completed = make([]task.Task, 0)
	for _, t := range tasks {
		if t.IsCompleted {
			completed = append(completed, t)
		} else {
			pending = append(pending, t)
		}
	}
	return pending, completed
}

// Sort returns a sorted copy of tasks. Priority mode orders by descending
// weight; date mode orders by ascending due date with undated tasks last.
// Ties keep their input order.
func Sort(tasks []task.Task, mode SortMode) []task.Task {
	out := make([]task.Task, len(tasks))
	copy(out, tasks)

	switch mode {
	case SortDate:
		sort.SliceStable(out, func(i, j int) bool {
			di, okI := out[i].Due()
			dj, okJ := out[j].Due()
			switch {
			case !okI:
				return false
			case !okJ:
				return true
			}
			return di.Before(dj)
		})
	default:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Priority.Weight() > out[j].Priority.Weight()
		})
	}
	return out
}

// Board is the derived state rendered by a presentation layer.
type Board struct {
	Mode      SortMode
	Pending   []task.Task
	Completed []task.Task
}

// NewBoard partitions tasks and sorts the pending side by mode.
// Completed tasks are not sorted.
func NewBoard(tasks []task.Task, mode SortMode) Board {
	pending, completed := Partition(tasks)
	return Board{
		Mode:      mode,
		Pending:   Sort(pending, mode),
		Completed: completed,
	}
}

// Badge is the semantic color of a priority badge.
type Badge string

const (
	BadgeDanger    Badge = "danger"
	BadgeWarning   Badge = "warning"
	BadgeSuccess   Badge = "success"
	BadgeSecondary Badge = "secondary"
)

// BadgeFor maps a priority to its badge. Completed tasks are neutral.
func BadgeFor(p task.Priority, completed bool) Badge {
	if completed {
		return BadgeSecondary
	}
	switch p {
	case task.PriorityHigh:
		return BadgeDanger
	case task.PriorityMedium:
		return BadgeWarning
	default:
		return BadgeSuccess
	}
}

// FormatDue renders a due date for display, or "" when there is none.
func FormatDue(t task.Task) string {
	d, ok := t.Due()
	if !ok {
		return ""
	}
	return d.Format("Jan 2, 2006")
}
