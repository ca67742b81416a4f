// Package ui provides the terminal client for taskboard.
package ui

import (
	"context"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nibzard/taskboard/internal/task"
	"github.com/nibzard/taskboard/internal/view"
)

// TaskAPI is the task surface the terminal client drives. Both the HTTP
// client and the local service implement it.
type TaskAPI interface {
	List(ctx context.Context) ([]task.Task, error)
	Create(ctx context.Context, draft task.Draft) (task.Task, error)
	Update(ctx context.Context, id string, patch task.Patch) (task.Task, error)
	Delete(ctx context.Context, id string) error
}

// TUIOption configures the TUI behavior.
type TUIOption func(*tuiConfig)

type tuiConfig struct {
	sort   view.SortMode
	source string
}

// WithSort sets the initial sort mode.
func WithSort(mode view.SortMode) TUIOption {
	return func(c *tuiConfig) {
		if mode != "" {
			c.sort = mode
		}
	}
}

// WithSource sets the label shown in the footer, such as the server URL.
func WithSource(source string) TUIOption {
	return func(c *tuiConfig) {
		c.source = source
	}
}

// RunTUI starts the interactive board against api.
func RunTUI(ctx context.Context, api TaskAPI, opts ...TUIOption) error {
	if !IsTTY(os.Stdout) {
		return fmt.Errorf("tui requires a TTY")
	}
	model := newModel(ctx, api, opts...)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	return err
}

// IsTTY returns true if w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
