// Package store persists the task collection as a single unit.
//
// Every mutation is "read everything, modify in memory, write everything":
// a Store only knows how to load and save the whole collection. Ordering
// of the returned slice carries no meaning.
package store

import (
	"context"
	"sync"

	"github.com/nibzard/taskboard/internal/task"
)

// Store loads and saves the full task collection.
type Store interface {
	// LoadAll returns every stored task. A store that has never been
	// written returns an empty slice and no error.
	LoadAll(ctx context.Context) ([]task.Task, error)

	// SaveAll replaces the stored collection with tasks.
	SaveAll(ctx context.Context, tasks []task.Task) error
}

// Locker is implemented by stores that can guard a read-modify-write
// cycle against other processes sharing the same backing data.
type Locker interface {
	// Lock takes an exclusive lock.
	Lock(ctx context.Context) (unlock func() error, err error)
	// RLock takes a shared lock.
	RLock(ctx context.Context) (unlock func() error, err error)
}

// Memory is an in-process Store used by tests and previews.
type Memory struct {
	mu    sync.Mutex
	tasks []task.Task
	saves int
}

// NewMemory returns a Memory store seeded with tasks.
func NewMemory(tasks ...task.Task) *Memory {
	m := &Memory{}
	m.tasks = append(m.tasks, tasks...)
	return m
}

// LoadAll returns a copy of the stored tasks.
func (m *Memory) LoadAll(ctx context.Context) ([]task.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]task.Task, len(m.tasks))
	copy(out, m.tasks)
	return out, nil
}

// SaveAll replaces the stored tasks with a copy of tasks.
func (m *Memory) SaveAll(ctx context.Context, tasks []task.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = make([]task.Task, len(tasks))
	copy(m.tasks, tasks)
	m.saves++
	return nil
}

// Saves returns how many times SaveAll succeeded.
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
