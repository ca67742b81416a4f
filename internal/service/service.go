// Package service implements the task operations on top of a store.
//
// Each operation loads the full collection, transforms it in memory and,
// for mutations, saves it back. Mutations are serialized within the
// process, and across processes when the store implements store.Locker.
package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/nibzard/taskboard/internal/store"
	"github.com/nibzard/taskboard/internal/task"
)

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithIDGenerator overrides task id generation.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		s.newID = newID
	}
}

// WithLogger sets the logger used for mutation events.
func WithLogger(logger *log.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Service applies CRUD operations to the task collection.
type Service struct {
	store  store.Store
	mu     sync.RWMutex
	now    func() time.Time
	newID  func() string
	logger *log.Logger
}

// New returns a Service backed by st.
func New(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:  st,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns every task in storage order.
func (s *Service) List(ctx context.Context) ([]task.Task, error) {
	var tasks []task.Task
	err := s.withLock(ctx, false, func() error {
		var err error
		tasks, err = s.store.LoadAll(ctx)
		if err != nil {
			return fmt.Errorf("load tasks: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// Get returns the task with the given id.
func (s *Service) Get(ctx context.Context, id string) (task.Task, error) {
	if id == "" {
		return task.Task{}, &task.NotFoundError{ID: id}
	}
	tasks, err := s.List(ctx)
	if err != nil {
		return task.Task{}, err
	}
	if i := indexOf(tasks, id); i >= 0 {
		return tasks[i], nil
	}
	return task.Task{}, &task.NotFoundError{ID: id}
}

// Create validates the draft, assigns id and createdAt, and appends the
// new task to the collection.
func (s *Service) Create(ctx context.Context, draft task.Draft) (task.Task, error) {
	priority, due, err := draft.Validate()
	if err != nil {
		return task.Task{}, err
	}

	created := task.Task{
		ID:          s.newID(),
		Title:       strings.TrimSpace(draft.Title),
		Description: draft.Description,
		Priority:    priority,
		DueDate:     due,
		IsCompleted: false,
		CreatedAt:   s.now(),
	}

	err = s.withLock(ctx, true, func() error {
		tasks, err := s.store.LoadAll(ctx)
		if err != nil {
			return fmt.Errorf("load tasks: %w", err)
		}
		tasks = append(tasks, created)
		if err := s.store.SaveAll(ctx, tasks); err != nil {
			return fmt.Errorf("save tasks: %w", err)
		}
		return nil
	})
	if err != nil {
		return task.Task{}, err
	}

	s.logger.Debug("task created", "id", created.ID, "priority", created.Priority)
	return created, nil
}

// Update merges patch into the task with the given id. Fields absent from
// the patch keep their stored values. An empty id matches no task.
func (s *Service) Update(ctx context.Context, id string, patch task.Patch) (task.Task, error) {
	if id == "" {
		return task.Task{}, &task.NotFoundError{ID: id}
	}

	var updated task.Task
	err := s.withLock(ctx, true, func() error {
		tasks, err := s.store.LoadAll(ctx)
		if err != nil {
			return fmt.Errorf("load tasks: %w", err)
		}
		i := indexOf(tasks, id)
		if i < 0 {
			return &task.NotFoundError{ID: id}
		}
		if patch.IsEmpty() {
			updated = tasks[i]
			return nil
		}
		if err := patch.Apply(&tasks[i]); err != nil {
			return err
		}
		if err := s.store.SaveAll(ctx, tasks); err != nil {
			return fmt.Errorf("save tasks: %w", err)
		}
		updated = tasks[i]
		return nil
	})
	if err != nil {
		return task.Task{}, err
	}

	s.logger.Debug("task updated", "id", id)
	return updated, nil
}

// Delete removes the task with the given id.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return &task.BadRequestError{Param: "id"}
	}

	err := s.withLock(ctx, true, func() error {
		tasks, err := s.store.LoadAll(ctx)
		if err != nil {
			return fmt.Errorf("load tasks: %w", err)
		}
		i := indexOf(tasks, id)
		if i < 0 {
			return &task.NotFoundError{ID: id}
		}
		tasks = append(tasks[:i], tasks[i+1:]...)
		if err := s.store.SaveAll(ctx, tasks); err != nil {
			return fmt.Errorf("save tasks: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("task deleted", "id", id)
	return nil
}

// withLock runs fn under the process lock and, when supported, the store
// lock. Exclusive locks guard read-modify-write cycles.
func (s *Service) withLock(ctx context.Context, exclusive bool, fn func() error) error {
	if exclusive {
		s.mu.Lock()
		defer s.mu.Unlock()
	} else {
		s.mu.RLock()
		defer s.mu.RUnlock()
	}

	if locker, ok := s.store.(store.Locker); ok {
		acquire := locker.RLock
		if exclusive {
			acquire = locker.Lock
		}
		unlock, err := acquire(ctx)
		if err != nil {
			return fmt.Errorf("acquire store lock: %w", err)
		}
		defer func() {
			if err := unlock(); err != nil {
				s.logger.Warn("release store lock", "err", err)
			}
		}()
	}

	return fn()
}

func indexOf(tasks []task.Task, id string) int {
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}
