package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/nibzard/taskboard/internal/task"
)

const (
	lockSuffix     = ".lock"
	lockRetryDelay = 25 * time.Millisecond
)

// FileOption configures a FileStore.
type FileOption func(*FileStore)

// WithSchemaValidation validates the file against the task schema on
// every load.
func WithSchemaValidation(enabled bool) FileOption {
	return func(s *FileStore) {
		s.validate = enabled
	}
}

// WithLockTimeout bounds how long Lock and RLock wait. Zero waits until
// the context is done.
func WithLockTimeout(d time.Duration) FileOption {
	return func(s *FileStore) {
		s.lockTimeout = d
	}
}

// FileStore keeps the collection in one indented JSON array file.
type FileStore struct {
	path        string
	validate    bool
	lockTimeout time.Duration
}

// NewFileStore returns a store backed by the file at path. The file is
// not touched until the first load or save.
func NewFileStore(path string, opts ...FileOption) *FileStore {
	s := &FileStore{path: path}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// LoadAll reads and decodes the file. A missing file is an empty
// collection; a file that exists but cannot be read or parsed is an error.
func (s *FileStore) LoadAll(ctx context.Context) ([]task.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []task.Task{}, nil
		}
		return nil, fmt.Errorf("read tasks file: %w", err)
	}

	if s.validate {
		if result := ValidateBytes(data); !result.Valid {
			return nil, fmt.Errorf("tasks file %s: %w", s.path, result.Err())
		}
	}

	return Decode(data)
}

// Decode parses a JSON array of tasks. Empty input is an empty collection.
func Decode(data []byte) ([]task.Task, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []task.Task{}, nil
	}
	var tasks []task.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("parse tasks file: %w", err)
	}
	if tasks == nil {
		tasks = []task.Task{}
	}
	return tasks, nil
}

// SaveAll writes tasks with 2-space indentation and a trailing newline.
// The file is replaced by rename, so readers see either the old or the
// new collection.
func (s *FileStore) SaveAll(ctx context.Context, tasks []task.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tasks == nil {
		tasks = []task.Task{}
	}

	data, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal tasks: %w", err)
	}
	data = append(data, '\n')

	return writeFileAtomic(s.path, data, 0o644)
}

// Lock takes an exclusive advisory lock on a sidecar lock file.
func (s *FileStore) Lock(ctx context.Context) (func() error, error) {
	return s.lock(ctx, false)
}

// RLock takes a shared advisory lock on a sidecar lock file.
func (s *FileStore) RLock(ctx context.Context) (func() error, error) {
	return s.lock(ctx, true)
}

func (s *FileStore) lock(ctx context.Context, shared bool) (func() error, error) {
	if err := ensureDir(s.path); err != nil {
		return nil, err
	}
	if s.lockTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.lockTimeout)
		defer cancel()
	}

	// A fresh Flock per call gets its own descriptor, so concurrent
	// holders in this process conflict the same way separate processes do.
	fl := flock.New(s.path + lockSuffix)
	var (
		locked bool
		err    error
	)
	if shared {
		locked, err = fl.TryRLockContext(ctx, lockRetryDelay)
	} else {
		locked, err = fl.TryLockContext(ctx, lockRetryDelay)
	}
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", fl.Path(), err)
	}
	if !locked {
		return nil, fmt.Errorf("lock %s: not acquired", fl.Path())
	}
	return fl.Unlock, nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write tasks file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync tasks file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close tasks file: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		cleanup()
		return fmt.Errorf("chmod tasks file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("replace tasks file: %w", err)
	}
	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	return nil
}
