package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/nibzard/todo-go/internal/taskfile"
)

// JSONOptions configures a JSONStore.
type JSONOptions struct {
	// Watch re-emits the collection when another process edits the file.
	Watch  bool
	Logger *log.Logger
}

// JSONStore keeps tasks in a task file.
// Every write loads, modifies and saves the whole file under a mutex.
type JSONStore struct {
	mu       sync.Mutex
	path     string
	notifier *Notifier
	watcher  *fsnotify.Watcher
	logger   *log.Logger
	wg       sync.WaitGroup
}

// OpenJSON opens the task file at path. A missing file is an empty list
// and is created on the first write.
func OpenJSON(path string, opts JSONOptions) (*JSONStore, error) {
	expanded, err := expandHome(path)
	if err != nil {
		return nil, fmt.Errorf("open json store: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	s := &JSONStore{path: expanded, notifier: NewNotifier(), logger: logger}

	// Fail early on an unreadable file rather than on the first stream.
	if _, err := s.load(); err != nil {
		return nil, fmt.Errorf("open json store: %w", err)
	}

	if opts.Watch {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return nil, fmt.Errorf("watch task file: %w", err)
		}
		// Watch the directory so that rename-over-write editors are seen.
		if err := watcher.Add(filepath.Dir(expanded)); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("watch task file: %w", err)
		}
		s.watcher = watcher
		s.wg.Add(1)
		go s.watchLoop()
	}
	return s, nil
}

// Path returns the task file path.
func (s *JSONStore) Path() string {
	return s.path
}

// watchLoop handles fsnotify events.
func (s *JSONStore) watchLoop() {
	defer s.wg.Done()
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != s.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				s.logger.Debug("task file changed", "path", s.path, "op", event.Op.String())
				s.notifier.Notify()
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("task file watcher error", "err", err)
		}
	}
}

// load reads the file. Callers writing back hold s.mu.
func (s *JSONStore) load() (*taskfile.File, error) {
	f, err := taskfile.Load(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return taskfile.New(), nil
	}
	return f, err
}

// save writes through a temp file so readers never see a partial file.
func (s *JSONStore) save(f *taskfile.File) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".tasks-*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := f.Encode(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// Tasks implements Store. With Watch on, a file that fails to read after
// a change is logged and skipped; editors that truncate before writing
// produce such files briefly.
func (s *JSONStore) Tasks(ctx context.Context) <-chan Snapshot {
	return watch(ctx, s.notifier, s.list, s.skipUnreadable)
}

func (s *JSONStore) skipUnreadable(err error) bool {
	if s.watcher == nil || errors.Is(err, ErrClosed) {
		return false
	}
	s.logger.Warn("task file unreadable, waiting for next change", "path", s.path, "err", err)
	return true
}

func (s *JSONStore) list(ctx context.Context) ([]TaskEntity, error) {
	s.mu.Lock()
	f, err := s.load()
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	tasks := make([]TaskEntity, 0, len(f.Tasks))
	for _, e := range f.Tasks {
		tasks = append(tasks, TaskEntity{ID: e.ID, Task: e.Task, Selected: e.Selected})
	}
	return tasks, nil
}

// modify runs fn against the current file and saves it when fn reports a
// change. A result that fails validation is not written.
func (s *JSONStore) modify(fn func(f *taskfile.File) bool) error {
	if s.notifier.Closed() {
		return ErrClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return err
	}
	if !fn(f) {
		return nil
	}
	if err := f.Validate().Err(); err != nil {
		return err
	}
	if err := s.save(f); err != nil {
		return err
	}
	s.notifier.Notify()
	return nil
}

// Insert implements Store.
func (s *JSONStore) Insert(ctx context.Context, e *TaskEntity) error {
	if s.notifier.Closed() {
		return ErrClosed
	}
	if err := checkEntity(*e); err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	var id int64
	err := s.modify(func(f *taskfile.File) bool {
		id = f.Add(e.Task, e.Selected).ID
		return true
	})
	if err != nil {
		if errors.Is(err, ErrClosed) {
			return err
		}
		return fmt.Errorf("insert task: %w", err)
	}
	e.ID = id
	return nil
}

// Update implements Store.
func (s *JSONStore) Update(ctx context.Context, e TaskEntity) error {
	if s.notifier.Closed() {
		return ErrClosed
	}
	if err := checkEntity(e); err != nil {
		return fmt.Errorf("update task %d: %w", e.ID, err)
	}
	err := s.modify(func(f *taskfile.File) bool {
		return f.Update(taskfile.Entry{ID: e.ID, Task: e.Task, Selected: e.Selected})
	})
	if err != nil && !errors.Is(err, ErrClosed) {
		return fmt.Errorf("update task %d: %w", e.ID, err)
	}
	return err
}

// Delete implements Store.
func (s *JSONStore) Delete(ctx context.Context, e TaskEntity) error {
	err := s.modify(func(f *taskfile.File) bool {
		return f.Remove(e.ID)
	})
	if err != nil && !errors.Is(err, ErrClosed) {
		return fmt.Errorf("delete task %d: %w", e.ID, err)
	}
	return err
}

// Close stops the watcher and closes open streams.
func (s *JSONStore) Close() error {
	if s.notifier.Closed() {
		return nil
	}
	s.notifier.Close()
	var err error
	if s.watcher != nil {
		err = s.watcher.Close()
		s.wg.Wait()
	}
	return err
}
