// Package store persists tasks and publishes the live task list.
//
// Three backends implement Store: SQLite (the default), PostgreSQL and a
// JSON task file. All of them share a Notifier so that every write made
// through a store re-emits the full collection to each open Tasks stream.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

// Driver names accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverJSON     = "json"
)

var (
	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("store closed")
	// ErrUnknownDriver is returned by Open for an unrecognized driver name.
	ErrUnknownDriver = errors.New("unknown store driver")
	// ErrBlankTask is returned by Insert and Update for empty or
	// whitespace-only task text.
	ErrBlankTask = errors.New("task text is blank")
)

// checkEntity rejects entities no backend may store.
func checkEntity(e TaskEntity) error {
	if strings.TrimSpace(e.Task) == "" {
		return ErrBlankTask
	}
	return nil
}

// TaskEntity is the persisted form of a task.
type TaskEntity struct {
	ID       int64
	Task     string
	Selected bool
}

// Snapshot is one emission of a Tasks stream.
type Snapshot struct {
	Tasks []TaskEntity
	Err   error
}

// Store is a persistent, observable task collection.
type Store interface {
	// Tasks streams the full collection, first immediately and then after
	// every change. The channel closes when ctx is done, after an error
	// snapshot, or when the store is closed.
	Tasks(ctx context.Context) <-chan Snapshot
	// Insert stores e and assigns e.ID. Blank text fails with ErrBlankTask.
	Insert(ctx context.Context, e *TaskEntity) error
	// Update rewrites the row with e.ID. A missing row is not an error.
	Update(ctx context.Context, e TaskEntity) error
	// Delete removes the row with e.ID. A missing row is not an error.
	Delete(ctx context.Context, e TaskEntity) error
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Driver      string
	DBPath      string
	JSONPath    string
	PostgresDSN string
	// Watch enables re-emission on external edits where the backend supports it.
	Watch  bool
	Logger *log.Logger
}

// Open opens the backend named by opts.Driver.
func Open(ctx context.Context, opts Options) (Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "", DriverSQLite:
		logger.Debug("opening store", "driver", DriverSQLite, "path", opts.DBPath)
		return OpenSQLite(opts.DBPath)
	case DriverPostgres:
		logger.Debug("opening store", "driver", DriverPostgres)
		return OpenPostgres(ctx, opts.PostgresDSN)
	case DriverJSON:
		logger.Debug("opening store", "driver", DriverJSON, "path", opts.JSONPath, "watch", opts.Watch)
		return OpenJSON(opts.JSONPath, JSONOptions{Watch: opts.Watch, Logger: logger})
	default:
		return nil, fmt.Errorf("%w: %q (want sqlite, postgres or json)", ErrUnknownDriver, opts.Driver)
	}
}

// expandHome resolves a leading ~ and makes sure the parent directory exists.
func expandHome(path string) (string, error) {
	if path == "" {
		return "", errors.New("empty path")
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, path[1:])
	}
	path, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}
	return path, nil
}
