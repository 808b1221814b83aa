package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps tasks in a SQLite database file.
type SQLiteStore struct {
	db       *sql.DB
	path     string
	notifier *Notifier
}

// OpenSQLite opens (creating if needed) the database at path.
// Use ":memory:" for a private in-memory database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dsn := path
	if path != ":memory:" {
		expanded, err := expandHome(path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		path = expanded
		dsn = path + "?_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	// One connection serializes writes and keeps ":memory:" a single database.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, path: path, notifier: NewNotifier()}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite store: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS tasks (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			task     TEXT NOT NULL,
			selected INTEGER NOT NULL DEFAULT 0
		)`)
	return err
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Tasks implements Store.
func (s *SQLiteStore) Tasks(ctx context.Context) <-chan Snapshot {
	return watch(ctx, s.notifier, s.list, nil)
}

func (s *SQLiteStore) list(ctx context.Context) ([]TaskEntity, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, task, selected FROM tasks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []TaskEntity{}
	for rows.Next() {
		var e TaskEntity
		if err := rows.Scan(&e.ID, &e.Task, &e.Selected); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// Insert implements Store.
func (s *SQLiteStore) Insert(ctx context.Context, e *TaskEntity) error {
	if s.notifier.Closed() {
		return ErrClosed
	}
	if err := checkEntity(*e); err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO tasks (task, selected) VALUES (?, ?)`, e.Task, e.Selected)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	e.ID = id
	s.notifier.Notify()
	return nil
}

// Update implements Store.
func (s *SQLiteStore) Update(ctx context.Context, e TaskEntity) error {
	if s.notifier.Closed() {
		return ErrClosed
	}
	if err := checkEntity(e); err != nil {
		return fmt.Errorf("update task %d: %w", e.ID, err)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE tasks SET task = ?, selected = ? WHERE id = ?`, e.Task, e.Selected, e.ID)
	if err != nil {
		return fmt.Errorf("update task %d: %w", e.ID, err)
	}
	s.notifyIfAffected(res)
	return nil
}

// Delete implements Store.
func (s *SQLiteStore) Delete(ctx context.Context, e TaskEntity) error {
	if s.notifier.Closed() {
		return ErrClosed
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, e.ID)
	if err != nil {
		return fmt.Errorf("delete task %d: %w", e.ID, err)
	}
	s.notifyIfAffected(res)
	return nil
}

func (s *SQLiteStore) notifyIfAffected(res sql.Result) {
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return
	}
	s.notifier.Notify()
}

// Close closes open streams and the database.
func (s *SQLiteStore) Close() error {
	if s.notifier.Closed() {
		return nil
	}
	s.notifier.Close()
	return s.db.Close()
}
