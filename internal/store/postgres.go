package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps tasks in a PostgreSQL table.
type PostgresStore struct {
	pool     *pgxpool.Pool
	ownsPool bool
	notifier *Notifier
}

// OpenPostgres connects to dsn and ensures the table exists.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("open postgres store: empty DSN")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres store: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("open postgres store: %w", err)
	}

	s := NewPostgresStore(pool)
	s.ownsPool = true
	if err := s.EnsureTable(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate postgres store: %w", err)
	}
	return s, nil
}

// NewPostgresStore wraps an existing pool. Close does not close the pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, notifier: NewNotifier()}
}

// EnsureTable creates the todo_tasks table if it doesn't exist.
func (s *PostgresStore) EnsureTable(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS todo_tasks (
			id       BIGSERIAL PRIMARY KEY,
			task     TEXT NOT NULL,
			selected BOOLEAN NOT NULL DEFAULT FALSE
		)`)
	return err
}

// Tasks implements Store.
func (s *PostgresStore) Tasks(ctx context.Context) <-chan Snapshot {
	return watch(ctx, s.notifier, s.list, nil)
}

func (s *PostgresStore) list(ctx context.Context) ([]TaskEntity, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, task, selected FROM todo_tasks ORDER BY id`)
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
func (s *PostgresStore) Insert(ctx context.Context, e *TaskEntity) error {
	if s.notifier.Closed() {
		return ErrClosed
	}
	if err := checkEntity(*e); err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO todo_tasks (task, selected) VALUES ($1, $2) RETURNING id`,
		e.Task, e.Selected).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	s.notifier.Notify()
	return nil
}

// Update implements Store.
func (s *PostgresStore) Update(ctx context.Context, e TaskEntity) error {
	if s.notifier.Closed() {
		return ErrClosed
	}
	if err := checkEntity(e); err != nil {
		return fmt.Errorf("update task %d: %w", e.ID, err)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE todo_tasks SET task = $1, selected = $2 WHERE id = $3`,
		e.Task, e.Selected, e.ID)
	if err != nil {
		return fmt.Errorf("update task %d: %w", e.ID, err)
	}
	if tag.RowsAffected() > 0 {
		s.notifier.Notify()
	}
	return nil
}

// Delete implements Store.
func (s *PostgresStore) Delete(ctx context.Context, e TaskEntity) error {
	if s.notifier.Closed() {
		return ErrClosed
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM todo_tasks WHERE id = $1`, e.ID)
	if err != nil {
		return fmt.Errorf("delete task %d: %w", e.ID, err)
	}
	if tag.RowsAffected() > 0 {
		s.notifier.Notify()
	}
	return nil
}

// Close closes open streams, and the pool if OpenPostgres created it.
func (s *PostgresStore) Close() error {
	if s.notifier.Closed() {
		return nil
	}
	s.notifier.Close()
	if s.ownsPool {
		s.pool.Close()
	}
	return nil
}
