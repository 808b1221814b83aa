// Package repository maps between stored task entities and task models.
package repository

import (
	"context"

	"github.com/nibzard/todo-go/internal/store"
	"github.com/nibzard/todo-go/internal/task"
)

// Repository is a thin mapping layer over a store.
type Repository struct {
	store store.Store
}

// New creates a Repository backed by s.
func New(s store.Store) *Repository {
	return &Repository{store: s}
}

// Tasks streams the task list as models. Store errors are forwarded and
// end the stream.
func (r *Repository) Tasks(ctx context.Context) <-chan task.Snapshot {
	in := r.store.Tasks(ctx)
	out := make(chan task.Snapshot)
	go func() {
		defer close(out)
		for snap := range in {
			mapped := task.Snapshot{Err: snap.Err}
			if snap.Err == nil {
				mapped.Tasks = toModels(snap.Tasks)
			}
			select {
			case out <- mapped:
			case <-ctx.Done():
				// keep draining so the store side can exit
				for range in {
				}
				return
			}
		}
	}()
	return out
}

// Add stores a new task. The assigned id shows up on the Tasks stream.
func (r *Repository) Add(ctx context.Context, t task.Model) error {
	e := toEntity(t)
	return r.store.Insert(ctx, &e)
}

// Update rewrites the stored task with t.ID.
func (r *Repository) Update(ctx context.Context, t task.Model) error {
	return r.store.Update(ctx, toEntity(t))
}

// Delete removes the stored task with t.ID.
func (r *Repository) Delete(ctx context.Context, t task.Model) error {
	return r.store.Delete(ctx, toEntity(t))
}

func toEntity(t task.Model) store.TaskEntity {
	return store.TaskEntity{ID: t.ID, Task: t.Task, Selected: t.Selected}
}

func toModels(entities []store.TaskEntity) []task.Model {
	tasks := make([]task.Model, 0, len(entities))
	for _, e := range entities {
		tasks = append(tasks, task.Model{ID: e.ID, Task: e.Task, Selected: e.Selected})
	}
	return tasks
}
