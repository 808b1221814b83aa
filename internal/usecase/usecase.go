// Package usecase holds the four task operations the view state depends on.
// Each is a function type so it can be replaced independently in tests.
package usecase

import (
	"context"

	"github.com/nibzard/todo-go/internal/task"
)

// Repository is the task data source the use cases run against.
type Repository interface {
	Tasks(ctx context.Context) <-chan task.Snapshot
	Add(ctx context.Context, t task.Model) error
	Update(ctx context.Context, t task.Model) error
	Delete(ctx context.Context, t task.Model) error
}

// GetTasks streams the live task list.
type GetTasks func(ctx context.Context) <-chan task.Snapshot

// AddTask persists a new task.
type AddTask func(ctx context.Context, t task.Model) error

// UpdateTask persists a changed task.
type UpdateTask func(ctx context.Context, t task.Model) error

// DeleteTask removes a task.
type DeleteTask func(ctx context.Context, t task.Model) error

// NewGetTasks binds GetTasks to repo.
func NewGetTasks(repo Repository) GetTasks {
	return repo.Tasks
}

// NewAddTask binds AddTask to repo.
func NewAddTask(repo Repository) AddTask {
	return repo.Add
}

// NewUpdateTask binds UpdateTask to repo.
func NewUpdateTask(repo Repository) UpdateTask {
	return repo.Update
}

// NewDeleteTask binds DeleteTask to repo.
func NewDeleteTask(repo Repository) DeleteTask {
	return repo.Delete
}

// Set bundles the use cases for wiring.
type Set struct {
	Get    GetTasks
	Add    AddTask
	Update UpdateTask
	Delete DeleteTask
}

// New builds all four use cases over repo.
func New(repo Repository) Set {
	return Set{
		Get:    NewGetTasks(repo),
		Add:    NewAddTask(repo),
		Update: NewUpdateTask(repo),
		Delete: NewDeleteTask(repo),
	}
}
