// Package viewstate turns the live task list into screen state and turns
// user intents into scheduled use case calls.
package viewstate

import (
	"time"

	"github.com/nibzard/todo-go/internal/task"
)

// DefaultLinger is how long the task subscription outlives its last observer.
const DefaultLinger = 5 * time.Second

// State is the screen state. It is one of Loading, Success or Error.
type State interface {
	isState()
}

// Loading is the state before the first task list arrives.
type Loading struct{}

// Success carries the current task list.
type Success struct {
	Tasks []task.Model
}

// Error carries the failure that ended the task subscription.
type Error struct {
	Err error
}

func (Loading) isState() {}
func (Success) isState() {}
func (Error) isState()   {}

// Dialog is the add-task dialog state.
type Dialog struct {
	Open  bool
	Draft string
}
