// Package task defines the to-do item passed between the use cases, the
// view state controller and the views.
package task

import "strings"

// Model is a single to-do item.
type Model struct {
	ID       int64  `json:"id"`
	Task     string `json:"task"`
	Selected bool   `json:"selected"`
}

// Toggled returns a copy of the task with the completion flag inverted.
func (m Model) Toggled() Model {
	m.Selected = !m.Selected
	return m
}

// Snapshot is one emission of the live task list.
// Err is set when the list could not be read; no further snapshots follow.
type Snapshot struct {
	Tasks []Model
	Err   error
}

// IsBlank reports whether text is empty or whitespace only.
func IsBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}

// Find returns the task with the given ID, or false if none matches.
func Find(tasks []Model, id int64) (Model, bool) {
	for _, t := range tasks {
		if t.ID == id {
			return t, true
		}
	}
	return Model{}, false
}
