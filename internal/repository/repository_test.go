package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nibzard/todo-go/internal/store"
	"github.com/nibzard/todo-go/internal/task"
)

// fakeStore records writes and replays a scripted stream.
type fakeStore struct {
	snapshots []store.Snapshot
	inserted  []store.TaskEntity
	updated   []store.TaskEntity
	deleted   []store.TaskEntity
	nextID    int64
}

func (f *fakeStore) Tasks(ctx context.Context) <-chan store.Snapshot {
	ch := make(chan store.Snapshot)
	go func() {
		defer close(ch)
		for _, s := range f.snapshots {
			select {
			case ch <- s:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

func (f *fakeStore) Insert(ctx context.Context, e *store.TaskEntity) error {
	f.nextID++
	e.ID = f.nextID
	f.inserted = append(f.inserted, *e)
	return nil
}

func (f *fakeStore) Update(ctx context.Context, e store.TaskEntity) error {
	f.updated = append(f.updated, e)
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, e store.TaskEntity) error {
	f.deleted = append(f.deleted, e)
	return nil
}

func (f *fakeStore) Close() error { return nil }

func collect(t *testing.T, ch <-chan task.Snapshot) []task.Snapshot {
	t.Helper()
	var out []task.Snapshot
	timeout := time.After(5 * time.Second)
	for {
		select {
		case s, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, s)
		case <-timeout:
			t.Fatal("timed out collecting snapshots")
		}
	}
}

func TestTasksMapsEntities(t *testing.T) {
	fs := &fakeStore{snapshots: []store.Snapshot{
		{Tasks: []store.TaskEntity{}},
		{Tasks: []store.TaskEntity{{ID: 1, Task: "Buy milk", Selected: true}}},
	}}
	got := collect(t, New(fs).Tasks(context.Background()))

	if len(got) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(got))
	}
	if len(got[0].Tasks) != 0 {
		t.Errorf("first snapshot: got %+v", got[0].Tasks)
	}
	want := task.Model{ID: 1, Task: "Buy milk", Selected: true}
	if len(got[1].Tasks) != 1 || got[1].Tasks[0] != want {
		t.Errorf("second snapshot: got %+v, want [%+v]", got[1].Tasks, want)
	}
}

func TestTasksForwardsErrors(t *testing.T) {
	boom := errors.New("disk on fire")
	fs := &fakeStore{snapshots: []store.Snapshot{{Err: boom}}}
	got := collect(t, New(fs).Tasks(context.Background()))

	if len(got) != 1 || !errors.Is(got[0].Err, boom) {
		t.Fatalf("expected forwarded error, got %+v", got)
	}
}

func TestWritesMapModels(t *testing.T) {
	fs := &fakeStore{}
	r := New(fs)
	ctx := context.Background()

	if err := r.Add(ctx, task.Model{Task: "a"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := r.Update(ctx, task.Model{ID: 1, Task: "a", Selected: true}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := r.Delete(ctx, task.Model{ID: 1, Task: "a", Selected: true}); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if len(fs.inserted) != 1 || fs.inserted[0] != (store.TaskEntity{ID: 1, Task: "a"}) {
		t.Errorf("inserted: %+v", fs.inserted)
	}
	if len(fs.updated) != 1 || !fs.updated[0].Selected {
		t.Errorf("updated: %+v", fs.updated)
	}
	if len(fs.deleted) != 1 || fs.deleted[0].ID != 1 {
		t.Errorf("deleted: %+v", fs.deleted)
	}
}
