// Package logging provides tests for loggers, run logs and tail output.
package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

// TestNewRunLogger tests creating a new run logger.
func TestNewRunLogger(t *testing.T) {
	t.Run("successful creation", func(t *testing.T) {
		logger, err := NewRunLogger(t.TempDir())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		defer logger.Close()

		if logger.RunID == "" {
			t.Error("expected RunID to be set")
		}
		if !strings.HasSuffix(logger.LogPath, logger.RunID+".log") {
			t.Errorf("unexpected LogPath %q", logger.LogPath)
		}
		if _, err := os.Stat(logger.LogPath); err != nil {
			t.Errorf("log file not created: %v", err)
		}
	})

	t.Run("empty base dir returns error", func(t *testing.T) {
		_, err := NewRunLogger("")
		if err == nil {
			t.Fatal("expected error for empty base dir, got nil")
		}
		if !strings.Contains(err.Error(), "empty") {
			t.Errorf("expected empty dir error, got %v", err)
		}
	})

	t.Run("creates log directory if missing", func(t *testing.T) {
		newLogDir := filepath.Join(t.TempDir(), "new-logs", "nested")

		logger, err := NewRunLogger(newLogDir)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		defer logger.Close()

		if _, err := os.Stat(newLogDir); err != nil {
			t.Errorf("log directory not created: %v", err)
		}
	})
}

// TestRunLoggerLogger tests that the run logger writes through charmbracelet/log.
func TestRunLoggerLogger(t *testing.T) {
	rl, err := NewRunLogger(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	opts := DefaultOptions()
	opts.Formatter = log.JSONFormatter
	opts.ReportTimestamp = false
	rl.Logger(opts).Info("task added", "id", 3)
	if err := rl.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(rl.LogPath)
	if err != nil {
		t.Fatal(err)
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, data)
	}
	if entry["msg"] != "task added" {
		t.Errorf("msg: got %v", entry["msg"])
	}
	if entry["prefix"] != "todo" {
		t.Errorf("prefix: got %v", entry["prefix"])
	}
}

func TestRunLoggerCloseNil(t *testing.T) {
	var rl *RunLogger
	if err := rl.Close(); err != nil {
		t.Errorf("Close on nil RunLogger: %v", err)
	}
}

func TestNewLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.Level = log.WarnLevel
	opts.ReportTimestamp = false
	logger := New(&buf, opts)

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line written at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("warn line missing: %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    log.Level
		wantErr bool
	}{
		{"", log.InfoLevel, false},
		{"debug", log.DebugLevel, false},
		{"INFO", log.InfoLevel, false},
		{"warn", log.WarnLevel, false},
		{"warning", log.WarnLevel, false},
		{" error ", log.ErrorLevel, false},
		{"loud", log.InfoLevel, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseFormatter(t *testing.T) {
	tests := []struct {
		in      string
		want    log.Formatter
		wantErr bool
	}{
		{"", log.TextFormatter, false},
		{"text", log.TextFormatter, false},
		{"JSON", log.JSONFormatter, false},
		{"logfmt", log.LogfmtFormatter, false},
		{"xml", log.TextFormatter, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormatter(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormatter(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormatter(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestRunID(t *testing.T) {
	id := runID()
	parts := strings.Split(id, "-")
	if len(parts) != 3 {
		t.Fatalf("expected <date>-<time>-<pid>, got %q", id)
	}
	if len(parts[0]) != 8 || len(parts[1]) != 6 {
		t.Errorf("unexpected timestamp layout in %q", id)
	}
}

// TestFindLatestLog tests finding the newest run log.
func TestFindLatestLog(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		got, err := FindLatestLog(filepath.Join(t.TempDir(), "nope"))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got != "" {
			t.Errorf("expected empty path, got %q", got)
		}
	})

	t.Run("picks newest and ignores other files", func(t *testing.T) {
		dir := t.TempDir()
		old := filepath.Join(dir, "20240101-000000-1.log")
		newer := filepath.Join(dir, "20240102-000000-2.log")
		other := filepath.Join(dir, "notes.txt")
		for _, p := range []string{old, newer, other} {
			if err := os.WriteFile(p, []byte("x\n"), 0644); err != nil {
				t.Fatal(err)
			}
		}
		past := time.Now().Add(-time.Hour)
		if err := os.Chtimes(old, past, past); err != nil {
			t.Fatal(err)
		}
		future := time.Now().Add(time.Hour)
		if err := os.Chtimes(other, future, future); err != nil {
			t.Fatal(err)
		}

		got, err := FindLatestLog(dir)
		if err != nil {
			t.Fatal(err)
		}
		if got != newer {
			t.Errorf("got %q, want %q", got, newer)
		}

		runs, err := FindLogRuns(dir)
		if err != nil {
			t.Fatal(err)
		}
		if len(runs) != 2 || runs[0].RunID != "20240102-000000-2" {
			t.Errorf("unexpected runs: %+v", runs)
		}
	})
}

// TestTailLog tests tail output.
func TestTailLog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.log")
	if err := os.WriteFile(path, []byte("one\ntwo\nthree\n"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		n    int
		want string
	}{
		{"all lines", 0, "one\ntwo\nthree\n"},
		{"last line", 1, "three\n"},
		{"last two", 2, "two\nthree\n"},
		{"more than available", 10, "one\ntwo\nthree\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := TailLog(context.Background(), &buf, path, tt.n, false); err != nil {
				t.Fatalf("TailLog failed: %v", err)
			}
			if buf.String() != tt.want {
				t.Errorf("got %q, want %q", buf.String(), tt.want)
			}
		})
	}

	t.Run("large file", func(t *testing.T) {
		big := filepath.Join(dir, "big.log")
		var b strings.Builder
		for i := 0; i < 5000; i++ {
			b.WriteString("line ")
			b.WriteString(strings.Repeat("y", i%50))
			b.WriteString("\n")
		}
		if err := os.WriteFile(big, []byte(b.String()), 0644); err != nil {
			t.Fatal(err)
		}
		var buf bytes.Buffer
		if err := TailLog(context.Background(), &buf, big, 3, false); err != nil {
			t.Fatal(err)
		}
		lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
		if len(lines) != 3 {
			t.Fatalf("expected 3 lines, got %d: %q", len(lines), buf.String())
		}
		if lines[2] != "line "+strings.Repeat("y", 4999%50) {
			t.Errorf("unexpected last line %q", lines[2])
		}
	})

	t.Run("no trailing newline", func(t *testing.T) {
		p := filepath.Join(dir, "partial.log")
		if err := os.WriteFile(p, []byte("a\nb"), 0644); err != nil {
			t.Fatal(err)
		}
		var buf bytes.Buffer
		if err := TailLog(context.Background(), &buf, p, 1, false); err != nil {
			t.Fatal(err)
		}
		if buf.String() != "b" {
			t.Errorf("got %q, want %q", buf.String(), "b")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		err := TailLog(context.Background(), &bytes.Buffer{}, filepath.Join(dir, "nope.log"), 0, false)
		if err == nil {
			t.Fatal("expected error for missing file")
		}
	})
}

// syncBuffer is a bytes.Buffer safe for one writer and one reader goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestTailLogFollow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	if err := os.WriteFile(path, []byte("first\n"), 0644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() { done <- TailLog(ctx, out, path, 0, true) }()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString("second\n"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	deadline := time.Now().Add(5 * time.Second)
	for !strings.Contains(out.String(), "second\n") {
		if time.Now().After(deadline) {
			t.Fatalf("appended line not followed, got %q", out.String())
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("TailLog returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("TailLog did not stop after cancel")
	}
	if got := out.String(); got != "first\nsecond\n" {
		t.Errorf("got %q", got)
	}
}
