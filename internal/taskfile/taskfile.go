package taskfile

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/nibzard/todo-go/internal/task"
)

// SchemaVersion is the only task file version this package reads and writes.
const SchemaVersion = 1

const schemaURL = "https://github.com/nibzard/todo-go/tasks.schema.json"

//go:embed tasks.schema.json
var schemaJSON string

// ErrInvalid is returned by Load and Parse when a file fails validation.
var ErrInvalid = errors.New("invalid task file")

// Entry is a single task in the file.
type Entry struct {
	ID       int64  `json:"id"`
	Task     string `json:"task"`
	Selected bool   `json:"selected"`
}

// File represents the task file structure.
type File struct {
	SchemaVersion int     `json:"schema_version"`
	Tasks         []Entry `json:"tasks"`
}

// ValidationError represents a validation error with context.
type ValidationError struct {
	Path string // JSON path to the error location
	Err  error  // Underlying error
}

func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ValidationResult contains validation results.
type ValidationResult struct {
	Valid  bool
	Errors []error
}

// Err folds the result into a single error wrapping ErrInvalid, or nil.
func (r *ValidationResult) Err() error {
	if r == nil || r.Valid {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(r.Errors...))
}

// New returns an empty task file.
func New() *File {
	return &File{SchemaVersion: SchemaVersion, Tasks: []Entry{}}
}

// FromTasks builds a task file from task models.
func FromTasks(tasks []task.Model) *File {
	f := New()
	for _, t := range tasks {
		f.Tasks = append(f.Tasks, Entry{ID: t.ID, Task: t.Task, Selected: t.Selected})
	}
	f.sort()
	return f
}

// Models returns the file's tasks as task models.
func (f *File) Models() []task.Model {
	tasks := make([]task.Model, 0, len(f.Tasks))
	for _, e := range f.Tasks {
		tasks = append(tasks, task.Model{ID: e.ID, Task: e.Task, Selected: e.Selected})
	}
	return tasks
}

// Load reads, parses, and validates a task file from path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read task file: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes and validates task file contents.
// The raw document is checked against the schema before decoding so that
// unknown properties are reported instead of silently dropped.
func Parse(data []byte) (*File, error) {
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse task file: %w", err)
	}

	result := &ValidationResult{Valid: true}
	if err := validateDocument(doc, result); err != nil {
		return nil, err
	}
	if !result.Valid {
		return nil, result.Err()
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse task file: %w", err)
	}
	if f.Tasks == nil {
		f.Tasks = []Entry{}
	}
	f.validateMinimal(result)
	if !result.Valid {
		return nil, result.Err()
	}
	return &f, nil
}

// Save writes the task file to path with 2-space indentation.
func (f *File) Save(path string) error {
	var buf bytes.Buffer
	if err := f.Encode(&buf); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write task file: %w", err)
	}
	return nil
}

// Encode writes the task file as indented JSON with a trailing newline.
func (f *File) Encode(w io.Writer) error {
	f.sort()
	if f.Tasks == nil {
		f.Tasks = []Entry{}
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal task file: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write task file: %w", err)
	}
	return nil
}

// Validate validates the task file against the schema and the minimal checks.
func (f *File) Validate() *ValidationResult {
	result := &ValidationResult{Valid: true}

	if f.Tasks == nil {
		f.Tasks = []Entry{}
	}
	fileData, err := json.Marshal(f)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, &ValidationError{
			Err: fmt.Errorf("failed to marshal file for validation: %w", err),
		})
		return result
	}

	var fileObj interface{}
	if err := json.Unmarshal(fileData, &fileObj); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, &ValidationError{
			Err: fmt.Errorf("failed to unmarshal file for validation: %w", err),
		})
		return result
	}

	if err := validateDocument(fileObj, result); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err)
		return result
	}
	f.validateMinimal(result)
	return result
}

// validateMinimal checks what the schema cannot express.
func (f *File) validateMinimal(result *ValidationResult) {
	if f.SchemaVersion != SchemaVersion {
		result.Valid = false
		result.Errors = append(result.Errors, &ValidationError{
			Path: "schema_version",
			Err:  fmt.Errorf("expected %d, got %d", SchemaVersion, f.SchemaVersion),
		})
	}

	seen := make(map[int64]int, len(f.Tasks))
	for i, e := range f.Tasks {
		if first, ok := seen[e.ID]; ok {
			result.Valid = false
			result.Errors = append(result.Errors, &ValidationError{
				Path: fmt.Sprintf("tasks[%d].id", i),
				Err:  fmt.Errorf("duplicate id %d (first used by tasks[%d])", e.ID, first),
			})
			continue
		}
		seen[e.ID] = i
	}
}

// NextID returns the id the next added task receives.
func (f *File) NextID() int64 {
	var maxID int64
	for _, e := range f.Tasks {
		if e.ID > maxID {
			maxID = e.ID
		}
	}
	return maxID + 1
}

// Add appends a new task with the next free id and returns it.
func (f *File) Add(text string, selected bool) Entry {
	e := Entry{ID: f.NextID(), Task: text, Selected: selected}
	f.Tasks = append(f.Tasks, e)
	return e
}

// Get returns a task by id, or nil if not found.
func (f *File) Get(id int64) *Entry {
	for i := range f.Tasks {
		if f.Tasks[i].ID == id {
			return &f.Tasks[i]
		}
	}
	return nil
}

// Update replaces the task with the same id. It reports whether one existed.
func (f *File) Update(e Entry) bool {
	existing := f.Get(e.ID)
	if existing == nil {
		return false
	}
	*existing = e
	return true
}

// Remove deletes the task with the given id. It reports whether one existed.
func (f *File) Remove(id int64) bool {
	for i := range f.Tasks {
		if f.Tasks[i].ID == id {
			f.Tasks = append(f.Tasks[:i], f.Tasks[i+1:]...)
			return true
		}
	}
	return false
}

func (f *File) sort() {
	sort.SliceStable(f.Tasks, func(i, j int) bool {
		return f.Tasks[i].ID < f.Tasks[j].ID
	})
}

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true
		if err := compiler.AddResource(schemaURL, strings.NewReader(schemaJSON)); err != nil {
			compileErr = fmt.Errorf("load task file schema: %w", err)
			return
		}
		compiledSchema, compileErr = compiler.Compile(schemaURL)
		if compileErr != nil {
			compileErr = fmt.Errorf("compile task file schema: %w", compileErr)
		}
	})
	return compiledSchema, compileErr
}

// validateDocument validates a decoded JSON document against the schema.
// Schema violations are recorded in result; the returned error is reserved
// for a broken embedded schema.
func validateDocument(doc interface{}, result *ValidationResult) error {
	sch, err := schema()
	if err != nil {
		return err
	}
	if err := sch.Validate(doc); err != nil {
		result.Valid = false
		appendSchemaErrors(result, err)
	}
	return nil
}

func appendSchemaErrors(result *ValidationResult, err error) {
	if err == nil {
		return
	}

	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		result.Errors = append(result.Errors, err)
		return
	}

	collectSchemaErrors(result, ve)
}

func collectSchemaErrors(result *ValidationResult, err *jsonschema.ValidationError) {
	if err == nil {
		return
	}

	if len(err.Causes) == 0 {
		result.Errors = append(result.Errors, &ValidationError{
			Path: jsonPointerToPath(err.InstanceLocation),
			Err:  fmt.Errorf("%s", err.Message),
		})
		return
	}

	for _, cause := range err.Causes {
		collectSchemaErrors(result, cause)
	}
}

func jsonPointerToPath(ptr string) string {
	ptr = strings.TrimPrefix(ptr, "#")
	ptr = strings.TrimPrefix(ptr, "/")
	if ptr == "" {
		return ""
	}

	path := ""
	for _, part := range strings.Split(ptr, "/") {
		part = strings.ReplaceAll(part, "~1", "/")
		part = strings.ReplaceAll(part, "~0", "~")
		if part == "" {
			continue
		}
		if idx, err := strconv.Atoi(part); err == nil {
			path += fmt.Sprintf("[%d]", idx)
			continue
		}
		if path == "" {
			path = part
		} else {
			path += "." + part
		}
	}
	return path
}
