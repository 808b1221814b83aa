// Package taskfile reads, validates, and writes task files.
//
// A task file is the portable JSON form of the task list, used by the json
// store driver and by export/import:
//
//	{
//	  "schema_version": 1,
//	  "tasks": [
//	    {"id": 1, "task": "Buy milk", "selected": false}
//	  ]
//	}
//
// # Validation
//
// Files are checked against the embedded JSON Schema (draft 2020-12):
// types, required fields, no unknown properties, positive ids and
// non-blank task text. A minimal pass then checks what the schema cannot
// express, which is that ids are unique.
//
// # File Format
//
// When writing task files, the package uses:
//   - 2-space indentation
//   - Trailing newline
//   - Tasks in ascending id order
package taskfile
