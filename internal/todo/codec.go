package todo

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// SchemaVersion is the version written into every persisted snapshot.
const SchemaVersion = 1

// Snapshots are written as {"version": 1, "todos": [...]}. A bare JSON array
// of the same records, as written by the mobile app, is accepted on read.
type envelope struct {
	Version int    `json:"version"`
	Todos   []Todo `json:"todos"`
}

type storedEnvelope struct {
	Version *int           `json:"version"`
	Todos   []storedRecord `json:"todos"`
}

type storedRecord struct {
	ID          *string `json:"id"`
	Text        *string `json:"text"`
	Completed   *bool   `json:"completed"`
	CreatedAt   *string `json:"createdAt"`
	CompletedAt *string `json:"completedAt"`
	DueDate     *string `json:"dueDate"`
	NotifiedAt  *string `json:"notifiedAt"`
}

// Encode serializes a snapshot of todos.
func Encode(todos []Todo) ([]byte, error) {
	if todos == nil {
		todos = []Todo{}
	}
	data, err := json.Marshal(envelope{Version: SchemaVersion, Todos: todos})
	if err != nil {
		return nil, fmt.Errorf("failed to encode todos: %w", err)
	}
	return data, nil
}

// Decode parses a persisted snapshot. Records missing a required field,
// holding blank text, disagreeing about completion or repeating an id are
// rejected with ErrSchema.
func Decode(data []byte) ([]Todo, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	var records []storedRecord
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("failed to parse todo list: %v: %w", err, ErrSchema)
		}
	case '{':
		var env storedEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("failed to parse todo snapshot: %v: %w", err, ErrSchema)
		}
		if env.Version == nil || *env.Version != SchemaVersion {
			return nil, fmt.Errorf("unsupported todo snapshot version: %w", ErrSchema)
		}
		records = env.Todos
	default:
		return nil, fmt.Errorf("unrecognized snapshot format: %w", ErrSchema)
	}

	todos := make([]Todo, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for i, rec := range records {
		t, err := rec.toTodo()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if _, dup := seen[t.ID]; dup {
			return nil, fmt.Errorf("record %d: duplicate id %q: %w", i, t.ID, ErrSchema)
		}
		seen[t.ID] = struct{}{}
		todos = append(todos, t)
	}
	return todos, nil
}

func (rec storedRecord) toTodo() (Todo, error) {
	switch {
	case rec.ID == nil || *rec.ID == "":
		return Todo{}, fmt.Errorf("missing id: %w", ErrSchema)
	case rec.Text == nil || strings.TrimSpace(*rec.Text) == "":
		return Todo{}, fmt.Errorf("missing text: %w", ErrSchema)
	case rec.Completed == nil:
		return Todo{}, fmt.Errorf("missing completed: %w", ErrSchema)
	case rec.CreatedAt == nil:
		return Todo{}, fmt.Errorf("missing createdAt: %w", ErrSchema)
	}

	t := Todo{ID: *rec.ID, Text: *rec.Text, Completed: *rec.Completed}

	var err error
	if t.CreatedAt, err = parseTime("createdAt", *rec.CreatedAt); err != nil {
		return Todo{}, err
	}
	if t.CompletedAt, err = parseOptionalTime("completedAt", rec.CompletedAt); err != nil {
		return Todo{}, err
	}
	if t.DueDate, err = parseOptionalTime("dueDate", rec.DueDate); err != nil {
		return Todo{}, err
	}
	if t.NotifiedAt, err = parseOptionalTime("notifiedAt", rec.NotifiedAt); err != nil {
		return Todo{}, err
	}

	if t.Completed != (t.CompletedAt != nil) {
		return Todo{}, fmt.Errorf("completed=%t disagrees with completedAt: %w", t.Completed, ErrSchema)
	}
	return t, nil
}

func parseTime(field, value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad %s %q: %w", field, value, ErrSchema)
	}
	return t, nil
}

func parseOptionalTime(field string, value *string) (*time.Time, error) {
	if value == nil {
		return nil, nil
	}
	t, err := parseTime(field, *value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
