package reminder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// SchemaVersion is the version written into every persisted snapshot.
const SchemaVersion = 1

// Persisted snapshots are written as
//
//	{"version": 1, "reminders": [{"id": ..., "text": ..., "location": {...}, ...}]}
//
// Snapshots written before versioning are a bare JSON array of the same
// records and are still accepted on read.
type envelope struct {
	Version   int        `json:"version"`
	Reminders []Reminder `json:"reminders"`
}

type storedEnvelope struct {
	Version   *int           `json:"version"`
	Reminders []storedRecord `json:"reminders"`
}

// storedRecord uses pointers so that absent fields can be told apart from
// zero values.
type storedRecord struct {
	ID              *string         `json:"id"`
	Text            *string         `json:"text"`
	Location        *storedLocation `json:"location"`
	Completed       *bool           `json:"completed"`
	CreatedAt       *string         `json:"createdAt"`
	CompletedAt     *string         `json:"completedAt"`
	TriggeredCount  *int            `json:"triggeredCount"`
	LastTriggeredAt *string         `json:"lastTriggeredAt"`
}

type storedLocation struct {
	Name      *string  `json:"name"`
	Address   *string  `json:"address"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Radius    *int     `json:"radius"`
}

// Encode serializes a snapshot of reminders.
func Encode(reminders []Reminder) ([]byte, error) {
	if reminders == nil {
		reminders = []Reminder{}
	}
	data, err := json.Marshal(envelope{Version: SchemaVersion, Reminders: reminders})
	if err != nil {
		return nil, fmt.Errorf("failed to encode reminders: %w", err)
	}
	return data, nil
}

// Decode parses a persisted snapshot. Records missing a required field,
// holding a blank text or location name, breaking a record invariant or
// repeating an id are rejected with ErrSchema.
func Decode(data []byte) ([]Reminder, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	var records []storedRecord
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("failed to parse reminder list: %v: %w", err, ErrSchema)
		}
	case '{':
		var env storedEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("failed to parse reminder snapshot: %v: %w", err, ErrSchema)
		}
		if env.Version == nil {
			return nil, fmt.Errorf("snapshot has no version: %w", ErrSchema)
		}
		if *env.Version != SchemaVersion {
			return nil, fmt.Errorf("unsupported snapshot version %d: %w", *env.Version, ErrSchema)
		}
		records = env.Reminders
	default:
		return nil, fmt.Errorf("unrecognized snapshot format: %w", ErrSchema)
	}

	reminders := make([]Reminder, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for i, rec := range records {
		r, err := rec.toReminder()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if _, dup := seen[r.ID]; dup {
			return nil, fmt.Errorf("record %d: duplicate id %q: %w", i, r.ID, ErrSchema)
		}
		seen[r.ID] = struct{}{}
		reminders = append(reminders, r)
	}
	return reminders, nil
}

func (rec storedRecord) toReminder() (Reminder, error) {
	var r Reminder

	switch {
	case rec.ID == nil || *rec.ID == "":
		return r, missing("id")
	case rec.Text == nil:
		return r, missing("text")
	case strings.TrimSpace(*rec.Text) == "":
		return r, empty("text")
	case rec.Location == nil:
		return r, missing("location")
	case rec.Location.Name == nil:
		return r, missing("location.name")
	case strings.TrimSpace(*rec.Location.Name) == "":
		return r, empty("location.name")
	case rec.Location.Latitude == nil:
		return r, missing("location.latitude")
	case rec.Location.Longitude == nil:
		return r, missing("location.longitude")
	case rec.Location.Radius == nil:
		return r, missing("location.radius")
	case rec.Completed == nil:
		return r, missing("completed")
	case rec.CreatedAt == nil:
		return r, missing("createdAt")
	case rec.TriggeredCount == nil:
		return r, missing("triggeredCount")
	}

	createdAt, err := parseTime("createdAt", *rec.CreatedAt)
	if err != nil {
		return r, err
	}
	completedAt, err := parseOptionalTime("completedAt", rec.CompletedAt)
	if err != nil {
		return r, err
	}
	// lastTriggeredAt did not exist in the first app release; absent means never.
	lastTriggeredAt, err := parseOptionalTime("lastTriggeredAt", rec.LastTriggeredAt)
	if err != nil {
		return r, err
	}

	if *rec.Completed != (completedAt != nil) {
		return r, fmt.Errorf("completed=%t disagrees with completedAt: %w", *rec.Completed, ErrSchema)
	}
	if *rec.TriggeredCount < 0 {
		return r, fmt.Errorf("negative triggeredCount: %w", ErrSchema)
	}

	r = Reminder{
		ID:   *rec.ID,
		Text: *rec.Text,
		Location: Location{
			Name:      *rec.Location.Name,
			Latitude:  *rec.Location.Latitude,
			Longitude: *rec.Location.Longitude,
			Radius:    *rec.Location.Radius,
		},
		Completed:       *rec.Completed,
		CreatedAt:       createdAt,
		CompletedAt:     completedAt,
		TriggeredCount:  *rec.TriggeredCount,
		LastTriggeredAt: lastTriggeredAt,
	}
	if rec.Location.Address != nil {
		r.Location.Address = *rec.Location.Address
	}
	return r, nil
}

func missing(field string) error {
	return fmt.Errorf("missing %s: %w", field, ErrSchema)
}

func empty(field string) error {
	return fmt.Errorf("empty %s: %w", field, ErrSchema)
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
