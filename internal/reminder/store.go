package reminder

import (
	"context"
	"fmt"
)

// DefaultKey is the key the reminder list is stored under.
const DefaultKey = "reminders"

// Backend is the key-value persistence service the Store writes through.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Store loads and saves whole snapshots of the reminder list under one key.
// It never mutates reminders.
type Store struct {
	backend Backend
	key     string
}

// NewStore returns a Store writing to key on backend. An empty key selects
// DefaultKey.
func NewStore(backend Backend, key string) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{backend: backend, key: key}
}

// Load reads the persisted snapshot. A missing key yields an empty list.
func (s *Store) Load(ctx context.Context) ([]Reminder, error) {
	data, ok, err := s.backend.Get(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to load reminders: %v: %w", err, ErrPersistence)
	}
	if !ok {
		return nil, nil
	}

	reminders, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load reminders: %w", err)
	}
	return reminders, nil
}

// Save replaces the persisted snapshot with reminders.
func (s *Store) Save(ctx context.Context, reminders []Reminder) error {
	data, err := Encode(reminders)
	if err != nil {
		return err
	}
	if err := s.backend.Set(ctx, s.key, data); err != nil {
		return fmt.Errorf("failed to save reminders: %v: %w", err, ErrPersistence)
	}
	return nil
}
