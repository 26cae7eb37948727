package reminder

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/notexe/forget-me-not/internal/kvstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A snapshot as written by the mobile app: bare array, millisecond
// timestamps, no lastTriggeredAt.
const legacySnapshot = `[
  {
    "id": "1712345678901",
    "text": "Pick up prescription",
    "location": {"name": "CVS Pharmacy", "address": "", "latitude": 40.0, "longitude": -75.0, "radius": 200},
    "completed": true,
    "createdAt": "2024-04-05T19:34:38.901Z",
    "completedAt": "2024-04-06T08:00:00.000Z",
    "triggeredCount": 3
  }
]`

func TestDecodeLegacySnapshot(t *testing.T) {
	reminders, err := Decode([]byte(legacySnapshot))
	require.NoError(t, err)
	require.Len(t, reminders, 1)

	r := reminders[0]
	assert.Equal(t, "1712345678901", r.ID)
	assert.Equal(t, "CVS Pharmacy", r.Location.Name)
	assert.Equal(t, 200, r.Location.Radius)
	assert.True(t, r.Completed)
	require.NotNil(t, r.CompletedAt)
	assert.Equal(t, 3, r.TriggeredCount)
	assert.Nil(t, r.LastTriggeredAt)
	assert.Equal(t, 901*time.Millisecond, time.Duration(r.CreatedAt.Nanosecond()))
}

func TestEncodeWritesVersionedEnvelope(t *testing.T) {
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	data, err := Encode([]Reminder{{
		ID:        "a",
		Text:      "Buy milk",
		Location:  Location{Name: "CVS", Latitude: 1, Longitude: 2, Radius: 100},
		CreatedAt: created,
	}})
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.EqualValues(t, SchemaVersion, raw["version"])

	records := raw["reminders"].([]interface{})
	require.Len(t, records, 1)
	rec := records[0].(map[string]interface{})
	for _, field := range []string{"id", "text", "location", "completed", "createdAt", "completedAt", "triggeredCount", "lastTriggeredAt"} {
		assert.Contains(t, rec, field)
	}
	assert.Nil(t, rec["completedAt"])
	assert.Nil(t, rec["lastTriggeredAt"])
	assert.Equal(t, "2025-01-02T03:04:05Z", rec["createdAt"])

	loc := rec["location"].(map[string]interface{})
	for _, field := range []string{"name", "address", "latitude", "longitude", "radius"} {
		assert.Contains(t, loc, field)
	}
}

func TestEncodeEmptyList(t *testing.T) {
	data, err := Encode(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":1,"reminders":[]}`, string(data))

	reminders, err := Decode(data)
	require.NoError(t, err)
	assert.Empty(t, reminders)
}

func TestDecodeEmptyInput(t *testing.T) {
	reminders, err := Decode([]byte("  \n"))
	require.NoError(t, err)
	assert.Nil(t, reminders)
}

func TestDecodeRejectsMissingFields(t *testing.T) {
	full := map[string]interface{}{
		"id":             "a",
		"text":           "Buy milk",
		"location":       map[string]interface{}{"name": "CVS", "latitude": 1.0, "longitude": 2.0, "radius": 100},
		"completed":      false,
		"createdAt":      "2025-01-02T03:04:05Z",
		"triggeredCount": 0,
	}

	for _, field := range []string{"id", "text", "location", "completed", "createdAt", "triggeredCount"} {
		t.Run(field, func(t *testing.T) {
			rec := clone(full)
			delete(rec, field)
			_, err := Decode(mustJSON(t, []interface{}{rec}))
			assert.ErrorIs(t, err, ErrSchema)
		})
	}

	for _, field := range []string{"name", "latitude", "longitude", "radius"} {
		t.Run("location."+field, func(t *testing.T) {
			rec := clone(full)
			loc := clone(full["location"].(map[string]interface{}))
			delete(loc, field)
			rec["location"] = loc
			_, err := Decode(mustJSON(t, []interface{}{rec}))
			assert.ErrorIs(t, err, ErrSchema)
		})
	}
}

func TestDecodeRejectsBrokenInvariants(t *testing.T) {
	tests := map[string]string{
		"completed without completedAt": `[{"id":"a","text":"t","location":{"name":"n","latitude":1,"longitude":2,"radius":100},"completed":true,"createdAt":"2025-01-02T03:04:05Z","triggeredCount":0}]`,
		"completedAt while active":      `[{"id":"a","text":"t","location":{"name":"n","latitude":1,"longitude":2,"radius":100},"completed":false,"completedAt":"2025-01-02T03:04:05Z","createdAt":"2025-01-02T03:04:05Z","triggeredCount":0}]`,
		"blank text":                    `[{"id":"a","text":"  ","location":{"name":"n","latitude":1,"longitude":2,"radius":100},"completed":false,"createdAt":"2025-01-02T03:04:05Z","triggeredCount":0}]`,
		"empty location name":           `[{"id":"a","text":"t","location":{"name":"","latitude":1,"longitude":2,"radius":100},"completed":false,"createdAt":"2025-01-02T03:04:05Z","triggeredCount":0}]`,
		"negative count":                `[{"id":"a","text":"t","location":{"name":"n","latitude":1,"longitude":2,"radius":100},"completed":false,"createdAt":"2025-01-02T03:04:05Z","triggeredCount":-1}]`,
		"bad timestamp":                 `[{"id":"a","text":"t","location":{"name":"n","latitude":1,"longitude":2,"radius":100},"completed":false,"createdAt":"yesterday","triggeredCount":0}]`,
		"duplicate id":                  `[{"id":"a","text":"t","location":{"name":"n","latitude":1,"longitude":2,"radius":100},"completed":false,"createdAt":"2025-01-02T03:04:05Z","triggeredCount":0},{"id":"a","text":"u","location":{"name":"n","latitude":1,"longitude":2,"radius":100},"completed":false,"createdAt":"2025-01-02T03:04:05Z","triggeredCount":0}]`,
		"unknown version":               `{"version":2,"reminders":[]}`,
		"missing version":               `{"reminders":[]}`,
		"not json":                      `{"version":1,`,
		"scalar":                        `42`,
	}

	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(input))
			assert.ErrorIs(t, err, ErrSchema)
		})
	}
}

func TestStoreRoundTrip(t *testing.T) {
	kv := kvstore.NewMemory()
	store := NewStore(kv, "custom")
	ctx := context.Background()

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	triggered := time.Date(2025, 1, 2, 4, 0, 0, 0, time.UTC)
	in := []Reminder{{
		ID:              "a",
		Text:            "Buy milk",
		Location:        Location{Name: "CVS", Address: "1 Main St", Latitude: 40, Longitude: -75, Radius: 150},
		CreatedAt:       time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		TriggeredCount:  2,
		LastTriggeredAt: &triggered,
	}}
	require.NoError(t, store.Save(ctx, in))

	_, ok, _ := kv.Get(ctx, "custom")
	assert.True(t, ok)

	got, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestStoreWrapsBackendFailures(t *testing.T) {
	kv := kvstore.NewMemory()
	kv.FailWrites(errors.New("read-only"))

	err := NewStore(kv, "").Save(context.Background(), nil)
	assert.ErrorIs(t, err, ErrPersistence)
}

func clone(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}
