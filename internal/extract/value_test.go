package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	EventID string         `json:"event_id"`
	Title   string         `json:"title"`
	Count   float64        `json:"count"`
	Nested  map[string]any `json:"nested"`
	Missing *string        `json:"missing"`
}

func TestPickMapContainer(t *testing.T) {
	m := map[string]any{"y": float64(5)}

	assert.Equal(t, float64(5), Pick(m, nil, "x", "y"))
	assert.Equal(t, "fallback", Pick(m, "fallback", "x", "z"))
	assert.Equal(t, "fallback", Pick(nil, "fallback", "x", "y"))
}

func TestPickSkipsNullValues(t *testing.T) {
	m := map[string]any{"x": nil, "y": "there"}
	assert.Equal(t, "there", Pick(m, "", "x", "y"))
}

func TestPickStructContainer(t *testing.T) {
	s := &sample{EventID: "e1", Count: 3}

	assert.Equal(t, "e1", Pick(s, "", "event_id"))
	assert.Equal(t, "e1", PickString(s, "", "eventid"))
	assert.Equal(t, "def", PickString(s, "def", "missing"))

	n, ok := PickFloat(s, "count")
	assert.True(t, ok)
	assert.Equal(t, float64(3), n)

	// Non-pointer structs work the same way.
	assert.Equal(t, "e1", Pick(sample{EventID: "e1"}, "", "event_id"))

	var nilSample *sample
	assert.Equal(t, "def", PickString(nilSample, "def", "event_id"))
}

func TestPickStringFallbackChain(t *testing.T) {
	m := map[string]any{"message": "", "title": "the title"}

	// Blank values fall through to the next candidate.
	assert.Equal(t, "the title", PickString(m, "", "message", "title"))
	// Numeric ids render as text.
	assert.Equal(t, "42", PickString(map[string]any{"id": float64(42)}, "", "id"))
	assert.Equal(t, "No message", PickString(map[string]any{}, "No message", "message"))
}

func TestPickFloat(t *testing.T) {
	f, ok := PickFloat(map[string]any{"timestamp": 1700000000.25}, "timestamp")
	assert.True(t, ok)
	assert.Equal(t, 1700000000.25, f)

	f, ok = PickFloat(map[string]any{"timestamp": "12.5"}, "timestamp")
	assert.True(t, ok)
	assert.Equal(t, 12.5, f)

	_, ok = PickFloat(map[string]any{"timestamp": "soon"}, "timestamp")
	assert.False(t, ok)
}

func TestPickMapAndSlice(t *testing.T) {
	m := map[string]any{
		"obj":   map[string]any{"a": 1},
		"empty": map[string]any{},
		"list":  []any{"x"},
	}
	assert.NotNil(t, PickMap(m, "obj"))
	assert.Nil(t, PickMap(m, "empty"))
	assert.Nil(t, PickMap(m, "nope"))
	assert.Len(t, PickSlice(m, "list"), 1)
	assert.Nil(t, PickSlice(m, "obj"))
}
