package survey

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptional(t *testing.T) {
	type payload struct {
		Active      Optional[bool]    `json:"active"`
		Description Optional[*string] `json:"description"`
	}

	tests := []struct {
		name        string
		body        string
		active      bool
		description *string
	}{
		{name: "absent keys keep stored values", body: `{}`, active: true, description: strPtr("stored")},
		{name: "explicit false is applied", body: `{"active":false}`, active: false, description: strPtr("stored")},
		{name: "null bool keeps stored value", body: `{"active":null}`, active: true, description: strPtr("stored")},
		{name: "null string clears", body: `{"description":null}`, active: true, description: nil},
		{name: "empty string is applied", body: `{"description":""}`, active: true, description: strPtr("")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p payload
			require.NoError(t, json.Unmarshal([]byte(tt.body), &p))

			assert.Equal(t, tt.active, p.Active.OrIfNotNull(true))
			assert.Equal(t, tt.description, p.Description.Or(strPtr("stored")))
		})
	}
}

func TestTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{in: `"2025-09-01T08:30:00Z"`, want: time.Date(2025, 9, 1, 8, 30, 0, 0, time.UTC)},
		{in: `"2025-09-01T08:30:15"`, want: time.Date(2025, 9, 1, 8, 30, 15, 0, time.UTC)},
		{in: `"2025-09-01T08:30"`, want: time.Date(2025, 9, 1, 8, 30, 0, 0, time.UTC)},
		{in: `"2025-09-01"`, want: time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var ts Timestamp
			require.NoError(t, json.Unmarshal([]byte(tt.in), &ts))
			assert.True(t, tt.want.Equal(ts.Time))
			require.NotNil(t, ts.TimePtr())
		})
	}

	t.Run("empty string is unset", func(t *testing.T) {
		var ts Timestamp
		require.NoError(t, json.Unmarshal([]byte(`""`), &ts))
		assert.Nil(t, ts.TimePtr())
	})

	t.Run("garbage is rejected", func(t *testing.T) {
		var ts Timestamp
		assert.Error(t, json.Unmarshal([]byte(`"next tuesday"`), &ts))
	})

	t.Run("nil pointer", func(t *testing.T) {
		var ts *Timestamp
		assert.Nil(t, ts.TimePtr())
	})
}

func TestIsBlankJSON(t *testing.T) {
	assert.True(t, isBlankJSON(nil))
	assert.True(t, isBlankJSON(json.RawMessage(" null ")))
	assert.False(t, isBlankJSON(json.RawMessage(`{}`)))
	assert.False(t, isBlankJSON(json.RawMessage(`[]`)))
}

func strPtr(s string) *string {
	return &s
}
