package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	want := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)

	for _, in := range []string{
		"2026-05-10",
		"2026-05-10T13:45:00Z",
		"2026-05-10T13:45:00.123456789Z",
		" 2026-05-10 ",
	} {
		d, err := ParseDate(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(d.Time), in)
	}

	// An offset moves the instant to another UTC day.
	d, err := ParseDate("2026-05-10T01:00:00+03:00")
	require.NoError(t, err)
	assert.Equal(t, "2026-05-09", d.String())

	_, err = ParseDate("10.05.2026")
	assert.Error(t, err)
}

func TestDate_JSON(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		var req MakeReservationRequest
		raw := `{"hotelName":"Valley Inn","roomType":"suite","reserveCount":2,` +
			`"checkInDate":"2026-06-01","checkOutDate":"2026-06-03T00:00:00Z"}`
		require.NoError(t, json.Unmarshal([]byte(raw), &req))

		assert.Equal(t, "2026-06-01", req.CheckInDate.String())
		assert.Equal(t, "2026-06-03", req.CheckOutDate.String())
		assert.True(t, req.CheckInDate.Before(req.CheckOutDate))

		out, err := json.Marshal(req)
		require.NoError(t, err)
		assert.Contains(t, string(out), `"checkInDate":"2026-06-01"`)
	})

	t.Run("Absent", func(t *testing.T) {
		var req QueryReservationRequest
		require.NoError(t, json.Unmarshal([]byte(`{"checkInDate":null,"checkOutDate":""}`), &req))
		assert.True(t, req.CheckInDate.IsZero())
		assert.True(t, req.CheckOutDate.IsZero())
		assert.Equal(t, "", req.CheckInDate.String())
	})

	t.Run("Invalid", func(t *testing.T) {
		var req QueryReservationRequest
		assert.Error(t, json.Unmarshal([]byte(`{"checkInDate":"tomorrow"}`), &req))
		assert.Error(t, json.Unmarshal([]byte(`{"checkInDate":20260601}`), &req))
	})
}

func TestNewDate_Truncates(t *testing.T) {
	ts := time.Date(2026, 2, 28, 23, 59, 59, 999, time.UTC)
	d := NewDate(ts)
	assert.Equal(t, 0, d.Hour())
	assert.Equal(t, 28, d.Day())
}
