package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	date, err := ParseDate("2024-06-15")
	require.NoError(t, err)
	require.Equal(t, NewDate(2024, 6, 15), date)
	require.Equal(t, "2024-06-15", date.String())

	_, err = ParseDate("15/06/2024")
	require.Error(t, err)
	_, err = ParseDate("2024-13-40")
	require.Error(t, err)
}

func TestNewDateNormalizes(t *testing.T) {
	// Out-of-range components roll over the way time.Date does.
	require.Equal(t, NewDate(2025, 1, 1), NewDate(2024, 13, 1))
	require.Equal(t, NewDate(2024, 3, 1), NewDate(2024, 2, 30))
}

func TestDateOrdering(t *testing.T) {
	earlier := NewDate(2024, 6, 15)
	later := NewDate(2024, 7, 1)

	require.True(t, earlier.Before(later))
	require.True(t, later.After(earlier))
	require.False(t, earlier.Before(earlier))
	require.False(t, earlier.After(earlier))
}

func TestDateZero(t *testing.T) {
	require.True(t, Date{}.IsZero())
	require.False(t, NewDate(2024, 6, 15).IsZero())
}

func TestDateOf(t *testing.T) {
	instant := time.Date(2024, 6, 15, 23, 59, 59, 0, time.UTC)
	require.Equal(t, NewDate(2024, 6, 15), DateOf(instant))
}

func TestDateJSON(t *testing.T) {
	date := NewDate(2024, 6, 15)

	raw, err := json.Marshal(date)
	require.NoError(t, err)
	require.Equal(t, `"2024-06-15"`, string(raw))

	var parsed Date
	require.NoError(t, json.Unmarshal(raw, &parsed))
	require.Equal(t, date, parsed)

	require.Error(t, json.Unmarshal([]byte(`"junk"`), &parsed))
	require.Error(t, json.Unmarshal([]byte(`20240615`), &parsed))
}
