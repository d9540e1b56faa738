package cluster

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOfCard(t *testing.T) {
	testCases := []struct {
		name     string
		cardNo   int
		expected Cluster
	}{
		{name: "Low card number", cardNo: 1, expected: East},
		{name: "Just below boundary", cardNo: 999, expected: East},
		{name: "At boundary", cardNo: 1000, expected: West},
		{name: "High card number", cardNo: 4242, expected: West},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, OfCard(tc.cardNo))
		})
	}
}

func TestParseClock(t *testing.T) {
	testCases := []struct {
		name      string
		raw       string
		expected  int
		expectErr bool
	}{
		{name: "Hours and minutes", raw: "08:00", expected: 8 * 3600},
		{name: "With seconds", raw: "22:30:15", expected: 22*3600 + 30*60 + 15},
		{name: "Midnight", raw: "00:00", expected: 0},
		{name: "End of day", raw: "24:00", expected: endOfDay},
		{name: "Past end of day", raw: "24:01", expectErr: true},
		{name: "Minutes out of range", raw: "10:75", expectErr: true},
		{name: "Garbage", raw: "noon", expectErr: true},
		{name: "Negative", raw: "-1:00", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sec, err := ParseClock(tc.raw)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, sec)
		})
	}
}

func TestWindowContains(t *testing.T) {
	at := func(clock string) time.Time {
		tm, err := time.Parse("15:04:05", clock)
		require.NoError(t, err)
		return tm
	}

	w, err := NewWindow("08:00", "22:00")
	require.NoError(t, err)

	assert.False(t, w.Contains(at("07:59:59")), "one second before open is outside")
	assert.True(t, w.Contains(at("08:00:00")), "open bound is inclusive")
	assert.True(t, w.Contains(at("21:59:59")))
	assert.False(t, w.Contains(at("22:00:00")), "close bound is exclusive")

	alwaysOpen, err := NewWindow("", "")
	require.NoError(t, err)
	assert.True(t, alwaysOpen.Contains(at("00:00:00")))
	assert.True(t, alwaysOpen.Contains(at("23:59:59")))

	openEnded, err := NewWindow("06:00", "")
	require.NoError(t, err)
	assert.False(t, openEnded.Contains(at("05:59:59")))
	assert.True(t, openEnded.Contains(at("23:59:59")))
}

func TestWindowString(t *testing.T) {
	w, err := NewWindow("08:00", "22:00")
	require.NoError(t, err)
	assert.Equal(t, "08:00 ~ 22:00", w.String())

	alwaysOpen, err := NewWindow("", "")
	require.NoError(t, err)
	assert.Equal(t, "00:00 ~ 24:00", alwaysOpen.String())
}
