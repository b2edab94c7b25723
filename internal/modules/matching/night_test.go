package matching

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsNightHour_Boundaries(t *testing.T) {
	cases := map[int]bool{
		0: true, 5: true, 6: false, 12: false, 21: false, 22: true, 23: true,
	}
	for hour, want := range cases {
		if got := IsNightHour(hour); got != want {
			t.Errorf("IsNightHour(%d) = %v, want %v", hour, got, want)
		}
	}
}

func TestNightWindow_ContainsUsesConfiguredZone(t *testing.T) {
	// UTC+1 fixed zone: 21:30 UTC is 22:30 local.
	loc := time.FixedZone("WAT", 3600)
	w := DefaultNightWindow(loc)

	assert.True(t, w.Contains(time.Date(2026, 3, 10, 21, 30, 0, 0, time.UTC)))
	assert.False(t, DefaultNightWindow(time.UTC).Contains(time.Date(2026, 3, 10, 21, 30, 0, 0, time.UTC)))
	// 05:30 UTC is 06:30 local, already daytime.
	assert.False(t, w.Contains(time.Date(2026, 3, 10, 5, 30, 0, 0, time.UTC)))
}

func TestNightWindow_NonWrapping(t *testing.T) {
	w := NightWindow{StartHour: 1, EndHour: 5, Location: time.UTC}
	assert.False(t, w.containsHour(0))
	assert.True(t, w.containsHour(1))
	assert.True(t, w.containsHour(4))
	assert.False(t, w.containsHour(5))
}

func TestNightWindow_EmptyWhenStartEqualsEnd(t *testing.T) {
	w := NightWindow{StartHour: 3, EndHour: 3}
	for h := 0; h < 24; h++ {
		assert.False(t, w.containsHour(h), "hour %d", h)
	}
}

func TestNightWindow_RosterDate(t *testing.T) {
	loc := time.FixedZone("WAT", 3600)
	w := DefaultNightWindow(loc)

	// 23:30 UTC on the 10th is 00:30 on the 11th locally.
	got := w.RosterDate(time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), got)

	got = w.RosterDate(time.Date(2026, 3, 10, 22, 15, 0, 0, loc))
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), got)
}
