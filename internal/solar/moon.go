package solar

import (
	"time"

	"ambient/internal/geo"
)

// MoonWindow is the interval during which the moon is drawn
type MoonWindow struct {
	Moonrise time.Time `json:"moonrise"`
	Moonset  time.Time `json:"moonset"`
}

// MoonWindowFor derives the moon window from the day's sun times: the moon rises
// at sunset and sets at the following sunrise. This is the visual model, not a
// lunar ephemeris.
func MoonWindowFor(t Times) MoonWindow {
	return MoonWindow{
		Moonrise: t.Sunset,
		Moonset:  t.Sunrise.AddDate(0, 0, 1),
	}
}

// MoonWindowAt returns the window in effect at minute of today's date. Before
// sunrise the moon still belongs to the window that opened at the previous
// day's sunset, so that day is calculated too.
func MoonWindowAt(minute int, today Times, coord geo.Coordinate) MoonWindow {
	if minute >= today.SunriseMinute() {
		return MoonWindowFor(today)
	}
	yesterday := CalculateFor(today.Date.AddDate(0, 0, -1), coord)
	return MoonWindow{
		Moonrise: yesterday.Sunset,
		Moonset:  today.Sunrise,
	}
}

// Visible reports whether the moon window contains at
func (w MoonWindow) Visible(at time.Time) bool {
	return !at.Before(w.Moonrise) && at.Before(w.Moonset)
}
