// Package solar computes simplified sunrise/sunset times and the derived moon
// visibility window for one calendar day at one coordinate.
package solar

import (
	"fmt"
	"math"
	"time"

	"ambient/internal/geo"
)

// Polar records which side of the hour-angle clamp a day fell on
type Polar int

const (
	PolarNone Polar = iota
	// PolarDay means the sun never sets; hour angle saturated at 180 degrees
	PolarDay
	// PolarNight means the sun never rises; hour angle saturated at 0 degrees
	PolarNight
)

// String returns the polar condition name
func (p Polar) String() string {
	switch p {
	case PolarDay:
		return "polar_day"
	case PolarNight:
		return "polar_night"
	default:
		return "none"
	}
}

// MarshalText lets Polar serialize as its name in JSON
func (p Polar) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses a polar condition name
func (p *Polar) UnmarshalText(text []byte) error {
	for _, candidate := range []Polar{PolarNone, PolarDay, PolarNight} {
		if string(text) == candidate.String() {
			*p = candidate
			return nil
		}
	}
	return fmt.Errorf("invalid polar condition: %s", text)
}

// Times holds sunrise and sunset for a single date and coordinate
type Times struct {
	Date    time.Time `json:"date"`
	Sunrise time.Time `json:"sunrise"`
	Sunset  time.Time `json:"sunset"`
	Polar   Polar     `json:"polar"`
}

// SunriseMinute returns sunrise as minutes after local midnight
func (t Times) SunriseMinute() int {
	return MinuteOfDay(t.Sunrise)
}

// SunsetMinute returns sunset as minutes after local midnight
func (t Times) SunsetMinute() int {
	return MinuteOfDay(t.Sunset)
}

// DayLength returns the time the sun is up, zero for polar days and nights
func (t Times) DayLength() time.Duration {
	if !t.Sunset.After(t.Sunrise) {
		return 0
	}
	return t.Sunset.Sub(t.Sunrise)
}

// MinuteOfDay converts a wall-clock time to hour*60+minute
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// Declination returns the simplified solar declination in degrees for a day of year
func Declination(dayOfYear int) float64 {
	return 23.45 * math.Sin(360.0/365.0*float64(dayOfYear-81)*math.Pi/180.0)
}

// HourAngle returns the sunrise hour angle in degrees, clamped for polar latitudes
func HourAngle(latitude, declination float64) (float64, Polar) {
	latRad := latitude * math.Pi / 180.0
	decRad := declination * math.Pi / 180.0
	cosHourAngle := -math.Tan(latRad) * math.Tan(decRad)

	switch {
	case math.IsNaN(cosHourAngle):
		// tan(±90°)·tan(0°) on some platforms; treat as equinox-like
		return 90, PolarNone
	case cosHourAngle > 1:
		return 0, PolarNight
	case cosHourAngle < -1:
		return 180, PolarDay
	default:
		return math.Acos(cosHourAngle) * 180.0 / math.Pi, PolarNone
	}
}

// Calculate returns sunrise and sunset on date at (latitude, longitude) using a
// declination/hour-angle model. tzOffsetHours is the local offset from UTC.
// The result is always finite; polar days and nights collapse sunrise and
// sunset onto the same instant. Both are wall-clock times on date except a
// sunset that falls after the next midnight, which lands on the following day.
func Calculate(date time.Time, latitude, longitude, tzOffsetHours float64) Times {
	declination := Declination(date.YearDay())
	hourAngle, polar := HourAngle(latitude, declination)

	solarNoon := 12 + tzOffsetHours - longitude/15.0
	sunrise := solarNoon - hourAngle/15.0
	sunset := solarNoon + hourAngle/15.0

	day := startOfDay(date)
	times := Times{
		Date:    day,
		Sunrise: atHour(day, normalizeHours(sunrise)),
		Sunset:  atHour(day, normalizeHours(sunset)),
		Polar:   polar,
	}
	if polar == PolarNone && times.Sunset.Before(times.Sunrise) {
		times.Sunset = times.Sunset.AddDate(0, 0, 1)
	}
	return times
}

// CalculateFor returns the sun times of date's calendar day at coord, in
// date's zone. The offset is read at local noon so a daylight saving switch in
// the small hours applies to the whole day.
func CalculateFor(date time.Time, coord geo.Coordinate) Times {
	return Calculate(date, coord.Latitude, coord.Longitude, TimezoneOffsetHours(localNoon(date)))
}

// TimezoneOffsetHours returns the UTC offset of t's zone at t, in hours
func TimezoneOffsetHours(t time.Time) float64 {
	_, offset := t.Zone()
	return float64(offset) / 3600.0
}

func localNoon(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 12, 0, 0, 0, t.Location())
}

func normalizeHours(h float64) float64 {
	if math.IsNaN(h) || math.IsInf(h, 0) {
		return 0
	}
	h = math.Mod(h, 24)
	if h < 0 {
		h += 24
	}
	return h
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// atHour places a fractional hour on day, truncated to the second
func atHour(day time.Time, hours float64) time.Time {
	secs := int(hours*3600) % 86400
	y, m, d := day.Date()
	return time.Date(y, m, d, secs/3600, (secs%3600)/60, secs%60, 0, day.Location())
}
