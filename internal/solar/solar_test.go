package solar

import (
	"math"
	"testing"
	"time"
	_ "time/tzdata"

	"ambient/internal/geo"

	"github.com/nathan-osman/go-sunrise"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var pacificStandard = time.FixedZone("PST", -8*3600)

func minutesBetween(a, b int) int {
	d := a - b
	if d < 0 {
		d = -d
	}
	if d > 720 {
		d = 1440 - d
	}
	return d
}

func TestCalculate_SanDiegoWinterSolstice(t *testing.T) {
	// Day of year 355 in a non-leap year is December 21
	date := time.Date(2023, 12, 21, 0, 0, 0, 0, pacificStandard)
	require.Equal(t, 355, date.YearDay())

	times := Calculate(date, 32.7157, -117.1611, -8)

	// 06:54–07:10 and 16:50–17:05 widened by the 15 minute model tolerance
	assert.GreaterOrEqual(t, times.SunriseMinute(), 6*60+54-15)
	assert.LessOrEqual(t, times.SunriseMinute(), 7*60+10+15)
	assert.GreaterOrEqual(t, times.SunsetMinute(), 16*60+50-15)
	assert.LessOrEqual(t, times.SunsetMinute(), 17*60+5+15)

	assert.Equal(t, PolarNone, times.Polar)
	assert.True(t, times.Sunrise.Before(times.Sunset))
	assert.Equal(t, pacificStandard, times.Sunrise.Location())

	y, m, d := times.Sunrise.Date()
	assert.Equal(t, 2023, y)
	assert.Equal(t, time.December, m)
	assert.Equal(t, 21, d)
}

func TestCalculate_PolarSafety(t *testing.T) {
	tests := []struct {
		name      string
		latitude  float64
		date      time.Time
		wantPolar Polar
	}{
		{"arctic summer", 89.9, time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC), PolarDay},
		{"arctic winter", 89.9, time.Date(2024, 12, 21, 0, 0, 0, 0, time.UTC), PolarNight},
		{"antarctic summer", -89.9, time.Date(2024, 12, 21, 0, 0, 0, 0, time.UTC), PolarDay},
		{"antarctic winter", -89.9, time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC), PolarNight},
		{"exact pole", 90, time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC), PolarDay},
		{"pole at equinox", 90, time.Date(2023, 3, 22, 0, 0, 0, 0, time.UTC), PolarNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var times Times
			assert.NotPanics(t, func() {
				times = Calculate(tt.date, tt.latitude, 0, 0)
			})

			assert.False(t, times.Sunrise.IsZero())
			assert.False(t, times.Sunset.IsZero())
			assert.Equal(t, tt.wantPolar, times.Polar)

			if tt.wantPolar != PolarNone {
				assert.Equal(t, times.SunriseMinute(), times.SunsetMinute(),
					"polar days collapse sunrise and sunset onto solar noon/midnight")
				assert.Zero(t, times.DayLength())
			}
		})
	}
}

func TestHourAngle_Clamp(t *testing.T) {
	for lat := -90.0; lat <= 90.0; lat += 0.5 {
		for doy := 1; doy <= 366; doy++ {
			ha, _ := HourAngle(lat, Declination(doy))
			if math.IsNaN(ha) || ha < 0 || ha > 180 {
				t.Fatalf("hour angle %v out of range for lat=%v doy=%d", ha, lat, doy)
			}
		}
	}
}

func TestDeclination(t *testing.T) {
	assert.InDelta(t, 0, Declination(81), 1e-9, "vernal equinox")
	assert.InDelta(t, 23.45, Declination(172), 0.05, "june solstice")
	assert.InDelta(t, -23.45, Declination(355), 0.05, "december solstice")
}

func TestCalculate_NormalizesAcrossMidnight(t *testing.T) {
	// Far-east longitude with a UTC clock pushes sunrise before local midnight
	date := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)
	times := Calculate(date, 0, 170, 0)

	assert.GreaterOrEqual(t, times.SunriseMinute(), 0)
	assert.Less(t, times.SunriseMinute(), 1440)
	assert.GreaterOrEqual(t, times.SunsetMinute(), 0)
	assert.Less(t, times.SunsetMinute(), 1440)

	// solar noon at 00:40 UTC, six hours either side
	assert.InDelta(t, 18*60+40, times.SunriseMinute(), 15)
	assert.InDelta(t, 6*60+40, times.SunsetMinute(), 15)

	// the sun that rises this evening sets tomorrow morning
	assert.Equal(t, 21, times.Sunset.Day())
	assert.True(t, times.Sunset.After(times.Sunrise))
	assert.InDelta(t, float64(12*time.Hour), float64(times.DayLength()), float64(2*time.Minute))
}

func TestCalculate_SubpolarSunsetAfterMidnight(t *testing.T) {
	date := time.Date(2024, 6, 21, 0, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	times := CalculateFor(date, geo.Coordinate{Latitude: 66.3, Longitude: 14.1})

	assert.Equal(t, PolarNone, times.Polar)
	assert.Less(t, times.SunsetMinute(), times.SunriseMinute())
	assert.Equal(t, 21, times.Sunrise.Day())
	assert.Equal(t, 22, times.Sunset.Day())
	assert.Greater(t, times.DayLength(), 22*time.Hour)

	window := MoonWindowFor(times)
	assert.True(t, window.Moonset.After(window.Moonrise))
	assert.Less(t, window.Moonset.Sub(window.Moonrise), 2*time.Hour)
}

func TestCalculateFor_UsesNoonOffsetOnDaylightSavingDay(t *testing.T) {
	la, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)

	// Clocks spring forward at 02:00 on 2024-03-10
	beforeSwitch := time.Date(2024, 3, 10, 0, 30, 0, 0, la)
	afternoon := time.Date(2024, 3, 10, 15, 0, 0, 0, la)
	require.Equal(t, -8.0, TimezoneOffsetHours(beforeSwitch))

	want := Calculate(beforeSwitch, geo.Default.Latitude, geo.Default.Longitude, -7)
	assert.Equal(t, want, CalculateFor(beforeSwitch, geo.Default))
	assert.Equal(t, want, CalculateFor(afternoon, geo.Default))

	cache := NewCache(zap.NewNop())
	assert.Equal(t, want, cache.Get(beforeSwitch, geo.Default))
	assert.Equal(t, want, cache.Get(afternoon, geo.Default))
	assert.Equal(t, 1, cache.Recomputations())
}

func TestCalculate_AgreesWithReferenceAlgorithm(t *testing.T) {
	// The simplified model ignores refraction and the equation of time, so it
	// should stay within half an hour of the full NOAA-style algorithm.
	coords := []geo.Coordinate{
		geo.Default,
		{Latitude: 51.5074, Longitude: -0.1278},
		{Latitude: -33.8688, Longitude: 151.2093},
		{Latitude: 1.3521, Longitude: 103.8198},
	}
	dates := []time.Time{
		time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 9, 22, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 12, 21, 0, 0, 0, 0, time.UTC),
	}

	for _, c := range coords {
		for _, d := range dates {
			got := Calculate(d, c.Latitude, c.Longitude, 0)
			refRise, refSet := sunrise.SunriseSunset(c.Latitude, c.Longitude, d.Year(), d.Month(), d.Day())

			assert.LessOrEqual(t, minutesBetween(got.SunriseMinute(), MinuteOfDay(refRise.UTC())), 30,
				"sunrise at %s on %s", c, d.Format("2006-01-02"))
			assert.LessOrEqual(t, minutesBetween(got.SunsetMinute(), MinuteOfDay(refSet.UTC())), 30,
				"sunset at %s on %s", c, d.Format("2006-01-02"))
		}
	}
}

func TestMoonWindowFor(t *testing.T) {
	date := time.Date(2023, 12, 21, 0, 0, 0, 0, pacificStandard)
	times := Calculate(date, geo.Default.Latitude, geo.Default.Longitude, -8)
	window := MoonWindowFor(times)

	assert.Equal(t, times.Sunset, window.Moonrise)
	assert.Equal(t, times.Sunrise.AddDate(0, 0, 1), window.Moonset)

	assert.True(t, window.Visible(times.Sunset))
	assert.True(t, window.Visible(date.Add(26*time.Hour)), "02:00 the next morning")
	assert.False(t, window.Visible(date.Add(12*time.Hour)))
	assert.False(t, window.Visible(window.Moonset))
}

func TestMoonWindowAt(t *testing.T) {
	date := time.Date(2023, 12, 21, 0, 0, 0, 0, pacificStandard)
	today := CalculateFor(date, geo.Default)
	yesterday := CalculateFor(date.AddDate(0, 0, -1), geo.Default)

	// 02:00: the moon rose at yesterday's sunset
	early := MoonWindowAt(120, today, geo.Default)
	assert.Equal(t, yesterday.Sunset, early.Moonrise)
	assert.Equal(t, today.Sunrise, early.Moonset)
	assert.True(t, early.Visible(date.Add(2*time.Hour)))

	noon := MoonWindowAt(720, today, geo.Default)
	assert.Equal(t, MoonWindowFor(today), noon)
	assert.False(t, noon.Visible(date.Add(12*time.Hour)))
	assert.True(t, noon.Visible(date.Add(23*time.Hour)))
}

func TestCache_Idempotent(t *testing.T) {
	cache := NewCache(zap.NewNop())
	date := time.Date(2024, 7, 4, 15, 30, 0, 0, pacificStandard)

	first := cache.Get(date, geo.Default)
	second := cache.Get(date.Add(2*time.Hour), geo.Default)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, cache.Recomputations())
}

func TestCache_InvalidatesOnDateChange(t *testing.T) {
	cache := NewCache(zap.NewNop())
	date := time.Date(2024, 7, 4, 23, 59, 0, 0, pacificStandard)

	first := cache.Get(date, geo.Default)
	next := cache.Get(date.Add(2*time.Minute), geo.Default)

	assert.Equal(t, 2, cache.Recomputations())
	assert.NotEqual(t, first.Date, next.Date)
}

func TestCache_InvalidatesOnCoordinateChange(t *testing.T) {
	cache := NewCache(zap.NewNop())
	date := time.Date(2024, 7, 4, 12, 0, 0, 0, pacificStandard)

	cache.Get(date, geo.Default)
	cache.Get(date, geo.Coordinate{Latitude: 47.6, Longitude: -122.3})

	assert.Equal(t, 2, cache.Recomputations())
}

func TestCache_Invalidate(t *testing.T) {
	cache := NewCache(zap.NewNop())
	date := time.Date(2024, 7, 4, 12, 0, 0, 0, pacificStandard)

	first := cache.Get(date, geo.Default)
	cache.Invalidate()
	second := cache.Get(date, geo.Default)

	assert.Equal(t, first, second)
	assert.Equal(t, 2, cache.Recomputations())
}
