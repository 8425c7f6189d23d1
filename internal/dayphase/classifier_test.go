package dayphase

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_PartitionsEveryMinute(t *testing.T) {
	// Sweep sunrise/sunset pairs, including very short days and windows that
	// spill past either end of the day.
	for sunriseMin := 0; sunriseMin < MinutesPerDay; sunriseMin += 17 {
		for sunsetMin := sunriseMin + 1; sunsetMin < MinutesPerDay; sunsetMin += 23 {
			w := NewWindows(sunriseMin, sunsetMin)
			spans := w.Spans()

			require.Len(t, spans, 6)
			require.Equal(t, 0, spans[0].Start)
			require.Equal(t, MinutesPerDay, spans[len(spans)-1].End)

			for m := 0; m < MinutesPerDay; m++ {
				owners := 0
				var owner TimePeriod
				for _, s := range spans {
					if s.Contains(m) {
						owners++
						owner = s.Period
					}
				}
				if owners != 1 {
					t.Fatalf("minute %d owned by %d spans (sunrise=%d sunset=%d)", m, owners, sunriseMin, sunsetMin)
				}
				if got := w.Classify(m); got != owner {
					t.Fatalf("minute %d: Classify=%s, span=%s (sunrise=%d sunset=%d)", m, got, owner, sunriseMin, sunsetMin)
				}
			}
		}
	}
}

func TestClassify_WrappedDayPartitionsEveryMinute(t *testing.T) {
	// Sunset normalized to before sunrise: the day runs past local midnight
	for sunriseMin := 1; sunriseMin < MinutesPerDay; sunriseMin += 17 {
		for sunsetMin := 0; sunsetMin < sunriseMin; sunsetMin += 23 {
			w := NewWindows(sunriseMin, sunsetMin)
			require.True(t, w.Wrapped)

			spans := w.Spans()
			require.Equal(t, 0, spans[0].Start)
			require.Equal(t, MinutesPerDay, spans[len(spans)-1].End)
			for i := 1; i < len(spans); i++ {
				require.Equal(t, spans[i-1].End, spans[i].Start)
			}

			for m := 0; m < MinutesPerDay; m++ {
				owners := 0
				var owner TimePeriod
				for _, s := range spans {
					if s.Contains(m) {
						owners++
						owner = s.Period
					}
				}
				if owners != 1 || w.Classify(m) != owner {
					t.Fatalf("minute %d: %d owners, Classify=%s (sunrise=%d sunset=%d)", m, owners, w.Classify(m), sunriseMin, sunsetMin)
				}

				daytime := IsDaytime(m, sunriseMin, sunsetMin)
				_, sunUp := SunProgress(m, sunriseMin, sunsetMin)
				_, moonUp := MoonProgress(m, sunriseMin, sunsetMin)
				if daytime != sunUp || daytime == moonUp {
					t.Fatalf("minute %d: daytime=%v sun=%v moon=%v (sunrise=%d sunset=%d)", m, daytime, sunUp, moonUp, sunriseMin, sunsetMin)
				}
			}
		}
	}
}

func TestClassify_SubpolarSummerSunsetAfterMidnight(t *testing.T) {
	// 66.3N 14.1E in late June on UTC+2: sunrise 01:40, sunset 00:28
	sunrise, sunset := 100, 28

	tests := []struct {
		name     string
		minute   int
		expected TimePeriod
		daytime  bool
	}{
		{"just after midnight", 0, Sunset, true},
		{"short night", 50, Sunrise, false},
		{"at sunrise", sunrise, Sunrise, true},
		{"morning", 600, Day, true},
		{"noon", 720, Day, true},
		{"afternoon", 1000, Afternoon, true},
		{"late evening sun", 1420, Sunset, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.minute, sunrise, sunset))
			assert.Equal(t, tt.daytime, IsDaytime(tt.minute, sunrise, sunset))
		})
	}

	p, ok := SunProgress(720, sunrise, sunset)
	require.True(t, ok)
	assert.InDelta(t, 620.0/1368.0, p, 1e-9)

	_, ok = MoonProgress(720, sunrise, sunset)
	assert.False(t, ok)

	p, ok = MoonProgress(50, sunrise, sunset)
	require.True(t, ok)
	assert.InDelta(t, 22.0/72.0, p, 1e-9)

	_, ok = SunProgress(50, sunrise, sunset)
	assert.False(t, ok)

	w := NewWindows(sunrise, sunset)
	assert.Equal(t, 1.0, TwilightOpacity(w.SunsetStart, w))
	assert.InDelta(t, 1-37.0/90.0, TwilightOpacity(5, w), 1e-9, "fade continues past midnight")
}

func TestClassify_TypicalDay(t *testing.T) {
	// sunrise 06:53, sunset 16:43, solar noon 11:48
	sunrise, sunset := 413, 1003

	tests := []struct {
		name     string
		minute   int
		expected TimePeriod
	}{
		{"just after midnight", 0, Midnight},
		{"one minute before the sunrise window", sunrise - 91, Midnight},
		{"sunrise window opens", sunrise - 90, Sunrise},
		{"inside sunrise window", sunrise - 89, Sunrise},
		{"at sunrise", sunrise, Sunrise},
		{"sunrise window closes", sunrise + 60, Day},
		{"last minute of morning", 707, Day},
		{"solar noon", 708, Afternoon},
		{"twelve o'clock", 720, Afternoon},
		{"golden hour starts", sunset - 60, Sunset},
		{"at sunset", sunset, Sunset},
		{"last minute of sunset window", sunset + 44, Sunset},
		{"evening", sunset + 45, Evening},
		{"late evening", 1439, Evening},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.minute, sunrise, sunset))
		})
	}
}

func TestClassify_SunriseWindowBoundary(t *testing.T) {
	for _, sunrise := range []int{300, 360, 413, 480, 540} {
		sunset := sunrise + 600
		assert.Equal(t, Midnight, Classify(sunrise-91, sunrise, sunset), "sunrise=%d", sunrise)
		assert.Equal(t, Sunrise, Classify(sunrise-89, sunrise, sunset), "sunrise=%d", sunrise)
	}
}

func TestClassify_EarlySunriseHasNoMidnight(t *testing.T) {
	// Sunrise at 01:00 pulls the window start before midnight
	w := NewWindows(60, 900)
	assert.Equal(t, Sunrise, w.Classify(0))

	spans := w.Spans()
	assert.Equal(t, Midnight, spans[0].Period)
	assert.Equal(t, 0, spans[0].End-spans[0].Start)
}

func TestClassify_DegenerateDayDoesNotPanic(t *testing.T) {
	// Polar days collapse sunrise and sunset onto one minute
	for _, m := range []int{0, 720, 1439} {
		assert.NotPanics(t, func() {
			Classify(m, 720, 720)
		})
	}
}

func TestSunProgress(t *testing.T) {
	sunrise, sunset := 413, 1003

	p, ok := SunProgress(720, sunrise, sunset)
	require.True(t, ok)
	assert.GreaterOrEqual(t, p, 0.45)
	assert.LessOrEqual(t, p, 0.55)

	p, ok = SunProgress(sunrise, sunrise, sunset)
	require.True(t, ok)
	assert.Equal(t, 0.0, p)

	_, ok = SunProgress(sunset, sunrise, sunset)
	assert.False(t, ok, "sun is down at the sunset minute")

	_, ok = SunProgress(100, sunrise, sunset)
	assert.False(t, ok)

	_, ok = SunProgress(720, 720, 720)
	assert.False(t, ok, "degenerate day has no sun progress")
}

func TestMoonProgress(t *testing.T) {
	sunrise, sunset := 360, 1080 // 06:00, 18:00 → 12 hour night

	p, ok := MoonProgress(sunset, sunrise, sunset)
	require.True(t, ok)
	assert.Equal(t, 0.0, p)

	p, ok = MoonProgress(0, sunrise, sunset)
	require.True(t, ok)
	assert.InDelta(t, 0.5, p, 1e-9, "midnight is halfway through a symmetric night")

	p, ok = MoonProgress(sunrise-1, sunrise, sunset)
	require.True(t, ok)
	assert.InDelta(t, 719.0/720.0, p, 1e-9)

	_, ok = MoonProgress(720, sunrise, sunset)
	assert.False(t, ok)

	// continuous across midnight
	before, _ := MoonProgress(1439, sunrise, sunset)
	after, _ := MoonProgress(0, sunrise, sunset)
	assert.InDelta(t, 1.0/720.0, after-before, 1e-9)
}

func TestIsDaytime(t *testing.T) {
	assert.True(t, IsDaytime(413, 413, 1003))
	assert.True(t, IsDaytime(1002, 413, 1003))
	assert.False(t, IsDaytime(1003, 413, 1003))
	assert.False(t, IsDaytime(412, 413, 1003))
}

func TestTwilightOpacity(t *testing.T) {
	w := NewWindows(420, 1080)

	assert.Equal(t, 0.0, TwilightOpacity(w.SunriseStart, w))
	assert.InDelta(t, 0.5, TwilightOpacity(w.SunriseStart+45, w), 1e-9)
	assert.Equal(t, 1.0, TwilightOpacity(w.SunriseStart+90, w))
	assert.Equal(t, 1.0, TwilightOpacity(w.SunriseEnd-1, w), "rest of sunrise stays lit")

	assert.Equal(t, 1.0, TwilightOpacity(720, w))

	assert.Equal(t, 1.0, TwilightOpacity(w.SunsetStart, w))
	assert.InDelta(t, 0.5, TwilightOpacity(w.SunsetStart+45, w), 1e-9)
	assert.Equal(t, 0.0, TwilightOpacity(w.SunsetEnd-1, w))

	assert.Equal(t, 0.0, TwilightOpacity(1300, w))
	assert.Equal(t, 0.0, TwilightOpacity(60, w))
}

func TestIsTwilight_OnlySunrise(t *testing.T) {
	for _, p := range AllPeriods {
		assert.Equal(t, p == Sunrise, IsTwilight(p), p.String())
	}
}

func TestDayProgress(t *testing.T) {
	assert.Equal(t, 0.0, DayProgress(0))
	assert.Equal(t, 0.5, DayProgress(720))
	assert.Less(t, DayProgress(1439), 1.0)
	assert.Equal(t, 0.0, DayProgress(1440))
}

func TestTimePeriod_NextWraps(t *testing.T) {
	assert.Equal(t, Day, Sunrise.Next())
	assert.Equal(t, Evening, Sunset.Next())
	assert.Equal(t, Sunrise, Midnight.Next())

	p := Sunrise
	for range AllPeriods {
		p = p.Next()
	}
	assert.Equal(t, Sunrise, p)
}

func TestParseTimePeriod(t *testing.T) {
	for _, p := range AllPeriods {
		parsed, err := ParseTimePeriod(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, parsed)
	}

	parsed, err := ParseTimePeriod("MIDNIGHT")
	require.NoError(t, err)
	assert.Equal(t, Midnight, parsed)

	_, err = ParseTimePeriod("noon")
	assert.Error(t, err)
}

func TestTimePeriod_JSON(t *testing.T) {
	data, err := json.Marshal(struct {
		Period TimePeriod `json:"period"`
	}{Afternoon})
	require.NoError(t, err)
	assert.JSONEq(t, `{"period":"afternoon"}`, string(data))

	var decoded struct {
		Period TimePeriod `json:"period"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"period":"evening"}`), &decoded))
	assert.Equal(t, Evening, decoded.Period)
}
