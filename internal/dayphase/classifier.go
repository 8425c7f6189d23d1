package dayphase

// MinutesPerDay is the length of the classified cycle
const MinutesPerDay = 1440

// Transition window widths in minutes, relative to sunrise and sunset
const (
	SunriseLeadMinutes  = 90
	SunriseTrailMinutes = 60
	SunsetLeadMinutes   = 60
	SunsetTrailMinutes  = 45

	// TwilightFadeMinutes is how long the sun/moon crossfade lasts
	TwilightFadeMinutes = 90
)

// Windows holds the period boundaries for one day, as minutes of day.
// Starts may be negative and ends may exceed MinutesPerDay.
type Windows struct {
	SunriseStart int
	SunriseEnd   int
	SolarNoon    int
	SunsetStart  int
	SunsetEnd    int

	// Wrapped is set when sunset falls after the next local midnight, which
	// happens east of the zone meridian in high-latitude summers
	Wrapped bool
}

// NewWindows derives the transition windows from sunrise and sunset minutes.
// A sunset earlier in the day than sunrise is taken to be the next day's.
func NewWindows(sunriseMin, sunsetMin int) Windows {
	sunset := unwrapSunset(sunriseMin, sunsetMin)
	return Windows{
		SunriseStart: sunriseMin - SunriseLeadMinutes,
		SunriseEnd:   sunriseMin + SunriseTrailMinutes,
		SolarNoon:    (sunriseMin + sunset) / 2,
		SunsetStart:  sunset - SunsetLeadMinutes,
		SunsetEnd:    sunset + SunsetTrailMinutes,
		Wrapped:      sunset != sunsetMin,
	}
}

// Classify returns the period containing minute. The first matching window wins.
func (w Windows) Classify(minute int) TimePeriod {
	switch {
	case w.contains(minute, w.SunriseStart, w.SunriseEnd):
		return Sunrise
	case w.contains(minute, w.SunriseEnd, w.SolarNoon):
		return Day
	case w.contains(minute, w.SolarNoon, w.SunsetStart):
		return Afternoon
	case w.contains(minute, w.SunsetStart, w.SunsetEnd):
		return Sunset
	case w.Wrapped:
		// local midnight falls in daylight, so the whole night is evening
		return Evening
	case minute >= w.SunsetEnd && minute < MinutesPerDay:
		return Evening
	default:
		return Midnight
	}
}

// lift places minute on the window axis. On a wrapped day the windows run past
// MinutesPerDay, so minutes after midnight are also tried a day later.
func (w Windows) lift(minute, lo, hi int) (int, bool) {
	if !w.Wrapped {
		return minute, minute >= lo && minute < hi
	}
	return lift(minute, lo, hi)
}

func (w Windows) contains(minute, lo, hi int) bool {
	_, ok := w.lift(minute, lo, hi)
	return ok
}

// Span is a half-open [Start, End) range of minutes owned by one period
type Span struct {
	Period TimePeriod
	Start  int
	End    int
}

// Contains reports whether minute falls in the span
func (s Span) Contains(minute int) bool {
	return minute >= s.Start && minute < s.End
}

// Spans returns the effective ranges each period owns within [0, MinutesPerDay).
// They are contiguous, ordered and may be empty; together they tile the day
// exactly as Classify does. A wrapped day is split into runs instead, so one
// period may own a range on each side of midnight.
func (w Windows) Spans() []Span {
	if w.Wrapped {
		return w.runs()
	}

	b0 := clampMinute(w.SunriseStart)
	b1 := max(b0, clampMinute(w.SunriseEnd))
	b2 := max(b1, clampMinute(w.SolarNoon))
	b3 := max(b2, clampMinute(w.SunsetStart))
	b4 := max(b3, clampMinute(w.SunsetEnd))

	return []Span{
		{Period: Midnight, Start: 0, End: b0},
		{Period: Sunrise, Start: b0, End: b1},
		{Period: Day, Start: b1, End: b2},
		{Period: Afternoon, Start: b2, End: b3},
		{Period: Sunset, Start: b3, End: b4},
		{Period: Evening, Start: b4, End: MinutesPerDay},
	}
}

func (w Windows) runs() []Span {
	var spans []Span
	for m := 0; m < MinutesPerDay; m++ {
		p := w.Classify(m)
		if n := len(spans); n > 0 && spans[n-1].Period == p {
			spans[n-1].End = m + 1
			continue
		}
		spans = append(spans, Span{Period: p, Start: m, End: m + 1})
	}
	return spans
}

// Classify is a convenience wrapper around NewWindows(...).Classify
func Classify(minute, sunriseMin, sunsetMin int) TimePeriod {
	return NewWindows(sunriseMin, sunsetMin).Classify(minute)
}

func clampMinute(m int) int {
	if m < 0 {
		return 0
	}
	if m > MinutesPerDay {
		return MinutesPerDay
	}
	return m
}
