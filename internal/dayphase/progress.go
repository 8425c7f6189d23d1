package dayphase

// IsDaytime reports whether minute lies in [sunriseMin, sunsetMin). A sunset
// earlier in the day than sunrise belongs to the following day.
func IsDaytime(minute, sunriseMin, sunsetMin int) bool {
	_, ok := lift(minute, sunriseMin, unwrapSunset(sunriseMin, sunsetMin))
	return ok
}

// SunProgress returns how far the sun has travelled from sunrise to sunset, in
// [0,1]. ok is false while the sun is down or the day is degenerate.
func SunProgress(minute, sunriseMin, sunsetMin int) (progress float64, ok bool) {
	sunset := unwrapSunset(sunriseMin, sunsetMin)
	if sunset <= sunriseMin {
		return 0, false
	}
	at, ok := lift(minute, sunriseMin, sunset)
	if !ok {
		return 0, false
	}
	return clampUnit(float64(at-sunriseMin) / float64(sunset-sunriseMin)), true
}

// MoonProgress returns how far the moon has travelled from sunset to the next
// sunrise, stitching the evening and after-midnight segments together.
// ok is false while the sun is up.
func MoonProgress(minute, sunriseMin, sunsetMin int) (progress float64, ok bool) {
	sunset := unwrapSunset(sunriseMin, sunsetMin)
	if sunset <= sunriseMin {
		return 0, false
	}
	moonset := sunriseMin + MinutesPerDay
	at, ok := lift(minute, sunset, moonset)
	if !ok {
		return 0, false
	}
	return clampUnit(float64(at-sunset) / float64(moonset-sunset)), true
}

// TwilightOpacity returns the sun layer opacity used to crossfade sun and moon.
// It ramps 0→1 over the first TwilightFadeMinutes of Sunrise and 1→0 over the
// first TwilightFadeMinutes of Sunset; it is 1 in daytime periods and 0 at night.
func TwilightOpacity(minute int, w Windows) float64 {
	switch w.Classify(minute) {
	case Sunrise:
		at, _ := w.lift(minute, w.SunriseStart, w.SunriseEnd)
		return clampUnit(float64(at-w.SunriseStart) / TwilightFadeMinutes)
	case Sunset:
		at, _ := w.lift(minute, w.SunsetStart, w.SunsetEnd)
		return clampUnit(1 - float64(at-w.SunsetStart)/TwilightFadeMinutes)
	case Day, Afternoon:
		return 1
	default:
		return 0
	}
}

// IsTwilight reports whether sun and moon are both drawn. Only Sunrise qualifies.
func IsTwilight(p TimePeriod) bool {
	return p == Sunrise
}

// DayProgress returns minute as a fraction of the day in [0,1)
func DayProgress(minute int) float64 {
	m := minute % MinutesPerDay
	if m < 0 {
		m += MinutesPerDay
	}
	return float64(m) / MinutesPerDay
}

// unwrapSunset moves a sunset that normalization pushed past midnight onto the
// day it belongs to, so the day always runs [sunriseMin, sunset)
func unwrapSunset(sunriseMin, sunsetMin int) int {
	if sunsetMin < sunriseMin {
		return sunsetMin + MinutesPerDay
	}
	return sunsetMin
}

// lift returns minute, or the same minute a day later, whichever lies in [lo, hi)
func lift(minute, lo, hi int) (int, bool) {
	for _, at := range []int{minute, minute + MinutesPerDay} {
		if at >= lo && at < hi {
			return at, true
		}
	}
	return 0, false
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
