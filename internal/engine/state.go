package engine

import (
	"ambient/internal/dayphase"
	"ambient/internal/geo"
	"ambient/internal/lighting"
	"ambient/internal/season"
	"ambient/internal/solar"
)

// State is every output the renderer reads, evaluated from one snapshot
type State struct {
	Snapshot        Snapshot               `json:"snapshot"`
	Coordinate      geo.Coordinate         `json:"coordinate"`
	Hemisphere      season.Hemisphere      `json:"hemisphere"`
	Season          season.Season          `json:"season"`
	TimeOfDay       dayphase.TimePeriod    `json:"time_of_day"`
	IsDaytime       bool                   `json:"is_daytime"`
	SunProgress     *float64               `json:"sun_progress"`
	MoonProgress    *float64               `json:"moon_progress"`
	TwilightOpacity float64                `json:"twilight_opacity"`
	IsTwilight      bool                   `json:"is_twilight"`
	DayProgress     float64                `json:"day_progress"`
	Lighting        lighting.Condition     `json:"lighting"`
	Fauna           lighting.FaunaModifier `json:"fauna"`
	SolarTimes      solar.Times            `json:"solar_times"`
	MoonWindow      solar.MoonWindow       `json:"moon_window"`
	Debug           DebugState             `json:"debug"`
}

// evaluateLocked derives State from the snapshot. Debug, when enabled, shadows
// the clock-derived period, clock and progress values. Callers hold e.mu.
func (e *Engine) evaluateLocked() State {
	snap := e.snapshot
	times := e.cache.Get(snap.Date, e.coord)
	hemisphere := e.hemisphere.Hemisphere()

	st := State{
		Coordinate: e.coord,
		Hemisphere: hemisphere,
		Season:     season.ForMonth(snap.Month, hemisphere),
		SolarTimes: times,
		Debug:      e.debug,
	}

	if e.debug.Enabled {
		preset := debugPresets[e.debug.Period]
		snap.Hour, snap.Minute = preset.hour, preset.minute

		st.TimeOfDay = e.debug.Period
		st.IsDaytime = preset.daytime
		if preset.hasSun {
			st.SunProgress = ptr(preset.sun)
		}
		if preset.hasMoon {
			st.MoonProgress = ptr(preset.moon)
		}
		st.TwilightOpacity = preset.twilight
	} else {
		minute := snap.MinuteOfDay()
		sunriseMin, sunsetMin := times.SunriseMinute(), times.SunsetMinute()
		windows := dayphase.NewWindows(sunriseMin, sunsetMin)

		st.TimeOfDay = windows.Classify(minute)
		st.IsDaytime = dayphase.IsDaytime(minute, sunriseMin, sunsetMin)
		if p, ok := dayphase.SunProgress(minute, sunriseMin, sunsetMin); ok {
			st.SunProgress = ptr(p)
		}
		if p, ok := dayphase.MoonProgress(minute, sunriseMin, sunsetMin); ok {
			st.MoonProgress = ptr(p)
		}
		st.TwilightOpacity = dayphase.TwilightOpacity(minute, windows)
	}

	st.Snapshot = snap
	st.MoonWindow = solar.MoonWindowAt(snap.MinuteOfDay(), times, e.coord)
	st.IsTwilight = dayphase.IsTwilight(st.TimeOfDay)
	st.DayProgress = dayphase.DayProgress(snap.MinuteOfDay())
	st.Lighting = lighting.For(st.TimeOfDay, st.Season)
	st.Fauna = lighting.Fauna(st.IsDaytime, st.Lighting.Brightness)

	return st
}

// State evaluates all outputs at once
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.evaluateLocked()
}

// Snapshot returns the snapshot the outputs are derived from, with the debug
// clock substituted when the override is enabled
func (e *Engine) Snapshot() Snapshot {
	return e.State().Snapshot
}

// Season returns the season for the snapshot month and hemisphere preference
func (e *Engine) Season() season.Season {
	return e.State().Season
}

// TimeOfDay returns the current period
func (e *Engine) TimeOfDay() dayphase.TimePeriod {
	return e.State().TimeOfDay
}

// IsDaytime reports whether the sun is up
func (e *Engine) IsDaytime() bool {
	return e.State().IsDaytime
}

// SunProgress returns sunrise→sunset progress; ok is false while the sun is down
func (e *Engine) SunProgress() (float64, bool) {
	return unwrap(e.State().SunProgress)
}

// MoonProgress returns sunset→sunrise progress; ok is false while the sun is up
func (e *Engine) MoonProgress() (float64, bool) {
	return unwrap(e.State().MoonProgress)
}

// TwilightOpacity returns the sun layer opacity for the sun/moon crossfade
func (e *Engine) TwilightOpacity() float64 {
	return e.State().TwilightOpacity
}

// IsTwilight reports whether sun and moon are both visible
func (e *Engine) IsTwilight() bool {
	return e.State().IsTwilight
}

// DayProgress returns the fraction of the day elapsed, in [0,1)
func (e *Engine) DayProgress() float64 {
	return e.State().DayProgress
}

// Lighting returns the ambient lighting condition
func (e *Engine) Lighting() lighting.Condition {
	return e.State().Lighting
}

// FaunaModifier returns the opacity/glow pair for day/night-reactive elements
func (e *Engine) FaunaModifier() lighting.FaunaModifier {
	return e.State().Fauna
}

// SolarTimes returns today's cached sun times
func (e *Engine) SolarTimes() solar.Times {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cache.Get(e.snapshot.Date, e.coord)
}

// MoonWindow returns the moon window in effect at the snapshot: last night's
// before sunrise, tonight's after
func (e *Engine) MoonWindow() solar.MoonWindow {
	return e.State().MoonWindow
}

// SolarRecomputations reports how many times sun times were calculated
func (e *Engine) SolarRecomputations() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cache.Recomputations()
}

func ptr(v float64) *float64 {
	return &v
}

func unwrap(p *float64) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}
