// Package lighting maps a time-of-day period and season to the ambient lighting
// parameters the renderer applies.
package lighting

import (
	"ambient/internal/dayphase"
	"ambient/internal/season"
)

// Color is an RGBA color with components in [0,1]
type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
	A float64 `json:"a"`
}

// Clear is the fully transparent tint
var Clear = Color{}

// Condition is the lighting for one (period, season) pair
type Condition struct {
	Brightness      float64 `json:"brightness"`
	Tint            Color   `json:"tint"`
	ShadowIntensity float64 `json:"shadow_intensity"`
	Warmth          float64 `json:"warmth"`
}

type baseLight struct {
	brightness float64
	shadow     float64
	warmth     float64
}

var periodTable = map[dayphase.TimePeriod]baseLight{
	dayphase.Sunrise:   {brightness: 0.6, shadow: 0.4, warmth: 0.7},
	dayphase.Day:       {brightness: 0.95, shadow: 0.15, warmth: 0.6},
	dayphase.Afternoon: {brightness: 1.0, shadow: 0.1, warmth: 0.5},
	dayphase.Sunset:    {brightness: 0.55, shadow: 0.5, warmth: 0.8},
	dayphase.Evening:   {brightness: 0.4, shadow: 0.65, warmth: 0.2},
	dayphase.Midnight:  {brightness: 0.25, shadow: 0.8, warmth: 0.1},
}

// Twilight tints; every other period renders untinted
var sunriseTint = map[season.Season]Color{
	season.Spring: {R: 1.0, G: 0.78, B: 0.68, A: 0.25},
	season.Summer: {R: 1.0, G: 0.72, B: 0.45, A: 0.3},
	season.Fall:   {R: 1.0, G: 0.62, B: 0.35, A: 0.3},
	season.Winter: {R: 0.85, G: 0.8, B: 0.95, A: 0.2},
}

var sunsetTint = map[season.Season]Color{
	season.Spring: {R: 0.98, G: 0.55, B: 0.55, A: 0.3},
	season.Summer: {R: 1.0, G: 0.5, B: 0.3, A: 0.35},
	season.Fall:   {R: 0.95, G: 0.42, B: 0.22, A: 0.35},
	season.Winter: {R: 0.7, G: 0.55, B: 0.8, A: 0.3},
}

// For returns the lighting condition for period in season
func For(period dayphase.TimePeriod, s season.Season) Condition {
	base, ok := periodTable[period]
	if !ok {
		base = periodTable[dayphase.Midnight]
	}

	tint := Clear
	switch period {
	case dayphase.Sunrise:
		tint = sunriseTint[s]
	case dayphase.Sunset:
		tint = sunsetTint[s]
	}

	return Condition{
		Brightness:      base.brightness,
		Tint:            tint,
		ShadowIntensity: base.shadow,
		Warmth:          base.warmth,
	}
}

// FaunaModifier scales visual elements that behave oppositely by day and night
type FaunaModifier struct {
	Opacity float64 `json:"opacity"`
	Glow    float64 `json:"glow"`
}

// daytimeGlow is the constant glow applied while the sun is up
const daytimeGlow = 0.3

// Fauna returns the opacity/glow pair for the current light level. By day
// elements are as opaque as the scene is bright; at night they fade and glow
// in proportion to the darkness.
func Fauna(isDaytime bool, brightness float64) FaunaModifier {
	brightness = clampUnit(brightness)
	if isDaytime {
		return FaunaModifier{Opacity: brightness, Glow: daytimeGlow}
	}
	return FaunaModifier{Opacity: 0.5 * brightness, Glow: 1 - brightness}
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
