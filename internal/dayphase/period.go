// Package dayphase classifies a clock minute into a time-of-day period and
// derives the sun/moon progress values the renderer animates.
package dayphase

import (
	"fmt"
	"strings"
)

// TimePeriod is an ordered time-of-day period
type TimePeriod int

const (
	Sunrise TimePeriod = iota
	Day
	Afternoon
	Sunset
	Evening
	Midnight
)

// AllPeriods lists every period in declared order
var AllPeriods = []TimePeriod{Sunrise, Day, Afternoon, Sunset, Evening, Midnight}

var periodNames = [...]string{
	Sunrise:   "sunrise",
	Day:       "day",
	Afternoon: "afternoon",
	Sunset:    "sunset",
	Evening:   "evening",
	Midnight:  "midnight",
}

// String returns the lowercase period name
func (p TimePeriod) String() string {
	if p < Sunrise || p > Midnight {
		return fmt.Sprintf("TimePeriod(%d)", int(p))
	}
	return periodNames[p]
}

// Valid reports whether p is one of the declared periods
func (p TimePeriod) Valid() bool {
	return p >= Sunrise && p <= Midnight
}

// Next returns the following period in declared order, wrapping after Midnight
func (p TimePeriod) Next() TimePeriod {
	return TimePeriod((int(p) + 1) % len(AllPeriods))
}

// IsNight reports whether the period belongs to the moon half of the cycle
func (p TimePeriod) IsNight() bool {
	return p == Evening || p == Midnight
}

// MarshalText lets TimePeriod serialize as its name
func (p TimePeriod) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses a period name
func (p *TimePeriod) UnmarshalText(text []byte) error {
	parsed, err := ParseTimePeriod(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParseTimePeriod checks if a string is a valid period name
func ParseTimePeriod(name string) (TimePeriod, error) {
	for i, n := range periodNames {
		if strings.EqualFold(name, n) {
			return TimePeriod(i), nil
		}
	}
	return 0, fmt.Errorf("invalid time period: %s", name)
}
