// Package season maps calendar months to seasons for either hemisphere.
package season

import (
	"fmt"
	"strings"
	"time"
)

// Season constants
type Season int

const (
	Spring Season = iota
	Summer
	Fall
	Winter
)

// String returns a human-readable season name
func (s Season) String() string {
	switch s {
	case Spring:
		return "spring"
	case Summer:
		return "summer"
	case Fall:
		return "fall"
	case Winter:
		return "winter"
	default:
		return "unknown"
	}
}

// MarshalText lets Season serialize as its name
func (s Season) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a season name
func (s *Season) UnmarshalText(text []byte) error {
	for _, candidate := range []Season{Spring, Summer, Fall, Winter} {
		if strings.EqualFold(string(text), candidate.String()) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("invalid season: %s", text)
}

// opposite returns the season half a year away
func (s Season) opposite() Season {
	return (s + 2) % 4
}

// Hemisphere selects the direction of the month→season mapping
type Hemisphere int

const (
	Northern Hemisphere = iota
	Southern
)

// String returns the hemisphere name
func (h Hemisphere) String() string {
	if h == Southern {
		return "southern"
	}
	return "northern"
}

// MarshalText lets Hemisphere serialize as its name
func (h Hemisphere) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText parses a hemisphere name
func (h *Hemisphere) UnmarshalText(text []byte) error {
	parsed, err := ParseHemisphere(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// ParseHemisphere accepts "northern"/"southern" and the short forms "n"/"s"
func ParseHemisphere(name string) (Hemisphere, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "northern", "north", "n":
		return Northern, nil
	case "southern", "south", "s":
		return Southern, nil
	default:
		return Northern, fmt.Errorf("invalid hemisphere: %s", name)
	}
}

// HemisphereFor guesses the hemisphere from a latitude
func HemisphereFor(latitude float64) Hemisphere {
	if latitude < 0 {
		return Southern
	}
	return Northern
}

// ForMonth returns the meteorological season for month in the given hemisphere
func ForMonth(month time.Month, h Hemisphere) Season {
	var northern Season
	switch month {
	case time.March, time.April, time.May:
		northern = Spring
	case time.June, time.July, time.August:
		northern = Summer
	case time.September, time.October, time.November:
		northern = Fall
	default:
		northern = Winter
	}

	if h == Southern {
		return northern.opposite()
	}
	return northern
}
