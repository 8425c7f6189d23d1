package solar

import (
	"time"

	"ambient/internal/geo"

	"go.uber.org/zap"
)

// Cache memoizes Calculate for the most recently requested day and coordinate.
// It holds a single entry and is not safe for concurrent use; the engine guards it.
type Cache struct {
	logger *zap.Logger

	valid bool
	year  int
	month time.Month
	day   int
	coord geo.Coordinate
	times Times

	recomputations int
}

// NewCache creates an empty day cache
func NewCache(logger *zap.Logger) *Cache {
	return &Cache{logger: logger.Named("solar")}
}

// Get returns sun times for date's calendar day at coord, computing them on a miss
func (c *Cache) Get(date time.Time, coord geo.Coordinate) Times {
	y, m, d := date.Date()
	if c.valid && c.year == y && c.month == m && c.day == d && c.coord == coord {
		return c.times
	}

	c.times = CalculateFor(date, coord)
	c.year, c.month, c.day = y, m, d
	c.coord = coord
	c.valid = true
	c.recomputations++

	c.logger.Info("Sun times updated",
		zap.String("coordinate", coord.String()),
		zap.Time("sunrise", c.times.Sunrise),
		zap.Time("sunset", c.times.Sunset),
		zap.Stringer("polar", c.times.Polar))

	return c.times
}

// Invalidate drops the cached entry so the next Get recomputes
func (c *Cache) Invalidate() {
	c.valid = false
}

// Recomputations returns how many times Get has called Calculate
func (c *Cache) Recomputations() int {
	return c.recomputations
}
