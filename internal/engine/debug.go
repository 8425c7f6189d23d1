package engine

import (
	"fmt"

	"ambient/internal/dayphase"

	"go.uber.org/zap"
)

// DebugState selects a fixed period that shadows the real clock
type DebugState struct {
	Enabled bool                `json:"enabled"`
	Period  dayphase.TimePeriod `json:"period"`
}

// debugPreset is the canonical clock and progress shown for a debug period
type debugPreset struct {
	hour, minute int
	daytime      bool
	sun          float64
	hasSun       bool
	moon         float64
	hasMoon      bool
	twilight     float64
}

var debugPresets = map[dayphase.TimePeriod]debugPreset{
	dayphase.Sunrise:   {hour: 6, minute: 30, daytime: true, sun: 0.05, hasSun: true, moon: 0.95, hasMoon: true, twilight: 0.5},
	dayphase.Day:       {hour: 10, minute: 0, daytime: true, sun: 0.3, hasSun: true, twilight: 1},
	dayphase.Afternoon: {hour: 14, minute: 0, daytime: true, sun: 0.5, hasSun: true, twilight: 1},
	dayphase.Sunset:    {hour: 18, minute: 0, daytime: true, sun: 0.95, hasSun: true, twilight: 0.5},
	dayphase.Evening:   {hour: 21, minute: 0, moon: 0.25, hasMoon: true},
	dayphase.Midnight:  {hour: 23, minute: 30, moon: 0.5, hasMoon: true},
}

// Debug returns the current debug override
func (e *Engine) Debug() DebugState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.debug
}

// SetDebug replaces the whole debug override
func (e *Engine) SetDebug(d DebugState) error {
	if !d.Period.Valid() {
		return fmt.Errorf("invalid debug period: %d", int(d.Period))
	}
	e.applyDebug(func(cur *DebugState) { *cur = d })
	return nil
}

// SetDebugEnabled switches the debug override on or off
func (e *Engine) SetDebugEnabled(enabled bool) {
	e.applyDebug(func(cur *DebugState) { cur.Enabled = enabled })
}

// SetDebugPeriod selects the period shown while debug is enabled
func (e *Engine) SetDebugPeriod(p dayphase.TimePeriod) error {
	if !p.Valid() {
		return fmt.Errorf("invalid debug period: %d", int(p))
	}
	e.applyDebug(func(cur *DebugState) { cur.Period = p })
	return nil
}

// UpdateDebug changes the fields that are set and returns the resulting
// override. The read and write happen under one lock, so concurrent partial
// updates do not overwrite each other.
func (e *Engine) UpdateDebug(enabled *bool, period *dayphase.TimePeriod) (DebugState, error) {
	if period != nil && !period.Valid() {
		return DebugState{}, fmt.Errorf("invalid debug period: %d", int(*period))
	}
	return e.applyDebug(func(cur *DebugState) {
		if enabled != nil {
			cur.Enabled = *enabled
		}
		if period != nil {
			cur.Period = *period
		}
	}), nil
}

// CycleDebugTime advances the debug period to the next one, wrapping, and returns it
func (e *Engine) CycleDebugTime() dayphase.TimePeriod {
	return e.CycleDebug().Period
}

// CycleDebug advances the debug period and returns the resulting override
func (e *Engine) CycleDebug() DebugState {
	return e.applyDebug(func(cur *DebugState) {
		cur.Period = cur.Period.Next()
	})
}

func (e *Engine) applyDebug(mutate func(*DebugState)) DebugState {
	e.mu.Lock()
	old := e.debug
	mutate(&e.debug)
	current := e.debug
	state := e.evaluateLocked()
	e.lastPeriod = state.TimeOfDay
	e.mu.Unlock()

	if old == current {
		return current
	}

	e.logger.Info("Debug override changed",
		zap.Bool("enabled", current.Enabled),
		zap.Stringer("period", current.Period))

	e.publish(state)
	return current
}
