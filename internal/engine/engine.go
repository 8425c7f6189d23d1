// Package engine drives the simulated environment: a periodic tick samples the
// host clock into a snapshot, and pure classifiers derive period, season and
// lighting from that snapshot on every read.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ambient/internal/clock"
	"ambient/internal/dayphase"
	"ambient/internal/geo"
	"ambient/internal/season"
	"ambient/internal/solar"

	"go.uber.org/zap"
)

// DefaultTickInterval is how often the snapshot is refreshed
const DefaultTickInterval = 60 * time.Second

// HemisphereSource supplies the user's hemisphere preference
type HemisphereSource interface {
	Hemisphere() season.Hemisphere
}

// StaticHemisphere is a HemisphereSource that never changes
type StaticHemisphere season.Hemisphere

// Hemisphere returns the fixed hemisphere
func (h StaticHemisphere) Hemisphere() season.Hemisphere {
	return season.Hemisphere(h)
}

// Snapshot is the sampled wall-clock state all classifiers read
type Snapshot struct {
	Date   time.Time  `json:"date"`
	Hour   int        `json:"hour"`
	Minute int        `json:"minute"`
	Month  time.Month `json:"month"`
}

// MinuteOfDay returns hour*60+minute
func (s Snapshot) MinuteOfDay() int {
	return s.Hour*60 + s.Minute
}

func snapshotAt(t time.Time) Snapshot {
	return Snapshot{
		Date:   t,
		Hour:   t.Hour(),
		Minute: t.Minute(),
		Month:  t.Month(),
	}
}

// Config holds the engine's injected settings
type Config struct {
	Coordinate   geo.Coordinate
	Hemisphere   HemisphereSource
	TickInterval time.Duration
	Debug        DebugState
}

// TickListener is called with the fresh state after every tick or forced recompute
type TickListener func(State)

// LocationListener is called after the coordinate changed materially
type LocationListener func(geo.Coordinate)

// Engine owns the snapshot, the day cache and the debug override
type Engine struct {
	clock      clock.Clock
	logger     *zap.Logger
	hemisphere HemisphereSource
	interval   time.Duration

	// mu guards every field below
	mu         sync.Mutex
	cache      *solar.Cache
	coord      geo.Coordinate
	snapshot   Snapshot
	debug      DebugState
	lastPeriod dayphase.TimePeriod
	locating   bool

	listenersMu       sync.RWMutex
	tickListeners     map[int]TickListener
	locationListeners []LocationListener
	nextListenerID    int

	// Lifecycle
	stopChan    chan struct{}
	stoppedChan chan struct{}
	started     bool
	stopped     bool
}

// New creates an engine and samples the clock once so reads are valid before the first tick
func New(clk clock.Clock, logger *zap.Logger, cfg Config) *Engine {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.Hemisphere == nil {
		cfg.Hemisphere = StaticHemisphere(season.Northern)
	}

	coord := cfg.Coordinate
	if err := coord.Validate(); err != nil {
		logger.Warn("Invalid coordinate, using default location",
			zap.Error(err),
			zap.String("default", geo.Default.String()))
		coord = geo.Default
	}

	debug := cfg.Debug
	if !debug.Period.Valid() {
		debug.Period = dayphase.Midnight
	}

	e := &Engine{
		clock:         clk,
		logger:        logger.Named("engine"),
		hemisphere:    cfg.Hemisphere,
		interval:      cfg.TickInterval,
		cache:         solar.NewCache(logger),
		coord:         coord,
		debug:         debug,
		tickListeners: make(map[int]TickListener),
		stopChan:      make(chan struct{}),
		stoppedChan:   make(chan struct{}),
	}

	now := clk.Now()
	if now.IsZero() {
		now = time.Now()
	}
	e.snapshot = snapshotAt(now)
	e.lastPeriod = e.evaluateLocked().TimeOfDay

	return e
}

// Start begins the periodic tick
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return fmt.Errorf("engine already started")
	}
	if e.stopped {
		return fmt.Errorf("engine has been stopped")
	}

	ticker := e.clock.NewTicker(e.interval)
	go e.run(ticker)
	e.started = true

	e.logger.Info("Environment engine started",
		zap.Duration("interval", e.interval),
		zap.String("coordinate", e.coord.String()))
	return nil
}

// Stop halts the tick and waits for the tick goroutine to exit
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.started || e.stopped {
		e.mu.Unlock()
		e.logger.Info("Environment engine was not running, nothing to stop")
		return
	}
	e.stopped = true
	e.mu.Unlock()

	close(e.stopChan)
	<-e.stoppedChan

	e.logger.Info("Environment engine stopped")
}

func (e *Engine) run(ticker clock.Ticker) {
	defer close(e.stoppedChan)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C():
			e.Tick()

		case <-e.stopChan:
			e.logger.Debug("Stopping periodic environment updates")
			return
		}
	}
}

// Tick samples the host clock into a new snapshot and notifies listeners.
// A zero time from the clock keeps the previous snapshot.
func (e *Engine) Tick() {
	now := e.clock.Now()

	e.mu.Lock()
	if now.IsZero() {
		e.logger.Warn("Clock returned no time, keeping previous snapshot",
			zap.Time("previous", e.snapshot.Date))
	} else {
		e.snapshot = snapshotAt(now)
	}

	state := e.evaluateLocked()
	if state.TimeOfDay != e.lastPeriod {
		e.logger.Info("Time of day changed",
			zap.Stringer("old", e.lastPeriod),
			zap.Stringer("new", state.TimeOfDay),
			zap.Bool("debug", state.Debug.Enabled))
		e.lastPeriod = state.TimeOfDay
	}
	e.mu.Unlock()

	e.logger.Debug("Environment tick",
		zap.Int("minute_of_day", state.Snapshot.MinuteOfDay()),
		zap.Stringer("period", state.TimeOfDay),
		zap.Stringer("season", state.Season))

	e.publish(state)
}

// Refresh re-evaluates the current snapshot and notifies listeners, for when an
// input outside the engine (such as the hemisphere preference) changed
func (e *Engine) Refresh() State {
	e.mu.Lock()
	state := e.evaluateLocked()
	e.lastPeriod = state.TimeOfDay
	e.mu.Unlock()

	e.publish(state)
	return state
}

// Coordinate returns the coordinate sun times are computed for
func (e *Engine) Coordinate() geo.Coordinate {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.coord
}

// UpdateLocation applies a new coordinate. A material move invalidates the day
// cache and recomputes immediately; smaller moves and invalid input are ignored.
// It reports whether the coordinate was applied.
func (e *Engine) UpdateLocation(coord geo.Coordinate) bool {
	if err := coord.Validate(); err != nil {
		e.logger.Warn("Ignoring invalid location", zap.Error(err))
		return false
	}

	e.mu.Lock()
	if !e.coord.MovedMaterially(coord) {
		e.mu.Unlock()
		e.logger.Debug("Location unchanged", zap.String("coordinate", coord.String()))
		return false
	}

	old := e.coord
	e.coord = coord
	e.cache.Invalidate()
	e.cache.Get(e.snapshot.Date, e.coord)
	state := e.evaluateLocked()
	e.lastPeriod = state.TimeOfDay
	e.mu.Unlock()

	e.logger.Info("Location changed",
		zap.String("old", old.String()),
		zap.String("new", coord.String()))

	e.listenersMu.RLock()
	listeners := make([]LocationListener, len(e.locationListeners))
	copy(listeners, e.locationListeners)
	e.listenersMu.RUnlock()
	for _, fn := range listeners {
		fn(coord)
	}

	e.publish(state)
	return true
}

// RequestLocation asks src for the location once, in the background. It returns
// a channel closed when the request finishes, or nil if a request is already in
// flight.
func (e *Engine) RequestLocation(ctx context.Context, src geo.Source) <-chan struct{} {
	e.mu.Lock()
	if e.locating {
		e.mu.Unlock()
		e.logger.Debug("Location request already in flight")
		return nil
	}
	e.locating = true
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			e.mu.Lock()
			e.locating = false
			e.mu.Unlock()
		}()

		coord, err := src.Locate(ctx)
		if err != nil {
			e.logger.Warn("Location unavailable, keeping current coordinate", zap.Error(err))
			return
		}
		e.UpdateLocation(coord)
	}()
	return done
}

// OnTick registers fn to receive state after each tick. The returned func unregisters it.
func (e *Engine) OnTick(fn TickListener) func() {
	e.listenersMu.Lock()
	defer e.listenersMu.Unlock()

	id := e.nextListenerID
	e.nextListenerID++
	e.tickListeners[id] = fn

	return func() {
		e.listenersMu.Lock()
		defer e.listenersMu.Unlock()
		delete(e.tickListeners, id)
	}
}

// OnLocationChange registers fn to receive every applied coordinate
func (e *Engine) OnLocationChange(fn LocationListener) {
	e.listenersMu.Lock()
	defer e.listenersMu.Unlock()
	e.locationListeners = append(e.locationListeners, fn)
}

func (e *Engine) publish(state State) {
	e.listenersMu.RLock()
	listeners := make([]TickListener, 0, len(e.tickListeners))
	for _, fn := range e.tickListeners {
		listeners = append(listeners, fn)
	}
	e.listenersMu.RUnlock()

	for _, fn := range listeners {
		fn(state)
	}
}
