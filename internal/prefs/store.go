// Package prefs persists user preferences (hemisphere, last known location and
// the debug override) in a local SQLite database.
package prefs

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"ambient/internal/dayphase"
	"ambient/internal/engine"
	"ambient/internal/geo"
	"ambient/internal/season"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const (
	keyHemisphere   = "hemisphere"
	keyDebugEnabled = "debug_enabled"
	keyDebugPeriod  = "debug_period"

	// locationHistoryLimit is how many past coordinates are retained
	locationHistoryLimit = 20
)

// LocationRecord is a coordinate applied by the engine and when it was applied
type LocationRecord struct {
	Latitude   float64 `db:"latitude" json:"latitude"`
	Longitude  float64 `db:"longitude" json:"longitude"`
	RecordedAt int64   `db:"recorded_at" json:"recorded_at"`
}

// Coordinate returns the record as a geo.Coordinate
func (r LocationRecord) Coordinate() geo.Coordinate {
	return geo.Coordinate{Latitude: r.Latitude, Longitude: r.Longitude}
}

// Store wraps a SQLite connection holding user preferences. The hemisphere is
// cached in memory since the engine reads it on every evaluation.
type Store struct {
	conn   *sqlx.DB
	logger *zap.Logger

	mu         sync.RWMutex
	hemisphere season.Hemisphere
}

var _ engine.HemisphereSource = (*Store)(nil)

// Open opens or creates the preference database at path. fallback is the
// hemisphere reported until one has been saved.
func Open(path string, fallback season.Hemisphere, logger *zap.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	conn.SetMaxOpenConns(1)

	s := &Store{
		conn:       conn,
		logger:     logger.Named("prefs"),
		hemisphere: fallback,
	}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	stored, ok, err := s.get(keyHemisphere)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("load hemisphere: %w", err)
	}
	if ok {
		h, err := season.ParseHemisphere(stored)
		if err != nil {
			s.logger.Warn("Ignoring stored hemisphere", zap.String("value", stored), zap.Error(err))
		} else {
			s.hemisphere = h
		}
	}

	s.logger.Info("Preference store opened",
		zap.String("path", path),
		zap.Stringer("hemisphere", s.hemisphere))
	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS preferences (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS locations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		latitude REAL NOT NULL,
		longitude REAL NOT NULL,
		recorded_at INTEGER NOT NULL
	);
	`
	_, err := s.conn.Exec(schema)
	return err
}

func (s *Store) set(key, value string) error {
	_, err := s.conn.Exec(
		"INSERT OR REPLACE INTO preferences (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

func (s *Store) get(key string) (string, bool, error) {
	var value string
	err := s.conn.Get(&value, "SELECT value FROM preferences WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Hemisphere returns the user's hemisphere preference
func (s *Store) Hemisphere() season.Hemisphere {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hemisphere
}

// SetHemisphere persists the hemisphere preference
func (s *Store) SetHemisphere(h season.Hemisphere) error {
	if err := s.set(keyHemisphere, h.String()); err != nil {
		return fmt.Errorf("save hemisphere: %w", err)
	}

	s.mu.Lock()
	old := s.hemisphere
	s.hemisphere = h
	s.mu.Unlock()

	if old != h {
		s.logger.Info("Hemisphere preference changed",
			zap.Stringer("old", old),
			zap.Stringer("new", h))
	}
	return nil
}

// SaveLocation records a coordinate applied by the engine, keeping a short history
func (s *Store) SaveLocation(coord geo.Coordinate) error {
	tx, err := s.conn.Beginx()
	if err != nil {
		return fmt.Errorf("save location: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"INSERT INTO locations (latitude, longitude, recorded_at) VALUES (?, ?, ?)",
		coord.Latitude, coord.Longitude, time.Now().Unix(),
	); err != nil {
		return fmt.Errorf("save location: %w", err)
	}

	if _, err := tx.Exec(
		"DELETE FROM locations WHERE id NOT IN (SELECT id FROM locations ORDER BY id DESC LIMIT ?)",
		locationHistoryLimit,
	); err != nil {
		return fmt.Errorf("prune locations: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save location: %w", err)
	}

	s.logger.Debug("Location saved", zap.String("coordinate", coord.String()))
	return nil
}

// LastLocation returns the most recently saved coordinate. ok is false when none was saved.
func (s *Store) LastLocation() (geo.Coordinate, bool, error) {
	var rec LocationRecord
	err := s.conn.Get(&rec, "SELECT latitude, longitude, recorded_at FROM locations ORDER BY id DESC LIMIT 1")
	if errors.Is(err, sql.ErrNoRows) {
		return geo.Coordinate{}, false, nil
	}
	if err != nil {
		return geo.Coordinate{}, false, fmt.Errorf("load last location: %w", err)
	}
	return rec.Coordinate(), true, nil
}

// RecentLocations returns up to limit saved coordinates, newest first
func (s *Store) RecentLocations(limit int) ([]LocationRecord, error) {
	var records []LocationRecord
	err := s.conn.Select(&records,
		"SELECT latitude, longitude, recorded_at FROM locations ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("load locations: %w", err)
	}
	return records, nil
}

// SaveDebug persists the debug override so it survives restarts
func (s *Store) SaveDebug(d engine.DebugState) error {
	tx, err := s.conn.Beginx()
	if err != nil {
		return fmt.Errorf("save debug: %w", err)
	}
	defer tx.Rollback()

	for key, value := range map[string]string{
		keyDebugEnabled: strconv.FormatBool(d.Enabled),
		keyDebugPeriod:  d.Period.String(),
	} {
		if _, err := tx.Exec(
			"INSERT OR REPLACE INTO preferences (key, value) VALUES (?, ?)",
			key, value,
		); err != nil {
			return fmt.Errorf("save debug: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save debug: %w", err)
	}
	return nil
}

// LoadDebug returns the saved debug override. ok is false when none was saved.
func (s *Store) LoadDebug() (engine.DebugState, bool, error) {
	enabled, ok, err := s.get(keyDebugEnabled)
	if err != nil || !ok {
		return engine.DebugState{}, false, err
	}
	period, _, err := s.get(keyDebugPeriod)
	if err != nil {
		return engine.DebugState{}, false, err
	}

	d := engine.DebugState{Period: dayphase.Midnight}
	if d.Enabled, err = strconv.ParseBool(enabled); err != nil {
		return engine.DebugState{}, false, fmt.Errorf("parse debug_enabled: %w", err)
	}
	if p, err := dayphase.ParseTimePeriod(period); err == nil {
		d.Period = p
	}
	return d, true, nil
}
