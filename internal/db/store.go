// Package db wraps Postgres access for monitored cities, air quality
// snapshots, history and the audit log.
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when a city id does not exist.
	ErrNotFound = errors.New("db: not found")
	// ErrDuplicateCity is returned when a uid or keyword is already registered.
	ErrDuplicateCity = errors.New("db: duplicate city")
)

const uniqueViolation = "23505"

// Store wraps database access helpers.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store backed by a pgx pool.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// MonitoredCity is a city/station under observation.
type MonitoredCity struct {
	ID          int64     `json:"id"`
	UID         *int64    `json:"uid,omitempty"`
	StationName string    `json:"stationName"`
	Keyword     string    `json:"keyword"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
}

// FeedTarget returns the upstream feed path segment for this city: the
// "@<uid>" form when a provider uid was registered, the keyword slug
// otherwise. Fixed at creation time, never re-decided per sync.
func (c MonitoredCity) FeedTarget() string {
	if c.UID != nil {
		return fmt.Sprintf("@%d", *c.UID)
	}
	return c.Keyword
}

// Snapshot is the single most-recent reading for a city, joined with the
// owning city's display fields.
type Snapshot struct {
	ID              int64     `json:"id"`
	MonitoredCityID int64     `json:"monitoredCityId"`
	AQI             int       `json:"aqi"`
	Category        string    `json:"category"`
	RecordedAt      time.Time `json:"recordedAt"`
	LastSynced      time.Time `json:"lastSynced"`
	StationName     string    `json:"stationName"`
	Keyword         string    `json:"keyword"`
}

// HistoryRow is one append-only reading in a city's time series.
type HistoryRow struct {
	ID              int64     `json:"id"`
	MonitoredCityID int64     `json:"monitoredCityId"`
	AQI             int       `json:"aqi"`
	Category        string    `json:"category"`
	RecordedAt      time.Time `json:"recordedAt"`
	StationName     string    `json:"stationName"`
	Keyword         string    `json:"keyword"`
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func mapRowError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
