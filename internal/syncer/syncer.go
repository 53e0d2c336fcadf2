// Package syncer drives one synchronization pass: fetch the current
// reading for every active city and persist it, tolerating per-city
// failures.
package syncer

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/daffaahh/HowsTheAir-be/internal/db"
	"github.com/daffaahh/HowsTheAir-be/internal/waqi"
)

// Fetcher retrieves the current upstream reading for one feed target.
type Fetcher interface {
	Feed(ctx context.Context, target string) (waqi.Reading, error)
}

// Store is the persistence surface the orchestrator needs.
type Store interface {
	ListActiveCities(ctx context.Context) ([]db.MonitoredCity, error)
	RecordReading(ctx context.Context, cityID int64, aqi int, category string, recordedAt time.Time) error
	AppendAudit(ctx context.Context, action, status, details string) error
}

// Service runs sync passes. Safe for concurrent use; each pass is
// independent.
type Service struct {
	store       Store
	fetcher     Fetcher
	concurrency int
}

// New builds a sync service. Concurrency bounds the number of cities
// processed in parallel; 1 reproduces the original sequential behavior.
func New(store Store, fetcher Fetcher, concurrency int) *Service {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Service{store: store, fetcher: fetcher, concurrency: concurrency}
}

// Run executes one sync pass and returns the number of cities whose
// reading was fetched and persisted. Per-city failures are logged and
// skipped; only a failure to load the worklist aborts the pass.
func (s *Service) Run(ctx context.Context) (int, error) {
	cities, err := s.store.ListActiveCities(ctx)
	if err != nil {
		if auditErr := s.store.AppendAudit(ctx, db.ActionSync, db.StatusFailed,
			fmt.Sprintf("Failed to load active stations: %v", err)); auditErr != nil {
			log.Printf("sync: audit write failed: %v", auditErr)
		}
		return 0, fmt.Errorf("load active cities: %w", err)
	}

	if len(cities) == 0 {
		log.Printf("sync: no active stations")
		return 0, nil
	}

	var succeeded atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, city := range cities {
		city := city
		g.Go(func() error {
			// A cancelled pass stops launching fetches but never
			// interrupts a write that already started.
			if gctx.Err() != nil {
				return nil
			}

			reading, err := s.fetcher.Feed(gctx, city.FeedTarget())
			if err != nil {
				log.Printf("sync: fetch %q failed: %v", city.StationName, err)
				return nil
			}

			writeCtx := context.WithoutCancel(gctx)
			if err := s.store.RecordReading(writeCtx, city.ID, reading.AQI, reading.Category, reading.RecordedAt); err != nil {
				log.Printf("sync: persist %q failed: %v", city.StationName, err)
				return nil
			}

			succeeded.Add(1)
			return nil
		})
	}

	_ = g.Wait() // tasks never return errors; failures are per-city

	count := int(succeeded.Load())
	details := fmt.Sprintf("Synced %d of %d stations", count, len(cities))
	if err := s.store.AppendAudit(context.WithoutCancel(ctx), db.ActionSync, db.StatusSuccess, details); err != nil {
		return count, fmt.Errorf("append sync audit: %w", err)
	}

	log.Printf("sync: %s", details)
	return count, nil
}
