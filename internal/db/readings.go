package db

import (
	"context"
	"strconv"
	"time"
)

const upsertSnapshotSQL = `
INSERT INTO air_quality (monitored_city_id, aqi, category, recorded_at, last_synced)
VALUES ($1, $2, $3, $4, NOW())
ON CONFLICT (monitored_city_id) DO UPDATE
SET aqi = EXCLUDED.aqi,
    category = EXCLUDED.category,
    recorded_at = EXCLUDED.recorded_at,
    last_synced = NOW()`

const appendHistorySQL = `
INSERT INTO air_quality_history (monitored_city_id, aqi, category, recorded_at, created_at)
VALUES ($1, $2, $3, $4, NOW())
ON CONFLICT (monitored_city_id, recorded_at) DO NOTHING`

// RecordReading writes one successful reading: the snapshot row is
// inserted or overwritten, the history row is appended unless the
// (city, recorded_at) pair was already recorded. Both writes commit
// together or not at all.
func (s *Store) RecordReading(ctx context.Context, cityID int64, aqiValue int, category string, recordedAt time.Time) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, upsertSnapshotSQL, cityID, aqiValue, category, recordedAt); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, appendHistorySQL, cityID, aqiValue, category, recordedAt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// SnapshotQuery holds filters for the current-readings surface.
type SnapshotQuery struct {
	Since  *time.Time
	Until  *time.Time
	Search string
}

const listSnapshotsBase = `
SELECT aq.id, aq.monitored_city_id, aq.aqi, aq.category, aq.recorded_at, aq.last_synced,
       mc.station_name, mc.keyword
FROM air_quality aq
JOIN monitored_cities mc ON mc.id = aq.monitored_city_id
WHERE mc.is_active`

// ListSnapshots returns current readings for active cities, optionally
// filtered by date range and a case-insensitive search over station name,
// keyword and category. Newest first.
func (s *Store) ListSnapshots(ctx context.Context, q SnapshotQuery) ([]Snapshot, error) {
	sql := listSnapshotsBase
	args := []any{}
	argPos := 1

	if q.Since != nil {
		sql += " AND aq.recorded_at >= $" + strconv.Itoa(argPos)
		args = append(args, *q.Since)
		argPos++
	}
	if q.Until != nil {
		sql += " AND aq.recorded_at <= $" + strconv.Itoa(argPos)
		args = append(args, *q.Until)
		argPos++
	}
	if q.Search != "" {
		p := "$" + strconv.Itoa(argPos)
		sql += " AND (mc.station_name ILIKE '%' || " + p + " || '%'" +
			" OR mc.keyword ILIKE '%' || " + p + " || '%'" +
			" OR aq.category ILIKE '%' || " + p + " || '%')"
		args = append(args, q.Search)
	}

	sql += " ORDER BY aq.recorded_at DESC"

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snapshots := make([]Snapshot, 0)
	for rows.Next() {
		var snap Snapshot
		if err := rows.Scan(
			&snap.ID,
			&snap.MonitoredCityID,
			&snap.AQI,
			&snap.Category,
			&snap.RecordedAt,
			&snap.LastSynced,
			&snap.StationName,
			&snap.Keyword,
		); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, rows.Err()
}

// HistoryQuery holds filters for the time-series surface.
type HistoryQuery struct {
	Since  *time.Time
	Until  *time.Time
	CityID *int64
}

const listHistoryBase = `
SELECT h.id, h.monitored_city_id, h.aqi, h.category, h.recorded_at,
       mc.station_name, mc.keyword
FROM air_quality_history h
JOIN monitored_cities mc ON mc.id = h.monitored_city_id
WHERE 1=1`

// ListHistory returns history rows oldest-first for charting. Without an
// explicit city filter only active cities are included; with one, rows are
// returned regardless of the active flag so deactivated cities stay
// inspectable.
func (s *Store) ListHistory(ctx context.Context, q HistoryQuery) ([]HistoryRow, error) {
	sql := listHistoryBase
	args := []any{}
	argPos := 1

	if q.CityID != nil {
		sql += " AND h.monitored_city_id = $" + strconv.Itoa(argPos)
		args = append(args, *q.CityID)
		argPos++
	} else {
		sql += " AND mc.is_active"
	}
	if q.Since != nil {
		sql += " AND h.recorded_at >= $" + strconv.Itoa(argPos)
		args = append(args, *q.Since)
		argPos++
	}
	if q.Until != nil {
		sql += " AND h.recorded_at <= $" + strconv.Itoa(argPos)
		args = append(args, *q.Until)
	}

	sql += " ORDER BY h.recorded_at ASC"

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := make([]HistoryRow, 0)
	for rows.Next() {
		var row HistoryRow
		if err := rows.Scan(
			&row.ID,
			&row.MonitoredCityID,
			&row.AQI,
			&row.Category,
			&row.RecordedAt,
			&row.StationName,
			&row.Keyword,
		); err != nil {
			return nil, err
		}
		history = append(history, row)
	}
	return history, rows.Err()
}
