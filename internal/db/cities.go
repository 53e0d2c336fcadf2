package db

import (
	"context"
	"fmt"
)

const cityColumns = "id, uid, station_name, keyword, is_active, created_at"

func scanCity(row interface{ Scan(...any) error }) (MonitoredCity, error) {
	var c MonitoredCity
	err := row.Scan(&c.ID, &c.UID, &c.StationName, &c.Keyword, &c.IsActive, &c.CreatedAt)
	return c, err
}

// ListCities returns all monitored cities.
func (s *Store) ListCities(ctx context.Context) ([]MonitoredCity, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+cityColumns+" FROM monitored_cities ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cities := make([]MonitoredCity, 0)
	for rows.Next() {
		c, err := scanCity(rows)
		if err != nil {
			return nil, err
		}
		cities = append(cities, c)
	}
	return cities, rows.Err()
}

// ListActiveCities returns the cities flagged active, the sync worklist.
func (s *Store) ListActiveCities(ctx context.Context) ([]MonitoredCity, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+cityColumns+" FROM monitored_cities WHERE is_active ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cities := make([]MonitoredCity, 0)
	for rows.Next() {
		c, err := scanCity(rows)
		if err != nil {
			return nil, err
		}
		cities = append(cities, c)
	}
	return cities, rows.Err()
}

// GetCity returns one city by id.
func (s *Store) GetCity(ctx context.Context, id int64) (MonitoredCity, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+cityColumns+" FROM monitored_cities WHERE id = $1", id)
	c, err := scanCity(row)
	if err != nil {
		return MonitoredCity{}, mapRowError(err)
	}
	return c, nil
}

// CreateCity registers a new monitored city, active by default.
func (s *Store) CreateCity(ctx context.Context, uid *int64, stationName, keyword string) (MonitoredCity, error) {
	row := s.pool.QueryRow(ctx, `
INSERT INTO monitored_cities (uid, station_name, keyword, is_active, created_at)
VALUES ($1, $2, $3, TRUE, NOW())
RETURNING `+cityColumns, uid, stationName, keyword)

	c, err := scanCity(row)
	if err != nil {
		if isUniqueViolation(err) {
			return MonitoredCity{}, fmt.Errorf("%w: uid/keyword already registered", ErrDuplicateCity)
		}
		return MonitoredCity{}, err
	}
	return c, nil
}

// ToggleCity flips the active flag and returns the updated row.
func (s *Store) ToggleCity(ctx context.Context, id int64) (MonitoredCity, error) {
	row := s.pool.QueryRow(ctx, `
UPDATE monitored_cities SET is_active = NOT is_active
WHERE id = $1
RETURNING `+cityColumns, id)

	c, err := scanCity(row)
	if err != nil {
		return MonitoredCity{}, mapRowError(err)
	}
	return c, nil
}

// UpdateCityKeyword changes a city's lookup keyword. The uid and display
// name are immutable after creation.
func (s *Store) UpdateCityKeyword(ctx context.Context, id int64, keyword string) (MonitoredCity, error) {
	row := s.pool.QueryRow(ctx, `
UPDATE monitored_cities SET keyword = $2
WHERE id = $1
RETURNING `+cityColumns, id, keyword)

	c, err := scanCity(row)
	if err != nil {
		if isUniqueViolation(err) {
			return MonitoredCity{}, fmt.Errorf("%w: keyword already registered", ErrDuplicateCity)
		}
		return MonitoredCity{}, mapRowError(err)
	}
	return c, nil
}

// DeleteCity removes a city together with its snapshot and history rows and
// appends the DELETE audit entry, all in one transaction.
func (s *Store) DeleteCity(ctx context.Context, id int64) error {
	city, err := s.GetCity(ctx, id)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM air_quality_history WHERE monitored_city_id = $1", id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, "DELETE FROM air_quality WHERE monitored_city_id = $1", id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, "DELETE FROM monitored_cities WHERE id = $1", id); err != nil {
		return err
	}

	details := fmt.Sprintf("Deleted city %q (id=%d)", city.StationName, city.ID)
	if _, err := tx.Exec(ctx, appendAuditSQL, ActionDelete, StatusSuccess, details); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
