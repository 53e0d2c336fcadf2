package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/daffaahh/HowsTheAir-be/internal/db"
)

func (s *Server) handleSync(c *gin.Context) {
	count, err := s.syncer.Run(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"syncedCount": count})
}

// parseDate accepts RFC 3339 timestamps and plain dates, the two formats
// the dashboard sends.
func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func (s *Server) handleListReadings(c *gin.Context) {
	query := db.SnapshotQuery{Search: c.Query("search")}

	if startStr := c.Query("startDate"); startStr != "" {
		t, err := parseDate(startStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid startDate"})
			return
		}
		query.Since = &t
	}
	if endStr := c.Query("endDate"); endStr != "" {
		t, err := parseDate(endStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid endDate"})
			return
		}
		query.Until = &t
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	snapshots, err := s.store.ListSnapshots(ctx, query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, snapshots)
}

func (s *Server) handleListHistory(c *gin.Context) {
	query := db.HistoryQuery{}

	if idStr := c.Query("cityId"); idStr != "" {
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cityId"})
			return
		}
		query.CityID = &id
	}

	if startStr := c.Query("startDate"); startStr != "" {
		t, err := parseDate(startStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid startDate"})
			return
		}
		query.Since = &t
	}
	if endStr := c.Query("endDate"); endStr != "" {
		t, err := parseDate(endStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid endDate"})
			return
		}
		query.Until = &t
	}

	// Dashboard default: trailing window when no explicit range was given.
	if query.Since == nil && query.Until == nil {
		since := time.Now().UTC().AddDate(0, 0, -s.cfg.HistoryDays)
		query.Since = &since
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	history, err := s.store.ListHistory(ctx, query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, history)
}

func (s *Server) handleLastSync(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	entry, err := s.store.LastSync(ctx)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusOK, nil)
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, entry)
}
