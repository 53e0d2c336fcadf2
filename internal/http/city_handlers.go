package http

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/daffaahh/HowsTheAir-be/internal/db"
	"github.com/daffaahh/HowsTheAir-be/internal/waqi"
)

type createCityRequest struct {
	StationName string `json:"stationName" binding:"required"`
	Keyword     string `json:"keyword" binding:"required"`
	UID         *int64 `json:"uid"`
}

type updateCityRequest struct {
	Keyword string `json:"keyword" binding:"required"`
}

func (s *Server) handleCreateCity(c *gin.Context) {
	var req createCityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	// Validate the lookup key against the provider before persisting.
	target := req.Keyword
	if req.UID != nil {
		target = fmt.Sprintf("@%d", *req.UID)
	}
	if _, err := s.provider.Feed(ctx, target); err != nil {
		if errors.Is(err, waqi.ErrRejected) {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("keyword %q not recognized by provider", req.Keyword)})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to validate city against provider"})
		return
	}

	city, err := s.store.CreateCity(ctx, req.UID, req.StationName, req.Keyword)
	if err != nil {
		if errors.Is(err, db.ErrDuplicateCity) {
			c.JSON(http.StatusConflict, gin.H{"error": "city already registered"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	s.audit(ctx, db.ActionCreate, fmt.Sprintf("Created city %q (keyword=%s)", city.StationName, city.Keyword))
	c.JSON(http.StatusCreated, city)
}

func (s *Server) handleListCities(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	cities, err := s.store.ListCities(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, cities)
}

func (s *Server) handleToggleCity(c *gin.Context) {
	id, ok := cityIDParam(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	city, err := s.store.ToggleCity(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "city not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	s.audit(ctx, db.ActionUpdate, fmt.Sprintf("Toggled city %q to active=%v", city.StationName, city.IsActive))
	c.JSON(http.StatusOK, city)
}

func (s *Server) handleUpdateCity(c *gin.Context) {
	id, ok := cityIDParam(c)
	if !ok {
		return
	}

	var req updateCityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	if _, err := s.provider.Feed(ctx, req.Keyword); err != nil {
		if errors.Is(err, waqi.ErrRejected) {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("keyword %q not recognized by provider", req.Keyword)})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to validate keyword against provider"})
		return
	}

	city, err := s.store.UpdateCityKeyword(ctx, id, req.Keyword)
	if err != nil {
		switch {
		case errors.Is(err, db.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "city not found"})
		case errors.Is(err, db.ErrDuplicateCity):
			c.JSON(http.StatusConflict, gin.H{"error": "keyword already registered"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	s.audit(ctx, db.ActionUpdate, fmt.Sprintf("Updated city %q keyword to %q", city.StationName, city.Keyword))
	c.JSON(http.StatusOK, city)
}

func (s *Server) handleDeleteCity(c *gin.Context) {
	id, ok := cityIDParam(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	// The DELETE audit entry is written inside the same transaction as the
	// cascade, so it appears exactly once.
	if err := s.store.DeleteCity(ctx, id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "city not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func (s *Server) handleSearchStations(c *gin.Context) {
	keyword := c.Query("keyword")
	if keyword == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "keyword is required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	results, err := s.provider.Search(ctx, keyword)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, results)
}

func cityIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid city id"})
		return 0, false
	}
	return id, true
}

// audit records a CRUD mutation; a failed audit write never fails the
// request itself.
func (s *Server) audit(ctx context.Context, action, details string) {
	if err := s.store.AppendAudit(ctx, action, db.StatusSuccess, details); err != nil {
		log.Printf("audit %s failed: %v", action, err)
	}
}
