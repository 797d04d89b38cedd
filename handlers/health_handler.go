package handlers

import (
	"context"
	"database/sql"
	"time"

	"github.com/fenilmodi00/ipo-catalog/database"
	"github.com/fenilmodi00/ipo-catalog/services"
	"github.com/gofiber/fiber/v2"
)

type HealthHandler struct {
	// DB is nil when the catalog runs on the in-memory store
	DB    *sql.DB
	Cache *services.CacheService
}

func NewHealthHandler(db *sql.DB, cache *services.CacheService) *HealthHandler {
	return &HealthHandler{DB: db, Cache: cache}
}

func (h *HealthHandler) GetHealth(c *fiber.Ctx) error {
	response := fiber.Map{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
	}
	if h.Cache != nil {
		response["cache_entries"] = h.Cache.Size()
	}
	if h.DB == nil {
		return c.JSON(response)
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
	defer cancel()
	dbStats, err := database.HealthCheck(ctx, h.DB)
	if err != nil {
		response["status"] = "degraded"
		response["database_error"] = err.Error()
		return c.Status(fiber.StatusServiceUnavailable).JSON(response)
	}

	response["database_stats"] = fiber.Map{
		"open_connections": dbStats.OpenConnections,
		"in_use":           dbStats.InUse,
		"idle":             dbStats.Idle,
		"wait_count":       dbStats.WaitCount,
		"wait_duration_ms": dbStats.WaitDuration.Milliseconds(),
	}
	return c.JSON(response)
}
