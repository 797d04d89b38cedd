package handlers

import (
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/fenilmodi00/ipo-catalog/jobs"
	"github.com/fenilmodi00/ipo-catalog/models"
	"github.com/fenilmodi00/ipo-catalog/shared"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type AdminHandler struct {
	SyncJob *jobs.ListingSyncJob
}

func NewAdminHandler(syncJob *jobs.ListingSyncJob) *AdminHandler {
	return &AdminHandler{SyncJob: syncJob}
}

// RequireAdminToken rejects requests without the configured bearer token.
// An empty token leaves the admin routes open.
func RequireAdminToken(token string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token == "" {
			return c.Next()
		}
		provided := strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "Unauthorized",
			})
		}
		return c.Next()
	}
}

// TriggerSync starts an incremental pass in the background
func (h *AdminHandler) TriggerSync(c *fiber.Ctx) error {
	return h.trigger(c, models.SyncModeIncremental)
}

// TriggerFullSync starts a purge-and-rebuild pass in the background
func (h *AdminHandler) TriggerFullSync(c *fiber.Ctx) error {
	return h.trigger(c, models.SyncModeFull)
}

func (h *AdminHandler) trigger(c *fiber.Ctx, mode models.SyncMode) error {
	logrus.WithFields(logrus.Fields{
		"component": "AdminHandler",
		"mode":      mode,
		"ip":        c.IP(),
	}).Info("Manual sync triggered via admin endpoint")

	err := h.SyncJob.Trigger(mode, "admin")
	if errors.Is(err, shared.ErrSyncInProgress) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"error":   "A sync pass is already running",
			"data":    h.SyncJob.Status().Lease,
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"success": true,
		"message": "Sync pass started",
		"mode":    mode,
	})
}

// GetSyncStatus returns the lease holder, the last pass summary and detail fetch metrics
func (h *AdminHandler) GetSyncStatus(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    h.SyncJob.Status(),
	})
}
