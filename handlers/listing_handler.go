package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/fenilmodi00/ipo-catalog/models"
	"github.com/fenilmodi00/ipo-catalog/services"
	"github.com/fenilmodi00/ipo-catalog/shared"
	"github.com/gofiber/fiber/v2"
)

type ListingHandler struct {
	Service *services.ListingQueryService
}

func NewListingHandler(service *services.ListingQueryService) *ListingHandler {
	return &ListingHandler{Service: service}
}

// GetListings serves one filtered page of the catalog
func (h *ListingHandler) GetListings(c *fiber.Ctx) error {
	filter, err := parseListingFilter(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	page, err := h.Service.ListListings(c.Context(), filter)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    page,
	})
}

func (h *ListingHandler) GetListingByCode(c *fiber.Ctx) error {
	view, err := h.Service.GetListingByCode(c.Context(), c.Params("code"))
	if errors.Is(err, shared.ErrListingNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "Listing not found",
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    view,
	})
}

func parseListingFilter(c *fiber.Ctx) (models.ListingFilter, error) {
	filter := models.ListingFilter{Search: c.Query("search")}

	if raw := c.Query("status"); raw != "" {
		status := models.ListingStatus(strings.ToUpper(raw))
		if !status.Valid() {
			return filter, errors.New("invalid status: " + raw)
		}
		filter.Status = &status
	}

	var err error
	if filter.IsNew, err = optionalBool(c, "is_new"); err != nil {
		return filter, err
	}
	if filter.HasResultsFlag, err = optionalBool(c, "has_results"); err != nil {
		return filter, err
	}

	if filter.Page, err = optionalInt(c, "page"); err != nil {
		return filter, err
	}
	if filter.Page > models.MaxPage {
		return filter, fmt.Errorf("invalid page: must not exceed %d", models.MaxPage)
	}
	if filter.PageSize, err = optionalInt(c, "page_size"); err != nil {
		return filter, err
	}
	return filter, nil
}

func optionalBool(c *fiber.Ctx, key string) (*bool, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, errors.New("invalid " + key + ": " + raw)
	}
	return &v, nil
}

func optionalInt(c *fiber.Ctx, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("invalid " + key + ": " + raw)
	}
	return v, nil
}
