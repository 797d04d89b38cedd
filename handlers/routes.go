package handlers

import "github.com/gofiber/fiber/v2"

// RegisterRoutes mounts the query surface and the admin sync endpoints
func RegisterRoutes(app *fiber.App, health *HealthHandler, listings *ListingHandler, admin *AdminHandler, adminToken string) {
	app.Get("/health", health.GetHealth)

	api := app.Group("/api/v1")
	api.Get("/listings", listings.GetListings)
	api.Get("/listings/:code", listings.GetListingByCode)

	adminGroup := api.Group("/admin", RequireAdminToken(adminToken))
	adminGroup.Post("/sync", admin.TriggerSync)
	adminGroup.Post("/sync/full", admin.TriggerFullSync)
	adminGroup.Get("/sync/status", admin.GetSyncStatus)
}
