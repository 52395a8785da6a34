package web

import (
	"github.com/gofiber/fiber/v2"
)

// SetupRoutes configures the application routes.
func SetupRoutes(app *fiber.App, handlers *Handlers) {
	app.Get("/healthz", handlers.Healthz)

	api := app.Group("/api")
	api.Get("/capabilities", handlers.Capabilities)

	api.Post("/thread/preview", handlers.PreviewThread)
	api.Post("/thread/publish", handlers.PublishThread)

	// separator maintenance on a raw document
	api.Post("/fragments", handlers.InsertFragments)
	api.Delete("/fragments", handlers.RemoveFragments)

	auth := api.Group("/auth")
	auth.Get("/status", handlers.AuthStatus)
	auth.Post("/connect", handlers.AuthConnect)
	auth.Get("/callback", handlers.AuthCallback)
	auth.Post("/disconnect", handlers.AuthDisconnect)
}
