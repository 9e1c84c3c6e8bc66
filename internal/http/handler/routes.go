package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"

	"propertybot/internal/service"
)

// Routes holds what the gateway binary's HTTP surface needs.
type Routes struct {
	// BasePath mounts the API group, e.g. /api. Empty mounts it at the root.
	BasePath    string
	Listings    service.ListingService
	Gateway     service.Gateway
	Brochures   service.BrochureService
	Webhook     MessageDispatcher
	VerifyToken string
	Health      []Pinger
	Gatherer    prometheus.Gatherer
}

// RegisterRoutes attaches the gateway routes to app.
func RegisterRoutes(app *fiber.App, r Routes) {
	app.Get("/health", HealthCheck(r.Health...))
	app.Get("/healthz", LivenessProbe())
	if r.Gatherer != nil {
		app.Get("/metrics", Metrics(r.Gatherer))
	}

	app.Get("/webhook", VerifyWebhook(r.VerifyToken))
	app.Post("/webhook", ReceiveWebhook(r.Webhook))

	api := app.Group(r.BasePath)
	api.Get("/test", APITest())

	api.Post("/process-message", ProcessMessage(r.Gateway))
	api.Post("/process-brochure", ProcessBrochure(r.Gateway))

	api.Post("/add-property", AddProperty(r.Listings))
	api.Get("/properties", ListProperties(r.Listings))
	api.Get("/property/:id", GetProperty(r.Listings))
	api.Put("/property/:id", UpdateProperty(r.Listings))
	api.Delete("/properties/:id", DeleteProperty(r.Listings))

	api.Get("/brochures/:name", DownloadBrochure(r.Brochures))
}

// ChatRoutes holds what the chat bot binary's HTTP surface needs.
type ChatRoutes struct {
	Events EventSubmitter
	// Session is the bridge session whose events are accepted.
	Session string
	// HMACKey, when set, is the key the bridge signs webhook bodies with.
	HMACKey  string
	Gatherer prometheus.Gatherer
}

// RegisterChatRoutes attaches the chat bridge receiver routes to app.
func RegisterChatRoutes(app *fiber.App, r ChatRoutes) {
	app.Get("/healthz", LivenessProbe())
	if r.Gatherer != nil {
		app.Get("/metrics", Metrics(r.Gatherer))
	}
	app.Post("/events", ChatEvents(r.Events, r.Session, r.HMACKey))
}
