package internal

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/karloscodes/cartridge"
	cartridgemiddleware "github.com/karloscodes/cartridge/middleware"

	"funnelscope/internal/config"
	"funnelscope/internal/http"
)

// apiCORSConfig is the shared CORS setup for the read-only analytics API.
var apiCORSConfig = &cors.Config{
	AllowOrigins: "*",
	AllowMethods: "GET,OPTIONS",
	AllowHeaders: "Origin, Content-Type, Accept, Authorization",
}

// MountAppRoutes mounts all application routes using cartridge's route API.
func MountAppRoutes(srv *cartridge.Server) {
	cfg := config.GetConfig()

	// Rate limiting only bites in production; in development and tests it
	// would get in the way.
	conditionalRateLimiter := func(limiter fiber.Handler) fiber.Handler {
		return func(c *fiber.Ctx) error {
			if cfg.IsProduction() {
				return limiter(c)
			}
			return c.Next()
		}
	}

	apiRateLimiter := conditionalRateLimiter(cartridgemiddleware.RateLimiter(
		cartridgemiddleware.WithMax(120),
		cartridgemiddleware.WithDuration(time.Minute),
	))

	apiConfig := &cartridge.RouteConfig{
		EnableCORS:       true,
		CustomMiddleware: []fiber.Handler{apiRateLimiter},
		CORSConfig:       apiCORSConfig,
	}

	// === HEALTH ===
	srv.Get("/_health", http.HealthIndexAction)
	srv.Head("/_health", http.HealthIndexAction)

	// === FUNNELS ===
	srv.Get("/api/v1/funnels", http.FunnelsIndexAction, apiConfig)
	srv.Get("/api/v1/funnels/:id", http.FunnelsShowAction, apiConfig)

	// === ANALYTICS ===
	srv.Get("/api/v1/funnels/:id/overview", http.FunnelOverviewAction, apiConfig)
	srv.Get("/api/v1/funnels/:id/traffic", http.FunnelTrafficAction, apiConfig)
	srv.Get("/api/v1/funnels/:id/campaigns", http.FunnelCampaignsAction, apiConfig)
	srv.Get("/api/v1/funnels/:id/categories", http.FunnelCategoriesAction, apiConfig)
	srv.Get("/api/v1/funnels/:id/properties", http.FunnelPropertyBreakdownAction, apiConfig)
	srv.Get("/api/v1/funnels/:id/timeseries", http.FunnelTimeSeriesAction, apiConfig)
	srv.Get("/api/v1/funnels/:id/flow", http.FunnelFlowAction, apiConfig)
	srv.Get("/api/v1/funnels/:id/stages", http.FunnelStagesAction, apiConfig)
	srv.Get("/api/v1/funnels/:id/attribution", http.FunnelAttributionAction, apiConfig)
	srv.Get("/api/v1/funnels/:id/engagement", http.FunnelEngagementAction, apiConfig)
	srv.Get("/api/v1/funnels/:id/frequency", http.FunnelFrequencyAction, apiConfig)
	srv.Get("/api/v1/funnels/:id/events/names", http.FunnelEventNamesAction, apiConfig)
	srv.Get("/api/v1/funnels/:id/visitors", http.FunnelVisitorsAction, apiConfig)
	srv.Get("/api/v1/funnels/:id/vitals", http.FunnelVitalsAction, apiConfig)
}
