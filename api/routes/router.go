package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/reytechinc/scprs-backend/api/controllers"
	"github.com/reytechinc/scprs-backend/api/middleware"
	"github.com/reytechinc/scprs-backend/internal/pricing"
	"github.com/reytechinc/scprs-backend/internal/seeder"
	"github.com/reytechinc/scprs-backend/pkg/config"
	"github.com/reytechinc/scprs-backend/pkg/db"
	"github.com/reytechinc/scprs-backend/pkg/logger"
)

// RouterParams groups everything the HTTP surface needs.
type RouterParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	Store      db.Pinger
	Prober     controllers.PortalProber
	Pricing    pricing.Service
	Seeder     seeder.Service
	Prometheus prometheus.Gatherer
}

// NewRouter assembles the API: health and metrics at the root, versioned
// pricing and seeder operations under /api/v1.
func NewRouter(p RouterParams) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(p.Logger),
		middleware.RequestID(p.Logger),
		middleware.Logging(p.Logger),
		middleware.CORS(),
	)

	r.Get("/health/live", controllers.HealthLive(p.Config))
	r.Get("/health/ready", controllers.HealthReady(p.Config, p.Logger, p.Store))

	if p.Prometheus != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Prometheus, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/pricing", func(r chi.Router) {
			r.Post("/lookup", controllers.PricingLookup(p.Logger, p.Pricing))
			r.Post("/bulk", controllers.PricingBulkLookup(p.Logger, p.Pricing))
			r.Get("/stats", controllers.PricingStats(p.Logger, p.Pricing))
		})

		r.Route("/seeder", func(r chi.Router) {
			r.Post("/start", controllers.SeederStart(p.Logger, p.Seeder))
			r.Post("/stop", controllers.SeederStop(p.Seeder))
			r.Get("/status", controllers.SeederStatus(p.Seeder))
		})

		r.Get("/portal/health", controllers.PortalHealth(p.Prober))
	})

	return r
}
