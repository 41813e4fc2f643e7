package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/dealdesk-backend/api/controllers"
	dealcontrollers "github.com/angelmondragon/dealdesk-backend/api/controllers/deals"
	"github.com/angelmondragon/dealdesk-backend/api/middleware"
	"github.com/angelmondragon/dealdesk-backend/internal/deals"
	"github.com/angelmondragon/dealdesk-backend/pkg/config"
	"github.com/angelmondragon/dealdesk-backend/pkg/db"
	"github.com/angelmondragon/dealdesk-backend/pkg/logger"
	"github.com/angelmondragon/dealdesk-backend/pkg/redis"
)

// NewRouter wires the HTTP surface. redisClient may be nil, which disables
// idempotent replay; gatherer may be nil, which leaves /metrics unmounted.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	gatherer prometheus.Gatherer,
	dealsService deals.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	readiness := map[string]controllers.Pinger{"db": dbP}
	var idempotencyStore redis.IdempotencyStore
	if redisClient != nil {
		readiness["redis"] = redisClient
		idempotencyStore = redisClient
	} else {
		readiness["redis"] = nil
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg.App.Env))
		r.Get("/ready", controllers.HealthReady(cfg.App.Env, readiness, logg))
	})

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	// inline so the idempotency rules see the fully resolved route pattern
	idempotent := middleware.Idempotency(idempotencyStore, logg)

	r.Route("/api/v1/deals", func(r chi.Router) {
		r.Get("/", dealcontrollers.List(dealsService, logg))
		r.With(idempotent).Post("/", dealcontrollers.Create(dealsService, logg))
		r.Route("/{dealId}", func(r chi.Router) {
			r.Get("/", dealcontrollers.Get(dealsService, logg))
			r.With(idempotent).Put("/", dealcontrollers.Update(dealsService, logg))
			r.Get("/draft", dealcontrollers.Draft(dealsService, logg))
		})
	})

	return r
}
