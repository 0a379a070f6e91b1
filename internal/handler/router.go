package handler

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/suar-net/arango-go/arango"
	"github.com/suar-net/arango-go/internal/service"
)

// Dependencies is everything the router hands to its handlers. DB may be nil
// when the history store is not configured.
type Dependencies struct {
	Auth           service.IAuthService
	Gateway        service.IGatewayService
	Client         *arango.Client
	DB             *sql.DB
	Logger         zerolog.Logger
	AllowedOrigins []string
}

// SetupRouter creates the main chi router for the gateway.
func SetupRouter(deps Dependencies) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(deps.Logger))
	r.Use(middleware.Recoverer)
	r.Use(Metrics)

	origins := deps.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	healthHandler := NewHealthHandler(deps.Client, deps.DB, deps.Logger)
	authHandler := NewAuthHandler(deps.Auth, deps.Logger)
	gatewayHandler := NewGatewayHandler(deps.Gateway, deps.Logger)
	authMiddleware := NewAuthMiddleware(deps.Auth)

	r.Get("/health", healthHandler.Check)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/login", authHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			r.Post("/request", gatewayHandler.Relay)
			r.Get("/history", gatewayHandler.History)
			r.Get("/connections", gatewayHandler.Aliases)
		})
	})

	return r
}
