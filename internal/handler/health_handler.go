package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/suar-net/arango-go/arango"
)

type HealthHandler struct {
	client *arango.Client
	db     *sql.DB
	logger zerolog.Logger
}

// NewHealthHandler checks the default ArangoDB connection and, when db is
// not nil, the history database.
func NewHealthHandler(client *arango.Client, db *sql.DB, logger zerolog.Logger) *HealthHandler {
	return &HealthHandler{
		client: client,
		db:     db,
		logger: logger,
	}
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	info, err := h.client.Version(ctx)
	if err != nil {
		h.logger.Warn().Err(err).Str("alias", h.client.Connection().Alias()).Msg("health check failed: arangodb unavailable")
		respondWithError(w, http.StatusServiceUnavailable, "ArangoDB connection failed")
		return
	}

	if h.db != nil {
		if err := h.db.PingContext(ctx); err != nil {
			h.logger.Warn().Err(err).Msg("health check failed: database connection error")
			respondWithError(w, http.StatusServiceUnavailable, "Database connection failed")
			return
		}
	}

	respondWithJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"alias":   h.client.Connection().Alias(),
		"server":  info.Server,
		"version": info.Version,
	})
}
