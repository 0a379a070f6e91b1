package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/suar-net/arango-go/internal/model"
	"github.com/suar-net/arango-go/internal/service"
)

// GatewayHandler serves the relay, history and alias endpoints.
type GatewayHandler struct {
	service service.IGatewayService
	logger  zerolog.Logger
}

func NewGatewayHandler(s service.IGatewayService, l zerolog.Logger) *GatewayHandler {
	return &GatewayHandler{
		service: s,
		logger:  l,
	}
}

func (h *GatewayHandler) Relay(w http.ResponseWriter, r *http.Request) {
	var dto model.DTORequest
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}

	if err := validate.Struct(&dto); err != nil {
		respondWithError(w, http.StatusBadRequest, ValidationError(err))
		return
	}

	dtoResponse, err := h.service.ProcessRequest(r.Context(), username(r), &dto)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrUnknownAlias):
			respondWithError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrRequestTimeout):
			respondWithError(w, http.StatusGatewayTimeout, err.Error())
		case errors.Is(err, service.ErrTransport):
			h.logger.Warn().Err(err).Str("alias", dto.Alias).Msg("relay failed")
			respondWithError(w, http.StatusBadGateway, err.Error())
		default:
			h.logger.Error().Err(err).Msg("relay failed")
			respondWithError(w, http.StatusInternalServerError, "An internal error occurred")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, dtoResponse)
}

func (h *GatewayHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondWithError(w, http.StatusBadRequest, "Query parameter 'limit' must be a non-negative integer")
			return
		}
		limit = n
	}

	entries, err := h.service.History(r.Context(), username(r), limit)
	if err != nil {
		if errors.Is(err, service.ErrHistoryDisabled) {
			respondWithError(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error().Err(err).Msg("loading history failed")
		respondWithError(w, http.StatusInternalServerError, "An internal error occurred")
		return
	}

	respondWithJSON(w, http.StatusOK, entries)
}

func (h *GatewayHandler) Aliases(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string][]string{"aliases": h.service.Aliases()})
}

func username(r *http.Request) string {
	if claims, ok := GetUserFromContext(r.Context()); ok {
		return claims.Username
	}
	return ""
}
