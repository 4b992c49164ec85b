package factcheck

import (
	"log/slog"
	"net/http"

	"tripai/internal/api"
	"tripai/internal/types"
)

type Handler struct {
	service Service
	logger  *slog.Logger
}

func NewHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

type validateLocationRequest struct {
	Name   string            `json:"name"`
	Center types.Coordinates `json:"center"`
}

type validatePriceRequest struct {
	Name string  `json:"name"`
	Cost float64 `json:"cost"`
}

// ValidateLocation handles POST /factcheck/location.
func (h *Handler) ValidateLocation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "ValidateLocation"))

	var req validateLocationRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.ErrorContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "name is required")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, h.service.ValidateLocation(ctx, req.Name, req.Center))
}

// ValidatePrice handles POST /factcheck/price.
func (h *Handler) ValidatePrice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "ValidatePrice"))

	var req validatePriceRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.ErrorContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "name is required")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, h.service.ValidatePrice(ctx, req.Name, req.Cost))
}
