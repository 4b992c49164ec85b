package itinerary

import (
	"errors"
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

// Generate handles POST /itinerary/generate.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Generate"))

	var trip types.TripRequest
	if err := api.DecodeJSONBody(w, r, &trip); err != nil {
		l.ErrorContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := trip.Validate(); err != nil {
		l.ErrorContext(ctx, "Invalid trip request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.GenerateItinerary(ctx, &trip)
	if err != nil {
		status, message := mapPipelineError(err)
		l.ErrorContext(ctx, "Failed to generate itinerary", slog.Any("error", err))
		api.ErrorResponse(w, r, status, message)
		return
	}

	l.InfoContext(ctx, "Itinerary generated successfully")
	api.WriteJSONResponse(w, r, http.StatusOK, result)
}

// Revise handles POST /itinerary/revise.
func (h *Handler) Revise(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Revise"))

	var req types.ReviseEventRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.ErrorContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Instruction == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "instruction is required")
		return
	}
	if len(req.Context.CurrentDetails) == 0 {
		api.ErrorResponse(w, r, http.StatusBadRequest, "event context is required")
		return
	}

	result, err := h.service.ReviseEvent(ctx, &req)
	if err != nil {
		status, message := mapPipelineError(err)
		l.ErrorContext(ctx, "Failed to revise event", slog.Any("error", err))
		api.ErrorResponse(w, r, status, message)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, result)
}

// mapPipelineError translates the error taxonomy into user-facing
// responses. Fatal categories arrive here unmodified from the service.
func mapPipelineError(err error) (int, string) {
	switch {
	case errors.Is(err, types.ErrMissingCredential), errors.Is(err, types.ErrAuth):
		return http.StatusUnauthorized, "Authentication with the itinerary provider failed. Check your API key."
	case errors.Is(err, types.ErrTransport):
		return http.StatusBadGateway, "The itinerary provider is unavailable. Please try again."
	case errors.Is(err, types.ErrEmptyResponse),
		errors.Is(err, types.ErrNoJSONFound),
		errors.Is(err, types.ErrJSONParse),
		errors.Is(err, types.ErrInvalidShape):
		return http.StatusBadGateway, "Failed to generate itinerary. Please try again."
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}
