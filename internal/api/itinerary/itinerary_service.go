package itinerary

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"tripai/app/observability/metrics"
	generativeAI "tripai/internal/api/generative_ai"
	"tripai/internal/types"
)

// AIClient is the slice of the LLM client this service needs.
type AIClient interface {
	Complete(ctx context.Context, messages []generativeAI.Message, temperature float32) (string, error)
}

// Config carries the tunables of the generation pipeline. The retry
// bound is explicit and configurable; unbounded retry against a paid
// API is a cost risk.
type Config struct {
	Temperature          float32
	RetryTemperature     float32
	MaxUniquenessRetries int
	CacheTTL             time.Duration
}

// Ensure implementation satisfies the interface
var _ Service = (*ServiceImpl)(nil)

// Service defines the business logic contract for itinerary operations.
type Service interface {
	GenerateItinerary(ctx context.Context, trip *types.TripRequest) (*types.GenerateItineraryResponse, error)
	ReviseEvent(ctx context.Context, req *types.ReviseEventRequest) (*types.ReviseEventResponse, error)
}

// ServiceImpl provides the implementation for Service.
type ServiceImpl struct {
	logger   *slog.Logger
	aiClient AIClient
	cache    *cache.Cache
	cfg      Config
}

// NewService creates a new itinerary service instance. The response
// cache is owned by the service; closing is handled by go-cache's
// janitor when the process exits.
func NewService(aiClient AIClient, cfg Config, logger *slog.Logger) *ServiceImpl {
	if cfg.MaxUniquenessRetries < 0 {
		cfg.MaxUniquenessRetries = 0
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ServiceImpl{
		logger:   logger,
		aiClient: aiClient,
		cache:    cache.New(ttl, ttl),
		cfg:      cfg,
	}
}

func generationCacheKey(trip *types.TripRequest) string {
	return fmt.Sprintf("itinerary:%s:%s:%s:%.2f:%d:%s:%s",
		trip.Destination, trip.Dates.Start, trip.Dates.End,
		trip.Budget, trip.NumPeople, trip.Interests, trip.AdditionalNotes)
}

// GenerateItinerary runs the linear pipeline: prompt, LLM call,
// sanitize, uniqueness check with at most cfg.MaxUniquenessRetries
// avoid-list re-prompts, cost normalization, map-point extraction.
// The returned response may be served from the cache and is shared
// between callers; callers must treat it as read-only. Revisions
// operate on the client-supplied itinerary, never on this value.
func (s *ServiceImpl) GenerateItinerary(ctx context.Context, trip *types.TripRequest) (*types.GenerateItineraryResponse, error) {
	ctx, span := otel.Tracer("ItineraryService").Start(ctx, "GenerateItinerary", trace.WithAttributes(
		attribute.String("trip.destination", trip.Destination),
	))
	defer span.End()

	l := s.logger.With(slog.String("destination", trip.Destination))
	start := time.Now()
	defer func() {
		metrics.Get().GenerationRequestsTotal.Add(ctx, 1)
		metrics.Get().GenerationDurationSeconds.Record(ctx, time.Since(start).Seconds())
	}()

	if err := trip.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid trip request")
		return nil, err
	}

	cacheKey := generationCacheKey(trip)
	if cached, found := s.cache.Get(cacheKey); found {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		l.DebugContext(ctx, "Serving itinerary from cache")
		return cached.(*types.GenerateItineraryResponse), nil
	}

	userPrompt := generateItineraryPrompt(trip)
	itin, err := s.completeAndParse(ctx, userPrompt, s.cfg.Temperature)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to generate itinerary")
		return nil, err
	}

	for attempt := 0; attempt < s.cfg.MaxUniquenessRetries && !hasUniqueNames(itin); attempt++ {
		used := eventNames(itin)
		l.InfoContext(ctx, "Duplicate event names found, retrying with avoid list",
			slog.Int("attempt", attempt+1),
			slog.Int("names", len(used)))
		metrics.Get().UniquenessRetriesTotal.Add(ctx, 1)

		retry, retryErr := s.completeAndParse(ctx, appendAvoidList(userPrompt, used), s.cfg.RetryTemperature)
		if retryErr != nil {
			// The first itinerary is still usable; duplicates beat a
			// user-facing failure.
			l.WarnContext(ctx, "Uniqueness retry failed, keeping original itinerary", slog.Any("error", retryErr))
			break
		}
		itin = retry
	}
	if !hasUniqueNames(itin) {
		// Accepted as-is after the bounded retry. Logged only.
		l.WarnContext(ctx, "Itinerary still contains duplicate event names after retry")
	}

	assignEventIDs(itin)
	normalizeCosts(itin, trip.NumPeople)
	annotateSimilarActivities(itin)

	result := &types.GenerateItineraryResponse{
		Itinerary: itin,
		Locations: extractMapPoints(itin),
	}
	s.cache.Set(cacheKey, result, cache.DefaultExpiration)
	span.SetAttributes(attribute.Int("itinerary.days", len(itin.Days)))

	l.InfoContext(ctx, "Itinerary generated",
		slog.Int("days", len(itin.Days)),
		slog.Int("locations", len(result.Locations)),
		slog.Float64("group_total", itin.GroupTotal))
	return result, nil
}

func (s *ServiceImpl) completeAndParse(ctx context.Context, userPrompt string, temperature float32) (*types.Itinerary, error) {
	ctx, span := otel.Tracer("ItineraryService").Start(ctx, "CompleteAndParse", trace.WithAttributes(
		attribute.Int("prompt.length", len(userPrompt)),
	))
	defer span.End()

	messages := []generativeAI.Message{
		{Role: generativeAI.RoleSystem, Content: systemPrompt},
		{Role: generativeAI.RoleUser, Content: userPrompt},
	}

	callStart := time.Now()
	raw, err := s.aiClient.Complete(ctx, messages, temperature)
	metrics.Get().LlmCallDurationSeconds.Record(ctx, time.Since(callStart).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "LLM call failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("response.length", len(raw)))

	itin, err := parseItinerary(raw)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to parse LLM response")
		return nil, err
	}
	return itin, nil
}

// ReviseEvent is a second LLM round-trip: it describes the event and
// the requested change, parses a conversational reply plus an optional
// replacement event, and patches the owning day in place.
func (s *ServiceImpl) ReviseEvent(ctx context.Context, req *types.ReviseEventRequest) (*types.ReviseEventResponse, error) {
	ctx, span := otel.Tracer("ItineraryService").Start(ctx, "ReviseEvent", trace.WithAttributes(
		attribute.String("event.type", req.Context.Type),
	))
	defer span.End()

	l := s.logger.With(slog.String("handler", "ReviseEvent"))
	defer metrics.Get().RevisionRequestsTotal.Add(ctx, 1)

	messages := []generativeAI.Message{
		{Role: generativeAI.RoleSystem, Content: systemPrompt},
		{Role: generativeAI.RoleUser, Content: generateRevisionPrompt(req.Instruction, req.Context)},
	}

	callStart := time.Now()
	raw, err := s.aiClient.Complete(ctx, messages, s.cfg.Temperature)
	metrics.Get().LlmCallDurationSeconds.Record(ctx, time.Since(callStart).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "LLM call failed")
		return nil, err
	}

	reply, err := parseRevision(raw)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to parse revision reply")
		return nil, err
	}

	resp := &types.ReviseEventResponse{
		Message:      reply.Message,
		UpdatedEvent: reply.UpdatedEvent,
		Itinerary:    req.Itinerary,
	}
	if reply.UpdatedEvent == nil || req.Itinerary == nil {
		return resp, nil
	}

	numPeople := req.NumPeople
	if numPeople < 1 {
		numPeople = inferNumPeople(req.Itinerary)
	}
	if !applyEventUpdate(req.Itinerary, req.Context, reply.UpdatedEvent, numPeople) {
		// Known weak point: the edit is dropped rather than surfaced.
		l.WarnContext(ctx, "Revision target not found in itinerary, edit dropped")
	}
	return resp, nil
}
