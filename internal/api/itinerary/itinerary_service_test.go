package itinerary

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	generativeAI "tripai/internal/api/generative_ai"
	"tripai/internal/types"
)

// --- Mocks for Dependencies ---

type MockAIClient struct {
	mock.Mock
}

func (m *MockAIClient) Complete(ctx context.Context, messages []generativeAI.Message, temperature float32) (string, error) {
	args := m.Called(ctx, messages, temperature)
	return args.String(0), args.Error(1)
}

func newTestService(aiClient AIClient) *ServiceImpl {
	return NewService(aiClient, Config{
		Temperature:          0.5,
		RetryTemperature:     0.3,
		MaxUniquenessRetries: 1,
		CacheTTL:             time.Minute,
	}, slog.New(slog.NewTextHandler(os.Stderr, nil)))
}

func lisbonTrip() *types.TripRequest {
	return &types.TripRequest{
		Destination: "Lisbon",
		Dates:       types.DateRange{Start: "2025-06-01", End: "2025-06-03"},
		Budget:      900,
		NumPeople:   3,
		Interests:   "food, history",
	}
}

const lisbonJSON = `{
  "days": [
    {
      "date": "2025-06-01",
      "activities": [
        {"time": "09:00", "name": "Old Town Walk", "description": "Alfama alleys", "cost": 20, "coordinates": {"lat": 38.7139, "lng": -9.1335}, "transport": {"method": "walk", "duration": "10 min", "cost": 0}},
        {"time": "15:00", "name": "Tile Museum", "description": "Azulejo collection", "cost": 10, "coordinates": {"lat": 38.7247, "lng": -9.1137}}
      ],
      "meals": [
        {"type": "breakfast", "time": "08:00", "name": "Pastelaria Santo Antonio", "description": "Pasteis de nata", "cost": 6, "coordinates": {"lat": 38.7133, "lng": -9.1331}},
        {"type": "lunch", "time": "13:00", "name": "Tasca do Chico", "description": "Petiscos", "cost": 14, "coordinates": {"lat": 38.7112, "lng": -9.1442}},
        {"type": "dinner", "time": "20:00", "name": "Cervejaria Ramiro", "description": "Seafood", "cost": 30, "coordinates": {"lat": 38.7205, "lng": -9.1357}}
      ],
      "accommodation_options": [
        {"name": "Alfama Guesthouse", "description": "Quiet rooms", "type": "guesthouse", "cost_per_night": 60, "distance_to_next_activity": "1 km"}
      ]
    },
    {
      "date": "2025-06-02",
      "activities": [
        {"time": "10:00", "name": "Belem Tower", "description": "River fortress", "cost": 8, "coordinates": {"lat": 38.6916, "lng": -9.2160}}
      ],
      "meals": [
        {"type": "breakfast", "time": "08:30", "name": "Fabrica da Nata", "description": "Coffee and pastry", "cost": 5, "coordinates": {"lat": 38.7147, "lng": -9.1394}},
        {"type": "lunch", "time": "13:30", "name": "Time Out Market", "description": "Food hall", "cost": 16, "coordinates": {"lat": 38.7071, "lng": -9.1458}},
        {"type": "dinner", "time": "19:30", "name": "Taberna da Rua das Flores", "description": "Small plates", "cost": 28, "coordinates": {"lat": 38.7097, "lng": -9.1437}}
      ]
    },
    {
      "date": "2025-06-03",
      "activities": [
        {"time": "09:30", "name": "Jeronimos Monastery", "description": "Manueline cloisters", "cost": 12, "coordinates": {"lat": 38.6979, "lng": -9.2068}}
      ],
      "meals": [
        {"type": "breakfast", "time": "08:15", "name": "Copenhagen Coffee Lab", "description": "Breakfast bowls", "cost": 7, "coordinates": {"lat": 38.7106, "lng": -9.1520}},
        {"type": "lunch", "time": "12:45", "name": "O Trevo", "description": "Bifanas", "cost": 9, "coordinates": {"lat": 38.7104, "lng": -9.1422}},
        {"type": "dinner", "time": "20:30", "name": "A Cevicheria", "description": "Peruvian fusion", "cost": 32, "coordinates": {"lat": 38.7158, "lng": -9.1480}}
      ]
    }
  ]
}`

const duplicateJSON = `{
  "days": [
    {
      "date": "2025-06-01",
      "activities": [
        {"time": "09:00", "name": "City Museum", "description": "History wing", "cost": 10, "coordinates": {"lat": 38.71, "lng": -9.13}},
        {"time": "15:00", "name": "city museum", "description": "Art wing", "cost": 10, "coordinates": {"lat": 38.72, "lng": -9.12}}
      ],
      "meals": []
    }
  ]
}`

func TestGenerateItinerary_EndToEnd(t *testing.T) {
	mockAI := new(MockAIClient)
	mockAI.On("Complete", mock.Anything, mock.Anything, float32(0.5)).Return(lisbonJSON, nil).Once()
	svc := newTestService(mockAI)

	result, err := svc.GenerateItinerary(context.Background(), lisbonTrip())
	require.NoError(t, err)
	itin := result.Itinerary

	require.Len(t, itin.Days, 3)
	seen := map[string]bool{}
	for _, day := range itin.Days {
		assert.NotEmpty(t, day.Activities)
		assert.Len(t, day.Meals, 3)
		for _, a := range day.Activities {
			assert.NotEmpty(t, a.ID)
			assert.False(t, seen[strings.ToLower(a.Name)], "duplicate name %q", a.Name)
			seen[strings.ToLower(a.Name)] = true
		}
		for _, m := range day.Meals {
			assert.NotEmpty(t, m.ID)
			assert.False(t, seen[strings.ToLower(m.Name)], "duplicate name %q", m.Name)
			seen[strings.ToLower(m.Name)] = true
		}
	}

	assert.InDelta(t, itin.PerPersonTotal*3, itin.GroupTotal, 1e-9)
	sum := 0.0
	for _, d := range itin.Days {
		sum += d.DailyTotal
	}
	assert.InDelta(t, sum, itin.PerPersonTotal, 1e-9)

	// route order starts with day 1 activities then meals
	require.NotEmpty(t, result.Locations)
	assert.Equal(t, "Old Town Walk", result.Locations[0].Name)
	assert.Equal(t, "Tile Museum", result.Locations[1].Name)
	assert.Equal(t, "Pastelaria Santo Antonio", result.Locations[2].Name)

	mockAI.AssertExpectations(t)
}

func TestGenerateItinerary_EmitsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	mockAI := new(MockAIClient)
	mockAI.On("Complete", mock.Anything, mock.Anything, float32(0.5)).Return(lisbonJSON, nil).Once()
	svc := newTestService(mockAI)

	_, err := svc.GenerateItinerary(context.Background(), lisbonTrip())
	require.NoError(t, err)

	var names []string
	for _, s := range recorder.Ended() {
		names = append(names, s.Name())
	}
	assert.Contains(t, names, "GenerateItinerary")
	assert.Contains(t, names, "CompleteAndParse")
}

func TestGenerateItinerary_CachesResult(t *testing.T) {
	mockAI := new(MockAIClient)
	mockAI.On("Complete", mock.Anything, mock.Anything, float32(0.5)).Return(lisbonJSON, nil).Once()
	svc := newTestService(mockAI)

	first, err := svc.GenerateItinerary(context.Background(), lisbonTrip())
	require.NoError(t, err)
	second, err := svc.GenerateItinerary(context.Background(), lisbonTrip())
	require.NoError(t, err)

	// Hits share the cached value, which is read-only by contract.
	assert.Same(t, first, second)
	mockAI.AssertNumberOfCalls(t, "Complete", 1)
}

func TestGenerateItinerary_RetriesWithAvoidList(t *testing.T) {
	mockAI := new(MockAIClient)
	mockAI.On("Complete", mock.Anything, mock.Anything, float32(0.5)).Return(duplicateJSON, nil).Once()
	mockAI.On("Complete", mock.Anything, mock.MatchedBy(func(msgs []generativeAI.Message) bool {
		return len(msgs) == 2 && strings.Contains(msgs[1].Content, "do NOT use") &&
			strings.Contains(msgs[1].Content, "City Museum")
	}), float32(0.3)).Return(lisbonJSON, nil).Once()
	svc := newTestService(mockAI)

	result, err := svc.GenerateItinerary(context.Background(), lisbonTrip())
	require.NoError(t, err)
	assert.Len(t, result.Itinerary.Days, 3)
	assert.True(t, hasUniqueNames(result.Itinerary))
	mockAI.AssertExpectations(t)
}

func TestGenerateItinerary_AcceptsDuplicatesAfterRetry(t *testing.T) {
	mockAI := new(MockAIClient)
	mockAI.On("Complete", mock.Anything, mock.Anything, float32(0.5)).Return(duplicateJSON, nil).Once()
	mockAI.On("Complete", mock.Anything, mock.Anything, float32(0.3)).Return(duplicateJSON, nil).Once()
	svc := newTestService(mockAI)

	result, err := svc.GenerateItinerary(context.Background(), lisbonTrip())
	require.NoError(t, err)
	assert.False(t, hasUniqueNames(result.Itinerary))
	// one retry only, then the result is accepted as-is
	mockAI.AssertNumberOfCalls(t, "Complete", 2)
}

func TestGenerateItinerary_KeepsOriginalWhenRetryFails(t *testing.T) {
	mockAI := new(MockAIClient)
	mockAI.On("Complete", mock.Anything, mock.Anything, float32(0.5)).Return(duplicateJSON, nil).Once()
	mockAI.On("Complete", mock.Anything, mock.Anything, float32(0.3)).Return("", types.ErrTransport).Once()
	svc := newTestService(mockAI)

	result, err := svc.GenerateItinerary(context.Background(), lisbonTrip())
	require.NoError(t, err)
	require.Len(t, result.Itinerary.Days, 1)
	assert.False(t, hasUniqueNames(result.Itinerary))
}

func TestGenerateItinerary_PropagatesLLMErrors(t *testing.T) {
	mockAI := new(MockAIClient)
	mockAI.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return("", types.ErrAuth)
	svc := newTestService(mockAI)

	_, err := svc.GenerateItinerary(context.Background(), lisbonTrip())
	assert.ErrorIs(t, err, types.ErrAuth)
}

func TestGenerateItinerary_PropagatesParseErrors(t *testing.T) {
	mockAI := new(MockAIClient)
	mockAI.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return("sorry, I cannot help with that", nil)
	svc := newTestService(mockAI)

	_, err := svc.GenerateItinerary(context.Background(), lisbonTrip())
	assert.ErrorIs(t, err, types.ErrNoJSONFound)
}

func TestGenerateItinerary_RejectsInvalidRequest(t *testing.T) {
	mockAI := new(MockAIClient)
	svc := newTestService(mockAI)

	trip := lisbonTrip()
	trip.Dates.End = "2025-05-01"
	_, err := svc.GenerateItinerary(context.Background(), trip)
	assert.Error(t, err)
	mockAI.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)
}

func TestReviseEvent_AppliesUpdate(t *testing.T) {
	mockAI := new(MockAIClient)
	mockAI.On("Complete", mock.Anything, mock.Anything, float32(0.5)).
		Return(`{"message":"I shortened the walk and made it free.","updatedEvent":{"name":"Old Town Walk","cost":0,"description":"Short self-guided stroll"}}`, nil).Once()
	svc := newTestService(mockAI)

	itin, err := parseItinerary(lisbonJSON)
	require.NoError(t, err)
	assignEventIDs(itin)
	normalizeCosts(itin, 3)
	before := itin.Days[0].DailyTotal

	ctxDetails := []byte(`{"id":"` + itin.Days[0].Activities[0].ID + `","name":"Old Town Walk","cost":20}`)
	resp, err := svc.ReviseEvent(context.Background(), &types.ReviseEventRequest{
		Instruction: "make it shorter",
		Context:     types.EventContext{Type: "activity", CurrentDetails: ctxDetails},
		Itinerary:   itin,
		NumPeople:   3,
	})
	require.NoError(t, err)

	assert.Equal(t, "I shortened the walk and made it free.", resp.Message)
	require.NotNil(t, resp.UpdatedEvent)
	assert.InDelta(t, before-20, itin.Days[0].DailyTotal, 1e-9)
	assert.InDelta(t, itin.PerPersonTotal*3, itin.GroupTotal, 1e-9)
}

func TestReviseEvent_MessageOnly(t *testing.T) {
	mockAI := new(MockAIClient)
	mockAI.On("Complete", mock.Anything, mock.Anything, mock.Anything).
		Return(`{"message":"That event already matches your request.","updatedEvent":null}`, nil).Once()
	svc := newTestService(mockAI)

	itin, err := parseItinerary(lisbonJSON)
	require.NoError(t, err)
	normalizeCosts(itin, 3)
	before := itin.Days[0].DailyTotal

	resp, err := svc.ReviseEvent(context.Background(), &types.ReviseEventRequest{
		Instruction: "keep it as is",
		Context:     types.EventContext{Type: "activity", CurrentDetails: []byte(`{"name":"Old Town Walk"}`)},
		Itinerary:   itin,
	})
	require.NoError(t, err)

	assert.Nil(t, resp.UpdatedEvent)
	assert.InDelta(t, before, itin.Days[0].DailyTotal, 1e-9)
}

func TestReviseEvent_TargetMissingIsNoOp(t *testing.T) {
	mockAI := new(MockAIClient)
	mockAI.On("Complete", mock.Anything, mock.Anything, mock.Anything).
		Return(`{"message":"Swapped it out.","updatedEvent":{"name":"Something Else","cost":5}}`, nil).Once()
	svc := newTestService(mockAI)

	itin, err := parseItinerary(lisbonJSON)
	require.NoError(t, err)
	normalizeCosts(itin, 3)
	snapshot := itin.PerPersonTotal

	resp, err := svc.ReviseEvent(context.Background(), &types.ReviseEventRequest{
		Instruction: "replace it",
		Context:     types.EventContext{Type: "activity", CurrentDetails: []byte(`{"id":"missing","name":"Not There"}`)},
		Itinerary:   itin,
		NumPeople:   3,
	})
	require.NoError(t, err)

	assert.Equal(t, "Swapped it out.", resp.Message)
	assert.InDelta(t, snapshot, itin.PerPersonTotal, 1e-9)
}
