package itinerary

import (
	"encoding/json"
	"fmt"
	"strings"

	"tripai/internal/types"
)

// cleanJSONResponse strips markdown code fences and slices out the
// outermost JSON object. The model is not a reliable JSON emitter, so
// each stage is a best-effort repair, not a guarantee.
func cleanJSONResponse(response string) string {
	response = strings.TrimSpace(response)

	// Remove markdown code block markers
	if strings.HasPrefix(response, "```json") {
		response = strings.TrimPrefix(response, "```json")
	} else if strings.HasPrefix(response, "```") {
		response = strings.TrimPrefix(response, "```")
	}

	if strings.HasSuffix(response, "```") {
		response = strings.TrimSuffix(response, "```")
	}

	response = strings.TrimSpace(response)

	// Look for the first { and last } to extract the JSON object from
	// responses that still contain explanatory text
	firstBrace := strings.Index(response, "{")
	if firstBrace == -1 {
		return ""
	}

	lastBrace := strings.LastIndex(response, "}")
	if lastBrace == -1 || lastBrace <= firstBrace {
		return ""
	}

	return strings.TrimSpace(response[firstBrace : lastBrace+1])
}

// parseItinerary runs the fence-strip, brace-slice, parse recovery
// chain and validates the canonical shape (a days array must exist,
// empty is fine).
func parseItinerary(raw string) (*types.Itinerary, error) {
	cleaned := cleanJSONResponse(raw)
	if cleaned == "" {
		return nil, types.ErrNoJSONFound
	}

	var shape struct {
		Days *[]types.Day `json:"days"`
	}
	if err := json.Unmarshal([]byte(cleaned), &shape); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrJSONParse, err)
	}
	if shape.Days == nil {
		return nil, types.ErrInvalidShape
	}

	var itin types.Itinerary
	if err := json.Unmarshal([]byte(cleaned), &itin); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrJSONParse, err)
	}
	return &itin, nil
}

// revisionReply is the contract of the event-revision round-trip: a
// conversational message plus an optional replacement event object.
type revisionReply struct {
	Message      string          `json:"message"`
	UpdatedEvent json.RawMessage `json:"updatedEvent"`
}

func parseRevision(raw string) (*revisionReply, error) {
	cleaned := cleanJSONResponse(raw)
	if cleaned == "" {
		return nil, types.ErrNoJSONFound
	}
	var reply revisionReply
	if err := json.Unmarshal([]byte(cleaned), &reply); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrJSONParse, err)
	}
	if string(reply.UpdatedEvent) == "null" {
		reply.UpdatedEvent = nil
	}
	return &reply, nil
}
