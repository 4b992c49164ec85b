package types

import "errors"

// Error taxonomy for the itinerary pipeline. Fatal categories bubble
// unmodified to the handler layer; everything else is absorbed with
// best-effort defaults and logged for diagnostics only.
var (
	// ErrMissingCredential means the LLM API key was absent at startup.
	ErrMissingCredential = errors.New("missing LLM API credential")

	// ErrAuth means the upstream rejected our credential (HTTP 401).
	ErrAuth = errors.New("LLM authentication rejected")

	// ErrTransport covers any other non-success upstream response.
	ErrTransport = errors.New("LLM transport failure")

	// ErrEmptyResponse means the reply carried no message content.
	ErrEmptyResponse = errors.New("LLM returned no content")

	// ErrNoJSONFound means no JSON object could be located in the reply.
	ErrNoJSONFound = errors.New("no JSON object found in LLM response")

	// ErrJSONParse means the located JSON slice was malformed.
	ErrJSONParse = errors.New("LLM response is not valid JSON")

	// ErrInvalidShape means the parsed value lacks a days array.
	ErrInvalidShape = errors.New("LLM response has no days array")
)
