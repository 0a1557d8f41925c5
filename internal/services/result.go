package services

import "context"

// Generator sends a single-turn prompt to an external text-generation API. The response is decoded once,
// at this boundary, into a Result. A non-nil error means the exchange itself failed (transport, unreadable
// or non-JSON body) and no Result could be produced.
type Generator interface {
	Generate(ctx context.Context, message string) (Result, error)
	// Name is the human readable provider name used in fallback replies.
	Name() string
}

// Result is the decoded outcome of a generation call. It is one of Success, APIError or Malformed.
type Result interface {
	result()
}

// Success carries the first text part of the first candidate.
type Success struct {
	Text string
}

// APIError carries the error message reported by the external API, for example a rejected key or an
// exhausted quota.
type APIError struct {
	Message string
}

// Malformed is a well-formed response that holds neither an error nor any candidate text.
type Malformed struct {
	Reason string
}

func (Success) result()   {}
func (APIError) result()  {}
func (Malformed) result() {}
