package services

import (
	"context"
	"fmt"
	"log/slog"
)

// ServerErrorReply is the reply used whenever the relay could not complete the exchange with the
// external API.
const ServerErrorReply = "Server error occurred"

const errLoggerKey = "error"

// Relay forwards a single user message to a Generator and shapes the outcome into reply text. It never
// fails: every outcome, including errors, is expressed as a reply string.
type Relay struct {
	generator Generator
	fallback  string

	logger *slog.Logger
}

// NewRelay creates a Relay around generator. The fallback reply for a response without text is derived
// from the generator's name, e.g. "No response from Gemini".
func NewRelay(generator Generator, logger *slog.Logger) Relay {
	return Relay{
		generator: generator,
		fallback:  fmt.Sprintf("No response from %s", generator.Name()),
		logger:    logger.With(slog.String("module", "relay")),
	}
}

// Reply sends message to the generator and returns the text to show the user. An API error message is
// returned verbatim, a response without text yields the fallback reply, and any failure yields
// ServerErrorReply.
func (r Relay) Reply(ctx context.Context, message string) string {
	res, err := r.generator.Generate(ctx, message)
	if err != nil {
		r.logger.Error("Failed to generate reply", slog.String(errLoggerKey, err.Error()))
		return ServerErrorReply
	}

	switch res := res.(type) {
	case Success:
		return res.Text
	case APIError:
		r.logger.Warn("External API returned an error", slog.String("message", res.Message))
		return res.Message
	case Malformed:
		r.logger.Warn("External API returned no text", slog.String("reason", res.Reason))
		return r.fallback
	default:
		r.logger.Error("Unknown generation result", slog.String("result", fmt.Sprintf("%T", res)))
		return ServerErrorReply
	}
}
