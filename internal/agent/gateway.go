// Package agent defines the gateway interface for move-generating agents and
// the concrete provider adapters. Adapters are thin transport clients: they
// send a system instruction and a user message and return the raw text reply.
// No retry or backoff happens here - all retry policy lives in the match
// engine.
package agent

import "context"

// Gateway is the capability interface every agent provider implements.
type Gateway interface {
	// Name returns the display name (e.g. "ChatGPT 5.2").
	Name() string

	// ID returns the stable identifier used for selection (e.g. "chatgpt").
	ID() string

	// Send delivers the prompts and returns the raw text reply.
	// Transport and auth failures are returned as errors; the reply may
	// contain arbitrary prose - the response parser extracts the move.
	Send(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
