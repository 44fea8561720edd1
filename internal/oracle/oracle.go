// Package oracle defines the boundary to the external text-compression
// service and its Anthropic-backed implementation.
package oracle

import (
	"context"
	"errors"
	"strings"
)

// Client is a single synchronous round-trip to the oracle: prompt in, text
// out. Implementations own their own timeouts.
type Client interface {
	Invoke(ctx context.Context, prompt string) (string, error)
}

// EmptyResponseSignature is the error string recorded in summary artifacts
// when the oracle returns no text. The checkpoint reconciler matches on it
// to pick the resume position, so it must stay stable across versions.
const EmptyResponseSignature = "model returned no text"

var (
	// ErrEmptyResponse is the transient failure: the oracle answered but
	// produced no text. Timeouts surface the same way and are retried.
	ErrEmptyResponse = errors.New(EmptyResponseSignature)

	// ErrMissingAPIKey is terminal: waiting will not produce credentials.
	ErrMissingAPIKey = errors.New("ANTHROPIC_API_KEY not set")
)

// IsRetryable reports whether an oracle failure is worth retrying.
// Only the empty-response case is; everything else is terminal for the run.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrEmptyResponse)
}

// Model aliases accepted in configuration. Unknown aliases pass through
// unchanged so full model identifiers keep working.
const (
	ModelSonnet = "claude-sonnet-4-5-20250929"
	ModelHaiku  = "claude-3-5-haiku-20241022"
)

var modelAliases = map[string]string{
	"sonnet":    ModelSonnet,
	"sonnet4.5": ModelSonnet,
	"haiku":     ModelHaiku,
	"haiku3.5":  ModelHaiku,
}

// ResolveModel maps a configured alias to a concrete model identifier.
func ResolveModel(alias string) string {
	key := strings.ToLower(strings.TrimSpace(alias))
	if resolved, ok := modelAliases[key]; ok {
		return resolved
	}
	if key == "" {
		return ModelSonnet
	}
	return strings.TrimSpace(alias)
}
