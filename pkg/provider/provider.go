package provider

import (
	"context"
)

// Provider abstracts an LLM completion backend. The interface is
// endpoint-agnostic: each adapter carries its own base URL, model list and
// request quirks.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type Provider interface {
	// Name returns the provider identifier (e.g., "openai", "kimi", "local").
	Name() string

	// Descriptor returns the static description of this provider.
	Descriptor() Descriptor

	// Complete performs non-streaming inference.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Stream performs streaming inference. HTTP-level failures are returned
	// directly; once the channel is returned it yields chunks in order and is
	// closed by the provider when the stream ends, fails, or ctx is cancelled.
	Stream(ctx context.Context, req *CompletionRequest) (<-chan StreamEvent, error)

	// ListModels returns the models served by the backend.
	ListModels(ctx context.Context) (*ModelList, error)

	// UpdateCredential replaces the credential used by subsequent calls.
	// Calls already in flight keep the credential they started with.
	UpdateCredential(credential string)

	// Close releases provider resources (idle HTTP connections).
	Close() error
}

// StreamEvent is a single item produced by Provider.Stream. Exactly one of
// Chunk and Err is set.
type StreamEvent struct {
	Chunk *CompletionChunk
	Err   error
}
