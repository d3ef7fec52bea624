// Package provider defines the protocol-agnostic interface for LLM completion
// backends used by the mail assistant. Each adapter (openai, kimi, local)
// handles its own endpoint details internally and exposes the same
// Complete/Stream/ListModels surface, operating on the types in this package
// (CompletionRequest, CompletionResponse, CompletionChunk).
//
// Failures crossing the provider boundary are always *Error values with a
// closed set of kinds. Retry decisions are made by callers through
// IsRetryable and RetryAfter; providers never retry on their own.
package provider
