// Package openaicompat implements the completion client shared by every
// OpenAI-compatible Chat Completions backend: request encoding, the SSE
// stream decoder, HTTP error classification and the Client that ties them
// together.
//
// Provider adapters (openai, kimi, local) embed the Client from this package
// and differ only in base URL, model list and request quirks.
package openaicompat
