// Package openai provides the provider adapter for the OpenAI API and for
// OpenAI-compatible proxies such as LiteLLM. It delegates all HTTP
// communication to openaicompat.Client; model aliases can be mapped to
// upstream identifiers.
package openai
