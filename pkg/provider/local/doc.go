// Package local provides the provider adapter for local inference runtimes
// (Ollama, LM Studio, vLLM, llama.cpp server) exposing an OpenAI-compatible
// API. A credential is optional; when one is set it is sent as usual.
package local
