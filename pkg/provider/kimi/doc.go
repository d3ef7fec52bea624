// Package kimi provides the provider adapter for Moonshot AI's Kimi models,
// served through an OpenAI-compatible endpoint.
package kimi
