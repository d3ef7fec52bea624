package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rabitem/MailAssistantService-sub002/pkg/provider/openaicompat"
)

// Model names that force a failure. Anything else gets a normal reply.
const (
	modelBadRequest   = "error-400"
	modelUnauthorized = "error-401"
	modelForbidden    = "error-403"
	modelRateLimited  = "error-429"
	modelServerError  = "error-500"
	modelMalformed    = "stream-malformed" // one undecodable event mid-stream
	modelTruncated    = "stream-truncated" // stream ends without [DONE]
	modelSlow         = "stream-slow"      // 50ms between chunks
)

const defaultModel = "mock-model"

type options struct {
	// APIKey, when set, must be presented as a bearer token.
	APIKey string
	Logger *slog.Logger
}

func newRouter(opts options) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if opts.Logger != nil {
		r.Use(requestLogger(opts.Logger))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})

	r.Route("/v1", func(r chi.Router) {
		if opts.APIKey != "" {
			r.Use(requireBearer(opts.APIKey))
		}
		r.Post("/chat/completions", handleChatCompletions)
		r.Get("/models", handleModels)
	})
	return r
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
				"client_request_id", r.Header.Get("X-Request-Id"))
		})
	}
}

func requireBearer(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer "+key {
				writeError(w, http.StatusUnauthorized, "Incorrect API key provided", "invalid_request_error", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, message, typ string, retryAfter *float64) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(openaicompat.ErrorBody{Error: openaicompat.ErrorDetail{
		Message:    message,
		Type:       typ,
		RetryAfter: retryAfter,
	}})
}

// injectError writes the forced failure for model and reports whether it did.
func injectError(w http.ResponseWriter, model string) bool {
	switch model {
	case modelBadRequest:
		writeError(w, http.StatusBadRequest, "The model does not exist", "invalid_request_error", nil)
	case modelUnauthorized:
		writeError(w, http.StatusUnauthorized, "Incorrect API key provided", "invalid_request_error", nil)
	case modelForbidden:
		writeError(w, http.StatusForbidden, "Country, region, or territory not supported", "permission_error", nil)
	case modelRateLimited:
		retry := 2.0
		w.Header().Set("Retry-After", "2")
		writeError(w, http.StatusTooManyRequests, "Rate limit reached", "rate_limit_error", &retry)
	case modelServerError:
		writeError(w, http.StatusInternalServerError, "The server had an error processing your request", "server_error", nil)
	default:
		return false
	}
	return true
}

func handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req openaicompat.ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "invalid_request_error", nil)
		return
	}
	if req.Model == "" {
		req.Model = defaultModel
	}
	if injectError(w, req.Model) {
		return
	}

	tokens := replyTokens(&req)
	if req.Stream {
		streamReply(w, r, &req, tokens)
		return
	}

	text := strings.Join(tokens, "")
	stop := "stop"
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(openaicompat.ChatCompletionResponse{
		ID:      "chatcmpl-mock-text",
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []openaicompat.ChatChoice{{
			Index:        0,
			Message:      openaicompat.ChatResponseMessage{Role: "assistant", Content: &text},
			FinishReason: &stop,
		}},
		Usage: usage(&req, len(tokens)),
	})
}

// replyTokens picks the reply from the conversation. A system prompt that
// mentions "summar" gets a summary; "count from 1 to 5" counts; anything
// else gets a short acknowledgement.
func replyTokens(req *openaicompat.ChatCompletionRequest) []string {
	last := ""
	system := ""
	for _, m := range req.Messages {
		switch m.Role {
		case "user":
			last = m.Content
		case "system":
			system = m.Content
		}
	}
	switch {
	case strings.Contains(strings.ToLower(last), "count from 1 to 5"):
		return []string{"1", ", ", "2", ", ", "3", ", ", "4", ", ", "5"}
	case strings.Contains(strings.ToLower(system), "summar"):
		return []string{"Summary", ": ", "the ", "sender ", "asks ", "for ", "a ", "reply."}
	default:
		return []string{"Hello", ", ", "nice", " ", "day", "!"}
	}
}

func usage(req *openaicompat.ChatCompletionRequest, completion int) *openaicompat.ChatUsage {
	prompt := 0
	for _, m := range req.Messages {
		prompt += len(strings.Fields(m.Content))
	}
	return &openaicompat.ChatUsage{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      prompt + completion,
	}
}

func streamReply(w http.ResponseWriter, r *http.Request, req *openaicompat.ChatCompletionRequest, tokens []string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported", "server_error", nil)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	created := time.Now().Unix()
	chunk := func(delta openaicompat.ChatChunkDelta, finish *string) openaicompat.ChatCompletionChunk {
		return openaicompat.ChatCompletionChunk{
			ID:      "chatcmpl-mock-stream",
			Object:  "chat.completion.chunk",
			Created: created,
			Model:   req.Model,
			Choices: []openaicompat.ChatChunkChoice{{Index: 0, Delta: delta, FinishReason: finish}},
		}
	}

	writeEvent(w, chunk(openaicompat.ChatChunkDelta{Role: "assistant"}, nil))
	flusher.Flush()

	for i, tok := range tokens {
		if req.Model == modelMalformed && i == len(tokens)/2 {
			fmt.Fprint(w, "data: {\"id\": oops}\n\n")
		}
		if req.Model == modelSlow {
			select {
			case <-r.Context().Done():
				return
			case <-time.After(50 * time.Millisecond):
			}
		}
		writeEvent(w, chunk(openaicompat.ChatChunkDelta{Content: &tok}, nil))
		flusher.Flush()
	}

	stop := "stop"
	writeEvent(w, chunk(openaicompat.ChatChunkDelta{}, &stop))
	if req.StreamOptions != nil && req.StreamOptions.IncludeUsage {
		writeEvent(w, openaicompat.ChatCompletionChunk{
			ID:      "chatcmpl-mock-stream",
			Object:  "chat.completion.chunk",
			Created: created,
			Model:   req.Model,
			Choices: []openaicompat.ChatChunkChoice{},
			Usage:   usage(req, len(tokens)),
		})
	}
	flusher.Flush()

	if req.Model == modelTruncated {
		return
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

func writeEvent(w http.ResponseWriter, v any) {
	data, _ := json.Marshal(v)
	fmt.Fprintf(w, "data: %s\n\n", data)
}

func handleModels(w http.ResponseWriter, r *http.Request) {
	models := []string{defaultModel, modelSlow, modelMalformed, modelTruncated}
	resp := openaicompat.ChatModelsResponse{Object: "list"}
	for _, id := range models {
		resp.Data = append(resp.Data, openaicompat.ChatModel{ID: id, Object: "model", OwnedBy: "mailassist-mock"})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
