package openaicompat

import (
	"github.com/rabitem/MailAssistantService-sub002/pkg/provider"
)

// Quirks are the per-backend deviations from the plain Chat Completions
// request shape.
type Quirks struct {
	// IncludeStreamUsage asks the backend for a final usage chunk when
	// streaming (stream_options.include_usage).
	IncludeStreamUsage bool

	// DropPenalties omits frequency_penalty and presence_penalty, for
	// runtimes that reject them.
	DropPenalties bool

	// ModelMapper transforms the model name before it is sent. If nil, the
	// model name is used as-is.
	ModelMapper func(string) string
}

// TranslateToChat converts a CompletionRequest into the wire request body.
// Message order is preserved exactly.
func TranslateToChat(req *provider.CompletionRequest, q Quirks) ChatCompletionRequest {
	cr := ChatCompletionRequest{
		Model:            req.Model,
		Temperature:      req.Temperature,
		MaxTokens:        req.MaxTokens,
		TopP:             req.TopP,
		FrequencyPenalty: req.FrequencyPenalty,
		PresencePenalty:  req.PresencePenalty,
		Stop:             req.Stop,
		Stream:           req.Stream,
		Messages:         make([]ChatMessage, 0, len(req.Messages)),
	}

	if q.ModelMapper != nil {
		cr.Model = q.ModelMapper(cr.Model)
	}
	if q.DropPenalties {
		cr.FrequencyPenalty = nil
		cr.PresencePenalty = nil
	}
	if req.Stream && q.IncludeStreamUsage {
		cr.StreamOptions = &ChatStreamOptions{IncludeUsage: true}
	}

	for _, m := range req.Messages {
		cr.Messages = append(cr.Messages, ChatMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	return cr
}

// TranslateResponse converts a wire response into a CompletionResponse. A
// body without choices is an invalid-response error.
func TranslateResponse(resp *ChatCompletionResponse) (*provider.CompletionResponse, error) {
	if len(resp.Choices) == 0 {
		return nil, provider.NewInvalidResponseError("response contains no choices")
	}

	out := &provider.CompletionResponse{
		ID:      resp.ID,
		Object:  resp.Object,
		Created: resp.Created,
		Model:   resp.Model,
		Choices: make([]provider.Choice, 0, len(resp.Choices)),
		Usage:   translateUsage(resp.Usage),
	}
	for _, c := range resp.Choices {
		role := provider.Role(c.Message.Role)
		if role == "" {
			role = provider.RoleAssistant
		}
		var content string
		if c.Message.Content != nil {
			content = *c.Message.Content
		}
		out.Choices = append(out.Choices, provider.Choice{
			Index:        c.Index,
			Message:      provider.Message{Role: role, Content: content},
			FinishReason: c.FinishReason,
		})
	}
	return out, nil
}

// TranslateChunk converts a wire chunk into a CompletionChunk.
func TranslateChunk(chunk *ChatCompletionChunk) *provider.CompletionChunk {
	out := &provider.CompletionChunk{
		ID:      chunk.ID,
		Object:  chunk.Object,
		Created: chunk.Created,
		Model:   chunk.Model,
		Choices: make([]provider.ChunkChoice, 0, len(chunk.Choices)),
		Usage:   translateUsage(chunk.Usage),
	}
	for _, c := range chunk.Choices {
		out.Choices = append(out.Choices, provider.ChunkChoice{
			Index: c.Index,
			Delta: provider.Delta{
				Role:    provider.Role(c.Delta.Role),
				Content: c.Delta.Content,
			},
			FinishReason: c.FinishReason,
		})
	}
	return out
}

// TranslateModels converts the models response.
func TranslateModels(resp *ChatModelsResponse) *provider.ModelList {
	out := &provider.ModelList{
		Object: resp.Object,
		Data:   make([]provider.ModelInfo, 0, len(resp.Data)),
	}
	for _, m := range resp.Data {
		out.Data = append(out.Data, provider.ModelInfo{
			ID:      m.ID,
			Object:  m.Object,
			Created: m.Created,
			OwnedBy: m.OwnedBy,
		})
	}
	return out
}

func translateUsage(u *ChatUsage) *provider.Usage {
	if u == nil {
		return nil
	}
	return &provider.Usage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}
}
