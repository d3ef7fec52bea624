package provider

import (
	"sort"
	"strings"

	"github.com/rabitem/MailAssistantService-sub002/pkg/tokens"
)

// Accumulator rebuilds a complete response from streamed chunks. Content is
// concatenated per choice index in arrival order. It is not safe for
// concurrent use; a stream is consumed by a single reader.
type Accumulator struct {
	id      string
	created int64
	model   string
	choices map[int]*choiceBuffer
	usage   *Usage
}

type choiceBuffer struct {
	role         Role
	content      strings.Builder
	finishReason *string
}

// NewAccumulator creates an empty Accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{choices: make(map[int]*choiceBuffer)}
}

// Add folds one chunk into the accumulated state.
func (a *Accumulator) Add(chunk *CompletionChunk) {
	if chunk == nil {
		return
	}
	if a.id == "" {
		a.id = chunk.ID
		a.created = chunk.Created
	}
	if chunk.Model != "" {
		a.model = chunk.Model
	}
	if chunk.Usage != nil {
		u := *chunk.Usage
		a.usage = &u
	}

	for _, c := range chunk.Choices {
		buf, ok := a.choices[c.Index]
		if !ok {
			buf = &choiceBuffer{}
			a.choices[c.Index] = buf
		}
		if buf.role == "" && c.Delta.Role != "" {
			buf.role = c.Delta.Role
		}
		if c.Delta.Content != nil {
			buf.content.WriteString(*c.Delta.Content)
		}
		if c.FinishReason != nil {
			reason := *c.FinishReason
			buf.finishReason = &reason
		}
	}
}

// Content returns the text accumulated so far for a choice index.
func (a *Accumulator) Content(index int) string {
	if buf, ok := a.choices[index]; ok {
		return buf.content.String()
	}
	return ""
}

// Response returns the accumulated state as a CompletionResponse with
// choices ordered by index. Usage is whatever the stream reported, or nil.
func (a *Accumulator) Response() *CompletionResponse {
	indexes := make([]int, 0, len(a.choices))
	for idx := range a.choices {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	resp := &CompletionResponse{
		ID:      a.id,
		Object:  "chat.completion",
		Created: a.created,
		Model:   a.model,
		Choices: make([]Choice, 0, len(indexes)),
	}
	for _, idx := range indexes {
		buf := a.choices[idx]
		role := buf.role
		if role == "" {
			role = RoleAssistant
		}
		resp.Choices = append(resp.Choices, Choice{
			Index:        idx,
			Message:      Message{Role: role, Content: buf.content.String()},
			FinishReason: buf.finishReason,
		})
	}
	if a.usage != nil {
		u := *a.usage
		resp.Usage = &u
	}
	return resp
}

// Usage returns the usage reported by the stream. When the backend sent
// none, it estimates prompt tokens from messages and completion tokens from
// the accumulated text of every choice.
func (a *Accumulator) Usage(messages []Message) Usage {
	if a.usage != nil {
		return *a.usage
	}
	var u Usage
	for _, m := range messages {
		u.PromptTokens += tokens.Count(a.model, m.Content)
	}
	for _, buf := range a.choices {
		u.CompletionTokens += tokens.Count(a.model, buf.content.String())
	}
	u.TotalTokens = u.PromptTokens + u.CompletionTokens
	return u
}
