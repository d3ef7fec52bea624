package provider

import "fmt"

// MaxStopSequences is the largest number of stop sequences accepted by
// OpenAI-compatible endpoints.
const MaxStopSequences = 4

// Validate checks a CompletionRequest before it is encoded. It returns a
// bad-request *Error describing the first failure, or nil if the request is
// valid. No I/O happens here, so out-of-range values never reach the wire.
func (r *CompletionRequest) Validate() *Error {
	if r.Model == "" {
		return NewBadRequestError("model", "model is required")
	}

	if len(r.Messages) == 0 {
		return NewBadRequestError("messages", "messages must contain at least one message")
	}

	for i, m := range r.Messages {
		if !m.Role.Valid() {
			return NewBadRequestError(fmt.Sprintf("messages[%d].role", i),
				fmt.Sprintf("unknown role %q", m.Role))
		}
	}

	if r.Temperature != nil {
		if *r.Temperature < 0.0 || *r.Temperature > 2.0 {
			return NewBadRequestError("temperature", "temperature must be between 0.0 and 2.0")
		}
	}

	if r.TopP != nil {
		if *r.TopP < 0.0 || *r.TopP > 1.0 {
			return NewBadRequestError("top_p", "top_p must be between 0.0 and 1.0")
		}
	}

	if r.FrequencyPenalty != nil {
		if *r.FrequencyPenalty < -2.0 || *r.FrequencyPenalty > 2.0 {
			return NewBadRequestError("frequency_penalty", "frequency_penalty must be between -2.0 and 2.0")
		}
	}

	if r.PresencePenalty != nil {
		if *r.PresencePenalty < -2.0 || *r.PresencePenalty > 2.0 {
			return NewBadRequestError("presence_penalty", "presence_penalty must be between -2.0 and 2.0")
		}
	}

	if r.MaxTokens != nil && *r.MaxTokens <= 0 {
		return NewBadRequestError("max_tokens", "max_tokens must be positive")
	}

	if len(r.Stop) > MaxStopSequences {
		return NewBadRequestError("stop",
			fmt.Sprintf("stop exceeds maximum of %d sequences", MaxStopSequences))
	}

	return nil
}
