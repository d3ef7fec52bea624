package provider

import "testing"

func validRequest() *CompletionRequest {
	return &CompletionRequest{
		Model:    "gpt-4o-mini",
		Messages: []Message{{Role: RoleUser, Content: "hello"}},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(r *CompletionRequest)
		wantParam string
	}{
		{name: "valid request accepted", modify: func(r *CompletionRequest) {}},
		{name: "missing model rejected", modify: func(r *CompletionRequest) { r.Model = "" }, wantParam: "model"},
		{name: "empty messages rejected", modify: func(r *CompletionRequest) { r.Messages = nil }, wantParam: "messages"},
		{
			name: "unknown role rejected",
			modify: func(r *CompletionRequest) {
				r.Messages = append(r.Messages, Message{Role: "tool", Content: "x"})
			},
			wantParam: "messages[1].role",
		},
		{name: "temperature 0 accepted", modify: func(r *CompletionRequest) { r.Temperature = Float(0) }},
		{name: "temperature 2 accepted", modify: func(r *CompletionRequest) { r.Temperature = Float(2) }},
		{name: "temperature above 2 rejected", modify: func(r *CompletionRequest) { r.Temperature = Float(2.1) }, wantParam: "temperature"},
		{name: "negative temperature rejected", modify: func(r *CompletionRequest) { r.Temperature = Float(-0.1) }, wantParam: "temperature"},
		{name: "top_p 1 accepted", modify: func(r *CompletionRequest) { r.TopP = Float(1) }},
		{name: "top_p above 1 rejected", modify: func(r *CompletionRequest) { r.TopP = Float(1.5) }, wantParam: "top_p"},
		{name: "frequency_penalty -2 accepted", modify: func(r *CompletionRequest) { r.FrequencyPenalty = Float(-2) }},
		{name: "frequency_penalty out of range", modify: func(r *CompletionRequest) { r.FrequencyPenalty = Float(2.5) }, wantParam: "frequency_penalty"},
		{name: "presence_penalty out of range", modify: func(r *CompletionRequest) { r.PresencePenalty = Float(-3) }, wantParam: "presence_penalty"},
		{name: "max_tokens 0 rejected", modify: func(r *CompletionRequest) { r.MaxTokens = Int(0) }, wantParam: "max_tokens"},
		{name: "max_tokens 1 accepted", modify: func(r *CompletionRequest) { r.MaxTokens = Int(1) }},
		{name: "four stop sequences accepted", modify: func(r *CompletionRequest) { r.Stop = []string{"a", "b", "c", "d"} }},
		{name: "five stop sequences rejected", modify: func(r *CompletionRequest) { r.Stop = []string{"a", "b", "c", "d", "e"} }, wantParam: "stop"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.modify(req)
			err := req.Validate()

			if tt.wantParam == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if err.Kind != KindBadRequest {
				t.Errorf("expected kind %v, got %v", KindBadRequest, err.Kind)
			}
			if err.Param != tt.wantParam {
				t.Errorf("expected param %q, got %q", tt.wantParam, err.Param)
			}
		})
	}
}
