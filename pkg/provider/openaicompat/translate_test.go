package openaicompat

import (
	"context"
	"encoding/json"
	"io"
	"reflect"
	"strings"
	"testing"

	"github.com/rabitem/MailAssistantService-sub002/pkg/provider"
)

func fullRequest() *provider.CompletionRequest {
	return &provider.CompletionRequest{
		Model: "gpt-4o-mini",
		Messages: []provider.Message{
			{Role: provider.RoleSystem, Content: "You write short replies."},
			{Role: provider.RoleUser, Content: "Draft a reply to: \"Lunch on Friday?\""},
			{Role: provider.RoleAssistant, Content: "Sure, Friday works."},
			{Role: provider.RoleUser, Content: "Make it warmer ✉️"},
		},
		Temperature:      provider.Float(0.7),
		MaxTokens:        provider.Int(256),
		TopP:             provider.Float(0.9),
		FrequencyPenalty: provider.Float(-0.5),
		PresencePenalty:  provider.Float(1.25),
		Stop:             []string{"\n\n", "END"},
		Stream:           true,
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	reqs := []*provider.CompletionRequest{
		fullRequest(),
		{Model: "m", Messages: []provider.Message{{Role: provider.RoleUser, Content: "hi"}}},
	}

	for _, req := range reqs {
		httpReq, err := EncodeChatRequest(context.Background(), "http://example.test/v1", "sk", TranslateToChat(req, Quirks{}))
		if err != nil {
			t.Fatalf("EncodeChatRequest: %v", err)
		}
		data, err := io.ReadAll(httpReq.Body)
		if err != nil {
			t.Fatal(err)
		}

		var got provider.CompletionRequest
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("decoding body: %v", err)
		}
		if !reflect.DeepEqual(&got, req) {
			t.Errorf("round trip mismatch:\n got  %+v\n want %+v", got, *req)
		}
	}
}

func TestEncode_WireNames(t *testing.T) {
	httpReq, err := EncodeChatRequest(context.Background(), "http://example.test/v1", "sk", TranslateToChat(fullRequest(), Quirks{}))
	if err != nil {
		t.Fatal(err)
	}
	data, _ := io.ReadAll(httpReq.Body)
	body := string(data)

	for _, name := range []string{`"max_tokens":256`, `"top_p":0.9`, `"frequency_penalty":-0.5`, `"presence_penalty":1.25`, `"stream":true`} {
		if !strings.Contains(body, name) {
			t.Errorf("body missing %s: %s", name, body)
		}
	}
	if strings.Contains(body, "maxTokens") || strings.Contains(body, "stream_options") {
		t.Errorf("unexpected field in body: %s", body)
	}
}

func TestEncode_OmitsUnsetOptionals(t *testing.T) {
	req := &provider.CompletionRequest{Model: "m", Messages: []provider.Message{{Role: provider.RoleUser, Content: "hi"}}}
	data, err := json.Marshal(TranslateToChat(req, Quirks{}))
	if err != nil {
		t.Fatal(err)
	}
	want := `{"model":"m","messages":[{"role":"user","content":"hi"}],"stream":false}`
	if string(data) != want {
		t.Errorf("body = %s, want %s", data, want)
	}
}

func TestEncode_Headers(t *testing.T) {
	req, err := EncodeChatRequest(context.Background(), "http://example.test/v1", "sk-test", ChatCompletionRequest{Model: "m", Stream: true})
	if err != nil {
		t.Fatal(err)
	}
	if req.Method != "POST" || req.URL.String() != "http://example.test/v1/chat/completions" {
		t.Errorf("request line = %s %s", req.Method, req.URL)
	}
	checks := map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer sk-test",
		"Accept":        "text/event-stream",
		"User-Agent":    UserAgent,
	}
	for h, want := range checks {
		if got := req.Header.Get(h); got != want {
			t.Errorf("%s = %q, want %q", h, got, want)
		}
	}
	if req.Header.Get("X-Request-Id") == "" {
		t.Error("missing X-Request-Id")
	}

	models, err := EncodeModelsRequest(context.Background(), "http://example.test/v1", "")
	if err != nil {
		t.Fatal(err)
	}
	if models.Method != "GET" || models.URL.String() != "http://example.test/v1/models" {
		t.Errorf("models request line = %s %s", models.Method, models.URL)
	}
	if models.Header.Get("Authorization") != "" {
		t.Error("Authorization must be absent without credential")
	}
}

func TestTranslateToChat_Quirks(t *testing.T) {
	req := fullRequest()
	cr := TranslateToChat(req, Quirks{
		IncludeStreamUsage: true,
		DropPenalties:      true,
		ModelMapper: func(m string) string {
			if m == "gpt-4o-mini" {
				return "openai/gpt-4o-mini"
			}
			return m
		},
	})

	if cr.Model != "openai/gpt-4o-mini" {
		t.Errorf("Model = %q", cr.Model)
	}
	if cr.FrequencyPenalty != nil || cr.PresencePenalty != nil {
		t.Error("penalties should be dropped")
	}
	if cr.StreamOptions == nil || !cr.StreamOptions.IncludeUsage {
		t.Error("expected stream_options.include_usage")
	}
	if req.Model != "gpt-4o-mini" || req.FrequencyPenalty == nil {
		t.Error("TranslateToChat must not modify the caller's request")
	}

	req.Stream = false
	if cr := TranslateToChat(req, Quirks{IncludeStreamUsage: true}); cr.StreamOptions != nil {
		t.Error("stream_options must not be sent for non-streaming requests")
	}
}

func TestTranslateToChat_PreservesOrder(t *testing.T) {
	req := fullRequest()
	cr := TranslateToChat(req, Quirks{})
	if len(cr.Messages) != len(req.Messages) {
		t.Fatalf("got %d messages, want %d", len(cr.Messages), len(req.Messages))
	}
	for i, m := range req.Messages {
		if cr.Messages[i].Role != string(m.Role) || cr.Messages[i].Content != m.Content {
			t.Errorf("message %d = %+v, want %+v", i, cr.Messages[i], m)
		}
	}
}

func TestTranslateResponse(t *testing.T) {
	var wire ChatCompletionResponse
	data := `{"id":"r1","object":"chat.completion","created":42,"model":"m","choices":[{"index":0,"message":{"role":"assistant","content":"hello"},"finish_reason":"stop"},{"index":1,"message":{"role":"","content":null},"finish_reason":null}],"usage":{"prompt_tokens":1,"completion_tokens":2,"total_tokens":3}}`
	if err := json.Unmarshal([]byte(data), &wire); err != nil {
		t.Fatal(err)
	}

	resp, err := TranslateResponse(&wire)
	if err != nil {
		t.Fatalf("TranslateResponse: %v", err)
	}
	if resp.ID != "r1" || resp.Created != 42 || resp.Model != "m" {
		t.Errorf("metadata = %+v", resp)
	}
	if len(resp.Choices) != 2 {
		t.Fatalf("got %d choices", len(resp.Choices))
	}
	if resp.Choices[0].Message.Content != "hello" || *resp.Choices[0].FinishReason != "stop" {
		t.Errorf("choice 0 = %+v", resp.Choices[0])
	}
	if resp.Choices[1].Message.Role != provider.RoleAssistant || resp.Choices[1].Message.Content != "" {
		t.Errorf("choice 1 = %+v", resp.Choices[1])
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 3 {
		t.Errorf("usage = %+v", resp.Usage)
	}
}

func TestTranslateResponse_NoChoices(t *testing.T) {
	_, err := TranslateResponse(&ChatCompletionResponse{ID: "x"})
	if provider.KindOf(err) != provider.KindInvalidResponse {
		t.Errorf("expected invalid response error, got %v", err)
	}
}

func TestNormalizeBaseURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"https://api.openai.com/v1", "https://api.openai.com/v1", false},
		{"http://localhost:11434/v1/", "http://localhost:11434/v1", false},
		{"", "", true},
		{"ftp://example.com", "", true},
		{"api.openai.com/v1", "", true},
		{"http://", "", true},
	}
	for _, tt := range tests {
		got, err := NormalizeBaseURL(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("NormalizeBaseURL(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err != nil {
			if provider.KindOf(err) != provider.KindInvalidEndpoint {
				t.Errorf("NormalizeBaseURL(%q) kind = %v", tt.in, provider.KindOf(err))
			}
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeBaseURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
