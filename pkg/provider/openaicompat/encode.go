package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/rabitem/MailAssistantService-sub002/pkg/debug"
	"github.com/rabitem/MailAssistantService-sub002/pkg/provider"
)

// UserAgent is sent with every request.
const UserAgent = "mailassist/1.0"

const (
	pathChatCompletions = "/chat/completions"
	pathModels          = "/models"
)

// NormalizeBaseURL trims trailing slashes and checks that raw is an absolute
// http(s) URL.
func NormalizeBaseURL(raw string) (string, error) {
	base := strings.TrimRight(strings.TrimSpace(raw), "/")
	if base == "" {
		return "", provider.NewInvalidEndpointError("base URL is empty")
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", provider.NewInvalidEndpointError(err.Error())
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", provider.NewInvalidEndpointError("scheme must be http or https")
	}
	if u.Host == "" {
		return "", provider.NewInvalidEndpointError("missing host")
	}
	return base, nil
}

// EncodeChatRequest builds the POST {base}/chat/completions request. An empty
// credential sends no Authorization header; callers decide beforehand whether
// that is allowed.
func EncodeChatRequest(ctx context.Context, baseURL, credential string, body ChatCompletionRequest) (*http.Request, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, provider.NewEncodeError(err)
	}
	debug.Raw("providers", string(data))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+pathChatCompletions, bytes.NewReader(data))
	if err != nil {
		return nil, provider.NewInvalidEndpointError(err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	if body.Stream {
		req.Header.Set("Accept", "text/event-stream")
	} else {
		req.Header.Set("Accept", "application/json")
	}
	setCommonHeaders(req, credential)
	return req, nil
}

// EncodeModelsRequest builds the GET {base}/models request.
func EncodeModelsRequest(ctx context.Context, baseURL, credential string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+pathModels, nil)
	if err != nil {
		return nil, provider.NewInvalidEndpointError(err.Error())
	}
	req.Header.Set("Accept", "application/json")
	setCommonHeaders(req, credential)
	return req, nil
}

func setCommonHeaders(req *http.Request, credential string) {
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("X-Request-Id", uuid.NewString())
}
