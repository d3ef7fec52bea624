package openaicompat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rabitem/MailAssistantService-sub002/pkg/debug"
	"github.com/rabitem/MailAssistantService-sub002/pkg/observability"
	"github.com/rabitem/MailAssistantService-sub002/pkg/provider"
)

// Default timeouts.
const (
	DefaultTimeout         = 60 * time.Second
	DefaultResourceTimeout = 10 * time.Minute
)

// Config configures a Client.
type Config struct {
	// Name labels errors, logs and metrics (usually the provider ID).
	Name string

	// BaseURL is the API root, e.g. "https://api.openai.com/v1".
	BaseURL string

	// Credential is the initial API key. It may be rotated later.
	Credential string

	// CredentialOptional allows calls without a credential; no Authorization
	// header is sent then.
	CredentialOptional bool

	// Timeout bounds non-streaming calls (default: 60s).
	Timeout time.Duration

	// ResourceTimeout bounds the whole lifetime of a stream (default: 10m).
	ResourceTimeout time.Duration

	// Transport is the HTTP transport. Nil means http.DefaultTransport.
	Transport http.RoundTripper

	// Quirks adjusts the request shape for the backend.
	Quirks Quirks
}

// Client talks to one OpenAI-compatible backend. The base URL and credential
// are guarded by a read/write mutex; each call copies them once at its start
// and is unaffected by later changes. Calls may run concurrently.
type Client struct {
	name               string
	credentialOptional bool
	quirks             Quirks

	httpClient   *http.Client
	streamClient *http.Client

	mu         sync.RWMutex
	baseURL    string
	credential string
}

// snapshot is the configuration captured at call start.
type snapshot struct {
	baseURL    string
	credential string
}

// NewClient creates a Client. The base URL is checked on every call, so an
// invalid one surfaces as an invalid-endpoint error from the first call.
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.ResourceTimeout == 0 {
		cfg.ResourceTimeout = DefaultResourceTimeout
	}
	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	return &Client{
		name:               cfg.Name,
		credentialOptional: cfg.CredentialOptional,
		quirks:             cfg.Quirks,
		httpClient:         &http.Client{Transport: transport, Timeout: cfg.Timeout},
		streamClient:       &http.Client{Transport: transport, Timeout: cfg.ResourceTimeout},
		baseURL:            cfg.BaseURL,
		credential:         cfg.Credential,
	}
}

// UpdateCredential replaces the credential for subsequent calls.
func (c *Client) UpdateCredential(credential string) {
	c.mu.Lock()
	c.credential = credential
	c.mu.Unlock()
	debug.Log("secrets", "credential rotated", "provider", c.name,
		"credential", debug.RedactCredential(credential))
}

// ClearCredential removes the credential.
func (c *Client) ClearCredential() {
	c.UpdateCredential("")
}

// HasCredential reports whether a credential is configured.
func (c *Client) HasCredential() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.credential != ""
}

// SetBaseURL replaces the base URL for subsequent calls.
func (c *Client) SetBaseURL(baseURL string) error {
	base, err := NormalizeBaseURL(baseURL)
	if err != nil {
		return c.tag(err)
	}
	c.mu.Lock()
	c.baseURL = base
	c.mu.Unlock()
	return nil
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

// snapshot copies the configuration and checks it: a missing credential or
// an unusable base URL fails here, before any network I/O.
func (c *Client) snapshot() (snapshot, error) {
	c.mu.RLock()
	s := snapshot{baseURL: c.baseURL, credential: c.credential}
	c.mu.RUnlock()

	if s.credential == "" && !c.credentialOptional {
		return s, provider.NewMissingCredentialError()
	}
	base, err := NormalizeBaseURL(s.baseURL)
	if err != nil {
		return s, err
	}
	s.baseURL = base
	return s, nil
}

// Complete performs a non-streaming completion.
func (c *Client) Complete(ctx context.Context, req *provider.CompletionRequest) (*provider.CompletionResponse, error) {
	start := time.Now()
	ctx, span := c.startSpan(ctx, "complete", req.Model)
	defer span.End()

	resp, err := c.complete(ctx, req)
	err = c.tag(err)
	c.observe(span, "complete", start, err)
	if resp != nil {
		c.recordUsage(resp.Model, resp.Usage)
	}
	return resp, err
}

func (c *Client) complete(ctx context.Context, req *provider.CompletionRequest) (*provider.CompletionResponse, error) {
	snap, err := c.snapshot()
	if err != nil {
		return nil, err
	}
	if verr := req.Validate(); verr != nil {
		return nil, verr
	}

	wire := *req
	wire.Stream = false
	httpReq, err := EncodeChatRequest(ctx, snap.baseURL, snap.credential, TranslateToChat(&wire, c.quirks))
	if err != nil {
		return nil, err
	}

	debug.Log("providers", "dispatching completion", "provider", c.name, "model", req.Model,
		"messages", len(req.Messages), "request_id", httpReq.Header.Get("X-Request-Id"))

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, provider.NewTransportError(err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, ClassifyResponse(httpResp)
	}

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, provider.NewTransportError(err)
	}
	var chatResp ChatCompletionResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, provider.NewDecodeError(err)
	}
	return TranslateResponse(&chatResp)
}

// Stream performs a streaming completion. Failures before the first byte of
// the body (missing credential, validation, transport, non-200 status) are
// returned directly. Afterwards chunks are delivered on an unbuffered
// channel, so the decoder never reads ahead of the consumer. The channel is
// closed when the stream ends. A failure mid-stream is delivered as a final
// event carrying Err; cancelling ctx closes the connection and the channel
// without an error event.
func (c *Client) Stream(ctx context.Context, req *provider.CompletionRequest) (<-chan provider.StreamEvent, error) {
	start := time.Now()
	ctx, span := c.startSpan(ctx, "stream", req.Model)

	httpResp, err := c.openStream(ctx, req)
	if err != nil {
		err = c.tag(err)
		c.observe(span, "stream", start, err)
		span.End()
		return nil, err
	}

	ch := make(chan provider.StreamEvent)
	go func() {
		defer close(ch)
		defer span.End()
		defer httpResp.Body.Close()

		observability.StreamsActive.Inc()
		defer observability.StreamsActive.Dec()

		err := c.pump(ctx, httpResp.Body, req.Model, ch)
		c.observe(span, "stream", start, err)
	}()
	return ch, nil
}

func (c *Client) openStream(ctx context.Context, req *provider.CompletionRequest) (*http.Response, error) {
	snap, err := c.snapshot()
	if err != nil {
		return nil, err
	}
	if verr := req.Validate(); verr != nil {
		return nil, verr
	}

	wire := *req
	wire.Stream = true
	httpReq, err := EncodeChatRequest(ctx, snap.baseURL, snap.credential, TranslateToChat(&wire, c.quirks))
	if err != nil {
		return nil, err
	}

	debug.Log("streaming", "opening stream", "provider", c.name, "model", req.Model,
		"messages", len(req.Messages), "request_id", httpReq.Header.Get("X-Request-Id"))

	httpResp, err := c.streamClient.Do(httpReq)
	if err != nil {
		return nil, provider.NewTransportError(err)
	}
	if httpResp.StatusCode != http.StatusOK {
		defer httpResp.Body.Close()
		return nil, ClassifyResponse(httpResp)
	}
	return httpResp, nil
}

// pump decodes body and forwards chunks until the stream ends. It returns
// the error that ended the stream, nil on a clean end or cancellation.
func (c *Client) pump(ctx context.Context, body io.Reader, model string, ch chan<- provider.StreamEvent) error {
	dec := NewDecoder(body)
	dec.OnMalformed = func(payload []byte, err error) {
		slog.Warn("skipping malformed SSE event",
			"provider", c.name,
			"error", err.Error(),
			"data", debug.Truncate(string(payload), 200),
		)
		observability.StreamEventsDroppedTotal.WithLabelValues(c.name).Inc()
	}

	var chunks int
	var usage *provider.Usage
	for {
		chunk, err := dec.Next()
		if errors.Is(err, io.EOF) {
			debug.Log("streaming", "stream finished", "provider", c.name, "chunks", chunks)
			c.recordUsage(model, usage)
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				debug.Log("streaming", "stream cancelled", "provider", c.name, "chunks", chunks)
				return nil
			}
			err = c.tag(err)
			select {
			case ch <- provider.StreamEvent{Err: err}:
			case <-ctx.Done():
			}
			return err
		}

		chunks++
		if chunk.Usage != nil {
			usage = chunk.Usage
		}
		if chunk.Model != "" {
			model = chunk.Model
		}
		debug.Trace("streaming", "chunk", "provider", c.name, "index", chunks)

		select {
		case ch <- provider.StreamEvent{Chunk: chunk}:
			observability.StreamChunksTotal.WithLabelValues(c.name).Inc()
		case <-ctx.Done():
			debug.Log("streaming", "stream cancelled", "provider", c.name, "chunks", chunks)
			return nil
		}
	}
}

// ListModels returns the models served by the backend.
func (c *Client) ListModels(ctx context.Context) (*provider.ModelList, error) {
	start := time.Now()
	ctx, span := c.startSpan(ctx, "list_models", "")
	defer span.End()

	list, err := c.listModels(ctx)
	err = c.tag(err)
	c.observe(span, "list_models", start, err)
	return list, err
}

func (c *Client) listModels(ctx context.Context) (*provider.ModelList, error) {
	snap, err := c.snapshot()
	if err != nil {
		return nil, err
	}
	httpReq, err := EncodeModelsRequest(ctx, snap.baseURL, snap.credential)
	if err != nil {
		return nil, err
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, provider.NewTransportError(err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, ClassifyResponse(httpResp)
	}

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, provider.NewTransportError(err)
	}
	var modelsResp ChatModelsResponse
	if err := json.Unmarshal(body, &modelsResp); err != nil {
		return nil, provider.NewDecodeError(err)
	}
	return TranslateModels(&modelsResp), nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	c.streamClient.CloseIdleConnections()
	return nil
}

// tag stamps the client name on provider errors.
func (c *Client) tag(err error) error {
	var perr *provider.Error
	if errors.As(err, &perr) && perr.Provider == "" {
		perr.Provider = c.name
	}
	return err
}

func (c *Client) startSpan(ctx context.Context, operation, model string) (context.Context, trace.Span) {
	return observability.Tracer().Start(ctx, "provider."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("provider", c.name),
			attribute.String("model", model),
		),
	)
}

func (c *Client) observe(span trace.Span, operation string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		if kind := provider.KindOf(err); kind != 0 {
			outcome = kind.String()
		} else {
			outcome = "error"
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		debug.Log("providers", "call failed", "provider", c.name, "operation", operation,
			"outcome", outcome, "error", err)
	}
	observability.ProviderRequestsTotal.WithLabelValues(c.name, operation, outcome).Inc()
	observability.ProviderLatency.WithLabelValues(c.name, operation).Observe(time.Since(start).Seconds())
}

func (c *Client) recordUsage(model string, u *provider.Usage) {
	if u == nil {
		return
	}
	observability.ProviderTokensTotal.WithLabelValues(c.name, model, "input").Add(float64(u.PromptTokens))
	observability.ProviderTokensTotal.WithLabelValues(c.name, model, "output").Add(float64(u.CompletionTokens))
}
