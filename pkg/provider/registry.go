package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rabitem/MailAssistantService-sub002/pkg/debug"
	"github.com/rabitem/MailAssistantService-sub002/pkg/secrets"
)

// ErrStreamingUnsupported is returned by Registry.Stream for providers whose
// descriptor does not declare streaming support.
var ErrStreamingUnsupported = errors.New("provider does not support streaming")

// CredentialSource is the read side of the secret store, keyed by provider ID.
type CredentialSource interface {
	Get(ctx context.Context, providerID string) (string, error)
}

// Registry maps provider IDs to Provider instances. Registration order is
// kept so listings are stable.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	order     []string
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds p under its descriptor ID.
func (r *Registry) Register(p Provider) error {
	if p == nil {
		return errors.New("provider must not be nil")
	}
	id := p.Descriptor().ID
	if id == "" {
		return errors.New("provider descriptor has no ID")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateProvider, id)
	}
	r.providers[id] = p
	r.order = append(r.order, id)
	return nil
}

// Lookup returns the provider registered under id.
func (r *Registry) Lookup(id string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, id)
	}
	return p, nil
}

// Descriptors returns the descriptors of all providers in registration order.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.providers[id].Descriptor())
	}
	return out
}

func (r *Registry) all() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Provider, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.providers[id])
	}
	return out
}

// LoadCredentials reads every provider's credential from src and rotates it
// into the provider. A credential missing from the store clears the
// provider's copy, so a deleted key stops being used.
func (r *Registry) LoadCredentials(ctx context.Context, src CredentialSource) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, p := range r.all() {
		g.Go(func() error {
			desc := p.Descriptor()
			credential, err := src.Get(gctx, desc.ID)
			switch {
			case errors.Is(err, secrets.ErrNotFound):
				debug.Log("secrets", "no credential stored", "provider", desc.ID,
					"optional", desc.CredentialOptional)
				p.UpdateCredential("")
				return nil
			case err != nil:
				return fmt.Errorf("loading credential for %s: %w", desc.ID, err)
			}
			p.UpdateCredential(credential)
			debug.Log("secrets", "credential loaded", "provider", desc.ID)
			return nil
		})
	}
	return g.Wait()
}

// ListAllModels queries every provider's models endpoint concurrently and
// returns model IDs keyed by provider ID. The first failure cancels the rest.
func (r *Registry) ListAllModels(ctx context.Context) (map[string][]string, error) {
	providers := r.all()

	var mu sync.Mutex
	out := make(map[string][]string, len(providers))

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range providers {
		g.Go(func() error {
			list, err := p.ListModels(gctx)
			if err != nil {
				return err
			}
			mu.Lock()
			out[p.Descriptor().ID] = list.IDs()
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Stream starts a streaming completion on provider id.
func (r *Registry) Stream(ctx context.Context, id string, req *CompletionRequest) (<-chan StreamEvent, error) {
	p, err := r.Lookup(id)
	if err != nil {
		return nil, err
	}
	if !p.Descriptor().SupportsStreaming {
		return nil, fmt.Errorf("%w: %s", ErrStreamingUnsupported, id)
	}
	return p.Stream(ctx, req)
}

// Send runs a completion on provider id, streaming when the descriptor
// supports it. onChunk, if non-nil, observes each chunk as it arrives; the
// returned response is the full message in both modes. Cancellation yields a
// transport-failure *Error wrapping ctx.Err() on either path.
func (r *Registry) Send(ctx context.Context, id string, req *CompletionRequest, onChunk func(*CompletionChunk)) (*CompletionResponse, error) {
	p, err := r.Lookup(id)
	if err != nil {
		return nil, err
	}

	if !p.Descriptor().SupportsStreaming {
		return p.Complete(ctx, req)
	}

	events, err := p.Stream(ctx, req)
	if err != nil {
		return nil, err
	}

	acc := NewAccumulator()
	for ev := range events {
		if ev.Err != nil {
			return nil, ev.Err
		}
		acc.Add(ev.Chunk)
		if onChunk != nil {
			onChunk(ev.Chunk)
		}
	}
	if err := ctx.Err(); err != nil {
		terr := NewTransportError(err)
		terr.Provider = id
		return nil, terr
	}

	resp := acc.Response()
	if resp.Usage == nil {
		u := acc.Usage(req.Messages)
		resp.Usage = &u
	}
	return resp, nil
}

// Close closes every registered provider and returns the joined errors.
func (r *Registry) Close() error {
	var errs []error
	for _, p := range r.all() {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
