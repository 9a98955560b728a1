package aiservice

import (
	"context"
	"fmt"
	"sync"
	"time"

	"govctl/internal/config"
	"govctl/internal/govctlerr"
	"govctl/internal/obslog"
)

// CredentialResolver looks up the API key for a provider id, backed by
// internal/secretstore in production and a map in tests.
type CredentialResolver func(providerID string) (string, error)

// Service is the single entry point every governance component calls to
// reach a model. It owns the fallback chain, cooling/backoff, scrubbing,
// and metrics so every caller gets identical behavior regardless of which
// provider ultimately serves the request.
type Service struct {
	mu       sync.Mutex
	adapters map[Provider]adapter
	chain    []Provider
	cooling  *coolingState
	metrics  *Metrics
	log      *obslog.Logger
}

// New builds a Service from the resolved config's enabled providers and
// fallback_chain, resolving each provider's credential through resolve.
// A provider whose adapter fails to construct (e.g. missing credential)
// is dropped from the chain rather than failing Service construction,
// since the CLI should still run with a partial roster.
func New(cfg *config.Config, resolve CredentialResolver) (*Service, error) {
	s := &Service{
		adapters: make(map[Provider]adapter),
		cooling:  newCoolingState(),
		metrics:  NewMetrics(),
		log:      obslog.Get(obslog.CategoryAIService),
	}

	for _, pc := range cfg.EnabledProviders() {
		apiKey := ""
		if pc.CredentialRef != "" {
			key, err := resolve(pc.ID)
			if err != nil {
				s.log.Warn("skipping provider %s: credential unresolved: %v", pc.ID, err)
				continue
			}
			apiKey = key
		}
		factory, ok := adapterFactories[Provider(pc.ID)]
		if !ok {
			s.log.Warn("skipping provider %s: no adapter registered", pc.ID)
			continue
		}
		a, err := factory(adapterConfig{APIKey: apiKey, Endpoint: pc.Endpoint})
		if err != nil {
			s.log.Warn("skipping provider %s: %v", pc.ID, err)
			continue
		}
		s.adapters[Provider(pc.ID)] = a
	}

	for _, id := range cfg.FallbackChain {
		if _, ok := s.adapters[Provider(id)]; ok {
			s.chain = append(s.chain, Provider(id))
		}
	}
	if len(s.chain) == 0 {
		return nil, govctlerr.New(govctlerr.KindConfig, "aiservice.New", fmt.Errorf("no provider in fallback_chain has a usable adapter"))
	}
	return s, nil
}

// Complete runs req through the fallback chain, skipping providers that
// are currently cooling, and returns the first success. Every request
// message is scrubbed before it is sent and every response before it is
// returned, so no caller needs to remember to do so.
func (s *Service) Complete(ctx context.Context, req Request) (Response, error) {
	s.mu.Lock()
	chain := append([]Provider(nil), s.chain...)
	s.mu.Unlock()

	scrubbed := make([]Message, len(req.Messages))
	for i, m := range req.Messages {
		scrubbed[i] = Message{Role: m.Role, Content: scrub(m.Content)}
	}
	req.Messages = scrubbed

	var lastErr error
	attempted := 0
	for _, p := range chain {
		if !s.cooling.available(p, time.Now()) {
			continue
		}
		a := s.adapters[p]
		if req.Tools != nil && !a.capabilities().Has(CapToolUse) {
			continue
		}
		attempted++

		model := req.ModelHint
		resp, err := a.complete(ctx, req, model)
		if err != nil {
			lastErr = err
			outcome := "error"
			if isTransient(err) {
				d := s.cooling.recordFailure(p, time.Now())
				s.metrics.CoolingEvents.WithLabelValues(string(p)).Inc()
				s.log.Warn("provider %s cooling for %s after error: %v", p, d, err)
				outcome = "transient_error"
			} else if isFailFast(err) {
				s.metrics.Requests.WithLabelValues(string(p), "auth_or_malformed").Inc()
				s.log.Error("provider %s failed fast (auth/malformed), no fallback: %v", p, err)
				return Response{}, err
			}
			s.metrics.Requests.WithLabelValues(string(p), outcome).Inc()
			continue
		}

		s.cooling.recordSuccess(p)
		s.metrics.Requests.WithLabelValues(string(p), "success").Inc()
		s.metrics.LatencySeconds.WithLabelValues(string(p), "success").Observe(resp.Latency.Seconds())
		resp.Text = scrub(resp.Text)
		return resp, nil
	}

	if attempted == 0 {
		return Response{}, govctlerr.New(govctlerr.KindTransient, "aiservice.Complete", fmt.Errorf("all providers cooling or incapable"))
	}
	return Response{}, govctlerr.New(govctlerr.KindTransient, "aiservice.Complete", fmt.Errorf("all providers exhausted, last error: %w", lastErr))
}

// StreamComplete runs req through Complete and delivers the outcome as a
// single chunk with Done set: the full text plus Final on success, or Err
// on failure. It does not use any provider's native streaming, and
// providers are chosen exactly as Complete chooses them, whether or not
// they advertise CapStreaming.
func (s *Service) StreamComplete(ctx context.Context, req Request) <-chan StreamChunk {
	out := make(chan StreamChunk, 1)
	go func() {
		defer close(out)
		resp, err := s.Complete(ctx, req)
		if err != nil {
			out <- StreamChunk{Err: err, Done: true}
			return
		}
		out <- StreamChunk{TextDelta: resp.Text, Done: true, Final: &resp}
	}()
	return out
}

// ServiceMetrics exposes the service's Prometheus collectors for
// registration at the CLI boundary.
func (s *Service) ServiceMetrics() *Metrics { return s.metrics }
