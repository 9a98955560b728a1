package aiservice

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"govctl/internal/obslog"
)

type fakeAdapter struct {
	p        Provider
	caps     Capability
	calls    int
	failN    int // fail this many times before succeeding
	failWith error
}

func (f *fakeAdapter) provider() Provider      { return f.p }
func (f *fakeAdapter) capabilities() Capability { return f.caps }
func (f *fakeAdapter) complete(ctx context.Context, req Request, model string) (Response, error) {
	f.calls++
	if f.calls <= f.failN {
		if f.failWith != nil {
			return Response{}, f.failWith
		}
		return Response{}, providerTransientErr(f.p, errors.New("boom"))
	}
	return Response{Text: "hello from " + string(f.p), Provider: f.p}, nil
}

func newTestService(t *testing.T, chain []Provider, adapters map[Provider]adapter) *Service {
	t.Helper()
	return &Service{
		adapters: adapters,
		chain:    chain,
		cooling:  newCoolingState(),
		metrics:  NewMetrics(),
		log:      obslog.Get(obslog.CategoryAIService),
	}
}

func TestCompleteSucceedsOnFirstProvider(t *testing.T) {
	a := &fakeAdapter{p: ProviderGemini, caps: CapTextOnly}
	s := newTestService(t, []Provider{ProviderGemini}, map[Provider]adapter{ProviderGemini: a})

	resp, err := s.Complete(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	require.NoError(t, err)
	require.Equal(t, ProviderGemini, resp.Provider)
	require.Equal(t, 1, a.calls)
}

func TestCompleteFallsBackOnTransientError(t *testing.T) {
	a1 := &fakeAdapter{p: ProviderGemini, caps: CapTextOnly, failN: 99}
	a2 := &fakeAdapter{p: ProviderAnthropic, caps: CapTextOnly}
	s := newTestService(t, []Provider{ProviderGemini, ProviderAnthropic}, map[Provider]adapter{
		ProviderGemini:    a1,
		ProviderAnthropic: a2,
	})

	resp, err := s.Complete(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	require.NoError(t, err)
	require.Equal(t, ProviderAnthropic, resp.Provider)
}

func TestCompleteSkipsCoolingProvider(t *testing.T) {
	a1 := &fakeAdapter{p: ProviderGemini, caps: CapTextOnly, failN: 99}
	a2 := &fakeAdapter{p: ProviderAnthropic, caps: CapTextOnly}
	s := newTestService(t, []Provider{ProviderGemini, ProviderAnthropic}, map[Provider]adapter{
		ProviderGemini:    a1,
		ProviderAnthropic: a2,
	})

	_, err := s.Complete(context.Background(), Request{})
	require.NoError(t, err)
	require.Equal(t, 1, a1.calls)

	_, err = s.Complete(context.Background(), Request{})
	require.NoError(t, err)
	// gemini should be skipped entirely the second time since it is cooling.
	require.Equal(t, 1, a1.calls)
}

func TestCompleteFiltersByToolCapability(t *testing.T) {
	a1 := &fakeAdapter{p: ProviderOllama, caps: CapTextOnly}
	a2 := &fakeAdapter{p: ProviderAnthropic, caps: CapTextOnly | CapToolUse}
	s := newTestService(t, []Provider{ProviderOllama, ProviderAnthropic}, map[Provider]adapter{
		ProviderOllama:    a1,
		ProviderAnthropic: a2,
	})

	resp, err := s.Complete(context.Background(), Request{Tools: []ToolSpec{{Name: "x"}}})
	require.NoError(t, err)
	require.Equal(t, ProviderAnthropic, resp.Provider)
	require.Zero(t, a1.calls)
}

func TestCompleteFailsFastOnAuthErrorWithoutTryingFallback(t *testing.T) {
	a1 := &fakeAdapter{p: ProviderGemini, caps: CapTextOnly, failN: 99, failWith: providerAuthErr(ProviderGemini, errors.New("invalid api key"))}
	a2 := &fakeAdapter{p: ProviderAnthropic, caps: CapTextOnly}
	s := newTestService(t, []Provider{ProviderGemini, ProviderAnthropic}, map[Provider]adapter{
		ProviderGemini:    a1,
		ProviderAnthropic: a2,
	})

	_, err := s.Complete(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	require.Error(t, err)
	require.True(t, isFailFast(err))
	require.Equal(t, 1, a1.calls)
	require.Zero(t, a2.calls)
}

func TestCompleteFailsFastOnMalformedRequestWithoutTryingFallback(t *testing.T) {
	a1 := &fakeAdapter{p: ProviderGemini, caps: CapTextOnly, failN: 99, failWith: providerMalformedErr(ProviderGemini, errors.New("bad request"))}
	a2 := &fakeAdapter{p: ProviderAnthropic, caps: CapTextOnly}
	s := newTestService(t, []Provider{ProviderGemini, ProviderAnthropic}, map[Provider]adapter{
		ProviderGemini:    a1,
		ProviderAnthropic: a2,
	})

	_, err := s.Complete(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	require.Error(t, err)
	require.True(t, isFailFast(err))
	require.Zero(t, a2.calls)
}

func TestCompleteExhaustsAllProviders(t *testing.T) {
	a1 := &fakeAdapter{p: ProviderGemini, caps: CapTextOnly, failN: 99}
	s := newTestService(t, []Provider{ProviderGemini}, map[Provider]adapter{ProviderGemini: a1})

	_, err := s.Complete(context.Background(), Request{})
	require.Error(t, err)
}

func TestScrubRedactsSecretShapedText(t *testing.T) {
	in := "here is a key sk-abcdefghijklmnopqrstuvwx and a bearer Bearer abcdefghijklmnopqrstuvwxyz0123456789"
	out := scrub(in)
	require.NotContains(t, out, "sk-abcdefghijklmnopqrstuvwx")
	require.Contains(t, out, redactedPlaceholder)
}
