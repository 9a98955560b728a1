package router

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func catalog() []ModelDescriptor {
	return []ModelDescriptor{
		{Name: "flash", ProviderID: "gemini", Tier: TierLight, CostPer1kIn: 0.0005, SupportsTools: true},
		{Name: "sonnet", ProviderID: "anthropic", Tier: TierStandard, CostPer1kIn: 0.003, SupportsTools: true},
		{Name: "gpt-4o", ProviderID: "openai", Tier: TierStandard, CostPer1kIn: 0.0025, SupportsTools: true},
		{Name: "opus", ProviderID: "anthropic", Tier: TierAdvanced, CostPer1kIn: 0.015, SupportsTools: true},
	}
}

func TestRouteLowComplexityPicksLight(t *testing.T) {
	m, ok := Route(RouteInput{Signal: ComplexitySignal{TokenLength: 5, StructuralDepth: 5, LanguageFeatureCount: 5, TaskTypeScore: 5}}, catalog(), nil)
	require.True(t, ok)
	require.Equal(t, TierLight, m.Tier)
}

func TestRouteHighComplexityPicksAdvanced(t *testing.T) {
	m, ok := Route(RouteInput{Signal: ComplexitySignal{TokenLength: 95, StructuralDepth: 95, LanguageFeatureCount: 95, TaskTypeScore: 95}}, catalog(), nil)
	require.True(t, ok)
	require.Equal(t, TierAdvanced, m.Tier)
}

func TestMinimizeOverridesToLightBelow30(t *testing.T) {
	m, ok := Route(RouteInput{
		Signal:         ComplexitySignal{TokenLength: 20, StructuralDepth: 20, LanguageFeatureCount: 20, TaskTypeScore: 20},
		CostPreference: CostMinimize,
	}, catalog(), nil)
	require.True(t, ok)
	require.Equal(t, TierLight, m.Tier)
}

func TestTieBreakByCostThenLatency(t *testing.T) {
	stats := LatencyStats{"anthropic": 500, "openai": 200}
	m, ok := Route(RouteInput{Signal: ComplexitySignal{TokenLength: 50, StructuralDepth: 50, LanguageFeatureCount: 50, TaskTypeScore: 50}}, catalog(), stats)
	require.True(t, ok)
	require.Equal(t, "gpt-4o", m.Name) // cheaper cost_per_1k_in among standard tier
}

func TestRequireToolUseFiltersCandidates(t *testing.T) {
	cat := catalog()
	cat = append(cat, ModelDescriptor{Name: "no-tools", ProviderID: "x", Tier: TierStandard, CostPer1kIn: 0.0001, SupportsTools: false})
	m, ok := Route(RouteInput{
		Signal:         ComplexitySignal{TokenLength: 50, StructuralDepth: 50, LanguageFeatureCount: 50, TaskTypeScore: 50},
		RequireToolUse: true,
	}, cat, nil)
	require.True(t, ok)
	require.True(t, m.SupportsTools)
}
