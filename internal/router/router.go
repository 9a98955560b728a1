// Package router implements the Model Router (component D): maps a
// task's complexity and cost preference to a concrete ModelDescriptor.
package router

import "sort"

// CostPreference is one of the caller's stated preferences.
type CostPreference string

const (
	CostMinimize    CostPreference = "minimize"
	CostBalance     CostPreference = "balance"
	CostPerformance CostPreference = "performance"
)

// Tier is the model capability tier.
type Tier string

const (
	TierLight    Tier = "light"
	TierStandard Tier = "standard"
	TierAdvanced Tier = "advanced"
)

// ComplexitySignal is the raw input used to score task complexity, with
// the weights from spec.md §4.4: token length 40%, structural depth 25%,
// language-feature count 20%, task type 15%.
type ComplexitySignal struct {
	TokenLength     int // length of the prompt/diff in tokens
	StructuralDepth int // e.g. nesting depth of the affected code
	LanguageFeatureCount int // distinct language constructs touched
	TaskTypeScore   int // 0-100 precomputed task-type weight (e.g. "rename"=10, "refactor"=70)
}

// RouteInput is the caller-provided request.
type RouteInput struct {
	Signal          ComplexitySignal
	CostPreference  CostPreference
	RequireToolUse  bool
}

// ModelDescriptor mirrors spec.md §3's Model Descriptor.
type ModelDescriptor struct {
	Name           string
	ProviderID     string
	Tier           Tier
	MaxInputTokens int
	MaxOutputTokens int
	CostPer1kIn    float64
	CostPer1kOut   float64
	SupportsTools  bool
}

// LatencyStats supplies the rolling p95 latency used as a tie-break,
// keyed by provider id.
type LatencyStats map[string]float64 // milliseconds

// ScoreComplexity applies the weighted formula from spec.md §4.4. Each
// signal field is expected to already be normalized to [0,100] by the
// caller; ScoreComplexity only applies the weights and clamps the result.
func ScoreComplexity(s ComplexitySignal) float64 {
	score := 0.40*clamp0to100(float64(s.TokenLength)) +
		0.25*clamp0to100(float64(s.StructuralDepth)) +
		0.20*clamp0to100(float64(s.LanguageFeatureCount)) +
		0.15*clamp0to100(float64(s.TaskTypeScore))
	return clamp0to100(score)
}

func clamp0to100(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func tierFor(complexity float64) Tier {
	switch {
	case complexity < 30:
		return TierLight
	case complexity <= 70:
		return TierStandard
	default:
		return TierAdvanced
	}
}

// Route picks a ModelDescriptor from catalog per spec.md §4.4: score
// complexity, map to a tier, apply the minimize-override, require tool
// use filter, then tie-break within the tier by lowest cost_per_1k_in then
// lowest observed p95 latency.
func Route(input RouteInput, catalog []ModelDescriptor, stats LatencyStats) (ModelDescriptor, bool) {
	complexity := ScoreComplexity(input.Signal)
	tier := tierFor(complexity)

	if input.CostPreference == CostMinimize && complexity < 30 {
		tier = TierLight
	}

	candidates := make([]ModelDescriptor, 0, len(catalog))
	for _, m := range catalog {
		if m.Tier != tier {
			continue
		}
		if input.RequireToolUse && !m.SupportsTools {
			continue
		}
		candidates = append(candidates, m)
	}

	// If the preferred tier has no eligible candidate (e.g. a tool-use
	// requirement eliminates everything), fall back across adjacent
	// tiers in order of closeness, still respecting RequireToolUse.
	if len(candidates) == 0 {
		for _, t := range fallbackTierOrder(tier) {
			for _, m := range catalog {
				if m.Tier != t {
					continue
				}
				if input.RequireToolUse && !m.SupportsTools {
					continue
				}
				candidates = append(candidates, m)
			}
			if len(candidates) > 0 {
				break
			}
		}
	}

	if len(candidates) == 0 {
		return ModelDescriptor{}, false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.CostPer1kIn != b.CostPer1kIn {
			return a.CostPer1kIn < b.CostPer1kIn
		}
		return stats[a.ProviderID] < stats[b.ProviderID]
	})

	return candidates[0], true
}

func fallbackTierOrder(from Tier) []Tier {
	switch from {
	case TierLight:
		return []Tier{TierStandard, TierAdvanced}
	case TierStandard:
		return []Tier{TierAdvanced, TierLight}
	default:
		return []Tier{TierStandard, TierLight}
	}
}
