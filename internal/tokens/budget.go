// Package tokens implements the Token Manager (component C): per-model
// token counting and per-request/session/day budgets, plus the context
// trimming policy applied before a request is refused outright.
package tokens

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"govctl/internal/config"
	"govctl/internal/govctlerr"
	"govctl/internal/obslog"
)

// Message is the minimal chat-turn shape the Token Manager needs to
// tokenize and trim; aiservice.Message satisfies this shape structurally.
type Message struct {
	Role    string // "system", "user", "assistant"
	Content string
}

// AlertEvent is emitted when session usage crosses alert_ratio of the
// session cap, but before the hard stop.
type AlertEvent struct {
	SessionID string
	Ratio     float64
	Used      int64
	Cap       int64
}

// Manager tracks request/session/day counters and enforces TokenBudget.
type Manager struct {
	budget config.TokenBudgetConfig

	mu           sync.Mutex
	sessionUsed  int64
	dayUsed      int64
	dayStamp     string
	alertFired   int32 // atomic bool, one alert per session
	onAlert      func(AlertEvent)
}

// NewManager constructs a Token Manager bound to one budget policy.
// dayUsedSeed seeds today's running total, for example from
// store.Store.DayUsed. No command in cmd/govctl constructs a Manager, so
// no CLI invocation restores or persists the day counter.
func NewManager(budget config.TokenBudgetConfig, dayUsedSeed int64, onAlert func(AlertEvent)) *Manager {
	return &Manager{
		budget:   budget,
		dayUsed:  dayUsedSeed,
		dayStamp: today(),
		onAlert:  onAlert,
	}
}

func today() string { return time.Now().UTC().Format("2006-01-02") }

// Tokenizer estimates token count for a string. Providers that expose
// their own tokenizer implement this; EstimateTokens below is the
// byte-pair-ish fallback used when none is available.
type Tokenizer interface {
	CountTokens(text string) int
}

// approxTokenizer is the fallback: ~4 characters per token, rounded up,
// the common heuristic used when a provider's own tokenizer is
// unavailable. This is documented as an approximation, not a claim of
// exactness, per SPEC_FULL.md §4.3.
type approxTokenizer struct{}

func (approxTokenizer) CountTokens(text string) int {
	n := len([]rune(text))
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}

// DefaultTokenizer is the byte-pair fallback used when a provider does
// not supply its own.
var DefaultTokenizer Tokenizer = approxTokenizer{}

// Estimate computes estimated_tokens = tokenize(system) + tokenize(user) + expected_output.
func Estimate(tok Tokenizer, system, user string, expectedOutput int) int64 {
	if tok == nil {
		tok = DefaultTokenizer
	}
	return int64(tok.CountTokens(system) + tok.CountTokens(user) + expectedOutput)
}

// CheckAndReserve validates estimatedTokens against per-request, session,
// and day caps, reserving the tokens on success. It implements the exact
// sequence from spec.md §4.3: request cap (fail fast), then alert_ratio
// (emit event, non-fatal), then hard_stop_ratio (refuse).
func (m *Manager) CheckAndReserve(sessionID string, estimatedTokens int64) error {
	if estimatedTokens > int64(m.budget.PerRequestCap) {
		return govctlerr.New(govctlerr.KindBudget, "tokens.CheckAndReserve",
			fmt.Errorf("estimated %d tokens exceeds per_request_cap %d", estimatedTokens, m.budget.PerRequestCap))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if stamp := today(); stamp != m.dayStamp {
		m.dayStamp = stamp
		m.dayUsed = 0
		atomic.StoreInt32(&m.alertFired, 0)
	}

	projectedSession := m.sessionUsed + estimatedTokens
	projectedDay := m.dayUsed + estimatedTokens

	sessionCap := int64(m.budget.PerSessionCap)
	dayCap := int64(m.budget.PerDayCap)

	if float64(projectedSession) >= m.budget.AlertRatio*float64(sessionCap) {
		if atomic.CompareAndSwapInt32(&m.alertFired, 0, 1) && m.onAlert != nil {
			m.onAlert(AlertEvent{SessionID: sessionID, Ratio: m.budget.AlertRatio, Used: projectedSession, Cap: sessionCap})
		}
	}

	if float64(projectedSession) >= m.budget.HardStopRatio*float64(sessionCap) ||
		float64(projectedDay) >= m.budget.HardStopRatio*float64(dayCap) {
		obslog.Get(obslog.CategoryTokens).Warn("budget_exceeded: session=%d/%d day=%d/%d", projectedSession, sessionCap, projectedDay, dayCap)
		return govctlerr.New(govctlerr.KindBudget, "tokens.CheckAndReserve",
			fmt.Errorf("would cross hard_stop_ratio %.2f", m.budget.HardStopRatio))
	}

	m.sessionUsed = projectedSession
	m.dayUsed = projectedDay
	return nil
}

// DayUsed returns today's running total, for persistence by the caller.
func (m *Manager) DayUsed() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dayUsed
}

// SessionUsed returns the current session's running total.
func (m *Manager) SessionUsed() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionUsed
}

// TrimToFit applies the FIFO context-trimming policy: drop oldest
// non-system turns until the remaining conversation's estimated token
// count is at or under cap, always preserving the system turn (if any)
// and the most recent user turn.
func TrimToFit(tok Tokenizer, messages []Message, cap int64) []Message {
	if tok == nil {
		tok = DefaultTokenizer
	}
	total := func(msgs []Message) int64 {
		var sum int64
		for _, msg := range msgs {
			sum += int64(tok.CountTokens(msg.Content))
		}
		return sum
	}

	if total(messages) <= cap || len(messages) == 0 {
		return messages
	}

	var system *Message
	rest := make([]Message, 0, len(messages))
	for i := range messages {
		if messages[i].Role == "system" && system == nil {
			s := messages[i]
			system = &s
			continue
		}
		rest = append(rest, messages[i])
	}

	lastUserIndex := func(msgs []Message) int {
		for i := len(msgs) - 1; i >= 0; i-- {
			if msgs[i].Role == "user" {
				return i
			}
		}
		return -1
	}

	kept := make([]Message, len(rest))
	copy(kept, rest)

	for len(kept) > 1 && total(prepend(system, kept)) > cap {
		dropIdx := 0
		if dropIdx == lastUserIndex(kept) {
			dropIdx = 1
		}
		kept = append(kept[:dropIdx], kept[dropIdx+1:]...)
	}

	return prepend(system, kept)
}

func prepend(system *Message, rest []Message) []Message {
	if system == nil {
		return rest
	}
	out := make([]Message, 0, len(rest)+1)
	out = append(out, *system)
	out = append(out, rest...)
	return out
}
