package tokens

import (
	"testing"

	"github.com/stretchr/testify/require"

	"govctl/internal/config"
)

func budget() config.TokenBudgetConfig {
	return config.TokenBudgetConfig{
		PerRequestCap: 1000,
		PerSessionCap: 2000,
		PerDayCap:     5000,
		AlertRatio:    0.8,
		HardStopRatio: 0.95,
	}
}

func TestCheckAndReservePerRequestCap(t *testing.T) {
	m := NewManager(budget(), 0, nil)
	err := m.CheckAndReserve("s1", 1500)
	require.Error(t, err)
}

func TestCheckAndReserveAlertThenHardStop(t *testing.T) {
	var alerts int
	m := NewManager(budget(), 0, func(AlertEvent) { alerts++ })

	require.NoError(t, m.CheckAndReserve("s1", 900)) // 900/2000 = 45%, no alert
	require.NoError(t, m.CheckAndReserve("s1", 800))  // 1700/2000 = 85%, crosses alert
	require.Equal(t, 1, alerts)

	err := m.CheckAndReserve("s1", 300) // 2000/2000 >= 95% hard stop
	require.Error(t, err)
}

func TestAlertFiresOnlyOnce(t *testing.T) {
	var alerts int
	m := NewManager(budget(), 0, func(AlertEvent) { alerts++ })
	require.NoError(t, m.CheckAndReserve("s1", 1700))
	require.NoError(t, m.CheckAndReserve("s1", 10))
	require.Equal(t, 1, alerts)
}

func TestTrimToFitPreservesSystemAndLastUser(t *testing.T) {
	msgs := []Message{
		{Role: "system", Content: "you are a reviewer"},
		{Role: "user", Content: "turn one aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"},
		{Role: "assistant", Content: "reply one aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"},
		{Role: "user", Content: "turn two, the most recent user turn"},
	}
	trimmed := TrimToFit(DefaultTokenizer, msgs, 10)
	require.Equal(t, "system", trimmed[0].Role)
	require.Equal(t, "turn two, the most recent user turn", trimmed[len(trimmed)-1].Content)
}

func TestEstimateSumsSystemUserAndExpectedOutput(t *testing.T) {
	n := Estimate(DefaultTokenizer, "abcd", "abcd", 10)
	require.Equal(t, int64(1+1+10), n)
}
