package obslog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func resetState(t *testing.T) {
	t.Helper()
	mu.Lock()
	loggers = map[Category]*Logger{}
	initialized = false
	debugMode = false
	minLevel = LevelInfo
	mu.Unlock()
}

func TestGetIsNoOpWhenUninitialized(t *testing.T) {
	resetState(t)
	l := Get(CategoryBoot)
	l.Info("should not panic or write anything: %d", 1)
}

func TestGetWritesJSONLinesWhenDebugModeOn(t *testing.T) {
	resetState(t)
	dir := t.TempDir()
	require.NoError(t, Initialize(dir, true, LevelDebug))

	l := Get(CategoryConfig)
	l.Info("hello %s", "world")
	CloseAll()

	data, err := os.ReadFile(filepath.Join(dir, ".agent", "logs", "config.log"))
	require.NoError(t, err)
	require.Contains(t, string(data), "hello world")
	require.Contains(t, string(data), `"category":"config"`)
}

func TestDebugModeReflectsInitializeFlag(t *testing.T) {
	resetState(t)
	require.False(t, DebugMode())
	require.NoError(t, Initialize(t.TempDir(), true, LevelInfo))
	require.True(t, DebugMode())
}
