// Package obslog is config-driven categorized file-based logging for the
// governance core, built on zap. Logs are written under ./.agent/logs/
// and are gated entirely by debug_mode in the loaded config: when false,
// no file is ever opened and every call is a no-op, so the ambient
// logging has zero cost in the default (non-debug) path.
package obslog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category names one of the governance core's subsystems. New components
// append a new constant here rather than inventing ad-hoc strings.
type Category string

const (
	CategoryBoot      Category = "boot"
	CategoryConfig    Category = "config"
	CategorySecret    Category = "secretstore"
	CategoryTokens    Category = "tokens"
	CategoryRouter    Category = "router"
	CategoryAIService Category = "aiservice"
	CategoryRetrieval Category = "retrieval"
	CategoryADRLint   Category = "adrlint"
	CategoryJourney   Category = "journey"
	CategoryCouncil   Category = "council"
	CategoryPreflight Category = "preflight"
	CategoryException Category = "exception"
	CategoryAudit     Category = "audit"
	CategoryStore     Category = "store"
	CategoryDiffscan  Category = "diffscan"
)

const (
	LevelDebug = 0
	LevelInfo  = 1
	LevelWarn  = 2
	LevelError = 3
)

func zapLevel(level int) zapcore.Level {
	switch level {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Logger wraps a per-category zap.SugaredLogger. The zero value (no
// underlying zap logger) is a valid no-op logger, so Get never needs to
// return nil.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
	closer   func() error
}

var (
	mu          sync.RWMutex
	loggers     = map[Category]*Logger{}
	logsDir     string
	debugMode   bool
	minLevel    = LevelInfo
	initialized bool
)

// Initialize wires the package to a workspace root and a debug flag
// resolved from the loaded Config. Safe to call more than once; later
// calls replace the directory/flag but keep already-open files.
func Initialize(workspaceRoot string, debug bool, level int) error {
	mu.Lock()
	defer mu.Unlock()

	if workspaceRoot == "" {
		return fmt.Errorf("obslog: workspace root required")
	}
	logsDir = filepath.Join(workspaceRoot, ".agent", "logs")
	debugMode = debug
	minLevel = level
	initialized = true

	if debugMode {
		if err := os.MkdirAll(logsDir, 0o700); err != nil {
			return fmt.Errorf("obslog: create log dir: %w", err)
		}
	}
	return nil
}

// Get returns (creating if needed) the logger for a category. Returns a
// logger that silently drops everything when debug mode is off or the
// package has not been initialized, so callers never need to nil-check.
func Get(category Category) *Logger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}

	l := &Logger{category: category}
	if initialized && debugMode {
		path := filepath.Join(logsDir, string(category)+".log")
		if f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600); err == nil {
			encCfg := zap.NewProductionEncoderConfig()
			encCfg.TimeKey = "ts"
			encCfg.EncodeTime = zapcore.EpochMillisTimeEncoder
			core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(f), zapLevel(minLevel))
			base := zap.New(core).With(zap.String("category", string(category)))
			l.sugar = base.Sugar()
			l.closer = f.Close
		}
	}
	loggers[category] = l
	return l
}

func (l *Logger) Debug(format string, args ...interface{}) {
	if l.sugar != nil {
		l.sugar.Debugf(format, args...)
	}
}

func (l *Logger) Info(format string, args ...interface{}) {
	if l.sugar != nil {
		l.sugar.Infof(format, args...)
	}
}

func (l *Logger) Warn(format string, args ...interface{}) {
	if l.sugar != nil {
		l.sugar.Warnf(format, args...)
	}
}

func (l *Logger) Error(format string, args ...interface{}) {
	if l.sugar != nil {
		l.sugar.Errorf(format, args...)
	}
}

// WithFields logs a single structured entry carrying extra key/value
// context, used by the Audit Logger and Council Scheduler to emit
// queryable per-event records alongside their primary artifacts.
func (l *Logger) WithFields(level int, message string, fields map[string]interface{}) {
	if l.sugar == nil {
		return
	}
	kv := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		kv = append(kv, k, v)
	}
	switch level {
	case LevelDebug:
		l.sugar.Debugw(message, kv...)
	case LevelWarn:
		l.sugar.Warnw(message, kv...)
	case LevelError:
		l.sugar.Errorw(message, kv...)
	default:
		l.sugar.Infow(message, kv...)
	}
}

// Timer measures and logs the duration of an operation, mirroring the
// teacher's StartTimer/Stop convenience pattern.
type Timer struct {
	logger *Logger
	op     string
	start  time.Time
}

func StartTimer(category Category, op string) *Timer {
	return &Timer{logger: Get(category), op: op, start: time.Now()}
}

func (t *Timer) Stop() {
	t.logger.Debug("%s completed in %v", t.op, time.Since(t.start))
}

// CloseAll flushes and closes every open category log file. Called from
// the CLI's main after the root command returns.
func CloseAll() {
	mu.Lock()
	defer mu.Unlock()
	for _, l := range loggers {
		if l.sugar != nil {
			_ = l.sugar.Sync()
		}
		if l.closer != nil {
			_ = l.closer()
			l.closer = nil
		}
	}
}

// DebugMode reports whether file logging is currently active.
func DebugMode() bool {
	mu.RLock()
	defer mu.RUnlock()
	return initialized && debugMode
}
