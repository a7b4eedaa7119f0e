// Package logging provides categorized logging for livecode on top of zap.
// Every category is a named child of one root zap logger; categories can be
// switched off from config. Until Initialize or SetLogger is called all
// logging is a silent no-op.
package logging

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot      Category = "boot"      // Startup, config
	CategoryAPI       Category = "api"       // Reasoning service calls and retries
	CategoryAnalysis  Category = "analysis"  // Analysis requests, parsing, cache
	CategorySession   Category = "session"   // Debounce, supersession, animation
	CategoryRunner    Category = "runner"    // Execution proxy
	CategoryChat      Category = "chat"      // Conversational assistant
	CategoryStore     Category = "store"     // SQLite cache and traces
	CategoryWatch     Category = "watch"     // File watcher edit source
	CategoryWorkspace Category = "workspace" // File/folder tree
)

// Config mirrors config.LoggingConfig to avoid an import cycle.
type Config struct {
	Level      string
	Format     string // json or console
	File       string
	Categories map[string]bool
}

// Logger is a category-scoped printf-style logger.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	mu         sync.RWMutex
	root       = zap.NewNop()
	categories map[string]bool
	loggers    = make(map[Category]*Logger)
)

// Build constructs a zap logger from cfg. verbose forces debug level.
func Build(cfg Config, verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if strings.ToLower(cfg.Format) != "json" {
		zc.Encoding = "console"
		zc.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}

	level := zapcore.InfoLevel
	if cfg.Level != "" {
		parsed, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = parsed
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	if cfg.File != "" {
		zc.OutputPaths = []string{cfg.File}
	} else {
		zc.OutputPaths = []string{"stderr"}
	}
	zc.ErrorOutputPaths = []string{"stderr"}

	return zc.Build()
}

// Initialize builds a logger from cfg and installs it as the root.
func Initialize(cfg Config, verbose bool) (*zap.Logger, error) {
	l, err := Build(cfg, verbose)
	if err != nil {
		return nil, err
	}
	SetLogger(l, cfg.Categories)
	Get(CategoryBoot).Debug("logging initialized (level=%s format=%s)", l.Level(), cfg.Format)
	return l, nil
}

// SetLogger installs l as the root logger. A nil logger restores the no-op.
// categories maps category name to enabled; unlisted categories are enabled.
func SetLogger(l *zap.Logger, cats map[string]bool) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	defer mu.Unlock()
	root = l
	categories = cats
	loggers = make(map[Category]*Logger)
}

// Root returns the installed zap logger.
func Root() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	return categoryEnabledLocked(category)
}

func categoryEnabledLocked(category Category) bool {
	if categories == nil {
		return true
	}
	enabled, ok := categories[string(category)]
	if !ok {
		return true
	}
	return enabled
}

// Get returns (or creates) a logger for the given category.
// Disabled categories get a no-op logger.
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

	base := root
	if !categoryEnabledLocked(category) {
		base = zap.NewNop()
	}
	l := &Logger{
		category: category,
		sugar:    base.Named(string(category)).Sugar(),
	}
	loggers[category] = l
	return l
}

// With returns a child logger carrying structured key/value fields.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

// Sync flushes the root logger.
func Sync() error {
	return Root().Sync()
}

// =============================================================================
// CONVENIENCE FUNCTIONS - Quick logging without getting a logger first
// =============================================================================

func Boot(format string, args ...interface{})      { Get(CategoryBoot).Info(format, args...) }
func BootDebug(format string, args ...interface{}) { Get(CategoryBoot).Debug(format, args...) }

func API(format string, args ...interface{})      { Get(CategoryAPI).Info(format, args...) }
func APIDebug(format string, args ...interface{}) { Get(CategoryAPI).Debug(format, args...) }
func APIWarn(format string, args ...interface{})  { Get(CategoryAPI).Warn(format, args...) }

func Analysis(format string, args ...interface{})      { Get(CategoryAnalysis).Info(format, args...) }
func AnalysisDebug(format string, args ...interface{}) { Get(CategoryAnalysis).Debug(format, args...) }
func AnalysisWarn(format string, args ...interface{})  { Get(CategoryAnalysis).Warn(format, args...) }

func Session(format string, args ...interface{})      { Get(CategorySession).Info(format, args...) }
func SessionDebug(format string, args ...interface{}) { Get(CategorySession).Debug(format, args...) }
func SessionWarn(format string, args ...interface{})  { Get(CategorySession).Warn(format, args...) }

func Runner(format string, args ...interface{})      { Get(CategoryRunner).Info(format, args...) }
func RunnerDebug(format string, args ...interface{}) { Get(CategoryRunner).Debug(format, args...) }
func RunnerError(format string, args ...interface{}) { Get(CategoryRunner).Error(format, args...) }

func Chat(format string, args ...interface{})      { Get(CategoryChat).Info(format, args...) }
func ChatDebug(format string, args ...interface{}) { Get(CategoryChat).Debug(format, args...) }

func Store(format string, args ...interface{})      { Get(CategoryStore).Info(format, args...) }
func StoreDebug(format string, args ...interface{}) { Get(CategoryStore).Debug(format, args...) }
func StoreError(format string, args ...interface{}) { Get(CategoryStore).Error(format, args...) }

func Watch(format string, args ...interface{})      { Get(CategoryWatch).Info(format, args...) }
func WatchDebug(format string, args ...interface{}) { Get(CategoryWatch).Debug(format, args...) }
func WatchWarn(format string, args ...interface{})  { Get(CategoryWatch).Warn(format, args...) }

func Workspace(format string, args ...interface{}) { Get(CategoryWorkspace).Info(format, args...) }
