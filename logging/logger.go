package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// LogLevel is a thin enum for user friendly level configuration decoupled from slog.
type LogLevel int

const (
	// LogLevelDebug is the debug logging level.
	LogLevelDebug LogLevel = iota
	// LogLevelInfo is the informational logging level.
	LogLevelInfo
	// LogLevelWarn is the warning logging level.
	LogLevelWarn
	// LogLevelError is the error logging level.
	LogLevelError
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a case-insensitive level name to a LogLevel. Unknown names
// yield LogLevelInfo and false.
func ParseLevel(s string) (LogLevel, bool) {
	switch s {
	case "debug", "DEBUG":
		return LogLevelDebug, true
	case "info", "INFO":
		return LogLevelInfo, true
	case "warn", "WARN", "warning", "WARNING":
		return LogLevelWarn, true
	case "error", "ERROR":
		return LogLevelError, true
	default:
		return LogLevelInfo, false
	}
}

// Logger defines the minimal logging interface for nodemesh.
// Args are slog style key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SlogAdapter wraps *slog.Logger to implement the Logger interface.
type SlogAdapter struct {
	*slog.Logger
}

// Debug logs a debug message.
func (s *SlogAdapter) Debug(msg string, args ...any) { s.Logger.Debug(msg, args...) }

// Info logs an informational message.
func (s *SlogAdapter) Info(msg string, args ...any) { s.Logger.Info(msg, args...) }

// Warn logs a warning message.
func (s *SlogAdapter) Warn(msg string, args ...any) { s.Logger.Warn(msg, args...) }

// Error logs an error message.
func (s *SlogAdapter) Error(msg string, args ...any) { s.Logger.Error(msg, args...) }

// NewSlogAdapter creates a Logger from *slog.Logger.
func NewSlogAdapter(logger *slog.Logger) Logger {
	return &SlogAdapter{Logger: logger}
}

// NewDefaultSlogLogger creates a Logger using slog.Default().
func NewDefaultSlogLogger() Logger {
	return NewSlogAdapter(slog.Default())
}

// NodeLogger wraps slog.Logger adding node scoped attributes and domain
// helpers for entity creation, lifecycle sweeps and parameter declaration.
// With* methods return copies; the receiver is never mutated.
type NodeLogger struct {
	logger    *slog.Logger
	level     LogLevel
	context   map[string]any
	component string
	node      string
	entity    string
}

// LoggerConfig configures construction of a NodeLogger.
type LoggerConfig struct {
	Level       LogLevel
	Format      string // json or text
	Output      io.Writer
	AddSource   bool
	Component   string
	Node        string
	CustomAttrs map[string]any
}

// DefaultLoggerConfig returns a baseline JSON info level configuration.
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{Level: LogLevelInfo, Format: "json", Output: os.Stderr, CustomAttrs: map[string]any{}}
}

// NewLogger builds a NodeLogger from a config (or defaults if nil).
func NewLogger(cfg *LoggerConfig) *NodeLogger {
	if cfg == nil {
		cfg = DefaultLoggerConfig()
	}
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: slogLevel(cfg.Level), AddSource: cfg.AddSource}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(cfg.Output, opts)
	} else {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	}
	nl := &NodeLogger{logger: slog.New(handler), level: cfg.Level, context: map[string]any{}, component: cfg.Component, node: cfg.Node}
	for k, v := range cfg.CustomAttrs {
		nl.context[k] = v
	}
	return nl
}

// NewSlogLogger creates a NodeLogger with the given level, format and source flag.
func NewSlogLogger(level LogLevel, format string, addSource bool) *NodeLogger {
	cfg := DefaultLoggerConfig()
	cfg.Level = level
	if format != "" {
		cfg.Format = format
	}
	cfg.AddSource = addSource
	return NewLogger(cfg)
}

func slogLevel(l LogLevel) slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelInfo:
		return slog.LevelInfo
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *NodeLogger) clone() *NodeLogger {
	nl := *l
	nl.context = make(map[string]any, len(l.context))
	for k, v := range l.context {
		nl.context[k] = v
	}
	return &nl
}

// WithContext adds a key/value attribute that will be attached to every log entry.
func (l *NodeLogger) WithContext(key string, value any) *NodeLogger {
	nl := l.clone()
	nl.context[key] = value
	return nl
}

// WithComponent sets the logical component (registry, factory, transport, etc.).
func (l *NodeLogger) WithComponent(c string) *NodeLogger {
	nl := l.clone()
	nl.component = c
	return nl
}

// WithNode attaches the fully qualified node name.
func (l *NodeLogger) WithNode(name string) *NodeLogger {
	nl := l.clone()
	nl.node = name
	return nl
}

// WithEntity attaches an entity (topic, service or timer) name.
func (l *NodeLogger) WithEntity(name string) *NodeLogger {
	nl := l.clone()
	nl.entity = name
	return nl
}

func (l *NodeLogger) buildAttrs(args []any) []slog.Attr {
	attrs := make([]slog.Attr, 0, len(l.context)+len(args)/2+3)
	if l.component != "" {
		attrs = append(attrs, slog.String("component", l.component))
	}
	if l.node != "" {
		attrs = append(attrs, slog.String("node", l.node))
	}
	if l.entity != "" {
		attrs = append(attrs, slog.String("entity", l.entity))
	}
	for k, v := range l.context {
		attrs = append(attrs, slog.Any(k, v))
	}
	for len(args) > 0 {
		switch a := args[0].(type) {
		case slog.Attr:
			attrs = append(attrs, a)
			args = args[1:]
		case string:
			if len(args) == 1 {
				attrs = append(attrs, slog.String("!BADKEY", a))
				args = nil
				continue
			}
			attrs = append(attrs, slog.Any(a, args[1]))
			args = args[2:]
		default:
			attrs = append(attrs, slog.Any("!BADKEY", a))
			args = args[1:]
		}
	}
	return attrs
}

func (l *NodeLogger) log(level slog.Level, allowed bool, msg string, args ...any) {
	if !allowed {
		return
	}
	l.logger.LogAttrs(context.Background(), level, msg, l.buildAttrs(args)...)
}

// Debug logs at debug level.
func (l *NodeLogger) Debug(msg string, args ...any) {
	l.log(slog.LevelDebug, l.level <= LogLevelDebug, msg, args...)
}

// Info logs at info level.
func (l *NodeLogger) Info(msg string, args ...any) {
	l.log(slog.LevelInfo, l.level <= LogLevelInfo, msg, args...)
}

// Warn logs at warn level.
func (l *NodeLogger) Warn(msg string, args ...any) {
	l.log(slog.LevelWarn, l.level <= LogLevelWarn, msg, args...)
}

// Error logs at error level.
func (l *NodeLogger) Error(msg string, args ...any) {
	l.log(slog.LevelError, l.level <= LogLevelError, msg, args...)
}

// LogEntityCreated records the outcome of an endpoint factory call.
func (l *NodeLogger) LogEntityCreated(kind, name, typeName string, managed bool, err error) {
	attrs := l.buildAttrs(nil)
	attrs = append(attrs, slog.String("kind", kind), slog.String("name", name), slog.String("type", typeName), slog.Bool("managed", managed))
	level := slog.LevelDebug
	msg := "entity created"
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		level = slog.LevelError
		msg = "entity creation failed"
	}
	l.logger.LogAttrs(context.Background(), level, msg, attrs...)
}

// LogTransitionSweep records one registry sweep.
func (l *NodeLogger) LogTransitionSweep(target string, visited, skipped, failed int, dur time.Duration) {
	attrs := l.buildAttrs(nil)
	attrs = append(attrs, slog.String("target", target), slog.Int("visited", visited), slog.Int("skipped", skipped), slog.Int("failed", failed), slog.Duration("duration", dur))
	level := slog.LevelDebug
	if failed > 0 {
		level = slog.LevelWarn
	}
	l.logger.LogAttrs(context.Background(), level, "managed entity sweep", attrs...)
}

// LogParameterDeclared records a parameter declaration and whether an override won.
func (l *NodeLogger) LogParameterDeclared(name, typ string, overridden bool, err error) {
	attrs := l.buildAttrs(nil)
	attrs = append(attrs, slog.String("parameter", name), slog.String("type", typ), slog.Bool("overridden", overridden))
	level := slog.LevelDebug
	msg := "parameter declared"
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		level = slog.LevelWarn
		msg = "parameter declaration failed"
	}
	l.logger.LogAttrs(context.Background(), level, msg, attrs...)
}

// NoOpLogger discards all log messages. Useful for testing or when logging is disabled.
type NoOpLogger struct{}

// Debug logs a debug message.
func (NoOpLogger) Debug(string, ...any) {}

// Info logs an informational message.
func (NoOpLogger) Info(string, ...any) {}

// Warn logs a warning message.
func (NoOpLogger) Warn(string, ...any) {}

// Error logs an error message.
func (NoOpLogger) Error(string, ...any) {}

// OrNoOp returns l, or a NoOpLogger when l is nil.
func OrNoOp(l Logger) Logger {
	if l == nil {
		return NoOpLogger{}
	}
	return l
}

type domainLogger interface {
	LogEntityCreated(kind, name, typeName string, managed bool, err error)
	LogTransitionSweep(target string, visited, skipped, failed int, dur time.Duration)
	LogParameterDeclared(name, typ string, overridden bool, err error)
}

// EntityCreated logs a factory outcome through l, using the NodeLogger
// helper when l provides one.
func EntityCreated(l Logger, kind, name, typeName string, managed bool, err error) {
	if dl, ok := l.(domainLogger); ok {
		dl.LogEntityCreated(kind, name, typeName, managed, err)
		return
	}
	if err != nil {
		l.Error("entity creation failed", "kind", kind, "name", name, "type", typeName, "error", err.Error())
		return
	}
	l.Debug("entity created", "kind", kind, "name", name, "type", typeName, "managed", managed)
}

// TransitionSweep logs a registry sweep through l.
func TransitionSweep(l Logger, target string, visited, skipped, failed int, dur time.Duration) {
	if dl, ok := l.(domainLogger); ok {
		dl.LogTransitionSweep(target, visited, skipped, failed, dur)
		return
	}
	args := []any{"target", target, "visited", visited, "skipped", skipped, "failed", failed, "duration", dur}
	if failed > 0 {
		l.Warn("managed entity sweep", args...)
		return
	}
	l.Debug("managed entity sweep", args...)
}

// ParameterDeclared logs a parameter declaration through l.
func ParameterDeclared(l Logger, name, typ string, overridden bool, err error) {
	if dl, ok := l.(domainLogger); ok {
		dl.LogParameterDeclared(name, typ, overridden, err)
		return
	}
	if err != nil {
		l.Warn("parameter declaration failed", "parameter", name, "type", typ, "error", err.Error())
		return
	}
	l.Debug("parameter declared", "parameter", name, "type", typ, "overridden", overridden)
}
