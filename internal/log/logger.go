package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is a slog.Logger tagged with the component that owns it. The
// component is written once per line, by the level methods below.
type Logger struct {
	*slog.Logger
	component string
}

// Format selects the line encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Config describes how to build a Logger. Handler, when set, wins over
// Level, Format and Output.
type Config struct {
	Level     slog.Level
	Format    Format
	Output    io.Writer
	Component string
	Handler   slog.Handler
}

// DefaultConfig logs text at info level to stdout.
func DefaultConfig() Config {
	return Config{
		Level:     slog.LevelInfo,
		Format:    FormatText,
		Output:    os.Stdout,
		Component: ComponentApp,
	}
}

// ParseConfig builds a Config from LOG_LEVEL and LOG_FORMAT values. Empty
// values keep the defaults.
func ParseConfig(level, format string, out io.Writer) (Config, error) {
	cfg := DefaultConfig()
	if out != nil {
		cfg.Output = out
	}
	var err error
	if cfg.Level, err = ParseLevel(level); err != nil {
		return cfg, err
	}
	if cfg.Format, err = ParseFormat(format); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ParseLevel maps a LOG_LEVEL value to a slog level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level '%s': must be one of debug, info, warn, error", s)
	}
}

// ParseFormat maps a LOG_FORMAT value to a Format. Empty means text.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return FormatText, fmt.Errorf("invalid log format '%s': must be text or json", s)
	}
}

func (c Config) handler() slog.Handler {
	if c.Handler != nil {
		return c.Handler
	}
	out := c.Output
	if out == nil {
		out = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: c.Level}
	if c.Format == FormatJSON {
		return slog.NewJSONHandler(out, opts)
	}
	return slog.NewTextHandler(out, opts)
}

// New creates a logger from config.
func New(config Config) *Logger {
	return &Logger{
		Logger:    slog.New(config.handler()),
		component: config.Component,
	}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return New(Config{Component: "test", Handler: slog.NewTextHandler(io.Discard, nil)})
}

// With returns a logger carrying the given attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...), component: l.component}
}

// WithComponent returns a logger for another component, keeping attributes.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{Logger: l.Logger, component: component}
}

func (l *Logger) log(ctx context.Context, level slog.Level, msg string, args []any) {
	if l.component != "" {
		args = append([]any{FieldComponent, l.component}, args...)
	}
	l.Logger.Log(ctx, level, msg, args...)
}

func (l *Logger) Info(msg string, args ...any) {
	l.log(context.Background(), slog.LevelInfo, msg, args)
}

func (l *Logger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.LevelInfo, msg, args)
}

func (l *Logger) Warn(msg string, args ...any) {
	l.log(context.Background(), slog.LevelWarn, msg, args)
}

func (l *Logger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.LevelWarn, msg, args)
}

func (l *Logger) Error(msg string, args ...any) {
	l.log(context.Background(), slog.LevelError, msg, args)
}

func (l *Logger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.LevelError, msg, args)
}

func (l *Logger) Debug(msg string, args ...any) {
	l.log(context.Background(), slog.LevelDebug, msg, args)
}

func (l *Logger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.LevelDebug, msg, args)
}

// SetDefault installs logger as the slog default.
func SetDefault(logger *Logger) {
	slog.SetDefault(logger.Logger)
}

// Component returns the logger's component name.
func (l *Logger) Component() string {
	return l.component
}
