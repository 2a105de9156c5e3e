// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package log is a thin facade over the go-ethereum structured logger.
//
// Loggers created with WithContext resolve the root logger on every call, so package level
// loggers declared at init time follow handler changes made later by SetDefault.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	ethlog "github.com/ethereum/go-ethereum/log"
)

// Levels.
const (
	LevelTrace = ethlog.LevelTrace
	LevelDebug = ethlog.LevelDebug
	LevelInfo  = ethlog.LevelInfo
	LevelWarn  = ethlog.LevelWarn
	LevelError = ethlog.LevelError
	LevelCrit  = ethlog.LevelCrit
)

// Logger writes key/value pairs to a handler.
type Logger = ethlog.Logger

// Root returns the root logger.
func Root() Logger {
	return ethlog.Root()
}

// SetDefault sets the root logger.
func SetDefault(l Logger) {
	ethlog.SetDefault(l)
}

// NewLogger creates a logger with the given handler.
func NewLogger(h slog.Handler) Logger {
	return ethlog.NewLogger(h)
}

// New creates a logger bound to the current root handler.
func New(ctx ...any) Logger {
	return ethlog.New(ctx...)
}

// NewTerminalHandlerWithLevel returns a human readable handler. Records below level are
// dropped; level may change while the handler is in use.
func NewTerminalHandlerWithLevel(w io.Writer, level slog.Leveler, useColor bool) slog.Handler {
	return &leveledHandler{ethlog.NewTerminalHandlerWithLevel(w, LevelTrace, useColor), level}
}

// JSONHandlerWithLevel returns a json handler. Records below level are dropped; level may
// change while the handler is in use.
func JSONHandlerWithLevel(w io.Writer, level slog.Leveler) slog.Handler {
	return &leveledHandler{ethlog.JSONHandlerWithLevel(w, LevelTrace), level}
}

// DiscardHandler drops every record.
func DiscardHandler() slog.Handler {
	return ethlog.DiscardHandler()
}

// LvlFromString parses a level name ("trace", "debug", "info", "warn", "error", "crit") or a
// legacy numeric verbosity (0 crit to 5 trace).
func LvlFromString(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace", "trce":
		return LevelTrace, nil
	case "crit":
		return LevelCrit, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n > 5 {
			return 0, fmt.Errorf("invalid verbosity %d", n)
		}
		return ethlog.FromLegacyLevel(n), nil
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown level %q", s)
	}
	return lvl, nil
}

// leveledHandler filters the records of a handler by a level read on every record.
type leveledHandler struct {
	inner slog.Handler
	level slog.Leveler
}

func (h *leveledHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level.Level() && h.inner.Enabled(ctx, level)
}

func (h *leveledHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.inner.Handle(ctx, r)
}

func (h *leveledHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &leveledHandler{h.inner.WithAttrs(attrs), h.level}
}

func (h *leveledHandler) WithGroup(name string) slog.Handler {
	return &leveledHandler{h.inner.WithGroup(name), h.level}
}

// WithContext returns a logger that prefixes every record with ctx.
func WithContext(ctx ...any) Logger {
	return &lazyLogger{ctx: ctx}
}

type lazyLogger struct {
	ctx []any
}

func (l *lazyLogger) resolve() Logger {
	return ethlog.Root().With(l.ctx...)
}

func (l *lazyLogger) With(ctx ...any) Logger {
	return &lazyLogger{ctx: append(append([]any{}, l.ctx...), ctx...)}
}

func (l *lazyLogger) New(ctx ...any) Logger {
	return l.With(ctx...)
}

func (l *lazyLogger) Log(level slog.Level, msg string, ctx ...any) {
	l.resolve().Log(level, msg, ctx...)
}

func (l *lazyLogger) Trace(msg string, ctx ...any) { l.resolve().Trace(msg, ctx...) }
func (l *lazyLogger) Debug(msg string, ctx ...any) { l.resolve().Debug(msg, ctx...) }
func (l *lazyLogger) Info(msg string, ctx ...any)  { l.resolve().Info(msg, ctx...) }
func (l *lazyLogger) Warn(msg string, ctx ...any)  { l.resolve().Warn(msg, ctx...) }
func (l *lazyLogger) Error(msg string, ctx ...any) { l.resolve().Error(msg, ctx...) }
func (l *lazyLogger) Crit(msg string, ctx ...any)  { l.resolve().Crit(msg, ctx...) }

func (l *lazyLogger) Write(level slog.Level, msg string, attrs ...any) {
	l.resolve().Write(level, msg, attrs...)
}

func (l *lazyLogger) Enabled(ctx context.Context, level slog.Level) bool {
	return l.resolve().Enabled(ctx, level)
}

func (l *lazyLogger) Handler() slog.Handler {
	return l.resolve().Handler()
}

// Trace logs at trace level on the root logger.
func Trace(msg string, ctx ...any) { ethlog.Root().Trace(msg, ctx...) }

// Debug logs at debug level on the root logger.
func Debug(msg string, ctx ...any) { ethlog.Root().Debug(msg, ctx...) }

// Info logs at info level on the root logger.
func Info(msg string, ctx ...any) { ethlog.Root().Info(msg, ctx...) }

// Warn logs at warn level on the root logger.
func Warn(msg string, ctx ...any) { ethlog.Root().Warn(msg, ctx...) }

// Error logs at error level on the root logger.
func Error(msg string, ctx ...any) { ethlog.Root().Error(msg, ctx...) }
