// Copyright 2024 The go-equa Authors

// Package log is a thin, geth-style wrapper around log/slog: a leveled
// terminal handler plus package-level Trace/Debug/Info/Warn/
// Error/Crit helpers, matching the API the rest of this module's commands
// are written against.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Level mirrors geth's Lvl* constants, ordered least-to-most verbose.
type Level int

const (
	LvlCrit Level = iota
	LvlError
	LvlWarn
	LvlInfo
	LvlDebug
	LvlTrace
)

func (l Level) slogLevel() slog.Level {
	switch l {
	case LvlCrit, LvlError:
		return slog.LevelError
	case LvlWarn:
		return slog.LevelWarn
	case LvlInfo:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// GlogHandler wraps a slog.Handler with a mutable verbosity threshold, the
// way geth's glog handler lets verbosity be changed at runtime (e.g. from a
// signal handler or an RPC call) without re-plumbing the logger.
type GlogHandler struct {
	inner slog.Handler
	level Level
}

func NewGlogHandler(h slog.Handler) *GlogHandler {
	return &GlogHandler{inner: h, level: LvlInfo}
}

func (g *GlogHandler) Verbosity(lvl Level) { g.level = lvl }

func (g *GlogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= g.level.slogLevel()
}

func (g *GlogHandler) Handle(ctx context.Context, r slog.Record) error {
	return g.inner.Handle(ctx, r)
}

func (g *GlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &GlogHandler{inner: g.inner.WithAttrs(attrs), level: g.level}
}

func (g *GlogHandler) WithGroup(name string) slog.Handler {
	return &GlogHandler{inner: g.inner.WithGroup(name), level: g.level}
}

// NewTerminalHandler returns a slog text handler writing to w, wrapped in a
// colorable writer when w is an *os.File. Level labels are written as plain
// text: useColor and the terminal check do not add color to the output.
func NewTerminalHandler(w io.Writer, useColor bool) slog.Handler {
	if f, ok := w.(*os.File); ok {
		useColor = useColor && isatty.IsTerminal(f.Fd())
		w = colorable.NewColorable(f)
	}
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
}

// Logger is the package-level handle every call in this module logs
// through.
type Logger struct {
	s *slog.Logger
}

func NewLogger(h slog.Handler) *Logger {
	return &Logger{s: slog.New(h)}
}

var def = NewLogger(NewGlogHandler(NewTerminalHandler(os.Stderr, true)))

// SetDefault installs l as the package-level logger used by Trace/Debug/
// Info/Warn/Error/Crit.
func SetDefault(l *Logger) { def = l }

func Trace(msg string, kv ...any) { def.s.Debug(msg, kv...) }
func Debug(msg string, kv ...any) { def.s.Debug(msg, kv...) }
func Info(msg string, kv ...any)  { def.s.Info(msg, kv...) }
func Warn(msg string, kv ...any)  { def.s.Warn(msg, kv...) }
func Error(msg string, kv ...any) { def.s.Error(msg, kv...) }

// Crit logs at error level and terminates the process, matching geth's
// Crit semantics for unrecoverable startup failures.
func Crit(msg string, kv ...any) {
	def.s.Error(msg, kv...)
	fmt.Fprintln(os.Stderr, "fatal:", msg)
	os.Exit(1)
}
