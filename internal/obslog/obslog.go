// Package obslog builds the process-wide slog.Logger used by every
// long-lived component. Components receive a *slog.Logger at
// construction time rather than reaching for a package-level global.
package obslog

import (
	"context"
	"io"
	"log/slog"
	"os"
	"regexp"
)

// Config controls handler selection, level, and redaction.
type Config struct {
	Level     string // debug|info|warn|error
	Format    string // json|text
	Output    io.Writer
	AddSource bool
}

// defaultRedactPatterns catch the field shapes most likely to carry
// secrets through a log call: api_key=..., Authorization: Bearer ...,
// and sk-/sk-ant- prefixed API keys.
var defaultRedactPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(api[_-]?key|token|secret|authorization)[\s:=]+(bearer\s+)?["']?[a-zA-Z0-9_\-.]{12,}["']?`),
	regexp.MustCompile(`sk-ant-[a-zA-Z0-9_-]{20,}`),
	regexp.MustCompile(`sk-[a-zA-Z0-9]{20,}`),
}

// redactingHandler wraps an slog.Handler and scrubs the message text of
// any substring matching a redaction pattern before it is handled.
type redactingHandler struct {
	slog.Handler
}

func (h redactingHandler) Handle(ctx context.Context, r slog.Record) error {
	msg := r.Message
	for _, p := range defaultRedactPatterns {
		msg = p.ReplaceAllString(msg, "[redacted]")
	}
	r.Message = msg
	return h.Handler.Handle(ctx, r)
}

func (h redactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return redactingHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h redactingHandler) WithGroup(name string) slog.Handler {
	return redactingHandler{Handler: h.Handler.WithGroup(name)}
}

// New builds a *slog.Logger from Config, defaulting to info-level JSON
// output on stdout when fields are left zero.
func New(cfg Config) *slog.Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level, AddSource: cfg.AddSource}

	var base slog.Handler
	if cfg.Format == "text" {
		base = slog.NewTextHandler(cfg.Output, opts)
	} else {
		base = slog.NewJSONHandler(cfg.Output, opts)
	}

	return slog.New(redactingHandler{Handler: base})
}
