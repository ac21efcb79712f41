// Package logger builds the engine's slog loggers. Production writes JSON
// lines; every other environment gets a compact console format.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	formatJSON    = "json"
	formatConsole = "console"
)

const (
	ansiReset  = "\033[0m"
	ansiDim    = "\033[2m"
	ansiBold   = "\033[1m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiBlue   = "\033[34m"
	ansiCyan   = "\033[36m"
)

// Attribute keys with special rendering on the console.
const (
	componentKey = "component"
	errorKey     = "error"
)

// Logger is a slog.Logger with a few engine conventions attached.
type Logger struct {
	*slog.Logger
}

// Config selects output, format and verbosity.
type Config struct {
	Writer      io.Writer
	Format      string // "json" or "console"; empty picks by Environment
	Environment string
	Level       slog.Level
	AddSource   bool
}

// New builds a Logger from cfg.
func New(cfg Config) *Logger {
	w := cfg.Writer
	if w == nil {
		w = os.Stdout
	}

	format := cfg.Format
	if format == "" {
		format = formatConsole
		if cfg.Environment == "production" {
			format = formatJSON
		}
	}

	opts := &slog.HandlerOptions{
		Level:       cfg.Level,
		AddSource:   cfg.AddSource,
		ReplaceAttr: trimSource,
	}

	var h slog.Handler
	switch format {
	case formatJSON:
		h = slog.NewJSONHandler(w, opts)
	default:
		h = newConsoleHandler(w, opts)
	}
	return &Logger{Logger: slog.New(h)}
}

func trimSource(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.SourceKey {
		return a
	}
	if src, ok := a.Value.Any().(*slog.Source); ok {
		src.File = filepath.Base(src.File)
	}
	return a
}

// ParseLevel maps a config string to a level. Unknown values mean info.
func ParseLevel(s string) slog.Level {
	var lvl slog.Level
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "warning":
		return slog.LevelWarn
	default:
		if err := lvl.UnmarshalText([]byte(s)); err != nil {
			return slog.LevelInfo
		}
		return lvl
	}
}

// Component returns a child logger tagged with the owning component.
func (l *Logger) Component(name string) *slog.Logger {
	return l.With(slog.String(componentKey, name))
}

// WithError returns a Logger that carries err on every record.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{Logger: l.With(slog.String(errorKey, err.Error()))}
}

// consoleHandler writes one line per record:
//
//	15:04:05 INF [teams] team created team_id=team-abc size=2
//
// The component attribute becomes a bracketed tag and errors are printed last
// in red. Handlers derived through WithAttrs/WithGroup share one mutex so lines
// from concurrent goroutines never interleave.
type consoleHandler struct {
	w         io.Writer
	mu        *sync.Mutex
	level     slog.Leveler
	addSource bool

	component string
	group     string
	attrs     []slog.Attr
}

func newConsoleHandler(w io.Writer, opts *slog.HandlerOptions) *consoleHandler {
	h := &consoleHandler{w: w, mu: &sync.Mutex{}, level: slog.LevelInfo}
	if opts != nil {
		if opts.Level != nil {
			h.level = opts.Level
		}
		h.addSource = opts.AddSource
	}
	return h
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.Grow(256)

	b.WriteString(ansiDim + r.Time.Format(time.TimeOnly) + ansiReset + " ")
	b.WriteString(levelTag(r.Level) + " ")

	attrs := make([]slog.Attr, 0, len(h.attrs)+r.NumAttrs())
	attrs = append(attrs, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, h.qualify(a))
		return true
	})

	component := h.component
	var errText string
	rest := attrs[:0:0]
	for _, a := range attrs {
		switch a.Key {
		case componentKey:
			component = a.Value.String()
		case errorKey:
			errText = a.Value.String()
		default:
			rest = append(rest, a)
		}
	}

	if component != "" {
		b.WriteString(ansiBlue + "[" + component + "]" + ansiReset + " ")
	}
	if h.addSource && r.PC != 0 {
		if src := r.Source(); src != nil {
			b.WriteString(ansiDim + filepath.Base(src.File) + ":" + strconv.Itoa(src.Line) + ansiReset + " ")
		}
	}
	b.WriteString(ansiBold + r.Message + ansiReset)

	for _, a := range rest {
		b.WriteString(" " + ansiCyan + a.Key + "=" + ansiReset + quoteIfNeeded(formatValue(a.Value)))
	}
	if errText != "" {
		b.WriteString(" " + ansiRed + "error=" + quoteIfNeeded(errText) + ansiReset)
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := h.clone()
	for _, a := range attrs {
		if a.Key == componentKey && h.group == "" {
			next.component = a.Value.String()
			continue
		}
		next.attrs = append(next.attrs, h.qualify(a))
	}
	return next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := h.clone()
	next.group = h.group + name + "."
	return next
}

func (h *consoleHandler) clone() *consoleHandler {
	next := *h
	next.attrs = append([]slog.Attr(nil), h.attrs...)
	return &next
}

func (h *consoleHandler) qualify(a slog.Attr) slog.Attr {
	if h.group == "" {
		return a
	}
	return slog.Attr{Key: h.group + a.Key, Value: a.Value}
}

func levelTag(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return ansiRed + "ERR" + ansiReset
	case l >= slog.LevelWarn:
		return ansiYellow + "WRN" + ansiReset
	case l >= slog.LevelInfo:
		return ansiGreen + "INF" + ansiReset
	default:
		return ansiDim + "DBG" + ansiReset
	}
}

func formatValue(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	case slog.KindDuration:
		return v.Duration().String()
	default:
		return v.String()
	}
}

func quoteIfNeeded(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}
