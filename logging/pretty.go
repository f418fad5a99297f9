package logging

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"log/slog"

	"github.com/fatih/color"
)

const timeFormat = "[15:04:05.000]"

// PrettyHandlerOptions configures a PrettyHandler.
type PrettyHandlerOptions struct {
	SlogOpts slog.HandlerOptions
}

// PrettyHandler writes one colored line per record:
//
//	[15:04:05.000] INFO: query processed {"status":"completed"}
//
// Attributes are rendered as a JSON object. Colors are dropped when the
// output is not a terminal.
type PrettyHandler struct {
	slog.Handler
	l      *log.Logger
	attrs  []groupedAttr
	groups []string
}

// groupedAttr is an attribute bound with WithAttrs under the groups open
// at that time.
type groupedAttr struct {
	groups []string
	attr   slog.Attr
}

// NewPrettyHandler creates a PrettyHandler writing to out.
func NewPrettyHandler(out io.Writer, opts PrettyHandlerOptions) *PrettyHandler {
	return &PrettyHandler{
		Handler: slog.NewJSONHandler(out, &opts.SlogOpts),
		l:       log.New(out, "", 0),
	}
}

func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	level := r.Level.String() + ":"
	switch {
	case r.Level >= slog.LevelError:
		level = color.RedString(level)
	case r.Level >= slog.LevelWarn:
		level = color.YellowString(level)
	case r.Level >= slog.LevelInfo:
		level = color.BlueString(level)
	default:
		level = color.MagentaString(level)
	}

	fields := make(map[string]any, r.NumAttrs()+len(h.attrs))
	for _, ga := range h.attrs {
		addAttr(nested(fields, ga.groups), ga.attr)
	}
	target := nested(fields, h.groups)
	r.Attrs(func(a slog.Attr) bool {
		addAttr(target, a)
		return true
	})

	b, err := json.Marshal(fields)
	if err != nil {
		return err
	}

	h.l.Println(
		r.Time.Format(timeFormat),
		level,
		color.CyanString(r.Message),
		color.WhiteString(string(b)),
	)
	return nil
}

func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.Handler = h.Handler.WithAttrs(attrs)
	next.attrs = append([]groupedAttr(nil), h.attrs...)
	for _, a := range attrs {
		next.attrs = append(next.attrs, groupedAttr{groups: h.groups, attr: a})
	}
	return &next
}

func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.Handler = h.Handler.WithGroup(name)
	next.groups = append(append([]string(nil), h.groups...), name)
	return &next
}

// nested returns the map at path below fields, creating it as needed.
func nested(fields map[string]any, path []string) map[string]any {
	target := fields
	for _, g := range path {
		m, ok := target[g].(map[string]any)
		if !ok {
			m = make(map[string]any)
			target[g] = m
		}
		target = m
	}
	return target
}

func addAttr(fields map[string]any, a slog.Attr) {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		group := v.Group()
		if len(group) == 0 {
			return
		}
		target := fields
		if a.Key != "" {
			sub := make(map[string]any, len(group))
			fields[a.Key] = sub
			target = sub
		}
		for _, ga := range group {
			addAttr(target, ga)
		}
		return
	}
	if a.Key == "" {
		return
	}
	switch v.Kind() {
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			fields[a.Key] = err.Error()
			return
		}
		fields[a.Key] = v.Any()
	case slog.KindDuration:
		fields[a.Key] = v.Duration().String()
	default:
		fields[a.Key] = v.Any()
	}
}
