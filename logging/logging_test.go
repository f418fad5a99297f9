package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noColor(t *testing.T) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"", slog.LevelInfo},
		{" warn ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseLevel("verbose")
	assert.ErrorIs(t, err, ErrInvalidLevel)
}

func TestNew(t *testing.T) {
	noColor(t)

	var buf bytes.Buffer
	logger, err := New(&buf, slog.LevelInfo, FormatJSON)
	require.NoError(t, err)
	logger.Info("hello", "n", 1)
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	buf.Reset()
	logger, err = New(&buf, slog.LevelInfo, "")
	require.NoError(t, err)
	logger.Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")

	buf.Reset()
	logger, err = New(&buf, slog.LevelWarn, FormatPretty)
	require.NoError(t, err)
	logger.Info("dropped")
	logger.Warn("kept")
	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "WARN: kept")

	_, err = New(&buf, slog.LevelInfo, "xml")
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestPrettyHandler_Handle(t *testing.T) {
	noColor(t)

	var buf bytes.Buffer
	h := NewPrettyHandler(&buf, PrettyHandlerOptions{SlogOpts: slog.HandlerOptions{Level: slog.LevelDebug}})

	r := slog.NewRecord(time.Date(2025, 1, 2, 15, 4, 5, 6_000_000, time.UTC), slog.LevelDebug, "stage finished", 0)
	r.AddAttrs(
		slog.String("stage", "verify"),
		slog.Duration("elapsed", 1500*time.Millisecond),
		slog.Any("err", errors.New("budget exceeded")),
	)
	require.NoError(t, h.Handle(context.Background(), r))

	assert.Equal(t,
		`[15:04:05.006] DEBUG: stage finished {"elapsed":"1.5s","err":"budget exceeded","stage":"verify"}`+"\n",
		buf.String())
}

func TestPrettyHandler_NoAttributes(t *testing.T) {
	noColor(t)

	var buf bytes.Buffer
	h := NewPrettyHandler(&buf, PrettyHandlerOptions{})
	require.NoError(t, h.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "simple message", 0)))

	assert.Contains(t, buf.String(), "INFO: simple message {}")
	assert.Regexp(t, `^\[\d{2}:\d{2}:\d{2}\.\d{3}\]`, buf.String())
}

func TestPrettyHandler_WithAttrsAndGroups(t *testing.T) {
	noColor(t)

	var buf bytes.Buffer
	logger := slog.New(NewPrettyHandler(&buf, PrettyHandlerOptions{}))
	logger.With("component", "pipeline").WithGroup("req").Info("query processed",
		"status", "completed",
		slog.Group("retrieval", "documents", 3))

	assert.Contains(t, buf.String(),
		`{"component":"pipeline","req":{"retrieval":{"documents":3},"status":"completed"}}`)
}
