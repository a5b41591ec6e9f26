package logger_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noakmilo/qventory-backend/pkg/logger"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  slog.Level
	}{
		{input: "debug", want: slog.LevelDebug},
		{input: "info", want: slog.LevelInfo},
		{input: "warn", want: slog.LevelWarn},
		{input: "error", want: slog.LevelError},
		{input: "DEBUG", want: slog.LevelDebug},
		{input: "Warn", want: slog.LevelWarn},
		{input: "", want: slog.LevelInfo},
		{input: "trace", want: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run("level "+tt.input, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, logger.ParseLevel(tt.input))
		})
	}
}

func TestNew(t *testing.T) {
	t.Parallel()
	require.NotNil(t, logger.New("info", "text"))
}

func TestNewWithWriter_Formats(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		format   string
		contains []string
	}{
		{
			name:     "text format",
			format:   "text",
			contains: []string{"level=INFO", "relist cycle finished"},
		},
		{
			name:     "json format",
			format:   "json",
			contains: []string{`"level":"INFO"`, `"msg":"relist cycle finished"`},
		},
		{
			name:     "unknown format falls back to text",
			format:   "logfmt",
			contains: []string{"level=INFO"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			l := logger.NewWithWriter(&buf, "info", tt.format)
			l.Info("relist cycle finished")

			for _, want := range tt.contains {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}

func TestNewWithWriter_LevelFiltering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := logger.NewWithWriter(&buf, "warn", "text")

	l.Debug("hidden")
	l.Info("hidden too")
	assert.Empty(t, buf.String())

	l.Warn("visible")
	assert.Contains(t, buf.String(), "visible")
}
