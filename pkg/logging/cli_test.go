package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCLIHandler_LevelColors(t *testing.T) {
	tests := []struct {
		name    string
		logFunc func(*slog.Logger)
		color   string
	}{
		{"error is red", func(l *slog.Logger) { l.Error("boom") }, colorRed},
		{"warn is yellow", func(l *slog.Logger) { l.Warn("careful") }, colorYellow},
		{"debug is dim", func(l *slog.Logger) { l.Debug("detail") }, colorDim},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(NewCLIHandler(&buf, slog.LevelDebug))
			tt.logFunc(logger)
			assert.Contains(t, buf.String(), tt.color)
			assert.Contains(t, buf.String(), colorReset)
		})
	}
}

func TestCLIHandler_InfoIsPlain(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCLIHandler(&buf, slog.LevelInfo))

	logger.Info("loaded dataset")

	out := buf.String()
	assert.Contains(t, out, "loaded dataset")
	assert.NotContains(t, out, colorRed)
	assert.NotContains(t, out, colorYellow)
}

func TestCLIHandler_LevelFiltering(t *testing.T) {
	tests := []struct {
		name         string
		handlerLevel slog.Level
		logFunc      func(*slog.Logger)
		shouldLog    bool
	}{
		{"info handler logs info", slog.LevelInfo, func(l *slog.Logger) { l.Info("x") }, true},
		{"info handler filters debug", slog.LevelInfo, func(l *slog.Logger) { l.Debug("x") }, false},
		{"debug handler logs debug", slog.LevelDebug, func(l *slog.Logger) { l.Debug("x") }, true},
		{"error handler filters warn", slog.LevelError, func(l *slog.Logger) { l.Warn("x") }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(NewCLIHandler(&buf, tt.handlerLevel))
			tt.logFunc(logger)
			assert.Equal(t, tt.shouldLog, buf.Len() > 0)
		})
	}
}

func TestCLIHandler_IncludesAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCLIHandler(&buf, slog.LevelInfo))

	logger.Info("skipping analysis branch", "section", "calibration", "branch", "age:score")

	out := buf.String()
	assert.Contains(t, out, "section=calibration")
	assert.Contains(t, out, "branch=age:score")
}

func TestCLIHandler_WithAttrsCarriesForward(t *testing.T) {
	var buf bytes.Buffer
	handler := NewCLIHandler(&buf, slog.LevelInfo)

	logger := slog.New(handler).With("run", "42")
	logger.Info("section done", "rows", 7)

	out := buf.String()
	assert.Contains(t, out, "run=42")
	assert.Contains(t, out, "rows=7")

	// The base handler must be untouched.
	buf.Reset()
	slog.New(handler).Info("plain")
	assert.NotContains(t, buf.String(), "run=42")
}

func TestCLIHandler_WithGroup(t *testing.T) {
	var buf bytes.Buffer
	handler := NewCLIHandler(&buf, slog.LevelInfo)

	slog.New(handler.WithGroup("report")).Info("starting")
	assert.Contains(t, buf.String(), "[report]")

	buf.Reset()
	slog.New(handler.WithGroup("")).Info("no prefix")
	assert.NotContains(t, buf.String(), "] no prefix")
}

func TestSetDefaultCLILogger(t *testing.T) {
	original := slog.Default()
	defer slog.SetDefault(original)

	SetDefaultCLILogger("debug")
	require.NotNil(t, slog.Default())
	slog.Debug("default logger active")
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"  debug  ", slog.LevelDebug},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLogLevel(tt.input))
		})
	}
}
