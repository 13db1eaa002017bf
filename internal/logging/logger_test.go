package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureLogs points the default logger at a buffer for the duration of t.
func captureLogs(t *testing.T, level LogLevel, format LogFormat) *bytes.Buffer {
	t.Helper()
	original := defaultLogger
	t.Cleanup(func() {
		defaultLogger = original
		slog.SetDefault(original)
	})

	var buf bytes.Buffer
	Setup(&buf, level, format)
	return &buf
}

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		name  string
		level LogLevel
		want  slog.Level
	}{
		{"debug", LevelDebug, slog.LevelDebug},
		{"info", LevelInfo, slog.LevelInfo},
		{"warn", LevelWarn, slog.LevelWarn},
		{"error", LevelError, slog.LevelError},
		{"upper case", LogLevel("DEBUG"), slog.LevelDebug},
		{"empty defaults to info", LogLevel(""), slog.LevelInfo},
		{"invalid defaults to info", LogLevel("verbose"), slog.LevelInfo},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseLevel(tc.level))
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	testCases := []struct {
		name      string
		level     LogLevel
		shouldLog map[string]bool
	}{
		{
			name:      "debug logs everything",
			level:     LevelDebug,
			shouldLog: map[string]bool{"DEBUG": true, "INFO": true, "WARN": true, "ERROR": true},
		},
		{
			name:      "info hides debug",
			level:     LevelInfo,
			shouldLog: map[string]bool{"DEBUG": false, "INFO": true, "WARN": true, "ERROR": true},
		},
		{
			name:      "error only",
			level:     LevelError,
			shouldLog: map[string]bool{"DEBUG": false, "INFO": false, "WARN": false, "ERROR": true},
		},
	}

	funcs := map[string]func(string, ...any){
		"DEBUG": Debug,
		"INFO":  Info,
		"WARN":  Warn,
		"ERROR": Error,
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			buf := captureLogs(t, tc.level, FormatText)

			for name, logFunc := range funcs {
				buf.Reset()
				logFunc("test message", "key", "value")
				output := buf.String()

				if tc.shouldLog[name] {
					assert.Contains(t, output, "level="+name)
					assert.Contains(t, output, "test message")
					assert.Contains(t, output, "key=value")
				} else {
					assert.Empty(t, output, "level %s should be filtered", name)
				}
			}
		})
	}
}

func TestJSONFormat(t *testing.T) {
	buf := captureLogs(t, LevelInfo, FormatJSON)

	Info("processing issues", "start_at", 0, "total", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "processing issues", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
	assert.EqualValues(t, 3, entry["total"])
}

func TestFor(t *testing.T) {
	buf := captureLogs(t, LevelInfo, FormatText)

	For("jira-search").Info("requesting")

	assert.Contains(t, buf.String(), "component=jira-search")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(buf.String()), "component=jira-search"))
}

func TestSetupSetsDefault(t *testing.T) {
	buf := captureLogs(t, LevelWarn, FormatText)

	slog.Info("hidden")
	slog.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestMaskSensitive(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Empty string", input: "", expected: "<not set>"},
		{name: "Short string", input: "abc", expected: "<set>"},
		{name: "Exactly 4 characters", input: "abcd", expected: "<set>"},
		{name: "Long string", input: "abcdefghijklm", expected: "abcd...***"},
		{name: "Token-like string", input: "2Dn5j8fk39Dkf0s", expected: "2Dn5...***"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, MaskSensitive(tc.input))
		})
	}
}
