package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.input))
		})
	}
}

func TestNew_JSONModuleLogger(t *testing.T) {
	var buf bytes.Buffer
	New(Config{Level: "info", Format: "json", Output: &buf})

	NewModuleLogger("capture").Info("stored", "chunks", 3)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "stored", record["msg"])
	assert.Equal(t, "capture", record["module"])
	assert.Equal(t, "secondbrain", record["service"])
	assert.EqualValues(t, 3, record["chunks"])
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	New(Config{Level: "warn", Format: "text", Output: &buf})

	Logger().Info("hidden")
	assert.Empty(t, buf.String())

	Logger().Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}
