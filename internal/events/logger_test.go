package events_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pentesthub/hubvault/internal/config"
	"github.com/pentesthub/hubvault/internal/events"
)

func TestLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := events.NewTestLogger(events.WarnLevel, "text", &buf)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	out := buf.String()
	assert.NotContains(t, out, "debug message")
	assert.NotContains(t, out, "info message")
	assert.Contains(t, out, "[WARN] warn message")
	assert.Contains(t, out, "[ERROR] error message")
}

func TestLogger_TextFields(t *testing.T) {
	var buf bytes.Buffer
	logger := events.NewTestLogger(events.DebugLevel, "text", &buf)

	logger.WithFields(map[string]interface{}{
		"component": "sync_engine",
		"attempt":   2,
	}).Info("Retrying remote call")

	line := strings.TrimSpace(buf.String())
	assert.Contains(t, line, "Retrying remote call")
	// Fields print in sorted order.
	assert.Regexp(t, `attempt=2 component=sync_engine$`, line)
}

func TestLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := events.NewTestLogger(events.DebugLevel, "json", &buf)

	logger.WithField("locator", "loc1").WithError(errors.New("boom")).Warn("Sync failed")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "Sync failed", entry["msg"])
	assert.Equal(t, "loc1", entry["locator"])
	assert.Equal(t, "boom", entry["error"])
	assert.NotEmpty(t, entry["time"])
}

func TestLogger_WithFieldDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := events.NewTestLogger(events.DebugLevel, "text", &buf)
	child := parent.WithField("component", "crypto")

	parent.Info("parent line")
	child.Info("child line")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.NotContains(t, lines[0], "component=crypto")
	assert.Contains(t, lines[1], "component=crypto")
}

func TestNewLogger_FromConfig(t *testing.T) {
	logger, err := events.NewLogger(&config.LogConfig{Level: "debug", Format: "text"})
	require.NoError(t, err)
	assert.NotNil(t, logger)

	// Unknown level falls back to info rather than failing.
	logger, err = events.NewLogger(&config.LogConfig{Level: "chatty", Format: "text"})
	require.NoError(t, err)
	assert.NotNil(t, logger)
}
