package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesActionAndError(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithWriter(&buf, "DEBUG")
	require.NoError(t, err)

	l.Action("order_placed").With("order_id", 7).Error("Failed to publish", errors.New("boom"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "order_placed", entry["action"])
	assert.Equal(t, "boom", entry["error"])
	assert.EqualValues(t, 7, entry["order_id"])
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithWriter(&buf, "WARN")
	require.NoError(t, err)

	l.Info("hidden")
	assert.Zero(t, buf.Len())

	l.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestUnknownLevel(t *testing.T) {
	_, err := NewWithWriter(&bytes.Buffer{}, "LOUD")
	assert.Error(t, err)
}
