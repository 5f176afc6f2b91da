package events_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/notesync/internal/events"
)

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := events.New(events.InfoLevel, "json", &buf)

	logger.WithField("note_id", "n1").Info("synced")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "synced", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "n1", entry["note_id"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := events.New(events.WarnLevel, "json", &buf)

	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Warn("visible")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 1)
	assert.Contains(t, lines[0], "visible")
}

func TestWithFieldsDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := events.New(events.InfoLevel, "json", &buf)
	_ = parent.WithField("child", "only")

	parent.Info("from parent")

	assert.NotContains(t, buf.String(), "child")
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	logger := events.New(events.InfoLevel, "json", &buf)

	logger.WithError(errors.New("boom")).Warn("failed")
	assert.Contains(t, buf.String(), "boom")

	buf.Reset()
	logger.WithError(nil).Warn("no error field")
	assert.NotContains(t, buf.String(), `"error"`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, events.DebugLevel, events.ParseLevel("debug"))
	assert.Equal(t, events.WarnLevel, events.ParseLevel("WARN"))
	assert.Equal(t, events.InfoLevel, events.ParseLevel("unknown"))
}
