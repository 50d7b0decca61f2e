package logging_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/fishtrack-go/internal/infrastructure/logging"
)

func TestJSONEntriesCarryMetadata(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewSlogLoggerWriter(&buf, "json", "info", false, nil)

	logger.Log("ERROR", "Unexpected trip conflict, vessel skipped", map[string]interface{}{
		"vessel_id": 42,
		"action":    "trip_conflict",
	})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "Unexpected trip conflict, vessel skipped", entry["msg"])
	assert.Equal(t, "trip_conflict", entry["action"])
	assert.Equal(t, 42.0, entry["vessel_id"])
}

func TestEntriesBelowLevelAreDropped(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewSlogLoggerWriter(&buf, "text", "warn", false, nil)

	logger.Log("DEBUG", "debug line", nil)
	logger.Log("INFO", "info line", nil)
	logger.Log("WARNING", "warning line", nil)

	out := buf.String()
	assert.NotContains(t, out, "debug line")
	assert.NotContains(t, out, "info line")
	assert.Contains(t, out, "warning line")
	assert.Contains(t, out, "level=WARN")
}

func TestTextMetadataIsSorted(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewSlogLoggerWriter(&buf, "text", "debug", false, nil)

	logger.Log("INFO", "Trip pipeline pass completed", map[string]interface{}{
		"vessels":       3,
		"action":        "complete_pass",
		"trips_created": 5,
	})

	out := buf.String()
	action := strings.Index(out, "action=")
	trips := strings.Index(out, "trips_created=")
	vessels := strings.Index(out, "vessels=")
	require.True(t, action >= 0 && trips >= 0 && vessels >= 0, out)
	assert.Less(t, action, trips)
	assert.Less(t, trips, vessels)
}

func TestCloseWithoutFile(t *testing.T) {
	logger := logging.NewSlogLoggerWriter(&bytes.Buffer{}, "json", "info", false, nil)
	assert.NoError(t, logger.Close())
}
