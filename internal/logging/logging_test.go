package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(Options{Writer: &buf})

	logger.Info().Str("command", "index").Msg("index_started")

	var event map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &event))
	assert.Equal(t, "index_started", event["message"])
	assert.Equal(t, "index", event["command"])
}

func TestSetupPrettyOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(Options{Pretty: true, Writer: &buf})

	logger.Info().Msg("search_complete")

	out := buf.String()
	assert.Contains(t, out, "search_complete")
	assert.False(t, strings.HasPrefix(strings.TrimSpace(out), "{"))
}

func TestVerboseEnablesDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(Options{Verbose: true, Writer: &buf})

	logger.Debug().Msg("walker_enqueue")
	assert.Contains(t, buf.String(), "walker_enqueue")

	buf.Reset()
	logger = Setup(Options{Writer: &buf})
	logger.Debug().Msg("walker_enqueue")
	assert.Empty(t, buf.String())
}
