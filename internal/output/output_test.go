package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pampaxerrors "github.com/pampax/pampax/internal/errors"
)

func TestJSONIndented(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)

	require.NoError(t, w.JSON(map[string]any{"total": 3}))

	assert.True(t, strings.HasSuffix(buf.String(), "\n"))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, float64(3), decoded["total"])
}

func TestErrorEnvelope(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)

	w.Error(pampaxerrors.IndexMissing("no index found").WithHint("run 'pampax index' first"))

	var envelope ErrorEnvelope
	require.NoError(t, json.Unmarshal(buf.Bytes(), &envelope))
	assert.Equal(t, "INDEX_MISSING", envelope.Error.Code)
	assert.Equal(t, "[INDEX_MISSING] no index found", envelope.Error.Message)
	assert.Equal(t, "run 'pampax index' first", envelope.Error.Hint)
}

func TestErrorEnvelopeForeignError(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)

	w.Error(assert.AnError)

	var envelope ErrorEnvelope
	require.NoError(t, json.Unmarshal(buf.Bytes(), &envelope))
	assert.Equal(t, "INTERNAL_ERROR", envelope.Error.Code)
}
