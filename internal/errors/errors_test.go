package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormat(t *testing.T) {
	err := New(CodeIO, "disk full", nil)
	assert.Equal(t, "[IO_ERROR] disk full", err.Error())
}

func TestIsMatchesByCode(t *testing.T) {
	err := IOError("read failed", stderrors.New("eio"))
	wrapped := fmt.Errorf("indexing: %w", err)

	assert.True(t, stderrors.Is(wrapped, &Error{Code: CodeIO}))
	assert.False(t, stderrors.Is(wrapped, &Error{Code: CodeDB}))
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("root cause")
	err := Wrap(CodeDB, cause)
	require.NotNil(t, err)
	assert.Equal(t, cause, stderrors.Unwrap(err))
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(CodeDB, nil))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeConfig, CodeOf(ConfigError("bad key", nil)))
	assert.Equal(t, CodeConfig, CodeOf(fmt.Errorf("outer: %w", ConfigError("bad key", nil))))
	assert.Equal(t, CodeInternal, CodeOf(stderrors.New("plain")))
}

func TestHintOf(t *testing.T) {
	err := IndexMissing("no index").WithHint("run 'pampax index' first")
	assert.Equal(t, "run 'pampax index' first", HintOf(err))
	assert.Equal(t, "", HintOf(stderrors.New("plain")))
}
