// Package output emits the CLI JSON envelopes. Every command writes exactly
// one JSON object to stdout; logs go to stderr.
package output

import (
	"encoding/json"
	"fmt"
	"io"

	pampaxerrors "github.com/pampax/pampax/internal/errors"
)

// Writer renders command results.
type Writer struct {
	out io.Writer
}

// New creates a Writer.
func New(out io.Writer) *Writer {
	return &Writer{out: out}
}

// JSON writes payload as indented JSON with a trailing newline.
func (w *Writer) JSON(payload any) error {
	encoder := json.NewEncoder(w.out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(payload); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

// ErrorEnvelope is the failure payload: {"error":{code,message,hint}}.
type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody carries the error fields.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

// Error writes the failure envelope for err.
func (w *Writer) Error(err error) {
	envelope := ErrorEnvelope{
		Error: ErrorBody{
			Code:    string(pampaxerrors.CodeOf(err)),
			Message: err.Error(),
			Hint:    pampaxerrors.HintOf(err),
		},
	}
	_ = w.JSON(envelope)
}
