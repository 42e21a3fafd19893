package turn

import (
	"errors"
	"fmt"
)

// ErrBusy is returned when an interaction is already in progress. One turn
// runs at a time; a client seeing ErrBusy simply retries.
var ErrBusy = errors.New("turn: interaction already in progress")

// ErrUnknownMode is returned for an unrecognised mode string.
var ErrUnknownMode = errors.New("turn: unknown mode")

// RemoteError wraps a failed call to a remote provider (transcription,
// completion, or synthesis). It is fatal to the turn but the process keeps
// serving; the HTTP layer maps it to 502.
type RemoteError struct {
	// Op names the failed remote operation.
	Op string

	// Err is the underlying provider or transport error.
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("turn: %s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}
