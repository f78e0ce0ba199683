package executor

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyRunning = errors.New("script is already running")
	ErrNoSteps        = errors.New("script has no steps")
	ErrElementGone    = errors.New("target text disappeared before the action")
)

// MatchTimeoutError reports a step whose text never appeared
type MatchTimeoutError struct {
	Index       int
	Description string
	Attempts    int
}

func (e *MatchTimeoutError) Error() string {
	return fmt.Sprintf("step %d (%s): text not found after %d attempts", e.Index+1, e.Description, e.Attempts)
}

// ActionFailureError reports a step whose action could not be performed
type ActionFailureError struct {
	Index       int
	Description string
	Cause       error
}

func (e *ActionFailureError) Error() string {
	return fmt.Sprintf("step %d (%s): action failed: %v", e.Index+1, e.Description, e.Cause)
}

func (e *ActionFailureError) Unwrap() error {
	return e.Cause
}
