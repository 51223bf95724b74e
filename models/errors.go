package models

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionDataOverflow is matched by every SessionDataOverflowError.
	ErrSessionDataOverflow = errors.New("session data overflow")
	// ErrCorruptSessionData wraps codec failures on stored blobs.
	ErrCorruptSessionData = errors.New("corrupt session data")
)

// SessionDataOverflowError reports a serialized mapping larger than the data column.
type SessionDataOverflowError struct {
	ID    string
	Size  int
	Limit int
}

func (e *SessionDataOverflowError) Error() string {
	return fmt.Sprintf("session data overflow: %d bytes exceeds column capacity of %d bytes", e.Size, e.Limit)
}

func (e *SessionDataOverflowError) Is(target error) bool {
	return target == ErrSessionDataOverflow
}
