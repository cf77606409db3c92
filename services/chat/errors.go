package chat

import (
	"errors"
	"fmt"
)

// ValidationError rejects malformed user input before any state changes.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid input: %s", e.Reason)
}

// IsValidationError reports whether err is or wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// SessionNotFoundError reports a lookup for a session id the store does not
// hold.
type SessionNotFoundError struct {
	ID string
}

func (e *SessionNotFoundError) Error() string {
	return fmt.Sprintf("session %q not found", e.ID)
}

// IsSessionNotFound reports whether err is or wraps a *SessionNotFoundError.
func IsSessionNotFound(err error) bool {
	var nf *SessionNotFoundError
	return errors.As(err, &nf)
}

// ChainUnavailableError means a retrieval chain could not be built for the
// session. Callers branch on this instead of treating "no chain yet" as a
// generic failure.
type ChainUnavailableError struct {
	SessionID string
	Reason    string
}

func (e *ChainUnavailableError) Error() string {
	return fmt.Sprintf("retrieval chain unavailable for session %q: %s", e.SessionID, e.Reason)
}

// IsChainUnavailable reports whether err is or wraps a *ChainUnavailableError.
func IsChainUnavailable(err error) bool {
	var cu *ChainUnavailableError
	return errors.As(err, &cu)
}
