package account

import "errors"

var (
	// ErrSessionInUse is returned when a session transition is attempted
	// from a state that does not allow it.
	ErrSessionInUse = errors.New("session is already in use")
	// ErrSessionExpired is returned when a login handshake has been pending
	// longer than the configured lifetime.
	ErrSessionExpired = errors.New("login session expired")
	// ErrProofMismatch is returned when the client proof M does not match
	// the value the server derived.
	ErrProofMismatch = errors.New("session values do not match")
	// ErrInvalidTransition is returned when a user or contact operation does
	// not apply to the current user or contact state.
	ErrInvalidTransition = errors.New("operation not allowed in current state")
	// ErrWrongVerificationCode is returned when a contact confirmation code
	// does not match.
	ErrWrongVerificationCode = errors.New("wrong verification code")
)
