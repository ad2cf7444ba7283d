// internal/game/errors.go
package game

import "errors"

// Sentinel errors returned by session operations. Specific rejections wrap one of
// these so callers can classify them with errors.Is.
var (
	// ErrNotFound means the session code is unknown or the session was torn down.
	ErrNotFound = errors.New("session not found")
	// ErrInvalidTransition means the event is not allowed in the current phase or by this player.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrInsufficientMembers means the game cannot start with fewer than MinPlayers members.
	ErrInsufficientMembers = errors.New("not enough players")
	// ErrConcurrencyConflict means the session is in a transient state; the client may retry.
	ErrConcurrencyConflict = errors.New("session busy")
	// ErrInvalidArgument means a request carried malformed input.
	ErrInvalidArgument = errors.New("invalid argument")
)

// ErrorCode maps an error onto the short code sent to clients in error events.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInsufficientMembers):
		return "insufficient_members"
	case errors.Is(err, ErrConcurrencyConflict):
		return "conflict"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	default:
		return "internal"
	}
}
