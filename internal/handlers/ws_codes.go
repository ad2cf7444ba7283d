// internal/handlers/ws_codes.go
package handlers

import (
	"github.com/coder/websocket"
	"github.com/jason-s-yu/psykos/internal/binder"
)

// Custom WebSocket close codes used by the session handler.
// These provide more specific reasons for closure than standard codes.
const (
	BadSubprotocolError     = 3000 // Client connected with an unsupported subprotocol.
	InvalidPlayerIDError    = 3002 // Player id in the WS URL is missing or malformed.
	InvalidSessionCodeError = 3003 // Session does not exist, or the player is not a member of it.
	SupersededError         = 3004 // The same player bound again from a newer connection.
	SlowConsumerError       = 3005 // Outbound queue overflowed; the client could not keep up.
	SessionEndedError       = 3006 // The session was torn down.
)

// closeStatusFor maps the reason the server closed a connection to a close frame.
func closeStatusFor(reason binder.CloseReason) (websocket.StatusCode, string) {
	switch reason {
	case binder.CloseSuperseded:
		return SupersededError, "connected from another tab or device"
	case binder.CloseSlowConsumer:
		return SlowConsumerError, "connection too slow"
	case binder.CloseSessionEnded:
		return SessionEndedError, "session ended"
	default:
		return websocket.StatusNormalClosure, "bye"
	}
}
