// internal/binder/connection.go
package binder

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/jason-s-yu/psykos/internal/codes"
	"github.com/jason-s-yu/psykos/internal/game"
)

// DefaultBuffer is the number of frames a connection may have queued before it
// is treated as a slow consumer and closed.
const DefaultBuffer = 64

// CloseReason records why the server closed a connection.
type CloseReason int

const (
	CloseNone         CloseReason = iota
	CloseNormal                   // Client left or the handler finished
	CloseSuperseded               // Same player bound from a newer connection
	CloseSlowConsumer             // Outbound buffer overflowed
	CloseSessionEnded             // Session was torn down
)

// Frame is one outbound websocket message.
type Frame struct {
	Binary bool
	Data   []byte
}

// Connection is one transport connection bound to a (session, player) pair.
// Its outbound queue is drained by the transport's write pump; closing the
// connection closes the queue once, after which sends are dropped.
type Connection struct {
	ID       uuid.UUID
	PlayerID uuid.UUID
	Code     string
	Remote   string

	out chan Frame

	mu     sync.Mutex
	closed bool
	reason CloseReason
}

// NewConnection builds an unbound connection. code is normalized so lookups
// match the session's canonical code.
func NewConnection(code string, playerID uuid.UUID, remote string, buffer int) *Connection {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Connection{
		ID:       uuid.New(),
		PlayerID: playerID,
		Code:     codes.Normalize(code),
		Remote:   remote,
		out:      make(chan Frame, buffer),
	}
}

// Out is the queue the write pump reads. It is closed when the connection closes.
func (c *Connection) Out() <-chan Frame {
	return c.out
}

// Send queues f without blocking. A full queue closes the connection.
func (c *Connection) Send(f Frame) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.out <- f:
		return true
	default:
		c.closeLocked(CloseSlowConsumer)
		return false
	}
}

// SendEvent marshals ev and queues it for this connection only.
func (c *Connection) SendEvent(ev game.Event) bool {
	data, err := json.Marshal(ev)
	if err != nil {
		return false
	}
	return c.Send(Frame{Data: data})
}

// Close closes the outbound queue. Only the first reason is kept.
func (c *Connection) Close(reason CloseReason) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked(reason)
}

func (c *Connection) closeLocked(reason CloseReason) {
	if c.closed {
		return
	}
	c.closed = true
	c.reason = reason
	close(c.out)
}

// Reason reports why the connection was closed, or CloseNone if it is open.
func (c *Connection) Reason() CloseReason {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reason
}

func (c *Connection) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
