// internal/binder/fanout.go
package binder

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/jason-s-yu/psykos/internal/game"
	"github.com/jason-s-yu/psykos/internal/metrics"
	"github.com/sirupsen/logrus"
)

// Fanout indexes bound connections by session and player and delivers events
// to them. It implements game.Broadcaster. Sessions call it with their own lock
// held, so per-session delivery order matches commit order.
type Fanout struct {
	mu       sync.Mutex
	sessions map[string]map[uuid.UUID]*Connection
	logger   logrus.FieldLogger
}

func NewFanout(logger logrus.FieldLogger) *Fanout {
	return &Fanout{
		sessions: make(map[string]map[uuid.UUID]*Connection),
		logger:   logger,
	}
}

// Broadcast marshals ev once and queues it on every connection in the session.
func (f *Fanout) Broadcast(code string, ev game.Event) {
	data, ok := f.marshal(ev)
	if !ok {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.sessions[code] {
		f.send(c, Frame{Data: data})
	}
}

// SendTo queues ev for one player's connection, if bound.
func (f *Fanout) SendTo(code string, playerID uuid.UUID, ev game.Event) {
	data, ok := f.marshal(ev)
	if !ok {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.sessions[code][playerID]; ok {
		f.send(c, Frame{Data: data})
	}
}

// BroadcastExcept queues ev for everyone in the session but from.
func (f *Fanout) BroadcastExcept(code string, from uuid.UUID, ev game.Event) {
	data, ok := f.marshal(ev)
	if !ok {
		return
	}
	f.Relay(code, from, Frame{Data: data})
}

// Relay queues a raw frame for everyone in the session but from.
func (f *Fanout) Relay(code string, from uuid.UUID, frame Frame) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for id, c := range f.sessions[code] {
		if id == from {
			continue
		}
		if f.send(c, frame) {
			n++
		}
	}
	return n
}

// Lookup returns the connection currently bound for the player.
func (f *Fanout) Lookup(code string, playerID uuid.UUID) (*Connection, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.sessions[code][playerID]
	return c, ok
}

// Count is the number of bound connections across all sessions.
func (f *Fanout) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, conns := range f.sessions {
		n += len(conns)
	}
	return n
}

// DropSession closes and forgets every connection of a torn-down session.
// Queued frames, such as the final standings, are still flushed by the write pumps.
func (f *Fanout) DropSession(code string) {
	f.mu.Lock()
	conns := f.sessions[code]
	delete(f.sessions, code)
	f.mu.Unlock()

	for _, c := range conns {
		c.Close(CloseSessionEnded)
		metrics.ConnectionsOpen.Dec()
	}
}

// attach binds c and returns the connection it replaced, if any.
func (f *Fanout) attach(c *Connection) *Connection {
	f.mu.Lock()
	defer f.mu.Unlock()
	conns, ok := f.sessions[c.Code]
	if !ok {
		conns = make(map[uuid.UUID]*Connection)
		f.sessions[c.Code] = conns
	}
	old := conns[c.PlayerID]
	conns[c.PlayerID] = c
	if old == c {
		return nil
	}
	return old
}

// detach unbinds c if it is still the player's current connection.
func (f *Fanout) detach(c *Connection) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	conns := f.sessions[c.Code]
	if cur, ok := conns[c.PlayerID]; !ok || cur != c {
		return false
	}
	delete(conns, c.PlayerID)
	if len(conns) == 0 {
		delete(f.sessions, c.Code)
	}
	return true
}

func (f *Fanout) send(c *Connection, frame Frame) bool {
	if c.Closed() {
		return false
	}
	if c.Send(frame) {
		return true
	}
	if c.Reason() == CloseSlowConsumer {
		f.logger.WithFields(logrus.Fields{
			"session": c.Code,
			"player":  c.PlayerID,
		}).Warn("outbound queue full, closing slow connection")
	}
	return false
}

// marshal encodes ev, logging instead of failing on error.
func (f *Fanout) marshal(ev game.Event) ([]byte, bool) {
	data, err := json.Marshal(ev)
	if err != nil {
		f.logger.WithError(err).Warnf("failed to marshal event %s", ev.Type)
		return nil, false
	}
	return data, true
}
