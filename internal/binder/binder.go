// internal/binder/binder.go
package binder

import (
	"context"
	"errors"
	"fmt"

	"github.com/jason-s-yu/psykos/internal/game"
	"github.com/jason-s-yu/psykos/internal/metrics"
	"github.com/jason-s-yu/psykos/internal/players"
	"github.com/sirupsen/logrus"
)

// VoiceHeaderLen is the sender id prefix on relayed binary voice frames.
const VoiceHeaderLen = 16

// Binder ties transport connections to players and sessions and routes their
// traffic to the owning session.
type Binder struct {
	registry  *game.Registry
	fanout    *Fanout
	directory *players.Directory
	logger    logrus.FieldLogger
}

// New wires a binder and arranges for a session's connections to be closed
// when the session is torn down.
func New(registry *game.Registry, fanout *Fanout, directory *players.Directory, logger logrus.FieldLogger) *Binder {
	registry.OnTeardown(fanout.DropSession)
	return &Binder{
		registry:  registry,
		fanout:    fanout,
		directory: directory,
		logger:    logger,
	}
}

// Bind attaches conn to its player's session and sends the current snapshot.
// A newer connection for the same player supersedes and closes the older one.
func (b *Binder) Bind(conn *Connection) error {
	p, ok := b.directory.Get(conn.PlayerID)
	if !ok || p.SessionCode != conn.Code {
		return fmt.Errorf("%w: unknown player for session %s", game.ErrNotFound, conn.Code)
	}
	sess, ok := b.registry.Get(conn.Code)
	if !ok {
		return game.ErrNotFound
	}

	var superseded *Connection
	err := sess.Bind(p, func() {
		superseded = b.fanout.attach(conn)
	})
	if err != nil {
		return err
	}

	if superseded != nil {
		superseded.Close(CloseSuperseded)
		b.logger.WithFields(logrus.Fields{
			"session": conn.Code,
			"player":  conn.PlayerID,
		}).Info("connection superseded by a newer one")
	} else {
		metrics.ConnectionsOpen.Inc()
	}
	return nil
}

// Disconnect handles the end of a connection. Stale or repeated disconnects are
// no-ops; otherwise the player leaves the session.
func (b *Binder) Disconnect(conn *Connection) {
	if !b.fanout.detach(conn) {
		return
	}
	metrics.ConnectionsOpen.Dec()
	conn.Close(CloseNormal)

	fields := logrus.Fields{"session": conn.Code, "player": conn.PlayerID}
	b.directory.Remove(conn.PlayerID)

	sess, ok := b.registry.Get(conn.Code)
	if !ok {
		return
	}
	if err := sess.Leave(conn.PlayerID); err != nil && !errors.Is(err, game.ErrNotFound) {
		b.logger.WithFields(fields).WithError(err).Warn("leave failed")
	}
}

// Dispatch decodes one text message from conn and applies it.
func (b *Binder) Dispatch(ctx context.Context, conn *Connection, data []byte) {
	if cur, ok := b.fanout.Lookup(conn.Code, conn.PlayerID); !ok || cur != conn {
		return
	}
	cmd, err := DecodeCommand(data)
	if err != nil {
		b.reject(conn, err)
		return
	}
	sess, ok := b.registry.Get(conn.Code)
	if !ok {
		b.reject(conn, game.ErrNotFound)
		return
	}

	switch c := cmd.(type) {
	case StartCommand:
		// Generation can be slow; the read loop keeps serving this connection meanwhile.
		go func() {
			if err := sess.Start(context.WithoutCancel(ctx), conn.PlayerID); err != nil {
				b.reject(conn, err)
			}
		}()
		return
	case SubmitAnswerCommand:
		err = sess.SubmitAnswer(conn.PlayerID, c.Text)
	case SubmitVoteCommand:
		err = sess.SubmitVote(conn.PlayerID, c.VotedFor)
	case RequestSkipCommand:
		err = sess.RequestSkip(conn.PlayerID)
	case MarkReadyCommand:
		err = sess.MarkReady(conn.PlayerID)
	case VoiceStartCommand:
		b.fanout.BroadcastExcept(conn.Code, conn.PlayerID, game.NewEvent(game.VoiceStart{PlayerID: conn.PlayerID}))
	case VoiceEndCommand:
		b.fanout.BroadcastExcept(conn.Code, conn.PlayerID, game.NewEvent(game.VoiceEnd{PlayerID: conn.PlayerID}))
	}
	if err != nil {
		b.reject(conn, err)
	}
}

// RelayVoice forwards an opaque voice frame to every other member, prefixed
// with the sender's 16-byte id.
func (b *Binder) RelayVoice(conn *Connection, payload []byte) int {
	if cur, ok := b.fanout.Lookup(conn.Code, conn.PlayerID); !ok || cur != conn {
		return 0
	}
	frame := make([]byte, VoiceHeaderLen+len(payload))
	copy(frame, conn.PlayerID[:])
	copy(frame[VoiceHeaderLen:], payload)

	n := b.fanout.Relay(conn.Code, conn.PlayerID, Frame{Binary: true, Data: frame})
	metrics.RecordVoiceFrame()
	return n
}

// reject sends the error to conn only; it never reaches other members.
func (b *Binder) reject(conn *Connection, err error) {
	code := game.ErrorCode(err)
	metrics.RecordRejection(code)
	b.logger.WithFields(logrus.Fields{
		"session": conn.Code,
		"player":  conn.PlayerID,
		"code":    code,
	}).Debugf("rejected: %v", err)
	conn.SendEvent(game.ErrorEvent(err))
}
