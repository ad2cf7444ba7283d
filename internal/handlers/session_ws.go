// internal/handlers/session_ws.go
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/psykos/internal/binder"
	"github.com/jason-s-yu/psykos/internal/middleware"
	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"
)

// Subprotocol is the websocket subprotocol clients must request.
const Subprotocol = "psykos"

const (
	pingInterval = 30 * time.Second
	pingTimeout  = 15 * time.Second
	writeTimeout = 5 * time.Second
	// Voice frames are the largest inbound messages.
	readLimit = 1 << 20
)

// SessionWSHandler binds a websocket to a player already admitted over HTTP:
// GET /sessions/:code/ws?player=<id>. Text frames carry commands, binary frames
// carry voice audio to relay.
func SessionWSHandler(s *SessionServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := httprouter.ParamsFromContext(r.Context()).ByName("code")

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{Subprotocol},
			OriginPatterns: s.Options.AllowedOrigins,
		})
		if err != nil {
			s.Logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != Subprotocol {
			c.Close(BadSubprotocolError, "client must speak the psykos subprotocol")
			return
		}

		playerID, err := uuid.Parse(r.URL.Query().Get("player"))
		if err != nil {
			c.Close(InvalidPlayerIDError, "invalid player id")
			return
		}

		conn := binder.NewConnection(code, playerID, r.RemoteAddr, binder.DefaultBuffer)
		if err := s.Binder.Bind(conn); err != nil {
			c.Close(InvalidSessionCodeError, "session does not exist or player has not joined it")
			return
		}
		logger := s.Logger.WithFields(logrus.Fields{
			"session": conn.Code,
			"player":  playerID,
			"remote":  r.RemoteAddr,
		})
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path)

		ctx, cancel := context.WithCancel(r.Context())
		done := make(chan struct{})
		go func() {
			defer close(done)
			writePump(ctx, c, conn, logger)
		}()

		readErr := readPump(ctx, c, s.Binder, conn)

		s.Binder.Disconnect(conn)
		cancel()
		<-done

		if websocket.CloseStatus(readErr) != -1 || errors.Is(readErr, context.Canceled) {
			readErr = nil
		}
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, readErr)
	}
}

// readPump routes inbound frames until the connection fails or closes.
func readPump(ctx context.Context, c *websocket.Conn, b *binder.Binder, conn *binder.Connection) error {
	c.SetReadLimit(readLimit)
	for {
		typ, msg, err := c.Read(ctx)
		if err != nil {
			return err
		}
		switch typ {
		case websocket.MessageText:
			b.Dispatch(ctx, conn, msg)
		case websocket.MessageBinary:
			b.RelayVoice(conn, msg)
		}
	}
}

// writePump drains the connection's queue onto the socket and keeps it alive
// with pings. When the queue is closed it sends a close frame explaining why.
func writePump(ctx context.Context, c *websocket.Conn, conn *binder.Connection, logger logrus.FieldLogger) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-conn.Out():
			if !ok {
				status, reason := closeStatusFor(conn.Reason())
				_ = c.Close(status, reason)
				return
			}
			typ := websocket.MessageText
			if f.Binary {
				typ = websocket.MessageBinary
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.Write(writeCtx, typ, f.Data)
			cancel()
			if err != nil {
				logger.Debugf("write failed: %v", err)
				_ = c.CloseNow()
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.Warnf("ping failed, assuming disconnect: %v", err)
				_ = c.CloseNow()
				return
			}
		}
	}
}
