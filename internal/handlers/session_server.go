// internal/handlers/session_server.go
package handlers

import (
	"time"

	"github.com/jason-s-yu/psykos/internal/binder"
	"github.com/jason-s-yu/psykos/internal/game"
	"github.com/sirupsen/logrus"
)

// Options are the HTTP-facing settings.
type Options struct {
	// AllowedOrigins are websocket origin patterns; empty means same-origin only.
	AllowedOrigins []string
	// PublicURL is the externally visible base URL, used for share links.
	// When empty it is derived from the request.
	PublicURL string
}

// SessionServer holds what the HTTP handlers need to reach the live sessions.
type SessionServer struct {
	Registry *game.Registry
	Binder   *binder.Binder
	Logger   logrus.FieldLogger
	Options  Options

	started time.Time
}

func NewSessionServer(reg *game.Registry, b *binder.Binder, logger logrus.FieldLogger, opts Options) *SessionServer {
	return &SessionServer{
		Registry: reg,
		Binder:   b,
		Logger:   logger,
		Options:  opts,
		started:  time.Now(),
	}
}
