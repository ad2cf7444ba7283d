// internal/handlers/session.go
package handlers

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/jason-s-yu/psykos/internal/game"
	"github.com/jason-s-yu/psykos/internal/players"
	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"
)

type createSessionRequest struct {
	PlayerName  string `json:"playerName"`
	Category    string `json:"category"`
	RoundTarget int    `json:"roundTarget"`
}

type createSessionResponse struct {
	SessionCode string    `json:"sessionCode"`
	PlayerID    uuid.UUID `json:"playerId"`
	Avatar      string    `json:"avatar"`
	Category    string    `json:"category"`
	RoundTarget int       `json:"roundTarget"`
}

type joinSessionRequest struct {
	PlayerName string `json:"playerName"`
}

type joinSessionResponse struct {
	PlayerID uuid.UUID `json:"playerId"`
	Avatar   string    `json:"avatar"`
	game.JoinResult
}

type sessionInfoResponse struct {
	SessionCode string     `json:"sessionCode"`
	Phase       game.Phase `json:"phase"`
	Players     int        `json:"players"`
	game.JoinResult
}

// CreateSessionHandler creates a lobby with the caller as host. The returned
// player id is what the caller presents when opening the session websocket.
func CreateSessionHandler(s *SessionServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createSessionRequest
		if err := decodeBody(w, r, &req); err != nil {
			writeError(w, err)
			return
		}
		host, err := players.NewPlayer(req.PlayerName, true)
		if err != nil {
			writeError(w, fmt.Errorf("%w: %v", game.ErrInvalidArgument, err))
			return
		}

		sess, err := s.Registry.Create(host, req.Category, req.RoundTarget)
		if err != nil {
			writeError(w, err)
			return
		}
		info := sess.Info()

		writeJSON(w, http.StatusCreated, createSessionResponse{
			SessionCode: sess.Code(),
			PlayerID:    host.ID,
			Avatar:      host.Avatar,
			Category:    info.Category,
			RoundTarget: info.RoundTarget,
		})
	}
}

// JoinSessionHandler adds a player to an existing session by code.
func JoinSessionHandler(s *SessionServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := httprouter.ParamsFromContext(r.Context()).ByName("code")

		var req joinSessionRequest
		if err := decodeBody(w, r, &req); err != nil {
			writeError(w, err)
			return
		}
		p, err := players.NewPlayer(req.PlayerName, false)
		if err != nil {
			writeError(w, fmt.Errorf("%w: %v", game.ErrInvalidArgument, err))
			return
		}

		sess, res, err := s.Registry.Join(code, p)
		if err != nil {
			s.Logger.WithFields(logrus.Fields{"session": code, "remote": r.RemoteAddr}).Debugf("join rejected: %v", err)
			writeError(w, err)
			return
		}

		s.Logger.WithFields(logrus.Fields{"session": sess.Code(), "player": p.ID}).Infof("%s joined", p.Name)
		writeJSON(w, http.StatusOK, joinSessionResponse{
			PlayerID:   p.ID,
			Avatar:     p.Avatar,
			JoinResult: res,
		})
	}
}

// SessionInfoHandler lets a client check a code before asking for a name.
func SessionInfoHandler(s *SessionServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := httprouter.ParamsFromContext(r.Context()).ByName("code")
		sess, ok := s.Registry.Get(code)
		if !ok {
			writeError(w, game.ErrNotFound)
			return
		}
		writeJSON(w, http.StatusOK, sessionInfoResponse{
			SessionCode: sess.Code(),
			Phase:       sess.Phase(),
			Players:     len(sess.Members()),
			JoinResult:  sess.Info(),
		})
	}
}
