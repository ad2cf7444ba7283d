package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/jason-s-yu/psykos/internal/game"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 4 << 10

// decodeBody reads a small JSON body into dst. An empty body leaves dst untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: bad request payload", game.ErrInvalidArgument)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps a session error onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, game.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, game.ErrConcurrencyConflict):
		return http.StatusConflict
	case errors.Is(err, game.ErrInvalidArgument),
		errors.Is(err, game.ErrInvalidTransition),
		errors.Is(err, game.ErrInsufficientMembers):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeJSON(w, status, map[string]string{
		"error":   game.ErrorCode(err),
		"message": msg,
	})
}
