// internal/handlers/qr.go
package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/jason-s-yu/psykos/internal/game"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

// qrSize is the PNG edge length in pixels; large enough to scan off a TV.
const qrSize = 320

// QRHandler renders a PNG QR code that opens the join page for a session.
func QRHandler(s *SessionServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := httprouter.ParamsFromContext(r.Context()).ByName("code")
		sess, ok := s.Registry.Get(code)
		if !ok {
			writeError(w, game.ErrNotFound)
			return
		}

		png, err := qrcode.Encode(joinURL(s.Options.PublicURL, r, sess.Code()), qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write(png)
	}
}

// joinURL is the link players scan. Without a configured public URL the
// scheme and host come from the request, honoring X-Forwarded-Proto.
func joinURL(publicURL string, r *http.Request, code string) string {
	base := strings.TrimSuffix(publicURL, "/")
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
		base = scheme + "://" + r.Host
	}
	return base + "/?code=" + url.QueryEscape(code)
}
