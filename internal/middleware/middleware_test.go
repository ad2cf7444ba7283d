package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogMiddlewareRecordsStatus(t *testing.T) {
	logger, hook := test.NewNullLogger()
	h := LogMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusTeapot)
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sessions/ABCD/qr", nil))

	require.Len(t, hook.Entries, 1)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, http.StatusTeapot, entry.Data["status"])
	assert.Equal(t, "/sessions/ABCD/qr", entry.Data["path"])
	assert.Equal(t, http.MethodGet, entry.Data["method"])
}

func TestStatusDefaultsToOK(t *testing.T) {
	logger, hook := test.NewNullLogger()
	h := Metrics("/healthz")(LogMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusOK, hook.LastEntry().Data["status"])
}

func TestWrapWriterIsShared(t *testing.T) {
	w := httptest.NewRecorder()
	sw := wrapWriter(w)
	assert.Same(t, sw, wrapWriter(sw))

	// httptest.ResponseRecorder cannot be hijacked.
	_, _, err := sw.Hijack()
	assert.Error(t, err)
}

func TestWebSocketLogHelpers(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})

	LogWebSocketConnect(logger, "1.2.3.4:5", "/sessions/ABCD/ws")
	LogWebSocketDisconnect(logger, "1.2.3.4:5", "/sessions/ABCD/ws", assert.AnError)

	out := buf.String()
	assert.Contains(t, out, "WebSocket connected")
	assert.Contains(t, out, "WebSocket disconnected")
	assert.Contains(t, out, assert.AnError.Error())
}
