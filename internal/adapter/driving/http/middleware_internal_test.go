package httphandler

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientKey(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		want       string
	}{
		{name: "first forwarded entry", headers: map[string]string{"X-Forwarded-For": " 203.0.113.7 , 10.0.0.1"}, remoteAddr: "10.0.0.2:5000", want: "203.0.113.7"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "198.51.100.4"}, remoteAddr: "10.0.0.2:5000", want: "198.51.100.4"},
		{name: "empty forwarded falls through", headers: map[string]string{"X-Forwarded-For": " , x", "X-Real-IP": "198.51.100.4"}, want: "198.51.100.4"},
		{name: "remote host", remoteAddr: "192.0.2.1:1234", want: "192.0.2.1"},
		{name: "remote without port", remoteAddr: "192.0.2.1", want: "192.0.2.1"},
		{name: "unknown", remoteAddr: "", want: "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}

			assert.Equal(t, tt.want, clientKey(r))
		})
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := recoveryMiddleware(logger, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
}
