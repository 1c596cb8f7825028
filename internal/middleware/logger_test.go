package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerLevelsAndFields(t *testing.T) {
	cases := []struct {
		name   string
		path   string
		status int
		level  string
	}{
		{name: "ok", path: "/v1/projects", status: http.StatusOK, level: "info"},
		{name: "health", path: "/v1/healthz", status: http.StatusOK, level: "debug"},
		{name: "progress poll", path: "/v1/projects/p1/progress", status: http.StatusOK, level: "debug"},
		{name: "client error", path: "/v1/projects/p1/progress", status: http.StatusNotFound, level: "warn"},
		{name: "server error", path: "/v1/projects", status: http.StatusInternalServerError, level: "error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := zerolog.New(&buf).Level(zerolog.DebugLevel)
			h := RequestID(Logger(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte("hello"))
			})))
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			req.Header.Set("X-Request-ID", "req-1")
			h.ServeHTTP(httptest.NewRecorder(), req)

			var line map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
			assert.Equal(t, tc.level, line["level"])
			assert.Equal(t, float64(tc.status), line["status"])
			assert.Equal(t, float64(5), line["bytes"])
			assert.Equal(t, "req-1", line["request_id"])
			assert.Equal(t, "http: request", line["message"])
		})
	}
}
