package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"genads/internal/domain"
	"genads/internal/infra"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthReportsDatabase(t *testing.T) {
	tests := []struct {
		name string
		db   Pinger
		want int
	}{
		{name: "no database", db: nil, want: http.StatusOK},
		{name: "reachable", db: pingerFunc(func(context.Context) error { return nil }), want: http.StatusOK},
		{name: "unreachable", db: pingerFunc(func(context.Context) error { return errors.New("dial tcp") }), want: http.StatusServiceUnavailable},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			app := &App{DB: tc.db, Logger: *infra.NopLogger()}
			rr := httptest.NewRecorder()
			app.Health(rr, httptest.NewRequest(http.MethodGet, "/v1/healthz", nil))
			if rr.Code != tc.want {
				t.Fatalf("status = %d, want %d", rr.Code, tc.want)
			}
		})
	}
}

func TestFailMapsDomainErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{domain.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{domain.ErrNotFound, http.StatusNotFound, "not_found"},
		{domain.ErrInvalidProject, http.StatusBadRequest, "bad_request"},
		{domain.ErrJobInFlight, http.StatusConflict, "job_in_flight"},
		{domain.ErrResetRequired, http.StatusConflict, "reset_required"},
		{domain.ErrNotCancellable, http.StatusConflict, "not_cancellable"},
		{errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	app := &App{Logger: *infra.NopLogger()}
	for _, tc := range tests {
		rr := httptest.NewRecorder()
		app.fail(rr, httptest.NewRequest(http.MethodGet, "/", nil), tc.err)
		if rr.Code != tc.status {
			t.Fatalf("%v: status = %d, want %d", tc.err, rr.Code, tc.status)
		}
		var body errorBody
		if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Error.Code != tc.code {
			t.Fatalf("%v: code = %q, want %q", tc.err, body.Error.Code, tc.code)
		}
	}
}
