package infra

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"
)

func TestNewHTTPServerAppliesConfig(t *testing.T) {
	srv := NewHTTPServer(&Config{Port: "9090", HTTPReadTimeout: 3 * time.Second}, http.NotFoundHandler())
	if srv.Addr() != ":9090" {
		t.Fatalf("Addr = %q, want :9090", srv.Addr())
	}
	if srv.server.ReadTimeout != 3*time.Second {
		t.Fatalf("ReadTimeout = %s", srv.server.ReadTimeout)
	}
	if srv.grace != 20*time.Second {
		t.Fatalf("default grace = %s", srv.grace)
	}
}

func TestHTTPServerServesUntilCancelled(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})
	srv := NewHTTPServer(&Config{Port: "0", ShutdownGrace: time.Second}, handler)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "ok" {
		t.Fatalf("body = %q", body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve returned %v after cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not stop")
	}
}
