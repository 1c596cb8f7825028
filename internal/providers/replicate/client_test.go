package replicate

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newTestClient(fn roundTripFunc) *Client {
	return NewClient(Options{
		Token:        "r8_test",
		BaseURL:      "https://replicate.test/v1/",
		HTTPClient:   &http.Client{Transport: fn},
		PollInterval: time.Millisecond,
	})
}

func TestCreateByVersionUsesPredictionsEndpoint(t *testing.T) {
	var gotPath, gotAuth string
	var payload map[string]any
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		gotPath = req.URL.Path
		gotAuth = req.Header.Get("Authorization")
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return jsonResponse(http.StatusCreated, `{"id":"p1","status":"starting"}`), nil
	})

	pred, err := client.Create(context.Background(), "meta/musicgen:abc123", map[string]any{"prompt": "jazz"})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if pred.ID != "p1" {
		t.Fatalf("prediction id = %q", pred.ID)
	}
	if gotPath != "/v1/predictions" {
		t.Fatalf("path = %q, want /v1/predictions", gotPath)
	}
	if gotAuth != "Token r8_test" {
		t.Fatalf("authorization = %q", gotAuth)
	}
	if payload["version"] != "abc123" {
		t.Fatalf("version = %v, want abc123", payload["version"])
	}
	input, _ := payload["input"].(map[string]any)
	if input["prompt"] != "jazz" {
		t.Fatalf("input.prompt = %v", input["prompt"])
	}
}

func TestCreateByModelUsesModelEndpoint(t *testing.T) {
	var gotPath string
	var payload map[string]any
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		gotPath = req.URL.Path
		_ = json.NewDecoder(req.Body).Decode(&payload)
		return jsonResponse(http.StatusCreated, `{"id":"p2","status":"starting"}`), nil
	})

	if _, err := client.Create(context.Background(), "bytedance/seedance-1-lite", map[string]any{}); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if gotPath != "/v1/models/bytedance/seedance-1-lite/predictions" {
		t.Fatalf("path = %q", gotPath)
	}
	if _, ok := payload["version"]; ok {
		t.Fatalf("version should be omitted for model references")
	}
}

func TestCreateWithoutTokenFails(t *testing.T) {
	client := NewClient(Options{})
	if _, err := client.Create(context.Background(), "a/b", nil); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("err = %v, want ErrMissingToken", err)
	}
}

func TestRunPollsUntilSucceeded(t *testing.T) {
	var mu sync.Mutex
	polls := 0
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		if req.Method == http.MethodPost {
			return jsonResponse(http.StatusCreated, `{"id":"p3","status":"starting"}`), nil
		}
		mu.Lock()
		defer mu.Unlock()
		polls++
		if polls < 3 {
			return jsonResponse(http.StatusOK, `{"id":"p3","status":"processing"}`), nil
		}
		return jsonResponse(http.StatusOK, `{"id":"p3","status":"succeeded","output":["https://cdn.test/out.mp4"]}`), nil
	})

	pred, err := client.Run(context.Background(), "a/b", nil, time.Second)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if polls != 3 {
		t.Fatalf("polls = %d, want 3", polls)
	}
	out, err := pred.OutputURL()
	if err != nil {
		t.Fatalf("OutputURL returned error: %v", err)
	}
	if out != "https://cdn.test/out.mp4" {
		t.Fatalf("output = %q", out)
	}
}

func TestRunReportsFailedPrediction(t *testing.T) {
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		if req.Method == http.MethodPost {
			return jsonResponse(http.StatusCreated, `{"id":"p4","status":"starting"}`), nil
		}
		return jsonResponse(http.StatusOK, `{"id":"p4","status":"failed","error":"NSFW content detected"}`), nil
	})

	_, err := client.Run(context.Background(), "a/b", nil, time.Second)
	if err == nil || !strings.Contains(err.Error(), "NSFW content detected") {
		t.Fatalf("err = %v, want provider error text", err)
	}
}

func TestWaitGivesUpAfterMaxWaitAndCancels(t *testing.T) {
	var mu sync.Mutex
	cancelled := false
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		if strings.HasSuffix(req.URL.Path, "/cancel") {
			mu.Lock()
			cancelled = true
			mu.Unlock()
			return jsonResponse(http.StatusOK, `{"id":"p5","status":"canceled"}`), nil
		}
		return jsonResponse(http.StatusOK, `{"id":"p5","status":"processing"}`), nil
	})

	_, err := client.Wait(context.Background(), &Prediction{ID: "p5", Status: StatusStarting}, 20*time.Millisecond)
	if err == nil {
		t.Fatalf("expected max wait error")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("max wait must not look like the caller's deadline: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if !cancelled {
		t.Fatalf("expected prediction to be cancelled")
	}
}

func TestWaitKeepsCallerCancellation(t *testing.T) {
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"id":"p6","status":"processing"}`), nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Wait(ctx, &Prediction{ID: "p6", Status: StatusStarting}, time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestStatusErrorUsesDetail(t *testing.T) {
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusUnprocessableEntity, `{"title":"Invalid input","detail":"duration must be <= 10"}`), nil
	})
	_, err := client.Create(context.Background(), "a/b", nil)
	if err == nil || !strings.Contains(err.Error(), "status 422: duration must be <= 10") {
		t.Fatalf("err = %v", err)
	}
}

func TestOutputURLForms(t *testing.T) {
	cases := []struct {
		name    string
		output  string
		want    string
		wantErr bool
	}{
		{name: "string", output: `"https://cdn.test/a.mp3"`, want: "https://cdn.test/a.mp3"},
		{name: "list", output: `["", "https://cdn.test/b.png"]`, want: "https://cdn.test/b.png"},
		{name: "null", output: `null`, wantErr: true},
		{name: "object", output: `{"video":"x"}`, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := &Prediction{ID: "p", Output: json.RawMessage(tc.output)}
			got, err := p.OutputURL()
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("OutputURL returned error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("OutputURL = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestDownloadReturnsBodyAndContentType(t *testing.T) {
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": []string{"video/mp4"}},
			Body:       io.NopCloser(strings.NewReader("mp4-bytes")),
		}, nil
	})
	data, ct, err := client.Download(context.Background(), "https://cdn.test/out.mp4")
	if err != nil {
		t.Fatalf("Download returned error: %v", err)
	}
	if string(data) != "mp4-bytes" || ct != "video/mp4" {
		t.Fatalf("Download = %q %q", data, ct)
	}
	if _, _, err := client.Download(context.Background(), "not a url"); err == nil {
		t.Fatalf("expected error for invalid url")
	}
}
