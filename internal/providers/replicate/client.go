// Package replicate is a small client for the Replicate predictions API
// shared by the video, background-removal and music providers.
package replicate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"genads/internal/infra"
)

// ErrMissingToken indicates that the client was configured without credentials.
var ErrMissingToken = errors.New("replicate: api token is required")

// Prediction lifecycle states reported by the API.
const (
	StatusStarting   = "starting"
	StatusProcessing = "processing"
	StatusSucceeded  = "succeeded"
	StatusFailed     = "failed"
	StatusCanceled   = "canceled"
)

// Options configures the Replicate client.
type Options struct {
	Token          string
	BaseURL        string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
	PollInterval   time.Duration
}

// Client performs HTTP calls to the Replicate API.
type Client struct {
	token        string
	baseURL      string
	httpClient   *http.Client
	logger       *infra.Logger
	pollInterval time.Duration
}

// Prediction is the subset of the prediction resource the pipeline reads.
type Prediction struct {
	ID      string          `json:"id"`
	Model   string          `json:"model"`
	Version string          `json:"version"`
	Status  string          `json:"status"`
	Output  json.RawMessage `json:"output"`
	Error   json.RawMessage `json:"error"`
	Logs    string          `json:"logs"`
	Metrics struct {
		PredictTime float64 `json:"predict_time"`
	} `json:"metrics"`
}

// Terminal reports whether the prediction stopped changing.
func (p *Prediction) Terminal() bool {
	switch p.Status {
	case StatusSucceeded, StatusFailed, StatusCanceled:
		return true
	}
	return false
}

// OutputURL returns the first URL of the output, which the API encodes
// either as a string or as a list of strings.
func (p *Prediction) OutputURL() (string, error) {
	raw := bytes.TrimSpace(p.Output)
	if len(raw) == 0 || string(raw) == "null" {
		return "", fmt.Errorf("replicate: prediction %s has no output", p.ID)
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil && strings.TrimSpace(single) != "" {
		return strings.TrimSpace(single), nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		for _, u := range list {
			if u = strings.TrimSpace(u); u != "" {
				return u, nil
			}
		}
	}
	return "", fmt.Errorf("replicate: prediction %s output is not a url: %s", p.ID, truncate(string(raw), 120))
}

func (p *Prediction) errorText() string {
	raw := bytes.TrimSpace(p.Error)
	if len(raw) == 0 || string(raw) == "null" {
		return "unknown error"
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

type createRequest struct {
	Version string         `json:"version,omitempty"`
	Input   map[string]any `json:"input"`
}

type errorResponse struct {
	Detail string `json:"detail"`
	Title  string `json:"title"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.replicate.com/v1"
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Client{
		token:        strings.TrimSpace(opts.Token),
		baseURL:      baseURL,
		httpClient:   httpClient,
		logger:       logger,
		pollInterval: interval,
	}
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.token != ""
}

// Create starts a prediction. A model reference containing ":" pins a
// version hash; otherwise the model's latest deployment is used.
func (c *Client) Create(ctx context.Context, model string, input map[string]any) (*Prediction, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingToken
	}
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, errors.New("replicate: model is required")
	}
	endpoint := c.baseURL + "/predictions"
	payload := createRequest{Input: input}
	if _, version, ok := strings.Cut(model, ":"); ok {
		payload.Version = version
	} else {
		endpoint = c.baseURL + "/models/" + model + "/predictions"
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("replicate: encode request: %w", err)
	}
	var pred Prediction
	if err := c.do(ctx, http.MethodPost, endpoint, body, &pred); err != nil {
		return nil, err
	}
	c.logger.Debug().Str("provider", "replicate").Str("model", model).Str("prediction_id", pred.ID).Msg("replicate: prediction created")
	return &pred, nil
}

// Get fetches the current state of a prediction.
func (c *Client) Get(ctx context.Context, id string) (*Prediction, error) {
	var pred Prediction
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/predictions/"+url.PathEscape(id), nil, &pred); err != nil {
		return nil, err
	}
	return &pred, nil
}

// Cancel asks the API to stop a running prediction.
func (c *Client) Cancel(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, c.baseURL+"/predictions/"+url.PathEscape(id)+"/cancel", nil, nil)
}

// Wait polls until the prediction is terminal or maxWait elapses. Polls are
// paced by a limiter so a slow API never sees more than one request per
// interval.
func (c *Client) Wait(ctx context.Context, pred *Prediction, maxWait time.Duration) (*Prediction, error) {
	if pred.Terminal() {
		return pred, nil
	}
	waitCtx := ctx
	if maxWait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, maxWait)
		defer cancel()
	}
	limiter := rate.NewLimiter(rate.Every(c.pollInterval), 1)
	_ = limiter.Reserve()

	current := pred
	for {
		if err := limiter.Wait(waitCtx); err != nil {
			return nil, c.waitError(ctx, current, maxWait, err)
		}
		next, err := c.Get(waitCtx, current.ID)
		if err != nil {
			if waitCtx.Err() != nil {
				return nil, c.waitError(ctx, current, maxWait, err)
			}
			return nil, err
		}
		current = next
		if current.Terminal() {
			c.logger.Debug().Str("provider", "replicate").Str("prediction_id", current.ID).Str("status", current.Status).Float64("predict_time", current.Metrics.PredictTime).Msg("replicate: prediction finished")
			return current, nil
		}
	}
}

// waitError keeps the caller's own cancellation or deadline intact and
// turns an exhausted maxWait into a plain provider error.
func (c *Client) waitError(parent context.Context, pred *Prediction, maxWait time.Duration, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	cancelCtx, cancel := context.WithTimeout(context.WithoutCancel(parent), 10*time.Second)
	defer cancel()
	if cerr := c.Cancel(cancelCtx, pred.ID); cerr != nil {
		c.logger.Warn().Err(cerr).Str("prediction_id", pred.ID).Msg("replicate: cancel after max wait failed")
	}
	return fmt.Errorf("replicate: prediction %s still %s after %s", pred.ID, pred.Status, maxWait)
}

// Run creates a prediction, waits for it, and fails unless it succeeded.
func (c *Client) Run(ctx context.Context, model string, input map[string]any, maxWait time.Duration) (*Prediction, error) {
	pred, err := c.Create(ctx, model, input)
	if err != nil {
		return nil, err
	}
	pred, err = c.Wait(ctx, pred, maxWait)
	if err != nil {
		return nil, err
	}
	switch pred.Status {
	case StatusSucceeded:
		return pred, nil
	case StatusCanceled:
		return nil, fmt.Errorf("replicate: prediction %s was canceled", pred.ID)
	default:
		return nil, fmt.Errorf("replicate: prediction %s failed: %s", pred.ID, pred.errorText())
	}
}

// Download fetches a prediction output.
func (c *Client) Download(ctx context.Context, rawURL string) ([]byte, string, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed.Scheme == "" {
		return nil, "", fmt.Errorf("replicate: invalid output url: %s", rawURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("replicate: build download request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("replicate: download output: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("replicate: download status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("replicate: read output: %w", err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("replicate: build request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("replicate: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("replicate: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		var detail errorResponse
		if err := json.Unmarshal(raw, &detail); err == nil && detail.Detail != "" {
			return fmt.Errorf("replicate: status %d: %s", resp.StatusCode, detail.Detail)
		}
		return fmt.Errorf("replicate: status %d: %s", resp.StatusCode, truncate(strings.TrimSpace(string(raw)), 200))
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("replicate: decode response: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
