package extractor

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"genads/internal/providers/replicate"
)

// ReplicateRemover runs a hosted background-removal model.
type ReplicateRemover struct {
	client  *replicate.Client
	model   string
	maxWait time.Duration
}

func NewReplicateRemover(client *replicate.Client, model string, maxWait time.Duration) (*ReplicateRemover, error) {
	if client == nil {
		return nil, errors.New("extractor: replicate client is required")
	}
	if model == "" {
		model = "cjwbw/rembg:fb8af171cfa1616ddcf1242c093f9c46bcada5ad4cf6f2fbe8b81b330ec5c003"
	}
	if maxWait <= 0 {
		maxWait = 2 * time.Minute
	}
	return &ReplicateRemover{client: client, model: model, maxWait: maxWait}, nil
}

func (r *ReplicateRemover) Remove(ctx context.Context, data []byte, contentType string) ([]byte, error) {
	if contentType == "" {
		contentType = "image/png"
	}
	uri := fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(data))
	pred, err := r.client.Run(ctx, r.model, map[string]any{"image": uri}, r.maxWait)
	if err != nil {
		return nil, err
	}
	url, err := pred.OutputURL()
	if err != nil {
		return nil, err
	}
	out, _, err := r.client.Download(ctx, url)
	return out, err
}

var _ Remover = (*ReplicateRemover)(nil)
