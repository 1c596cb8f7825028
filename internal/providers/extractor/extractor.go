// Package extractor produces the product cutout composited onto scenes.
// Extraction never fails a job: an unusable cutout degrades to the original
// image and a missing source image degrades to no product at all.
package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/h2non/filetype"
	_ "golang.org/x/image/webp"

	"genads/internal/infra"
)

// Kind tags which image, if any, downstream compositing should use.
type Kind string

const (
	KindCutout   Kind = "cutout"
	KindOriginal Kind = "original"
	KindNone     Kind = "none"
)

// Degradation reasons.
const (
	ReasonNoSource          = "no_source_image"
	ReasonSourceFetch       = "source_unavailable"
	ReasonSourceNotImage    = "source_not_image"
	ReasonSourceBroken      = "source_undecodable"
	ReasonRemoverFailed     = "remover_failed"
	ReasonCutoutBroken      = "cutout_undecodable"
	ReasonCutoutTransparent = "cutout_fully_transparent"
)

// Result is the tagged extraction outcome.
type Result struct {
	Kind        Kind
	Reason      string
	Data        []byte
	ContentType string
	Width       int
	Height      int
}

// HasImage reports whether there is anything to composite.
func (r Result) HasImage() bool {
	return r.Kind != KindNone && len(r.Data) > 0
}

// Source locates the product image. Data wins over URL when both are set.
type Source struct {
	URL  string
	Data []byte
}

type Extractor interface {
	Extract(ctx context.Context, src Source) (Result, error)
}

// Remover strips the background from an image and returns a PNG.
type Remover interface {
	Remove(ctx context.Context, data []byte, contentType string) ([]byte, error)
}

type Options struct {
	Remover    Remover
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Service is the default Extractor.
type Service struct {
	remover    Remover
	httpClient *http.Client
	logger     *infra.Logger
}

func NewService(opts Options) (*Service, error) {
	if opts.Remover == nil {
		return nil, errors.New("extractor: remover is required")
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Service{remover: opts.Remover, httpClient: client, logger: logger}, nil
}

// Extract only returns an error when ctx is done.
func (s *Service) Extract(ctx context.Context, src Source) (Result, error) {
	data := src.Data
	if len(data) == 0 {
		if strings.TrimSpace(src.URL) == "" {
			return Result{Kind: KindNone, Reason: ReasonNoSource}, nil
		}
		fetched, err := s.fetch(ctx, src.URL)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Result{}, ctxErr
			}
			s.degrade(ReasonSourceFetch, err)
			return Result{Kind: KindNone, Reason: ReasonSourceFetch}, nil
		}
		data = fetched
	}

	kind, err := filetype.Match(data)
	if err != nil || !filetype.IsImage(data) {
		s.degrade(ReasonSourceNotImage, err)
		return Result{Kind: KindNone, Reason: ReasonSourceNotImage}, nil
	}
	original := Result{
		Kind:        KindOriginal,
		Data:        data,
		ContentType: kind.MIME.Value,
	}
	// A sniffed image whose header Go cannot read is still handed to the
	// remover; if that fails too, the original bytes are composited as-is.
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		original.Reason = ReasonSourceBroken
		s.degrade(original.Reason, err)
	} else {
		original.Width, original.Height = cfg.Width, cfg.Height
	}

	cutout, err := s.remover.Remove(ctx, data, kind.MIME.Value)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		if original.Reason == "" {
			original.Reason = ReasonRemoverFailed
		}
		s.degrade(ReasonRemoverFailed, err)
		return original, nil
	}
	img, err := png.Decode(bytes.NewReader(cutout))
	if err != nil {
		if original.Reason == "" {
			original.Reason = ReasonCutoutBroken
		}
		s.degrade(ReasonCutoutBroken, err)
		return original, nil
	}
	if FullyTransparent(img) {
		if original.Reason == "" {
			original.Reason = ReasonCutoutTransparent
		}
		s.degrade(ReasonCutoutTransparent, nil)
		return original, nil
	}
	b := img.Bounds()
	return Result{
		Kind:        KindCutout,
		Data:        cutout,
		ContentType: "image/png",
		Width:       b.Dx(),
		Height:      b.Dy(),
	}, nil
}

func (s *Service) degrade(reason string, err error) {
	evt := s.logger.Warn().Str("step", "extraction").Str("reason", reason)
	if err != nil {
		evt = evt.Err(err)
	}
	evt.Msg("extractor: falling back")
}

func (s *Service) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSpace(rawURL), nil)
	if err != nil {
		return nil, fmt.Errorf("extractor: build request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extractor: fetch source: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("extractor: fetch source: status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 25<<20))
}

// FullyTransparent reports whether every pixel has zero alpha.
func FullyTransparent(img image.Image) bool {
	if n, ok := img.(*image.NRGBA); ok {
		for i := 3; i < len(n.Pix); i += 4 {
			if n.Pix[i] != 0 {
				return false
			}
		}
		return true
	}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0 {
				return false
			}
		}
	}
	return true
}

var _ Extractor = (*Service)(nil)
