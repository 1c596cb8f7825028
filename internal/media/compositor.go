package media

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"genads/internal/domain"
)

// ProductMargin is the inset in pixels for corner and edge positions.
const ProductMargin = 40

type CompositeRequest struct {
	ClipPath    string
	ProductPath string
	OutputPath  string
	Position    string
	Scale       float64
	Opacity     float64
}

// Compositor overlays the product image on a generated clip.
type Compositor struct {
	tools Tools
}

func NewCompositor(tools Tools) *Compositor {
	return &Compositor{tools: tools.withDefaults()}
}

// Composite keeps the clip's frame rate and duration. Without a product
// image the clip is copied unchanged. Failures are compositing errors.
func (c *Compositor) Composite(ctx context.Context, req CompositeRequest) error {
	info, err := ProbeVideo(ctx, c.tools, req.ClipPath)
	if err != nil {
		return compositingError(err)
	}
	if req.ProductPath == "" {
		if err := CopyFile(req.ClipPath, req.OutputPath); err != nil {
			return compositingError(err)
		}
		return nil
	}

	scale := req.Scale
	if scale <= 0 || scale > 1 {
		scale = 0.3
	}
	opacity := req.Opacity
	if opacity <= 0 || opacity > 1 {
		opacity = 1
	}
	productHeight := evenPixels(float64(info.Height) * scale)
	x, y := OverlayPosition(req.Position, ProductMargin)

	filter := fmt.Sprintf(
		"[1:v]format=rgba,scale=-2:%d,colorchannelmixer=aa=%s[product];[0:v][product]overlay=x=%s:y=%s:shortest=1:format=auto,format=yuv420p[out]",
		productHeight, formatFloat(opacity), x, y,
	)
	args := []string{
		"-i", req.ClipPath,
		"-loop", "1", "-i", req.ProductPath,
		"-filter_complex", filter,
		"-map", "[out]",
		"-map", "0:a?",
	}
	if info.FrameRateRaw != "" && info.FrameRate > 0 {
		args = append(args, "-r", info.FrameRateRaw)
	}
	if info.DurationSeconds > 0 {
		args = append(args, "-t", formatFloat(info.DurationSeconds))
	}
	args = append(args,
		"-c:v", "libx264", "-preset", "medium", "-crf", "23",
		"-c:a", "copy",
		req.OutputPath,
	)
	if err := c.tools.ffmpeg(ctx, args...); err != nil {
		return compositingError(err)
	}
	return nil
}

// OverlayPosition returns ffmpeg overlay x/y expressions for a named
// position. Unknown names fall back to center.
func OverlayPosition(position string, margin int) (string, string) {
	m := strconv.Itoa(margin)
	switch position {
	case "top-left":
		return m, m
	case "top-right":
		return "W-w-" + m, m
	case "bottom-left":
		return m, "H-h-" + m
	case "bottom-right":
		return "W-w-" + m, "H-h-" + m
	case "bottom-center", "lower-third":
		return "(W-w)/2", "H-h-" + m
	default:
		return "(W-w)/2", "(H-h)/2"
	}
}

func compositingError(err error) error {
	return stepError(domain.KindCompositing, domain.JobStatusCompositing, err)
}

func stepError(kind domain.ErrorKind, step domain.JobStatus, err error) error {
	return domain.NewPipelineError(kind, step, err)
}

// evenPixels rounds to an even pixel count, which yuv420p requires.
func evenPixels(v float64) int {
	n := int(math.Round(v))
	if n%2 != 0 {
		n--
	}
	if n < 2 {
		n = 2
	}
	return n
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
