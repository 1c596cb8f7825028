package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// VideoInfo is what the pipeline needs to know about a clip.
type VideoInfo struct {
	Width           int
	Height          int
	FrameRate       float64
	FrameRateRaw    string
	DurationSeconds float64
	HasAudio        bool
}

type probeOutput struct {
	Streams []struct {
		CodecType    string `json:"codec_type"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		RFrameRate   string `json:"r_frame_rate"`
		AvgFrameRate string `json:"avg_frame_rate"`
		Duration     string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// ProbeVideo reads stream metadata with ffprobe.
func ProbeVideo(ctx context.Context, tools Tools, path string) (VideoInfo, error) {
	tools = tools.withDefaults()
	res, err := tools.Runner.Run(ctx, tools.FFprobe,
		"-v", "error",
		"-print_format", "json",
		"-show_streams",
		"-show_format",
		path,
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return VideoInfo{}, ctxErr
		}
		return VideoInfo{}, fmt.Errorf("ffprobe %s: %w: %s", path, err, tail(res.Stderr, 300))
	}
	return parseProbe([]byte(res.Stdout))
}

func parseProbe(raw []byte) (VideoInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return VideoInfo{}, fmt.Errorf("decode ffprobe output: %w", err)
	}
	var info VideoInfo
	found := false
	for _, s := range out.Streams {
		switch s.CodecType {
		case "video":
			if found {
				continue
			}
			found = true
			info.Width = s.Width
			info.Height = s.Height
			info.FrameRateRaw = s.RFrameRate
			if info.FrameRateRaw == "" || info.FrameRateRaw == "0/0" {
				info.FrameRateRaw = s.AvgFrameRate
			}
			info.FrameRate = parseRate(info.FrameRateRaw)
			info.DurationSeconds, _ = strconv.ParseFloat(s.Duration, 64)
		case "audio":
			info.HasAudio = true
		}
	}
	if !found || info.Width <= 0 || info.Height <= 0 {
		return VideoInfo{}, errors.New("no decodable video stream")
	}
	if d, err := strconv.ParseFloat(out.Format.Duration, 64); err == nil && d > 0 {
		info.DurationSeconds = d
	}
	return info, nil
}

func parseRate(raw string) float64 {
	num, den, ok := strings.Cut(raw, "/")
	if !ok {
		v, _ := strconv.ParseFloat(raw, 64)
		return v
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}
