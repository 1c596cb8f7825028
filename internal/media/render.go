package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"genads/internal/domain"
)

// Aspect is one export target.
type Aspect struct {
	Name   string
	Width  int
	Height int
}

var aspects = map[string]Aspect{
	"16:9": {Name: "16:9", Width: 1920, Height: 1080},
	"9:16": {Name: "9:16", Width: 1080, Height: 1920},
	"1:1":  {Name: "1:1", Width: 1080, Height: 1080},
}

// AspectFor looks up a target such as "9:16".
func AspectFor(name string) (Aspect, bool) {
	a, ok := aspects[name]
	return a, ok
}

// FileName is the export file name, e.g. final_9_16.mp4.
func (a Aspect) FileName() string {
	return "final_" + strings.ReplaceAll(a.Name, ":", "_") + ".mp4"
}

// Filter letterboxes the source into the target frame.
func (a Aspect) Filter() string {
	return fmt.Sprintf(
		`scale=min(%[1]d\,iw*%[2]d/ih):min(%[2]d\,ih*%[1]d/iw),pad=%[1]d:%[2]d:(ow-iw)/2:(oh-ih)/2:black,setsar=1`,
		a.Width, a.Height,
	)
}

type RenderRequest struct {
	Clips           []string
	MusicPath       string
	DurationSeconds float64
	Targets         []string
	WorkDir         string
}

// Renderer concatenates the scene clips, mixes music, and exports every
// aspect target.
type Renderer struct {
	tools Tools
}

func NewRenderer(tools Tools) *Renderer {
	return &Renderer{tools: tools.withDefaults()}
}

// Render returns the local export path per target.
func (r *Renderer) Render(ctx context.Context, req RenderRequest) (map[string]string, error) {
	if len(req.Clips) == 0 {
		return nil, renderError(errors.New("no clips to render"))
	}
	if len(req.Targets) == 0 {
		return nil, renderError(errors.New("no render targets"))
	}
	targets := make([]Aspect, 0, len(req.Targets))
	for _, name := range req.Targets {
		a, ok := AspectFor(name)
		if !ok {
			return nil, renderError(fmt.Errorf("unsupported aspect %q", name))
		}
		targets = append(targets, a)
	}
	if err := os.MkdirAll(req.WorkDir, 0o755); err != nil {
		return nil, renderError(err)
	}

	listPath := filepath.Join(req.WorkDir, "concat.txt")
	if err := os.WriteFile(listPath, []byte(ConcatList(req.Clips)), 0o644); err != nil {
		return nil, renderError(err)
	}
	joined := filepath.Join(req.WorkDir, "joined.mp4")
	if err := r.tools.ffmpeg(ctx, "-f", "concat", "-safe", "0", "-i", listPath, "-c", "copy", joined); err != nil {
		return nil, renderError(fmt.Errorf("concat: %w", err))
	}

	master := joined
	if req.MusicPath != "" {
		mixed := filepath.Join(req.WorkDir, "mixed.mp4")
		args := []string{
			"-i", joined,
			"-stream_loop", "-1", "-i", req.MusicPath,
			"-map", "0:v:0", "-map", "1:a:0",
			"-c:v", "copy", "-c:a", "aac",
			"-shortest",
		}
		if req.DurationSeconds > 0 {
			args = append(args, "-t", formatFloat(req.DurationSeconds))
		}
		args = append(args, mixed)
		if err := r.tools.ffmpeg(ctx, args...); err != nil {
			return nil, renderError(fmt.Errorf("mix audio: %w", err))
		}
		master = mixed
	}

	outputs := make(map[string]string, len(targets))
	for _, a := range targets {
		out := filepath.Join(req.WorkDir, a.FileName())
		err := r.tools.ffmpeg(ctx,
			"-i", master,
			"-vf", a.Filter(),
			"-c:v", "libx264", "-preset", "medium", "-crf", "23",
			"-c:a", "aac",
			"-movflags", "+faststart",
			out,
		)
		if err != nil {
			return nil, renderError(fmt.Errorf("export %s: %w", a.Name, err))
		}
		outputs[a.Name] = out
	}
	return outputs, nil
}

// ConcatList renders an ffmpeg concat demuxer script.
func ConcatList(paths []string) string {
	var sb strings.Builder
	for _, p := range paths {
		sb.WriteString("file '")
		sb.WriteString(strings.ReplaceAll(p, "'", `'\''`))
		sb.WriteString("'\n")
	}
	return sb.String()
}

func renderError(err error) error {
	return stepError(domain.KindRender, domain.JobStatusRendering, err)
}
