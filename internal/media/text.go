package media

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"genads/internal/domain"
	"genads/internal/domain/sceneplan"
)

type TextRequest struct {
	ClipPath   string
	OutputPath string
	Overlays   []sceneplan.Overlay
}

// TextRenderer burns overlay text into a clip. Overlap between overlays is
// the planner's concern.
type TextRenderer struct {
	tools    Tools
	fontFile string
}

func NewTextRenderer(tools Tools, fontFile string) *TextRenderer {
	return &TextRenderer{tools: tools.withDefaults(), fontFile: fontFile}
}

func (r *TextRenderer) Apply(ctx context.Context, req TextRequest) error {
	if len(req.Overlays) == 0 {
		if err := CopyFile(req.ClipPath, req.OutputPath); err != nil {
			return stepError(domain.KindTextOverlay, domain.JobStatusTextOverlay, err)
		}
		return nil
	}
	filters := make([]string, 0, len(req.Overlays))
	for _, o := range req.Overlays {
		filters = append(filters, DrawTextFilter(o, r.fontFile))
	}
	err := r.tools.ffmpeg(ctx,
		"-i", req.ClipPath,
		"-vf", strings.Join(filters, ","),
		"-c:v", "libx264", "-preset", "medium", "-crf", "23",
		"-c:a", "copy",
		req.OutputPath,
	)
	if err != nil {
		return stepError(domain.KindTextOverlay, domain.JobStatusTextOverlay, err)
	}
	return nil
}

var textPositions = map[string][2]string{
	"top":          {"(w-text_w)/2", "h*0.1"},
	"bottom":       {"(w-text_w)/2", "h*0.85"},
	"center":       {"(w-text_w)/2", "(h-text_h)/2"},
	"top-left":     {"10", "10"},
	"top-right":    {"w-text_w-10", "10"},
	"bottom-left":  {"10", "h-text_h-10"},
	"bottom-right": {"w-text_w-10", "h-text_h-10"},
}

// TextPosition returns drawtext x/y expressions; unknown names land at the
// bottom.
func TextPosition(position string) (string, string) {
	if p, ok := textPositions[strings.ToLower(strings.TrimSpace(position))]; ok {
		return p[0], p[1]
	}
	p := textPositions["bottom"]
	return p[0], p[1]
}

var colorNames = map[string]string{
	"white":  "0xFFFFFF",
	"black":  "0x000000",
	"red":    "0xFF0000",
	"green":  "0x00FF00",
	"blue":   "0x0000FF",
	"yellow": "0xFFFF00",
	"gold":   "0xFFD700",
	"orange": "0xFFA500",
	"purple": "0x800080",
	"pink":   "0xFFC0CB",
	"gray":   "0x808080",
	"grey":   "0x808080",
}

var hexColor = regexp.MustCompile(`^[0-9A-F]{6}$`)

// NormalizeColor converts names and #RRGGBB to ffmpeg's 0xRRGGBB form.
func NormalizeColor(c string) string {
	c = strings.TrimSpace(c)
	if named, ok := colorNames[strings.ToLower(c)]; ok {
		return named
	}
	c = strings.ToUpper(c)
	switch {
	case strings.HasPrefix(c, "#"):
		c = c[1:]
	case strings.HasPrefix(c, "0X"):
		c = c[2:]
	}
	if !hexColor.MatchString(c) {
		return "0xFFFFFF"
	}
	return "0x" + c
}

// EscapeText escapes drawtext option syntax in user text.
func EscapeText(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`, `:`, `\:`, `%`, `\%`)
	return r.Replace(s)
}

// quote wraps a drawtext option value for the filtergraph parser.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// DrawTextFilter renders one overlay as a drawtext filter.
func DrawTextFilter(o sceneplan.Overlay, fontFile string) string {
	x, y := TextPosition(o.Position)
	size := o.FontSize
	if size <= 0 {
		size = sceneplan.DefaultOverlayFontSize
	}
	start := formatFloat(o.StartTime)
	end := formatFloat(o.EndTime)

	opts := []string{}
	if fontFile != "" {
		opts = append(opts, "fontfile="+quote(EscapeText(fontFile)))
	}
	opts = append(opts,
		"text="+quote(EscapeText(o.Text)),
		fmt.Sprintf("fontsize=%d", size),
		"fontcolor="+NormalizeColor(o.Color),
		"x="+quote(x),
		"y="+quote(y),
		"shadowcolor=black@0.6",
		"shadowx=2",
		"shadowy=2",
		"enable="+quote(fmt.Sprintf("between(t,%s,%s)", start, end)),
	)
	if o.Animation == "fade_in" {
		fade := formatFloat(sceneplan.DefaultFadeSeconds)
		opts = append(opts, "alpha="+quote(fmt.Sprintf("if(lt(t,%s+%s),(t-%s)/%s,1)", start, fade, start, fade)))
	}
	return "drawtext=" + strings.Join(opts, ":")
}
