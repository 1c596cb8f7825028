package storage

import (
	"fmt"
	"strings"
)

// Layout derives every object key of one project.
type Layout struct {
	folder string
}

// LayoutFor uses the project's recorded storage folder.
func LayoutFor(folder string) Layout {
	return Layout{folder: strings.TrimRight(folder, "/")}
}

func (l Layout) Folder() string { return l.folder }

// DraftPrefix holds intermediates removed after a successful run.
func (l Layout) DraftPrefix() string { return l.folder + "/draft" }

func (l Layout) ProductCutout() string {
	return l.DraftPrefix() + "/product/extracted.png"
}

func (l Layout) ProductOriginal(ext string) string {
	return l.DraftPrefix() + "/product/original" + ext
}

// SceneClip is the raw generated clip for the 1-based scene index.
func (l Layout) SceneClip(scene int) string {
	return fmt.Sprintf("%s/scenes/scene_%02d.mp4", l.DraftPrefix(), scene)
}

func (l Layout) CompositedClip(scene int) string {
	return fmt.Sprintf("%s/composited/scene_%02d.mp4", l.DraftPrefix(), scene)
}

func (l Layout) TextOverlayClip(scene int) string {
	return fmt.Sprintf("%s/text_overlays/scene_%02d_text.mp4", l.DraftPrefix(), scene)
}

func (l Layout) Music(mood string) string {
	return fmt.Sprintf("%s/music/music_%s.mp3", l.DraftPrefix(), mood)
}

// Final is the export for an aspect ratio such as "9:16".
func (l Layout) Final(aspect string) string {
	return fmt.Sprintf("%s/final/final_%s.mp4", l.folder, strings.ReplaceAll(aspect, ":", "_"))
}
