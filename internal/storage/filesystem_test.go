package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSanitizeKey(t *testing.T) {
	cases := map[string]string{
		"projects/a/draft/x.png": "projects/a/draft/x.png",
		"/projects/a/../b/x.png": "projects/b/x.png",
		"./projects\\a\\x.png":   "projects/a/x.png",
	}
	for in, want := range cases {
		got, err := sanitizeKey(in)
		if err != nil {
			t.Fatalf("sanitizeKey(%q) error: %v", in, err)
		}
		if got != want {
			t.Fatalf("sanitizeKey(%q) = %q, want %q", in, got, want)
		}
	}
	for _, bad := range []string{"", "  ", "..", "../etc/passwd", "a/../../x"} {
		if _, err := sanitizeKey(bad); err == nil {
			t.Fatalf("sanitizeKey(%q) expected error", bad)
		}
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir(), "http://localhost:8080/static/")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	layout := LayoutFor("projects/p1")

	key, err := store.Put(ctx, layout.ProductCutout(), []byte("png"), "image/png")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	data, err := store.Get(ctx, key)
	if err != nil || string(data) != "png" {
		t.Fatalf("Get = %q, %v", data, err)
	}

	src := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(src, []byte("mp4"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := store.PutFile(ctx, layout.SceneClip(1), src, "video/mp4"); err != nil {
		t.Fatalf("PutFile: %v", err)
	}
	finalKey, err := store.Put(ctx, layout.Final("9:16"), []byte("final"), "video/mp4")
	if err != nil {
		t.Fatalf("Put final: %v", err)
	}

	keys, err := store.List(ctx, layout.DraftPrefix())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"projects/p1/draft/product/extracted.png", "projects/p1/draft/scenes/scene_01.mp4"}
	if len(keys) != len(want) || keys[0] != want[0] || keys[1] != want[1] {
		t.Fatalf("List = %v, want %v", keys, want)
	}

	removed, err := DeletePrefix(ctx, store, layout.DraftPrefix())
	if err != nil || removed != 2 {
		t.Fatalf("DeletePrefix = %d, %v", removed, err)
	}
	if _, err := store.Get(ctx, key); !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound after delete, got %v", err)
	}
	if _, err := store.Get(ctx, finalKey); err != nil {
		t.Fatalf("final output must survive draft cleanup: %v", err)
	}

	if got := store.URL(finalKey); got != "http://localhost:8080/static/projects/p1/final/final_9_16.mp4" {
		t.Fatalf("URL = %q", got)
	}
}

func TestFileStoreListMissingPrefix(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "")
	if err != nil {
		t.Fatal(err)
	}
	keys, err := store.List(context.Background(), "projects/none")
	if err != nil || len(keys) != 0 {
		t.Fatalf("List = %v, %v", keys, err)
	}
}

func TestNewFileStoreRequiresPath(t *testing.T) {
	if _, err := NewFileStore(" ", ""); err == nil {
		t.Fatal("expected error for empty base path")
	}
}
