package audio

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"genads/internal/providers/replicate"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func TestBuildPrompt(t *testing.T) {
	got := BuildPrompt("Uplifting", "", 12)
	want := "Background music for product video advertisement. Mood: bright, positive, inspiring, motivational. moderate tempo, around 100 BPM. Duration: 12 seconds. Instrumental music, no vocals. Professional quality, suitable for commercial use."
	if got != want {
		t.Fatalf("BuildPrompt = %q\nwant %q", got, want)
	}
	if got := BuildPrompt("unknown", "fast", 5); !strings.Contains(got, "bright, positive") || !strings.Contains(got, "140 BPM") {
		t.Fatalf("unknown mood should fall back to uplifting: %q", got)
	}
}

func TestTempoFor(t *testing.T) {
	cases := map[string]string{"energetic": "fast", "calm": "slow", "corporate": "moderate", "": "moderate"}
	for mood, want := range cases {
		if got := TempoFor(mood); got != want {
			t.Fatalf("TempoFor(%q) = %q, want %q", mood, got, want)
		}
	}
}

func TestTrackSecondsCapped(t *testing.T) {
	if got := TrackSeconds(12); got != 12 {
		t.Fatalf("TrackSeconds(12) = %d", got)
	}
	if got := TrackSeconds(120); got != MaxTrackSeconds {
		t.Fatalf("TrackSeconds(120) = %d, want %d", got, MaxTrackSeconds)
	}
}

func TestMusicGenGenerate(t *testing.T) {
	var input map[string]any
	var path string
	mp3 := string([]byte{'I', 'D', '3', 0x03, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00})
	transport := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.Method == http.MethodPost {
			path = req.URL.Path
			var body struct {
				Version string         `json:"version"`
				Input   map[string]any `json:"input"`
			}
			_ = json.NewDecoder(req.Body).Decode(&body)
			input = body.Input
			return &http.Response{StatusCode: http.StatusCreated, Body: io.NopCloser(strings.NewReader(`{"id":"m1","status":"succeeded","output":"https://cdn.test/music.mp3"}`))}, nil
		}
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(mp3))}, nil
	})
	client := replicate.NewClient(replicate.Options{Token: "t", BaseURL: "https://replicate.test/v1", HTTPClient: &http.Client{Transport: transport}})
	engine, err := NewMusicGen(MusicGenOptions{Client: client})
	if err != nil {
		t.Fatalf("NewMusicGen: %v", err)
	}

	track, err := engine.Generate(context.Background(), Request{Mood: "calm", DurationSeconds: 45})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if path != "/v1/predictions" {
		t.Fatalf("pinned version should post to /predictions, got %q", path)
	}
	if input["duration"] != float64(MaxTrackSeconds) || input["model_version"] != "stereo-large" || input["output_format"] != "mp3" {
		t.Fatalf("unexpected input %v", input)
	}
	if track.DurationSeconds != MaxTrackSeconds || track.ContentType != "audio/mpeg" {
		t.Fatalf("track = %+v", track)
	}
}
