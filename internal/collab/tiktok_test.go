package collab

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/factlens/factlens/config"
)

func TestFlexIntCoercion(t *testing.T) {
	var payload struct {
		A flexInt `json:"a"`
		B flexInt `json:"b"`
		C flexInt `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a": 42, "b": "1500", "c": null}`), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload.A != 42 || payload.B != 1500 || payload.C != 0 {
		t.Errorf("got a=%d b=%d c=%d", payload.A, payload.B, payload.C)
	}
}

func TestTikwmResolveWithoutTranscriber(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code": 0, "msg": "success", "data": {
			"id": "7300000000000000000",
			"title": "a video about something",
			"music": "https://cdn.example.com/audio.mp3",
			"duration": "37",
			"play_count": 120000,
			"author": {"nickname": "creator"}
		}}`))
	}))
	defer srv.Close()

	cfg := config.SocialConfig{TikTokEndpoint: srv.URL}
	r := NewTikwmResolver(cfg, NewHTTPClient(time.Second, 0, 0), nil)
	video, err := r.Resolve(context.Background(), "https://www.tiktok.com/@creator/video/7300000000000000000")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if video.Description != "a video about something" || video.Author != "creator" {
		t.Errorf("video = %+v", video)
	}
	if video.Duration != 37 || video.Plays != 120000 {
		t.Errorf("numeric coercion failed: duration=%d plays=%d", video.Duration, video.Plays)
	}
	// No transcriber configured: the description still comes through.
	if video.Transcript != "" {
		t.Errorf("transcript = %q, want empty", video.Transcript)
	}
}

func TestTikwmResolveNoTextNamesTranscriptionGap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code": 0, "msg": "success", "data": {
			"id": "7300000000000000001",
			"title": "",
			"music": "https://cdn.example.com/audio.mp3",
			"duration": 12,
			"play_count": 50,
			"author": {"nickname": "creator"}
		}}`))
	}))
	defer srv.Close()

	r := NewTikwmResolver(config.SocialConfig{TikTokEndpoint: srv.URL}, NewHTTPClient(time.Second, 0, 0), nil)
	_, err := r.Resolve(context.Background(), "https://www.tiktok.com/@creator/video/7300000000000000001")
	if err == nil {
		t.Fatal("expected error for a video with no description and no transcriber")
	}
	if !strings.Contains(err.Error(), "transcription not configured") {
		t.Errorf("err = %v, want the transcription gap named", err)
	}
}

func TestTikwmResolveAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code": -1, "msg": "video not found"}`))
	}))
	defer srv.Close()

	r := NewTikwmResolver(config.SocialConfig{TikTokEndpoint: srv.URL}, NewHTTPClient(time.Second, 0, 0), nil)
	if _, err := r.Resolve(context.Background(), "https://vm.tiktok.com/dead"); err == nil {
		t.Fatal("expected error for API failure code")
	}
}
