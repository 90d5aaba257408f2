package content

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/factlens/factlens/internal/collab"
)

type fakeTweetScraper struct {
	tweets map[string]collab.Tweet
}

func (f *fakeTweetScraper) Scrape(_ context.Context, id string) (collab.Tweet, error) {
	if t, ok := f.tweets[id]; ok {
		return t, nil
	}
	return collab.Tweet{}, errors.New("tweet not found")
}

type fakeTikTokResolver struct {
	err error
}

func (f *fakeTikTokResolver) Resolve(_ context.Context, _ string) (collab.TikTokVideo, error) {
	if f.err != nil {
		return collab.TikTokVideo{}, f.err
	}
	return collab.TikTokVideo{ID: "v1", Description: "a video", Author: "creator"}, nil
}

type fakePageFetcher struct {
	delay time.Duration
}

func (f *fakePageFetcher) Fetch(ctx context.Context, u string) (collab.Page, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return collab.Page{}, ctx.Err()
		}
	}
	return collab.Page{URL: u, Title: "Article", Text: "article body text"}, nil
}

func TestExtractMixedBatch(t *testing.T) {
	ex := NewExtractor(
		&fakeTweetScraper{tweets: map[string]collab.Tweet{"1": {ID: "1", Text: "tweet body", Author: "NASA", Handle: "nasa", Likes: 10}}},
		&fakeTikTokResolver{err: errors.New("upstream unreachable")},
		&fakePageFetcher{},
		nil,
		time.Second,
	)
	items := []ContentItem{
		{Kind: KindTwitter, Raw: "https://x.com/nasa/status/1", PlatformID: "1"},
		{Kind: KindTikTok, Raw: "https://vm.tiktok.com/dead", ResolvedURL: "https://vm.tiktok.com/dead"},
		{Kind: KindText, Raw: "plain text input"},
	}
	results := ex.Extract(context.Background(), items)
	if len(results) != len(items) {
		t.Fatalf("expected %d results, got %d", len(items), len(results))
	}
	if results[0].Status != StatusSuccess || results[0].Text != "tweet body" {
		t.Errorf("tweet result = %+v, want success", results[0])
	}
	if results[0].Metadata["handle"] != "nasa" {
		t.Errorf("tweet metadata missing handle: %+v", results[0].Metadata)
	}
	if results[1].Status != StatusFailure || results[1].Error == "" {
		t.Errorf("tiktok result = %+v, want failure with reason", results[1])
	}
	if results[1].Text != "" {
		t.Error("failure result must not carry text")
	}
	if results[2].Status != StatusSuccess || results[2].Text != "plain text input" {
		t.Errorf("text result = %+v, want identity passthrough", results[2])
	}
}

func TestExtractPerItemTimeout(t *testing.T) {
	ex := NewExtractor(nil, nil, &fakePageFetcher{delay: 500 * time.Millisecond}, nil, 50*time.Millisecond)
	items := []ContentItem{
		{Kind: KindURL, Raw: "https://slow.example.com", ResolvedURL: "https://slow.example.com"},
		{Kind: KindText, Raw: "fast text"},
	}
	start := time.Now()
	results := ex.Extract(context.Background(), items)
	if elapsed := time.Since(start); elapsed > 400*time.Millisecond {
		t.Errorf("batch took %s, slow item did not time out", elapsed)
	}
	if results[0].Status != StatusFailure {
		t.Errorf("slow fetch should fail on timeout, got %+v", results[0])
	}
	if results[1].Status != StatusSuccess {
		t.Errorf("fast item should be unaffected, got %+v", results[1])
	}
}

func TestExtractUnconfiguredCollaborator(t *testing.T) {
	ex := NewExtractor(nil, nil, nil, nil, time.Second)
	results := ex.Extract(context.Background(), []ContentItem{
		{Kind: KindTikTok, Raw: "https://vm.tiktok.com/x", ResolvedURL: "https://vm.tiktok.com/x"},
	})
	if results[0].Status != StatusFailure {
		t.Fatalf("expected failure, got %+v", results[0])
	}
	if !strings.Contains(results[0].Error, "not configured") {
		t.Errorf("error = %q, want a 'not configured' reason", results[0].Error)
	}
}
