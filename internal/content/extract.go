package content

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/factlens/factlens/internal/collab"
)

// Captioner describes an image in text. Backed by a vision-capable model.
type Captioner interface {
	Caption(ctx context.Context, imageBase64 string) (string, error)
}

// Extractor resolves ContentItems into text by delegating to the collaborator
// matching each item's kind.
type Extractor struct {
	tweets    collab.TweetScraper
	tiktok    collab.TikTokResolver
	pages     collab.PageFetcher
	captioner Captioner

	// timeout bounds each item individually so one slow source cannot stall
	// the rest of the batch.
	timeout time.Duration
	logger  *log.Logger
}

func NewExtractor(tweets collab.TweetScraper, tiktok collab.TikTokResolver, pages collab.PageFetcher, captioner Captioner, timeout time.Duration) *Extractor {
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	return &Extractor{
		tweets:    tweets,
		tiktok:    tiktok,
		pages:     pages,
		captioner: captioner,
		timeout:   timeout,
		logger:    log.New(log.Writer(), "[EXTRACT] ", log.LstdFlags),
	}
}

// Extract fans out over all items concurrently and returns exactly one result
// per item, in submission order. A failed item becomes a failure result and
// never aborts the batch.
func (e *Extractor) Extract(ctx context.Context, items []ContentItem) []ExtractionResult {
	results := make([]ExtractionResult, len(items))
	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(i int, item ContentItem) {
			defer wg.Done()
			itemCtx, cancel := context.WithTimeout(ctx, e.timeout)
			defer cancel()
			results[i] = e.extractOne(itemCtx, item)
		}(i, item)
	}
	wg.Wait()
	return results
}

func (e *Extractor) extractOne(ctx context.Context, item ContentItem) ExtractionResult {
	text, metadata, err := e.resolve(ctx, item)
	if err != nil {
		extErr := &ExtractionError{Item: item, Err: err}
		e.logger.Printf("%v", extErr)
		return ExtractionResult{SourceItem: item, Status: StatusFailure, Error: err.Error()}
	}
	if strings.TrimSpace(text) == "" {
		e.logger.Printf("empty extraction for %s source %q", item.Kind, item.Raw)
		return ExtractionResult{SourceItem: item, Status: StatusFailure, Error: "no text could be extracted from this source"}
	}
	return ExtractionResult{SourceItem: item, Status: StatusSuccess, Text: text, Metadata: metadata}
}

func (e *Extractor) resolve(ctx context.Context, item ContentItem) (string, map[string]any, error) {
	switch item.Kind {
	case KindText:
		return item.Raw, nil, nil

	case KindTwitter:
		if e.tweets == nil {
			return "", nil, fmt.Errorf("tweet scraping not configured")
		}
		tweet, err := e.tweets.Scrape(ctx, item.PlatformID)
		if err != nil {
			return "", nil, err
		}
		meta := map[string]any{
			"author":     tweet.Author,
			"handle":     tweet.Handle,
			"created_at": tweet.CreatedAt,
			"likes":      tweet.Likes,
			"retweets":   tweet.Retweets,
		}
		return tweet.Text, meta, nil

	case KindTikTok:
		if e.tiktok == nil {
			return "", nil, fmt.Errorf("tiktok resolution not configured")
		}
		video, err := e.tiktok.Resolve(ctx, item.ResolvedURL)
		if err != nil {
			return "", nil, err
		}
		meta := map[string]any{
			"author":   video.Author,
			"duration": video.Duration,
			"plays":    video.Plays,
		}
		if video.AudioURL != "" {
			meta["media_url"] = video.AudioURL
		}
		text := video.Description
		if video.Transcript != "" {
			text = video.Description + "\n\nTranscript: " + video.Transcript
		}
		return text, meta, nil

	case KindURL:
		if e.pages == nil {
			return "", nil, fmt.Errorf("page fetching not configured")
		}
		page, err := e.pages.Fetch(ctx, item.ResolvedURL)
		if err != nil {
			return "", nil, err
		}
		meta := map[string]any{"title": page.Title}
		if page.Byline != "" {
			meta["byline"] = page.Byline
		}
		if page.SiteName != "" {
			meta["site"] = page.SiteName
		}
		return page.Text, meta, nil

	case KindImage:
		if e.captioner == nil {
			return "", nil, fmt.Errorf("image captioning not configured")
		}
		caption, err := e.captioner.Caption(ctx, item.Raw)
		if err != nil {
			return "", nil, err
		}
		return caption, map[string]any{"origin": "image-caption"}, nil
	}
	return "", nil, fmt.Errorf("unsupported content kind %q", item.Kind)
}
