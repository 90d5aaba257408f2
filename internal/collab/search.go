package collab

import (
	"context"
	"fmt"
	"strings"

	"github.com/factlens/factlens/config"
)

// SearchResult is one hit returned by a web search provider.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Searcher is implemented by web search backends.
type Searcher interface {
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

// BraveClient searches via the Brave Search API.
type BraveClient struct {
	cfg  config.SearchConfig
	http *HTTPClient
}

func NewBraveClient(cfg config.SearchConfig, client *HTTPClient) *BraveClient {
	return &BraveClient{cfg: cfg, http: client}
}

func (b *BraveClient) Search(ctx context.Context, query string) ([]SearchResult, error) {
	var resp struct {
		Web struct {
			Results []struct{ Title, URL, Description string } `json:"results"`
		} `json:"web"`
	}
	headers := map[string]string{"X-Subscription-Token": b.cfg.BraveAPIKey}
	url := fmt.Sprintf("https://api.search.brave.com/res/v1/web/search?q=%s&count=%d", escapeQuery(query), max1(b.cfg.MaxResults, 10))
	if err := b.http.DoJSON(ctx, "GET", url, headers, nil, &resp); err != nil {
		return nil, err
	}
	out := make([]SearchResult, 0, len(resp.Web.Results))
	for _, r := range resp.Web.Results {
		out = append(out, SearchResult{Title: r.Title, URL: r.URL, Snippet: r.Description})
	}
	return out, nil
}

// SerperClient searches via serper.dev.
type SerperClient struct {
	cfg  config.SearchConfig
	http *HTTPClient
}

func NewSerperClient(cfg config.SearchConfig, client *HTTPClient) *SerperClient {
	return &SerperClient{cfg: cfg, http: client}
}

func (s *SerperClient) Search(ctx context.Context, query string) ([]SearchResult, error) {
	var resp struct {
		Organic []struct{ Title, Link, Snippet string } `json:"organic"`
	}
	headers := map[string]string{"X-API-KEY": s.cfg.SerperAPIKey}
	body := map[string]any{"q": query, "num": max1(s.cfg.MaxResults, 10)}
	if err := s.http.DoJSON(ctx, "POST", "https://google.serper.dev/search", headers, body, &resp); err != nil {
		return nil, err
	}
	out := make([]SearchResult, 0, len(resp.Organic))
	for _, r := range resp.Organic {
		out = append(out, SearchResult{Title: r.Title, URL: r.Link, Snippet: r.Snippet})
	}
	return out, nil
}

// FallbackSearcher tries each configured backend in order until one returns results.
type FallbackSearcher struct {
	backends []Searcher
}

// NewSearcher builds a Searcher from config, preferring Brave then Serper.
func NewSearcher(cfg config.SearchConfig) (Searcher, error) {
	client := NewHTTPClient(cfg.Timeout, 2, 0)
	var backends []Searcher
	if cfg.BraveAPIKey != "" {
		backends = append(backends, NewBraveClient(cfg, client))
	}
	if cfg.SerperAPIKey != "" {
		backends = append(backends, NewSerperClient(cfg, client))
	}
	if len(backends) == 0 {
		return nil, fmt.Errorf("no search provider configured (brave or serper key required)")
	}
	return &FallbackSearcher{backends: backends}, nil
}

func (f *FallbackSearcher) Search(ctx context.Context, query string) ([]SearchResult, error) {
	var lastErr error
	for _, b := range f.backends {
		results, err := b.Search(ctx, query)
		if err != nil {
			lastErr = err
			continue
		}
		if len(results) > 0 {
			return results, nil
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, nil
}

func escapeQuery(q string) string { return strings.ReplaceAll(strings.TrimSpace(q), " ", "+") }

func max1(a, def int) int {
	if a > 0 {
		return a
	}
	return def
}
