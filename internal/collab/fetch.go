package collab

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	readability "github.com/go-shiori/go-readability"

	"github.com/factlens/factlens/config"
)

// Page is the extracted text content of a web page.
type Page struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Byline   string `json:"byline,omitempty"`
	Excerpt  string `json:"excerpt,omitempty"`
	Text     string `json:"text"`
	SiteName string `json:"site_name,omitempty"`
}

// PageFetcher retrieves and extracts the readable text of a URL.
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) (Page, error)
}

// ReadabilityFetcher does a static HTTP fetch and runs readability over the
// HTML. When the static pass yields too little text and headless mode is
// enabled, it renders the page with chromedp and retries extraction.
type ReadabilityFetcher struct {
	cfg    config.FetchConfig
	http   *HTTPClient
	logger *log.Logger
}

func NewReadabilityFetcher(cfg config.FetchConfig) *ReadabilityFetcher {
	return &ReadabilityFetcher{
		cfg:    cfg,
		http:   NewHTTPClient(cfg.Timeout, 1, 0),
		logger: log.New(log.Writer(), "[FETCH] ", log.LstdFlags),
	}
}

// minUsefulChars is the threshold below which a static extraction is treated
// as a JS-rendered page worth a headless retry.
const minUsefulChars = 400

func (f *ReadabilityFetcher) Fetch(ctx context.Context, pageURL string) (Page, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return Page{}, fmt.Errorf("invalid page url %q", pageURL)
	}

	headers := map[string]string{
		"User-Agent": "Mozilla/5.0 (compatible; FactLens/1.0)",
		"Accept":     "text/html,application/xhtml+xml",
	}
	html, err := f.http.Get(ctx, pageURL, headers, 10<<20)
	if err != nil {
		return Page{}, fmt.Errorf("fetching %s: %w", pageURL, err)
	}

	page, extractErr := f.extract(html, parsed)
	if extractErr == nil && len(page.Text) >= minUsefulChars {
		return page, nil
	}

	if f.cfg.Headless {
		rendered, renderErr := f.renderHeadless(ctx, pageURL)
		if renderErr != nil {
			f.logger.Printf("headless render of %s failed: %v", pageURL, renderErr)
		} else if hp, err := f.extract(rendered, parsed); err == nil && len(hp.Text) > len(page.Text) {
			return hp, nil
		}
	}

	if extractErr != nil {
		return Page{}, fmt.Errorf("extracting %s: %w", pageURL, extractErr)
	}
	if strings.TrimSpace(page.Text) == "" {
		return Page{}, fmt.Errorf("no readable text at %s", pageURL)
	}
	return page, nil
}

func (f *ReadabilityFetcher) extract(html []byte, pageURL *url.URL) (Page, error) {
	article, err := readability.FromReader(bytes.NewReader(html), pageURL)
	if err != nil {
		return Page{}, err
	}
	text := strings.TrimSpace(article.TextContent)
	if f.cfg.MaxChars > 0 && len(text) > f.cfg.MaxChars {
		text = text[:f.cfg.MaxChars]
	}
	return Page{
		URL:      pageURL.String(),
		Title:    article.Title,
		Byline:   article.Byline,
		Excerpt:  article.Excerpt,
		Text:     text,
		SiteName: article.SiteName,
	}, nil
}

func (f *ReadabilityFetcher) renderHeadless(ctx context.Context, pageURL string) ([]byte, error) {
	timeout := f.cfg.Timeout
	if timeout == 0 {
		timeout = 20 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, chromedp.DefaultExecAllocatorOptions[:]...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body"),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return nil, err
	}
	return []byte(html), nil
}
