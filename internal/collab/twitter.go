package collab

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"

	"github.com/factlens/factlens/config"
)

// Tweet holds the fields of a scraped post that matter for analysis.
type Tweet struct {
	ID        string   `json:"id"`
	Text      string   `json:"text"`
	Author    string   `json:"author"`
	Handle    string   `json:"handle"`
	CreatedAt string   `json:"created_at"`
	Photos    []string `json:"photos,omitempty"`
	Likes     int      `json:"likes"`
	Retweets  int      `json:"retweets"`
}

// TweetScraper fetches a tweet by numeric id.
type TweetScraper interface {
	Scrape(ctx context.Context, tweetID string) (Tweet, error)
}

// SyndicationScraper reads tweets from the public syndication CDN, which needs
// no API key. The endpoint requires a token derived from the tweet id.
type SyndicationScraper struct {
	cfg    config.SocialConfig
	http   *HTTPClient
	logger *log.Logger
}

func NewSyndicationScraper(cfg config.SocialConfig, client *HTTPClient) *SyndicationScraper {
	return &SyndicationScraper{
		cfg:    cfg,
		http:   client,
		logger: log.New(log.Writer(), "[TWITTER] ", log.LstdFlags),
	}
}

func (s *SyndicationScraper) Scrape(ctx context.Context, tweetID string) (Tweet, error) {
	var resp struct {
		Text string `json:"text"`
		User struct {
			Name       string `json:"name"`
			ScreenName string `json:"screen_name"`
		} `json:"user"`
		CreatedAt     string `json:"created_at"`
		FavoriteCount int    `json:"favorite_count"`
		Photos        []struct {
			URL string `json:"url"`
		} `json:"photos"`
		ConversationCount int             `json:"conversation_count"`
		IDStr             string          `json:"id_str"`
		Tombstone         json.RawMessage `json:"tombstone,omitempty"`
	}
	url := fmt.Sprintf("%s?id=%s&lang=en&token=%s", s.cfg.TwitterEndpoint, tweetID, syndicationToken(tweetID))
	headers := map[string]string{"User-Agent": "Mozilla/5.0 (compatible; FactLens/1.0)"}
	if err := s.http.DoJSON(ctx, "GET", url, headers, nil, &resp); err != nil {
		return Tweet{}, fmt.Errorf("syndication fetch for tweet %s: %w", tweetID, err)
	}
	if resp.Tombstone != nil {
		return Tweet{}, fmt.Errorf("tweet %s is unavailable (deleted or restricted)", tweetID)
	}
	if strings.TrimSpace(resp.Text) == "" {
		return Tweet{}, fmt.Errorf("tweet %s returned no text", tweetID)
	}
	t := Tweet{
		ID:        tweetID,
		Text:      resp.Text,
		Author:    resp.User.Name,
		Handle:    resp.User.ScreenName,
		CreatedAt: resp.CreatedAt,
		Likes:     resp.FavoriteCount,
	}
	for _, p := range resp.Photos {
		t.Photos = append(t.Photos, p.URL)
	}
	return t, nil
}

// syndicationToken reproduces the id-derived token the CDN expects:
// (id / 1e15 * pi) rendered in base 36 with zeros and the radix point stripped.
func syndicationToken(tweetID string) string {
	id, err := strconv.ParseFloat(tweetID, 64)
	if err != nil {
		return ""
	}
	v := id / 1e15 * math.Pi
	intPart := uint64(v)
	frac := v - float64(intPart)
	token := strconv.FormatUint(intPart, 36)
	for i := 0; i < 11 && frac > 0; i++ {
		frac *= 36
		digit := int(frac)
		token += string("0123456789abcdefghijklmnopqrstuvwxyz"[digit])
		frac -= float64(digit)
	}
	return strings.ReplaceAll(token, "0", "")
}
