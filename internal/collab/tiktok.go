package collab

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"

	"github.com/factlens/factlens/config"
)

// TikTokVideo is the resolved metadata for a TikTok post.
type TikTokVideo struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Author      string `json:"author"`
	AudioURL    string `json:"audio_url,omitempty"`
	Duration    int    `json:"duration"`
	Plays       int64  `json:"plays"`
	Transcript  string `json:"transcript,omitempty"`
}

// TikTokResolver resolves a TikTok URL into video metadata, optionally with a
// speech transcript of the audio track.
type TikTokResolver interface {
	Resolve(ctx context.Context, videoURL string) (TikTokVideo, error)
}

// Transcriber converts downloaded audio to text. Satisfied by llm.Provider.
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, audio []byte) (string, error)
}

// TikwmResolver uses the public tikwm.com API, which returns video metadata
// and a direct audio URL without authentication.
type TikwmResolver struct {
	cfg         config.SocialConfig
	http        *HTTPClient
	transcriber Transcriber
	logger      *log.Logger
}

func NewTikwmResolver(cfg config.SocialConfig, client *HTTPClient, transcriber Transcriber) *TikwmResolver {
	return &TikwmResolver{
		cfg:         cfg,
		http:        client,
		transcriber: transcriber,
		logger:      log.New(log.Writer(), "[TIKTOK] ", log.LstdFlags),
	}
}

// flexInt tolerates APIs that switch between numeric and string encodings.
type flexInt int64

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexInt(v)
	return nil
}

func (r *TikwmResolver) Resolve(ctx context.Context, videoURL string) (TikTokVideo, error) {
	var resp struct {
		Code int             `json:"code"`
		Msg  string          `json:"msg"`
		Data json.RawMessage `json:"data"`
	}
	endpoint := r.cfg.TikTokEndpoint + "?url=" + url.QueryEscape(videoURL)
	if err := r.http.DoJSON(ctx, "GET", endpoint, nil, nil, &resp); err != nil {
		return TikTokVideo{}, fmt.Errorf("tikwm fetch: %w", err)
	}
	if resp.Code != 0 {
		return TikTokVideo{}, fmt.Errorf("tikwm error: %s", resp.Msg)
	}

	var data struct {
		ID       string  `json:"id"`
		Title    string  `json:"title"`
		Music    string  `json:"music"`
		Duration flexInt `json:"duration"`
		PlayCnt  flexInt `json:"play_count"`
		Author   struct {
			Nickname string `json:"nickname"`
		} `json:"author"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return TikTokVideo{}, fmt.Errorf("tikwm payload: %w", err)
	}

	video := TikTokVideo{
		ID:          data.ID,
		Description: strings.TrimSpace(data.Title),
		Author:      data.Author.Nickname,
		AudioURL:    data.Music,
		Duration:    int(data.Duration),
		Plays:       int64(data.PlayCnt),
	}

	transcript, terr := r.transcribe(ctx, video)
	if terr != nil {
		// A missing transcript still leaves the description usable.
		r.logger.Printf("transcription skipped for %s: %v", video.ID, terr)
	} else {
		video.Transcript = transcript
	}
	if video.Description == "" && video.Transcript == "" {
		if terr != nil {
			return TikTokVideo{}, fmt.Errorf("video has no description and transcript unavailable: %w", terr)
		}
		return TikTokVideo{}, fmt.Errorf("video has no description or transcript")
	}
	return video, nil
}

func (r *TikwmResolver) transcribe(ctx context.Context, video TikTokVideo) (string, error) {
	if r.transcriber == nil {
		return "", fmt.Errorf("transcription not configured")
	}
	if video.AudioURL == "" {
		return "", fmt.Errorf("no audio track")
	}
	audio, err := r.http.Get(ctx, video.AudioURL, nil, 25<<20)
	if err != nil {
		return "", fmt.Errorf("audio download: %w", err)
	}
	text, err := r.transcriber.Transcribe(ctx, video.ID+".mp3", audio)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
