package content

import (
	"regexp"
	"strings"
)

var (
	tweetRe = regexp.MustCompile(`^https?://(?:www\.|mobile\.)?(?:twitter\.com|x\.com)/[A-Za-z0-9_]+/status(?:es)?/(\d+)`)
	// Matches canonical video pages and the shortened share domains. Short
	// links carry no numeric id; extraction resolves them by following the URL.
	tiktokRe      = regexp.MustCompile(`^https?://(?:www\.|m\.)?tiktok\.com/@[^/]+/video/(\d+)`)
	tiktokShortRe = regexp.MustCompile(`^https?://(?:vm|vt)\.tiktok\.com/[A-Za-z0-9]+`)
	urlRe         = regexp.MustCompile(`^https?://\S+$`)
)

// Normalize turns a raw submission into an ordered list of ContentItems.
// It is a pure transform: no I/O, no side effects. Returns a ValidationError
// when the submission carries no content source at all.
func Normalize(sub Submission) ([]ContentItem, error) {
	var items []ContentItem

	if s := strings.TrimSpace(sub.Content); s != "" {
		items = append(items, classify(s))
	}
	for _, entry := range sub.Contents {
		if s := strings.TrimSpace(entry); s != "" {
			items = append(items, classify(s))
		}
	}
	if img := firstNonEmpty(sub.ImageBase64, sub.Image); img != "" {
		items = append(items, ContentItem{Kind: KindImage, Raw: img})
	}

	if len(items) == 0 {
		return nil, &ValidationError{Message: "no content provided: expected text, sources, or an image"}
	}
	return items, nil
}

// classify derives the Kind of a single string from its shape.
func classify(s string) ContentItem {
	if m := tweetRe.FindStringSubmatch(s); m != nil {
		return ContentItem{Kind: KindTwitter, Raw: s, ResolvedURL: s, PlatformID: m[1]}
	}
	if m := tiktokRe.FindStringSubmatch(s); m != nil {
		return ContentItem{Kind: KindTikTok, Raw: s, ResolvedURL: s, PlatformID: m[1]}
	}
	if tiktokShortRe.MatchString(s) {
		return ContentItem{Kind: KindTikTok, Raw: s, ResolvedURL: s}
	}
	if urlRe.MatchString(s) {
		return ContentItem{Kind: KindURL, Raw: s, ResolvedURL: s}
	}
	return ContentItem{Kind: KindText, Raw: s}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
