package content

import (
	"fmt"
	"strings"
)

// Combine merges the successful results into one investigation payload. Each
// contributing source becomes a labeled block so provenance survives
// concatenation. Pure function: Text is empty iff nothing succeeded.
func Combine(results []ExtractionResult) CombinedContent {
	var blocks []string
	count := 0
	for _, r := range results {
		if r.Status != StatusSuccess {
			continue
		}
		count++
		blocks = append(blocks, fmt.Sprintf("[Source %d: %s]\n%s", count, sourceLabel(r.SourceItem), r.Text))
	}
	return CombinedContent{
		Text:        strings.Join(blocks, "\n\n"),
		SourceCount: count,
	}
}

func sourceLabel(item ContentItem) string {
	switch item.Kind {
	case KindTwitter:
		return "tweet " + item.PlatformID
	case KindTikTok:
		if item.PlatformID != "" {
			return "tiktok video " + item.PlatformID
		}
		return "tiktok video"
	case KindURL:
		return item.ResolvedURL
	case KindImage:
		return "image"
	default:
		return "text"
	}
}
