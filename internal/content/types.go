package content

import "fmt"

// Kind classifies one unit of user-submitted input.
type Kind string

const (
	KindText    Kind = "text"
	KindURL     Kind = "url"
	KindTwitter Kind = "twitter"
	KindTikTok  Kind = "tiktok"
	KindImage   Kind = "image"
)

// ContentItem is one canonical unit of input. Kind is always derived from the
// raw value by pattern matching, never declared by the caller.
type ContentItem struct {
	Kind        Kind   `json:"kind"`
	Raw         string `json:"raw"`
	ResolvedURL string `json:"resolvedUrl,omitempty"`
	// PlatformID is the extracted tweet or video id for link kinds.
	PlatformID string `json:"platformId,omitempty"`
}

// ExtractionStatus is the outcome of resolving one ContentItem.
type ExtractionStatus string

const (
	StatusSuccess ExtractionStatus = "success"
	StatusFailure ExtractionStatus = "failure"
)

// ExtractionResult holds the extracted text or the failure reason for one
// item. Exactly one of Text/Error is populated.
type ExtractionResult struct {
	SourceItem ContentItem      `json:"sourceItem"`
	Status     ExtractionStatus `json:"status"`
	Text       string           `json:"text,omitempty"`
	Metadata   map[string]any   `json:"metadata,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// CombinedContent is the aggregate of all successful extractions for one request.
type CombinedContent struct {
	Text        string `json:"text"`
	SourceCount int    `json:"sourceCount"`
}

// Submission is the raw request payload before normalization. Exactly mirrors
// what the HTTP boundary accepts: a single content string, a list of mixed
// sources, or an inline image.
type Submission struct {
	Content     string   `json:"content,omitempty"`
	Contents    []string `json:"contents,omitempty"`
	ImageBase64 string   `json:"imageBase64,omitempty"`
	Image       string   `json:"image,omitempty"`
}

// ValidationError marks malformed or absent input. Surfaced as HTTP 400.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ExtractionError marks a single source that failed to resolve. It never
// aborts the batch.
type ExtractionError struct {
	Item ContentItem
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extracting %s source: %v", e.Item.Kind, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }
