package server

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/factlens/factlens/internal/content"
)

type previewRequest struct {
	URL string `json:"url"`
}

type previewResponse struct {
	Type     content.Kind   `json:"type"`
	URL      string         `json:"url"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// previewURL resolves a single social link into its text, for the submission
// form's inline preview. Results are cached briefly so retyping or re-pasting
// the same link does not re-scrape.
func (s *Server) previewURL(c echo.Context) error {
	var req previewRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	url := strings.TrimSpace(req.URL)
	if url == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "URL is required")
	}

	if cached, ok := s.preview.Get(url); ok {
		return c.JSON(http.StatusOK, cached.(previewResponse))
	}

	items, err := content.Normalize(content.Submission{Content: url})
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	item := items[0]
	if item.Kind != content.KindTwitter && item.Kind != content.KindTikTok {
		return echo.NewHTTPError(http.StatusBadRequest, "only twitter and tiktok links can be previewed")
	}

	results := s.extractor.Extract(c.Request().Context(), items)
	r := results[0]
	if r.Status != content.StatusSuccess {
		return echo.NewHTTPError(http.StatusInternalServerError, r.Error)
	}

	resp := previewResponse{Type: item.Kind, URL: url, Content: r.Text, Metadata: r.Metadata}
	s.preview.SetDefault(url, resp)
	return c.JSON(http.StatusOK, resp)
}
