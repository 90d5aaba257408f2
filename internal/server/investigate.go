package server

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	openai "github.com/sashabaranov/go-openai"

	"github.com/factlens/factlens/internal/content"
	"github.com/factlens/factlens/internal/investigation"
	"github.com/factlens/factlens/internal/store"
)

// Message is one turn of the conversation the client sends.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type investigateRequest struct {
	Messages []Message `json:"messages"`
	Model    string    `json:"model,omitempty"`
}

var embeddedURLRe = regexp.MustCompile(`https?://\S+`)

// submissionFromMessage splits embedded links out of the message text so each
// link becomes its own content item while the prose remains a text item.
func submissionFromMessage(text string) content.Submission {
	urls := embeddedURLRe.FindAllString(text, -1)
	remainder := strings.TrimSpace(embeddedURLRe.ReplaceAllString(text, ""))
	return content.Submission{Content: remainder, Contents: urls}
}

func (s *Server) investigate(c echo.Context) error {
	var req investigateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(req.Messages) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Messages array is required")
	}
	last := req.Messages[len(req.Messages)-1]
	if last.Role != "user" {
		return echo.NewHTTPError(http.StatusBadRequest, "Last message must be from the user")
	}

	ctx := c.Request().Context()

	items, err := content.Normalize(submissionFromMessage(last.Content))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	results := s.extractor.Extract(ctx, items)
	if s.telemetry != nil {
		for _, r := range results {
			if r.Status == content.StatusFailure {
				s.telemetry.ExtractionFailures.WithLabelValues(string(r.SourceItem.Kind)).Inc()
			}
		}
	}
	combined := content.Combine(results)
	if combined.SourceCount == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "could not extract content from any provided source")
	}

	investigationType := s.classifier.Classify(ctx, combined, req.Model)

	prior := make([]openai.ChatCompletionMessage, 0, len(req.Messages)-1)
	for _, m := range req.Messages[:len(req.Messages)-1] {
		role := openai.ChatMessageRoleUser
		if m.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		prior = append(prior, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)
	flusher, ok := resp.Writer.(http.Flusher)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "streaming unsupported")
	}

	writeFrame := func(event string, payload any) bool {
		data, err := json.Marshal(payload)
		if err != nil {
			return false
		}
		if _, err := resp.Write([]byte("event: " + event + "\n")); err != nil {
			return false
		}
		if _, err := resp.Write([]byte("data: " + string(data) + "\n\n")); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	for ev := range s.orch.Stream(ctx, investigationType, combined, prior, req.Model) {
		switch ev.Type {
		case investigation.EventAction:
			if !writeFrame("action", ev.Action) {
				return nil
			}
		case investigation.EventResult:
			s.persistInvestigation(c, last.Content, ev.Result)
			if !writeFrame("result", ev.Result) {
				return nil
			}
		case investigation.EventError:
			// The stream is already open, so errors become a terminal frame.
			if !writeFrame("error", map[string]string{"error": ev.Error}) {
				return nil
			}
		}
	}
	return nil
}

// persistInvestigation saves a finished investigation for the requesting user.
// Unauthenticated and storeless requests are simply not recorded.
func (s *Server) persistInvestigation(c echo.Context, input string, result *investigation.Result) {
	if s.store == nil || result == nil {
		return
	}
	userID := s.optionalUserID(c)
	if userID == "" {
		return
	}
	rec := store.Record{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      "investigation",
		Input:     input,
		Result:    result,
		CreatedAt: time.Now(),
	}
	if err := s.store.SaveRecord(c.Request().Context(), rec); err != nil {
		s.logger.Printf("persisting investigation: %v", err)
		return
	}
	if s.index != nil {
		if err := s.index.Add(rec); err != nil {
			s.logger.Printf("indexing investigation: %v", err)
		}
	}
}

// optionalUserID resolves the user from a token when one is present. The
// investigate endpoints work without authentication; a valid token only adds
// history persistence.
func (s *Server) optionalUserID(c echo.Context) string {
	tok := extractToken(c)
	if tok == "" || s.cfg.General.JWTSecret == "" {
		return ""
	}
	parsed, err := jwt.Parse(tok, func(t *jwt.Token) (interface{}, error) { return []byte(s.cfg.General.JWTSecret), nil })
	if err != nil || !parsed.Valid {
		return ""
	}
	if claims, ok := parsed.Claims.(jwt.MapClaims); ok {
		if sub, ok := claims["sub"].(string); ok {
			return sub
		}
	}
	return ""
}
