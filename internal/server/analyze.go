package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/factlens/factlens/internal/spans"
	"github.com/factlens/factlens/internal/store"
)

type analyzeTextRequest struct {
	Text string `json:"text"`
}

type analyzeTextResponse struct {
	Text  string       `json:"text"`
	Spans []spans.Span `json:"spans"`
}

func (s *Server) analyzeText(c echo.Context) error {
	var req analyzeTextRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Text) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Text is required")
	}

	analyzed, err := s.analyzer.Analyze(c.Request().Context(), req.Text)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if analyzed == nil {
		analyzed = []spans.Span{}
	}

	s.persistAnalysis(c, req.Text, analyzed)
	return c.JSON(http.StatusOK, analyzeTextResponse{Text: req.Text, Spans: analyzed})
}

func (s *Server) persistAnalysis(c echo.Context, text string, analyzed []spans.Span) {
	if s.store == nil {
		return
	}
	userID := s.optionalUserID(c)
	if userID == "" {
		return
	}
	spansJSON, err := json.Marshal(analyzed)
	if err != nil {
		return
	}
	rec := store.Record{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      "analysis",
		Input:     text,
		Spans:     spansJSON,
		CreatedAt: time.Now(),
	}
	if err := s.store.SaveRecord(c.Request().Context(), rec); err != nil {
		s.logger.Printf("persisting analysis: %v", err)
		return
	}
	if s.index != nil {
		if err := s.index.Add(rec); err != nil {
			s.logger.Printf("indexing analysis: %v", err)
		}
	}
}

type verifyClaimRequest struct {
	Claim   string `json:"claim"`
	Context string `json:"context,omitempty"`
}

func (s *Server) verifyClaim(c echo.Context) error {
	var req verifyClaimRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Claim) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Claim is required")
	}

	ctx := c.Request().Context()
	if s.verifyCache != nil {
		if v, ok := s.verifyCache.Get(ctx, req.Claim, req.Context); ok {
			return c.JSON(http.StatusOK, v)
		}
	}

	v, err := s.analyzer.VerifyClaim(ctx, req.Claim, req.Context)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if s.verifyCache != nil {
		s.verifyCache.Put(ctx, req.Claim, req.Context, v)
	}
	return c.JSON(http.StatusOK, v)
}
