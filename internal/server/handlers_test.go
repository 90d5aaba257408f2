package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gocache "github.com/patrickmn/go-cache"
	openai "github.com/sashabaranov/go-openai"

	"github.com/factlens/factlens/config"
	"github.com/factlens/factlens/internal/collab"
	"github.com/factlens/factlens/internal/content"
	"github.com/factlens/factlens/internal/investigation"
	"github.com/factlens/factlens/internal/spans"
)

type fakeProvider struct {
	jsonByPrompt map[string]string // keyed by a substring of the system prompt
	script       []openai.ChatCompletionMessage
	chatIdx      int
}

func (f *fakeProvider) Generate(_ context.Context, _, _, _ string) (string, error) {
	return "assessment", nil
}

func (f *fakeProvider) GenerateJSON(_ context.Context, systemPrompt, _, _ string) (string, error) {
	for key, out := range f.jsonByPrompt {
		if strings.Contains(systemPrompt, key) {
			return out, nil
		}
	}
	return "", errors.New("no scripted response")
}

func (f *fakeProvider) ChatTools(_ context.Context, _ string, _ []openai.ChatCompletionMessage, _ []openai.Tool) (openai.ChatCompletionMessage, error) {
	if f.chatIdx >= len(f.script) {
		return openai.ChatCompletionMessage{}, errors.New("script exhausted")
	}
	msg := f.script[f.chatIdx]
	f.chatIdx++
	return msg, nil
}

func (f *fakeProvider) Transcribe(_ context.Context, _ string, _ []byte) (string, error) {
	return "", errors.New("not implemented")
}

func (f *fakeProvider) ModelFor(string) string { return "fake-model" }

type fakeSearcher struct{}

func (f *fakeSearcher) Search(_ context.Context, _ string) ([]collab.SearchResult, error) {
	return []collab.SearchResult{{Title: "Result", URL: "https://example.com", Snippet: "snippet"}}, nil
}

func newTestServer(p *fakeProvider) *Server {
	analyzer := spans.NewAnalyzer(p, &fakeSearcher{}, 0, nil)
	toolbox := investigation.NewToolbox(&fakeSearcher{}, analyzer, p)
	return &Server{
		cfg:        &config.Config{},
		extractor:  content.NewExtractor(nil, nil, nil, nil, time.Second),
		classifier: investigation.NewClassifier(p, nil),
		orch:       investigation.NewOrchestrator(p, toolbox, nil, 5*time.Second),
		analyzer:   analyzer,
		preview:    gocache.New(time.Minute, time.Minute),
	}
}

func doJSON(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echoContentType, "application/json")
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

const echoContentType = "Content-Type"

func TestInvestigateEmptyMessages(t *testing.T) {
	s := newTestServer(&fakeProvider{})
	rec := doJSON(t, s, http.MethodPost, "/api/investigate", `{"messages": []}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response not JSON: %v", err)
	}
	if body["error"] != "Messages array is required" {
		t.Errorf("error = %q", body["error"])
	}
}

func TestInvestigateLastMessageNotUser(t *testing.T) {
	s := newTestServer(&fakeProvider{})
	rec := doJSON(t, s, http.MethodPost, "/api/investigate",
		`{"messages": [{"role": "assistant", "content": "hello"}]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestInvestigateStreamsResult(t *testing.T) {
	p := &fakeProvider{
		jsonByPrompt: map[string]string{"routing classifier": `{"type": "claim-verification"}`},
		script: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleAssistant, Content: `{"truthfulnessScore": 85, "verdict": "true", "summary": "Accurate.", "reasoning": "Well documented.", "evidence": [], "sources": []}`},
		},
	}
	s := newTestServer(p)
	rec := doJSON(t, s, http.MethodPost, "/api/investigate",
		`{"messages": [{"role": "user", "content": "Water boils at 100C at sea level."}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get(echoContentType); !strings.Contains(ct, "text/event-stream") {
		t.Errorf("content type = %q, want SSE", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "event: result") {
		t.Errorf("stream missing result frame:\n%s", body)
	}
	if !strings.Contains(body, `"verdict":"true"`) {
		t.Errorf("result frame missing verdict:\n%s", body)
	}
}

func TestInvestigateOrchestrationErrorFrame(t *testing.T) {
	p := &fakeProvider{
		jsonByPrompt: map[string]string{"routing classifier": `{"type": "claim-verification"}`},
		script: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleAssistant, Content: "no json here, sorry"},
		},
	}
	s := newTestServer(p)
	rec := doJSON(t, s, http.MethodPost, "/api/investigate",
		`{"messages": [{"role": "user", "content": "Some claim to check."}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (stream errors arrive as frames)", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "event: error") {
		t.Errorf("stream missing terminal error frame:\n%s", rec.Body.String())
	}
}

func TestAnalyzeTextValidation(t *testing.T) {
	s := newTestServer(&fakeProvider{})
	rec := doJSON(t, s, http.MethodPost, "/api/analyze-text", `{"text": "   "}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAnalyzeTextReturnsSpans(t *testing.T) {
	p := &fakeProvider{jsonByPrompt: map[string]string{
		"text analyst": `{"spans": [{"start": 0, "end": 9, "type": "fact", "shortExplanation": "claim"}]}`,
	}}
	s := newTestServer(p)
	rec := doJSON(t, s, http.MethodPost, "/api/analyze-text", `{"text": "The earth is round and that is wonderful."}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp analyzeTextResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if len(resp.Spans) != 1 || resp.Spans[0].Type != spans.SpanFact {
		t.Errorf("spans = %+v", resp.Spans)
	}
}

func TestVerifyClaimValidation(t *testing.T) {
	s := newTestServer(&fakeProvider{})
	rec := doJSON(t, s, http.MethodPost, "/api/verify-claim", `{"claim": ""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestVerifyClaimReturnsVerdict(t *testing.T) {
	p := &fakeProvider{jsonByPrompt: map[string]string{
		"fact-checker": `{"verdict": "contradicted", "confidence": 0.9, "explanation": "wrong city", "evidence": [], "sources": [{"url": "https://example.com", "title": "Result"}]}`,
	}}
	s := newTestServer(p)
	rec := doJSON(t, s, http.MethodPost, "/api/verify-claim", `{"claim": "The Eiffel Tower is in Berlin."}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var v spans.ClaimVerification
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if v.Verdict != spans.ClaimContradicted {
		t.Errorf("verdict = %s", v.Verdict)
	}
	if len(v.Sources) == 0 {
		t.Error("expected at least one source")
	}
}

func TestPreviewRejectsNonSocialURL(t *testing.T) {
	s := newTestServer(&fakeProvider{})
	rec := doJSON(t, s, http.MethodPost, "/api/preview", `{"url": "https://example.com/article"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer(&fakeProvider{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("healthz = %d %q", rec.Code, rec.Body.String())
	}
}
