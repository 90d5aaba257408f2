package spans

import (
	"context"
	"errors"
	"testing"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"

	"github.com/factlens/factlens/internal/collab"
)

type fakeProvider struct {
	jsonOut string
	jsonErr error
	gotText string
}

func (f *fakeProvider) Generate(_ context.Context, _, _, _ string) (string, error) {
	return f.jsonOut, f.jsonErr
}

func (f *fakeProvider) GenerateJSON(_ context.Context, _, user, _ string) (string, error) {
	f.gotText = user
	return f.jsonOut, f.jsonErr
}

func (f *fakeProvider) ChatTools(_ context.Context, _ string, _ []openai.ChatCompletionMessage, _ []openai.Tool) (openai.ChatCompletionMessage, error) {
	return openai.ChatCompletionMessage{}, errors.New("not implemented")
}

func (f *fakeProvider) Transcribe(_ context.Context, _ string, _ []byte) (string, error) {
	return "", errors.New("not implemented")
}

func (f *fakeProvider) ModelFor(string) string { return "fake-model" }

type fakeSearcher struct {
	results []collab.SearchResult
	err     error
}

func (f *fakeSearcher) Search(_ context.Context, _ string) ([]collab.SearchResult, error) {
	return f.results, f.err
}

func TestAnalyzeDiscardsInvalidSpans(t *testing.T) {
	text := "The earth orbits the sun. This is obviously outrageous propaganda."
	// One valid span, one out of range, one inverted, one past the end.
	p := &fakeProvider{jsonOut: `{"spans": [
		{"start": 0, "end": 25, "type": "fact", "shortExplanation": "checkable claim"},
		{"start": -3, "end": 10, "type": "bias", "shortExplanation": "negative start"},
		{"start": 30, "end": 20, "type": "bias", "shortExplanation": "inverted"},
		{"start": 26, "end": 5000, "type": "sentiment", "shortExplanation": "past end"}
	]}`}
	a := NewAnalyzer(p, &fakeSearcher{}, 0, nil)

	spans, err := a.Analyze(context.Background(), text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(spans) != 1 {
		t.Fatalf("expected only the valid span to survive, got %d: %+v", len(spans), spans)
	}
	s := spans[0]
	if s.Start != 0 || s.End != 25 || s.Type != SpanFact {
		t.Errorf("surviving span = %+v", s)
	}
	if text[s.Start:s.End] != "The earth orbits the sun." {
		t.Errorf("span does not slice the original text: %q", text[s.Start:s.End])
	}
}

func TestAnalyzeUnknownSpanTypeDiscarded(t *testing.T) {
	p := &fakeProvider{jsonOut: `{"spans": [{"start": 0, "end": 4, "type": "vibe", "shortExplanation": "x"}]}`}
	a := NewAnalyzer(p, &fakeSearcher{}, 0, nil)
	spans, err := a.Analyze(context.Background(), "some text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(spans) != 0 {
		t.Errorf("unknown type should be discarded, got %+v", spans)
	}
}

func TestAnalyzeTruncatesLongText(t *testing.T) {
	long := make([]byte, 100)
	for i := range long {
		long[i] = 'a'
	}
	// Span valid for the truncated text, invalid beyond it.
	p := &fakeProvider{jsonOut: `{"spans": [
		{"start": 0, "end": 10, "type": "fact", "shortExplanation": "in range"},
		{"start": 40, "end": 60, "type": "fact", "shortExplanation": "past truncation"}
	]}`}
	a := NewAnalyzer(p, &fakeSearcher{}, 50, nil)
	spans, err := a.Analyze(context.Background(), string(long))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(spans) != 1 || spans[0].End != 10 {
		t.Errorf("spans = %+v, want only the in-range span", spans)
	}
}

func TestAnalyzeTruncatesAtRuneBoundary(t *testing.T) {
	p := &fakeProvider{jsonOut: `{"spans": []}`}
	// maxChars 4 falls inside the 3-byte euro sign.
	a := NewAnalyzer(p, &fakeSearcher{}, 4, nil)
	if _, err := a.Analyze(context.Background(), "ab€cd"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.gotText != "ab" {
		t.Errorf("analyzed text = %q, want the cut backed off to a rune boundary", p.gotText)
	}
	if !utf8.ValidString(p.gotText) {
		t.Errorf("analyzed text is not valid UTF-8: %q", p.gotText)
	}
}

func TestAnalyzeEmptyText(t *testing.T) {
	a := NewAnalyzer(&fakeProvider{}, &fakeSearcher{}, 0, nil)
	if _, err := a.Analyze(context.Background(), "   "); err == nil {
		t.Error("expected error for blank text")
	}
}

func TestVerifyClaimContradicted(t *testing.T) {
	p := &fakeProvider{jsonOut: `{
		"verdict": "contradicted",
		"confidence": 0.95,
		"explanation": "The Eiffel Tower is in Paris, not Berlin.",
		"evidence": [{"quote": "The Eiffel Tower is a landmark in Paris.", "sourceTitle": "Encyclopedia"}],
		"sources": [{"url": "https://example.com/eiffel", "title": "Eiffel Tower"}]
	}`}
	a := NewAnalyzer(p, &fakeSearcher{results: []collab.SearchResult{{Title: "Eiffel Tower", URL: "https://example.com/eiffel", Snippet: "landmark in Paris"}}}, 0, nil)

	v, err := a.VerifyClaim(context.Background(), "The Eiffel Tower is in Berlin.", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Verdict != ClaimContradicted {
		t.Errorf("verdict = %s, want contradicted", v.Verdict)
	}
	if len(v.Sources) == 0 {
		t.Error("expected at least one source")
	}
}

func TestVerifyClaimBackfillsSources(t *testing.T) {
	p := &fakeProvider{jsonOut: `{"verdict": "supported", "confidence": 0.7, "explanation": "ok", "evidence": [], "sources": []}`}
	a := NewAnalyzer(p, &fakeSearcher{results: []collab.SearchResult{{Title: "A", URL: "https://a.example"}, {Title: "B", URL: "https://b.example"}}}, 0, nil)
	v, err := a.VerifyClaim(context.Background(), "water is wet", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(v.Sources) != 2 {
		t.Errorf("sources = %d, want backfill from search results", len(v.Sources))
	}
}

func TestVerifyClaimUnknownVerdict(t *testing.T) {
	p := &fakeProvider{jsonOut: `{"verdict": "dubious", "confidence": 2.5, "explanation": "?"}`}
	a := NewAnalyzer(p, &fakeSearcher{}, 0, nil)
	v, err := a.VerifyClaim(context.Background(), "some claim", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Verdict != ClaimUnverifiable {
		t.Errorf("verdict = %s, want downgrade to unverifiable", v.Verdict)
	}
	if v.Confidence != 1 {
		t.Errorf("confidence = %v, want clamped to 1", v.Confidence)
	}
}

func TestVerifyClaimSearchError(t *testing.T) {
	a := NewAnalyzer(&fakeProvider{}, &fakeSearcher{err: errors.New("backend down")}, 0, nil)
	if _, err := a.VerifyClaim(context.Background(), "anything", ""); err == nil {
		t.Error("expected error when evidence search fails")
	}
}
