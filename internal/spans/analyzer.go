package spans

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/factlens/factlens/internal/collab"
	"github.com/factlens/factlens/internal/llm"
	"github.com/factlens/factlens/internal/telemetry"
)

// SpanType is the judgment category attached to a character range.
type SpanType string

const (
	SpanFact      SpanType = "fact"
	SpanBias      SpanType = "bias"
	SpanSentiment SpanType = "sentiment"
)

// Span is one tagged character range in analyzed text. Offsets index into the
// exact text the analyzer received.
type Span struct {
	Start            int      `json:"start"`
	End              int      `json:"end"`
	Type             SpanType `json:"type"`
	ShortExplanation string   `json:"shortExplanation"`
}

// ClaimVerdict is the outcome of verifying one claim against web evidence.
type ClaimVerdict string

const (
	ClaimSupported    ClaimVerdict = "supported"
	ClaimContradicted ClaimVerdict = "contradicted"
	ClaimMixed        ClaimVerdict = "mixed"
	ClaimUnverifiable ClaimVerdict = "unverifiable"
)

// EvidenceQuote is one supporting or contradicting quote with its origin.
type EvidenceQuote struct {
	Quote       string `json:"quote"`
	SourceTitle string `json:"sourceTitle"`
}

// VerifiedSource is one consulted source.
type VerifiedSource struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// ClaimVerification is the full result of the claim-verification contract.
type ClaimVerification struct {
	Verdict     ClaimVerdict     `json:"verdict"`
	Confidence  float64          `json:"confidence"`
	Explanation string           `json:"explanation"`
	Evidence    []EvidenceQuote  `json:"evidence"`
	Sources     []VerifiedSource `json:"sources"`
}

// Analyzer extracts fact/bias/sentiment spans from text and verifies
// individual claims. It is independent of the agent loop.
type Analyzer struct {
	provider  llm.Provider
	searcher  collab.Searcher
	maxChars  int
	telemetry *telemetry.Telemetry
	logger    *log.Logger
}

func NewAnalyzer(provider llm.Provider, searcher collab.Searcher, maxChars int, tel *telemetry.Telemetry) *Analyzer {
	if maxChars <= 0 {
		maxChars = 12000
	}
	return &Analyzer{
		provider:  provider,
		searcher:  searcher,
		maxChars:  maxChars,
		telemetry: tel,
		logger:    log.New(log.Writer(), "[SPANS] ", log.LstdFlags),
	}
}

const spanPrompt = `You are a text analyst. Identify spans in the text that are factual claims, politically or ideologically biased framing, or emotionally charged sentiment.

Return ONLY a strict JSON object:
{"spans": [{"start": <char offset>, "end": <char offset>, "type": "fact" | "bias" | "sentiment", "shortExplanation": "<one sentence>"}]}

Offsets are 0-based character positions into the exact text given, with end exclusive. Do not rewrite or normalize the text.`

// Analyze returns the validated spans for text. Text longer than the
// configured maximum is truncated before analysis, so offsets stay valid for
// the truncated string. Spans with out-of-range offsets are discarded and
// logged, never propagated.
func (a *Analyzer) Analyze(ctx context.Context, text string) ([]Span, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("no text to analyze")
	}
	if len(text) > a.maxChars {
		cut := a.maxChars
		// Back off to a rune boundary so truncation never splits a multibyte
		// character.
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}

	raw, err := a.provider.GenerateJSON(ctx, spanPrompt, text, a.provider.ModelFor("spans"))
	if err != nil {
		return nil, fmt.Errorf("span extraction: %w", err)
	}
	var parsed struct {
		Spans []Span `json:"spans"`
	}
	if err := json.Unmarshal([]byte(firstJSONObject(raw)), &parsed); err != nil {
		return nil, fmt.Errorf("span extraction returned unparseable output: %w", err)
	}

	valid := make([]Span, 0, len(parsed.Spans))
	for _, s := range parsed.Spans {
		if s.Start < 0 || s.Start >= s.End || s.End > len(text) {
			a.logger.Printf("discarding invalid span [%d,%d) for text length %d", s.Start, s.End, len(text))
			a.rejectSpan()
			continue
		}
		if s.Type != SpanFact && s.Type != SpanBias && s.Type != SpanSentiment {
			a.logger.Printf("discarding span with unknown type %q", s.Type)
			a.rejectSpan()
			continue
		}
		valid = append(valid, s)
	}
	return valid, nil
}

func (a *Analyzer) rejectSpan() {
	if a.telemetry != nil {
		a.telemetry.SpanRejections.Inc()
	}
}

const verifyPrompt = `You are a fact-checker. Assess the claim against the search evidence provided. Rely only on the evidence; if it is insufficient, say so.

Return ONLY a strict JSON object:
{
  "verdict": "supported" | "contradicted" | "mixed" | "unverifiable",
  "confidence": <0-1>,
  "explanation": "<short explanation>",
  "evidence": [{"quote": "...", "sourceTitle": "..."}],
  "sources": [{"url": "...", "title": "..."}]
}`

// VerifyClaim checks one claim against web search evidence. Idempotent per
// claim: re-running it performs the same search and assessment.
func (a *Analyzer) VerifyClaim(ctx context.Context, claim, claimContext string) (ClaimVerification, error) {
	claim = strings.TrimSpace(claim)
	if claim == "" {
		return ClaimVerification{}, fmt.Errorf("empty claim")
	}

	results, err := a.searcher.Search(ctx, claim)
	if err != nil {
		return ClaimVerification{}, fmt.Errorf("evidence search: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Claim: %s\n", claim)
	if claimContext != "" {
		fmt.Fprintf(&b, "Context: %s\n", claimContext)
	}
	b.WriteString("\nSearch evidence:\n")
	if len(results) == 0 {
		b.WriteString("(no results found)\n")
	}
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s (%s)\n   %s\n", i+1, r.Title, r.URL, r.Snippet)
	}

	raw, err := a.provider.GenerateJSON(ctx, verifyPrompt, b.String(), a.provider.ModelFor("verification"))
	if err != nil {
		return ClaimVerification{}, fmt.Errorf("claim verification: %w", err)
	}
	var v ClaimVerification
	if err := json.Unmarshal([]byte(firstJSONObject(raw)), &v); err != nil {
		return ClaimVerification{}, fmt.Errorf("claim verification returned unparseable output: %w", err)
	}
	switch v.Verdict {
	case ClaimSupported, ClaimContradicted, ClaimMixed, ClaimUnverifiable:
	default:
		a.logger.Printf("unknown verdict %q, downgrading to unverifiable", v.Verdict)
		v.Verdict = ClaimUnverifiable
	}
	if v.Confidence < 0 {
		v.Confidence = 0
	}
	if v.Confidence > 1 {
		v.Confidence = 1
	}
	// Backfill sources from the search results when the model omits them.
	if len(v.Sources) == 0 {
		for i, r := range results {
			if i >= 3 {
				break
			}
			v.Sources = append(v.Sources, VerifiedSource{URL: r.URL, Title: r.Title})
		}
	}
	return v, nil
}

var jsonObjectRe = regexp.MustCompile(`(?s)\{.*\}`)

func firstJSONObject(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
	}
	if m := jsonObjectRe.FindString(s); m != "" {
		return m
	}
	return s
}
