package investigation

import (
	"context"
	"errors"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/factlens/factlens/internal/content"
)

// fakeProvider scripts LLM behavior for the classifier and orchestrator tests.
type fakeProvider struct {
	jsonOut   string
	jsonErr   error
	script    []openai.ChatCompletionMessage
	chatErr   error
	chatDelay time.Duration
	chatIdx   int
	chatSeen  [][]openai.ChatCompletionMessage
}

func (f *fakeProvider) Generate(_ context.Context, _, _, _ string) (string, error) {
	return "assessment text", nil
}

func (f *fakeProvider) GenerateJSON(_ context.Context, _, _, _ string) (string, error) {
	return f.jsonOut, f.jsonErr
}

func (f *fakeProvider) ChatTools(ctx context.Context, _ string, messages []openai.ChatCompletionMessage, _ []openai.Tool) (openai.ChatCompletionMessage, error) {
	f.chatSeen = append(f.chatSeen, messages)
	if f.chatDelay > 0 {
		select {
		case <-time.After(f.chatDelay):
		case <-ctx.Done():
			return openai.ChatCompletionMessage{}, ctx.Err()
		}
	}
	if f.chatErr != nil {
		return openai.ChatCompletionMessage{}, f.chatErr
	}
	if f.chatIdx >= len(f.script) {
		return openai.ChatCompletionMessage{}, errors.New("fake script exhausted")
	}
	msg := f.script[f.chatIdx]
	f.chatIdx++
	return msg, nil
}

func (f *fakeProvider) Transcribe(_ context.Context, _ string, _ []byte) (string, error) {
	return "", errors.New("not implemented")
}

func (f *fakeProvider) ModelFor(string) string { return "fake-model" }

func TestClassifyValidType(t *testing.T) {
	c := NewClassifier(&fakeProvider{jsonOut: `{"type": "deep-research"}`}, nil)
	got := c.Classify(context.Background(), content.CombinedContent{Text: "long topic", SourceCount: 1}, "")
	if got != TypeDeepResearch {
		t.Errorf("type = %s, want deep-research", got)
	}
}

func TestClassifyProviderErrorFallsBack(t *testing.T) {
	c := NewClassifier(&fakeProvider{jsonErr: errors.New("upstream 500")}, nil)
	got := c.Classify(context.Background(), content.CombinedContent{Text: "anything", SourceCount: 1}, "")
	if got != FallbackType {
		t.Errorf("type = %s, want fallback %s", got, FallbackType)
	}
}

func TestClassifyInvalidValueFallsBack(t *testing.T) {
	c := NewClassifier(&fakeProvider{jsonOut: `{"type": "vibes-check"}`}, nil)
	got := c.Classify(context.Background(), content.CombinedContent{Text: "anything", SourceCount: 1}, "")
	if got != FallbackType {
		t.Errorf("type = %s, want fallback %s", got, FallbackType)
	}
}

func TestClassifyUnparseableOutputFallsBack(t *testing.T) {
	c := NewClassifier(&fakeProvider{jsonOut: "I think this is probably a claim"}, nil)
	got := c.Classify(context.Background(), content.CombinedContent{Text: "anything", SourceCount: 1}, "")
	if got != FallbackType {
		t.Errorf("type = %s, want fallback %s", got, FallbackType)
	}
}
