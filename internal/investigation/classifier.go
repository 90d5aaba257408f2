package investigation

import (
	"context"
	"encoding/json"
	"log"

	"github.com/factlens/factlens/internal/content"
	"github.com/factlens/factlens/internal/llm"
	"github.com/factlens/factlens/internal/telemetry"
)

// Classifier decides which investigation strategy applies to combined
// content. It never fails upward: any error or invalid output falls back to
// the default type.
type Classifier struct {
	provider  llm.Provider
	telemetry *telemetry.Telemetry
	logger    *log.Logger
}

func NewClassifier(provider llm.Provider, tel *telemetry.Telemetry) *Classifier {
	return &Classifier{
		provider:  provider,
		telemetry: tel,
		logger:    log.New(log.Writer(), "[CLASSIFY] ", log.LstdFlags),
	}
}

// Classify returns exactly one investigation type. modelOverride selects a
// non-default model when non-empty.
func (c *Classifier) Classify(ctx context.Context, combined content.CombinedContent, modelOverride string) Type {
	model := c.provider.ModelFor("classify")
	if modelOverride != "" {
		model = modelOverride
	}

	raw, err := c.provider.GenerateJSON(ctx, classifyPrompt, combined.Text, model)
	if err != nil {
		return c.fallback(&ClassificationError{Err: err})
	}

	var parsed struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal([]byte(extractFirstJSON(raw)), &parsed); err != nil {
		return c.fallback(&ClassificationError{RawValue: raw, Err: err})
	}
	t, ok := ParseType(parsed.Type)
	if !ok {
		return c.fallback(&ClassificationError{RawValue: parsed.Type})
	}
	return t
}

func (c *Classifier) fallback(cause *ClassificationError) Type {
	c.logger.Printf("%v; falling back to %s", cause, FallbackType)
	if c.telemetry != nil {
		c.telemetry.ClassifierFallbacks.Inc()
	}
	return FallbackType
}
