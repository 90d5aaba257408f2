package llm

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/factlens/factlens/config"
	"github.com/factlens/factlens/internal/telemetry"
)

// Provider abstracts the completion backend so the pipeline can be tested with fakes.
type Provider interface {
	// Generate runs a single-shot completion and returns the text content.
	Generate(ctx context.Context, systemPrompt, userPrompt, model string) (string, error)
	// GenerateJSON is Generate with the response format pinned to a JSON object.
	GenerateJSON(ctx context.Context, systemPrompt, userPrompt, model string) (string, error)
	// ChatTools runs one turn of a tool-calling conversation and returns the assistant message.
	ChatTools(ctx context.Context, model string, messages []openai.ChatCompletionMessage, tools []openai.Tool) (openai.ChatCompletionMessage, error)
	// Transcribe converts audio bytes into text via Whisper.
	Transcribe(ctx context.Context, filename string, audio []byte) (string, error)
	// ModelFor resolves a routing stage name ("classify", "agent", "spans", "verification")
	// to a concrete API model name.
	ModelFor(stage string) string
}

// OpenAIProvider implements Provider on top of the OpenAI-compatible API.
type OpenAIProvider struct {
	client    *openai.Client
	cfg       config.LLMConfig
	telemetry *telemetry.Telemetry
	logger    *log.Logger
}

// NewOpenAIProvider creates a provider from config. BaseURL allows pointing at
// any OpenAI-compatible endpoint.
func NewOpenAIProvider(cfg config.LLMConfig, tel *telemetry.Telemetry) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm api key not configured")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIProvider{
		client:    openai.NewClientWithConfig(clientCfg),
		cfg:       cfg,
		telemetry: tel,
		logger:    log.New(log.Writer(), "[LLM] ", log.LstdFlags),
	}, nil
}

func (p *OpenAIProvider) ModelFor(stage string) string {
	r := p.cfg.Routing
	var name string
	switch stage {
	case "classify":
		name = r.Classify
	case "agent":
		name = r.Agent
	case "spans":
		name = r.Spans
	case "verification":
		name = r.Verification
	}
	if name == "" {
		name = r.Fallback
	}
	if m, ok := p.cfg.Models[name]; ok && m.APIName != "" {
		return m.APIName
	}
	return name
}

func (p *OpenAIProvider) Generate(ctx context.Context, systemPrompt, userPrompt, model string) (string, error) {
	return p.complete(ctx, systemPrompt, userPrompt, model, nil)
}

func (p *OpenAIProvider) GenerateJSON(ctx context.Context, systemPrompt, userPrompt, model string) (string, error) {
	return p.complete(ctx, systemPrompt, userPrompt, model, &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONObject,
	})
}

func (p *OpenAIProvider) complete(ctx context.Context, systemPrompt, userPrompt, model string, format *openai.ChatCompletionResponseFormat) (string, error) {
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: systemPrompt})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: userPrompt})

	start := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:          model,
		Messages:       messages,
		ResponseFormat: format,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion (%s): %w", model, err)
	}
	p.record(model, resp.Usage, time.Since(start))
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion (%s): empty choices", model)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (p *OpenAIProvider) ChatTools(ctx context.Context, model string, messages []openai.ChatCompletionMessage, tools []openai.Tool) (openai.ChatCompletionMessage, error) {
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}
	start := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
		Tools:    tools,
	})
	if err != nil {
		return openai.ChatCompletionMessage{}, fmt.Errorf("tool completion (%s): %w", model, err)
	}
	p.record(model, resp.Usage, time.Since(start))
	if len(resp.Choices) == 0 {
		return openai.ChatCompletionMessage{}, fmt.Errorf("tool completion (%s): empty choices", model)
	}
	return resp.Choices[0].Message, nil
}

func (p *OpenAIProvider) Transcribe(ctx context.Context, filename string, audio []byte) (string, error) {
	resp, err := p.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: filename,
		Reader:   bytes.NewReader(audio),
	})
	if err != nil {
		return "", fmt.Errorf("transcription: %w", err)
	}
	return resp.Text, nil
}

// record feeds usage into telemetry using per-model pricing from config.
func (p *OpenAIProvider) record(model string, usage openai.Usage, elapsed time.Duration) {
	var cost float64
	for _, m := range p.cfg.Models {
		if m.APIName == model || m.Name == model {
			cost = float64(usage.PromptTokens)/1000*m.CostPer1K +
				float64(usage.CompletionTokens)/1000*m.CostPer1KOutput
			break
		}
	}
	p.telemetry.RecordLLMUsage(model, int64(usage.PromptTokens), int64(usage.CompletionTokens), cost)
	p.logger.Printf("%s: %d in / %d out tokens in %s", model, usage.PromptTokens, usage.CompletionTokens, elapsed.Round(time.Millisecond))
}
