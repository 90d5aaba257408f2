package investigation

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"

	"github.com/factlens/factlens/internal/content"
	"github.com/factlens/factlens/internal/llm"
	"github.com/factlens/factlens/internal/telemetry"
)

// EventType discriminates the orchestrator's stream frames.
type EventType string

const (
	EventAction EventType = "action"
	EventResult EventType = "result"
	EventError  EventType = "error"
)

// Event is one frame of the investigation stream. Exactly one of Action,
// Result, Error is set. Result and Error are terminal.
type Event struct {
	Type   EventType    `json:"type"`
	Action *AgentAction `json:"action,omitempty"`
	Result *Result      `json:"result,omitempty"`
	Error  string       `json:"error,omitempty"`
}

// Orchestrator drives the tool-calling conversation loop for one
// investigation and streams agent actions as they happen.
type Orchestrator struct {
	provider  llm.Provider
	toolbox   *Toolbox
	telemetry *telemetry.Telemetry
	budget    time.Duration
	maxRounds int
	logger    *log.Logger
}

func NewOrchestrator(provider llm.Provider, toolbox *Toolbox, tel *telemetry.Telemetry, budget time.Duration) *Orchestrator {
	if budget <= 0 {
		budget = 90 * time.Second
	}
	return &Orchestrator{
		provider:  provider,
		toolbox:   toolbox,
		telemetry: tel,
		budget:    budget,
		maxRounds: 12,
		logger:    log.New(log.Writer(), "[AGENT] ", log.LstdFlags),
	}
}

// Stream runs the investigation and returns its event channel. The channel is
// closed after a terminal Result or Error frame, or silently when the caller
// cancels ctx.
func (o *Orchestrator) Stream(ctx context.Context, t Type, combined content.CombinedContent, prior []openai.ChatCompletionMessage, modelOverride string) <-chan Event {
	events := make(chan Event)
	go func() {
		defer close(events)
		o.run(ctx, t, combined, prior, modelOverride, events)
	}()
	return events
}

func (o *Orchestrator) run(parent context.Context, t Type, combined content.CombinedContent, prior []openai.ChatCompletionMessage, modelOverride string, events chan<- Event) {
	// The budget bounds the work; emission is tied to the parent so the
	// terminal error frame still goes out after a budget overrun, while a
	// client disconnect stops emission immediately.
	ctx, cancel := context.WithTimeout(parent, o.budget)
	defer cancel()

	model := o.provider.ModelFor("agent")
	if modelOverride != "" {
		model = modelOverride
	}
	systemPrompt, toolset := RouteFor(t)
	tools := Definitions(toolset)

	messages := make([]openai.ChatCompletionMessage, 0, len(prior)+2)
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: systemPrompt})
	messages = append(messages, prior...)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: fmt.Sprintf("Investigate the following content (%d sources):\n\n%s", combined.SourceCount, combined.Text),
	})

	var actions []AgentAction
	for round := 0; round < o.maxRounds; round++ {
		msg, err := o.provider.ChatTools(ctx, model, messages, tools)
		if err != nil {
			o.terminate(parent, events, t, o.wrapLoopError(ctx, err))
			return
		}

		if len(msg.ToolCalls) == 0 {
			result, err := o.parseResult(t, msg.Content, actions)
			if err != nil {
				o.terminate(parent, events, t, err)
				return
			}
			if !o.emit(parent, events, Event{Type: EventResult, Result: result}) {
				return
			}
			if o.telemetry != nil {
				o.telemetry.Investigations.WithLabelValues(string(t), "completed").Inc()
			}
			return
		}

		messages = append(messages, msg)
		for _, call := range msg.ToolCalls {
			action := AgentAction{
				ID:        uuid.NewString(),
				Timestamp: time.Now(),
				Action:    fmt.Sprintf("Calling %s", call.Function.Name),
				Tool:      call.Function.Name,
				Status:    ActionPending,
			}
			if !o.emit(parent, events, Event{Type: EventAction, Action: &action}) {
				return
			}

			args := ParseToolArgs(call.Function.Arguments)
			if !args.Strict {
				o.logger.Printf("tool %s sent quasi-JSON arguments, recovered leniently", call.Function.Name)
			}
			output, execErr := o.toolbox.Execute(ctx, call.Function.Name, args)

			done := action
			done.Timestamp = time.Now()
			if execErr != nil {
				// Per-tool failures feed back to the model; the loop continues.
				done.Status = ActionError
				done.Detail = execErr.Error()
				output = fmt.Sprintf("Tool error: %v", execErr)
				o.logger.Printf("%v", execErr)
				if o.telemetry != nil {
					o.telemetry.ToolCalls.WithLabelValues(call.Function.Name, "error").Inc()
				}
			} else {
				done.Status = ActionCompleted
				done.Detail = truncate(output, 300)
				if o.telemetry != nil {
					o.telemetry.ToolCalls.WithLabelValues(call.Function.Name, "ok").Inc()
				}
			}
			actions = append(actions, done)
			if !o.emit(parent, events, Event{Type: EventAction, Action: &done}) {
				return
			}

			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				ToolCallID: call.ID,
				Content:    output,
			})
		}
	}

	o.terminate(parent, events, t, &OrchestrationError{Reason: fmt.Sprintf("investigation did not conclude within %d tool rounds", o.maxRounds)})
}

// parseResult turns the model's final message into a Result or an
// OrchestrationError. It never fabricates a partial result.
func (o *Orchestrator) parseResult(t Type, finalMessage string, actions []AgentAction) (*Result, error) {
	var result Result
	if err := json.Unmarshal([]byte(extractFirstJSON(finalMessage)), &result); err != nil {
		return nil, &OrchestrationError{Reason: "final model output is not a valid investigation result", Err: err}
	}
	if result.Summary == "" && result.Reasoning == "" {
		return nil, &OrchestrationError{Reason: "final model output is missing summary and reasoning"}
	}
	result.InvestigationType = t
	result.AgentActions = actions
	result.Reconcile()
	return &result, nil
}

func (o *Orchestrator) wrapLoopError(ctx context.Context, err error) error {
	if ctx.Err() == context.DeadlineExceeded {
		return &OrchestrationError{Reason: fmt.Sprintf("investigation exceeded the %s time budget", o.budget), Err: ctx.Err()}
	}
	return &OrchestrationError{Reason: "model conversation failed", Err: err}
}

// emit sends one event unless the consumer has gone away. A false return
// means the investigation was cancelled and no further work should happen.
func (o *Orchestrator) emit(ctx context.Context, events chan<- Event, ev Event) bool {
	select {
	case <-ctx.Done():
		return false
	default:
	}
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (o *Orchestrator) terminate(ctx context.Context, events chan<- Event, t Type, err error) {
	o.logger.Printf("investigation failed: %v", err)
	if o.telemetry != nil {
		o.telemetry.Investigations.WithLabelValues(string(t), "failed").Inc()
	}
	o.emit(ctx, events, Event{Type: EventError, Error: err.Error()})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
