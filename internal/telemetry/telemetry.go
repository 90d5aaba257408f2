package telemetry

import (
	"log"
	"sync"

	"github.com/factlens/factlens/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Telemetry tracks pipeline metrics and LLM spend.
type Telemetry struct {
	config config.TelemetryConfig
	logger *log.Logger

	Investigations      prometheus.CounterVec
	ToolCalls           prometheus.CounterVec
	ExtractionFailures  prometheus.CounterVec
	ClassifierFallbacks prometheus.Counter
	SpanRejections      prometheus.Counter

	mu          sync.Mutex
	totalCost   float64
	totalTokens int64
	modelCosts  map[string]float64
}

// New creates a Telemetry instance and registers its collectors.
func New(cfg config.TelemetryConfig) *Telemetry {
	return &Telemetry{
		config: cfg,
		logger: log.New(log.Writer(), "[TELEMETRY] ", log.LstdFlags),
		Investigations: *promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "factlens_investigations_total",
			Help: "Investigations started, by type and outcome.",
		}, []string{"type", "outcome"}),
		ToolCalls: *promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "factlens_tool_calls_total",
			Help: "Agent tool invocations, by tool and status.",
		}, []string{"tool", "status"}),
		ExtractionFailures: *promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "factlens_extraction_failures_total",
			Help: "Per-source extraction failures, by content kind.",
		}, []string{"kind"}),
		ClassifierFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "factlens_classifier_fallbacks_total",
			Help: "Classification calls that fell back to the default investigation type.",
		}),
		SpanRejections: promauto.NewCounter(prometheus.CounterOpts{
			Name: "factlens_span_rejections_total",
			Help: "Spans discarded for invalid offsets.",
		}),
		modelCosts: make(map[string]float64),
	}
}

// RecordLLMUsage accumulates token and cost accounting for one completion call.
func (t *Telemetry) RecordLLMUsage(model string, inputTokens, outputTokens int64, cost float64) {
	if t == nil || !t.config.CostTracking {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.totalTokens += inputTokens + outputTokens
	t.totalCost += cost
	t.modelCosts[model] += cost
}

// Totals returns the accumulated token count and spend.
func (t *Telemetry) Totals() (int64, float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totalTokens, t.totalCost
}

// LogSummary prints a one-line spend summary.
func (t *Telemetry) LogSummary() {
	tokens, cost := t.Totals()
	t.logger.Printf("llm usage: %d tokens, $%.4f estimated", tokens, cost)
}
