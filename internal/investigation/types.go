package investigation

import "time"

// Type is the analysis strategy selected for one investigation. The set is
// closed: each value maps to exactly one system prompt + toolset pair.
type Type string

const (
	TypeSocialPostAnalysis  Type = "social-post-analysis"
	TypeClaimVerification   Type = "claim-verification"
	TypeDeepResearch        Type = "deep-research"
	TypeComparativeAnalysis Type = "comparative-analysis"
)

// FallbackType is used when classification fails or returns an unknown value.
const FallbackType = TypeClaimVerification

// AllTypes lists every recognized investigation type.
var AllTypes = []Type{TypeSocialPostAnalysis, TypeClaimVerification, TypeDeepResearch, TypeComparativeAnalysis}

// ParseType validates a raw classifier output against the closed set.
func ParseType(s string) (Type, bool) {
	for _, t := range AllTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// ActionStatus is the lifecycle of one agent action.
type ActionStatus string

const (
	ActionPending   ActionStatus = "pending"
	ActionCompleted ActionStatus = "completed"
	ActionError     ActionStatus = "error"
)

// AgentAction is one observable step of the tool-calling loop. Actions form
// an append-only, emission-ordered sequence per investigation.
type AgentAction struct {
	ID        string       `json:"id"`
	Timestamp time.Time    `json:"timestamp"`
	Action    string       `json:"action"`
	Tool      string       `json:"tool,omitempty"`
	Status    ActionStatus `json:"status"`
	Detail    string       `json:"detail,omitempty"`
}

// Verdict is the terminal truthfulness call of an investigation.
type Verdict string

const (
	VerdictTrue          Verdict = "true"
	VerdictFalse         Verdict = "false"
	VerdictPartiallyTrue Verdict = "partially-true"
	VerdictUnverifiable  Verdict = "unverifiable"
)

// Evidence ties one claim to what was found about it.
type Evidence struct {
	Claim              string `json:"claim"`
	Source             string `json:"source"`
	VerificationStatus string `json:"verificationStatus"`
	Explanation        string `json:"explanation"`
}

// SourceRef is one consulted source with a coarse reliability estimate.
type SourceRef struct {
	Name        string  `json:"name"`
	URL         string  `json:"url"`
	Type        string  `json:"type"`
	Reliability float64 `json:"reliability"`
}

// Result is the terminal output of the orchestrator.
type Result struct {
	InvestigationType Type          `json:"investigationType"`
	TruthfulnessScore int           `json:"truthfulnessScore"`
	Verdict           Verdict       `json:"verdict"`
	Summary           string        `json:"summary"`
	Reasoning         string        `json:"reasoning"`
	Evidence          []Evidence    `json:"evidence"`
	Sources           []SourceRef   `json:"sources"`
	AgentActions      []AgentAction `json:"agentActions"`
}

// Score bands for the verdict mapping. A score of 75 or above reads as true,
// 40-74 as partially true, below 40 as false. Unverifiable is never derived
// from the score; it stands only when the model declares it.
const (
	trueThreshold    = 75
	partialThreshold = 40
)

// VerdictForScore maps a truthfulness score to its verdict band.
func VerdictForScore(score int) Verdict {
	switch {
	case score >= trueThreshold:
		return VerdictTrue
	case score >= partialThreshold:
		return VerdictPartiallyTrue
	default:
		return VerdictFalse
	}
}

// Reconcile clamps the score into range and forces score and verdict to be
// mutually consistent. An out-of-band pair is resolved in favor of the score;
// a declared unverifiable verdict is kept as-is.
func (r *Result) Reconcile() {
	if r.TruthfulnessScore < 0 {
		r.TruthfulnessScore = 0
	}
	if r.TruthfulnessScore > 100 {
		r.TruthfulnessScore = 100
	}
	if r.Verdict == VerdictUnverifiable {
		return
	}
	if expected := VerdictForScore(r.TruthfulnessScore); r.Verdict != expected {
		r.Verdict = expected
	}
}
