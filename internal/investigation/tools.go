package investigation

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/factlens/factlens/internal/collab"
	"github.com/factlens/factlens/internal/llm"
	"github.com/factlens/factlens/internal/spans"
)

const (
	toolWebSearch            = "web_search"
	toolVerifyFact           = "verify_fact"
	toolEvaluateCredibility  = "evaluate_source_credibility"
	toolClassifySourceType   = "classify_source_type"
	toolCompareSources       = "compare_sources"
	toolLookupEntity         = "lookup_entity"
	toolCompileVisualization = "compile_visualization"
)

// ClaimVerifier is the verification capability the verify_fact tool delegates
// to. Satisfied by spans.Analyzer.
type ClaimVerifier interface {
	VerifyClaim(ctx context.Context, claim, claimContext string) (spans.ClaimVerification, error)
}

// Toolbox executes the closed set of agent tools. Tool failures are returned
// as errors to the caller, which records them and keeps the loop going.
type Toolbox struct {
	searcher collab.Searcher
	verifier ClaimVerifier
	provider llm.Provider
	logger   *log.Logger
}

func NewToolbox(searcher collab.Searcher, verifier ClaimVerifier, provider llm.Provider) *Toolbox {
	return &Toolbox{
		searcher: searcher,
		verifier: verifier,
		provider: provider,
		logger:   log.New(log.Writer(), "[TOOLS] ", log.LstdFlags),
	}
}

// stringParams builds a single-level JSON schema with string properties.
func stringParams(required []string, props map[string]string) json.RawMessage {
	properties := map[string]any{}
	for name, desc := range props {
		properties[name] = map[string]any{"type": "string", "description": desc}
	}
	schema := map[string]any{"type": "object", "properties": properties, "required": required}
	b, _ := json.Marshal(schema)
	return b
}

var toolDefinitions = map[string]openai.Tool{
	toolWebSearch: {
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        toolWebSearch,
			Description: "Search the web and return ranked results with titles, URLs, and snippets.",
			Parameters:  stringParams([]string{"query"}, map[string]string{"query": "The search query."}),
		},
	},
	toolVerifyFact: {
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        toolVerifyFact,
			Description: "Verify a single factual claim against independent web evidence. Returns a verdict with confidence, evidence quotes, and sources.",
			Parameters:  stringParams([]string{"claim"}, map[string]string{"claim": "The claim to verify.", "context": "Optional surrounding context for the claim."}),
		},
	},
	toolEvaluateCredibility: {
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        toolEvaluateCredibility,
			Description: "Evaluate the credibility of a source (publication, account, or website) and return a reliability assessment.",
			Parameters:  stringParams([]string{"source"}, map[string]string{"source": "Name or URL of the source to evaluate."}),
		},
	},
	toolClassifySourceType: {
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        toolClassifySourceType,
			Description: "Classify whether a source is primary or secondary for the subject under investigation.",
			Parameters:  stringParams([]string{"source"}, map[string]string{"source": "Name or URL of the source.", "subject": "The subject the source reports on."}),
		},
	},
	toolCompareSources: {
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        toolCompareSources,
			Description: "Compare how multiple sources cover the same subject: agreements, contradictions, and slant.",
			Parameters:  stringParams([]string{"sources"}, map[string]string{"sources": "The sources to compare, one per line.", "subject": "The shared subject."}),
		},
	},
	toolLookupEntity: {
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        toolLookupEntity,
			Description: "Look up background information on a company, organization, or person.",
			Parameters:  stringParams([]string{"entity"}, map[string]string{"entity": "The entity name."}),
		},
	},
	toolCompileVisualization: {
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        toolCompileVisualization,
			Description: "Compile gathered findings into a structured summary table suitable for rendering.",
			Parameters:  stringParams([]string{"findings"}, map[string]string{"findings": "The findings to structure.", "format": "Desired structure, e.g. timeline or comparison table."}),
		},
	},
}

// Definitions returns the OpenAI tool definitions for a toolset.
func Definitions(names []string) []openai.Tool {
	out := make([]openai.Tool, 0, len(names))
	for _, n := range names {
		if def, ok := toolDefinitions[n]; ok {
			out = append(out, def)
		}
	}
	return out
}

// Execute runs one tool and returns its textual result for the model.
func (tb *Toolbox) Execute(ctx context.Context, name string, args ParsedArgs) (string, error) {
	switch name {
	case toolWebSearch:
		return tb.webSearch(ctx, args)
	case toolVerifyFact:
		return tb.verifyFact(ctx, args)
	case toolEvaluateCredibility:
		return tb.assess(ctx, args.Get("source"),
			"Evaluate the credibility of this source. Consider ownership, editorial standards, track record of corrections, and known biases. Return a concise assessment ending with a reliability rating from 0 to 1.")
	case toolClassifySourceType:
		return tb.assess(ctx, fmt.Sprintf("Source: %s\nSubject: %s", args.Get("source"), args.Get("subject")),
			"Classify whether this source is a primary or secondary source for the subject. Explain briefly.")
	case toolCompareSources:
		return tb.assess(ctx, fmt.Sprintf("Subject: %s\nSources:\n%s", args.Get("subject"), args.Get("sources")),
			"Compare how these sources cover the subject. Note agreements, contradictions, and detectable slant per source.")
	case toolLookupEntity:
		return tb.lookupEntity(ctx, args)
	case toolCompileVisualization:
		return tb.assess(ctx, fmt.Sprintf("Format: %s\nFindings:\n%s", args.Get("format"), args.Get("findings")),
			"Structure these findings into the requested format as a JSON object with labeled rows or entries.")
	}
	return "", &ToolExecutionError{Tool: name, Err: fmt.Errorf("unknown tool")}
}

func (tb *Toolbox) webSearch(ctx context.Context, args ParsedArgs) (string, error) {
	query := args.Get("query")
	if query == "" {
		query = args.Raw
	}
	results, err := tb.searcher.Search(ctx, query)
	if err != nil {
		return "", &ToolExecutionError{Tool: toolWebSearch, Err: err}
	}
	if len(results) == 0 {
		return "No results found.", nil
	}
	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s\n   %s\n   %s\n", i+1, r.Title, r.URL, r.Snippet)
	}
	return b.String(), nil
}

func (tb *Toolbox) verifyFact(ctx context.Context, args ParsedArgs) (string, error) {
	claim := args.Get("claim")
	if claim == "" {
		claim = args.Raw
	}
	verification, err := tb.verifier.VerifyClaim(ctx, claim, args.Get("context"))
	if err != nil {
		return "", &ToolExecutionError{Tool: toolVerifyFact, Err: err}
	}
	b, err := json.Marshal(verification)
	if err != nil {
		return "", &ToolExecutionError{Tool: toolVerifyFact, Err: err}
	}
	return string(b), nil
}

func (tb *Toolbox) lookupEntity(ctx context.Context, args ParsedArgs) (string, error) {
	entity := args.Get("entity")
	if entity == "" {
		entity = args.Raw
	}
	results, err := tb.searcher.Search(ctx, entity+" company organization background")
	if err != nil {
		return "", &ToolExecutionError{Tool: toolLookupEntity, Err: err}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Background search for %q:\n", entity)
	for i, r := range results {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&b, "%d. %s\n   %s\n   %s\n", i+1, r.Title, r.URL, r.Snippet)
	}
	return b.String(), nil
}

// assess runs a single-shot LLM judgment, used by the tools that need
// reasoning rather than retrieval.
func (tb *Toolbox) assess(ctx context.Context, input, instruction string) (string, error) {
	out, err := tb.provider.Generate(ctx, instruction, input, tb.provider.ModelFor("agent"))
	if err != nil {
		return "", &ToolExecutionError{Tool: "assessment", Err: err}
	}
	return out, nil
}
