package investigation

// resultSchema is appended to every system prompt so the final message always
// lands in the same parseable shape.
const resultSchema = `
When you have finished investigating, respond with ONLY a strict JSON object (no markdown, no commentary):
{
  "truthfulnessScore": <integer 0-100>,
  "verdict": "true" | "false" | "partially-true" | "unverifiable",
  "summary": "<one-paragraph summary of your assessment>",
  "reasoning": "<step-by-step reasoning behind the verdict>",
  "evidence": [{"claim": "...", "source": "...", "verificationStatus": "...", "explanation": "..."}],
  "sources": [{"name": "...", "url": "...", "type": "...", "reliability": <0-1>}]
}`

const classifyPrompt = `You are a routing classifier for a fact-checking service. Read the submitted content and decide which investigation strategy applies.

Return ONLY a strict JSON object: {"type": "<one of: social-post-analysis, claim-verification, deep-research, comparative-analysis>"}

Guidance:
- social-post-analysis: a social media post (tweet, TikTok) whose credibility, framing, and engagement context should be assessed.
- claim-verification: one or a few concrete factual claims that can be checked against evidence.
- comparative-analysis: multiple sources covering the same subject that should be compared for agreement and slant.
- deep-research: a broad or complex topic that needs multi-step research before any verdict.`

var systemPrompts = map[Type]string{
	TypeSocialPostAnalysis: `You are a misinformation analyst assessing a social media post. Evaluate the factual accuracy of its claims, the credibility and track record of the account, signs of manipulation (cropped context, doctored media, engagement bait), and the emotional framing. Use the available tools to verify claims and evaluate sources before judging.` + resultSchema,

	TypeClaimVerification: `You are a fact-checker verifying concrete claims. Break the content into individual checkable claims, verify each against independent evidence using the available tools, and weigh source reliability. Be precise about what is established, what is contested, and what cannot be verified.` + resultSchema,

	TypeDeepResearch: `You are a research analyst conducting a thorough investigation of a topic. Gather evidence from multiple independent sources, follow up on contradictions, distinguish primary from secondary sources, and build a sourced picture before reaching any verdict. Prefer depth over speed.` + resultSchema,

	TypeComparativeAnalysis: `You are a media analyst comparing multiple sources covering the same subject. Identify where they agree and disagree, characterize each source's type and slant, and assess which account is best supported by verifiable facts. Use the comparison and credibility tools on every source.` + resultSchema,
}

// toolsetByType is the static routing table: each investigation type gets a
// fixed subset of the toolbox.
var toolsetByType = map[Type][]string{
	TypeSocialPostAnalysis:  {toolWebSearch, toolVerifyFact, toolEvaluateCredibility, toolClassifySourceType, toolLookupEntity},
	TypeClaimVerification:   {toolWebSearch, toolVerifyFact, toolEvaluateCredibility},
	TypeDeepResearch:        {toolWebSearch, toolVerifyFact, toolEvaluateCredibility, toolClassifySourceType, toolLookupEntity, toolCompileVisualization},
	TypeComparativeAnalysis: {toolWebSearch, toolVerifyFact, toolEvaluateCredibility, toolClassifySourceType, toolCompareSources, toolCompileVisualization},
}

// RouteFor returns the {system prompt, toolset} pair for a type. Unknown
// types get the fallback route.
func RouteFor(t Type) (string, []string) {
	prompt, ok := systemPrompts[t]
	if !ok {
		return systemPrompts[FallbackType], toolsetByType[FallbackType]
	}
	return prompt, toolsetByType[t]
}
