package investigation

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ParsedArgs is the decoded form of a tool-call argument payload. Raw is kept
// so the terminal fallback can hand the model's literal output to a tool that
// accepts free text.
type ParsedArgs struct {
	Fields map[string]any
	Raw    string
	// Strict is false when a lenient tier produced the fields.
	Strict bool
}

// Get returns a string field, tolerating non-string JSON values.
func (a ParsedArgs) Get(key string) string {
	v, ok := a.Fields[key]
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64, bool:
		b, _ := json.Marshal(t)
		return string(b)
	default:
		return ""
	}
}

var (
	singleQuoted = regexp.MustCompile(`'([^']*)'`)
	unquotedKey  = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)
	kvPair       = regexp.MustCompile(`["']?([A-Za-z_][A-Za-z0-9_]*)["']?\s*[:=]\s*["']?([^,"'{}]+)["']?`)
)

// ParseToolArgs decodes a quasi-JSON argument string through a cascading
// strategy: strict JSON, then quote normalization, then manual key/value
// extraction, then a raw-string fallback. The model occasionally emits
// near-JSON (single quotes, bare keys), so every tier must terminate in
// something usable rather than an error.
func ParseToolArgs(raw string) ParsedArgs {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ParsedArgs{Fields: map[string]any{}, Raw: raw, Strict: true}
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(raw), &fields); err == nil {
		return ParsedArgs{Fields: fields, Raw: raw, Strict: true}
	}

	normalized := unquotedKey.ReplaceAllString(raw, `$1"$2":`)
	normalized = singleQuoted.ReplaceAllString(normalized, `"$1"`)
	if err := json.Unmarshal([]byte(normalized), &fields); err == nil {
		return ParsedArgs{Fields: fields, Raw: raw, Strict: false}
	}

	fields = map[string]any{}
	for _, m := range kvPair.FindAllStringSubmatch(raw, -1) {
		fields[m[1]] = strings.TrimSpace(m[2])
	}
	if len(fields) > 0 {
		return ParsedArgs{Fields: fields, Raw: raw, Strict: false}
	}

	// Terminal fallback: hand the raw string through as a generic query.
	return ParsedArgs{Fields: map[string]any{"query": strings.Trim(raw, `"'{}`)}, Raw: raw, Strict: false}
}

var firstJSONRe = regexp.MustCompile(`(?s)\{.*\}`)

// extractFirstJSON pulls the outermost JSON object out of model output that
// may be wrapped in prose or markdown fences.
func extractFirstJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}
	if m := firstJSONRe.FindString(s); m != "" {
		return m
	}
	return s
}
