package investigation

import "testing"

func TestParseToolArgsStrict(t *testing.T) {
	args := ParseToolArgs(`{"query": "eiffel tower location", "limit": 5}`)
	if !args.Strict {
		t.Error("valid JSON should parse strictly")
	}
	if got := args.Get("query"); got != "eiffel tower location" {
		t.Errorf("query = %q", got)
	}
	if got := args.Get("limit"); got != "5" {
		t.Errorf("limit = %q, want numeric coerced to string", got)
	}
}

func TestParseToolArgsSingleQuoted(t *testing.T) {
	args := ParseToolArgs(`{'claim': 'water boils at 100C'}`)
	if args.Strict {
		t.Error("single-quoted input should be flagged as lenient")
	}
	if got := args.Get("claim"); got != "water boils at 100C" {
		t.Errorf("claim = %q", got)
	}
}

func TestParseToolArgsUnquotedKeys(t *testing.T) {
	args := ParseToolArgs(`{query: "site credibility", source: "example.com"}`)
	if args.Strict {
		t.Error("unquoted keys should be flagged as lenient")
	}
	if got := args.Get("query"); got != "site credibility" {
		t.Errorf("query = %q", got)
	}
	if got := args.Get("source"); got != "example.com" {
		t.Errorf("source = %q", got)
	}
}

func TestParseToolArgsKeyValueScrape(t *testing.T) {
	args := ParseToolArgs(`claim: the moon landing happened, context: apollo 11`)
	if got := args.Get("claim"); got == "" {
		t.Errorf("manual key/value extraction found nothing in %+v", args.Fields)
	}
}

func TestParseToolArgsRawFallback(t *testing.T) {
	args := ParseToolArgs(`just a bare search phrase`)
	if args.Strict {
		t.Error("fallback must not claim strict parse")
	}
	if got := args.Get("query"); got != "just a bare search phrase" {
		t.Errorf("fallback query = %q", got)
	}
	if args.Raw != "just a bare search phrase" {
		t.Errorf("raw = %q", args.Raw)
	}
}

func TestParseToolArgsEmpty(t *testing.T) {
	args := ParseToolArgs("")
	if len(args.Fields) != 0 {
		t.Errorf("empty input should yield no fields, got %+v", args.Fields)
	}
}

func TestExtractFirstJSON(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"Here is the result:\n```json\n{\"a\":1}\n```", `{"a":1}`},
		{`Sure! {"verdict": "true"} Hope that helps.`, `{"verdict": "true"}`},
	}
	for _, tc := range cases {
		if got := extractFirstJSON(tc.in); got != tc.want {
			t.Errorf("extractFirstJSON(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
