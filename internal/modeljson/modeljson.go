// Package modeljson extracts and repairs JSON objects from raw LLM output.
// Model responses routinely wrap JSON in code fences, prepend prose, or leave
// trailing commas; this package turns such text into a parsed mapping or an
// explicit error; it never panics and never returns a half-built result.
package modeljson

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	fenceRe         = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
)

// ParseError reports that no valid JSON object could be recovered.
// Raw preserves the original response text for logging and diagnostics.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("model response is not valid JSON: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Extract returns the most plausible JSON object text inside raw: the inner
// content of a ```json fence if present, sliced to the first '{' and last '}'.
// Returns "" when no object span exists.
func Extract(raw string) string {
	s := strings.TrimSpace(raw)
	if m := fenceRe.FindStringSubmatch(s); len(m) > 1 {
		s = m[1]
	}
	open := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if open == -1 || end == -1 || end < open {
		return ""
	}
	return s[open : end+1]
}

// Normalize parses raw model output into a generic mapping. A strict parse is
// attempted first; on failure, trailing commas before '}' or ']' are stripped
// and the parse retried once. Valid JSON input passes through untouched, so
// Normalize(marshal(Normalize(x))) is a no-op for any valid x.
func Normalize(raw string) (map[string]any, error) {
	candidate := Extract(raw)
	if candidate == "" {
		return nil, &ParseError{Raw: raw, Err: fmt.Errorf("no JSON object found")}
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(candidate), &out); err == nil {
		return out, nil
	}

	repaired := trailingCommaRe.ReplaceAllString(candidate, "$1")
	if err := json.Unmarshal([]byte(repaired), &out); err != nil {
		return nil, &ParseError{Raw: raw, Err: err}
	}
	return out, nil
}

// Decode normalizes raw and unmarshals the recovered object into v.
func Decode(raw string, v any) error {
	candidate := Extract(raw)
	if candidate == "" {
		return &ParseError{Raw: raw, Err: fmt.Errorf("no JSON object found")}
	}
	if err := json.Unmarshal([]byte(candidate), v); err == nil {
		return nil
	}
	repaired := trailingCommaRe.ReplaceAllString(candidate, "$1")
	if err := json.Unmarshal([]byte(repaired), v); err != nil {
		return &ParseError{Raw: raw, Err: err}
	}
	return nil
}
