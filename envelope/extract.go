// Package envelope implements the JSON Envelope Parser (C2): extracting a
// single JSON value out of an LLM's raw text reply — which may wrap it in a
// fenced code block, prefix or trail it with commentary, or just emit it
// bare — and validating the result against a JSON Schema.
package envelope

import (
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

var fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// Extract pulls the first well-formed JSON object or array out of raw text.
// It tries, in order: a fenced ```json ... ``` or ``` ... ``` code block; the
// full trimmed text as-is; and finally the substring between the first `{`
// or `[` and its matching closing brace/bracket, tolerating trailing
// commentary the model appended after the JSON value. Returns ("", false)
// if nothing in raw parses as JSON.
func Extract(raw string) (string, bool) {
	if m := fencedBlock.FindStringSubmatch(raw); m != nil {
		if candidate := strings.TrimSpace(m[1]); gjson.Valid(candidate) {
			return candidate, true
		}
	}

	trimmed := strings.TrimSpace(raw)
	if gjson.Valid(trimmed) {
		return trimmed, true
	}

	if candidate, ok := extractBalancedSpan(trimmed); ok {
		return candidate, true
	}

	return "", false
}

// extractBalancedSpan scans for the first '{' or '[' and returns the
// substring up to its matching closing delimiter, ignoring braces/brackets
// that appear inside JSON string literals.
func extractBalancedSpan(s string) (string, bool) {
	start := -1
	var open, close byte
	for i := 0; i < len(s); i++ {
		if s[i] == '{' || s[i] == '[' {
			start = i
			open = s[i]
			if open == '{' {
				close = '}'
			} else {
				close = ']'
			}
			break
		}
	}
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				candidate := s[start : i+1]
				if gjson.Valid(candidate) {
					return candidate, true
				}
				return "", false
			}
		}
	}
	return "", false
}
