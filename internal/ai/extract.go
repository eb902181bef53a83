package ai

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// ErrNoJSON means no parseable JSON value was found in the model's reply.
var ErrNoJSON = errors.New("ai: no JSON object or array found in model output")

var fenceRegex = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// trailingCommaRegex matches a comma followed only by whitespace before a
// closing brace/bracket. Models emit these routinely and encoding/json
// rejects them.
var trailingCommaRegex = regexp.MustCompile(`,\s*([}\]])`)

// ExtractJSON recovers a JSON value from free-form model output. It strips
// markdown fences, locates the first balanced {...} or [...] substring,
// and removes trailing commas before reparsing. The result is unmarshaled
// into dst.
func ExtractJSON(text string, dst any) error {
	candidate := text
	if m := fenceRegex.FindStringSubmatch(text); m != nil {
		candidate = m[1]
	}

	raw, ok := firstBalanced(candidate)
	if !ok {
		// The fence may have held prose; fall back to scanning the whole reply.
		if raw, ok = firstBalanced(text); !ok {
			return ErrNoJSON
		}
	}

	if err := json.Unmarshal([]byte(raw), dst); err == nil {
		return nil
	}

	cleaned := trailingCommaRegex.ReplaceAllString(raw, "$1")
	if err := json.Unmarshal([]byte(cleaned), dst); err != nil {
		return ErrNoJSON
	}
	return nil
}

// firstBalanced returns the first balanced {...} or [...] substring,
// tracking string literals so braces inside values don't miscount.
func firstBalanced(s string) (string, bool) {
	start := -1
	var openCh, closeCh byte
	for i := 0; i < len(s); i++ {
		if s[i] == '{' || s[i] == '[' {
			start = i
			openCh = s[i]
			if openCh == '{' {
				closeCh = '}'
			} else {
				closeCh = ']'
			}
			break
		}
	}
	if start < 0 {
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
		case openCh:
			depth++
		case closeCh:
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// Sentences splits model prose into trimmed non-empty lines, used when a
// feature wants line-oriented output (e.g. insight classification).
func Sentences(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*• "))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
