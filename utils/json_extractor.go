package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedOutput is matched (via errors.Is) by every MalformedOutputError.
var ErrMalformedOutput = errors.New("malformed model output")

// MalformedOutputError carries the raw model text so callers can log it.
type MalformedOutputError struct {
	Raw    string
	Reason string
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("malformed model output: %s (raw length=%d)", e.Reason, len(e.Raw))
}

func (e *MalformedOutputError) Is(target error) bool {
	return target == ErrMalformedOutput
}

// ExtractJSON pulls the first JSON object out of an LLM response.
//
// In order it tries:
//   - the string-aware balanced span starting at the first '{'
//   - the greedy span from the first '{' to the last '}'
//   - a repair pass that strips trailing commas, closes an open string
//     and appends whatever closers are still pending
//
// Prose and markdown fences around the object are skipped by the scan, so
// backticks inside string values are kept. Repair never removes a member:
// when the closed document still does not parse the call fails.
func ExtractJSON(response string) (string, error) {
	start := strings.Index(response, "{")
	if start == -1 {
		return "", &MalformedOutputError{Raw: response, Reason: "no JSON object found"}
	}

	span, balanced := extractJSONByBrackets(response, start)
	if balanced && json.Valid([]byte(span)) {
		return span, nil
	}

	if end := strings.LastIndex(response, "}"); end > start {
		candidate := response[start : end+1]
		if json.Valid([]byte(candidate)) {
			return candidate, nil
		}
	}

	if repaired, ok := repairJSON(span); ok {
		return repaired, nil
	}

	return "", &MalformedOutputError{Raw: response, Reason: "unrecoverable JSON"}
}

// ExtractJSONTo extracts JSON from response and unmarshals it into target.
// Unknown fields in the document are ignored; known fields keep their values.
func ExtractJSONTo(response string, target interface{}) error {
	jsonStr, err := ExtractJSON(response)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(jsonStr), target); err != nil {
		return &MalformedOutputError{Raw: response, Reason: err.Error()}
	}
	return nil
}

// extractJSONByBrackets returns the object that opens at start, matching
// braces outside of string literals. When the object never closes, ok is
// false and the returned text runs to the first backtick outside a string
// (a closing code fence) or to the end of s.
func extractJSONByBrackets(s string, start int) (string, bool) {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]

		if escaped {
			escaped = false
			continue
		}
		if c == '\\' && inString {
			escaped = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch c {
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		case '`':
			return s[start:i], false
		}
	}

	return s[start:], false
}

// repairJSON closes a truncated or sloppy object. It only removes trailing
// commas and appends closers, so when that does not parse it reports failure.
func repairJSON(s string) (string, bool) {
	body, stack := scanJSON(s)
	fixed := closeJSON(body, stack)
	if !json.Valid([]byte(fixed)) {
		return "", false
	}
	return fixed, true
}

// scanJSON walks s outside of string literals. It removes trailing commas
// before closers, closes an unterminated string and reports the openers that
// are still pending.
func scanJSON(s string) (string, []byte) {
	out := make([]byte, 0, len(s)+8)
	var stack []byte
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]

		if inString {
			out = append(out, c)
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
			out = append(out, c)
		case '{', '[':
			stack = append(stack, c)
			out = append(out, c)
		case '}', ']':
			open := byte('{')
			if c == ']' {
				open = '['
			}
			out = trimTrailingComma(out)
			for len(stack) > 0 && stack[len(stack)-1] != open {
				out = append(out, closerFor(stack[len(stack)-1]))
				stack = stack[:len(stack)-1]
			}
			if len(stack) == 0 {
				return string(out), nil
			}
			stack = stack[:len(stack)-1]
			out = append(out, c)
			if len(stack) == 0 {
				return string(out), nil
			}
		default:
			out = append(out, c)
		}
	}

	if inString {
		if escaped {
			out = out[:len(out)-1]
		}
		out = append(out, '"')
	}

	return string(out), stack
}

func closeJSON(body string, stack []byte) string {
	var b strings.Builder
	trimmed := strings.TrimRight(body, " \t\r\n")
	trimmed = strings.TrimRight(strings.TrimSuffix(trimmed, ","), " \t\r\n")
	b.WriteString(trimmed)
	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteByte(closerFor(stack[i]))
	}
	return b.String()
}

func trimTrailingComma(out []byte) []byte {
	j := len(out) - 1
	for j >= 0 && (out[j] == ' ' || out[j] == '\n' || out[j] == '\t' || out[j] == '\r') {
		j--
	}
	if j >= 0 && out[j] == ',' {
		return out[:j]
	}
	return out
}

func closerFor(open byte) byte {
	if open == '[' {
		return ']'
	}
	return '}'
}
