// Package jsonrepair recovers a JSON object from generative-model output
// that may be wrapped in prose or markdown, or contain small syntax errors.
//
// Recovery is a fixed pipeline of pure text transforms: strip code fences,
// slice to the outermost braces, strip comments, then a strict parse. If the
// strict parse fails, a repair pass quotes bare keys, removes trailing commas
// and doubles broken backslash escapes before one final parse attempt.
// Repair is syntax-only; no semantic content is ever guessed.
package jsonrepair

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// ErrNoObject is returned when no syntactically valid JSON object can be
// recovered from the input.
var ErrNoObject = errors.New("no valid JSON object in text")

var (
	fenceRe       = regexp.MustCompile("```json\n?|```")
	bareKeyRe     = regexp.MustCompile(`([{,]\s*)([A-Za-z0-9_]+)\s*:`)
	singleQuoteRe = regexp.MustCompile(`([{,]\s*)'([A-Za-z0-9_]+)'\s*:`)
	trailingComma = regexp.MustCompile(`,(\s*[}\]])`)
	escapeRe      = regexp.MustCompile(`(\\["\\/bfnrt]|\\u[0-9a-fA-F]{4})|(\\)`)
)

// Extract recovers one JSON object from text and returns it as bytes that
// are guaranteed to pass a strict parse. It fails with ErrNoObject when the
// text contains no object or the repair pass cannot produce valid syntax.
func Extract(text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrNoObject
	}

	cleaned := StripFences(text)
	sliced, ok := SliceObject(cleaned)
	if !ok {
		return nil, ErrNoObject
	}
	sliced = StripComments(sliced)

	if json.Valid([]byte(sliced)) {
		return []byte(sliced), nil
	}

	repaired := Repair(sliced)
	if json.Valid([]byte(repaired)) {
		return []byte(repaired), nil
	}
	return nil, ErrNoObject
}

// Unmarshal extracts a JSON object from text and decodes it into v.
func Unmarshal(text string, v any) error {
	data, err := Extract(text)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// StripFences removes markdown code-fence markers and trims whitespace.
func StripFences(s string) string {
	return strings.TrimSpace(fenceRe.ReplaceAllString(s, ""))
}

// SliceObject cuts s down to the span between the first '{' and the last
// '}' inclusive, discarding any surrounding prose. The second return value
// is false when no such span exists.
func SliceObject(s string) (string, bool) {
	first := strings.IndexByte(s, '{')
	last := strings.LastIndexByte(s, '}')
	if first == -1 || last == -1 || last < first {
		return "", false
	}
	return s[first : last+1], true
}

// StripComments removes //-style line comments and /* */-style block
// comments that occur outside string literals.
func StripComments(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]

		if inString {
			b.WriteByte(c)
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			continue
		}

		switch {
		case c == '"':
			inString = true
			b.WriteByte(c)
		case c == '/' && i+1 < len(s) && s[i+1] == '/':
			for i < len(s) && s[i] != '\n' {
				i++
			}
			if i < len(s) {
				b.WriteByte('\n')
			}
		case c == '/' && i+1 < len(s) && s[i+1] == '*':
			end := strings.Index(s[i+2:], "*/")
			if end == -1 {
				i = len(s)
			} else {
				i += 2 + end + 1
			}
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Repair applies the syntax-only correction stages in order: quote bare
// object keys, normalize single-quoted keys, drop trailing commas and
// double any backslash that does not begin a recognized escape sequence.
func Repair(s string) string {
	s = QuoteBareKeys(s)
	s = NormalizeSingleQuotedKeys(s)
	s = RemoveTrailingCommas(s)
	s = FixBadEscapes(s)
	return s
}

// QuoteBareKeys wraps identifier-like object keys in double quotes.
func QuoteBareKeys(s string) string {
	return bareKeyRe.ReplaceAllString(s, `$1"$2":`)
}

// NormalizeSingleQuotedKeys rewrites single-quoted object keys to
// double-quoted form.
func NormalizeSingleQuotedKeys(s string) string {
	return singleQuoteRe.ReplaceAllString(s, `$1"$2":`)
}

// RemoveTrailingCommas drops commas that directly precede a closing
// brace or bracket.
func RemoveTrailingCommas(s string) string {
	return trailingComma.ReplaceAllString(s, "$1")
}

// FixBadEscapes doubles every backslash that does not begin a recognized
// JSON escape sequence, treating it as a literal backslash rather than a
// broken escape. Valid escapes are left untouched.
func FixBadEscapes(s string) string {
	return escapeRe.ReplaceAllStringFunc(s, func(m string) string {
		if len(m) > 1 {
			return m
		}
		return `\\`
	})
}
