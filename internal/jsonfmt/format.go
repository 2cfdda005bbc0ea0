// Package jsonfmt re-indents compact JSON text.
//
// The output uses one tab per nesting level, puts every member and element on
// its own line and adds a single space after each colon. Empty objects and
// arrays stay on one line. Formatting is idempotent and only ever changes
// whitespace outside of string literals.
package jsonfmt

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Format re-indents a syntactically valid JSON document.
//
// The input is scanned once. A newline and its indentation are not written
// when a structural character is seen but deferred until the next significant
// character, so that a closing bracket directly after its opening bracket
// collapses to "[]" or "{}".
func Format(compact string) string {
	var b strings.Builder
	b.Grow(len(compact) + len(compact)/4)

	level := 0
	// pending is the indentation level owed before the next token, or -1.
	pending := -1
	// opened is set when pending was produced by '{' or '['.
	opened := false
	inString := false
	escaped := false

	flush := func() {
		if pending >= 0 {
			newline(&b, pending)
			pending = -1
		}
		opened = false
	}

	for i := 0; i < len(compact); i++ {
		c := compact[i]
		if inString {
			b.WriteByte(c)
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
		case ' ', '\t', '\n', '\r':
			// Insignificant whitespace; any pending newline carries over.
		case '{', '[':
			flush()
			b.WriteByte(c)
			level++
			pending = level
			opened = true
		case '}', ']':
			if level > 0 {
				level--
			}
			if opened {
				pending = -1
				opened = false
			} else {
				pending = -1
				newline(&b, level)
			}
			b.WriteByte(c)
		case ',':
			flush()
			b.WriteByte(c)
			pending = level
		case ':':
			flush()
			b.WriteString(": ")
		case '"':
			flush()
			b.WriteByte(c)
			inString = true
		default:
			flush()
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Marshal encodes v as JSON and formats it.
//
// HTML characters are not escaped so that documents stay readable when edited
// by hand.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return []byte(Format(buf.String())), nil
}

func newline(b *strings.Builder, level int) {
	b.WriteByte('\n')
	for range level {
		b.WriteByte('\t')
	}
}
