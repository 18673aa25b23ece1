package output

import (
	"strings"

	"github.com/sdpower/copilot-usage/internal/types"
)

// Placeholders that --format and --tooltip-format may use.
var placeholders = map[string]bool{
	"icon":            true,
	"icon_plain":      true,
	"time_icon":       true,
	"time_icon_plain": true,
	"used":            true,
	"used_str":        true,
	"quota":           true,
	"pct":             true,
	"reset":           true,
}

type segment struct {
	literal string
	name    string
}

// Template is a parsed format string. "{name}" is replaced by a value,
// "{{" and "}}" are literal braces.
type Template struct {
	raw      string
	segments []segment
}

// ParseTemplate rejects unknown placeholders, an unterminated "{" and a
// lone "}" with a types.TemplateError.
func ParseTemplate(s string) (*Template, error) {
	t := &Template{raw: s}
	var lit strings.Builder

	flush := func() {
		if lit.Len() > 0 {
			t.segments = append(t.segments, segment{literal: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			if i+1 < len(s) && s[i+1] == '{' {
				lit.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(s[i+1:], '}')
			if end < 0 {
				return nil, types.TemplateError{Template: s, Pos: i, Reason: "unterminated placeholder"}
			}
			name := s[i+1 : i+1+end]
			if !placeholders[name] {
				return nil, types.TemplateError{Template: s, Pos: i, Reason: "unknown placeholder {" + name + "}"}
			}
			flush()
			t.segments = append(t.segments, segment{name: name})
			i += end + 1
		case '}':
			if i+1 < len(s) && s[i+1] == '}' {
				lit.WriteByte('}')
				i++
				continue
			}
			return nil, types.TemplateError{Template: s, Pos: i, Reason: "single '}' encountered"}
		default:
			lit.WriteByte(s[i])
		}
	}
	flush()
	return t, nil
}

// Execute substitutes vars. Every name was checked at parse time.
func (t *Template) Execute(vars map[string]string) string {
	var b strings.Builder
	for _, seg := range t.segments {
		if seg.name != "" {
			b.WriteString(vars[seg.name])
			continue
		}
		b.WriteString(seg.literal)
	}
	return b.String()
}

func (t *Template) String() string {
	return t.raw
}
