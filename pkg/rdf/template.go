// Package rdf implements the row templating language that maps tabular
// records onto RDF triples. A template is a multi-line string; `#` lines are
// comments and every other non-blank line is parsed independently into a
// small AST, then evaluated once per data row.
package rdf

import (
	"fmt"
	"strings"
)

// LineNumberColumn is the synthetic column injected into every row before
// evaluation, holding the zero-based row index within the current chunk.
const LineNumberColumn = "LINE_NUMBER"

// TemplateError reports a malformed template line.
type TemplateError struct {
	Line int // 1-based line number within the template text
	Msg  string
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("template line %d: %s", e.Line, e.Msg)
}

type segmentKind int

const (
	segLiteral segmentKind = iota
	segColumn
	segBlankNode
)

// columnRef is a bracketed column reference, optionally carrying a value
// transform. checked marks references that participate in the "nan" row
// skip; bracket contents with characters outside the column charset are
// substituted (inside blank nodes) but never checked, matching the original
// template grammar.
type columnRef struct {
	field     string
	transform string
	checked   bool
}

type segment struct {
	kind segmentKind
	text string      // literal text
	ref  columnRef   // column segment
	node []segment   // blank node inner segments
}

// Line is one parsed template line.
type Line struct {
	raw      string
	segments []segment
	fn       string // call-site function name, "" when absent
	list     bool   // terminator is '*' instead of '.'
}

// Raw returns the unparsed template line.
func (l *Line) Raw() string { return l.raw }

// List reports whether the line carries the multi-value marker.
func (l *Line) List() bool { return l.list }

// Template is a parsed set of template lines.
type Template struct {
	lines []*Line
}

// Lines returns the parsed non-comment lines in template order.
func (t *Template) Lines() []*Line { return t.lines }

// Len returns the number of effective template lines.
func (t *Template) Len() int { return len(t.lines) }

// ParseTemplate parses template text into lines, skipping comments and blank
// lines. Unsupported functions or value transforms fail here rather than
// during row evaluation.
func ParseTemplate(text string) (*Template, error) {
	tmpl := &Template{}
	for i, raw := range strings.Split(text, "\n") {
		if strings.HasPrefix(raw, "#") || strings.TrimSpace(raw) == "" {
			continue
		}
		line, err := parseLine(raw, i+1)
		if err != nil {
			return nil, err
		}
		tmpl.lines = append(tmpl.lines, line)
	}
	return tmpl, nil
}

func parseLine(raw string, n int) (*Line, error) {
	line := &Line{raw: raw}
	line.list = strings.HasSuffix(strings.TrimRight(raw, " \t"), "*")

	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			line.segments = append(line.segments, segment{kind: segLiteral, text: lit.String()})
			lit.Reset()
		}
	}

	i := 0
	for i < len(raw) {
		switch {
		case strings.HasPrefix(raw[i:], "<_:"):
			end := strings.IndexByte(raw[i:], '>')
			if end < 0 {
				lit.WriteByte(raw[i])
				i++
				continue
			}
			tok := raw[i : i+end+1]
			if !strings.Contains(tok, "[") {
				// fixed blank node, no column slots
				lit.WriteString(tok)
				i += end + 1
				continue
			}
			inner, err := parseBlankNode(tok, n)
			if err != nil {
				return nil, err
			}
			flush()
			line.segments = append(line.segments, segment{kind: segBlankNode, node: inner})
			i += end + 1
		case raw[i] == '[':
			end := strings.IndexByte(raw[i:], ']')
			if end < 0 {
				lit.WriteByte(raw[i])
				i++
				continue
			}
			content := raw[i+1 : i+end]
			if !isColumnContent(content) {
				// not a column reference; kept verbatim so downstream
				// cleaning can spot the unsubstituted placeholder
				lit.WriteString(raw[i : i+end+1])
				i += end + 1
				continue
			}
			ref, err := parseColumnRef(content, n, true)
			if err != nil {
				return nil, err
			}
			flush()
			line.segments = append(line.segments, segment{kind: segColumn, ref: ref})
			i += end + 1
		default:
			lit.WriteByte(raw[i])
			i++
		}
	}
	flush()

	if m := reFunctions.FindStringSubmatch(raw); m != nil {
		name := m[2]
		if !isSupportedFunction(name) {
			return nil, &TemplateError{Line: n, Msg: fmt.Sprintf("unsupported function %s", name)}
		}
		line.fn = name
	}

	return line, nil
}

// parseBlankNode splits the inside of a <_:...> token into literal runs and
// column slots.
func parseBlankNode(tok string, n int) ([]segment, error) {
	inner := tok[1 : len(tok)-1] // strip < >
	var segs []segment
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			segs = append(segs, segment{kind: segLiteral, text: lit.String()})
			lit.Reset()
		}
	}

	i := 0
	for i < len(inner) {
		if inner[i] != '[' {
			lit.WriteByte(inner[i])
			i++
			continue
		}
		end := strings.IndexByte(inner[i:], ']')
		if end < 0 {
			lit.WriteByte(inner[i])
			i++
			continue
		}
		content := inner[i+1 : i+end]
		ref, err := parseColumnRef(content, n, isColumnContent(content))
		if err != nil {
			return nil, err
		}
		flush()
		segs = append(segs, segment{kind: segColumn, ref: ref})
		i += end + 1
	}
	flush()

	out := make([]segment, 0, 1)
	out = append(out, segment{kind: segLiteral, text: "<"})
	out = append(out, segs...)
	out = append(out, segment{kind: segLiteral, text: ">"})
	return out, nil
}

func parseColumnRef(content string, n int, checked bool) (columnRef, error) {
	parts := strings.SplitN(content, ",", 2)
	ref := columnRef{field: parts[0], checked: checked}
	if len(parts) > 1 {
		ref.transform = parts[1]
		switch ref.transform {
		case "nospace", "toUpper", "toLower":
		default:
			return columnRef{}, &TemplateError{Line: n, Msg: fmt.Sprintf("unsupported function %s", ref.transform)}
		}
	}
	return ref, nil
}

// isColumnContent reports whether a bracket body is a plain column
// reference: ASCII word characters, space, dot, comma or pipe.
func isColumnContent(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '_', c == ' ', c == '.', c == ',', c == '|':
		default:
			return false
		}
	}
	return true
}

// checkedRefs yields the column references that take part in the "nan" skip
// for the line, including checkable slots inside blank nodes.
func (l *Line) checkedRefs() []columnRef {
	var refs []columnRef
	for _, seg := range l.segments {
		switch seg.kind {
		case segColumn:
			if seg.ref.checked {
				refs = append(refs, seg.ref)
			}
		case segBlankNode:
			for _, in := range seg.node {
				if in.kind == segColumn && in.ref.checked {
					refs = append(refs, in.ref)
				}
			}
		}
	}
	return refs
}
