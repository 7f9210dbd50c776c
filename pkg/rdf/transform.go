package rdf

import (
	"regexp"
	"strconv"
	"strings"
)

// reTriple splits one emitted line into subject, predicate, object and
// terminator. The terminator is `.` for scalar statements and `*` for list
// membership.
var reTriple = regexp.MustCompile(`(<\S+>)\s+(<\S+>)\s+(.*)\s+([.*])$`)

// TripleMap accumulates triples keyed by "subject predicate", collapsing
// repeats and gathering list statements per key. Keys keep first-seen order
// so output is stable for a given input.
type TripleMap struct {
	order   []string
	scalars map[string]string
	lists   map[string][]string
}

// NewTripleMap creates an empty accumulator.
func NewTripleMap() *TripleMap {
	return &TripleMap{
		scalars: make(map[string]string),
		lists:   make(map[string][]string),
	}
}

// Add parses a single statement line into the map. Lines that do not match
// the triple shape, and lines containing a quoted "nan" anywhere, are
// ignored.
func (tm *TripleMap) Add(line string) {
	trimmed := strings.TrimSpace(line)
	if strings.Contains(trimmed, `"nan"`) {
		return
	}
	m := reTriple.FindStringSubmatch(trimmed)
	if m == nil {
		return
	}
	subject, predicate, object, term := m[1], m[2], m[3], m[4]
	key := subject + " " + predicate
	if term == "*" {
		if prev, seen := tm.scalars[key]; seen {
			tm.lists[key] = append(tm.lists[key], prev)
			delete(tm.scalars, key)
		} else if _, seen := tm.lists[key]; !seen {
			tm.order = append(tm.order, key)
		}
		tm.lists[key] = append(tm.lists[key], object)
		return
	}
	if _, seen := tm.lists[key]; !seen {
		if _, seen := tm.scalars[key]; !seen {
			tm.order = append(tm.order, key)
		}
	}
	tm.scalars[key] = object
}

// Len reports the number of distinct subject-predicate keys.
func (tm *TripleMap) Len() int {
	return len(tm.order)
}

// String renders the accumulated triples, one statement per line, each
// terminated with `.`. List keys emit one line per collected object.
func (tm *TripleMap) String() string {
	var b strings.Builder
	for _, key := range tm.order {
		if objects, ok := tm.lists[key]; ok {
			for _, o := range objects {
				b.WriteString(key + " " + o + " .\n")
			}
			continue
		}
		b.WriteString(key + " " + tm.scalars[key] + " .\n")
	}
	return b.String()
}

// TransformRows evaluates every template line against every row and returns
// the combined statement block. Each row additionally exposes its zero-based
// position within rows under the LINE_NUMBER column.
func (ev *Evaluator) TransformRows(tpl *Template, rows []Row) (string, error) {
	tm := NewTripleMap()
	for i, row := range rows {
		row[LineNumberColumn] = strconv.Itoa(i)
		for _, line := range tpl.Lines() {
			out, err := ev.Substitute(line, row)
			if err != nil {
				return "", err
			}
			if out == "" {
				continue
			}
			for _, stmt := range strings.Split(out, "\n") {
				if strings.TrimSpace(stmt) == "" {
					continue
				}
				tm.Add(stmt)
			}
		}
	}
	return tm.String(), nil
}
