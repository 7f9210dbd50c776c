package rdf

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Function call sites take the form `prefix=name(args)rest` with no double
// quote ahead of the `=`. The same pattern is applied to the raw line at
// parse time (name validation) and to the substituted line at evaluation.
var reFunctions = regexp.MustCompile(`^([^"]*)=(\w+)\(([^)]*)\)(.*)$`)

var (
	reNonWord = regexp.MustCompile(`\W`)
	reSpace   = regexp.MustCompile(`\s`)
)

// isoMillis mirrors the wire format of the datetime function: UTC with
// millisecond precision.
const isoMillis = "2006-01-02T15:04:05.000Z"

func isSupportedFunction(name string) bool {
	switch name {
	case "geoloc", "datetime", "randomDate", "split":
		return true
	}
	return false
}

// Row is one tabular record keyed by normalized column name. Values are
// strings, numbers, booleans or nil.
type Row map[string]any

// Evaluator applies parsed template lines to rows.
//
// randomDate draws from Rand when set, which is how tests pin the otherwise
// deliberately non-deterministic output; templates that use randomDate must
// not be assumed idempotent across runs.
type Evaluator struct {
	rand *rand.Rand
}

// EvaluatorParams configures an Evaluator.
type EvaluatorParams struct {
	Rand *rand.Rand
}

// NewEvaluator creates an Evaluator.
func NewEvaluator(params EvaluatorParams) *Evaluator {
	return &Evaluator{rand: params.Rand}
}

// Substitute evaluates one parsed line against a row. It returns "" with a
// nil error when a referenced column holds the literal string "nan"; the
// line contributes nothing for that row.
func (ev *Evaluator) Substitute(line *Line, row Row) (string, error) {
	for _, ref := range line.checkedRefs() {
		if v, ok := row[ref.field]; ok && valueString(v) == "nan" {
			return "", nil
		}
	}

	var b strings.Builder
	for _, seg := range line.segments {
		switch seg.kind {
		case segLiteral:
			b.WriteString(seg.text)
		case segColumn:
			v, err := substituteValue(seg.ref, row, false)
			if err != nil {
				return "", err
			}
			b.WriteString(v)
		case segBlankNode:
			for _, in := range seg.node {
				if in.kind == segLiteral {
					b.WriteString(in.text)
					continue
				}
				v, err := substituteValue(in.ref, row, true)
				if err != nil {
					return "", err
				}
				b.WriteString(v)
			}
		}
	}

	return ev.applyFunction(b.String())
}

// substituteValue resolves one column reference. Blank-node position
// sanitizes the value so the synthesized identifier stays a single token.
func substituteValue(ref columnRef, row Row, blank bool) (string, error) {
	val := valueString(row[ref.field])
	val = strings.ReplaceAll(val, `"`, `\"`)
	val = strings.ReplaceAll(val, "\n", `\n`)
	if blank {
		val = reNonWord.ReplaceAllString(val, "_")
	}
	switch ref.transform {
	case "":
	case "nospace":
		val = reSpace.ReplaceAllString(val, "_")
	case "toUpper":
		val = strings.ToUpper(val)
	case "toLower":
		val = strings.ToLower(val)
	default:
		return "", fmt.Errorf("unsupported function %s", ref.transform)
	}
	return val, nil
}

// valueString renders a row value the way it appears in triples. Numbers use
// the shortest representation that round-trips, so "100.50" read as a number
// becomes "100.5".
func valueString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// applyFunction rewrites the first function call site in a substituted line.
// Lines without a call site pass through untouched.
func (ev *Evaluator) applyFunction(s string) (string, error) {
	m := reFunctions.FindStringSubmatch(s)
	if m == nil {
		return s, nil
	}
	prefix, name, args, rest := m[1], m[2], m[3], m[4]

	switch name {
	case "geoloc":
		params := strings.Split(args, ",")
		if len(params) < 2 {
			return "", fmt.Errorf("geoloc: want lat,lng arguments, got %q", args)
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(params[0]), 64)
		if err != nil {
			return "", fmt.Errorf("geoloc: invalid latitude %q", params[0])
		}
		lng, err := strconv.ParseFloat(strings.TrimSpace(params[1]), 64)
		if err != nil {
			return "", fmt.Errorf("geoloc: invalid longitude %q", params[1])
		}
		point := fmt.Sprintf("{'type':'Point','coordinates':[%s,%s]}",
			strconv.FormatFloat(lng, 'f', 8, 64), strconv.FormatFloat(lat, 'f', 8, 64))
		return prefix + `"` + point + `"^^<geo:geojson>` + rest, nil

	case "datetime":
		params := strings.Split(args, ",")
		t, err := dateparse.ParseAny(strings.TrimSpace(params[0]))
		if err != nil {
			return "", fmt.Errorf("datetime: %w", err)
		}
		return prefix + `"` + t.UTC().Format(isoMillis) + `"` + rest, nil

	case "randomDate":
		params := strings.Split(args, ",")
		if len(params) < 2 {
			return "", fmt.Errorf("randomDate: want start,end arguments, got %q", args)
		}
		start, err := dateparse.ParseAny(strings.TrimSpace(params[0]))
		if err != nil {
			return "", fmt.Errorf("randomDate: %w", err)
		}
		end, err := dateparse.ParseAny(strings.TrimSpace(params[1]))
		if err != nil {
			return "", fmt.Errorf("randomDate: %w", err)
		}
		span := end.Sub(start)
		var offset time.Duration
		if span > 0 {
			offset = time.Duration(ev.float64() * float64(span))
		}
		day := start.Add(offset).UTC().Format("2006-01-02")
		return prefix + `"` + day + `"` + rest, nil

	case "split":
		return splitFunction(prefix, args, rest)
	}

	return "", fmt.Errorf("unsupported function %s", name)
}

// splitFunction fans a bracketed quoted list out into one triple line per
// element; anything else becomes a single quoted object.
func splitFunction(prefix, args, rest string) (string, error) {
	arg := strings.TrimSpace(args)
	if strings.HasPrefix(arg, "[") && strings.HasSuffix(arg, "]") {
		var values []string
		if err := json.Unmarshal([]byte(strings.ReplaceAll(arg, "'", `"`)), &values); err != nil {
			return "", fmt.Errorf("split: invalid list %q: %w", arg, err)
		}
		var b strings.Builder
		for _, v := range values {
			b.WriteString(prefix + `"` + strings.TrimSpace(v) + `"` + rest + "\n")
		}
		return b.String(), nil
	}
	return prefix + `"` + arg + `"` + rest + "\n", nil
}

func (ev *Evaluator) float64() float64 {
	if ev.rand != nil {
		return ev.rand.Float64()
	}
	return rand.Float64()
}
