package dgraph

import (
	"regexp"
	"strings"
)

// reSplitTriples separates statements on `.`-terminated line boundaries.
var reSplitTriples = regexp.MustCompile(`\s*\.\s*\n`)

// reURIObject matches a statement whose object is a URI, which marks its
// predicate as a relationship.
var reURIObject = regexp.MustCompile(`<([^>]+)>\s+<([^>]+)>\s+<([^>]+)>\s*\.`)

// reStatement captures subject, predicate and either a literal or a URI
// object.
var reStatement = regexp.MustCompile(`<([^>]+)>\s+<([^>]+)>\s+(?:"([^"]*)"|<([^>]+)>)\s*\.`)

// relationship is one queued node-to-node edge.
type relationship struct {
	From      string
	To        string
	Predicate string
}

// mutationSet is an RDF block compiled into the JSON mutation shape the
// /mutate endpoint accepts.
type mutationSet struct {
	Triples       []string
	Entities      []map[string]any
	Relationships []relationship
	// Predicates are the relationship predicates in first-seen order.
	Predicates []string
}

// compileMutations parses an RDF block into entities keyed by blank node.
// Literal objects become entity properties; URI objects become uid edges,
// with the referenced node materialized as a stub entity when it never
// appears as a subject. Repeated edges on one predicate promote the value to
// an array.
func compileMutations(rdfData string) *mutationSet {
	set := &mutationSet{}
	predicateSeen := make(map[string]struct{})

	for _, raw := range reSplitTriples.Split(rdfData, -1) {
		triple := strings.TrimSpace(raw)
		if triple == "" || strings.HasPrefix(triple, "#") {
			continue
		}
		if !strings.HasSuffix(triple, ".") {
			triple += " ."
		}
		set.Triples = append(set.Triples, triple)

		if m := reURIObject.FindStringSubmatch(triple); m != nil {
			if _, ok := predicateSeen[m[2]]; !ok {
				predicateSeen[m[2]] = struct{}{}
				set.Predicates = append(set.Predicates, m[2])
			}
		}
	}

	entities := make(map[string]map[string]any)
	var order []string
	ensure := func(uid string) map[string]any {
		if e, ok := entities[uid]; ok {
			return e
		}
		e := map[string]any{"uid": uid}
		entities[uid] = e
		order = append(order, uid)
		return e
	}

	for _, triple := range set.Triples {
		idx := reStatement.FindStringSubmatchIndex(triple)
		if idx == nil {
			continue
		}
		subject := triple[idx[2]:idx[3]]
		predicate := triple[idx[4]:idx[5]]
		entity := ensure(subject)

		if idx[6] >= 0 {
			entity[predicate] = triple[idx[6]:idx[7]]
			continue
		}
		object := triple[idx[8]:idx[9]]
		set.Relationships = append(set.Relationships, relationship{
			From:      subject,
			To:        object,
			Predicate: predicate,
		})
		ensure(object)
	}

	for _, rel := range set.Relationships {
		entity := entities[rel.From]
		edge := map[string]any{"uid": rel.To}
		existing, ok := entity[rel.Predicate]
		switch {
		case !ok:
			entity[rel.Predicate] = edge
		case isAnySlice(existing):
			entity[rel.Predicate] = append(existing.([]any), edge)
		default:
			entity[rel.Predicate] = []any{existing, edge}
		}
	}

	for _, uid := range order {
		set.Entities = append(set.Entities, entities[uid])
	}
	return set
}

// schemaFor builds the alter payload: every relationship predicate gets a
// reverse-indexed uid edge, and xid is always declared for external id
// upserts.
func schemaFor(predicates []string) string {
	var b strings.Builder
	for _, predicate := range predicates {
		b.WriteString(predicate + ": uid @reverse .\n")
	}
	b.WriteString("xid: string @index(exact) @upsert .\n")
	return b.String()
}

func isAnySlice(v any) bool {
	_, ok := v.([]any)
	return ok
}
