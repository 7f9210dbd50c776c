package dgraph

import (
	"testing"
)

const sampleRDF = `<_:emp_1> <dgraph.type> <EMPLOYEE> .
<_:emp_1> <name> "Ada" .
<_:emp_1> <works_in> <_:dept_Engineering> .
<_:emp_2> <name> "Grace" .
<_:emp_2> <works_in> <_:dept_Engineering> .
<_:dept_Engineering> <name> "Engineering" .
`

func entityByUID(t *testing.T, set *mutationSet, uid string) map[string]any {
	t.Helper()
	for _, e := range set.Entities {
		if e["uid"] == uid {
			return e
		}
	}
	t.Fatalf("entity %s not found", uid)
	return nil
}

func TestCompileMutationsEntities(t *testing.T) {
	set := compileMutations(sampleRDF)
	if len(set.Triples) != 6 {
		t.Fatalf("triples: %d", len(set.Triples))
	}
	if len(set.Entities) != 4 {
		t.Fatalf("entities: %d", len(set.Entities))
	}

	emp := entityByUID(t, set, "_:emp_1")
	if emp["name"] != "Ada" {
		t.Errorf("literal property: %v", emp["name"])
	}
	edge, ok := emp["works_in"].(map[string]any)
	if !ok || edge["uid"] != "_:dept_Engineering" {
		t.Errorf("uid edge: %v", emp["works_in"])
	}
}

func TestCompileMutationsRelationshipPredicates(t *testing.T) {
	set := compileMutations(sampleRDF)
	if len(set.Predicates) != 2 {
		t.Fatalf("predicates: %v", set.Predicates)
	}
	if set.Predicates[0] != "dgraph.type" || set.Predicates[1] != "works_in" {
		t.Errorf("predicate order: %v", set.Predicates)
	}
	if len(set.Relationships) != 3 {
		t.Errorf("relationships: %d", len(set.Relationships))
	}
}

func TestCompileMutationsStubEntity(t *testing.T) {
	set := compileMutations("<_:a> <linked_to> <_:never_defined> .\n")
	stub := entityByUID(t, set, "_:never_defined")
	if len(stub) != 1 {
		t.Errorf("stub should only carry uid: %v", stub)
	}
}

func TestCompileMutationsArrayPromotion(t *testing.T) {
	rdf := "<_:p> <knows> <_:a> .\n<_:p> <knows> <_:b> .\n<_:p> <knows> <_:c> .\n"
	set := compileMutations(rdf)
	p := entityByUID(t, set, "_:p")
	edges, ok := p["knows"].([]any)
	if !ok {
		t.Fatalf("expected array promotion, got %T", p["knows"])
	}
	if len(edges) != 3 {
		t.Errorf("edges: %d", len(edges))
	}
	first, ok := edges[0].(map[string]any)
	if !ok || first["uid"] != "_:a" {
		t.Errorf("first edge: %v", edges[0])
	}
}

func TestCompileMutationsSkipsCommentsAndBlanks(t *testing.T) {
	rdf := "# generated\n\n<_:a> <name> \"x\" .\n\n"
	set := compileMutations(rdf)
	if len(set.Triples) != 1 {
		t.Errorf("triples: %v", set.Triples)
	}
}

func TestCompileMutationsRepairsMissingTerminator(t *testing.T) {
	set := compileMutations("<_:a> <name> \"x\" .\n<_:b> <name> \"y\"")
	if len(set.Triples) != 2 {
		t.Fatalf("triples: %v", set.Triples)
	}
	if set.Triples[1] != `<_:b> <name> "y" .` {
		t.Errorf("terminator not repaired: %q", set.Triples[1])
	}
}

func TestSchemaFor(t *testing.T) {
	schema := schemaFor([]string{"works_in", "knows"})
	want := "works_in: uid @reverse .\nknows: uid @reverse .\nxid: string @index(exact) @upsert .\n"
	if schema != want {
		t.Errorf("got  %q\nwant %q", schema, want)
	}
}
