package rdf

import (
	"strings"
	"testing"
)

func TestTripleMapDeduplicatesScalars(t *testing.T) {
	tm := NewTripleMap()
	tm.Add(`<_:a> <name> "Ada" .`)
	tm.Add(`<_:a> <name> "Ada Lovelace" .`)
	if tm.Len() != 1 {
		t.Fatalf("expected 1 key, got %d", tm.Len())
	}
	if got := tm.String(); got != "<_:a> <name> \"Ada Lovelace\" .\n" {
		t.Errorf("last write should win, got %q", got)
	}
}

func TestTripleMapLists(t *testing.T) {
	tm := NewTripleMap()
	tm.Add(`<_:a> <skill> "go" *`)
	tm.Add(`<_:a> <skill> "sql" *`)
	tm.Add(`<_:a> <name> "Ada" .`)
	want := "<_:a> <skill> \"go\" .\n<_:a> <skill> \"sql\" .\n<_:a> <name> \"Ada\" .\n"
	if got := tm.String(); got != want {
		t.Errorf("got  %q\nwant %q", got, want)
	}
}

func TestTripleMapIgnoresMalformedAndNan(t *testing.T) {
	tm := NewTripleMap()
	tm.Add("not a triple")
	tm.Add(`<_:a> <age> "nan" .`)
	tm.Add("")
	if tm.Len() != 0 {
		t.Errorf("expected empty map, got %d keys", tm.Len())
	}
}

func TestTripleMapListKeepsDuplicateValues(t *testing.T) {
	tm := NewTripleMap()
	tm.Add(`<_:a> <tag> "go" *`)
	tm.Add(`<_:a> <tag> "sql" *`)
	tm.Add(`<_:a> <tag> "go" *`)
	want := "<_:a> <tag> \"go\" .\n<_:a> <tag> \"sql\" .\n<_:a> <tag> \"go\" .\n"
	if got := tm.String(); got != want {
		t.Errorf("got  %q\nwant %q", got, want)
	}
}

func TestTripleMapDropsQuotedNanAnywhere(t *testing.T) {
	tm := NewTripleMap()
	tm.Add(`<_:a> <loc> "nan"^^<geo:geojson> .`)
	tm.Add(`<_:a> <tag> "nan" *`)
	if tm.Len() != 0 {
		t.Errorf("expected empty map, got %d keys", tm.Len())
	}
}

func TestTripleMapKeepsInsertionOrder(t *testing.T) {
	tm := NewTripleMap()
	tm.Add(`<_:b> <p> "1" .`)
	tm.Add(`<_:a> <p> "2" .`)
	tm.Add(`<_:b> <p> "3" .`)
	lines := strings.Split(strings.TrimSpace(tm.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[0], "<_:b>") || !strings.HasPrefix(lines[1], "<_:a>") {
		t.Errorf("order not preserved: %v", lines)
	}
}

func TestTransformRowsInjectsLineNumber(t *testing.T) {
	tpl, err := ParseTemplate(`<_:row_[LINE_NUMBER]> <name> "[Name]" .`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ev := NewEvaluator(EvaluatorParams{})
	out, err := ev.TransformRows(tpl, []Row{{"Name": "Ada"}, {"Name": "Grace"}})
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	want := "<_:row_0> <name> \"Ada\" .\n<_:row_1> <name> \"Grace\" .\n"
	if out != want {
		t.Errorf("got  %q\nwant %q", out, want)
	}
}

func TestTransformRowsCollapsesRepeatedSubjects(t *testing.T) {
	tpl, err := ParseTemplate("<_:d_[Dept]> <dgraph.type> <DEPARTMENT> .\n<_:d_[Dept]> <name> \"[Dept]\" .")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ev := NewEvaluator(EvaluatorParams{})
	out, err := ev.TransformRows(tpl, []Row{{"Dept": "Sales"}, {"Dept": "Sales"}, {"Dept": "Ops"}})
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	want := "<_:d_Sales> <dgraph.type> <DEPARTMENT> .\n" +
		"<_:d_Sales> <name> \"Sales\" .\n" +
		"<_:d_Ops> <dgraph.type> <DEPARTMENT> .\n" +
		"<_:d_Ops> <name> \"Ops\" .\n"
	if out != want {
		t.Errorf("got  %q\nwant %q", out, want)
	}
}

func TestTransformRowsSkipsNanRows(t *testing.T) {
	tpl, err := ParseTemplate(`<_:p_[id]> <email> "[Email]" .`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ev := NewEvaluator(EvaluatorParams{})
	out, err := ev.TransformRows(tpl, []Row{
		{"id": "1", "Email": "a@b.c"},
		{"id": "2", "Email": "nan"},
	})
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	if out != "<_:p_1> <email> \"a@b.c\" .\n" {
		t.Errorf("got %q", out)
	}
}
