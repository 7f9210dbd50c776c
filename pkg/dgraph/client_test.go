package dgraph

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	conn, err := Parse(server.URL)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return NewClient(ClientParams{Connection: conn}), server
}

func TestTestConnectionProbesStateFirst(t *testing.T) {
	var paths []string
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/state" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	if !client.TestConnection(context.Background()) {
		t.Fatal("expected connection test to pass")
	}
	if len(paths) != 1 || paths[0] != "/state" {
		t.Errorf("probe order: %v", paths)
	}
}

func TestTestConnectionFallsThroughProbes(t *testing.T) {
	var paths []string
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	if !client.TestConnection(context.Background()) {
		t.Fatal("expected connection test to pass via /health")
	}
	want := []string{"/state", "/", "/health"}
	if len(paths) != len(want) {
		t.Fatalf("probe order: %v", paths)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("probe %d: got %q, want %q", i, paths[i], want[i])
		}
	}
}

func TestTestConnectionAllProbesFail(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	if client.TestConnection(context.Background()) {
		t.Fatal("expected connection test to fail")
	}
}

func TestTestConnectionUnreachableHost(t *testing.T) {
	conn := &Connection{URL: "http://127.0.0.1:1", Headers: map[string]string{}}
	client := NewClient(ClientParams{Connection: conn})
	if client.TestConnection(context.Background()) {
		t.Fatal("expected connection test to fail against closed port")
	}
}

func TestHostedProbeOrder(t *testing.T) {
	var paths []string
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	}))
	client.Connection().Flavor = FlavorHosted
	client.TestConnection(context.Background())
	want := []string{"/admin", "/health", "/"}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("probe %d: got %q, want %q", i, paths[i], want[i])
		}
	}
}

func TestDropAll(t *testing.T) {
	var body map[string]any
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/alter" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &body)
		w.Write([]byte(`{"data":{"code":"Success"}}`))
	}))
	ok, err := client.DropAll(context.Background())
	if err != nil {
		t.Fatalf("drop: %v", err)
	}
	if !ok {
		t.Fatal("expected drop to be acknowledged")
	}
	if body["drop_all"] != true {
		t.Errorf("payload: %v", body)
	}
}

func TestFetchSchemaStandaloneDialect(t *testing.T) {
	var contentType, reqBody string
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		data, _ := io.ReadAll(r.Body)
		reqBody = string(data)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"schema":[
			{"predicate":"name","type":"string","index":true,"tokenizer":["exact"]},
			{"predicate":"works_in","type":"uid","list":true},
			{"predicate":"xid","type":"string","upsert":true}
		],"types":[{"name":"EMPLOYEE","fields":[{"name":"name"},{"name":"works_in"}]}]}}`))
	}))
	schema, err := client.FetchSchema(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if contentType != "application/graphql+-" {
		t.Errorf("content type: %q", contentType)
	}
	if reqBody != "schema {}" {
		t.Errorf("body: %q", reqBody)
	}
	for _, want := range []string{
		"Schema Predicates:",
		"name: string @index(exact)",
		"works_in: uid [list]",
		"xid: string @upsert",
		"Schema Types:",
		"type EMPLOYEE {",
		"  works_in",
	} {
		if !strings.Contains(schema, want) {
			t.Errorf("schema missing %q:\n%s", want, schema)
		}
	}
}

func TestFetchSchemaHostedDialect(t *testing.T) {
	var contentType string
	var envelope map[string]string
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &envelope)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"schema":[]}}`))
	}))
	client.Connection().Flavor = FlavorHosted
	if _, err := client.FetchSchema(context.Background()); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if contentType != "application/json" {
		t.Errorf("content type: %q", contentType)
	}
	if envelope["query"] != "schema {}" {
		t.Errorf("envelope: %v", envelope)
	}
}

func TestFetchSchemaErrorStatus(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	if _, err := client.FetchSchema(context.Background()); err == nil {
		t.Fatal("expected error for unauthorized response")
	}
}

func TestFetchSchemaUnexpectedShape(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"something":"else"}}`))
	}))
	schema, err := client.FetchSchema(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if schema != "Schema structure is different than expected." {
		t.Errorf("got %q", schema)
	}
}

func TestNodeTypeCounts(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"types":[{"@groupby":[
			{"pred":"EMPLOYEE","count":12},
			{"pred":"DEPARTMENT","count":3},
			{"pred":"dgraph.graphql","count":1}
		]}]}}`))
	}))
	counts, err := client.NodeTypeCounts(context.Background())
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if len(counts) != 2 {
		t.Fatalf("counts: %v", counts)
	}
	if counts["EMPLOYEE"] != 12 || counts["DEPARTMENT"] != 3 {
		t.Errorf("counts: %v", counts)
	}
	if _, ok := counts["dgraph.graphql"]; ok {
		t.Error("internal dgraph types should be excluded")
	}
}

func TestNodeTypeCountsEmptyResult(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"types":[]}}`))
	}))
	counts, err := client.NodeTypeCounts(context.Background())
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if len(counts) != 0 {
		t.Errorf("expected empty counts, got %v", counts)
	}
}

func TestRequestSendsAuthHeaders(t *testing.T) {
	var auth string
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	client.Connection().Headers["Authorization"] = "Bearer tok"
	client.TestConnection(context.Background())
	if auth != "Bearer tok" {
		t.Errorf("authorization: %q", auth)
	}
}
