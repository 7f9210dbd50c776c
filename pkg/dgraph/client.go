package dgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/loomkg/loom/internal/util"
	"github.com/loomkg/loom/pkg/logger"
)

const queryRetries = 2

// Client wraps the Dgraph HTTP API for one Connection.
type Client struct {
	conn *Connection
	http *http.Client
}

// ClientParams configures a Client.
type ClientParams struct {
	Connection *Connection
	// HTTPClient overrides the transport, mainly for tests. Optional.
	HTTPClient *http.Client
}

// NewClient creates a Client for the given connection.
func NewClient(params ClientParams) *Client {
	httpClient := params.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{conn: params.Connection, http: httpClient}
}

// Connection returns the client's resolved connection.
func (c *Client) Connection() *Connection { return c.conn }

// response is the uniform outcome of one API call. Transport failures
// surface as OK false with Err set instead of propagating, so callers decide
// per operation whether a failure is fatal.
type response struct {
	Status int
	OK     bool
	Body   []byte
	Err    error
}

func (r response) errString() string {
	if r.Err != nil {
		return r.Err.Error()
	}
	return fmt.Sprintf("status %d", r.Status)
}

// do issues one request against the connection base URL. An empty endpoint
// targets the base URL itself.
func (c *Client) do(ctx context.Context, method, endpoint, contentType string, body []byte) response {
	base := strings.TrimSuffix(c.conn.URL, "/")
	target := base
	if endpoint != "" {
		if !strings.HasPrefix(endpoint, "/") {
			endpoint = "/" + endpoint
		}
		target = base + endpoint
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return response{Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", contentType)
	for name, value := range c.conn.Headers {
		req.Header.Set(name, value)
	}

	logger.Debug("dgraph request", "method", method, "url", target, "bodyBytes", len(body))
	res, err := c.http.Do(req)
	if err != nil {
		return response{Err: fmt.Errorf("request %s: %w", target, err)}
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return response{Status: res.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	return response{
		Status: res.StatusCode,
		OK:     res.StatusCode >= 200 && res.StatusCode < 300,
		Body:   data,
	}
}

// TestConnection probes the instance and reports reachability. It never
// fails hard; every probe error just moves on to the next endpoint. Hosted
// instances do not expose /state, so the probe order differs per flavor.
func (c *Client) TestConnection(ctx context.Context) bool {
	logger.Info("testing dgraph connection", "url", c.conn.URL, "flavor", c.conn.Flavor.String())

	endpoints := []string{"/state", "", "/health", "/admin"}
	if c.conn.Flavor == FlavorHosted {
		endpoints = []string{"/admin", "/health", ""}
	}

	for _, endpoint := range endpoints {
		res := c.do(ctx, http.MethodGet, endpoint, "application/json", nil)
		if res.OK {
			logger.Info("connection test successful", "endpoint", endpoint)
			return true
		}
		logger.Debug("probe failed", "endpoint", endpoint, "error", res.errString())
	}

	logger.Info("connection test failed")
	return false
}

// DropAll removes all data and schema from the instance. The bool reports
// whether the server acknowledged the drop; err is set only for transport
// failures.
func (c *Client) DropAll(ctx context.Context) (bool, error) {
	logger.Info("dropping all data")
	res := c.do(ctx, http.MethodPost, "/alter", "application/json", []byte(`{"drop_all": true}`))
	if res.Err != nil {
		return false, res.Err
	}
	if !res.OK {
		logger.Error("drop all failed", "status", res.Status)
		return false, nil
	}
	logger.Info("dropped all data")
	return true, nil
}

// query posts a DQL query in the dialect the instance expects. Hosted
// instances only accept the JSON envelope; stock alphas take raw graphql+-.
func (c *Client) query(ctx context.Context, q string) response {
	contentType := "application/graphql+-"
	body := []byte(q)
	if c.conn.Flavor == FlavorHosted {
		contentType = "application/json"
		envelope, err := json.Marshal(map[string]string{"query": q})
		if err != nil {
			return response{Err: err}
		}
		body = envelope
	}

	res, err := util.RetryWithContext(ctx, queryRetries, func(ctx context.Context) (response, error) {
		r := c.do(ctx, http.MethodPost, "/query", contentType, body)
		if r.Err != nil {
			return response{}, r.Err
		}
		return r, nil
	})
	if err != nil {
		return response{Err: err}
	}
	return res
}

// FetchSchema retrieves the instance schema and renders it as a readable
// summary of predicates and types. Plain text responses pass through as-is.
func (c *Client) FetchSchema(ctx context.Context) (string, error) {
	logger.Info("fetching schema")
	res := c.query(ctx, "schema {}")
	if res.Err != nil {
		return "", fmt.Errorf("fetch schema: %w", res.Err)
	}
	if !res.OK {
		return "", fmt.Errorf("fetch schema: %s", res.errString())
	}
	if !gjson.ValidBytes(res.Body) {
		return string(res.Body), nil
	}

	parsed := gjson.ParseBytes(res.Body)
	schema := parsed.Get("data.schema")
	if !schema.IsArray() {
		logger.Error("schema structure is different than expected")
		return "Schema structure is different than expected.", nil
	}

	var b strings.Builder
	b.WriteString("Schema Predicates:\n")
	schema.ForEach(func(_, item gjson.Result) bool {
		predicate := item.Get("predicate")
		if !predicate.Exists() {
			return true
		}
		var index string
		if item.Get("index").Bool() {
			index = " @index"
		}
		if tokenizer := item.Get("tokenizer"); tokenizer.IsArray() {
			var names []string
			tokenizer.ForEach(func(_, tok gjson.Result) bool {
				names = append(names, tok.String())
				return true
			})
			index = fmt.Sprintf(" @index(%s)", strings.Join(names, ", "))
		}
		if item.Get("upsert").Bool() {
			index += " @upsert"
		}
		var list string
		if item.Get("list").Bool() {
			list = " [list]"
		}
		fmt.Fprintf(&b, "%s: %s%s%s\n", predicate.String(), item.Get("type").String(), list, index)
		return true
	})

	if types := parsed.Get("data.types"); types.IsArray() {
		b.WriteString("\nSchema Types:\n")
		types.ForEach(func(_, typ gjson.Result) bool {
			fmt.Fprintf(&b, "type %s {\n", typ.Get("name").String())
			typ.Get("fields").ForEach(func(_, field gjson.Result) bool {
				fmt.Fprintf(&b, "  %s\n", field.Get("name").String())
				return true
			})
			b.WriteString("}\n\n")
			return true
		})
	}

	return b.String(), nil
}

// NodeTypeCounts returns the number of nodes per dgraph.type value,
// excluding the dgraph-internal types.
func (c *Client) NodeTypeCounts(ctx context.Context) (map[string]int, error) {
	logger.Info("fetching node type counts")
	q := `{
  types(func: has(dgraph.type)) @groupby(pred: dgraph.type) {
    count: count(uid)
  }
}`
	res := c.query(ctx, q)
	if res.Err != nil {
		return nil, fmt.Errorf("fetch node types: %w", res.Err)
	}
	if !res.OK {
		return nil, fmt.Errorf("fetch node types: %s", res.errString())
	}

	counts := make(map[string]int)
	groups := gjson.GetBytes(res.Body, `data.types.0.\@groupby`)
	if !groups.IsArray() {
		logger.Warn("no type groupings found in response")
		return counts, nil
	}
	groups.ForEach(func(_, item gjson.Result) bool {
		pred := item.Get("pred").String()
		if pred == "" || strings.HasPrefix(pred, "dgraph.") {
			return true
		}
		counts[pred] = int(item.Get("count").Int())
		return true
	})

	logger.Info("node type counts fetched", "types", len(counts))
	return counts, nil
}
