// Package dgraph talks to the Dgraph HTTP API: connection string parsing,
// schema and node type introspection, and bulk RDF import via JSON
// mutations.
package dgraph

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/loomkg/loom/pkg/logger"
)

// Flavor distinguishes hosted Dgraph instances from self-managed ones. The
// two speak different query dialects on /query and expose different probe
// endpoints.
type Flavor int

const (
	FlavorStandalone Flavor = iota
	FlavorHosted
)

func (f Flavor) String() string {
	if f == FlavorHosted {
		return "hosted"
	}
	return "standalone"
}

// Connection is a resolved Dgraph endpoint: the final HTTP base URL, the
// auth headers to send with every request and the flags carried in the
// connection string.
type Connection struct {
	URL     string
	Headers map[string]string
	DropAll bool
	SSLMode string
	// Flavor is derived from the hostname at parse time and may be
	// overridden before the Connection is handed to a client.
	Flavor Flavor
}

// hostedSuffix marks managed instances whose endpoints differ from a stock
// Dgraph alpha.
const hostedSuffix = "hypermode.host"

// rePort pulls the port out of the raw connection string before url.Parse
// gets a chance to normalize it away.
var rePort = regexp.MustCompile(`:(\d+)(?:\?|$)`)

// Parse resolves a connection string into a Connection.
//
// Plain http:// and https:// URLs pass through untouched. dgraph:// strings
// follow the form dgraph://{user:pass@}host{:port}{?args} with args
// bearertoken, apikey, sslmode (disable, require, verify-ca) and dropAll.
// localhost resolves to plain http with no path suffix; any other host gets
// https and the /dgraph path.
func Parse(connectionString string) (*Connection, error) {
	if strings.HasPrefix(connectionString, "http://") || strings.HasPrefix(connectionString, "https://") {
		logger.Debug("using direct http url", "url", connectionString)
		return &Connection{
			URL:     connectionString,
			Headers: map[string]string{},
			SSLMode: "disable",
			Flavor:  flavorOf(connectionString),
		}, nil
	}
	if !strings.HasPrefix(connectionString, "dgraph://") {
		return nil, fmt.Errorf("invalid connection string: must start with http://, https://, or dgraph://")
	}

	var port string
	if m := rePort.FindStringSubmatch(connectionString); m != nil {
		port = m[1]
	}

	u, err := url.Parse("https://" + strings.TrimPrefix(connectionString, "dgraph://"))
	if err != nil {
		return nil, fmt.Errorf("invalid connection string %q: %w", connectionString, err)
	}

	conn := &Connection{
		Headers: map[string]string{},
		SSLMode: "disable",
	}

	params := u.Query()
	if token := params.Get("bearertoken"); token != "" {
		conn.Headers["Authorization"] = "Bearer " + token
		params.Del("bearertoken")
	}
	if key := params.Get("apikey"); key != "" {
		conn.Headers["X-Auth-Token"] = key
		params.Del("apikey")
	}
	if u.User != nil {
		// both parts must be present; "user:@host" carries no credentials
		if password, _ := u.User.Password(); u.User.Username() != "" && password != "" {
			basic := base64.StdEncoding.EncodeToString([]byte(u.User.Username() + ":" + password))
			conn.Headers["Authorization"] = "Basic " + basic
		}
	}
	if mode := params.Get("sslmode"); mode != "" {
		switch mode {
		case "disable", "require", "verify-ca":
			conn.SSLMode = mode
		default:
			logger.Warn("invalid sslmode, using disable", "sslmode", mode)
		}
		params.Del("sslmode")
	}
	if params.Has("dropAll") {
		conn.DropAll = params.Get("dropAll") == "true"
		params.Del("dropAll")
	}

	host := u.Hostname()
	scheme, pathSuffix := "https", "/dgraph"
	if host == "localhost" {
		scheme, pathSuffix = "http", ""
	}

	endpoint := scheme + "://" + host
	if port != "" {
		endpoint += ":" + port
	}
	endpoint += pathSuffix
	if encoded := params.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	conn.URL = endpoint
	conn.Flavor = flavorOf(endpoint)
	logger.Debug("parsed connection string", "url", conn.URL, "flavor", conn.Flavor.String())
	return conn, nil
}

func flavorOf(endpoint string) Flavor {
	if strings.Contains(endpoint, hostedSuffix) {
		return FlavorHosted
	}
	return FlavorStandalone
}
