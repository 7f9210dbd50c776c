package dgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/loomkg/loom/internal/util"
	"github.com/loomkg/loom/pkg/logger"
)

// dropSettleDelay gives the cluster time to finish a drop before new
// mutations arrive. Tests shorten it.
var dropSettleDelay = 3 * time.Second

// ImportOptions carries the optional progress callbacks for one import run.
type ImportOptions struct {
	OnProgress     func(percent int)
	OnStatusChange func(status string)
}

// ImportStats summarizes a completed import.
type ImportStats struct {
	TriplesProcessed      int `json:"triplesProcessed"`
	NodesCreated          int `json:"nodesCreated"`
	EdgesCreated          int `json:"edgesCreated"`
	RelationshipsDetected int `json:"relationshipsDetected"`
}

// ImportResult reports the outcome of an import. Failures are data, not
// errors; ImportRDF never panics or returns an error value.
type ImportResult struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Stats   *ImportStats `json:"stats,omitempty"`
}

// Importer drives RDF imports against one client. A single Importer refuses
// overlapping runs; concurrent callers get a failed result instead of
// racing mutations against each other.
type Importer struct {
	client  *Client
	running *semaphore.Weighted
}

// NewImporter creates an Importer on top of the given client.
func NewImporter(client *Client) *Importer {
	return &Importer{
		client:  client,
		running: semaphore.NewWeighted(1),
	}
}

// ImportRDF compiles the RDF block into entities, aligns the schema and
// commits everything in one mutation. When the connection carries the
// dropAll flag, existing data is dropped first and the importer waits for
// the drop to settle.
func (im *Importer) ImportRDF(ctx context.Context, rdfData string, opts ImportOptions) ImportResult {
	if !im.running.TryAcquire(1) {
		logger.Warn("rejecting overlapping import")
		return ImportResult{Success: false, Message: "import already in progress"}
	}
	defer im.running.Release(1)

	logger.Info("starting rdf import", "bytes", len(rdfData))
	status := func(s string) {
		if opts.OnStatusChange != nil {
			opts.OnStatusChange(s)
		}
	}
	progress := func(p int) {
		if opts.OnProgress != nil {
			opts.OnProgress(p)
		}
	}

	dropAll := im.client.Connection().DropAll
	if dropAll {
		status("Dropping all existing data and schema...")
		if ok, err := im.client.DropAll(ctx); err != nil {
			logger.Error("drop all errored, continuing with import", "error", err)
		} else if !ok {
			logger.Error("drop all was not acknowledged, continuing with import")
		}
		status("Waiting for drop operation to complete...")
		progress(20)
		select {
		case <-time.After(dropSettleDelay):
		case <-ctx.Done():
			return ImportResult{Success: false, Message: fmt.Sprintf("Import failed: %v", ctx.Err())}
		}
	}

	status("Processing RDF triples...")
	if dropAll {
		progress(40)
	} else {
		progress(30)
	}

	set := compileMutations(rdfData)
	logger.Info("compiled mutations",
		"triples", len(set.Triples),
		"entities", len(set.Entities),
		"relationships", len(set.Relationships))

	status("Setting up schema with relationship types...")
	im.setupSchema(ctx, set.Predicates)
	progress(50)

	progress(60)
	status(fmt.Sprintf("Importing %d triples to Dgraph...", len(set.Triples)))

	payload, err := json.Marshal(map[string]any{"set": set.Entities})
	if err != nil {
		return ImportResult{Success: false, Message: fmt.Sprintf("Import failed: %v", err)}
	}
	res := im.client.do(ctx, http.MethodPost, "/mutate?commitNow=true", "application/json", payload)
	if !res.OK {
		logger.Error("mutation failed", "status", res.Status, "error", res.errString())
		return ImportResult{Success: false, Message: fmt.Sprintf("Import failed: mutation failed, %s", res.errString())}
	}

	progress(100)
	status("Import completed successfully")
	logger.Info("import completed")

	message := fmt.Sprintf("Successfully imported %d triples", len(set.Triples))
	if dropAll {
		message += " after dropping all existing data"
	}
	return ImportResult{
		Success: true,
		Message: message,
		Stats: &ImportStats{
			TriplesProcessed:      len(set.Triples),
			NodesCreated:          len(set.Entities),
			EdgesCreated:          len(set.Relationships),
			RelationshipsDetected: len(set.Predicates),
		},
	}
}

// setupSchema alters the schema for the detected relationship predicates.
// Schema failures are logged and tolerated; the mutation decides whether
// the import succeeds.
func (im *Importer) setupSchema(ctx context.Context, predicates []string) {
	if len(predicates) == 0 {
		logger.Debug("no relationship predicates, skipping schema setup")
		return
	}
	schema := schemaFor(predicates)
	logger.Info("altering schema", "predicates", len(predicates))
	err := util.RetryErrWithContext(ctx, queryRetries, func(ctx context.Context) error {
		res := im.client.do(ctx, http.MethodPost, "/alter", "application/rdf", []byte(schema))
		if res.Err != nil {
			return res.Err
		}
		if !res.OK {
			logger.Error("schema setup failed", "error", res.errString())
		}
		return nil
	})
	if err != nil {
		logger.Error("schema setup failed", "error", err.Error())
	}
}
