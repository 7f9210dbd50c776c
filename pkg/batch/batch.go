// Package batch converts multiple CSV files that share one template into a
// single RDF block. Files are processed in two passes so every entity
// definition exists before any relationship references it, which keeps blank
// node identity stable across files.
package batch

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/loomkg/loom/pkg/converter"
	"github.com/loomkg/loom/pkg/logger"
)

// File is one CSV input in a batch.
type File struct {
	ID      string
	Name    string
	Content string
}

// Options configures a batch run. All fields are optional.
type Options struct {
	// OnProgress receives completion percentages in [0,100].
	OnProgress func(percent int)
	// OnStatusChange receives human-readable phase descriptions.
	OnStatusChange func(status string)
	// RawHeaders disables header normalization for every file.
	RawHeaders bool
}

// reTypedRelationship matches relationship lines whose predicate is an
// upper-case type-style token pointing at a blank node.
var reTypedRelationship = regexp.MustCompile(`>\s+<[A-Z_]+>\s+<_:`)

// splitTemplate partitions template lines into the entity subset and the
// relationship subset. A line whose object is a blank node is a
// relationship unless it declares dgraph.type; such type declarations drop
// out of both subsets.
func splitTemplate(template string) (entities, relationships string) {
	var ent, rel []string
	for _, line := range strings.Split(template, "\n") {
		if strings.Contains(line, "> <_:") || reTypedRelationship.MatchString(line) {
			if !strings.Contains(line, "dgraph.type") {
				rel = append(rel, line)
			}
			continue
		}
		ent = append(ent, line)
	}
	return strings.Join(ent, "\n"), strings.Join(rel, "\n")
}

// ProcessBatch runs the shared template over every file and returns the
// merged, cleaned, deduplicated RDF block. An empty file list or empty
// template yields an empty result without error. Entity generation failures
// abort the batch; relationship generation failures skip the affected file.
func ProcessBatch(ctx context.Context, files []File, template string, opts Options) (string, error) {
	logger.Info("starting batch rdf processing", "files", len(files))
	if len(files) == 0 {
		logger.Warn("no files provided for batch processing")
		return "", nil
	}
	if template == "" {
		logger.Warn("no template provided for batch processing")
		return "", nil
	}

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

	status("Analyzing template and CSV files...")
	progress(10)

	entityTemplate, relationshipTemplate := splitTemplate(template)
	fileWeight := 1.0 / float64(len(files))

	// pass 1: entity definitions across every file
	logger.Info("first pass, generating entity definitions")
	status("Generating entity definitions from CSV files...")

	var entityDefinitions strings.Builder
	processed := 0
	for _, file := range files {
		if file.Content == "" {
			continue
		}
		logger.Info("processing file for entity definitions", "file", file.Name)

		base := 10 + float64(processed)*fileWeight*30
		conv, err := converter.New(converter.Params{
			Template:   entityTemplate,
			RawHeaders: opts.RawHeaders,
			OnProgress: func(filePercent int) {
				progress(int(base + fileWeight*float64(filePercent)/100*30))
			},
		})
		if err != nil {
			return "", fmt.Errorf("entity template: %w", err)
		}

		status(fmt.Sprintf("Generating entities from %s...", file.Name))
		block, err := conv.ProcessString(ctx, file.Content)
		if err != nil {
			return "", fmt.Errorf("entities for %s: %w", file.Name, err)
		}
		entityDefinitions.WriteString(block)

		logger.Debug("header mapping", "file", file.Name, "headers", conv.NormalizedHeaders())
		processed++
	}

	// pass 2: relationships, with entities already emitted
	logger.Info("second pass, generating relationship triples")
	status("Generating relationships between entities...")
	progress(45)

	var relationshipTriples strings.Builder
	processed = 0
	for _, file := range files {
		if file.Content == "" {
			continue
		}
		logger.Info("processing file for relationships", "file", file.Name)

		base := 45 + float64(processed)*fileWeight*35
		conv, err := converter.New(converter.Params{
			Template:   relationshipTemplate,
			RawHeaders: opts.RawHeaders,
			OnProgress: func(filePercent int) {
				progress(int(base + fileWeight*float64(filePercent)/100*35))
			},
		})
		if err != nil {
			return "", fmt.Errorf("relationship template: %w", err)
		}

		status(fmt.Sprintf("Generating relationships from %s...", file.Name))
		block, err := conv.ProcessString(ctx, file.Content)
		if err != nil {
			logger.Warn("relationship processing failed, skipping file", "file", file.Name, "error", err)
		} else {
			relationshipTriples.WriteString(block)
		}
		processed++
	}

	status("Finalizing RDF data...")
	progress(85)

	combined := cleanRDF(entityDefinitions.String()) + "\n" + cleanRDF(relationshipTriples.String())
	deduped := dedupLines(combined)

	logger.Info("batch processing complete", "triples", strings.Count(deduped, "\n")+1)
	status("RDF generation complete")
	progress(100)

	return deduped, nil
}

// cleanRDF drops blank lines, lines carrying empty string literals and
// lines that still contain an unsubstituted bracket placeholder.
func cleanRDF(block string) string {
	var kept []string
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.Contains(line, `""`) {
			continue
		}
		if strings.Contains(line, "[") && strings.Contains(line, "]") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// dedupLines removes repeated statement lines, keeping first occurrence
// order.
func dedupLines(block string) string {
	seen := make(map[string]struct{})
	var out []string
	for _, line := range strings.Split(block, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
