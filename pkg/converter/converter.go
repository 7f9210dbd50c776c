// Package converter turns CSV content into RDF statement blocks by running
// every data row through a parsed template. Input is consumed twice: a
// counting pass sizes the progress scale, then a chunked pass transforms the
// rows so arbitrarily large files never hold more than one chunk of rows in
// memory.
package converter

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math/rand"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/loomkg/loom/pkg/logger"
	"github.com/loomkg/loom/pkg/rdf"
)

// DefaultChunkSize is the number of rows transformed per chunk when Params
// leaves ChunkSize unset.
const DefaultChunkSize = 1000

// ParseError wraps a CSV read failure so callers can tell malformed input
// apart from template evaluation errors.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("parse csv: %v", e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }

// Params configures a Converter.
type Params struct {
	// Template is the substitution template text. Parsed once in New.
	Template string
	// ChunkSize is the number of rows per transform chunk.
	ChunkSize int
	// RawHeaders disables header normalization; column references must then
	// match the header cells byte for byte.
	RawHeaders bool
	// OnProgress receives completion percentages in [0,100]. Optional.
	OnProgress func(percent int)
	// Rand seeds the template's randomDate function. Optional.
	Rand *rand.Rand
}

// Converter runs one template against CSV inputs. A Converter is reusable
// across inputs; header state reflects the most recent run.
type Converter struct {
	tpl        *rdf.Template
	ev         *rdf.Evaluator
	chunkSize  int
	rawHeaders bool
	onProgress func(int)

	headers []string
	mapping map[string]string
}

// New parses the template and returns a ready Converter. Template errors
// surface here, not during row processing.
func New(params Params) (*Converter, error) {
	tpl, err := rdf.ParseTemplate(params.Template)
	if err != nil {
		return nil, err
	}
	chunkSize := params.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Converter{
		tpl:        tpl,
		ev:         rdf.NewEvaluator(rdf.EvaluatorParams{Rand: params.Rand}),
		chunkSize:  chunkSize,
		rawHeaders: params.RawHeaders,
		onProgress: params.OnProgress,
	}, nil
}

// NormalizedHeaders returns the header names of the last processed input in
// column order.
func (c *Converter) NormalizedHeaders() []string { return c.headers }

// HeaderMapping returns the normalized-to-original header lookup of the last
// processed input.
func (c *Converter) HeaderMapping() map[string]string { return c.mapping }

// ProcessString converts inline CSV text.
func (c *Converter) ProcessString(ctx context.Context, text string) (string, error) {
	return c.process(ctx, func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(text)), nil
	})
}

// ProcessFile converts a CSV file on disk.
func (c *Converter) ProcessFile(ctx context.Context, path string) (string, error) {
	return c.process(ctx, func() (io.ReadCloser, error) {
		return os.Open(path)
	})
}

// process drives the two passes. open is called once per pass so file-backed
// inputs are re-read instead of buffered.
func (c *Converter) process(ctx context.Context, open func() (io.ReadCloser, error)) (string, error) {
	header, total, err := c.countRows(open)
	if err != nil {
		return "", err
	}
	c.setHeaders(header)
	if total == 0 {
		c.report(100)
		return "", nil
	}
	logger.Debug("converting csv", "rows", humanize.Comma(int64(total)), "chunkSize", c.chunkSize)

	src, err := open()
	if err != nil {
		return "", &ParseError{Err: err}
	}
	defer src.Close()

	reader := newCSVReader(src)
	if _, err := readRecord(reader); err != nil {
		return "", &ParseError{Err: err}
	}

	var out strings.Builder
	processed := 0
	lastPercent := -1
	chunk := make([]rdf.Row, 0, c.chunkSize)

	flush := func() {
		if len(chunk) == 0 {
			return
		}
		block, err := c.ev.TransformRows(c.tpl, chunk)
		if err != nil {
			logger.Error("chunk transform failed, skipping chunk", "rows", len(chunk), "error", err)
		} else {
			out.WriteString(block)
		}
		processed += len(chunk)
		chunk = chunk[:0]
		if percent := processed * 100 / total; percent > lastPercent && percent < 100 {
			lastPercent = percent
			c.report(percent)
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		record, err := readRecord(reader)
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", &ParseError{Err: err}
		}
		if isEmptyRecord(record) {
			continue
		}
		chunk = append(chunk, c.buildRow(record))
		if len(chunk) == c.chunkSize {
			flush()
		}
	}
	flush()
	c.report(100)

	return out.String(), nil
}

// countRows runs the first pass: header capture plus a data row count, with
// fully empty records excluded the same way the transform pass excludes
// them.
func (c *Converter) countRows(open func() (io.ReadCloser, error)) ([]string, int, error) {
	src, err := open()
	if err != nil {
		return nil, 0, &ParseError{Err: err}
	}
	defer src.Close()

	reader := newCSVReader(src)
	header, err := readRecord(reader)
	if err != nil {
		if err == io.EOF {
			return nil, 0, nil
		}
		return nil, 0, &ParseError{Err: err}
	}

	total := 0
	for {
		record, err := readRecord(reader)
		if err == io.EOF {
			return header, total, nil
		}
		if err != nil {
			return nil, 0, &ParseError{Err: err}
		}
		if !isEmptyRecord(record) {
			total++
		}
	}
}

// setHeaders records the active header set for row keying and for callers
// inspecting header drift.
func (c *Converter) setHeaders(header []string) {
	if header == nil {
		c.headers, c.mapping = nil, map[string]string{}
		return
	}
	if c.rawHeaders {
		c.headers = header
		c.mapping = make(map[string]string, len(header))
		for _, h := range header {
			c.mapping[h] = h
		}
		return
	}
	c.headers, c.mapping = normalizeHeaders(header)
}

// buildRow keys a record by header name. Short records leave the trailing
// columns empty; surplus cells are dropped.
func (c *Converter) buildRow(record []string) rdf.Row {
	row := make(rdf.Row, len(c.headers)+1)
	for i, h := range c.headers {
		if i < len(record) {
			row[h] = typedValue(record[i])
		} else {
			row[h] = ""
		}
	}
	return row
}

func (c *Converter) report(percent int) {
	if c.onProgress != nil {
		c.onProgress(percent)
	}
}

func newCSVReader(r io.Reader) *csv.Reader {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	return reader
}

func readRecord(reader *csv.Reader) ([]string, error) {
	return reader.Read()
}

func isEmptyRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

// reNumeric gates dynamic typing. Plain decimal and scientific notation
// convert; forms like "Inf" or hex stay strings.
var reNumeric = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// typedValue converts a raw cell into the value space the template layer
// renders: numbers lose insignificant zeros ("100.50" reads back "100.5"),
// booleans normalize, everything else stays a string.
func typedValue(field string) any {
	trimmed := strings.TrimSpace(field)
	switch trimmed {
	case "true":
		return true
	case "false":
		return false
	}
	if reNumeric.MatchString(trimmed) {
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return f
		}
	}
	return field
}
