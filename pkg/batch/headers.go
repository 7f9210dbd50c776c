package batch

import (
	"context"
	"strings"

	"github.com/loomkg/loom/pkg/converter"
	"github.com/loomkg/loom/pkg/logger"
)

// HeaderAnalysis describes how headers line up across a batch of files.
type HeaderAnalysis struct {
	// FileHeaders maps file name to its normalized headers in column order.
	FileHeaders map[string][]string `json:"fileHeaders"`
	// CommonHeaders are the normalized headers present in every file.
	CommonHeaders []string `json:"commonHeaders"`
	// AllHeaders is the union of normalized headers, first-seen order.
	AllHeaders []string `json:"allHeaders"`
	// HeaderVariations maps a normalized header to the original spellings
	// that differed from it.
	HeaderVariations map[string][]string `json:"headerVariations"`
}

// AnalyzeHeaders inspects the headers of every file so callers can flag
// drift before running a batch. Files that cannot be read are reported with
// an empty header list.
func AnalyzeHeaders(ctx context.Context, files []File) HeaderAnalysis {
	analysis := HeaderAnalysis{
		FileHeaders:      make(map[string][]string),
		HeaderVariations: make(map[string][]string),
	}
	seen := make(map[string]struct{})

	for _, file := range files {
		if file.Content == "" {
			continue
		}
		conv, err := converter.New(converter.Params{Template: ""})
		if err != nil {
			// empty template never fails to parse
			continue
		}
		// the header line plus one data row is enough for capture
		if _, err := conv.ProcessString(ctx, firstLines(file.Content, 2)); err != nil {
			logger.Warn("could not analyze headers", "file", file.Name, "error", err)
			analysis.FileHeaders[file.Name] = []string{}
			continue
		}

		headers := conv.NormalizedHeaders()
		analysis.FileHeaders[file.Name] = headers
		for _, h := range headers {
			if _, ok := seen[h]; !ok {
				seen[h] = struct{}{}
				analysis.AllHeaders = append(analysis.AllHeaders, h)
			}
		}
		for normalized, original := range conv.HeaderMapping() {
			if normalized == original {
				continue
			}
			if !containsString(analysis.HeaderVariations[normalized], original) {
				analysis.HeaderVariations[normalized] = append(analysis.HeaderVariations[normalized], original)
			}
		}
	}

	for _, h := range analysis.AllHeaders {
		common := true
		for _, headers := range analysis.FileHeaders {
			if !containsString(headers, h) {
				common = false
				break
			}
		}
		if common {
			analysis.CommonHeaders = append(analysis.CommonHeaders, h)
		}
	}

	logger.Info("header analysis complete",
		"files", len(files),
		"uniqueHeaders", len(analysis.AllHeaders),
		"commonHeaders", len(analysis.CommonHeaders))

	return analysis
}

// firstLines returns at most n leading newline-separated lines of s.
func firstLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[:n], "\n")
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
