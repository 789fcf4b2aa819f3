package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/OHDSI/searchpubmed/internal/model"
)

// Renderer serializes a pipeline result. Supported formats are "json"
// (the full result document) and "csv" (one line per chunk, flat enough
// for spreadsheet triage).
type Renderer struct {
	format string
}

// NewRenderer creates a renderer for the given format name.
func NewRenderer(format string) (*Renderer, error) {
	switch format {
	case "json", "csv":
		return &Renderer{format: format}, nil
	default:
		return nil, fmt.Errorf("unknown output format: %s (supported: json, csv)", format)
	}
}

// Render writes the result to w in the configured format.
func (r *Renderer) Render(w io.Writer, result *model.Result) error {
	if r.format == "csv" {
		return r.renderCSV(w, result)
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

var csvHeader = []string{
	"pmid", "pmcid", "year", "journal", "title",
	"full_text_status", "section", "parent_section", "role", "text",
}

// renderCSV emits one line per chunk. A row without chunks still gets one
// line, with the chunk columns blank, so no PMID disappears from the file.
func (r *Renderer) renderCSV(w io.Writer, result *model.Result) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return err
	}

	for _, row := range result.Rows {
		year := ""
		if row.Metadata.Year != 0 {
			year = strconv.Itoa(row.Metadata.Year)
		}
		base := []string{
			row.PMID, row.PMCID, year, row.Metadata.Journal, row.Metadata.Title,
			string(row.FullTextStatus),
		}

		if len(row.Chunks) == 0 {
			if err := writer.Write(append(base, "", "", "", "")); err != nil {
				return err
			}
			continue
		}
		for _, chunk := range row.Chunks {
			line := append(append([]string(nil), base...),
				chunk.Section, chunk.ParentSection, string(chunk.Role), chunk.Text)
			if err := writer.Write(line); err != nil {
				return err
			}
		}
	}

	writer.Flush()
	return writer.Error()
}

// RenderSummary writes the human-readable degradation report.
func (r *Renderer) RenderSummary(w io.Writer, result *model.Result) {
	s := result.Summary
	fmt.Fprintf(w, "Query: %s\n", result.Query)
	fmt.Fprintf(w, "PMIDs found:        %d\n", s.Found)
	fmt.Fprintf(w, "Mapped to PMC:      %d\n", s.Mapped)
	fmt.Fprintf(w, "With metadata:      %d\n", s.WithMetadata)
	fmt.Fprintf(w, "Full text (XML):    %d\n", s.FullTextXML)
	fmt.Fprintf(w, "Full text (HTML):   %d\n", s.FullTextHTML)
	fmt.Fprintf(w, "Unavailable:        %d\n", s.Unavailable)
	if result.LLMSummary != "" {
		fmt.Fprintf(w, "\n%s\n", result.LLMSummary)
	}
}
