package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hyperjump/zukan/internal/models"
	"github.com/hyperjump/zukan/internal/session"
	"github.com/hyperjump/zukan/internal/storage"
	"github.com/hyperjump/zukan/pkg/utils"
)

// OutputFormat is the format of command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

const separator = "─────────────────────────────────────────────────────────"

func formatFor(asJSON bool) OutputFormat {
	if asJSON {
		return OutputJSON
	}
	return OutputText
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteHits writes retrieval results to w in the given format.
func WriteHits(w io.Writer, query string, hits []models.SearchHit, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, struct {
			Query string             `json:"query"`
			Hits  []models.SearchHit `json:"hits"`
		}{query, hits})
	}
	fmt.Fprintf(w, "\nFound %d results\n\n", len(hits))
	for _, h := range hits {
		writeHit(w, h)
	}
	return nil
}

func writeHit(w io.Writer, h models.SearchHit) {
	fmt.Fprintln(w, separator)
	fmt.Fprintf(w, "Rank: %d | Score: %.4f | Page %d | %s\n", h.Rank, h.Score, h.Unit.DisplayPage(), h.Unit.Kind)
	if h.Unit.Kind == models.KindImage {
		fmt.Fprintf(w, "Image: %s\n\n", h.Unit.ImageID)
		return
	}
	fmt.Fprintf(w, "\n%s\n\n", utils.Preview(h.Unit.Content, 200))
}

// WriteAnswer writes a generated answer and its sources.
func WriteAnswer(w io.Writer, answer *models.Answer, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, answer)
	}
	fmt.Fprintf(w, "\n%s\n\n", strings.TrimSpace(answer.Text))
	fmt.Fprintf(w, "Sources (%d, %dms):\n", len(answer.Sources), answer.QueryTime)
	for _, h := range answer.Sources {
		label := utils.Preview(h.Unit.Content, 60)
		if h.Unit.Kind == models.KindImage {
			label = h.Unit.ImageID
		}
		fmt.Fprintf(w, "  %d. [page %d, %s, %.3f] %s\n", h.Rank, h.Unit.DisplayPage(), h.Unit.Kind, h.Score, label)
	}
	return nil
}

// WriteIngestReport writes the summary of an ingestion.
func WriteIngestReport(w io.Writer, report *session.IngestReport, dir string, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, struct {
			*session.IngestReport
			Dir string `json:"dir"`
		}{report, dir})
	}
	fmt.Fprintf(w, "Indexed %s: %d pages, %d text chunks, %d images", report.Document, report.Pages, report.TextUnits, report.ImageUnits)
	if report.Dropped > 0 {
		fmt.Fprintf(w, " (%d dropped)", report.Dropped)
	}
	fmt.Fprintf(w, " in %s\n", report.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "Saved index %s to %s\n", report.IndexID, dir)
	return nil
}

// WriteStatus writes the state of a loaded index.
func WriteStatus(w io.Writer, st session.Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	fmt.Fprintf(w, "Document:   %s (%d pages)\n", st.Document, st.Pages)
	fmt.Fprintf(w, "Index:      %s\n", st.IndexID)
	fmt.Fprintf(w, "Units:      %d (%d text, %d image)\n", st.Units, st.TextUnits, st.ImageUnits)
	fmt.Fprintf(w, "Images:     %d stored\n", st.Images)
	fmt.Fprintf(w, "Embeddings: %s, %d dimensions\n", st.Model, st.Dimensions)
	if st.TextCache != nil {
		fmt.Fprintf(w, "Text cache: %d entries, %d hits, %d misses\n", st.TextCache.Entries, st.TextCache.Hits, st.TextCache.Misses)
	}
	if st.IndexDir != "" {
		fmt.Fprintf(w, "Directory:  %s (%d bytes, %d saved images)\n", st.IndexDir, st.DiskUsageBytes, st.SavedImages)
		for _, name := range storage.SortedNames(st.IndexFiles) {
			fmt.Fprintf(w, "  %-12s %d\n", name, st.IndexFiles[name])
		}
	}
	return nil
}
