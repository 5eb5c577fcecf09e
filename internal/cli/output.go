// Package cli renders command output for the docrag CLI.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/hyperjump/docrag/internal/indexer"
	"github.com/hyperjump/docrag/internal/models"
	"github.com/hyperjump/docrag/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

const (
	separator      = "─────────────────────────────────────────────────────────"
	previewLen     = 200
	maxFailedShown = 20
)

// ParseFormat validates a --format flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text or json)", s)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteQuery writes the formatted excerpts returned by a query.
func WriteQuery(w io.Writer, query, context string, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, models.QueryResponse{Query: query, Context: context})
	}
	_, err := fmt.Fprint(w, context)
	if err == nil && !strings.HasSuffix(context, "\n") {
		_, err = fmt.Fprintln(w)
	}
	return err
}

// WriteSearchResults writes ranked chunks with scores.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	fmt.Fprintf(w, "\nFound %d results in %dms\n\n", response.Total, response.QueryTime)
	for _, r := range response.Results {
		fmt.Fprintln(w, separator)
		fmt.Fprintf(w, "Rank: %d | Score: %.4f\n", r.Rank, r.Score)
		if r.Chunk == nil {
			continue
		}
		fmt.Fprintf(w, "Source: %s (chunk %d)\n", r.Chunk.SourceName, r.Chunk.ChunkIndex)
		fmt.Fprintf(w, "\n%s\n\n", utils.Truncate(utils.OneLine(r.Chunk.Text), previewLen))
	}
	return nil
}

// WriteDocuments writes the active catalog entries as a table.
func WriteDocuments(w io.Writer, docs []models.ListedDocument, format OutputFormat) error {
	if format == OutputJSON {
		if docs == nil {
			docs = []models.ListedDocument{}
		}
		return writeJSON(w, docs)
	}
	if len(docs) == 0 {
		_, err := fmt.Fprintln(w, "No documents ingested.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tSIZE\tCHUNKS\tUPLOADED")
	for _, d := range docs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\n",
			d.ID, d.Filename, d.FileType, humanize.Bytes(uint64(max(d.FileSize, 0))), d.Chunks, humanize.Time(d.UploadedAt))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d documents, %d chunks in the vector store\n", len(docs), docs[0].VectorStoreTotal)
	return err
}

// WriteIngestResult writes the outcome of a single-file ingestion. err may
// accompany a non-nil result when a durability step failed.
func WriteIngestResult(w io.Writer, res *models.IngestResult, err error, format OutputFormat) error {
	if format == OutputJSON {
		out := struct {
			*models.IngestResult
			Warning *models.ErrorResult `json:"warning,omitempty"`
		}{res, nil}
		if res == nil {
			return writeJSON(w, indexer.Explain(err))
		}
		out.Warning = indexer.Explain(err)
		return writeJSON(w, out)
	}
	if res == nil {
		return WriteError(w, indexer.Explain(err), format)
	}
	fmt.Fprintf(w, "Ingested %s: %d chunks (%d in vector store)\n", res.File, res.ChunksCreated, res.TotalDocuments)
	if err != nil {
		e := indexer.Explain(err)
		fmt.Fprintf(w, "Warning: %s. %s\n", e.Error, e.Message)
	}
	return nil
}

// WriteDirectoryResult writes a bulk ingestion summary.
func WriteDirectoryResult(w io.Writer, res *indexer.DirectoryResult, elapsed time.Duration, format OutputFormat) error {
	if format == OutputJSON {
		type failure struct {
			Path  string `json:"path"`
			Error string `json:"error"`
		}
		out := struct {
			Ingested  []*models.IngestResult `json:"ingested"`
			Skipped   []string               `json:"skipped"`
			Failed    []failure              `json:"failed"`
			ElapsedMS int64                  `json:"elapsed_ms"`
		}{
			Ingested:  res.Ingested,
			Skipped:   res.Skipped,
			Failed:    make([]failure, 0, len(res.Failed)),
			ElapsedMS: elapsed.Milliseconds(),
		}
		for _, f := range res.Failed {
			out.Failed = append(out.Failed, failure{Path: f.Path, Error: f.Err.Error()})
		}
		return writeJSON(w, out)
	}
	chunks := 0
	for _, r := range res.Ingested {
		chunks += r.ChunksCreated
	}
	fmt.Fprintf(w, "Ingested %d files (%d chunks), skipped %d, failed %d in %s\n",
		len(res.Ingested), chunks, len(res.Skipped), len(res.Failed), elapsed.Round(time.Millisecond))
	for i, f := range res.Failed {
		if i == maxFailedShown {
			fmt.Fprintf(w, "  ... and %d more\n", len(res.Failed)-maxFailedShown)
			break
		}
		e := indexer.Explain(f.Err)
		fmt.Fprintf(w, "  %s: %s\n", f.Path, e.Error)
	}
	return nil
}

// WriteClearResult writes the outcome of clear.
func WriteClearResult(w io.Writer, res *models.ClearResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, res)
	}
	_, err := fmt.Fprintln(w, res.Message)
	return err
}

// WriteStatus writes corpus and catalog statistics.
func WriteStatus(w io.Writer, st *models.Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	fmt.Fprintf(w, "Chunks:          %d\n", st.CorpusChunks)
	fmt.Fprintf(w, "Dimensions:      %d\n", st.Dimensions)
	fmt.Fprintf(w, "Documents:       %d\n", st.ActiveDocuments)
	fmt.Fprintf(w, "Catalog chunks:  %d\n", st.CatalogChunks)
	fmt.Fprintf(w, "Embedder loaded: %t\n", st.EmbeddingReady)
	if st.DiskBytes > 0 {
		fmt.Fprintf(w, "Disk usage:      %s\n", humanize.Bytes(uint64(st.DiskBytes)))
	}
	if len(st.Sources) > 0 {
		fmt.Fprintf(w, "Sources:         %s\n", strings.Join(st.Sources, ", "))
	}
	if st.Drift {
		fmt.Fprintln(w, "\nWarning: the catalog and the vector store disagree. Run clear and re-ingest to rebuild them.")
	}
	return nil
}

// WriteError writes a structured failure.
func WriteError(w io.Writer, e *models.ErrorResult, format OutputFormat) error {
	if e == nil {
		return nil
	}
	if format == OutputJSON {
		return writeJSON(w, e)
	}
	_, err := fmt.Fprintf(w, "Error: %s. %s\n", e.Error, e.Message)
	return err
}
