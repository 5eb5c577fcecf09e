package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/docrag/internal/indexer"
	"github.com/hyperjump/docrag/internal/models"
	"github.com/hyperjump/docrag/internal/vector"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", OutputText, false},
		{"text", OutputText, false},
		{" JSON ", OutputJSON, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestWriteQuery(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteQuery(&buf, "growth", "[Source: a.txt]\ngrowth\n\n---\n\n", OutputText); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "[Source: a.txt]\ngrowth\n\n---\n\n" {
		t.Errorf("text output = %q", buf.String())
	}

	buf.Reset()
	if err := WriteQuery(&buf, "growth", "No documents", OutputJSON); err != nil {
		t.Fatal(err)
	}
	var got models.QueryResponse
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if got.Query != "growth" || got.Context != "No documents" {
		t.Errorf("decoded %+v", got)
	}
}

func TestWriteSearchResults_Text(t *testing.T) {
	resp := &models.SearchResponse{
		Query:     "growth",
		Total:     1,
		QueryTime: 3,
		Results: []*models.QueryResult{{
			Rank:  1,
			Score: 0.87654,
			Chunk: &models.Chunk{Text: "Revenue\n\ngrew  12%", SourceName: "report.txt", ChunkIndex: 2},
		}},
	}
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, resp, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Found 1 results in 3ms", "Rank: 1 | Score: 0.8765", "Source: report.txt (chunk 2)", "Revenue grew 12%"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteDocuments(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteDocuments(&buf, nil, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No documents ingested.") {
		t.Errorf("empty output = %q", buf.String())
	}

	buf.Reset()
	if err := WriteDocuments(&buf, nil, OutputJSON); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("empty JSON = %q", buf.String())
	}

	docs := []models.ListedDocument{{
		ID: 1, Filename: "report.pdf", FileType: ".pdf", FileSize: 2048, Chunks: 4,
		UploadedAt: time.Now().Add(-2 * time.Hour), VectorStoreTotal: 4,
	}}
	buf.Reset()
	if err := WriteDocuments(&buf, docs, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"report.pdf", "2.0 kB", "2 hours ago", "1 documents, 4 chunks"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteIngestResult(t *testing.T) {
	res := &models.IngestResult{Status: "success", File: "a.txt", ChunksCreated: 2, TotalDocuments: 5}

	var buf bytes.Buffer
	if err := WriteIngestResult(&buf, res, nil, OutputText); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "Ingested a.txt: 2 chunks (5 in vector store)\n" {
		t.Errorf("output = %q", got)
	}

	buf.Reset()
	degraded := fmt.Errorf("save: %w", vector.ErrPersistenceFailed)
	if err := WriteIngestResult(&buf, res, degraded, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Warning: "+indexer.CodePersistenceFailed) {
		t.Errorf("output = %q", buf.String())
	}

	buf.Reset()
	if err := WriteIngestResult(&buf, nil, indexer.ErrEmptyDocument, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var e models.ErrorResult
	if err := json.Unmarshal(buf.Bytes(), &e); err != nil {
		t.Fatal(err)
	}
	if e.Error != indexer.CodeEmptyDocument {
		t.Errorf("error = %q", e.Error)
	}
}

func TestWriteDirectoryResult(t *testing.T) {
	res := &indexer.DirectoryResult{
		Ingested: []*models.IngestResult{{File: "a.txt", ChunksCreated: 2}, {File: "b.txt", ChunksCreated: 1}},
		Skipped:  []string{"/docs/c.txt"},
		Failed:   []indexer.FileError{{Path: "/docs/empty.txt", Err: indexer.ErrEmptyDocument}},
	}
	var buf bytes.Buffer
	if err := WriteDirectoryResult(&buf, res, 1500*time.Millisecond, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "Ingested 2 files (3 chunks), skipped 1, failed 1 in 1.5s\n") {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(out, "/docs/empty.txt: empty document") {
		t.Errorf("failure line missing:\n%s", out)
	}

	buf.Reset()
	if err := WriteDirectoryResult(&buf, res, time.Second, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		Failed []struct {
			Path  string `json:"path"`
			Error string `json:"error"`
		} `json:"failed"`
		ElapsedMS int64 `json:"elapsed_ms"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if len(decoded.Failed) != 1 || decoded.Failed[0].Error != "empty document" || decoded.ElapsedMS != 1000 {
		t.Errorf("decoded %+v", decoded)
	}
}

func TestWriteStatus(t *testing.T) {
	st := &models.Status{CorpusChunks: 3, Dimensions: 384, Sources: []string{"a.txt", "b.txt"},
		ActiveDocuments: 2, CatalogChunks: 4, Drift: true, DiskBytes: 1 << 20}
	var buf bytes.Buffer
	if err := WriteStatus(&buf, st, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Chunks:          3", "Sources:         a.txt, b.txt", "1.0 MB", "disagree"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteError(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteError(&buf, nil, OutputText); err != nil || buf.Len() != 0 {
		t.Errorf("nil error wrote %q, %v", buf.String(), err)
	}
	e := indexer.Explain(errors.New("boom"))
	if err := WriteError(&buf, e, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "Error: "+e.Error+". ") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestIngestProgress_Disabled(t *testing.T) {
	if p := NewIngestProgress(false); p != nil {
		t.Errorf("disabled progress = %v, want nil", p)
	}
	stop := StartSpinner(false, "loading")
	stop()
}

func TestIngestProgress_Draws(t *testing.T) {
	var buf bytes.Buffer
	p := &IngestProgress{out: &buf}
	p.Start(2)
	p.Increment()
	p.Increment()
	p.Finish()
	if buf.Len() == 0 {
		t.Error("expected progress output")
	}

	idle := &IngestProgress{out: &buf}
	idle.Start(0)
	idle.Increment()
	idle.Finish()
}
