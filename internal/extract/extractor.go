// Package extract converts uploaded files into plain text, dispatching on file extension.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Kind is the extraction strategy family an extension belongs to.
type Kind int

const (
	KindPDF Kind = iota + 1
	KindPlainText
	KindOfficeDocument
)

func (k Kind) String() string {
	switch k {
	case KindPDF:
		return "pdf"
	case KindPlainText:
		return "plain-text"
	case KindOfficeDocument:
		return "office-document"
	default:
		return "unknown"
	}
}

// ErrUnsupportedFormat matches every UnsupportedFormatError via errors.Is.
var ErrUnsupportedFormat = errors.New("unsupported format")

// UnsupportedFormatError reports an unrecognized extension, or a recognized one
// whose decoder could not read the file (Err is then set).
type UnsupportedFormatError struct {
	Ext string
	Err error
}

func (e *UnsupportedFormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unsupported format %q: %v", e.Ext, e.Err)
	}
	return fmt.Sprintf("unsupported format %q", e.Ext)
}

func (e *UnsupportedFormatError) Is(target error) bool { return target == ErrUnsupportedFormat }

func (e *UnsupportedFormatError) Unwrap() error { return e.Err }

type strategy struct {
	kind    Kind
	extract func(content []byte) (string, error)
}

var registry = map[string]strategy{
	".pdf": {KindPDF, extractPDF},

	".txt":  {KindPlainText, extractPlain},
	".md":   {KindPlainText, extractPlain},
	".rst":  {KindPlainText, extractPlain},
	".csv":  {KindPlainText, extractPlain},
	".json": {KindPlainText, extractPlain},
	".py":   {KindPlainText, extractPlain},
	".js":   {KindPlainText, extractPlain},
	".go":   {KindPlainText, extractPlain},
	".html": {KindPlainText, extractPlain},
	".css":  {KindPlainText, extractPlain},
	".xml":  {KindPlainText, extractPlain},
	".yaml": {KindPlainText, extractPlain},
	".yml":  {KindPlainText, extractPlain},
	".log":  {KindPlainText, extractPlain},

	// .doc uploads are almost always renamed OOXML; true legacy binaries fail to open.
	".docx": {KindOfficeDocument, extractDOCX},
	".doc":  {KindOfficeDocument, extractDOCX},
	".xlsx": {KindOfficeDocument, extractExcel},
	".pptx": {KindOfficeDocument, extractPPTX},
	".odp":  {KindOfficeDocument, extractODP},
	".ods":  {KindOfficeDocument, extractODS},
	".odt":  {KindOfficeDocument, extractWithCat},
	".rtf":  {KindOfficeDocument, extractWithCat},
}

// Extractor extracts plain text from document files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// KindOf returns the strategy family for ext (with leading dot, any case).
func KindOf(ext string) (Kind, bool) {
	s, ok := registry[strings.ToLower(ext)]
	return s.kind, ok
}

// SupportedExtensions returns every registered extension, sorted.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(registry))
	for ext := range registry {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Extract reads the file at path and returns its text content. Empty output is
// not an error; callers decide what an empty document means.
func (e *Extractor) Extract(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := registry[ext]; !ok {
		return "", &UnsupportedFormatError{Ext: ext}
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, ext)
}

// ExtractBytes extracts text from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf").
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	ext = strings.ToLower(ext)
	s, ok := registry[ext]
	if !ok {
		return "", &UnsupportedFormatError{Ext: ext}
	}
	text, err := s.extract(content)
	if err != nil {
		return "", &UnsupportedFormatError{Ext: ext, Err: err}
	}
	return text, nil
}
