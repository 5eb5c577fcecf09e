package e2e

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"

	"github.com/xuri/excelize/v2"
)

// Formats lists the extensions the fixtures can produce. PDF is left out: the
// extract package tests cover it against real files.
var Formats = []string{".txt", ".md", ".rst", ".docx", ".xlsx", ".pptx", ".odp", ".ods"}

type builder func(text string) ([]byte, error)

var builders = map[string]builder{
	".txt":  plainFile,
	".md":   func(text string) ([]byte, error) { return []byte("# Notes\n\n" + text), nil },
	".rst":  plainFile,
	".docx": docxFile,
	".pptx": pptxFile,
	".odp":  odpFile,
	".ods":  odsFile,
	".xlsx": xlsxFile,
}

// BuildFile returns the bytes of a minimal file of type ext whose extracted
// text contains text.
func BuildFile(ext, text string) ([]byte, error) {
	b, ok := builders[ext]
	if !ok {
		return nil, fmt.Errorf("no fixture builder for %s", ext)
	}
	return b(text)
}

func plainFile(text string) ([]byte, error) {
	return []byte(text), nil
}

// zipped packs name/content pairs into a zip archive.
func zipped(parts ...[2]string) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, p := range parts {
		fw, err := w.Create(p[0])
		if err != nil {
			return nil, err
		}
		if _, err := fw.Write([]byte(p[1])); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func docxFile(text string) ([]byte, error) {
	return zipped([2]string{"word/document.xml",
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
			`<w:p><w:r><w:t>` + html.EscapeString(text) + `</w:t></w:r></w:p></w:body></w:document>`})
}

func pptxFile(text string) ([]byte, error) {
	return zipped([2]string{"ppt/slides/slide1.xml",
		`<p:sld xmlns:p="p" xmlns:a="a"><p:cSld><p:spTree><p:sp><p:txBody><a:p><a:r>` +
			`<a:t>` + html.EscapeString(text) + `</a:t></a:r></a:p></p:txBody></p:sp></p:spTree></p:cSld></p:sld>`})
}

func odpFile(text string) ([]byte, error) {
	return zipped([2]string{"content.xml",
		`<office:document><office:body><draw:page><draw:text-box>` +
			`<text:p>` + html.EscapeString(text) + `</text:p></draw:text-box></draw:page></office:body></office:document>`})
}

func odsFile(text string) ([]byte, error) {
	return zipped([2]string{"content.xml",
		`<office:document><office:body><table:table><table:table-row><table:table-cell>` +
			`<text:p>` + html.EscapeString(text) + `</text:p></table:table-cell></table:table-row></table:table></office:body></office:document>`})
}

func xlsxFile(text string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetCellValue("Sheet1", "A1", text); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
