package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"strings"
)

func openZip(content []byte, format string) (*zip.Reader, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("extract %s: not a zip: %w", format, err)
	}
	return zr, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(rc); err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Name, err)
	}
	return buf.Bytes(), nil
}

// readZipEntry returns the named entry, or nil with no error when it is absent.
func readZipEntry(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name == name {
			return readZipFile(f)
		}
	}
	return nil, nil
}

// joinMatches appends the first capture group of each match, entity-decoded and
// space separated.
func joinMatches(b *strings.Builder, matches [][]string) {
	for _, m := range matches {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strings.TrimSpace(xmlText(m[1])))
	}
}

// xmlText decodes the character and entity references in raw element text.
// The XML predefined entities are a subset of the HTML ones.
func xmlText(raw string) string {
	if !strings.Contains(raw, "&") {
		return raw
	}
	return html.UnescapeString(raw)
}
