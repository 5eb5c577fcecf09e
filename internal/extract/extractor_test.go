package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

// zipOf builds an archive from name/content pairs, in order.
func zipOf(t *testing.T, entries ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for i := 0; i+1 < len(entries); i += 2 {
		f, err := w.Create(entries[i])
		if err != nil {
			t.Fatal(err)
		}
		if _, err := f.Write([]byte(entries[i+1])); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func wordDoc(paragraphs string) string {
	return `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		paragraphs + `</w:body></w:document>`
}

func slide(text string) string {
	return `<p:sld><p:cSld><p:spTree><p:sp><p:txBody><a:p><a:r><a:t>` + text +
		`</a:t></a:r></a:p></p:txBody></p:sp></p:spTree></p:cSld></p:sld>`
}

func workbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	_ = f.SetCellValue("Sheet1", "A1", "Region")
	_ = f.SetCellValue("Sheet1", "B1", "Revenue")
	_ = f.SetCellValue("Sheet1", "A3", "North")
	_ = f.SetCellValue("Sheet1", "B3", 42)
	_ = f.SetCellValue("Sheet1", "C3", " ")
	if _, err := f.NewSheet("Notes"); err != nil {
		t.Fatal(err)
	}
	_ = f.SetCellValue("Notes", "A1", "See appendix")
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestExtractBytes(t *testing.T) {
	const mainType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
	tests := []struct {
		name    string
		ext     string
		content []byte
		want    string
	}{
		{"plain text", ".txt", []byte("Hello world\nLine 2"), "Hello world\nLine 2"},
		{"utf8 markdown", ".MD", []byte("caf\xc3\xa9"), "café"},
		{"invalid utf8 replaced", ".rst", []byte("hello\x80world"), "hello\uFFFDworld"},
		{"bom and crlf", ".csv", []byte("\xef\xbb\xbfa,b\r\n1,2\r\n"), "a,b\n1,2\n"},
		{
			"docx paragraphs per line", ".docx",
			zipOf(t, "word/document.xml", wordDoc(
				`<w:p w:rsidR="00AB"><w:r><w:t>Quarterly </w:t></w:r><w:r><w:t xml:space="preserve">report</w:t></w:r></w:p>`+
					`<w:p><w:r><w:t>Growth was 12%.</w:t></w:r></w:p><w:p></w:p>`)),
			"Quarterly report\nGrowth was 12%.",
		},
		{
			"docx main part from content types", ".docx",
			zipOf(t,
				"[Content_Types].xml", `<Types><Override PartName="/word/document2.xml" ContentType="`+mainType+`"/></Types>`,
				"word/document2.xml", wordDoc(`<w:p><w:r><w:t>Second part</w:t></w:r></w:p>`)),
			"Second part",
		},
		{
			"docx content type before part name", ".docx",
			zipOf(t,
				"[Content_Types].xml", `<Types><Override ContentType="`+mainType+`" PartName="/word/main.xml"/></Types>`,
				"word/main.xml", wordDoc(`<w:p><w:r><w:t>Reversed</w:t></w:r></w:p>`)),
			"Reversed",
		},
		{
			"pptx slides in order", ".pptx",
			zipOf(t, "ppt/slides/slide1.xml", slide("First slide"), "ppt/slides/slide2.xml", slide("Second slide")),
			"First slide Second slide",
		},
		{
			"docx entities decoded", ".docx",
			zipOf(t, "word/document.xml", wordDoc(`<w:p><w:r><w:t>R&amp;D spend &lt;5%</w:t></w:r><w:r><w:t> &quot;flat&quot; &#8212; Q&#x33;</w:t></w:r></w:p>`)),
			"R&D spend <5% \"flat\" \u2014 Q3",
		},
		{
			"pptx entities decoded", ".pptx",
			zipOf(t, "ppt/slides/slide1.xml", slide("Salt &amp; pepper &gt; sugar")),
			"Salt & pepper > sugar",
		},
		{
			"ods entities decoded", ".ods",
			zipOf(t, "content.xml", `<table:table-cell><text:p>A&amp;B &apos;24</text:p></table:table-cell>`),
			"A&B '24",
		},
		{"pptx without slides", ".pptx", zipOf(t, "docProps/core.xml", ""), ""},
		{
			"odp paragraphs then headings", ".odp",
			zipOf(t, "content.xml", `<office:body><draw:page><text:h>Slide title</text:h><text:p>Body text</text:p></draw:page></office:body>`),
			"Body text Slide title",
		},
		{
			"ods cells", ".ods",
			zipOf(t, "content.xml", `<table:table-row><table:table-cell><text:p>Cell A</text:p></table:table-cell>`+
				`<table:table-cell><text:span>Cell B</text:span></table:table-cell></table:table-row>`),
			"Cell A Cell B",
		},
		{"xlsx rows and sheets", ".xlsx", workbook(t), "Region\tRevenue\nNorth\t42\nSee appendix"},
	}
	e := NewExtractor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.ExtractBytes(tt.content, tt.ext)
			if err != nil {
				t.Fatalf("ExtractBytes: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractBytes_Failures(t *testing.T) {
	tests := []struct {
		name      string
		ext       string
		content   []byte
		wantCause bool
	}{
		{"unknown extension", ".xyz", []byte("raw"), false},
		{"docx not a zip", ".docx", []byte("not a zip"), true},
		{"docx without document", ".docx", zipOf(t, "other.xml", ""), true},
		{"pptx not a zip", ".pptx", []byte("nope"), true},
		{"odp without content", ".odp", zipOf(t, "other.xml", ""), true},
		{"ods without content", ".ods", zipOf(t, "meta.xml", ""), true},
		{"xlsx garbage", ".xlsx", []byte("garbage"), true},
		{"pdf garbage", ".pdf", []byte("%PDF-garbage"), true},
	}
	e := NewExtractor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.ExtractBytes(tt.content, tt.ext)
			if !errors.Is(err, ErrUnsupportedFormat) {
				t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
			}
			var ufe *UnsupportedFormatError
			if !errors.As(err, &ufe) || ufe.Ext != tt.ext {
				t.Fatalf("err = %#v, want extension %s", err, tt.ext)
			}
			if (ufe.Err != nil) != tt.wantCause {
				t.Errorf("decoder cause = %v, want present=%v", ufe.Err, tt.wantCause)
			}
		})
	}
}

func TestExtract_Files(t *testing.T) {
	dir := t.TempDir()
	files := map[string][]byte{
		"notes.txt":  []byte("File content"),
		"deck.pptx":  zipOf(t, "ppt/slides/slide1.xml", slide("From a deck")),
		"sheet.xlsx": workbook(t),
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), content, 0600); err != nil {
			t.Fatal(err)
		}
	}
	want := map[string]string{
		"notes.txt":  "File content",
		"deck.pptx":  "From a deck",
		"sheet.xlsx": "Region\tRevenue\nNorth\t42\nSee appendix",
	}
	e := NewExtractor()
	for name, w := range want {
		got, err := e.Extract(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if got != w {
			t.Errorf("%s: got %q, want %q", name, got, w)
		}
	}
}

func TestExtract_MissingFile(t *testing.T) {
	_, err := NewExtractor().Extract(filepath.Join(t.TempDir(), "gone.txt"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want ErrNotExist", err)
	}
	if errors.Is(err, ErrUnsupportedFormat) {
		t.Error("a missing file is not an unsupported format")
	}
}

func TestExtract_UnsupportedSkipsRead(t *testing.T) {
	// The path does not exist; only the extension is consulted.
	_, err := NewExtractor().Extract("/nonexistent/image.exe")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		ext    string
		want   Kind
		wantOK bool
	}{
		{".pdf", KindPDF, true},
		{".PDF", KindPDF, true},
		{".md", KindPlainText, true},
		{".csv", KindPlainText, true},
		{".docx", KindOfficeDocument, true},
		{".odt", KindOfficeDocument, true},
		{".exe", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := KindOf(tt.ext)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("KindOf(%q) = %v, %v; want %v, %v", tt.ext, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestSupportedExtensions(t *testing.T) {
	exts := SupportedExtensions()
	if len(exts) != len(registry) {
		t.Fatalf("got %d extensions, want %d", len(exts), len(registry))
	}
	for i := 1; i < len(exts); i++ {
		if exts[i-1] >= exts[i] {
			t.Fatalf("extensions not sorted: %v", exts)
		}
	}
}
