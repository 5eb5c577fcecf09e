package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lu4p/cat"
)

const openDocumentContentPath = "content.xml"

var (
	odfTextP    = regexp.MustCompile(`<text:p[^>]*>([^<]*)</text:p>`)
	odfTextSpan = regexp.MustCompile(`<text:span[^>]*>([^<]*)</text:span>`)
	odfTextH    = regexp.MustCompile(`<text:h[^>]*>([^<]*)</text:h>`)
)

func extractODP(content []byte) (string, error) {
	return extractOpenDocument(content, "ODP", odfTextP, odfTextSpan, odfTextH)
}

func extractODS(content []byte) (string, error) {
	return extractOpenDocument(content, "ODS", odfTextP, odfTextSpan)
}

// extractOpenDocument pulls text elements out of content.xml, pattern by pattern.
func extractOpenDocument(content []byte, format string, patterns ...*regexp.Regexp) (string, error) {
	zr, err := openZip(content, format)
	if err != nil {
		return "", err
	}
	data, err := readZipEntry(zr, openDocumentContentPath)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", format, err)
	}
	if data == nil {
		return "", fmt.Errorf("extract %s: %s not found", format, openDocumentContentPath)
	}
	s := string(data)
	var b strings.Builder
	for _, re := range patterns {
		joinMatches(&b, re.FindAllStringSubmatch(s, -1))
	}
	return strings.TrimSpace(b.String()), nil
}

// extractWithCat handles word-processing formats (.odt, .rtf) through lu4p/cat,
// which sniffs the content type itself.
func extractWithCat(content []byte) (string, error) {
	text, err := cat.FromBytes(content)
	if err != nil {
		return "", fmt.Errorf("extract document: %w", err)
	}
	return strings.TrimSpace(text), nil
}
