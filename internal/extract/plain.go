package extract

import (
	"bytes"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// extractPlain decodes content as UTF-8, replacing malformed sequences with
// U+FFFD. A leading byte-order mark is dropped and CRLF line endings become LF.
func extractPlain(content []byte) (string, error) {
	content = bytes.TrimPrefix(content, utf8BOM)
	text := strings.ToValidUTF8(string(content), "\uFFFD")
	return strings.ReplaceAll(text, "\r\n", "\n"), nil
}
