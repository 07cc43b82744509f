package extract

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// extractText decodes plain text and CSV bytes. UTF-8 is tried first;
// anything else falls back to Windows-1252, which covers the Latin-1 and
// cp1252 mail that the UTF-8 pass rejects.
func extractText(data []byte) Result {
	if bytes.IndexByte(data, 0) >= 0 {
		return DecodeErrorf("text attachment contains binary content")
	}
	if utf8.Valid(data) {
		return Text(string(data))
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return DecodeErrorf("decode text: %v", err)
	}
	return Text(string(decoded))
}
