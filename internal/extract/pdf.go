package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDF concatenates the text runs of every page in page order.
// A page that fails to parse is skipped; only a document that cannot be
// opened at all (corrupt, encrypted) is a DecodeError. The pdf package
// panics on some malformed inputs, so both the open and the per-page
// walk are guarded.
func extractPDF(data []byte) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = DecodeErrorf("parse pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return DecodeErrorf("parse pdf: %v", err)
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		text, err := pageText(reader, i)
		if err != nil {
			// Partial extraction: skip the bad page, keep going.
			continue
		}
		if text != "" {
			sb.WriteString(text)
			sb.WriteString("\n")
		}
	}
	return Text(sb.String())
}

func pageText(reader *pdf.Reader, n int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("page %d: %v", n, r)
		}
	}()

	page := reader.Page(n)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}
