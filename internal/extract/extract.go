// Package extract converts attachment bytes into searchable plain text.
//
// One stateless extractor per encoding. Every extractor is pure: all
// failure modes come back as a DecodeError result, never a panic.
package extract

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rvashist/mailwatch/internal/types"
)

// Kind tags an extraction result.
type Kind int

const (
	// KindText means readable text was produced.
	KindText Kind = iota
	// KindUnsupported means the encoding is not one we extract. Not an
	// error: the classifier treats it as "no match".
	KindUnsupported
	// KindDecodeError means the attachment claimed a supported encoding
	// but could not be read.
	KindDecodeError
)

// Result is the outcome of extracting one attachment.
type Result struct {
	Kind Kind
	Text string
	Err  error
}

// Text wraps extracted text in a Result.
func Text(s string) Result {
	return Result{Kind: KindText, Text: s}
}

// Unsupported is the Result for encodings we do not extract.
func Unsupported() Result {
	return Result{Kind: KindUnsupported}
}

// DecodeError wraps a decode failure in a Result.
func DecodeError(err error) Result {
	return Result{Kind: KindDecodeError, Err: err}
}

// DecodeErrorf formats a decode failure.
func DecodeErrorf(format string, args ...any) Result {
	return DecodeError(fmt.Errorf(format, args...))
}

// format identifiers for dispatch.
type format int

const (
	formatUnknown format = iota
	formatText
	formatCSV
	formatPDF
	formatDocx
	formatXlsx
	formatZip
)

// byExtension maps lowercase file extensions to formats.
var byExtension = map[string]format{
	".txt":  formatText,
	".text": formatText,
	".log":  formatText,
	".md":   formatText,
	".csv":  formatCSV,
	".pdf":  formatPDF,
	".docx": formatDocx,
	".xlsx": formatXlsx,
	".zip":  formatZip,
}

// byMimeType maps MIME types to formats, used when the extension is
// absent or unrecognized.
var byMimeType = map[string]format{
	"text/plain":      formatText,
	"text/csv":        formatCSV,
	"application/pdf": formatPDF,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": formatDocx,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       formatXlsx,
	"application/zip":              formatZip,
	"application/x-zip-compressed": formatZip,
}

// detect picks the format for an attachment. The extension wins
// (case-insensitive); the MIME type is the fallback.
func detect(filename, mimeType string) format {
	if ext := strings.ToLower(filepath.Ext(filename)); ext != "" {
		if f, ok := byExtension[ext]; ok {
			return f
		}
	}
	mt := strings.ToLower(mimeType)
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	if f, ok := byMimeType[mt]; ok {
		return f
	}
	if strings.HasPrefix(mt, "text/") {
		return formatText
	}
	return formatUnknown
}

// Extract converts one attachment into text. Unknown encodings come back
// as Unsupported, never as an error.
func Extract(att types.Attachment) Result {
	switch detect(att.Filename, att.MimeType) {
	case formatText, formatCSV:
		return extractText(att.Data)
	case formatPDF:
		return extractPDF(att.Data)
	case formatDocx:
		return extractDocx(att.Data)
	case formatXlsx:
		return extractXlsx(att.Data)
	case formatZip:
		return extractZipListing(att.Data)
	default:
		return Unsupported()
	}
}
