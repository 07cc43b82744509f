package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/rvashist/mailwatch/internal/types"
)

func TestDetect_ExtensionWinsOverMime(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		mimeType string
		want     format
	}{
		{"txt extension", "notes.txt", "", formatText},
		{"uppercase extension", "NOTES.TXT", "", formatText},
		{"csv extension", "data.csv", "application/octet-stream", formatCSV},
		{"pdf extension", "report.pdf", "", formatPDF},
		{"docx extension", "letter.docx", "", formatDocx},
		{"xlsx extension", "sheet.xlsx", "", formatXlsx},
		{"zip extension", "bundle.zip", "", formatZip},
		{"mime fallback", "attachment", "text/csv", formatCSV},
		{"mime with params", "attachment", "text/plain; charset=utf-8", formatText},
		{"generic text mime", "readme", "text/x-readme", formatText},
		{"unknown everything", "photo.jpg", "image/jpeg", formatUnknown},
		{"unknown extension known mime", "report.pdf.bak", "application/pdf", formatPDF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detect(tt.filename, tt.mimeType); got != tt.want {
				t.Errorf("detect(%q, %q) = %v, want %v", tt.filename, tt.mimeType, got, tt.want)
			}
		})
	}
}

func TestExtract_UnknownIsUnsupportedNotError(t *testing.T) {
	res := Extract(types.Attachment{Filename: "photo.jpg", MimeType: "image/jpeg", Data: []byte{0xff, 0xd8}})
	if res.Kind != KindUnsupported {
		t.Errorf("expected Unsupported, got kind %v (err %v)", res.Kind, res.Err)
	}
}

func TestExtractText_UTF8(t *testing.T) {
	res := extractText([]byte("Hi Varun, you are shortlisted"))
	if res.Kind != KindText {
		t.Fatalf("expected text, got kind %v (err %v)", res.Kind, res.Err)
	}
	if !strings.Contains(res.Text, "Varun") {
		t.Errorf("text lost content: %q", res.Text)
	}
}

func TestExtractText_Windows1252Fallback(t *testing.T) {
	// "café" in Windows-1252: é = 0xE9, invalid as UTF-8.
	res := extractText([]byte{'c', 'a', 'f', 0xE9})
	if res.Kind != KindText {
		t.Fatalf("expected text, got kind %v (err %v)", res.Kind, res.Err)
	}
	if res.Text != "café" {
		t.Errorf("decoded %q, want %q", res.Text, "café")
	}
}

func TestExtractText_BinaryIsDecodeError(t *testing.T) {
	res := extractText([]byte{'a', 0x00, 'b'})
	if res.Kind != KindDecodeError {
		t.Errorf("expected decode error for binary content, got kind %v", res.Kind)
	}
}

func TestExtractPDF_GarbageIsDecodeError(t *testing.T) {
	res := extractPDF([]byte("this is not a pdf at all"))
	if res.Kind != KindDecodeError {
		t.Errorf("expected decode error, got kind %v text %q", res.Kind, res.Text)
	}
}

// buildPDF assembles a document from numbered objects, computing the
// xref offsets so the file parses.
func buildPDF(trailerExtra string, objects ...string) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, 0, len(objects))
	for i, obj := range objects {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R%s >>\nstartxref\n%d\n%%%%EOF\n",
		len(objects)+1, trailerExtra, xref)
	return buf.Bytes()
}

func pdfStream(dict, body string) string {
	return fmt.Sprintf("<< /Length %d%s >>\nstream\n%s\nendstream", len(body), dict, body)
}

func TestExtractPDF_SkipsCorruptPage(t *testing.T) {
	goodPage := "BT /F1 12 Tf 72 720 Td (Hi Varun, you are shortlisted) Tj ET"
	data := buildPDF("",
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R 5 0 R] /Count 2 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 7 0 R >> >> /Contents 4 0 R >>",
		pdfStream("", goodPage),
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 7 0 R >> >> /Contents 6 0 R >>",
		// Declares flate compression but holds garbage: the page fails to read.
		pdfStream(" /Filter /FlateDecode", "this is not deflate data"),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	)

	res := extractPDF(data)
	if res.Kind != KindText {
		t.Fatalf("expected text with the bad page skipped, got kind %v (err %v)", res.Kind, res.Err)
	}
	if !strings.Contains(res.Text, "shortlisted") {
		t.Errorf("readable page text missing: %q", res.Text)
	}
}

func TestExtractPDF_EncryptedIsDecodeError(t *testing.T) {
	pad := strings.Repeat("x", 32)
	data := buildPDF(
		" /Encrypt 5 0 R /ID [<0123456789abcdef0123456789abcdef> <0123456789abcdef0123456789abcdef>]",
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R >>",
		pdfStream("", "BT ET"),
		fmt.Sprintf("<< /Filter /Standard /V 1 /R 2 /Length 40 /P -1 /O (%s) /U (%s) >>", pad, pad),
	)

	res := extractPDF(data)
	if res.Kind != KindDecodeError {
		t.Errorf("expected decode error for encrypted document, got kind %v text %q", res.Kind, res.Text)
	}
}

func TestExtractDocx_BodyText(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Offer for Varun</w:t></w:r></w:p>
    <w:p><w:r><w:t>Second paragraph</w:t></w:r></w:p>
  </w:body>
</w:document>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(doc)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	res := extractDocx(buf.Bytes())
	if res.Kind != KindText {
		t.Fatalf("expected text, got kind %v (err %v)", res.Kind, res.Err)
	}
	if !strings.Contains(res.Text, "Offer for Varun") {
		t.Errorf("missing first paragraph: %q", res.Text)
	}
	if !strings.Contains(res.Text, "Second paragraph") {
		t.Errorf("missing second paragraph: %q", res.Text)
	}
}

func TestExtractDocx_MissingBodyPart(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("other.xml")
	w.Write([]byte("<x/>"))
	zw.Close()

	res := extractDocx(buf.Bytes())
	if res.Kind != KindDecodeError {
		t.Errorf("expected decode error, got kind %v", res.Kind)
	}
}

func TestExtractXlsx_CellValues(t *testing.T) {
	f := excelize.NewFile()
	if err := f.SetCellValue("Sheet1", "A1", "candidate"); err != nil {
		t.Fatal(err)
	}
	if err := f.SetCellValue("Sheet1", "B1", "Varun"); err != nil {
		t.Fatal(err)
	}
	if err := f.SetCellValue("Sheet1", "A2", 42); err != nil {
		t.Fatal(err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}

	res := extractXlsx(buf.Bytes())
	if res.Kind != KindText {
		t.Fatalf("expected text, got kind %v (err %v)", res.Kind, res.Err)
	}
	for _, want := range []string{"candidate", "Varun", "42"} {
		if !strings.Contains(res.Text, want) {
			t.Errorf("missing cell value %q in %q", want, res.Text)
		}
	}
}

func TestExtractXlsx_GarbageIsDecodeError(t *testing.T) {
	res := extractXlsx([]byte("not a workbook"))
	if res.Kind != KindDecodeError {
		t.Errorf("expected decode error, got kind %v", res.Kind)
	}
}

func TestExtractXlsx_UnreadableSheetIsSkipped(t *testing.T) {
	// Hand-built workbook: sheet "Good" holds readable cells, sheet "Bad"
	// is not worksheet XML at all and must degrade to a per-sheet skip.
	parts := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/xl/workbook.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.sheet.main+xml"/>
<Override PartName="/xl/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.styles+xml"/>
<Override PartName="/xl/worksheets/sheet1.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.worksheet+xml"/>
<Override PartName="/xl/worksheets/sheet2.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.worksheet+xml"/>
</Types>`,
		"_rels/.rels": `<?xml version="1.0"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="xl/workbook.xml"/>
</Relationships>`,
		"xl/workbook.xml": `<?xml version="1.0"?>
<workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
<sheets>
<sheet name="Good" sheetId="1" r:id="rId1"/>
<sheet name="Bad" sheetId="2" r:id="rId2"/>
</sheets>
</workbook>`,
		"xl/_rels/workbook.xml.rels": `<?xml version="1.0"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet" Target="worksheets/sheet1.xml"/>
<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet" Target="worksheets/sheet2.xml"/>
</Relationships>`,
		"xl/styles.xml": `<?xml version="1.0"?>
<styleSheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"/>`,
		"xl/worksheets/sheet1.xml": `<?xml version="1.0"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
<sheetData><row r="1"><c r="A1" t="inlineStr"><is><t>Varun shortlisted</t></is></c></row></sheetData>
</worksheet>`,
		"xl/worksheets/sheet2.xml": `this is not worksheet xml <<<`,
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range parts {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	res := extractXlsx(buf.Bytes())
	if res.Kind != KindText {
		t.Fatalf("expected text with the bad sheet skipped, got kind %v (err %v)", res.Kind, res.Err)
	}
	if !strings.Contains(res.Text, "Varun shortlisted") {
		t.Errorf("readable sheet text missing: %q", res.Text)
	}
}

func TestExtractZipListing_NamesOnly(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("resume-varun.pdf")
	w.Write([]byte("secret keyword inside: shortlisted"))
	w2, _ := zw.Create("notes/readme.txt")
	w2.Write([]byte("shortlisted again"))
	zw.Close()

	res := extractZipListing(buf.Bytes())
	if res.Kind != KindText {
		t.Fatalf("expected text, got kind %v (err %v)", res.Kind, res.Err)
	}
	if !strings.Contains(res.Text, "resume-varun.pdf") {
		t.Errorf("listing missing entry name: %q", res.Text)
	}
	if !strings.Contains(res.Text, "notes/readme.txt") {
		t.Errorf("listing missing nested entry name: %q", res.Text)
	}
	// Entry contents must never leak into the searchable text.
	if strings.Contains(res.Text, "shortlisted") {
		t.Errorf("archive contents leaked into listing: %q", res.Text)
	}
}
