package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"strings"
)

// extractDocx pulls the document body text out of an OOXML
// word-processing container. The container is a ZIP archive whose
// word/document.xml part holds the text runs; we stream the XML and
// collect character data inside <w:t> elements, inserting a line break
// at each paragraph boundary. Non-text nodes (images, drawings) fall out
// naturally.
func extractDocx(data []byte) Result {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return DecodeErrorf("open docx container: %v", err)
	}

	var body *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			body = f
			break
		}
	}
	if body == nil {
		return DecodeErrorf("docx container has no word/document.xml")
	}

	rc, err := body.Open()
	if err != nil {
		return DecodeErrorf("open document body: %v", err)
	}
	defer rc.Close()

	text, err := wordBodyText(rc)
	if err != nil {
		return DecodeErrorf("parse document body: %v", err)
	}
	return Text(text)
}

// wordBodyText concatenates <w:t> runs in document order.
func wordBodyText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var sb strings.Builder
	inRun := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inRun = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inRun = false
			case "p":
				sb.WriteString("\n")
			}
		case xml.CharData:
			if inRun {
				sb.Write(t)
			}
		}
	}
	return sb.String(), nil
}
