package analyze

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"
)

// Kind is the extraction strategy chosen for an upload.
type Kind string

const (
	KindPDF     Kind = "pdf"
	KindHTML    Kind = "html"
	KindXLSX    Kind = "xlsx"
	KindText    Kind = "text"
	KindUnknown Kind = "unknown"
)

// ErrUnsupportedType is returned by Extract for kinds with no extractor.
var ErrUnsupportedType = errors.New("text extraction not available for this file type")

// DetectKind picks a Kind from the MIME type, falling back to the file extension.
func DetectKind(fileType, fileName string) Kind {
	mime := strings.ToLower(strings.TrimSpace(fileType))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	switch {
	case mime == "application/pdf":
		return KindPDF
	case mime == "text/html" || mime == "application/xhtml+xml":
		return KindHTML
	case mime == "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return KindXLSX
	case strings.HasPrefix(mime, "text/"), mime == "application/json":
		return KindText
	}

	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return KindPDF
	case ".html", ".htm":
		return KindHTML
	case ".xlsx":
		return KindXLSX
	case ".txt", ".md", ".markdown", ".csv", ".json":
		return KindText
	}
	return KindUnknown
}

// Extract returns the plain text of data for kind.
func Extract(kind Kind, data []byte) (string, error) {
	var (
		text string
		err  error
	)
	switch kind {
	case KindPDF:
		text, err = extractPDF(data)
	case KindHTML:
		text, err = extractHTML(data)
	case KindXLSX:
		text, err = extractXLSX(data)
	case KindText:
		if !utf8.Valid(data) {
			return "", fmt.Errorf("text file is not valid UTF-8")
		}
		text = string(data)
	default:
		return "", ErrUnsupportedType
	}
	if err != nil {
		return "", err
	}
	return cleanWhitespace(text), nil
}

func extractPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return buf.String(), nil
}

func extractHTML(data []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style, noscript").Remove()

	var parts []string
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		parts = append(parts, title)
	}
	sel := doc.Find("main, article")
	if sel.Length() == 0 {
		sel = doc.Selection
	}
	sel.Find("h1, h2, h3, h4, p, li, td").Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	if len(parts) == 0 {
		return strings.TrimSpace(doc.Text()), nil
	}
	return strings.Join(parts, "\n"), nil
}

func extractXLSX(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		b.WriteString("# " + sheet + "\n")
		for _, row := range rows {
			b.WriteString(strings.Join(row, "\t"))
			b.WriteByte('\n')
		}
	}
	return b.String(), nil
}

var blankLinesRe = regexp.MustCompile(`[ \t]*\n[\s]*\n+`)

func cleanWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = blankLinesRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
