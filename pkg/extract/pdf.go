package extract

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFText extracts the text of every page. A readable document without any text yields "".
// Malformed documents, including ones that make the parser panic, are reported as errors.
func PDFText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("pdf parser panic: %v", r)
		}
	}()

	data = sanitizePDF(data)
	if len(data) == 0 {
		return "", errors.New("empty pdf")
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var out strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText := pageRows(page)
		if strings.TrimSpace(pageText) == "" {
			plain, perr := page.GetPlainText(nil)
			if perr != nil {
				continue
			}
			pageText = plain
		}
		if strings.TrimSpace(pageText) == "" {
			continue
		}
		if out.Len() > 0 {
			out.WriteString("\n\n")
		}
		out.WriteString(strings.TrimSpace(pageText))
	}

	return out.String(), nil
}

func pageRows(page pdf.Page) string {
	rows, err := page.GetTextByRow()
	if err != nil {
		return ""
	}
	var b strings.Builder
	for _, row := range rows {
		words := make([]string, 0, len(row.Content))
		for _, word := range row.Content {
			if s := strings.TrimSpace(word.S); s != "" {
				words = append(words, s)
			}
		}
		if len(words) == 0 {
			continue
		}
		b.WriteString(strings.Join(words, " "))
		b.WriteByte('\n')
	}
	return b.String()
}

// sanitizePDF drops trailing garbage after the last %%EOF marker, which some upload
// pipelines append and which breaks xref lookup.
func sanitizePDF(data []byte) []byte {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return data
	}
	idx := bytes.LastIndex(data, []byte("%%EOF"))
	if idx < 0 {
		return data
	}
	end := idx + len("%%EOF")
	if len(data)-end > 10 {
		return data[:end]
	}
	return data
}
