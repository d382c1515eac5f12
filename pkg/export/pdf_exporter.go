package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders datasets as a sequence of labelled blocks, one block per row.
// Long values wrap, which suits question/answer decks better than a fixed-width table.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// ContentType is the MIME type of rendered output.
func (e *PDFExporter) ContentType() string {
	return "application/pdf"
}

// Render creates a PDF document with an optional title followed by one numbered block per row.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Arial", "B", 16)
		pdf.MultiCell(0, 8, tr(title), "", "C", false)
		pdf.Ln(4)
	}

	for i, row := range data.Rows {
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(0, 7, fmt.Sprintf("%d.", i+1), "", 1, "", false, 0, "")
		for _, header := range data.Headers {
			pdf.SetFont("Arial", "B", 10)
			pdf.CellFormat(0, 6, tr(header), "", 1, "", false, 0, "")
			pdf.SetFont("Arial", "", 10)
			pdf.MultiCell(0, 5, tr(row[header]), "", "", false)
			pdf.Ln(1)
		}
		pdf.Ln(3)
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("layout pdf: %w", err)
	}
	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
