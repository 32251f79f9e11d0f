package exports

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
)

const (
	pdfMargin     = 10.0
	pdfRowHeight  = 7.0
	pdfFooterZone = 15.0
)

var pdfColumnWidths = []float64{80, 40, 27, 45, 40, 45}

// writePDF renders the report on A4 landscape pages. The column header row is
// drawn again at the top of every page the table spills onto.
func writePDF(w io.Writer, r report) error {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(false, pdfFooterZone)
	pdf.AliasNbPages("")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-pdfFooterZone + 5)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 5, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr(REPORT_TITLE), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, line := range r.headerLines() {
		pdf.CellFormat(0, 6, tr(line), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	tableHeader := func() {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(220, 220, 220)
		for i, title := range reportColumns {
			pdf.CellFormat(pdfColumnWidths[i], pdfRowHeight, tr(title), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 9)
	}

	_, pageHeight := pdf.GetPageSize()
	tableHeader()

	for _, row := range r.Rows {
		if pdf.GetY()+pdfRowHeight > pageHeight-pdfFooterZone {
			pdf.AddPage()
			tableHeader()
		}
		for i, cell := range row.cells() {
			align := "L"
			if i == 1 || i == 2 {
				align = "R"
			}
			text := truncate(pdf, tr(cell), pdfColumnWidths[i]-2)
			pdf.CellFormat(pdfColumnWidths[i], pdfRowHeight, text, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	if pdf.GetY()+pdfRowHeight > pageHeight-pdfFooterZone {
		pdf.AddPage()
		tableHeader()
	}
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(pdfColumnWidths[0], pdfRowHeight, "TOTAL", "1", 0, "L", false, 0, "")
	pdf.CellFormat(pdfColumnWidths[1], pdfRowHeight, tr(formatCurrency(r.Currency, r.TotalValue)), "1", 0, "R", false, 0, "")
	pdf.CellFormat(pdfColumnWidths[2], pdfRowHeight, fmt.Sprintf("%d", r.TotalDeals), "1", 0, "R", false, 0, "")
	pdf.Ln(-1)

	return pdf.Output(w)
}

func truncate(pdf *fpdf.Fpdf, text string, width float64) string {
	if pdf.GetStringWidth(text) <= width {
		return text
	}
	runes := []rune(text)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"...") > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}
