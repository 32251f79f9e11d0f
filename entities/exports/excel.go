package exports

import (
	"io"

	"github.com/xuri/excelize/v2"
)

const EXCEL_SHEET = "Pipelines"

var excelColumnWidths = []float64{36, 20, 14, 22, 18, 16}

// writeExcel renders the report on a single sheet: a header block, the
// column headers, one row per pipeline and a bold TOTAL row.
func writeExcel(w io.Writer, r report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", EXCEL_SHEET); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	title, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	if err != nil {
		return err
	}

	for i, width := range excelColumnWidths {
		column, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(EXCEL_SHEET, column, column, width); err != nil {
			return err
		}
	}

	row := 1
	if err := f.SetCellValue(EXCEL_SHEET, "A1", REPORT_TITLE); err != nil {
		return err
	}
	if err := f.SetCellStyle(EXCEL_SHEET, "A1", "A1", title); err != nil {
		return err
	}
	for _, line := range r.headerLines() {
		row++
		if err := setRow(f, row, []any{line}); err != nil {
			return err
		}
	}

	row += 2
	headers := make([]any, 0, len(reportColumns))
	for _, column := range reportColumns {
		headers = append(headers, column)
	}
	if err := setRow(f, row, headers); err != nil {
		return err
	}
	if err := styleRow(f, row, len(reportColumns), bold); err != nil {
		return err
	}

	for _, data := range r.Rows {
		row++
		if err := setRow(f, row, []any{data.Name, data.Value, data.Deals, data.Stage, data.Status, data.CreatedDate}); err != nil {
			return err
		}
	}

	row++
	if err := setRow(f, row, []any{"TOTAL", formatCurrency(r.Currency, r.TotalValue), r.TotalDeals}); err != nil {
		return err
	}
	if err := styleRow(f, row, len(reportColumns), bold); err != nil {
		return err
	}

	return f.Write(w)
}

func setRow(f *excelize.File, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(EXCEL_SHEET, cell, &values)
}

func styleRow(f *excelize.File, row, columns, style int) error {
	first, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(columns, row)
	if err != nil {
		return err
	}
	return f.SetCellStyle(EXCEL_SHEET, first, last, style)
}
