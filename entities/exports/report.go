package exports

import (
	"fmt"
	"time"

	"crm/schemas"
	"crm/utils"
)

const REPORT_TITLE = "Pipelines Report"

var reportColumns = []string{"Pipeline Name", "Total Deal Value", "No. of Deals", "Stage", "Status", "Created Date"}

type reportRow struct {
	Name        string
	Value       string
	Deals       int64
	Stage       string
	Status      string
	CreatedDate string
}

func (r reportRow) cells() []string {
	return []string{r.Name, r.Value, fmt.Sprintf("%d", r.Deals), r.Stage, r.Status, r.CreatedDate}
}

// report is the format-independent content shared by the PDF and Excel writers.
type report struct {
	CompanyID   string
	GeneratedAt time.Time
	Currency    string
	Rows        []reportRow
	TotalValue  float64
	TotalDeals  int64
}

func buildReport(companyID string, pipelines []schemas.Pipeline, currency string, generatedAt time.Time) report {
	r := report{
		CompanyID:   companyID,
		GeneratedAt: generatedAt,
		Currency:    currency,
		Rows:        make([]reportRow, 0, len(pipelines)),
	}

	for _, pipeline := range pipelines {
		r.Rows = append(r.Rows, reportRow{
			Name:        pipeline.PipelineName,
			Value:       formatCurrency(currency, pipeline.TotalDealValue),
			Deals:       pipeline.NoOfDeals,
			Stage:       pipeline.Stage,
			Status:      pipeline.Status,
			CreatedDate: utils.FormatDayMonthYear(pipeline.CreatedDate),
		})
		r.TotalValue += pipeline.TotalDealValue
		r.TotalDeals += pipeline.NoOfDeals
	}

	return r
}

func (r report) headerLines() []string {
	return []string{
		fmt.Sprintf("Company: %s", r.CompanyID),
		fmt.Sprintf("Generated: %s", r.GeneratedAt.Format("02/01/2006 15:04:05 MST")),
		fmt.Sprintf("Total rows: %d", len(r.Rows)),
	}
}

func formatCurrency(symbol string, value float64) string {
	if value < 0 {
		return fmt.Sprintf("-%s%.2f", symbol, -value)
	}
	return fmt.Sprintf("%s%.2f", symbol, value)
}
