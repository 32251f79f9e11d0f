package exports

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"crm/database"
	"crm/metrics"
	"crm/schemas"
	"crm/utils"

	"github.com/google/uuid"
)

const (
	FORMAT_PDF   = "pdf"
	FORMAT_EXCEL = "excel"

	CONTENT_TYPE_PDF   = "application/pdf"
	CONTENT_TYPE_EXCEL = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	ARTIFACT_PREFIX = "pipelines_"
)

// Snapshotter lists a tenant's pipelines. The pipelines store satisfies it.
type Snapshotter interface {
	GetAll(ctx context.Context, tenant *database.Tenant, filters schemas.PipelineFilters) ([]schemas.Pipeline, error)
}

type Exporter struct {
	source   Snapshotter
	store    ArtifactStore
	currency string
	logger   *slog.Logger
	now      func() time.Time
}

func NewExporter(source Snapshotter, store ArtifactStore, currency string, logger *slog.Logger) *Exporter {
	if currency == "" {
		currency = "$"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		source:   source,
		store:    store,
		currency: currency,
		logger:   logger.With("component", "exports"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Export renders every pipeline of the tenant in format and persists the file.
func (e *Exporter) Export(ctx context.Context, tenant *database.Tenant, format string) (Artifact, error) {
	var (
		write       func(io.Writer, report) error
		extension   string
		contentType string
	)
	switch format {
	case FORMAT_PDF:
		write, extension, contentType = writePDF, "pdf", CONTENT_TYPE_PDF
	case FORMAT_EXCEL:
		write, extension, contentType = writeExcel, "xlsx", CONTENT_TYPE_EXCEL
	default:
		return Artifact{}, utils.ErrInvalidExportFormat
	}

	pipelines, err := e.source.GetAll(ctx, tenant, schemas.PipelineFilters{})
	if err != nil {
		metrics.ObserveExport(format, "error")
		return Artifact{}, err
	}
	if len(pipelines) == 0 {
		metrics.ObserveExport(format, "empty")
		return Artifact{}, utils.ErrNoPipelinesToExport
	}

	generatedAt := e.now()
	content := buildReport(tenant.CompanyID, pipelines, e.currency, generatedAt)

	buf := &bytes.Buffer{}
	if err := write(buf, content); err != nil {
		metrics.ObserveExport(format, "error")
		return Artifact{}, fmt.Errorf("render %s export: %w", format, err)
	}

	name := fmt.Sprintf("%s%s_%s_%s.%s", ARTIFACT_PREFIX, tenant.CompanyID, generatedAt.Format("20060102T150405"), uuid.NewString(), extension)

	artifact, err := e.store.Save(ctx, name, contentType, bytes.NewReader(buf.Bytes()))
	if err != nil {
		metrics.ObserveExport(format, "error")
		return Artifact{}, utils.Infrastructure(err)
	}

	metrics.ObserveExport(format, "success")
	e.logger.Info("export generated",
		"company_id", tenant.CompanyID,
		"format", format,
		"rows", len(content.Rows),
		"bytes", buf.Len(),
		"path", artifact.Path,
	)
	return artifact, nil
}
