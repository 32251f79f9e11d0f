package controllers

import (
	"context"
	"encoding/json"

	"crm/database"
	"crm/entities/exports"
	"crm/schemas"
)

func (d *Dispatcher) createPipeline(ctx context.Context, tenant *database.Tenant, payload json.RawMessage) (any, error) {
	input := schemas.PipelineInput{}
	if err := decode(payload, &input); err != nil {
		return nil, err
	}
	return d.pipelines.CreateOne(ctx, tenant, input)
}

func (d *Dispatcher) listPipelines(ctx context.Context, tenant *database.Tenant, payload json.RawMessage) (any, error) {
	body := listPipelinesPayload{}
	if err := decode(payload, &body); err != nil {
		return nil, err
	}
	return d.pipelines.GetAll(ctx, tenant, body.Filters)
}

func (d *Dispatcher) updatePipeline(ctx context.Context, tenant *database.Tenant, payload json.RawMessage) (any, error) {
	body := updatePipelinePayload{}
	if err := decode(payload, &body); err != nil {
		return nil, err
	}
	return d.pipelines.UpdateOne(ctx, tenant, body.PipelineID, body.Update)
}

func (d *Dispatcher) deletePipeline(ctx context.Context, tenant *database.Tenant, payload json.RawMessage) (any, error) {
	body := deletePipelinePayload{}
	if err := decode(payload, &body); err != nil {
		return nil, err
	}
	return d.pipelines.DeleteOne(ctx, tenant, body.PipelineID)
}

func (d *Dispatcher) exportPDF(ctx context.Context, tenant *database.Tenant, payload json.RawMessage) (any, error) {
	artifact, err := d.exporter.Export(ctx, tenant, exports.FORMAT_PDF)
	if err != nil {
		return nil, err
	}
	return schemas.ExportPDFData{PDFURL: artifact.URL, Path: artifact.Path}, nil
}

func (d *Dispatcher) exportExcel(ctx context.Context, tenant *database.Tenant, payload json.RawMessage) (any, error) {
	artifact, err := d.exporter.Export(ctx, tenant, exports.FORMAT_EXCEL)
	if err != nil {
		return nil, err
	}
	return schemas.ExportExcelData{ExcelURL: artifact.URL, Path: artifact.Path}, nil
}

func (d *Dispatcher) listStages(ctx context.Context, tenant *database.Tenant, payload json.RawMessage) (any, error) {
	return d.stages.GetAll(ctx, tenant)
}

func (d *Dispatcher) addStage(ctx context.Context, tenant *database.Tenant, payload json.RawMessage) (any, error) {
	body := addStagePayload{}
	if err := decode(payload, &body); err != nil {
		return nil, err
	}
	return d.stages.CreateOne(ctx, tenant, body.Name)
}

func (d *Dispatcher) updateStage(ctx context.Context, tenant *database.Tenant, payload json.RawMessage) (any, error) {
	body := updateStagePayload{}
	if err := decode(payload, &body); err != nil {
		return nil, err
	}
	return d.stages.UpdateOne(ctx, tenant, body.StageID, body.NewName)
}

func (d *Dispatcher) overwriteStages(ctx context.Context, tenant *database.Tenant, payload json.RawMessage) (any, error) {
	body := overwriteStagesPayload{}
	if err := decode(payload, &body); err != nil {
		return nil, err
	}
	return d.stages.OverwriteAll(ctx, tenant, body.Stages)
}
