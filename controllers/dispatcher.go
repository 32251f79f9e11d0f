package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"crm/database"
	"crm/entities/exports"
	"crm/entities/pipelines"
	"crm/entities/stages"
	"crm/metrics"
	"crm/middlewares"
	"crm/schemas"
	"crm/utils"
)

type handlerFunc func(ctx context.Context, tenant *database.Tenant, payload json.RawMessage) (any, error)

type route struct {
	mutating bool
	topic    string
	handle   handlerFunc
}

// Dispatcher turns events into store calls and store results into envelopes.
// Every call resolves to an envelope, panics included.
type Dispatcher struct {
	resolver  database.Resolver
	gate      *middlewares.AccessGate
	pipelines *pipelines.Store
	stages    *stages.Store
	exporter  *exports.Exporter
	logger    *slog.Logger
	routes    map[string]route
}

type DispatcherOptions struct {
	Resolver  database.Resolver
	Gate      *middlewares.AccessGate
	Pipelines *pipelines.Store
	Stages    *stages.Store
	Exporter  *exports.Exporter
	Logger    *slog.Logger
}

func NewDispatcher(opts DispatcherOptions) *Dispatcher {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	gate := opts.Gate
	if gate == nil {
		gate = middlewares.NewAccessGate(logger)
	}

	d := &Dispatcher{
		resolver:  opts.Resolver,
		gate:      gate,
		pipelines: opts.Pipelines,
		stages:    opts.Stages,
		exporter:  opts.Exporter,
		logger:    logger.With("component", "dispatcher"),
	}

	d.routes = map[string]route{
		EVENT_PIPELINES_CREATE:       {mutating: true, topic: TOPIC_PIPELINES_CHANGED, handle: d.createPipeline},
		EVENT_PIPELINES_LIST:         {handle: d.listPipelines},
		EVENT_PIPELINES_UPDATE:       {mutating: true, topic: TOPIC_PIPELINES_CHANGED, handle: d.updatePipeline},
		EVENT_PIPELINES_DELETE:       {mutating: true, topic: TOPIC_PIPELINES_CHANGED, handle: d.deletePipeline},
		EVENT_PIPELINES_EXPORT_PDF:   {mutating: true, handle: d.exportPDF},
		EVENT_PIPELINES_EXPORT_EXCEL: {mutating: true, handle: d.exportExcel},
		EVENT_STAGES_LIST:            {handle: d.listStages},
		EVENT_STAGES_ADD:             {mutating: true, topic: TOPIC_STAGES_CHANGED, handle: d.addStage},
		EVENT_STAGES_UPDATE:          {mutating: true, topic: TOPIC_STAGES_CHANGED, handle: d.updateStage},
		EVENT_STAGES_OVERWRITE:       {mutating: true, topic: TOPIC_STAGES_CHANGED, handle: d.overwriteStages},
	}

	return d
}

func (d *Dispatcher) Dispatch(ctx context.Context, session *middlewares.Session, req Request) (res Response) {
	start := time.Now()
	res = Response{Event: req.Event + RESPONSE_SUFFIX, RequestID: req.RequestID, CompanyID: req.CompanyID}
	if res.CompanyID == "" && session != nil {
		res.CompanyID = session.CompanyID
	}

	defer func() {
		if rec := recover(); rec != nil {
			d.logger.Error("event handler panic",
				slog.String("event", req.Event),
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())),
			)
			res.Done = false
			res.Topic = ""
			res.Err = fmt.Errorf("panic: %v", rec)
			res.Data = schemas.Envelope{Error: utils.SendInternalError(utils.EVENT_HANDLER_PANIC)}
		}

		duration := time.Since(start)
		metrics.ObserveEvent(req.Event, res.Done, duration)

		attrs := []any{
			slog.String("event", req.Event),
			slog.String("company_id", res.CompanyID),
			slog.Bool("done", res.Done),
			slog.Duration("duration", duration),
		}
		if res.Err != nil {
			attrs = append(attrs, slog.String("error", res.Err.Error()))
		}
		d.logger.Info("event handled", attrs...)
	}()

	route, ok := d.routes[req.Event]
	if !ok {
		return d.fail(res, utils.ErrUnknownEvent)
	}

	if err := d.gate.Authorize(session, res.CompanyID, route.mutating); err != nil {
		return d.fail(res, err)
	}

	tenant, err := d.resolver.Resolve(ctx, res.CompanyID)
	if err != nil {
		return d.fail(res, utils.Infrastructure(err))
	}

	data, err := route.handle(ctx, tenant, req.Payload)
	if err != nil {
		return d.fail(res, err)
	}

	res.Done = true
	res.Topic = route.topic
	if overwrite, ok := data.(schemas.StageOverwrite); ok {
		res.Data = overwriteEnvelope(overwrite)
		return res
	}
	res.Data = schemas.Envelope{Done: true, Data: data}
	return res
}

func (d *Dispatcher) fail(res Response, err error) Response {
	res.Done = false
	res.Err = err
	res.Data = schemas.Envelope{Error: err.Error()}
	return res
}

func overwriteEnvelope(result schemas.StageOverwrite) schemas.StageOverwriteEnvelope {
	envelope := schemas.StageOverwriteEnvelope{
		Envelope:              schemas.Envelope{Done: true, Data: result.Stages},
		UpdatedPipelinesCount: result.UpdatedPipelinesCount,
		DeletedStages:         result.DeletedStages,
	}
	if result.DefaultStage != "" {
		defaultStage := result.DefaultStage
		envelope.DefaultStage = &defaultStage
	}
	return envelope
}

// decode leaves target untouched for an absent or null payload.
func decode(payload json.RawMessage, target any) error {
	if len(payload) == 0 || string(payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(payload, target); err != nil {
		var appErr *utils.AppError
		if errors.As(err, &appErr) {
			return err
		}
		return utils.InvalidRequest(err)
	}
	return nil
}
