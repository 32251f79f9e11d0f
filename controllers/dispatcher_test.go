package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"crm/database"
	"crm/entities/exports"
	"crm/entities/pipelines"
	"crm/entities/stages"
	"crm/middlewares"
	"crm/schemas"
	"crm/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	adminA  = &middlewares.Session{UserID: "u1", CompanyID: "company_a", Role: middlewares.ROLE_ADMIN}
	viewerA = &middlewares.Session{UserID: "u2", CompanyID: "company_a", Role: "viewer"}
	adminB  = &middlewares.Session{UserID: "u3", CompanyID: "company_b", Role: middlewares.ROLE_ADMIN}
)

func newTestDispatcher(t *testing.T, resolver database.Resolver) *Dispatcher {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := exports.NewLocalStore(t.TempDir(), "http://localhost:8080")
	require.NoError(t, err)

	pipelineStore := pipelines.NewStore(logger)
	return NewDispatcher(DispatcherOptions{
		Resolver:  resolver,
		Pipelines: pipelineStore,
		Stages:    stages.NewStore(database.NewLocalLocker(), logger),
		Exporter:  exports.NewExporter(pipelineStore, store, "$", logger),
		Logger:    logger,
	})
}

func payload(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

// roundTrip encodes the response the way a transport would and decodes the
// envelope back into a generic map.
func roundTrip(t *testing.T, res Response) map[string]any {
	t.Helper()
	raw, err := json.Marshal(res)
	require.NoError(t, err)

	decoded := struct {
		Event string         `json:"event"`
		Data  map[string]any `json:"data"`
	}{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, res.Event, decoded.Event)
	return decoded.Data
}

func TestDispatchPipelineLifecycle(t *testing.T) {
	ctx := context.Background()
	d := newTestDispatcher(t, database.NewMemoryResolver())

	created := d.Dispatch(ctx, adminA, Request{
		Event:     EVENT_PIPELINES_CREATE,
		RequestID: "r1",
		Payload:   payload(t, map[string]any{"pipelineName": "Deal", "totalDealValue": 100, "noOfDeals": 2, "stage": "Lead", "status": "Open"}),
	})
	require.True(t, created.Done, "%v", created.Err)
	assert.Equal(t, "pipelines:create-response", created.Event)
	assert.Equal(t, "r1", created.RequestID)
	assert.Equal(t, TOPIC_PIPELINES_CHANGED, created.Topic)

	envelope := roundTrip(t, created)
	assert.Equal(t, true, envelope["done"])
	pipeline := envelope["data"].(map[string]any)
	assert.Equal(t, "Deal", pipeline["pipelineName"])
	id := pipeline["_id"].(string)

	listed := d.Dispatch(ctx, viewerA, Request{Event: EVENT_PIPELINES_LIST})
	require.True(t, listed.Done)
	assert.Empty(t, listed.Topic)
	assert.Len(t, roundTrip(t, listed)["data"], 1)

	updated := d.Dispatch(ctx, adminA, Request{
		Event:   EVENT_PIPELINES_UPDATE,
		Payload: payload(t, map[string]any{"pipelineId": id, "update": map[string]any{"status": "Won"}}),
	})
	require.True(t, updated.Done, "%v", updated.Err)
	assert.Equal(t, "Won", roundTrip(t, updated)["data"].(map[string]any)["status"])

	deleted := d.Dispatch(ctx, adminA, Request{Event: EVENT_PIPELINES_DELETE, Payload: payload(t, map[string]any{"pipelineId": id})})
	require.True(t, deleted.Done)
	assert.Equal(t, "Won", roundTrip(t, deleted)["data"].(map[string]any)["status"])

	missing := d.Dispatch(ctx, adminA, Request{Event: EVENT_PIPELINES_DELETE, Payload: payload(t, map[string]any{"pipelineId": id})})
	assert.False(t, missing.Done)
	assert.Equal(t, map[string]any{"done": false, "error": "Pipeline not found"}, roundTrip(t, missing))
}

func TestDispatchAuthorizationFailsBeforeStores(t *testing.T) {
	ctx := context.Background()
	resolver := &countingResolver{Resolver: database.NewMemoryResolver()}
	d := newTestDispatcher(t, resolver)

	tests := []struct {
		name    string
		session *middlewares.Session
		req     Request
		want    string
	}{
		{name: "viewer mutation", session: viewerA, req: Request{Event: EVENT_STAGES_ADD, Payload: json.RawMessage(`{"name":"Lead"}`)}, want: "Unauthorized: admin role required"},
		{name: "viewer export", session: viewerA, req: Request{Event: EVENT_PIPELINES_EXPORT_PDF}, want: "Unauthorized: admin role required"},
		{name: "malformed company", session: adminA, req: Request{Event: EVENT_STAGES_LIST, CompanyID: "a$"}, want: "Invalid company ID format"},
		{name: "other company", session: adminA, req: Request{Event: EVENT_STAGES_OVERWRITE, CompanyID: "company_b", Payload: json.RawMessage(`{"stages":[]}`)}, want: "Unauthorized: company mismatch"},
		{name: "no session", session: nil, req: Request{Event: EVENT_STAGES_LIST, CompanyID: "company_a"}, want: "Unauthorized: missing session"},
		{name: "unknown event", session: adminA, req: Request{Event: "stages:explode"}, want: "Unknown event"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := d.Dispatch(ctx, tt.session, tt.req)
			assert.False(t, res.Done)
			assert.Equal(t, tt.want, res.Err.Error())
			assert.Equal(t, schemas.Envelope{Error: tt.want}, res.Data)
		})
	}
	assert.Zero(t, resolver.calls)
}

func TestDispatchStageOverwriteEnvelope(t *testing.T) {
	ctx := context.Background()
	resolver := database.NewMemoryResolver()
	d := newTestDispatcher(t, resolver)

	first := d.Dispatch(ctx, adminA, Request{Event: EVENT_STAGES_OVERWRITE, Payload: json.RawMessage(`{"stages":["X","Y"]}`)})
	require.True(t, first.Done, "%v", first.Err)

	tenant, err := resolver.Resolve(ctx, "company_a")
	require.NoError(t, err)
	_, err = tenant.Pipelines.InsertOne(ctx, schemas.Pipeline{PipelineName: "Deal", Stage: "X"})
	require.NoError(t, err)

	second := d.Dispatch(ctx, adminA, Request{Event: EVENT_STAGES_OVERWRITE, Payload: json.RawMessage(`{"stages":["Y","Z"]}`)})
	require.True(t, second.Done, "%v", second.Err)
	assert.Equal(t, "stages:overwrite-response", second.Event)

	envelope := roundTrip(t, second)
	assert.Equal(t, true, envelope["done"])
	assert.Equal(t, float64(1), envelope["updatedPipelinesCount"])
	assert.Equal(t, "Y", envelope["defaultStage"])
	assert.Equal(t, []any{"X"}, envelope["deletedStages"])
	assert.Len(t, envelope["data"], 2)

	cleared := d.Dispatch(ctx, adminA, Request{Event: EVENT_STAGES_OVERWRITE, Payload: json.RawMessage(`{"stages":[]}`)})
	require.True(t, cleared.Done)
	envelope = roundTrip(t, cleared)
	assert.Nil(t, envelope["defaultStage"])
	assert.Equal(t, float64(0), envelope["updatedPipelinesCount"])
}

func TestDispatchStageConflict(t *testing.T) {
	ctx := context.Background()
	d := newTestDispatcher(t, database.NewMemoryResolver())

	first := d.Dispatch(ctx, adminA, Request{Event: EVENT_STAGES_ADD, Payload: json.RawMessage(`{"name":"Lead"}`)})
	require.True(t, first.Done)

	second := d.Dispatch(ctx, adminA, Request{Event: EVENT_STAGES_ADD, Payload: json.RawMessage(`{"name":"Lead"}`)})
	assert.False(t, second.Done)
	assert.Equal(t, utils.KindConflict, utils.KindOf(second.Err))
	assert.Equal(t, schemas.Envelope{Error: "Stage already exists"}, second.Data)
}

func TestDispatchIsolatesTenants(t *testing.T) {
	ctx := context.Background()
	d := newTestDispatcher(t, database.NewMemoryResolver())

	require.True(t, d.Dispatch(ctx, adminA, Request{Event: EVENT_STAGES_ADD, Payload: json.RawMessage(`{"name":"Lead"}`)}).Done)

	res := d.Dispatch(ctx, adminB, Request{Event: EVENT_STAGES_LIST})
	require.True(t, res.Done)
	assert.Empty(t, roundTrip(t, res)["data"])
}

func TestDispatchExports(t *testing.T) {
	ctx := context.Background()
	d := newTestDispatcher(t, database.NewMemoryResolver())

	empty := d.Dispatch(ctx, adminA, Request{Event: EVENT_PIPELINES_EXPORT_EXCEL})
	assert.False(t, empty.Done)
	assert.Equal(t, schemas.Envelope{Error: "No pipelines found for export"}, empty.Data)

	require.True(t, d.Dispatch(ctx, adminA, Request{Event: EVENT_PIPELINES_CREATE, Payload: json.RawMessage(`{"pipelineName":"Deal","totalDealValue":10}`)}).Done)

	pdf := d.Dispatch(ctx, adminA, Request{Event: EVENT_PIPELINES_EXPORT_PDF})
	require.True(t, pdf.Done, "%v", pdf.Err)
	data := roundTrip(t, pdf)["data"].(map[string]any)
	assert.Contains(t, data["pdfUrl"], "http://localhost:8080/exports/pipelines_company_a_")
	assert.NotEmpty(t, data["path"])

	excel := d.Dispatch(ctx, adminA, Request{Event: EVENT_PIPELINES_EXPORT_EXCEL})
	require.True(t, excel.Done, "%v", excel.Err)
	assert.Contains(t, roundTrip(t, excel)["data"].(map[string]any)["excelUrl"], ".xlsx")
}

func TestDispatchInvalidPayload(t *testing.T) {
	d := newTestDispatcher(t, database.NewMemoryResolver())

	res := d.Dispatch(context.Background(), adminA, Request{Event: EVENT_STAGES_ADD, Payload: json.RawMessage(`{"name":`)})
	assert.False(t, res.Done)
	assert.Equal(t, utils.KindValidation, utils.KindOf(res.Err))
}

func TestDispatchUpdateAcceptsCreateDateLayouts(t *testing.T) {
	ctx := context.Background()
	d := newTestDispatcher(t, database.NewMemoryResolver())

	created := d.Dispatch(ctx, adminA, Request{
		Event:   EVENT_PIPELINES_CREATE,
		Payload: payload(t, map[string]any{"pipelineName": "Deal", "stage": "Lead", "createdDate": "2024-01-05"}),
	})
	require.True(t, created.Done, "%v", created.Err)
	id := roundTrip(t, created)["data"].(map[string]any)["_id"].(string)

	for input, expected := range map[string]string{
		"2024-01-06":           "2024-01-06T00:00:00Z",
		"2024-01-07 10:30:00":  "2024-01-07T10:30:00Z",
		"2024-01-08T09:00:00Z": "2024-01-08T09:00:00Z",
	} {
		updated := d.Dispatch(ctx, adminA, Request{
			Event:   EVENT_PIPELINES_UPDATE,
			Payload: payload(t, map[string]any{"pipelineId": id, "update": map[string]any{"createdDate": input}}),
		})
		require.True(t, updated.Done, "%s: %v", input, updated.Err)
		assert.Equal(t, expected, roundTrip(t, updated)["data"].(map[string]any)["createdDate"], input)
	}

	invalid := d.Dispatch(ctx, adminA, Request{
		Event:   EVENT_PIPELINES_UPDATE,
		Payload: payload(t, map[string]any{"pipelineId": id, "update": map[string]any{"createdDate": "yesterday"}}),
	})
	assert.False(t, invalid.Done)
	assert.ErrorIs(t, invalid.Err, utils.ErrInvalidCreatedDate)
	assert.Equal(t, map[string]any{"done": false, "error": "Invalid createdDate format"}, roundTrip(t, invalid))
}

func TestDispatchRecoversFromPanics(t *testing.T) {
	d := newTestDispatcher(t, panickingResolver{})

	res := d.Dispatch(context.Background(), adminA, Request{Event: EVENT_STAGES_LIST})
	assert.False(t, res.Done)
	assert.Equal(t, schemas.Envelope{Error: utils.SendInternalError(utils.EVENT_HANDLER_PANIC)}, res.Data)
}

func TestDispatchSurfacesResolverErrors(t *testing.T) {
	d := newTestDispatcher(t, failingResolver{err: errors.New("server selection timeout")})

	res := d.Dispatch(context.Background(), adminA, Request{Event: EVENT_STAGES_LIST})
	assert.False(t, res.Done)
	assert.Equal(t, schemas.Envelope{Error: "server selection timeout"}, res.Data)
}

type countingResolver struct {
	database.Resolver
	calls int
}

func (r *countingResolver) Resolve(ctx context.Context, companyID string) (*database.Tenant, error) {
	r.calls++
	return r.Resolver.Resolve(ctx, companyID)
}

type panickingResolver struct{}

func (panickingResolver) Resolve(ctx context.Context, companyID string) (*database.Tenant, error) {
	panic("boom")
}

type failingResolver struct{ err error }

func (r failingResolver) Resolve(ctx context.Context, companyID string) (*database.Tenant, error) {
	return nil, r.err
}
