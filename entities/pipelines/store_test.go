package pipelines

import (
	"context"
	"errors"
	"testing"
	"time"

	"crm/database"
	"crm/schemas"
	"crm/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var fixedNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestStore() *Store {
	store := NewStore(nil)
	store.now = func() time.Time { return fixedNow }
	return store
}

func resolve(t *testing.T, resolver database.Resolver, companyID string) *database.Tenant {
	t.Helper()
	tenant, err := resolver.Resolve(context.Background(), companyID)
	require.NoError(t, err)
	return tenant
}

func TestCreateOne(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	tenant := resolve(t, database.NewMemoryResolver(), "company_a")

	created, err := store.CreateOne(ctx, tenant, schemas.PipelineInput{
		PipelineName:   "Website redesign",
		TotalDealValue: 1500,
		NoOfDeals:      3,
		Stage:          "Lead",
		Status:         "Open",
	})
	require.NoError(t, err)
	assert.False(t, created.ID.IsZero())
	assert.Equal(t, "company_a", created.CompanyID)
	assert.Equal(t, "Website redesign", created.PipelineName)
	assert.Equal(t, fixedNow, created.CreatedDate)

	dated, err := store.CreateOne(ctx, tenant, schemas.PipelineInput{PipelineName: "Dated", CreatedDate: "2023-12-01"})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC), dated.CreatedDate)
}

func TestCreateOneValidation(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	tenant := resolve(t, database.NewMemoryResolver(), "company_a")

	_, err := store.CreateOne(ctx, tenant, schemas.PipelineInput{PipelineName: "Bad", CreatedDate: "yesterday"})
	assert.ErrorIs(t, err, utils.ErrInvalidCreatedDate)

	_, err = store.CreateOne(ctx, tenant, schemas.PipelineInput{PipelineName: "Bad", NoOfDeals: -1})
	assert.ErrorIs(t, err, utils.ErrNegativeDeals)

	all, err := store.GetAll(ctx, tenant, schemas.PipelineFilters{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestGetAllIsTenantScopedAndSorted(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	resolver := database.NewMemoryResolver()
	a := resolve(t, resolver, "company_a")
	b := resolve(t, resolver, "company_b")

	for _, date := range []string{"2024-01-01", "2024-03-01", "2024-02-01"} {
		_, err := store.CreateOne(ctx, a, schemas.PipelineInput{PipelineName: "Deal " + date, Stage: "Lead", CreatedDate: date})
		require.NoError(t, err)
	}
	_, err := store.CreateOne(ctx, b, schemas.PipelineInput{PipelineName: "Other tenant"})
	require.NoError(t, err)

	all, err := store.GetAll(ctx, a, schemas.PipelineFilters{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i].CreatedDate.After(all[i-1].CreatedDate))
	}
	for _, pipeline := range all {
		assert.Equal(t, "company_a", pipeline.CompanyID)
	}

	empty, err := store.GetAll(ctx, resolve(t, resolver, "company_c"), schemas.PipelineFilters{})
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestGetAllAppliesFilters(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	tenant := resolve(t, database.NewMemoryResolver(), "company_a")

	inputs := []schemas.PipelineInput{
		{PipelineName: "Alpha deal", Stage: "Lead", Status: "Open", CreatedDate: "2024-01-10"},
		{PipelineName: "Beta deal", Stage: "Won", Status: "Closed", CreatedDate: "2024-02-10"},
		{PipelineName: "Gamma", Stage: "Lead", Status: "Closed", CreatedDate: "2024-03-10"},
	}
	for _, input := range inputs {
		_, err := store.CreateOne(ctx, tenant, input)
		require.NoError(t, err)
	}

	leads, err := store.GetAll(ctx, tenant, schemas.PipelineFilters{Stage: "Lead"})
	require.NoError(t, err)
	assert.Len(t, leads, 2)

	closedLeads, err := store.GetAll(ctx, tenant, schemas.PipelineFilters{Stage: "Lead", Status: "Closed"})
	require.NoError(t, err)
	require.Len(t, closedLeads, 1)
	assert.Equal(t, "Gamma", closedLeads[0].PipelineName)

	deals, err := store.GetAll(ctx, tenant, schemas.PipelineFilters{Search: "DEAL"})
	require.NoError(t, err)
	assert.Len(t, deals, 2)

	from := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC)
	february, err := store.GetAll(ctx, tenant, schemas.PipelineFilters{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, february, 1)
	assert.Equal(t, "Beta deal", february[0].PipelineName)
}

func TestUpdateOne(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	resolver := database.NewMemoryResolver()
	tenant := resolve(t, resolver, "company_a")

	created, err := store.CreateOne(ctx, tenant, schemas.PipelineInput{PipelineName: "Deal", Stage: "Lead", Status: "Open", NoOfDeals: 1})
	require.NoError(t, err)

	status := "Won"
	updated, err := store.UpdateOne(ctx, tenant, created.ID.Hex(), schemas.PipelinePatch{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, "Won", updated.Status)
	assert.Equal(t, "Lead", updated.Stage)
	assert.Equal(t, "Deal", updated.PipelineName)
	assert.EqualValues(t, 1, updated.NoOfDeals)

	_, err = store.UpdateOne(ctx, tenant, "not-an-id", schemas.PipelinePatch{Status: &status})
	assert.ErrorIs(t, err, utils.ErrInvalidPipelineID)

	lost := "Lost"
	_, err = store.UpdateOne(ctx, tenant, bson.NewObjectID().Hex(), schemas.PipelinePatch{Status: &lost})
	assert.ErrorIs(t, err, utils.ErrPipelineNotFound)

	_, err = store.UpdateOne(ctx, tenant, created.ID.Hex(), schemas.PipelinePatch{})
	assert.ErrorIs(t, err, utils.ErrNoFieldsToUpdate)

	negative := int64(-2)
	_, err = store.UpdateOne(ctx, tenant, created.ID.Hex(), schemas.PipelinePatch{NoOfDeals: &negative})
	assert.ErrorIs(t, err, utils.ErrNegativeDeals)

	other := resolve(t, resolver, "company_b")
	_, err = store.UpdateOne(ctx, other, created.ID.Hex(), schemas.PipelinePatch{Status: &lost})
	assert.ErrorIs(t, err, utils.ErrPipelineNotFound)

	reloaded, err := tenant.Pipelines.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, reloaded)

	all, err := store.GetAll(ctx, tenant, schemas.PipelineFilters{})
	require.NoError(t, err)
	assert.Equal(t, []schemas.Pipeline{updated}, all)
}

func TestDeleteOne(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	resolver := database.NewMemoryResolver()
	tenant := resolve(t, resolver, "company_a")

	created, err := store.CreateOne(ctx, tenant, schemas.PipelineInput{PipelineName: "Deal", TotalDealValue: 99.5})
	require.NoError(t, err)

	_, err = store.DeleteOne(ctx, resolve(t, resolver, "company_b"), created.ID.Hex())
	assert.ErrorIs(t, err, utils.ErrPipelineNotFound)

	snapshot, err := store.DeleteOne(ctx, tenant, created.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, created, snapshot)

	_, err = store.DeleteOne(ctx, tenant, created.ID.Hex())
	assert.ErrorIs(t, err, utils.ErrPipelineNotFound)

	_, err = store.DeleteOne(ctx, tenant, "123")
	assert.ErrorIs(t, err, utils.ErrInvalidPipelineID)
}

type failingPipelines struct {
	database.PipelineCollection
	err error
}

func (f failingPipelines) Find(ctx context.Context, filters schemas.PipelineFilters) ([]schemas.Pipeline, error) {
	return nil, f.err
}

func (f failingPipelines) InsertOne(ctx context.Context, pipeline schemas.Pipeline) (bson.ObjectID, error) {
	return bson.NilObjectID, nil
}

func TestStoreSurfacesDriverErrors(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	tenant := &database.Tenant{
		CompanyID: "company_a",
		Pipelines: failingPipelines{err: errors.New("connection refused")},
	}

	_, err := store.GetAll(ctx, tenant, schemas.PipelineFilters{})
	require.Error(t, err)
	assert.Equal(t, "connection refused", err.Error())
	assert.Equal(t, utils.KindInfrastructure, utils.KindOf(err))

	_, err = store.CreateOne(ctx, tenant, schemas.PipelineInput{PipelineName: "Deal"})
	assert.ErrorIs(t, err, utils.ErrPipelineNotCreated)
}
