package database

import (
	"context"
	"errors"
	"regexp"
	"time"

	"crm/schemas"
	"crm/utils"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type mongoPipelines struct {
	collection *mongo.Collection
	companyID  string
}

// pipelineRecord decodes createdDate loosely: older documents stored it as a
// string instead of a BSON date.
type pipelineRecord struct {
	ID             bson.ObjectID `bson:"_id"`
	CompanyID      string        `bson:"companyId"`
	PipelineName   string        `bson:"pipelineName"`
	TotalDealValue float64       `bson:"totalDealValue"`
	NoOfDeals      int64         `bson:"noOfDeals"`
	Stage          string        `bson:"stage"`
	Status         string        `bson:"status"`
	CreatedDate    bson.RawValue `bson:"createdDate"`
}

func (r pipelineRecord) toPipeline() schemas.Pipeline {
	return schemas.Pipeline{
		ID:             r.ID,
		CompanyID:      r.CompanyID,
		PipelineName:   r.PipelineName,
		TotalDealValue: r.TotalDealValue,
		NoOfDeals:      r.NoOfDeals,
		Stage:          r.Stage,
		Status:         r.Status,
		CreatedDate:    normalizeDate(r.CreatedDate),
	}
}

func normalizeDate(value bson.RawValue) time.Time {
	if millis, ok := value.DateTimeOK(); ok {
		return time.UnixMilli(millis).UTC()
	}
	if str, ok := value.StringValueOK(); ok {
		if parsed, ok := utils.ParseDate(str); ok {
			return parsed
		}
	}
	return time.Time{}
}

func (c *mongoPipelines) scope(filter ...bson.E) bson.D {
	return append(bson.D{{Key: "companyId", Value: c.companyID}}, filter...)
}

func (c *mongoPipelines) InsertOne(ctx context.Context, pipeline schemas.Pipeline) (bson.ObjectID, error) {
	pipeline.CompanyID = c.companyID

	result, err := c.collection.InsertOne(ctx, pipeline)
	if err != nil {
		return bson.NilObjectID, err
	}

	id, ok := result.InsertedID.(bson.ObjectID)
	if !ok {
		return bson.NilObjectID, nil
	}
	return id, nil
}

func (c *mongoPipelines) FindByID(ctx context.Context, id bson.ObjectID) (schemas.Pipeline, error) {
	record := pipelineRecord{}
	err := c.collection.FindOne(ctx, c.scope(bson.E{Key: "_id", Value: id})).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return schemas.Pipeline{}, ErrNotFound
		}
		return schemas.Pipeline{}, err
	}
	return record.toPipeline(), nil
}

func (c *mongoPipelines) Find(ctx context.Context, filters schemas.PipelineFilters) ([]schemas.Pipeline, error) {
	filter := c.scope()

	if filters.Stage != "" {
		filter = append(filter, bson.E{Key: "stage", Value: filters.Stage})
	}
	if filters.Status != "" {
		filter = append(filter, bson.E{Key: "status", Value: filters.Status})
	}
	if filters.Search != "" {
		filter = append(filter, bson.E{Key: "pipelineName", Value: bson.M{"$regex": regexp.QuoteMeta(filters.Search), "$options": "i"}})
	}

	dateRange := bson.M{}
	if filters.From != nil {
		dateRange["$gte"] = *filters.From
	}
	if filters.To != nil {
		dateRange["$lte"] = *filters.To
	}
	if len(dateRange) > 0 {
		filter = append(filter, bson.E{Key: "createdDate", Value: dateRange})
	}

	findOptions := options.Find().SetSort(bson.D{{Key: "createdDate", Value: -1}})

	cursor, err := c.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	records := []pipelineRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}

	pipelines := make([]schemas.Pipeline, 0, len(records))
	for _, record := range records {
		pipelines = append(pipelines, record.toPipeline())
	}
	return pipelines, nil
}

func (c *mongoPipelines) UpdateByID(ctx context.Context, id bson.ObjectID, patch schemas.PipelinePatch) (int64, error) {
	updateDoc := bson.D{}

	if patch.PipelineName != nil {
		updateDoc = append(updateDoc, bson.E{Key: "pipelineName", Value: *patch.PipelineName})
	}
	if patch.TotalDealValue != nil {
		updateDoc = append(updateDoc, bson.E{Key: "totalDealValue", Value: *patch.TotalDealValue})
	}
	if patch.NoOfDeals != nil {
		updateDoc = append(updateDoc, bson.E{Key: "noOfDeals", Value: *patch.NoOfDeals})
	}
	if patch.Stage != nil {
		updateDoc = append(updateDoc, bson.E{Key: "stage", Value: *patch.Stage})
	}
	if patch.Status != nil {
		updateDoc = append(updateDoc, bson.E{Key: "status", Value: *patch.Status})
	}
	if patch.CreatedDate != nil {
		updateDoc = append(updateDoc, bson.E{Key: "createdDate", Value: *patch.CreatedDate})
	}

	if len(updateDoc) == 0 {
		return 0, nil
	}

	result, err := c.collection.UpdateOne(ctx, c.scope(bson.E{Key: "_id", Value: id}), bson.D{{Key: "$set", Value: updateDoc}})
	if err != nil {
		return 0, err
	}
	return result.MatchedCount, nil
}

func (c *mongoPipelines) DeleteByID(ctx context.Context, id bson.ObjectID) (int64, error) {
	result, err := c.collection.DeleteOne(ctx, c.scope(bson.E{Key: "_id", Value: id}))
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

func (c *mongoPipelines) ReassignStages(ctx context.Context, from []string, to string) (int64, error) {
	if len(from) == 0 {
		return 0, nil
	}

	filter := c.scope(bson.E{Key: "stage", Value: bson.M{"$in": from}})
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "stage", Value: to}}}}

	result, err := c.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}
