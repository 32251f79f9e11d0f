package schemas

import "go.mongodb.org/mongo-driver/v2/bson"

type Stage struct {
	ID        bson.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	Name      string        `json:"name" bson:"name"`
	CompanyID string        `json:"companyId" bson:"companyId"`
}

type StageOverwrite struct {
	Stages                []Stage  `json:"stages"`
	UpdatedPipelinesCount int64    `json:"updatedPipelinesCount"`
	DefaultStage          string   `json:"defaultStage,omitempty"`
	DeletedStages         []string `json:"deletedStages"`
}
