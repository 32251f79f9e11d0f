package schemas

import (
	"encoding/json"
	"strings"
	"time"

	"crm/utils"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type Pipeline struct {
	ID             bson.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	CompanyID      string        `json:"companyId" bson:"companyId"`
	PipelineName   string        `json:"pipelineName" bson:"pipelineName"`
	TotalDealValue float64       `json:"totalDealValue" bson:"totalDealValue"`
	NoOfDeals      int64         `json:"noOfDeals" bson:"noOfDeals"`
	Stage          string        `json:"stage" bson:"stage"`
	Status         string        `json:"status" bson:"status"`
	CreatedDate    time.Time     `json:"createdDate" bson:"createdDate"`
}

// PipelineInput is the create payload. CreatedDate is kept as text so callers
// can send any of the accepted date layouts.
type PipelineInput struct {
	PipelineName   string  `json:"pipelineName"`
	TotalDealValue float64 `json:"totalDealValue"`
	NoOfDeals      int64   `json:"noOfDeals"`
	Stage          string  `json:"stage"`
	Status         string  `json:"status"`
	CreatedDate    string  `json:"createdDate,omitempty"`
}

// PipelinePatch is a shallow field merge: nil fields are left untouched.
type PipelinePatch struct {
	PipelineName   *string    `json:"pipelineName,omitempty"`
	TotalDealValue *float64   `json:"totalDealValue,omitempty"`
	NoOfDeals      *int64     `json:"noOfDeals,omitempty"`
	Stage          *string    `json:"stage,omitempty"`
	Status         *string    `json:"status,omitempty"`
	CreatedDate    *time.Time `json:"createdDate,omitempty"`
}

// UnmarshalJSON reads createdDate with the same layouts CreateOne accepts.
func (p *PipelinePatch) UnmarshalJSON(data []byte) error {
	type patchFields PipelinePatch
	var raw struct {
		patchFields
		CreatedDate *string `json:"createdDate,omitempty"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*p = PipelinePatch(raw.patchFields)
	p.CreatedDate = nil
	if raw.CreatedDate != nil {
		parsed, ok := utils.ParseDate(*raw.CreatedDate)
		if !ok {
			return utils.ErrInvalidCreatedDate
		}
		p.CreatedDate = &parsed
	}
	return nil
}

func (p PipelinePatch) IsEmpty() bool {
	return p.PipelineName == nil &&
		p.TotalDealValue == nil &&
		p.NoOfDeals == nil &&
		p.Stage == nil &&
		p.Status == nil &&
		p.CreatedDate == nil
}

func (p PipelinePatch) Apply(pipeline *Pipeline) {
	if p.PipelineName != nil {
		pipeline.PipelineName = *p.PipelineName
	}
	if p.TotalDealValue != nil {
		pipeline.TotalDealValue = *p.TotalDealValue
	}
	if p.NoOfDeals != nil {
		pipeline.NoOfDeals = *p.NoOfDeals
	}
	if p.Stage != nil {
		pipeline.Stage = *p.Stage
	}
	if p.Status != nil {
		pipeline.Status = *p.Status
	}
	if p.CreatedDate != nil {
		pipeline.CreatedDate = *p.CreatedDate
	}
}

type PipelineFilters struct {
	Stage  string     `json:"stage,omitempty"`
	Status string     `json:"status,omitempty"`
	Search string     `json:"search,omitempty"`
	From   *time.Time `json:"from,omitempty"`
	To     *time.Time `json:"to,omitempty"`
}

// Matches mirrors the query the Mongo collection builds from the same filters.
func (f PipelineFilters) Matches(pipeline Pipeline) bool {
	if f.Stage != "" && pipeline.Stage != f.Stage {
		return false
	}
	if f.Status != "" && pipeline.Status != f.Status {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(pipeline.PipelineName), strings.ToLower(f.Search)) {
		return false
	}
	if f.From != nil && pipeline.CreatedDate.Before(*f.From) {
		return false
	}
	if f.To != nil && pipeline.CreatedDate.After(*f.To) {
		return false
	}
	return true
}
