package controllers

import (
	"encoding/json"

	"crm/schemas"
)

const (
	EVENT_PIPELINES_CREATE       = "pipelines:create"
	EVENT_PIPELINES_LIST         = "pipelines:list"
	EVENT_PIPELINES_UPDATE       = "pipelines:update"
	EVENT_PIPELINES_DELETE       = "pipelines:delete"
	EVENT_PIPELINES_EXPORT_PDF   = "pipelines:export-pdf"
	EVENT_PIPELINES_EXPORT_EXCEL = "pipelines:export-excel"

	EVENT_STAGES_LIST      = "stages:list"
	EVENT_STAGES_ADD       = "stages:add"
	EVENT_STAGES_UPDATE    = "stages:update"
	EVENT_STAGES_OVERWRITE = "stages:overwrite"

	TOPIC_PIPELINES_CHANGED = "pipelines:changed"
	TOPIC_STAGES_CHANGED    = "stages:changed"

	RESPONSE_SUFFIX = "-response"
)

// Request is one inbound event. CompanyID may be omitted, in which case the
// session's company is used.
type Request struct {
	Event     string          `json:"event"`
	RequestID string          `json:"requestId,omitempty"`
	CompanyID string          `json:"companyId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Response carries the envelope back to the transport. Data is either a
// schemas.Envelope or, for overwrites, a schemas.StageOverwriteEnvelope.
type Response struct {
	Event     string `json:"event"`
	RequestID string `json:"requestId,omitempty"`
	Data      any    `json:"data"`

	Done      bool   `json:"-"`
	Err       error  `json:"-"`
	CompanyID string `json:"-"`
	// Topic is set after a successful mutation so transports can notify the
	// company's other clients.
	Topic string `json:"-"`
}

type listPipelinesPayload struct {
	Filters schemas.PipelineFilters `json:"filters"`
}

type updatePipelinePayload struct {
	PipelineID string                `json:"pipelineId"`
	Update     schemas.PipelinePatch `json:"update"`
}

type deletePipelinePayload struct {
	PipelineID string `json:"pipelineId"`
}

type addStagePayload struct {
	Name string `json:"name"`
}

type updateStagePayload struct {
	StageID string `json:"stageId"`
	NewName string `json:"newName"`
}

type overwriteStagesPayload struct {
	Stages []string `json:"stages"`
}
