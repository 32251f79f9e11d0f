package controllers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"crm/middlewares"
	"crm/schemas"
	"crm/utils"
)

const MAX_BODY_BYTES = 1 << 20

// Notifier is told about successful mutations so connected clients of the
// same company can refresh.
type Notifier interface {
	Notify(companyID, topic, sourceEvent string)
}

// HTTPHandler exposes the dispatcher's events as REST routes.
type HTTPHandler struct {
	dispatcher *Dispatcher
	notifier   Notifier
}

func NewHTTPHandler(dispatcher *Dispatcher, notifier Notifier) *HTTPHandler {
	return &HTTPHandler{dispatcher: dispatcher, notifier: notifier}
}

// Register mounts the routes on mux; auth wraps every route.
func (h *HTTPHandler) Register(mux *http.ServeMux, auth func(http.Handler) http.Handler) {
	handle := func(pattern string, event string, build func(r *http.Request) (json.RawMessage, error)) {
		mux.Handle(pattern, auth(h.serve(event, build)))
	}

	handle("POST /v1/pipelines", EVENT_PIPELINES_CREATE, rawBody)
	handle("GET /v1/pipelines", EVENT_PIPELINES_LIST, listFilters)
	handle("PATCH /v1/pipelines/{id}", EVENT_PIPELINES_UPDATE, pipelineUpdate)
	handle("PUT /v1/pipelines/{id}", EVENT_PIPELINES_UPDATE, pipelineUpdate)
	handle("DELETE /v1/pipelines/{id}", EVENT_PIPELINES_DELETE, func(r *http.Request) (json.RawMessage, error) {
		return json.Marshal(deletePipelinePayload{PipelineID: r.PathValue("id")})
	})
	handle("POST /v1/pipelines/export/pdf", EVENT_PIPELINES_EXPORT_PDF, noPayload)
	handle("POST /v1/pipelines/export/excel", EVENT_PIPELINES_EXPORT_EXCEL, noPayload)

	handle("GET /v1/stages", EVENT_STAGES_LIST, noPayload)
	handle("POST /v1/stages", EVENT_STAGES_ADD, rawBody)
	handle("PUT /v1/stages", EVENT_STAGES_OVERWRITE, rawBody)
	handle("PATCH /v1/stages/{id}", EVENT_STAGES_UPDATE, func(r *http.Request) (json.RawMessage, error) {
		body := updateStagePayload{}
		if err := readJSON(r, &body); err != nil {
			return nil, err
		}
		body.StageID = r.PathValue("id")
		return json.Marshal(body)
	})
}

func (h *HTTPHandler) serve(event string, build func(r *http.Request) (json.RawMessage, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var session *middlewares.Session
		if s, ok := middlewares.SessionFromContext(r.Context()); ok {
			session = &s
		}

		payload, err := build(r)
		if err != nil {
			utils.SendResponse(w, utils.StatusCode(err), schemas.Envelope{Error: err.Error()})
			return
		}

		companyID := r.URL.Query().Get("companyId")
		if companyID == "" {
			companyID = r.Header.Get("X-Company-ID")
		}

		res := h.dispatcher.Dispatch(r.Context(), session, Request{
			Event:     event,
			CompanyID: companyID,
			Payload:   payload,
		})

		if res.Done && res.Topic != "" && h.notifier != nil {
			h.notifier.Notify(res.CompanyID, res.Topic, event)
		}

		status := utils.StatusCode(res.Err)
		if res.Done && event == EVENT_PIPELINES_CREATE {
			status = http.StatusCreated
		}
		utils.SendResponse(w, status, res.Data)
	})
}

func noPayload(r *http.Request) (json.RawMessage, error) {
	return nil, nil
}

func rawBody(r *http.Request) (json.RawMessage, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, MAX_BODY_BYTES))
	if err != nil {
		return nil, utils.InvalidRequest(err)
	}
	return body, nil
}

func readJSON(r *http.Request, target any) error {
	body, err := rawBody(r)
	if err != nil {
		return err
	}
	return decode(body, target)
}

func pipelineUpdate(r *http.Request) (json.RawMessage, error) {
	patch := schemas.PipelinePatch{}
	if err := readJSON(r, &patch); err != nil {
		return nil, err
	}
	return json.Marshal(updatePipelinePayload{PipelineID: r.PathValue("id"), Update: patch})
}

// listFilters maps query parameters onto the list filters. Dates accept the
// same layouts as a pipeline's createdDate.
func listFilters(r *http.Request) (json.RawMessage, error) {
	query := r.URL.Query()
	filters := schemas.PipelineFilters{
		Stage:  query.Get("stage"),
		Status: query.Get("status"),
		Search: query.Get("search"),
	}

	parse := func(key string) (*time.Time, error) {
		value := query.Get(key)
		if value == "" {
			return nil, nil
		}
		parsed, ok := utils.ParseDate(value)
		if !ok {
			return nil, utils.InvalidRequest(fmt.Errorf("invalid %s date %q", key, value))
		}
		return &parsed, nil
	}

	var err error
	if filters.From, err = parse("from"); err != nil {
		return nil, err
	}
	if filters.To, err = parse("to"); err != nil {
		return nil, err
	}

	return json.Marshal(listPipelinesPayload{Filters: filters})
}
