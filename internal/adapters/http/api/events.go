package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	service "github.com/okian/kira/internal/app"
	"github.com/okian/kira/internal/domain/model"
)

// EventDependencies defines the interface for event processing dependencies.
type EventDependencies interface {
	Ingest(ctx context.Context, e model.EngagementEvent) (model.IngestResult, error)
	Submit(ctx context.Context, e model.EngagementEvent) error
}

// EventsHandler handles event requests.
type EventsHandler struct {
	deps         EventDependencies
	maxBatch     int
	maxBodyBytes int64
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventDependencies, maxBatch int, maxBodyBytes int64) *EventsHandler {
	return &EventsHandler{deps: deps, maxBatch: maxBatch, maxBodyBytes: maxBodyBytes}
}

type ingestResponse struct {
	Status string              `json:"status"`
	Score  *model.UnifiedScore `json:"score,omitempty"`
}

type batchRequest struct {
	Events []model.EventPayload `json:"events"`
}

type batchRejection struct {
	Index   int    `json:"index"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type batchResponse struct {
	Accepted int              `json:"accepted"`
	Rejected []batchRejection `json:"rejected"`
}

// HandlePostEvent handles POST /events. The event is scored before the
// response is written.
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_event"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var p model.EventPayload
	if err := decodeJSON(w, r, h.maxBodyBytes, &p); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	e, err := p.ToEvent()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_event", Wrap(op, err))
		return
	}
	res, err := h.deps.Ingest(r.Context(), e)
	switch {
	case errors.Is(err, model.ErrInvalidEvent):
		writeError(w, http.StatusBadRequest, "invalid_event", Wrap(op, err))
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, ingestResponse{Status: string(res.Outcome), Score: res.Score})
}

// HandlePostBatch handles POST /events/batch. Valid events are queued for
// the worker pool and rejected ones are reported by index.
func (h *EventsHandler) HandlePostBatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_batch"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req batchRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if len(req.Events) > h.maxBatch {
		writeError(w, http.StatusBadRequest, "batch_too_large",
			WrapKind(op, ErrBatchTooLarge, fmt.Errorf("%d events, max %d", len(req.Events), h.maxBatch)))
		return
	}

	resp := batchResponse{Rejected: []batchRejection{}}
	backpressure := false
	for i, p := range req.Events {
		e, err := p.ToEvent()
		if err == nil {
			err = h.deps.Submit(r.Context(), e)
		}
		switch {
		case err == nil:
			resp.Accepted++
		case errors.Is(err, service.ErrNotStarted):
			writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
			return
		case errors.Is(err, service.ErrBackpressure):
			backpressure = true
			resp.Rejected = append(resp.Rejected, batchRejection{Index: i, Code: "backpressure", Message: err.Error()})
		default:
			resp.Rejected = append(resp.Rejected, batchRejection{Index: i, Code: "invalid_event", Message: err.Error()})
		}
	}

	if resp.Accepted == 0 && backpressure {
		writeJSON(w, http.StatusTooManyRequests, resp)
		return
	}
	writeJSON(w, http.StatusAccepted, resp)
}
