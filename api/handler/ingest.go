package handler

import (
	"encoding/json"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskscan/domain"
	"github.com/fastygo/taskscan/internal/infrastructure/queue"
	"github.com/fastygo/taskscan/pkg/httpcontext"
)

// IngestHandler accepts raw content from local tooling (forwarded mail,
// pasted notes) and spools it for the external extraction agent.
type IngestHandler struct {
	baseHandler
	queue *queue.Queue
}

func NewIngestHandler(q *queue.Queue, adapter *httpcontext.Adapter, logger *zap.Logger) *IngestHandler {
	return &IngestHandler{
		baseHandler: newBaseHandler(adapter, logger),
		queue:       q,
	}
}

type ingestRequest struct {
	Text   string `json:"text"`
	Source string `json:"source"`
}

// @Summary Queue content for deep extraction
// @Tags ingest
// @Router /api/v1/ingest [post]
func (h *IngestHandler) Ingest(ctx *fasthttp.RequestCtx) {
	var req ingestRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondError(ctx, domain.ErrInvalidPayload)
		return
	}
	if req.Source == "" {
		req.Source = domain.SourceNotes
	}
	name, err := h.queue.Enqueue(req.Text, req.Source)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	if err := h.queue.WriteTrigger(); err != nil {
		h.logger.Warn("trigger file write failed", zap.Error(err))
	}
	h.respondSuccess(ctx, http.StatusAccepted, map[string]interface{}{
		"queued": name,
	})
}
