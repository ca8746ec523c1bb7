package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskscan/internal/infrastructure/scanlog"
	"github.com/fastygo/taskscan/internal/scan"
	"github.com/fastygo/taskscan/pkg/httpcontext"
)

// recentCycles bounds the history returned by the status endpoint.
const recentCycles = 10

type ScanHandler struct {
	baseHandler
	orchestrator *scan.Orchestrator
	log          *scanlog.Store
}

func NewScanHandler(orchestrator *scan.Orchestrator, log *scanlog.Store, adapter *httpcontext.Adapter, logger *zap.Logger) *ScanHandler {
	return &ScanHandler{
		baseHandler:  newBaseHandler(adapter, logger),
		orchestrator: orchestrator,
		log:          log,
	}
}

// @Summary Trigger a scan cycle
// @Tags scan
// @Router /api/v1/scan [post]
func (h *ScanHandler) Trigger(ctx *fasthttp.RequestCtx) {
	if err := h.orchestrator.Trigger(scan.TriggerManual); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusAccepted, h.orchestrator.Status())
}

// @Summary Scan status with recent cycle history
// @Tags scan
// @Router /api/v1/scan [get]
func (h *ScanHandler) Status(ctx *fasthttp.RequestCtx) {
	recent, err := h.log.Recent(recentCycles)
	if err != nil {
		h.logger.Warn("scan history unavailable", zap.Error(err))
	}
	h.respondSuccess(ctx, http.StatusOK, map[string]interface{}{
		"status": h.orchestrator.Status(),
		"recent": recent,
	})
}
