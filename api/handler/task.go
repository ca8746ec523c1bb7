package handler

import (
	"encoding/json"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskscan/domain"
	"github.com/fastygo/taskscan/pkg/httpcontext"
	"github.com/fastygo/taskscan/usecase/tasklist"
)

type TaskHandler struct {
	baseHandler
	tasks *tasklist.Usecase
}

func NewTaskHandler(tasks *tasklist.Usecase, adapter *httpcontext.Adapter, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		baseHandler: newBaseHandler(adapter, logger),
		tasks:       tasks,
	}
}

// @Summary Get the task list
// @Tags tasks
// @Router /api/v1/tasks [get]
func (h *TaskHandler) GetTasks(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	list, err := h.tasks.List(stdCtx)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, list)
}

// @Summary Replace the task list
// @Tags tasks
// @Router /api/v1/tasks [put]
func (h *TaskHandler) ReplaceTasks(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	var list domain.TaskList
	if err := json.Unmarshal(ctx.PostBody(), &list); err != nil {
		h.respondError(ctx, domain.ErrInvalidPayload)
		return
	}
	if err := h.tasks.Replace(stdCtx, &list); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, map[string]interface{}{
		"today":    len(list.Today),
		"longterm": len(list.Longterm),
	})
}
