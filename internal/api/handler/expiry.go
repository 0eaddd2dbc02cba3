package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/group_sub_server/internal/model/dto"
	"github.com/qs3c/group_sub_server/internal/pkg/response"
	"github.com/qs3c/group_sub_server/internal/service"
)

// SweepRunner 手动触发一次巡检
type SweepRunner interface {
	RunNow(ctx context.Context) (*dto.SweepResult, error)
}

type ExpiryHandler struct {
	expiryService *service.ExpiryService
	runner        SweepRunner
}

func NewExpiryHandler(expiryService *service.ExpiryService, runner SweepRunner) *ExpiryHandler {
	return &ExpiryHandler{
		expiryService: expiryService,
		runner:        runner,
	}
}

// Stats 到期统计
// GET /api/v1/expiry/stats
func (h *ExpiryHandler) Stats(c *gin.Context) {
	stats, err := h.expiryService.Stats(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}

	response.Success(c, stats)
}

// Alerts 提醒记录
// GET /api/v1/expiry/alerts?group_id=&limit=
func (h *ExpiryHandler) Alerts(c *gin.Context) {
	alerts, err := h.expiryService.Alerts(c.Request.Context(), queryInt64(c, "group_id"), queryInt(c, "limit", 50))
	if err != nil {
		renderError(c, err)
		return
	}

	response.SuccessList(c, len(alerts), alerts)
}

// Sweep 立即巡检一次
// POST /api/v1/expiry/sweep
func (h *ExpiryHandler) Sweep(c *gin.Context) {
	result, err := h.runner.RunNow(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}

	response.Success(c, result)
}
