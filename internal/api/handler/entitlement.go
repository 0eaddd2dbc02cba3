package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/group_sub_server/internal/api/middleware"
	"github.com/qs3c/group_sub_server/internal/model/dto"
	"github.com/qs3c/group_sub_server/internal/pkg/response"
	"github.com/qs3c/group_sub_server/internal/service"
)

type EntitlementHandler struct {
	statusService     *service.StatusService
	revocationService *service.RevocationService
}

func NewEntitlementHandler(statusService *service.StatusService, revocationService *service.RevocationService) *EntitlementHandler {
	return &EntitlementHandler{
		statusService:     statusService,
		revocationService: revocationService,
	}
}

// Status 群组服务状态
// GET /api/v1/groups/:id/status
func (h *EntitlementHandler) Status(c *gin.Context) {
	groupID, ok := parseID(c, "id")
	if !ok {
		return
	}

	status, err := h.statusService.CheckServiceStatus(c.Request.Context(), groupID)
	if err != nil {
		renderError(c, err)
		return
	}

	response.Success(c, status)
}

// Cancel 取消订阅
// POST /api/v1/groups/:id/cancel
func (h *EntitlementHandler) Cancel(c *gin.Context) {
	operatorID, ok := middleware.GetOperatorID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}
	groupID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req dto.CancelRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	ent, err := h.revocationService.Cancel(c.Request.Context(), groupID, operatorID, req.Reason)
	if err != nil {
		renderError(c, err)
		return
	}

	response.SuccessWithMessage(c, "Subscription cancelled", ent)
}

// Restore 恢复订阅
// POST /api/v1/groups/:id/restore
func (h *EntitlementHandler) Restore(c *gin.Context) {
	operatorID, ok := middleware.GetOperatorID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}
	groupID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req dto.RestoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	ent, err := h.revocationService.Restore(c.Request.Context(), groupID, operatorID, req.PlanID, req.DurationDays)
	if err != nil {
		renderError(c, err)
		return
	}

	response.SuccessWithMessage(c, "Subscription restored", ent)
}

// Cancellations 取消记录
// GET /api/v1/cancellations?group_id=&limit=
func (h *EntitlementHandler) Cancellations(c *gin.Context) {
	records, err := h.revocationService.Cancellations(c.Request.Context(), queryInt64(c, "group_id"), queryInt(c, "limit", 50))
	if err != nil {
		renderError(c, err)
		return
	}

	response.SuccessList(c, len(records), records)
}
