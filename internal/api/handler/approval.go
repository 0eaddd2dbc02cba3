package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/group_sub_server/internal/api/middleware"
	"github.com/qs3c/group_sub_server/internal/model/dto"
	"github.com/qs3c/group_sub_server/internal/pkg/response"
	"github.com/qs3c/group_sub_server/internal/service"
)

type ApprovalHandler struct {
	approvalService *service.ApprovalService
}

func NewApprovalHandler(approvalService *service.ApprovalService) *ApprovalHandler {
	return &ApprovalHandler{
		approvalService: approvalService,
	}
}

// Submit 提交付款请求
// POST /api/v1/requests
func (h *ApprovalHandler) Submit(c *gin.Context) {
	var req dto.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	id, err := h.approvalService.Submit(c.Request.Context(), req.GroupID, req.UserID, req.PlanID, req.Context)
	if err != nil {
		renderError(c, err)
		return
	}

	response.SuccessWithMessage(c, "Request submitted", dto.SubmitResponse{RequestID: id})
}

// Pending 待审批队列
// GET /api/v1/requests/pending
func (h *ApprovalHandler) Pending(c *gin.Context) {
	reqs, err := h.approvalService.PendingQueue(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}

	response.SuccessList(c, len(reqs), reqs)
}

// Get 请求详情
// GET /api/v1/requests/:id
func (h *ApprovalHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	req, err := h.approvalService.RequestDetails(c.Request.Context(), id)
	if err != nil {
		renderError(c, err)
		return
	}

	response.Success(c, req)
}

// Approve 审批通过
// POST /api/v1/requests/:id/approve
func (h *ApprovalHandler) Approve(c *gin.Context) {
	operatorID, ok := middleware.GetOperatorID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req dto.ApproveRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	result, err := h.approvalService.Approve(c.Request.Context(), id, operatorID, req.DurationDays)
	if err != nil {
		renderError(c, err)
		return
	}

	response.SuccessWithMessage(c, "Request approved", result)
}

// Reject 拒绝
// POST /api/v1/requests/:id/reject
func (h *ApprovalHandler) Reject(c *gin.Context) {
	operatorID, ok := middleware.GetOperatorID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req dto.RejectRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	if err := h.approvalService.Reject(c.Request.Context(), id, operatorID, req.Reason); err != nil {
		renderError(c, err)
		return
	}

	response.SuccessWithMessage(c, "Request rejected", nil)
}

// Stats 请求统计
// GET /api/v1/requests/stats
func (h *ApprovalHandler) Stats(c *gin.Context) {
	stats, err := h.approvalService.Stats(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}

	response.Success(c, stats)
}

// History 审批历史
// GET /api/v1/requests/history?limit=50
func (h *ApprovalHandler) History(c *gin.Context) {
	records, err := h.approvalService.History(c.Request.Context(), queryInt(c, "limit", 50))
	if err != nil {
		renderError(c, err)
		return
	}

	response.SuccessList(c, len(records), records)
}
