package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/group_sub_server/internal/api/middleware"
	"github.com/qs3c/group_sub_server/internal/model/dto"
	"github.com/qs3c/group_sub_server/internal/pkg/response"
	"github.com/qs3c/group_sub_server/internal/service"
)

type FeatureHandler struct {
	gate *service.FeatureGate
}

func NewFeatureHandler(gate *service.FeatureGate) *FeatureHandler {
	return &FeatureHandler{gate: gate}
}

// List 群组已开启的功能
// GET /api/v1/groups/:id/features
func (h *FeatureHandler) List(c *gin.Context) {
	groupID, ok := parseID(c, "id")
	if !ok {
		return
	}

	features, err := h.gate.EnabledFeatures(c.Request.Context(), groupID)
	if err != nil {
		renderError(c, err)
		return
	}

	response.Success(c, dto.GroupFeatures{GroupID: groupID, Features: features})
}

// Changes 功能变更审计
// GET /api/v1/groups/:id/features/changes?limit=
func (h *FeatureHandler) Changes(c *gin.Context) {
	groupID, ok := parseID(c, "id")
	if !ok {
		return
	}

	changes, err := h.gate.Changes(c.Request.Context(), groupID, queryInt(c, "limit", 50))
	if err != nil {
		renderError(c, err)
		return
	}

	response.SuccessList(c, len(changes), changes)
}

// Set 显式开关
// PUT /api/v1/groups/:id/features/:feature
func (h *FeatureHandler) Set(c *gin.Context) {
	operatorID, groupID, feature, ok := h.target(c)
	if !ok {
		return
	}

	var req dto.SetFeatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	var err error
	if *req.Enabled {
		err = h.gate.Enable(c.Request.Context(), groupID, feature, operatorID)
	} else {
		err = h.gate.Disable(c.Request.Context(), groupID, feature, operatorID)
	}
	if err != nil {
		renderError(c, err)
		return
	}

	response.Success(c, dto.FeatureState{Feature: feature, Enabled: *req.Enabled})
}

// Toggle 翻转开关
// POST /api/v1/groups/:id/features/:feature/toggle
func (h *FeatureHandler) Toggle(c *gin.Context) {
	operatorID, groupID, feature, ok := h.target(c)
	if !ok {
		return
	}

	enabled, err := h.gate.Toggle(c.Request.Context(), groupID, feature, operatorID)
	if err != nil {
		renderError(c, err)
		return
	}

	response.Success(c, dto.FeatureState{Feature: feature, Enabled: enabled})
}

// ForceUnlock 管理员强制开启
// POST /api/v1/groups/:id/features/:feature/force-unlock
func (h *FeatureHandler) ForceUnlock(c *gin.Context) {
	operatorID, groupID, feature, ok := h.target(c)
	if !ok {
		return
	}

	if err := h.gate.ForceUnlock(c.Request.Context(), groupID, feature, operatorID); err != nil {
		renderError(c, err)
		return
	}

	response.SuccessWithMessage(c, "Feature unlocked", dto.FeatureState{Feature: feature, Enabled: true})
}

func (h *FeatureHandler) target(c *gin.Context) (operatorID, groupID int64, feature string, ok bool) {
	operatorID, ok = middleware.GetOperatorID(c)
	if !ok {
		response.AuthError(c, "")
		return 0, 0, "", false
	}
	groupID, ok = parseID(c, "id")
	if !ok {
		return 0, 0, "", false
	}
	return operatorID, groupID, c.Param("feature"), true
}
