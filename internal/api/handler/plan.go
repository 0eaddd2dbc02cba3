package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/group_sub_server/internal/model/dto"
	"github.com/qs3c/group_sub_server/internal/pkg/response"
	"github.com/qs3c/group_sub_server/internal/service"
)

type PlanHandler struct {
	catalog *service.PlanCatalog
}

func NewPlanHandler(catalog *service.PlanCatalog) *PlanHandler {
	return &PlanHandler{catalog: catalog}
}

// List 当前生效的套餐
// GET /api/v1/plans
func (h *PlanHandler) List(c *gin.Context) {
	plans := h.catalog.List()
	response.SuccessList(c, len(plans), plans)
}

// Upsert 编辑套餐，reload 之后才生效
// PUT /api/v1/plans/:id
func (h *PlanHandler) Upsert(c *gin.Context) {
	var req dto.UpsertPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	plan, err := h.catalog.Upsert(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		renderError(c, err)
		return
	}

	response.SuccessWithMessage(c, "Plan saved, reload to apply", plan)
}

// Reload 重新加载套餐
// POST /api/v1/plans/reload
func (h *PlanHandler) Reload(c *gin.Context) {
	if err := h.catalog.Reload(c.Request.Context()); err != nil {
		renderError(c, err)
		return
	}

	response.Success(c, dto.ReloadResponse{Plans: len(h.catalog.List())})
}
