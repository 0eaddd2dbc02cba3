package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/group_sub_server/internal/model/dto"
	"github.com/qs3c/group_sub_server/internal/pkg/response"
	"github.com/qs3c/group_sub_server/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Login 运营登录
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.AuthError(c, err.Error())
			return
		}
		renderError(c, err)
		return
	}

	response.Success(c, resp)
}
