package handler

import (
	"errors"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/qs3c/group_sub_server/internal/pkg/response"
	"github.com/qs3c/group_sub_server/internal/service"
)

// renderError 按错误类别映射响应码
func renderError(c *gin.Context, err error) {
	msg := service.PublicMessage(err)

	switch service.KindOf(err) {
	case service.KindNotFound:
		response.NotFoundError(c, msg)
	case service.KindAlreadyProcessed:
		response.AlreadyProcessedError(c, msg)
	case service.KindInvalidPlan, service.KindInvalidInput:
		response.ParamError(c, msg)
	case service.KindPartialApplyRisk:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("operation outcome unknown")
		response.PartialApplyError(c, "")
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		response.ServerError(c, "")
	}
}

// bindOptionalJSON 请求体可以为空，包括分块传输的空体
func bindOptionalJSON(c *gin.Context, obj interface{}) bool {
	if c.Request.Body == nil {
		return true
	}
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		response.ParamError(c, err.Error())
		return false
	}
	return true
}

func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.ParamError(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

// queryInt 解析可选的整数查询参数
func queryInt(c *gin.Context, name string, def int) int {
	v, err := strconv.Atoi(c.DefaultQuery(name, strconv.Itoa(def)))
	if err != nil {
		return def
	}
	return v
}

func queryInt64(c *gin.Context, name string) int64 {
	v, _ := strconv.ParseInt(c.Query(name), 10, 64)
	return v
}
