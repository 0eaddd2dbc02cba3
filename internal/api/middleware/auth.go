package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/group_sub_server/internal/pkg/jwt"
	"github.com/qs3c/group_sub_server/internal/pkg/response"
)

const (
	OperatorIDKey = "operatorID"
)

// Auth 运营 JWT 认证中间件，operator id 即操作人
func Auth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.AuthError(c, "missing authorization header")
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			response.AuthError(c, "invalid authorization format")
			c.Abort()
			return
		}

		claims, err := jwt.ParseToken(tokenString, jwtSecret)
		if err != nil {
			response.AuthError(c, "invalid or expired token")
			c.Abort()
			return
		}

		c.Set(OperatorIDKey, claims.OperatorID)
		c.Next()
	}
}

// GetOperatorID 从上下文获取运营 ID
func GetOperatorID(c *gin.Context) (int64, bool) {
	operatorID, exists := c.Get(OperatorIDKey)
	if !exists {
		return 0, false
	}
	id, ok := operatorID.(int64)
	return id, ok
}
