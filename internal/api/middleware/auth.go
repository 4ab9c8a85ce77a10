package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"ota-server/internal/dto"
	"ota-server/internal/pkg/jwt"
	"ota-server/pkg/constants"
	"ota-server/pkg/errors"
	"ota-server/pkg/responses"
)

// AuthMiddleware JWT认证中间件, 只负责识别操作人
func AuthMiddleware(tokens *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 获取Authorization header
		authHeader := c.GetHeader(constants.HeaderAuthorization)
		if authHeader == "" {
			responses.ErrorWithCode(c, errors.CodeUnauthorized, "缺少Authorization Header")
			c.Abort()
			return
		}

		// 检查Bearer前缀
		if !strings.HasPrefix(authHeader, constants.HeaderBearerPrefix) {
			responses.ErrorWithCode(c, errors.CodeUnauthorized, "Authorization格式错误")
			c.Abort()
			return
		}

		claims, err := tokens.ValidateToken(strings.TrimPrefix(authHeader, constants.HeaderBearerPrefix))
		if err != nil {
			responses.Error(c, err)
			c.Abort()
			return
		}

		c.Set("user", &dto.UserInfo{Username: claims.Username})
		c.Set(constants.CtxKeyUsername, claims.Username)

		c.Next()
	}
}
