package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/davimluiz/painelalunosvercel/pkg/jwt"
	"github.com/davimluiz/painelalunosvercel/pkg/response"
)

// TokenAuthenticator 校验 Access Token（签名、有效期、黑名单）
type TokenAuthenticator interface {
	Authenticate(ctx context.Context, token string) (*jwt.Claims, error)
}

// JWTAuth JWT 认证中间件
// 从 Authorization: Bearer <token> 中提取并验证 Access Token，
// 通过后将 Claims 注入上下文（键 "claims"）
func JWTAuth(auth TokenAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, 10002, "缺少认证头")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, 10002, "认证头格式无效")
			c.Abort()
			return
		}

		claims, err := auth.Authenticate(c.Request.Context(), parts[1])
		if err != nil {
			msg := "Token 无效或已过期"
			if !errors.Is(err, jwt.ErrTokenInvalid) && !errors.Is(err, jwt.ErrTokenExpired) {
				msg = "Token 已注销"
			}
			response.Unauthorized(c, 10002, msg)
			c.Abort()
			return
		}

		if claims.Role != jwt.RoleAdmin {
			response.Unauthorized(c, 10002, "无权限访问")
			c.Abort()
			return
		}

		c.Set("claims", claims)
		c.Next()
	}
}
