package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/davimluiz/painelalunosvercel/pkg/jwt"
	"github.com/davimluiz/painelalunosvercel/pkg/response"
)

// ClaimsKey JWT 中间件注入 Claims 时使用的上下文键
const ClaimsKey = "claims"

// MustGetClaims 从 Gin 上下文中安全提取 JWT Claims。
// 如果 JWT 中间件未正确注入，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetClaims(c *gin.Context) (*jwt.Claims, bool) {
	v, exists := c.Get(ClaimsKey)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return nil, false
	}
	claims, ok := v.(*jwt.Claims)
	if !ok || claims == nil {
		response.Unauthorized(c, 10002, "未认证")
		return nil, false
	}
	return claims, true
}
