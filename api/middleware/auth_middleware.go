package middleware

import (
	"net/http"
	"strings"

	"github.com/anoixa/image-theatre/api/common"
	"github.com/anoixa/image-theatre/internal/auth"
	"github.com/gin-gonic/gin"
)

const (
	ContextUserIDKey   = "user_id"
	ContextUsernameKey = "username"
	ContextRoleKey     = "role"
	AuthTypeKey        = "auth_type"

	AuthTypeJWT = "jwt"
)

// TokenParser 解析访问令牌
type TokenParser interface {
	ExtractClaims(tokenString string) (*auth.TokenClaims, error)
}

// CombinedAuth 校验 Authorization: Bearer <token>，并把用户信息写入上下文
func CombinedAuth(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			common.RespondErrorAbort(c, http.StatusUnauthorized, "No Authorization request header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.TrimSpace(parts[1]) == "" {
			common.RespondErrorAbort(c, http.StatusBadRequest, "Authorization field format error")
			return
		}

		if !strings.EqualFold(parts[0], "Bearer") {
			common.RespondErrorAbort(c, http.StatusUnauthorized, "Unsupported authentication scheme")
			return
		}

		claims, err := tokens.ExtractClaims(strings.TrimSpace(parts[1]))
		if err != nil {
			common.RespondErrorAbort(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		if claims.Username == "" || claims.UserID == 0 {
			common.RespondErrorAbort(c, http.StatusUnauthorized, "Token is missing user information")
			return
		}

		c.Set(ContextUserIDKey, claims.UserID)
		c.Set(ContextUsernameKey, claims.Username)
		c.Set(ContextRoleKey, claims.Role)
		c.Set(AuthTypeKey, AuthTypeJWT)

		c.Next()
	}
}
