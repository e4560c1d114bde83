package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"keyadmin/backend/internal/auth"
	"keyadmin/backend/internal/auth/jwt"
)

const (
	// AccessTokenCookie 会话令牌 cookie 名称
	AccessTokenCookie = "access_token"
	// ContextAdminEmail 上下文中的管理员邮箱
	ContextAdminEmail = "adminEmail"
	// ContextClaims 上下文中的令牌声明
	ContextClaims = "claims"

	msgAuthRequired = "请先登录"
	msgAuthInvalid  = "登录已失效，请重新登录"
)

// Authenticator 校验会话令牌
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*jwt.Claims, error)
}

// JWTAuth 管理员会话认证中间件
type JWTAuth struct {
	authenticator Authenticator
	log           *zap.Logger
}

// NewJWTAuth 创建管理员会话认证中间件
func NewJWTAuth(authenticator Authenticator, log *zap.Logger) *JWTAuth {
	if log == nil {
		log = zap.NewNop()
	}
	return &JWTAuth{
		authenticator: authenticator,
		log:           log,
	}
}

// RequireAdmin 要求有效的管理员会话
func (ja *JWTAuth) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ja.extractToken(c)
		if token == "" {
			abortUnauthorized(c, msgAuthRequired)
			return
		}

		claims, err := ja.authenticator.Authenticate(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, jwt.ErrExpiredToken) && !errors.Is(err, jwt.ErrInvalidToken) && !errors.Is(err, auth.ErrTokenRevoked) {
				ja.log.Error("session check failed", zap.Error(err))
			} else {
				ja.log.Warn("rejected session token",
					zap.String("error", err.Error()),
					zap.String("ip", c.ClientIP()),
				)
			}
			abortUnauthorized(c, msgAuthInvalid)
			return
		}

		c.Set(ContextAdminEmail, claims.Email)
		c.Set(ContextClaims, claims)

		c.Next()
	}
}

// ClaimsFromContext 取出 RequireAdmin 写入的令牌声明
func ClaimsFromContext(c *gin.Context) (*jwt.Claims, bool) {
	v, ok := c.Get(ContextClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*jwt.Claims)
	return claims, ok
}

// extractToken 依次从 Authorization 头、cookie 和（仅 websocket 握手）查询参数中提取令牌
func (ja *JWTAuth) extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return strings.TrimSpace(parts[1])
		}
	}

	token, err := c.Cookie(AccessTokenCookie)
	if err == nil && token != "" {
		return token
	}

	// 浏览器的 WebSocket API 无法设置请求头
	if websocket.IsWebSocketUpgrade(c.Request) {
		return c.Query("token")
	}

	return ""
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"message": message,
	})
}
