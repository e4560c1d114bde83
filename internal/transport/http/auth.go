package httptransport

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"keyadmin/backend/internal/auth"
	"keyadmin/backend/internal/middleware"
)

// AuthHandler 处理管理员注册、登录与退出
type AuthHandler struct {
	authService       *auth.Service // 认证业务服务
	allowRegistration bool          // 是否开放 /register-admin
	log               *zap.Logger   // 结构化日志记录器
}

// NewAuthHandler 创建新的认证处理器实例
//
// 参数:
//   - authService: 认证业务服务
//   - allowRegistration: 是否允许注册新管理员
//   - log: 日志记录器
//
// 返回值:
//   - *AuthHandler: 认证处理器实例
func NewAuthHandler(authService *auth.Service, allowRegistration bool, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService:       authService,
		allowRegistration: allowRegistration,
		log:               log,
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register 注册管理员
//
// @Summary 注册管理员
// @Description 密码以 bcrypt 哈希保存，关闭注册时返回 403
// @Tags Admin
// @Accept json
// @Produce json
// @Param credentials body credentialsRequest true "邮箱与密码"
// @Success 200 {object} Response
// @Failure 400 {object} Response
// @Failure 403 {object} Response
// @Failure 500 {object} Response
// @Router /register-admin [post]
func (h *AuthHandler) Register(c *gin.Context) {
	if !h.allowRegistration {
		Forbidden(c, MsgRegistrationClosed)
		return
	}

	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	err := h.authService.Register(c.Request.Context(), auth.Credentials{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrMissingCredentials), errors.Is(err, auth.ErrPasswordTooLong):
			BadRequest(c, GetErrorMessage(err))
		default:
			h.log.Error("failed to register admin", zap.Error(err))
			InternalError(c, MsgAdminRegisterFailed)
		}
		return
	}

	h.log.Info("admin registered", zap.String("email", req.Email))
	Success(c, nil)
}

// Login 管理员登录，签发会话令牌并写入 HttpOnly cookie
//
// @Summary 管理员登录
// @Description 邮箱不存在、密码错误或字段为空均返回 401
// @Tags Admin
// @Accept json
// @Produce json
// @Param credentials body credentialsRequest true "邮箱与密码"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} Response
// @Failure 401 {object} Response
// @Failure 500 {object} Response
// @Router /login-admin [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	token, err := h.authService.Login(c.Request.Context(), auth.Credentials{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			h.log.Warn("admin login rejected",
				zap.String("email", req.Email),
				zap.String("ip", c.ClientIP()))
			Unauthorized(c, GetErrorMessage(err))
		default:
			h.log.Error("failed to login admin", zap.Error(err))
			InternalError(c, MsgLoginFailed)
		}
		return
	}

	h.setSessionCookie(c, token.Value, int(token.ExpiresIn))
	h.log.Info("admin logged in", zap.String("email", req.Email))

	c.JSON(http.StatusOK, LoginResponse{
		Success:   true,
		Token:     token.Value,
		ExpiresIn: token.ExpiresIn,
	})
}

// Logout 注销当前会话令牌并清除 cookie
//
// @Summary 管理员退出
// @Description 将当前令牌加入黑名单直至其自然过期
// @Tags Admin
// @Produce json
// @Success 200 {object} Response
// @Failure 401 {object} Response
// @Failure 500 {object} Response
// @Security BearerAuth
// @Router /logout-admin [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	if err := h.authService.Logout(c.Request.Context(), claims); err != nil {
		h.log.Error("failed to revoke session", zap.Error(err))
		InternalError(c, MsgLogoutFailed)
		return
	}

	h.setSessionCookie(c, "", -1)
	h.log.Info("admin logged out", zap.String("email", claims.Email))
	Success(c, nil)
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.AccessTokenCookie, value, maxAge, "/", "", c.Request.TLS != nil, true)
}
