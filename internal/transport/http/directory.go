package httptransport

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"keyadmin/backend/internal/domain"
	"keyadmin/backend/internal/monitoring"
	"keyadmin/backend/internal/service"
)

// DirectoryHandler 用户目录与仪表盘处理器
type DirectoryHandler struct {
	directory *service.DirectoryService
	metrics   *monitoring.Metrics
	log       *zap.Logger
}

// NewDirectoryHandler 创建目录处理器
//
// 参数:
//   - directory: 目录服务
//   - metrics: 监控指标，可以为空
//   - log: 日志记录器
func NewDirectoryHandler(directory *service.DirectoryService, metrics *monitoring.Metrics, log *zap.Logger) *DirectoryHandler {
	return &DirectoryHandler{
		directory: directory,
		metrics:   metrics,
		log:       log,
	}
}

type saveUserRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	APIKey    string `json:"apiKey"`
}

// SaveUser 保存用户并持久化其 API Key
//
// @Summary 保存用户
// @Description 在同一事务中写入 API Key 与引用它的用户，字段只做非空检查
// @Tags Users
// @Accept json
// @Produce json
// @Param user body saveUserRequest true "用户信息"
// @Success 200 {object} Response
// @Failure 400 {object} Response
// @Failure 500 {object} Response
// @Router /save-user [post]
func (h *DirectoryHandler) SaveUser(c *gin.Context) {
	var req saveUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	_, err := h.directory.SaveUser(c.Request.Context(), domain.NewUserInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		APIKey:    req.APIKey,
	})
	if err != nil {
		if errors.Is(err, service.ErrMissingFields) {
			BadRequest(c, GetErrorMessage(err))
			return
		}
		h.log.Error("failed to save user", zap.Error(err))
		h.recordError()
		InternalError(c, MsgUserSaveFailed)
		return
	}

	Success(c, nil)
}

// DeleteUser 删除用户及其 API Key，非数字 id 视为不存在
//
// @Summary 删除用户
// @Description 在同一事务中删除用户及其 API Key
// @Tags Users
// @Produce json
// @Param id path int true "用户 ID"
// @Success 200 {object} Response
// @Failure 401 {object} Response
// @Failure 404 {object} Response
// @Failure 500 {object} Response
// @Security BearerAuth
// @Router /delete-user/{id} [delete]
func (h *DirectoryHandler) DeleteUser(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		NotFound(c, MsgUserNotFound)
		return
	}

	if err := h.directory.DeleteUser(c.Request.Context(), id); err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			NotFound(c, GetErrorMessage(err))
			return
		}
		h.log.Error("failed to delete user", zap.Int64("user_id", id), zap.Error(err))
		h.recordError()
		InternalError(c, MsgUserDeleteFailed)
		return
	}

	Success(c, nil)
}

// DashboardData 返回全部用户和带状态的 API Key
//
// @Summary 仪表盘数据
// @Description 返回全部用户与 API Key，状态按创建时间推导（超过 30 天为 offline）
// @Tags Dashboard
// @Produce json
// @Success 200 {object} DashboardResponse
// @Failure 401 {object} Response
// @Failure 500 {object} Response
// @Security BearerAuth
// @Router /dashboard-data [get]
func (h *DirectoryHandler) DashboardData(c *gin.Context) {
	dashboard, err := h.directory.Dashboard(c.Request.Context())
	if err != nil {
		h.log.Error("failed to load dashboard", zap.Error(err))
		h.recordError()
		InternalError(c, MsgDashboardFailed)
		return
	}

	if h.metrics != nil {
		h.metrics.UpdateAPIKeyStatus(dashboard.StatusCounts())
	}

	c.JSON(http.StatusOK, DashboardResponse{
		Success: true,
		Users:   dashboard.Users,
		APIKeys: dashboard.APIKeys,
	})
}

func (h *DirectoryHandler) recordError() {
	if h.metrics != nil {
		h.metrics.RecordError("directory")
	}
}
