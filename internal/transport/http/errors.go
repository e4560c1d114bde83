package httptransport

import (
	"errors"

	"keyadmin/backend/internal/auth"
	"keyadmin/backend/internal/service"
)

// 错误消息映射表（业务错误 -> 中文消息）
var errorMessages = []struct {
	err error
	msg string
}{
	{service.ErrMissingFields, MsgMissingFields},
	{service.ErrUserNotFound, MsgUserNotFound},
	{auth.ErrMissingCredentials, MsgMissingCredentials},
	{auth.ErrPasswordTooLong, MsgPasswordTooLong},
	{auth.ErrInvalidCredentials, MsgInvalidCredentials},
}

// GetErrorMessage 获取错误的中文消息，未登记的错误返回通用提示
func GetErrorMessage(err error) string {
	for _, e := range errorMessages {
		if errors.Is(err, e.err) {
			return e.msg
		}
	}
	return MsgInternalError
}

// 通用错误消息
const (
	// 请求相关
	MsgInvalidRequest = "请求参数格式错误"
	MsgMissingFields  = "所有字段均为必填项"

	// 认证相关
	MsgAuthRequired        = "请先登录"
	MsgMissingCredentials  = "邮箱和密码不能为空"
	MsgPasswordTooLong     = "密码长度不能超过 72 字节"
	MsgInvalidCredentials  = "邮箱或密码错误"
	MsgRegistrationClosed  = "管理员注册已关闭"
	MsgAdminRegisterFailed = "注册管理员失败"
	MsgLoginFailed         = "登录失败，请稍后重试"
	MsgLogoutFailed        = "退出登录失败"

	// API Key 相关
	MsgAPIKeyCreateFailed = "生成 API Key 失败"

	// 用户相关
	MsgUserSaveFailed   = "保存用户失败"
	MsgUserNotFound     = "用户不存在"
	MsgUserDeleteFailed = "删除用户失败"
	MsgDashboardFailed  = "获取仪表盘数据失败"

	// 服务器错误
	MsgInternalError = "服务器内部错误，请稍后重试"
)
