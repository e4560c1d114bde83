package storage

import (
	"context"
	"errors"
	"time"

	"keyadmin/backend/internal/domain"
)

var (
	// ErrUserNotFound 用户不存在
	ErrUserNotFound = errors.New("user not found")
	// ErrAdminNotFound 管理员不存在
	ErrAdminNotFound = errors.New("admin not found")
)

// DirectoryRepository 定义用户与 API Key 的存取操作。
//
// 涉及两张表的写操作必须在同一个事务内完成，失败时不得留下孤立的 api_key 行。
type DirectoryRepository interface {
	// CreateUserWithKey 先插入 api_key，再插入引用它的 user，回填两者的 ID
	CreateUserWithKey(ctx context.Context, user *domain.User, key *domain.APIKey) error
	// DeleteUserWithKey 查询用户的 api_key_id，删除用户及其 API Key
	DeleteUserWithKey(ctx context.Context, userID int64) error
	ListUsers(ctx context.Context) ([]domain.User, error)
	ListAPIKeys(ctx context.Context) ([]domain.APIKey, error)
}

// AdminRepository 定义管理员数据存取操作。
type AdminRepository interface {
	CreateAdmin(ctx context.Context, admin *domain.Admin) error
	// GetAdminByEmail 返回第一条匹配的记录
	GetAdminByEmail(ctx context.Context, email string) (*domain.Admin, error)
}

// JWTRepository 定义 JWT 黑名单操作。
type JWTRepository interface {
	AddToBlacklist(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// Store 定义完整的存储接口。
type Store interface {
	DirectoryRepository
	AdminRepository

	// 工具方法
	Close() error
	Health(ctx context.Context) error
}
