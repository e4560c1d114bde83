package cache

import (
	"context"
	"time"

	"keyadmin/backend/internal/storage"
)

// Blacklist 基于 LocalCache 的进程内 JWT 黑名单，未配置 Redis 时使用
type Blacklist struct {
	cache *LocalCache
}

// NewBlacklist 创建进程内黑名单
func NewBlacklist(cache *LocalCache) *Blacklist {
	return &Blacklist{cache: cache}
}

// AddToBlacklist 将 JWT 添加到黑名单
func (b *Blacklist) AddToBlacklist(_ context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	b.cache.Set(jti, struct{}{}, ttl)
	return nil
}

// IsBlacklisted 检查 JWT 是否在黑名单中
func (b *Blacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	_, ok := b.cache.Get(jti)
	return ok, nil
}

var _ storage.JWTRepository = (*Blacklist)(nil)
