package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"keyadmin/backend/internal/storage"
)

const blacklistPrefix = "keyadmin:blacklist:"

// Cache Redis 缓存实现，目前承载管理员会话的 JWT 黑名单
type Cache struct {
	client *redis.Client
}

// NewCache 使用已连接的客户端创建缓存
func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// ========== JWT 黑名单 ==========

// AddToBlacklist 将 JWT 添加到黑名单，ttl 到期后自动移除
func (c *Cache) AddToBlacklist(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		// 令牌已过期，无需拉黑
		return nil
	}
	return c.client.Set(ctx, blacklistKey(jti), "1", ttl).Err()
}

// IsBlacklisted 检查 JWT 是否在黑名单中
func (c *Cache) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	_, err := c.client.Get(ctx, blacklistKey(jti)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func blacklistKey(jti string) string {
	return fmt.Sprintf("%s%s", blacklistPrefix, jti)
}

var _ storage.JWTRepository = (*Cache)(nil)
