package memory

import (
	"context"
	"sort"
	"sync"

	"keyadmin/backend/internal/domain"
	"keyadmin/backend/internal/storage"
)

// Store 使用内存保存用户、API Key 与管理员数据，主要用于开发验证和测试。
//
// 每个操作持有一次完整的锁，多表写入对其他请求表现为原子操作。
type Store struct {
	mu      sync.RWMutex
	apiKeys map[int64]*domain.APIKey
	users   map[int64]*domain.User
	admins  []domain.Admin

	nextKeyID  int64
	nextUserID int64
}

// NewStore 创建一个内存存储实例。
func NewStore() *Store {
	return &Store{
		apiKeys: make(map[int64]*domain.APIKey),
		users:   make(map[int64]*domain.User),
	}
}

// CreateUserWithKey 保存 API Key 和绑定它的用户
func (s *Store) CreateUserWithKey(ctx context.Context, user *domain.User, key *domain.APIKey) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextKeyID++
	key.ID = s.nextKeyID
	keyCopy := *key
	s.apiKeys[key.ID] = &keyCopy

	s.nextUserID++
	user.ID = s.nextUserID
	user.APIKeyID = key.ID
	userCopy := *user
	s.users[user.ID] = &userCopy

	return nil
}

// DeleteUserWithKey 删除用户及其 API Key
func (s *Store) DeleteUserWithKey(ctx context.Context, userID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return storage.ErrUserNotFound
	}

	delete(s.users, userID)
	delete(s.apiKeys, user.APIKeyID)
	return nil
}

// ListUsers 按 ID 升序返回所有用户
func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

// ListAPIKeys 按 ID 升序返回所有 API Key
func (s *Store) ListAPIKeys(ctx context.Context) ([]domain.APIKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]domain.APIKey, 0, len(s.apiKeys))
	for _, k := range s.apiKeys {
		keys = append(keys, *k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].ID < keys[j].ID })
	return keys, nil
}

// CreateAdmin 保存管理员，不检查邮箱是否重复
func (s *Store) CreateAdmin(ctx context.Context, admin *domain.Admin) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.admins = append(s.admins, *admin)
	return nil
}

// GetAdminByEmail 返回最早插入的匹配管理员
func (s *Store) GetAdminByEmail(ctx context.Context, email string) (*domain.Admin, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.admins {
		if s.admins[i].Email == email {
			admin := s.admins[i]
			return &admin, nil
		}
	}
	return nil, storage.ErrAdminNotFound
}

// Close 关闭存储
func (s *Store) Close() error {
	// 内存存储不需要关闭连接
	return nil
}

// Health 健康检查
func (s *Store) Health(ctx context.Context) error {
	// 内存存储总是健康的
	return nil
}

var _ storage.Store = (*Store)(nil)
