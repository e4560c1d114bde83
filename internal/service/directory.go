package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"keyadmin/backend/internal/domain"
	"keyadmin/backend/internal/storage"
)

var (
	// ErrMissingFields 必填字段缺失
	ErrMissingFields = domain.ErrMissingFields
	// ErrUserNotFound 用户不存在
	ErrUserNotFound = storage.ErrUserNotFound
)

// EventPublisher 目录变更通知接收方（如 WebSocket Hub）
type EventPublisher interface {
	Publish(event domain.DirectoryEvent)
}

// DirectoryService 用户与 API Key 目录服务
type DirectoryService struct {
	store        storage.DirectoryRepository
	offlineAfter time.Duration
	publisher    EventPublisher
	log          *zap.Logger
	now          func() time.Time
}

// NewDirectoryService 创建目录服务
//
// 参数:
//   - store: 目录存储
//   - offlineAfter: API Key 离线阈值，<=0 时使用 30 天
//   - log: 日志记录器
func NewDirectoryService(store storage.DirectoryRepository, offlineAfter time.Duration, log *zap.Logger) *DirectoryService {
	if offlineAfter <= 0 {
		offlineAfter = domain.DefaultOfflineAfter
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &DirectoryService{
		store:        store,
		offlineAfter: offlineAfter,
		log:          log,
		now:          time.Now,
	}
}

// SetPublisher 设置变更通知接收方（可选）
func (s *DirectoryService) SetPublisher(publisher EventPublisher) {
	s.publisher = publisher
}

// SaveUser 保存用户及其 API Key
//
// 先做存在性检查，任一字段为空时不写入任何数据；
// 否则在一个事务中创建 API Key（out_of_date 为当前时间）和引用它的用户。
func (s *DirectoryService) SaveUser(ctx context.Context, input domain.NewUserInput) (*domain.User, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	key := &domain.APIKey{
		Key:       input.APIKey,
		OutOfDate: s.now().UTC(),
	}
	user := &domain.User{
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Email:     input.Email,
	}

	if err := s.store.CreateUserWithKey(ctx, user, key); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}

	s.log.Info("user saved",
		zap.Int64("user_id", user.ID),
		zap.Int64("api_key_id", key.ID),
	)
	s.publish(domain.DirectoryEvent{
		Type:     domain.EventUserSaved,
		UserID:   user.ID,
		APIKeyID: key.ID,
	})
	return user, nil
}

// DeleteUser 删除用户及其 API Key
func (s *DirectoryService) DeleteUser(ctx context.Context, userID int64) error {
	if err := s.store.DeleteUserWithKey(ctx, userID); err != nil {
		return fmt.Errorf("delete user %d: %w", userID, err)
	}

	s.log.Info("user deleted", zap.Int64("user_id", userID))
	s.publish(domain.DirectoryEvent{
		Type:   domain.EventUserDeleted,
		UserID: userID,
	})
	return nil
}

// Dashboard 读取全部用户和 API Key，并为每个 Key 推导在线状态
//
// 任一读取失败都返回错误，不返回部分数据。
func (s *DirectoryService) Dashboard(ctx context.Context) (*domain.Dashboard, error) {
	var (
		users []domain.User
		keys  []domain.APIKey
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		users, err = s.store.ListUsers(gctx)
		if err != nil {
			return fmt.Errorf("list users: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		keys, err = s.store.ListAPIKeys(gctx)
		if err != nil {
			return fmt.Errorf("list api keys: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := s.now()
	views := make([]domain.APIKeyView, 0, len(keys))
	for _, k := range keys {
		views = append(views, k.View(now, s.offlineAfter))
	}

	if users == nil {
		users = []domain.User{}
	}
	return &domain.Dashboard{
		Users:   users,
		APIKeys: views,
	}, nil
}

func (s *DirectoryService) publish(event domain.DirectoryEvent) {
	if s.publisher == nil {
		return
	}
	event.At = s.now().UTC()
	s.publisher.Publish(event)
}
