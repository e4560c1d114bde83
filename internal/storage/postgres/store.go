package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"keyadmin/backend/internal/domain"
	"keyadmin/backend/internal/storage"
)

// Store 基于 GORM 的存储实现（PostgreSQL / MySQL）
type Store struct {
	db *gorm.DB
}

// Options GORM 存储的连接池与迁移选项
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

// NewStore 创建 PostgreSQL 存储实例
func NewStore(dsn string, opts Options) (*Store, error) {
	return NewStoreWithDialector(postgres.Open(dsn), opts)
}

// NewMySQLStore 创建 MySQL 存储实例
func NewMySQLStore(dsn string, opts Options) (*Store, error) {
	return NewStoreWithDialector(mysql.Open(dsn), opts)
}

// NewStoreWithDialector 使用指定的GORM dialector创建存储实例
func NewStoreWithDialector(dialector gorm.Dialector, opts Options) (*Store, error) {
	// 配置 GORM
	config := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent), // 静默模式
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	// 连接数据库
	db, err := gorm.Open(dialector, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// 配置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	store := &Store{db: db}

	// 自动迁移数据库表
	if opts.AutoMigrate {
		if err := store.migrate(); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	return store, nil
}

// migrate 自动迁移数据库表结构
func (s *Store) migrate() error {
	return s.db.AutoMigrate(
		&domain.APIKey{},
		&domain.User{},
		&domain.Admin{},
	)
}

// ========== Directory Repository ==========

// CreateUserWithKey 在事务内先创建 API Key，再创建引用它的用户
func (s *Store) CreateUserWithKey(ctx context.Context, user *domain.User, key *domain.APIKey) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(key).Error; err != nil {
			return fmt.Errorf("insert api key: %w", err)
		}

		user.APIKeyID = key.ID
		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
		return nil
	})
}

// DeleteUserWithKey 在事务内删除用户及其 API Key
func (s *Store) DeleteUserWithKey(ctx context.Context, userID int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user domain.User
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return storage.ErrUserNotFound
			}
			return fmt.Errorf("lookup user api key: %w", err)
		}

		if err := tx.Delete(&domain.User{}, userID).Error; err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		if err := tx.Delete(&domain.APIKey{}, user.APIKeyID).Error; err != nil {
			return fmt.Errorf("delete api key: %w", err)
		}
		return nil
	})
}

// ListUsers 列出所有用户
func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	users := make([]domain.User, 0)
	if err := s.db.WithContext(ctx).Order("id").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// ListAPIKeys 列出所有 API Key
func (s *Store) ListAPIKeys(ctx context.Context) ([]domain.APIKey, error) {
	keys := make([]domain.APIKey, 0)
	if err := s.db.WithContext(ctx).Order("id").Find(&keys).Error; err != nil {
		return nil, err
	}
	return keys, nil
}

// ========== Admin Repository ==========

// CreateAdmin 创建管理员
func (s *Store) CreateAdmin(ctx context.Context, admin *domain.Admin) error {
	return s.db.WithContext(ctx).Create(admin).Error
}

// GetAdminByEmail 根据邮箱获取管理员（按主键取第一条）
func (s *Store) GetAdminByEmail(ctx context.Context, email string) (*domain.Admin, error) {
	var admin domain.Admin
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&admin).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrAdminNotFound
		}
		return nil, err
	}
	return &admin, nil
}

// ========== 工具方法 ==========

// Close 关闭数据库连接
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health 检查数据库健康状态
func (s *Store) Health(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

var _ storage.Store = (*Store)(nil)
