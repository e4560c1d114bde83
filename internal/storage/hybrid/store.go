// Package hybrid 按配置组合目录存储（内存 / database/sql / GORM / pgx）
// 与会话黑名单（Redis / 进程内缓存）。
package hybrid

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"keyadmin/backend/internal/cache"
	"keyadmin/backend/internal/config"
	"keyadmin/backend/internal/monitoring"
	"keyadmin/backend/internal/storage"
	"keyadmin/backend/internal/storage/memory"
	"keyadmin/backend/internal/storage/postgres"
	"keyadmin/backend/internal/storage/redis"
	sqlstore "keyadmin/backend/internal/storage/sql"
)

const (
	ClientSQL  = "sql"
	ClientGORM = "gorm"
	ClientPGX  = "pgx"
)

// Backends 运行期使用的存储后端
type Backends struct {
	Store     storage.Store
	Blacklist storage.JWTRepository

	pg    *postgres.Client
	redis *redis.Client
	local *cache.LocalCache
	log   *zap.Logger
}

// Open 根据配置创建存储后端
//
// 参数:
//   - ctx: 迁移使用的上下文
//   - cfg: 系统配置
//   - log: 日志记录器
//
// 返回值:
//   - *Backends: 已连接的后端，使用完需调用 Close
//   - error: 连接或迁移失败时返回错误
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Backends, error) {
	if log == nil {
		log = zap.NewNop()
	}
	b := &Backends{log: log}

	store, err := b.openStore(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}
	b.Store = store

	if cfg.Redis.Enabled() {
		client, err := redis.New(&cfg.Redis, log)
		if err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
		b.redis = client
		b.Blacklist = redis.NewCache(client.Client())
		log.Info("using redis token blacklist", zap.String("address", cfg.Redis.Address))
	} else {
		// 会话最长有效期即黑名单条目的最长存活时间
		b.local = cache.NewLocalCache(cfg.JWT.SessionExpiry, time.Minute)
		b.Blacklist = cache.NewBlacklist(b.local)
		log.Info("using in-process token blacklist")
	}

	return b, nil
}

// OpenStore 只创建目录存储，供命令行工具使用
func OpenStore(ctx context.Context, cfg *config.DatabaseConfig, log *zap.Logger) (storage.Store, func() error, error) {
	if log == nil {
		log = zap.NewNop()
	}
	b := &Backends{log: log}
	store, err := b.openStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	b.Store = store
	return store, b.Close, nil
}

func (b *Backends) openStore(ctx context.Context, cfg *config.DatabaseConfig) (storage.Store, error) {
	if cfg.Type == "" {
		b.log.Info("using memory storage (development mode)")
		return memory.NewStore(), nil
	}

	b.log.Info("initializing database storage",
		zap.String("database_type", cfg.Type),
		zap.String("client", cfg.Client),
		zap.Bool("auto_migrate", cfg.AutoMigrate),
	)

	switch cfg.Client {
	case ClientGORM:
		opts := postgres.Options{
			MaxOpenConns:    cfg.MaxOpenConns,
			MaxIdleConns:    cfg.MaxIdleConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
			AutoMigrate:     cfg.AutoMigrate,
		}
		if cfg.Type == "mysql" {
			return wrap(postgres.NewMySQLStore(cfg.DSN, opts))
		}
		return wrap(postgres.NewStore(cfg.DSN, opts))

	case ClientPGX:
		client, err := postgres.New(cfg, b.log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		if cfg.AutoMigrate {
			if err := client.Migrate(ctx); err != nil {
				client.Close()
				return nil, fmt.Errorf("failed to migrate database: %w", err)
			}
		}
		b.pg = client
		return postgres.NewPoolStore(client.Pool()), nil

	case ClientSQL, "":
		return wrap(sqlstore.NewStore(cfg.Type, cfg.DSN, cfg.MaxOpenConns, cfg.MaxIdleConns, cfg.ConnMaxLifetime, cfg.AutoMigrate))

	default:
		return nil, fmt.Errorf("unsupported database client: %s", cfg.Client)
	}
}

// wrap 把具体存储类型转换为接口，并统一错误前缀
func wrap[S storage.Store](store S, err error) (storage.Store, error) {
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return store, nil
}

// RegisterHealth 把各后端注册为健康检查依赖
func (b *Backends) RegisterHealth(register func(name string, p monitoring.Pinger)) {
	register("storage", b.Store)
	if b.redis != nil {
		register("redis", monitoring.PingerFunc(b.redis.Ping))
	}
}

// Close 关闭所有后端
func (b *Backends) Close() error {
	var errs []error
	if b.Store != nil {
		if err := b.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	if b.pg != nil {
		b.pg.Close()
	}
	if b.redis != nil {
		if err := b.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if b.local != nil {
		b.local.Close()
	}
	return errors.Join(errs...)
}
