package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"keyadmin/backend/internal/domain"
	"keyadmin/backend/internal/storage"
)

// DB 是 PoolStore 依赖的最小连接接口（pgxpool 或 pgxmock）
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

const (
	pgInsertAPIKey  = `INSERT INTO "api_key" ("key", "out_of_date") VALUES ($1, $2) RETURNING "id"`
	pgInsertUser    = `INSERT INTO "user" ("first_name", "last_name", "email", "api_key_id") VALUES ($1, $2, $3, $4) RETURNING "id"`
	pgSelectUserKey = `SELECT "api_key_id" FROM "user" WHERE "id" = $1 FOR UPDATE`
	pgDeleteUser    = `DELETE FROM "user" WHERE "id" = $1`
	pgDeleteAPIKey  = `DELETE FROM "api_key" WHERE "id" = $1`
	pgListUsers     = `SELECT "id", "first_name", "last_name", "email", "api_key_id" FROM "user" ORDER BY "id"`
	pgListAPIKeys   = `SELECT "id", "key", "out_of_date" FROM "api_key" ORDER BY "id"`
	pgInsertAdmin   = `INSERT INTO "admin" ("email", "password") VALUES ($1, $2)`
	pgSelectAdmin   = `SELECT "email", "password" FROM "admin" WHERE "email" = $1 ORDER BY "id" LIMIT 1`
)

// PoolStore 基于 pgx 原生连接池的 PostgreSQL 存储实现
type PoolStore struct {
	db DB
}

// NewPoolStore 创建 pgx 存储
func NewPoolStore(db DB) *PoolStore {
	return &PoolStore{db: db}
}

// CreateUserWithKey 在事务内先创建 API Key，再创建引用它的用户
func (s *PoolStore) CreateUserWithKey(ctx context.Context, user *domain.User, key *domain.APIKey) error {
	var keyID, userID int64
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, pgInsertAPIKey, key.Key, key.OutOfDate).Scan(&keyID); err != nil {
			return fmt.Errorf("insert api key: %w", err)
		}
		if err := tx.QueryRow(ctx, pgInsertUser,
			user.FirstName,
			user.LastName,
			user.Email,
			keyID,
		).Scan(&userID); err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	key.ID = keyID
	user.ID = userID
	user.APIKeyID = keyID
	return nil
}

// DeleteUserWithKey 在事务内删除用户及其 API Key
func (s *PoolStore) DeleteUserWithKey(ctx context.Context, userID int64) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		var keyID int64
		err := tx.QueryRow(ctx, pgSelectUserKey, userID).Scan(&keyID)
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("lookup user api key: %w", err)
		}

		if _, err := tx.Exec(ctx, pgDeleteUser, userID); err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		if _, err := tx.Exec(ctx, pgDeleteAPIKey, keyID); err != nil {
			return fmt.Errorf("delete api key: %w", err)
		}
		return nil
	})
}

// ListUsers 列出所有用户
func (s *PoolStore) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := s.db.Query(ctx, pgListUsers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.APIKeyID); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ListAPIKeys 列出所有 API Key
func (s *PoolStore) ListAPIKeys(ctx context.Context) ([]domain.APIKey, error) {
	rows, err := s.db.Query(ctx, pgListAPIKeys)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make([]domain.APIKey, 0)
	for rows.Next() {
		var k domain.APIKey
		if err := rows.Scan(&k.ID, &k.Key, &k.OutOfDate); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// CreateAdmin 创建管理员
func (s *PoolStore) CreateAdmin(ctx context.Context, admin *domain.Admin) error {
	_, err := s.db.Exec(ctx, pgInsertAdmin, admin.Email, admin.Password)
	return err
}

// GetAdminByEmail 根据邮箱获取管理员（取第一条）
func (s *PoolStore) GetAdminByEmail(ctx context.Context, email string) (*domain.Admin, error) {
	var admin domain.Admin
	err := s.db.QueryRow(ctx, pgSelectAdmin, email).Scan(&admin.Email, &admin.Password)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrAdminNotFound
	}
	if err != nil {
		return nil, err
	}
	return &admin, nil
}

// Close 连接池由 Client 管理，这里不做处理
func (s *PoolStore) Close() error {
	return nil
}

// Health 检查数据库健康状态
func (s *PoolStore) Health(ctx context.Context) error {
	return s.db.Ping(ctx)
}

var _ storage.Store = (*PoolStore)(nil)
