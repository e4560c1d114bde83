package sql

import (
	"context"
	"database/sql"
	"errors"

	"keyadmin/backend/internal/domain"
	"keyadmin/backend/internal/storage"
)

const (
	insertAdminQuery   = "INSERT INTO `admin` (`email`, `password`) VALUES (?, ?)"
	selectAdminByEmail = "SELECT `email`, `password` FROM `admin` WHERE `email` = ? ORDER BY `id` LIMIT 1"
)

// ========== Admin Repository ==========

// CreateAdmin 创建管理员
func (s *Store) CreateAdmin(ctx context.Context, admin *domain.Admin) error {
	_, err := s.db.ExecContext(ctx, s.rebind(insertAdminQuery), admin.Email, admin.Password)
	return err
}

// GetAdminByEmail 根据邮箱获取管理员（取第一条）
func (s *Store) GetAdminByEmail(ctx context.Context, email string) (*domain.Admin, error) {
	var admin domain.Admin
	err := s.db.QueryRowContext(ctx, s.rebind(selectAdminByEmail), email).Scan(&admin.Email, &admin.Password)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrAdminNotFound
	}
	if err != nil {
		return nil, err
	}
	return &admin, nil
}
