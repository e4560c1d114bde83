package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"keyadmin/backend/internal/domain"
	"keyadmin/backend/internal/storage"
)

const (
	insertAPIKeyQuery  = "INSERT INTO `api_key` (`key`, `out_of_date`) VALUES (?, ?)"
	insertUserQuery    = "INSERT INTO `user` (`first_name`, `last_name`, `email`, `api_key_id`) VALUES (?, ?, ?, ?)"
	selectUserKeyQuery = "SELECT `api_key_id` FROM `user` WHERE `id` = ? FOR UPDATE"
	deleteUserQuery    = "DELETE FROM `user` WHERE `id` = ?"
	deleteAPIKeyQuery  = "DELETE FROM `api_key` WHERE `id` = ?"
	listUsersQuery     = "SELECT `id`, `first_name`, `last_name`, `email`, `api_key_id` FROM `user` ORDER BY `id`"
	listAPIKeysQuery   = "SELECT `id`, `key`, `out_of_date` FROM `api_key` ORDER BY `id`"
)

// ========== Directory Repository ==========

// CreateUserWithKey 在一个事务内插入 API Key 和用户
func (s *Store) CreateUserWithKey(ctx context.Context, user *domain.User, key *domain.APIKey) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		keyID, err := s.insertID(ctx, tx, insertAPIKeyQuery, key.Key, key.OutOfDate)
		if err != nil {
			return fmt.Errorf("insert api key: %w", err)
		}

		userID, err := s.insertID(ctx, tx, insertUserQuery,
			user.FirstName,
			user.LastName,
			user.Email,
			keyID,
		)
		if err != nil {
			return fmt.Errorf("insert user: %w", err)
		}

		key.ID = keyID
		user.ID = userID
		user.APIKeyID = keyID
		return nil
	})
}

// DeleteUserWithKey 在一个事务内删除用户及其 API Key
func (s *Store) DeleteUserWithKey(ctx context.Context, userID int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var keyID int64
		err := tx.QueryRowContext(ctx, s.rebind(selectUserKeyQuery), userID).Scan(&keyID)
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("lookup user api key: %w", err)
		}

		if _, err := tx.ExecContext(ctx, s.rebind(deleteUserQuery), userID); err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		if _, err := tx.ExecContext(ctx, s.rebind(deleteAPIKeyQuery), keyID); err != nil {
			return fmt.Errorf("delete api key: %w", err)
		}
		return nil
	})
}

// ListUsers 列出所有用户
func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(listUsersQuery))
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
func (s *Store) ListAPIKeys(ctx context.Context) ([]domain.APIKey, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(listAPIKeysQuery))
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
