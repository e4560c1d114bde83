// Package migrations 内嵌 MySQL 与 PostgreSQL 的表结构迁移，并通过 goose 执行。
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed mysql/*.sql postgres/*.sql
var migrationsFS embed.FS

var gooseMu sync.Mutex

// Command 迁移命令
type Command string

const (
	CommandUp     Command = "up"
	CommandDown   Command = "down"
	CommandStatus Command = "status"
)

// Dir 返回指定数据库类型的迁移目录
func Dir(dialect string) (string, error) {
	switch dialect {
	case "mysql", "postgres":
		return dialect, nil
	default:
		return "", fmt.Errorf("unsupported migration dialect: %s", dialect)
	}
}

// Up 执行全部未应用的迁移
func Up(ctx context.Context, db *sql.DB, dialect string) error {
	return Run(ctx, db, dialect, CommandUp)
}

// Run 对数据库执行迁移命令
//
// 参数:
//   - ctx: 上下文
//   - db: 已打开的数据库连接
//   - dialect: mysql 或 postgres
//   - cmd: up / down / status
//
// 返回值:
//   - error: 迁移失败时返回错误
func Run(ctx context.Context, db *sql.DB, dialect string, cmd Command) error {
	dir, err := Dir(dialect)
	if err != nil {
		return err
	}

	gooseMu.Lock()
	defer func() {
		goose.SetBaseFS(nil)
		gooseMu.Unlock()
	}()
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	switch cmd {
	case CommandUp:
		err = goose.UpContext(ctx, db, dir)
	case CommandDown:
		err = goose.DownContext(ctx, db, dir)
	case CommandStatus:
		err = goose.StatusContext(ctx, db, dir)
	default:
		return fmt.Errorf("unknown migration command: %s", cmd)
	}
	if err != nil {
		return fmt.Errorf("migration %s failed: %w", cmd, err)
	}
	return nil
}
