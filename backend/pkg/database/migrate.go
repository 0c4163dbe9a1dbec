package database

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

// 考勤库的全部结构变更随二进制内嵌，启动时按版本号顺序补齐
//
//go:embed migrations/*.sql
var migrationsFS embed.FS

// RunMigrations 将考勤数据库结构升级到最新版本
// 已是最新版本时为空操作；失败会留下 dirty 标记，需人工介入后重启
func RunMigrations(db *sql.DB, logger *zap.Logger) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("读取内嵌迁移脚本失败: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("构建 postgres 迁移驱动失败: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("构建迁移实例失败: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("升级数据库结构失败: %w", err)
	}

	version, dirty, _ := m.Version()
	if dirty {
		logger.Warn("数据库结构处于 dirty 状态，请人工修复后重启", zap.Uint("version", version))
		return nil
	}
	logger.Info("数据库结构已就绪", zap.Uint("version", version))
	return nil
}
