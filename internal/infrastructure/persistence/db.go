// Package persistence 以 SQLite 保存目錄與技術單。
package persistence

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"recipe-costing/internal/infrastructure/config"
	"recipe-costing/internal/pkg/common"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	sqlitedriver "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// timeLayout 固定寬度的 UTC 時間格式，字串排序即時間排序
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Open 開啟 SQLite 資料庫並套用 migration
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	if dir := filepath.Dir(cfg.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)", cfg.Path, busy.Milliseconds())

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite 只允許單一寫入者
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	common.LogInfo("資料庫已開啟", zap.String("path", cfg.Path))
	return db, nil
}

// migrationLogger 將 migrate 的輸出導向 zap
type migrationLogger struct{}

func (migrationLogger) Printf(format string, v ...any) {
	common.LogDebug(fmt.Sprintf(format, v...))
}

func (migrationLogger) Verbose() bool { return false }

// Migrate 套用內嵌的 migration 到最新版本
func Migrate(db *sqlx.DB) error {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	driver, err := sqlite.WithInstance(db.DB, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = migrationLogger{}
	// m.Close 會一併關閉共用的 *sql.DB，這裡只關閉 source
	defer src.Close()

	start := time.Now()
	err = m.Up()
	switch {
	case err == nil:
		version, _, _ := m.Version()
		common.LogInfo("Database migrations applied", zap.Uint("version", version), zap.Duration("耗時", time.Since(start)))
		return nil
	case errors.Is(err, migrate.ErrNoChange):
		common.LogDebug("No new migrations to apply")
		return nil
	default:
		version, dirty, _ := m.Version()
		common.LogError("Failed to apply migrations",
			zap.Uint("version", version),
			zap.Bool("dirty", dirty),
			zap.Error(err),
		)
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
}

// isUniqueViolation 判斷是否違反唯一索引
func isUniqueViolation(err error) bool {
	var se *sqlitedriver.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		// 未啟用擴充錯誤碼時只能從訊息判斷
		return strings.Contains(se.Error(), "UNIQUE constraint failed")
	}
	return false
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		common.LogWarn("無法解析時間欄位", zap.String("value", s), zap.Error(err))
		return time.Time{}
	}
	return t
}
