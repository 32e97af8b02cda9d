package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"dailyflow/internal/model"
	pkgLog "dailyflow/pkg/log"
)

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = errors.New("record not found")

// NewDB opens a SQLite database and runs migrations.
func NewDB(dsn string, l pkgLog.Logger) (*gorm.DB, error) {
	if dsn == "" {
		dsn = "daily_planner.db"
	}

	if err := ensureDirForSQLite(dsn); err != nil {
		return nil, err
	}

	dbLogger := logger.New(
		gormWriter{l: l},
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: dbLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.AutoMigrate(&model.User{}, &model.Task{}, &model.TaskDependency{}, &model.Streak{}); err != nil {
		return nil, fmt.Errorf("migrate db: %w", err)
	}

	return db, nil
}

// gormWriter routes gorm's own log lines into the application logger.
type gormWriter struct {
	l pkgLog.Logger
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	if w.l == nil {
		return
	}
	w.l.Warnf(context.Background(), "gorm: "+format, args...)
}

// ensureDirForSQLite creates parent dir for SQLite file if needed.
func ensureDirForSQLite(dsn string) error {
	// Ignore DSNs with explicit mode=memory or network.
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return nil
	}
	// Strip file: prefix if present.
	clean := strings.TrimPrefix(dsn, "file:")
	clean = strings.Split(clean, "?")[0]
	dir := filepath.Dir(clean)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create db dir %q: %w", dir, err)
	}
	return nil
}
