package db

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yungbote/heirloom-backend/internal/platform/logger"
)

// SQLiteService backs local development and tests.
type SQLiteService struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewSQLiteService opens path, which may be a file or a "file:...?mode=memory" DSN.
func NewSQLiteService(logg *logger.Logger, path string) (*SQLiteService, error) {
	if path == "" {
		path = "heirloom.db"
	}
	db, err := OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteService{db: db, log: logg.With("service", "SQLiteService")}, nil
}

// OpenSQLite opens a SQLite database with foreign keys on, a busy timeout and
// IMMEDIATE transactions so concurrent writers queue instead of failing.
func OpenSQLite(path string) (*gorm.DB, error) {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	dsn := path + sep + "_busy_timeout=5000&_foreign_keys=on&_txlock=immediate"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   newGormLogger(),
		NowFunc:                                  func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite %s: %w", path, err)
	}
	return db, nil
}

func (s *SQLiteService) DB() *gorm.DB   { return s.db }
func (s *SQLiteService) Driver() string { return "sqlite" }

func (s *SQLiteService) AutoMigrateAll() error {
	s.log.Info("Auto migrating sqlite tables...")
	if err := Migrate(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	return nil
}

func (s *SQLiteService) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
