// Package repo is the GORM persistence layer for contact logs, taxonomy
// terms and idempotency records. Functions take the *gorm.DB to use so
// callers can pass a transaction.
package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-contactlog-backend/internal/domain"
)

// Connection PRAGMAs. They travel in the DSN so every pooled connection
// gets them, not just the first one. Writers take the lock up front
// (_txlock=immediate) so two soft deletes cannot deadlock upgrading a read.
var sqlitePragmas = []string{
	"_pragma=journal_mode(WAL)",
	"_pragma=synchronous(NORMAL)",
	"_pragma=foreign_keys(1)",
	"_pragma=busy_timeout(5000)",
	"_txlock=immediate",
}

// sqliteDSN appends the connection PRAGMAs to path, which may already carry
// query parameters.
func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + strings.Join(sqlitePragmas, "&")
}

// OpenSQLite opens (or creates) the database at path. Queries are logged
// through zerolog and traced as children of the request span.
func OpenSQLite(path string) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(sqliteDSN(path)), &gorm.Config{
		Logger:  NewGormLogger(SlowQueryThreshold),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("gorm tracing: %w", err)
	}
	return db, nil
}

// AutoMigrate brings the schema up to date. Terms come first because
// contact logs reference them.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.TaxonomyTerm{},
		&domain.ContactLog{},
		&domain.Idempotency{},
	)
}
