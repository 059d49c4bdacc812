package repo

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tbourn/go-contactlog-backend/internal/domain"
)

func TestSqliteDSN(t *testing.T) {
	assert.Equal(t, "app.db?"+strings.Join(sqlitePragmas, "&"), sqliteDSN("app.db"))
	assert.Equal(t, "file:x?mode=memory&"+strings.Join(sqlitePragmas, "&"), sqliteDSN("file:x?mode=memory"))
}

func TestOpenSQLite_MissingDirectory(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "missing", "contactlog.db"))
	require.Error(t, err)
	assert.Nil(t, db)
	assert.Contains(t, err.Error(), "database directory")
}

func TestOpenSQLite_PragmasOnEveryConnection(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "contactlog.db"))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	assert.Equal(t, 10, sqlDB.Stats().MaxOpenConnections)

	// Hold two connections at once so the pool has to dial a second one.
	ctx := context.Background()
	c1, err := sqlDB.Conn(ctx)
	require.NoError(t, err)
	defer c1.Close()
	c2, err := sqlDB.Conn(ctx)
	require.NoError(t, err)
	defer c2.Close()

	check := func(name string, q func(string) (int, error)) {
		fk, err := q("PRAGMA foreign_keys")
		require.NoError(t, err, name)
		assert.Equal(t, 1, fk, name+" foreign_keys")
		busy, err := q("PRAGMA busy_timeout")
		require.NoError(t, err, name)
		assert.Equal(t, 5000, busy, name+" busy_timeout")
		sync, err := q("PRAGMA synchronous")
		require.NoError(t, err, name)
		assert.Equal(t, 1, sync, name+" synchronous NORMAL")
	}
	check("first", func(p string) (n int, err error) { err = c1.QueryRowContext(ctx, p).Scan(&n); return })
	check("second", func(p string) (n int, err error) { err = c2.QueryRowContext(ctx, p).Scan(&n); return })

	var mode string
	require.NoError(t, c2.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", strings.ToLower(mode))
}

func TestAutoMigrate_CreatesUsableSchema(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "contactlog.db"))
	require.NoError(t, err)
	sqlDB, _ := db.DB()
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, AutoMigrate(db))
	for _, tbl := range []any{&domain.TaxonomyTerm{}, &domain.ContactLog{}, &domain.Idempotency{}} {
		assert.True(t, db.Migrator().HasTable(tbl), "%T", tbl)
	}

	now := time.Now().UTC()
	require.NoError(t, db.Create(&domain.TaxonomyTerm{ID: "t1", Vocabulary: domain.VocabularyTypeOfContact, Name: "Phone", CreatedAt: now, UpdatedAt: now}).Error)
	require.NoError(t, db.Create(&domain.ContactLog{ID: "l1", UserID: "u1", ContactDate: "01/01/2025", TypeOfContactID: "t1",
		ContactName: "Jane", ContactNote: "n", AdverseEventIdentified: domain.AdverseEventNo, CreatedAt: now}).Error)

	var got domain.ContactLog
	require.NoError(t, db.First(&got, "id = ?", "l1").Error)
	assert.Equal(t, "u1", got.UserID)
}

func captureRepoLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev, prevLvl := log.Logger, zerolog.GlobalLevel()
	log.Logger = zerolog.New(&buf)
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(prevLvl)
	})
	return &buf
}

func TestGormLogger_Trace(t *testing.T) {
	sql := func() (string, int64) { return "SELECT * FROM contact_logs WHERE id = ?", 1 }
	ctx := context.Background()

	cases := []struct {
		name    string
		level   gormlogger.LogLevel
		elapsed time.Duration
		err     error
		want    string // "" means nothing logged
	}{
		{"not found is quiet", gormlogger.Warn, 0, gorm.ErrRecordNotFound, ""},
		{"error", gormlogger.Warn, 0, errors.New("disk I/O error"), `"level":"error"`},
		{"slow", gormlogger.Warn, time.Second, nil, `"level":"warn"`},
		{"fast at warn", gormlogger.Warn, 0, nil, ""},
		{"fast at info", gormlogger.Info, 0, nil, `"level":"debug"`},
		{"silent", gormlogger.Silent, time.Second, errors.New("x"), ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buf := captureRepoLog(t)
			l := NewGormLogger(100 * time.Millisecond).LogMode(tc.level)
			l.Trace(ctx, time.Now().Add(-tc.elapsed), sql, tc.err)
			if tc.want == "" {
				assert.Empty(t, buf.String())
				return
			}
			assert.Contains(t, buf.String(), tc.want)
			assert.Contains(t, buf.String(), `"component":"gorm"`)
		})
	}
}

func TestGormLogger_UsesContextLoggerAndHidesValues(t *testing.T) {
	global := captureRepoLog(t)
	var scoped bytes.Buffer
	reqLog := zerolog.New(&scoped).With().Str("request_id", "rid-9").Logger()
	ctx := reqLog.WithContext(context.Background())

	db := newRepoDB(t, &domain.TaxonomyTerm{})
	db.Logger = NewGormLogger(0).LogMode(gormlogger.Info)
	require.NoError(t, db.WithContext(ctx).Create(&domain.TaxonomyTerm{
		ID: "t-secret", Vocabulary: domain.VocabularyTypeOfContact, Name: "Dr Confidential",
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}).Error)

	out := scoped.String()
	assert.Contains(t, out, `"request_id":"rid-9"`)
	assert.Contains(t, out, "INSERT INTO")
	assert.NotContains(t, out, "Dr Confidential")
	assert.Empty(t, global.String())
}
