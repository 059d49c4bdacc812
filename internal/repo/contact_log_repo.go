// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the ContactLog
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business rules, only persistence
// and query composition.
//
// Soft deletion is expressed through domain.ContactLog.DeletedAt, so GORM's
// default scope hides deleted rows from every function here except the ones
// explicitly suffixed Unscoped.
//
// Error semantics:
//   - When a contact log is not found, functions return gorm.ErrRecordNotFound
//     (exported as ErrNotFound).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-contactlog-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ContactLogFilter narrows list queries. Zero values disable a filter.
type ContactLogFilter struct {
	// Query matches contact name or note (substring, case-insensitive in SQLite for ASCII).
	Query string
	// TypeOfContactID restricts results to one taxonomy term.
	TypeOfContactID string
}

// editableColumns are the columns an edit submission may write.
var editableColumns = []string{
	"contact_date",
	"type_of_contact_id",
	"contact_name",
	"contact_note",
	"adverse_event_identified",
	"ae_receipt_no",
}

// CreateContactLog inserts c. A missing ID is filled with a random UUID and
// a zero CreatedAt with the current UTC time.
func CreateContactLog(ctx context.Context, db *gorm.DB, c *domain.ContactLog) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(c).Error
}

// GetContactLog fetches a non-deleted contact log with its type of contact.
func GetContactLog(ctx context.Context, db *gorm.DB, id string) (*domain.ContactLog, error) {
	var c domain.ContactLog
	err := db.WithContext(ctx).
		Preload("TypeOfContact", unscopedTerms).
		Where("id = ?", id).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetContactLogUnscoped fetches a contact log whether or not it has been
// soft-deleted.
func GetContactLogUnscoped(ctx context.Context, db *gorm.DB, id string) (*domain.ContactLog, error) {
	var c domain.ContactLog
	err := db.WithContext(ctx).
		Unscoped().
		Where("id = ?", id).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateContactLog writes the editable columns of c (zero values included).
// It returns ErrNotFound when the row is missing or soft-deleted.
func UpdateContactLog(ctx context.Context, db *gorm.DB, c *domain.ContactLog) error {
	res := db.WithContext(ctx).
		Model(c).
		Select(editableColumns).
		Updates(c)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SoftDeleteContactLog marks the row as deleted at the given instant by
// deletedBy. Because the update is scoped to non-deleted rows, a second call
// for the same id returns ErrNotFound.
func SoftDeleteContactLog(ctx context.Context, db *gorm.DB, id, deletedBy string, at time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.ContactLog{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"deleted_at": at,
			"deleted_by": deletedBy,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// apply narrows a contact_logs query by f.
func (f ContactLogFilter) apply(q *gorm.DB) *gorm.DB {
	if s := strings.TrimSpace(f.Query); s != "" {
		like := "%" + s + "%"
		q = q.Where("contact_name LIKE ? OR contact_note LIKE ?", like, like)
	}
	if f.TypeOfContactID != "" {
		q = q.Where("type_of_contact_id = ?", f.TypeOfContactID)
	}
	return q
}

// CountContactLogs returns the number of non-deleted contact logs matching f.
func CountContactLogs(ctx context.Context, db *gorm.DB, f ContactLogFilter) (int64, error) {
	var total int64
	err := f.apply(db.WithContext(ctx).Model(&domain.ContactLog{})).
		Count(&total).Error
	return total, err
}

// ListContactLogsPage returns a page of non-deleted contact logs matching f,
// newest first. Use CountContactLogs for pagination metadata.
func ListContactLogsPage(ctx context.Context, db *gorm.DB, f ContactLogFilter, offset, limit int) ([]domain.ContactLog, error) {
	var out []domain.ContactLog
	err := f.apply(db.WithContext(ctx).Model(&domain.ContactLog{})).
		Preload("TypeOfContact", unscopedTerms).
		Order("created_at desc").
		Order("id desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ListContactLogsUnscoped returns every contact log, deleted ones included,
// oldest first. It backs the report export.
func ListContactLogsUnscoped(ctx context.Context, db *gorm.DB) ([]domain.ContactLog, error) {
	var out []domain.ContactLog
	err := db.WithContext(ctx).
		Unscoped().
		Preload("TypeOfContact", unscopedTerms).
		Order("created_at asc").
		Order("id asc").
		Find(&out).Error
	return out, err
}

// unscopedTerms keeps retired taxonomy terms visible on the records that
// still reference them.
func unscopedTerms(db *gorm.DB) *gorm.DB { return db.Unscoped() }
