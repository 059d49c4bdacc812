package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-contactlog-backend/internal/domain"
)

// ContactLogsStats returns how many live contact logs match f and the most
// recent UpdatedAt among them (nil when none match). The list ETag is
// derived from both, so an edit or a soft delete invalidates it.
func ContactLogsStats(ctx context.Context, db *gorm.DB, f ContactLogFilter) (count int64, maxUpdatedAt *time.Time, err error) {
	q := f.apply(db.WithContext(ctx).Model(&domain.ContactLog{}))

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// MAX(updated_at) comes back as TEXT from SQLite; ordering keeps the type.
	var row struct {
		UpdatedAt time.Time
	}
	q = f.apply(db.WithContext(ctx).Model(&domain.ContactLog{}))
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}
