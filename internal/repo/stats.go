// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// primarily for conditional responses (e.g., ETag generation) in the HTTP
// layer. Each function is context-aware and safe to call from services or
// handlers.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/crmsuite/go-messaging-backend/internal/domain"
)

// CommunicationsStats returns aggregate metadata for the grouping-eligible
// communication log: the total number of rows and the maximum UpdatedAt
// timestamp among those rows. Because rooms are recomputed from this log on
// every read, (count, maxUpdatedAt) is a cheap change marker for the whole
// rooms view.
//
// Return values:
//   - count:        total grouping-eligible communications
//   - maxUpdatedAt: pointer to the greatest UpdatedAt, or nil if no rows
//   - err:          database error, if any
func CommunicationsStats(ctx context.Context, db *gorm.DB) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).
		Model(&domain.Communication{}).
		Where("communication_type = ?", domain.CommunicationTypeDefault)

	// Count
	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}

// ThreadStats returns aggregate metadata for one conversation: the total
// number of rows and the maximum UpdatedAt timestamp among those rows.
//
// Return values:
//   - count:        total communications in the thread
//   - maxUpdatedAt: pointer to the greatest UpdatedAt, or nil if no rows
//   - err:          database error, if any
func ThreadStats(ctx context.Context, db *gorm.DB, medium domain.Medium, identifier string) (count int64, maxUpdatedAt *time.Time, err error) {
	q := threadScope(db.WithContext(ctx), medium, identifier)

	// Count
	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}
