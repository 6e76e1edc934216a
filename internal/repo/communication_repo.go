// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// Communication model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition. Conversation grouping and message
// assembly live in the chat package and the service layer; this file only
// fetches ordered record sets and mutates the three fields a communication
// is allowed to change after creation (seen, status, delivery_status).
//
// Error semantics:
//   - When a record is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/crmsuite/go-messaging-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CommunicationFilter narrows ListCommunications. Zero values mean "no
// filter". Search is a case-insensitive substring match across subject,
// content, sender, recipients, and phone number.
type CommunicationFilter struct {
	Medium domain.Medium
	Search string
}

// ListCommunications returns every grouping-eligible communication matching
// the filter, ordered by communication date descending. The room grouping
// engine consumes this set whole; pagination happens after grouping, not here.
func ListCommunications(ctx context.Context, db *gorm.DB, f CommunicationFilter) ([]domain.Communication, error) {
	q := db.WithContext(ctx).
		Model(&domain.Communication{}).
		Where("communication_type = ?", domain.CommunicationTypeDefault)
	if f.Medium != "" {
		q = q.Where("communication_medium = ?", f.Medium)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where(
			"LOWER(subject) LIKE ? OR LOWER(content) LIKE ? OR LOWER(sender) LIKE ? OR LOWER(recipients) LIKE ? OR LOWER(phone_no) LIKE ?",
			like, like, like, like, like,
		)
	}
	var out []domain.Communication
	err := q.Order("communication_date desc").Find(&out).Error
	return out, err
}

// threadScope composes the identifier match for one conversation: phone
// equality for phone-based media, sender-or-recipients match for email.
func threadScope(db *gorm.DB, medium domain.Medium, identifier string) *gorm.DB {
	q := db.Model(&domain.Communication{}).
		Where("communication_type = ?", domain.CommunicationTypeDefault).
		Where("communication_medium = ?", medium)
	if medium.PhoneBased() {
		return q.Where("phone_no = ?", identifier)
	}
	return q.Where("sender = ? OR recipients LIKE ?", identifier, "%"+identifier+"%")
}

// ListThread returns every communication in one conversation, ordered by
// communication date ascending (oldest first, ready for tail windowing).
func ListThread(ctx context.Context, db *gorm.DB, medium domain.Medium, identifier string) ([]domain.Communication, error) {
	var out []domain.Communication
	err := threadScope(db.WithContext(ctx), medium, identifier).
		Order("communication_date asc").
		Find(&out).Error
	return out, err
}

// LatestInThread returns the most recent communication of a conversation, or
// ErrNotFound when the thread is empty. The send orchestrator threads
// automatic replies against this record.
func LatestInThread(ctx context.Context, db *gorm.DB, medium domain.Medium, identifier string) (*domain.Communication, error) {
	var c domain.Communication
	err := threadScope(db.WithContext(ctx), medium, identifier).
		Order("communication_date desc").
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCommunication fetches a single record by primary key, or ErrNotFound.
func GetCommunication(ctx context.Context, db *gorm.DB, id string) (*domain.Communication, error) {
	var c domain.Communication
	err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByMessageID fetches the record whose provider message id equals
// messageID, or ErrNotFound. This is the reply-threading correlation lookup;
// in_reply_to values point at message ids, never at primary keys.
func GetByMessageID(ctx context.Context, db *gorm.DB, messageID string) (*domain.Communication, error) {
	if strings.TrimSpace(messageID) == "" {
		return nil, ErrNotFound
	}
	var c domain.Communication
	err := db.WithContext(ctx).Where("message_id = ?", messageID).First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCommunication persists a new record. A missing ID is filled with a
// fresh UUID and a zero CommunicationDate with the current UTC time; every
// other field is stored as given.
func CreateCommunication(ctx context.Context, db *gorm.DB, c *domain.Communication) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CommunicationType == "" {
		c.CommunicationType = domain.CommunicationTypeDefault
	}
	if c.CommunicationDate.IsZero() {
		c.CommunicationDate = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(c).Error
}

// UpdateCommunicationStatus sets the status of one record. Returns
// ErrNotFound when the record does not exist.
func UpdateCommunicationStatus(ctx context.Context, db *gorm.DB, id, status string) error {
	res := db.WithContext(ctx).
		Model(&domain.Communication{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetProviderMessageID stores the provider-assigned message id on a record
// after dispatch (SMS SIDs arrive only once the provider accepts the message).
func SetProviderMessageID(ctx context.Context, db *gorm.DB, id, messageID string) error {
	return db.WithContext(ctx).
		Model(&domain.Communication{}).
		Where("id = ?", id).
		Update("message_id", messageID).Error
}

// SetDeliveryStatus records the transport outcome for one record.
func SetDeliveryStatus(ctx context.Context, db *gorm.DB, id, deliveryStatus string) error {
	return db.WithContext(ctx).
		Model(&domain.Communication{}).
		Where("id = ?", id).
		Update("delivery_status", deliveryStatus).Error
}

// MarkThreadSeen flags every unseen received record of a conversation as
// seen and returns how many rows changed.
func MarkThreadSeen(ctx context.Context, db *gorm.DB, medium domain.Medium, identifier string) (int64, error) {
	res := threadScope(db.WithContext(ctx), medium, identifier).
		Where("sent_or_received = ? AND seen = ?", domain.DirectionReceived, false).
		Update("seen", true)
	return res.RowsAffected, res.Error
}

// ArchiveThread closes every open conversation record (status -> Closed) and
// returns how many rows changed.
func ArchiveThread(ctx context.Context, db *gorm.DB, medium domain.Medium, identifier string) (int64, error) {
	res := threadScope(db.WithContext(ctx), medium, identifier).
		Where("status NOT IN ?", []string{domain.StatusClosed}).
		Update("status", domain.StatusClosed)
	return res.RowsAffected, res.Error
}

// DeleteThread removes a conversation record by record, accumulating per-row
// failures instead of stopping at the first. It returns the number of rows
// deleted and the first error encountered (nil when everything went through).
func DeleteThread(ctx context.Context, db *gorm.DB, medium domain.Medium, identifier string) (int64, error) {
	var ids []string
	if err := threadScope(db.WithContext(ctx), medium, identifier).
		Pluck("id", &ids).Error; err != nil {
		return 0, err
	}
	var deleted int64
	var firstErr error
	for _, id := range ids {
		res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Communication{})
		if res.Error != nil {
			if firstErr == nil {
				firstErr = res.Error
			}
			continue
		}
		deleted += res.RowsAffected
	}
	return deleted, firstErr
}

// CountUnread returns the number of unseen received communications, across
// every conversation.
func CountUnread(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Communication{}).
		Where("communication_type = ?", domain.CommunicationTypeDefault).
		Where("sent_or_received = ? AND seen = ?", domain.DirectionReceived, false).
		Count(&total).Error
	return total, err
}
