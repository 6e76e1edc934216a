// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for scheduled
// group text messages and their recipient resolution.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/crmsuite/go-messaging-backend/internal/domain"
)

// ListDueGroupMessages returns scheduled group messages whose delivery time
// has passed, with their group targets preloaded.
func ListDueGroupMessages(ctx context.Context, db *gorm.DB, now time.Time) ([]domain.GroupTextMessage, error) {
	var out []domain.GroupTextMessage
	err := db.WithContext(ctx).
		Preload("Targets").
		Where("status = ? AND scheduled = ? AND delivery_datetime IS NOT NULL AND delivery_datetime <= ?",
			domain.StatusScheduled, true, now).
		Find(&out).Error
	return out, err
}

// GetGroupMessageStatus re-reads just the status column of one group message.
// SendDue consults this immediately before dispatch to shrink (not close)
// the double-send window; the status transition is the only guard.
func GetGroupMessageStatus(ctx context.Context, db *gorm.DB, id string) (string, error) {
	var row struct{ Status string }
	err := db.WithContext(ctx).
		Model(&domain.GroupTextMessage{}).
		Select("status").
		Where("id = ?", id).
		Scan(&row).Error
	if err != nil {
		return "", err
	}
	if row.Status == "" {
		return "", ErrNotFound
	}
	return row.Status, nil
}

// UpdateGroupMessageStatus transitions one group message's status.
func UpdateGroupMessageStatus(ctx context.Context, db *gorm.DB, id, status string) error {
	res := db.WithContext(ctx).
		Model(&domain.GroupTextMessage{}).
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

// GroupRecipientPhones resolves the distinct primary mobile numbers of the
// members of the included groups, minus the members of the excluded groups
// and minus unsubscribed contacts.
func GroupRecipientPhones(ctx context.Context, db *gorm.DB, includeGroupIDs, excludeGroupIDs []string) ([]string, error) {
	if len(includeGroupIDs) == 0 {
		return nil, nil
	}
	memberContacts := db.Model(&domain.MessagingGroupMember{}).
		Select("contact_id").
		Where("group_id IN ?", includeGroupIDs)

	q := db.WithContext(ctx).
		Model(&domain.ContactPhone{}).
		Distinct("contact_phones.phone").
		Joins("JOIN contacts ON contacts.id = contact_phones.contact_id").
		Where("contact_phones.contact_id IN (?)", memberContacts).
		Where("contact_phones.is_primary_mobile_no = ?", true).
		Where("contacts.unsubscribed = ?", false).
		Where("contacts.deleted_at IS NULL")

	if len(excludeGroupIDs) > 0 {
		excluded := db.Model(&domain.MessagingGroupMember{}).
			Select("contact_id").
			Where("group_id IN ?", excludeGroupIDs)
		q = q.Where("contact_phones.contact_id NOT IN (?)", excluded)
	}

	var phones []string
	err := q.Pluck("contact_phones.phone", &phones).Error
	return phones, err
}
