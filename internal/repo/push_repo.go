// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for browser push
// subscriptions and the settings rows that hold the VAPID keypair.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/crmsuite/go-messaging-backend/internal/domain"
)

// UpsertSubscription registers a push endpoint for a user. Re-registering an
// existing (user, endpoint) pair refreshes the keys instead of erroring.
func UpsertSubscription(ctx context.Context, db *gorm.DB, s *domain.PushSubscription) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"p256dh_key", "auth_key", "updated_at"}),
		}).
		Create(s).Error
}

// DeleteSubscription removes a user's push endpoint. Deleting an endpoint
// that was never registered is not an error.
func DeleteSubscription(ctx context.Context, db *gorm.DB, userID, endpoint string) error {
	return db.WithContext(ctx).
		Where("user_id = ? AND endpoint = ?", userID, endpoint).
		Delete(&domain.PushSubscription{}).Error
}

// DeleteSubscriptionByEndpoint removes every row for an endpoint regardless
// of owner. The push fan-out calls this when a provider reports the
// subscription gone (404/410).
func DeleteSubscriptionByEndpoint(ctx context.Context, db *gorm.DB, endpoint string) error {
	return db.WithContext(ctx).
		Where("endpoint = ?", endpoint).
		Delete(&domain.PushSubscription{}).Error
}

// ListSubscriptions returns a user's registered push endpoints.
func ListSubscriptions(ctx context.Context, db *gorm.DB, userID string) ([]domain.PushSubscription, error) {
	var out []domain.PushSubscription
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&out).Error
	return out, err
}

// ListAllSubscriptions returns every registered push endpoint, for inbound
// notification fan-out.
func ListAllSubscriptions(ctx context.Context, db *gorm.DB) ([]domain.PushSubscription, error) {
	var out []domain.PushSubscription
	err := db.WithContext(ctx).Find(&out).Error
	return out, err
}

// HasSubscription reports whether a user has the endpoint registered.
func HasSubscription(ctx context.Context, db *gorm.DB, userID, endpoint string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.PushSubscription{}).
		Where("user_id = ? AND endpoint = ?", userID, endpoint).
		Count(&n).Error
	return n > 0, err
}

// GetSetting reads one settings row, or ErrNotFound.
func GetSetting(ctx context.Context, db *gorm.DB, key string) (*domain.Setting, error) {
	if strings.TrimSpace(key) == "" {
		return nil, ErrNotFound
	}
	var s domain.Setting
	err := db.WithContext(ctx).Where("key = ?", key).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// PutSetting writes one settings row, last write wins.
func PutSetting(ctx context.Context, db *gorm.DB, key, value string, encrypted bool) error {
	s := domain.Setting{Key: key, Value: value, Encrypted: encrypted, UpdatedAt: time.Now().UTC()}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "encrypted", "updated_at"}),
		}).
		Create(&s).Error
}
