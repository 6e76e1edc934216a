// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for attachment
// metadata rows joined onto communications.
package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/crmsuite/go-messaging-backend/internal/domain"
)

// CreateAttachment persists one attachment row and flips the owning
// communication's has_attachment flag.
func CreateAttachment(ctx context.Context, db *gorm.DB, a *domain.Attachment) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if err := db.WithContext(ctx).Create(a).Error; err != nil {
		return err
	}
	return db.WithContext(ctx).
		Model(&domain.Communication{}).
		Where("id = ?", a.CommunicationID).
		Update("has_attachment", true).Error
}

// ListAttachments returns the attachment rows for a set of communications,
// keyed by communication id. Communications without attachments simply have
// no entry in the map.
func ListAttachments(ctx context.Context, db *gorm.DB, communicationIDs []string) (map[string][]domain.Attachment, error) {
	out := make(map[string][]domain.Attachment)
	if len(communicationIDs) == 0 {
		return out, nil
	}
	var rows []domain.Attachment
	err := db.WithContext(ctx).
		Where("communication_id IN ?", communicationIDs).
		Order("created_at asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.CommunicationID] = append(out[r.CommunicationID], r)
	}
	return out, nil
}
