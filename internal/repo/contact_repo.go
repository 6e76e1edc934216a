// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Contact
// model and its phone/email child rows. The conversation core only reads
// contacts (display enrichment); the single write path is the STOP opt-out
// flag.
package repo

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/crmsuite/go-messaging-backend/internal/domain"
)

// FindContactByPhone returns the first contact holding the given phone number
// in any of its phone rows (or as its primary mobile number), or ErrNotFound.
func FindContactByPhone(ctx context.Context, db *gorm.DB, phone string) (*domain.Contact, error) {
	if strings.TrimSpace(phone) == "" {
		return nil, ErrNotFound
	}
	var c domain.Contact
	err := db.WithContext(ctx).
		Where("mobile_no = ? OR id IN (?)", phone,
			db.Model(&domain.ContactPhone{}).Select("contact_id").Where("phone = ?", phone)).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// FindContactByEmail returns the first contact holding the given email
// address (case-insensitive), or ErrNotFound.
func FindContactByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.Contact, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, ErrNotFound
	}
	var c domain.Contact
	err := db.WithContext(ctx).
		Where("LOWER(email_id) = ? OR id IN (?)", email,
			db.Model(&domain.ContactEmail{}).Select("contact_id").Where("LOWER(email_id) = ?", email)).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListContactsByPhone returns every contact linked to the phone number.
// The STOP opt-out flow flags all of them, not just the first.
func ListContactsByPhone(ctx context.Context, db *gorm.DB, phone string) ([]domain.Contact, error) {
	if strings.TrimSpace(phone) == "" {
		return nil, nil
	}
	var out []domain.Contact
	err := db.WithContext(ctx).
		Where("mobile_no = ? OR id IN (?)", phone,
			db.Model(&domain.ContactPhone{}).Select("contact_id").Where("phone = ?", phone)).
		Find(&out).Error
	return out, err
}

// UnsubscribeContacts sets the unsubscribed flag on every contact in ids and
// returns how many rows changed. Re-flagging an already unsubscribed contact
// is a no-op, which keeps the opt-out idempotent.
func UnsubscribeContacts(ctx context.Context, db *gorm.DB, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := db.WithContext(ctx).
		Model(&domain.Contact{}).
		Where("id IN ? AND unsubscribed = ?", ids, false).
		Update("unsubscribed", true)
	return res.RowsAffected, res.Error
}

// SavePhoneValidation stores the carrier-lookup outcome on one phone row.
func SavePhoneValidation(ctx context.Context, db *gorm.DB, phoneRowID string, valid bool, carrierType, validatedNumber string) error {
	return db.WithContext(ctx).
		Model(&domain.ContactPhone{}).
		Where("id = ?", phoneRowID).
		Updates(map[string]any{
			"is_valid_number":  valid,
			"carrier_type":     carrierType,
			"validated_number": validatedNumber,
		}).Error
}

// GetContactWithChildren loads a contact and its phone/email rows.
func GetContactWithChildren(ctx context.Context, db *gorm.DB, id string) (*domain.Contact, error) {
	var c domain.Contact
	err := db.WithContext(ctx).
		Preload("Phones").
		Preload("Emails").
		Where("id = ?", id).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// SaveContact persists the contact row and its child rows in one call.
// Used by the contact hygiene operations after dedup/primary selection.
// Empty ids are minted, and child rows dropped from the slices are removed
// so the row sets mirror the input exactly.
func SaveContact(ctx context.Context, db *gorm.DB, c *domain.Contact) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	phoneIDs := make([]string, 0, len(c.Phones))
	for i := range c.Phones {
		if c.Phones[i].ID == "" {
			c.Phones[i].ID = uuid.NewString()
		}
		c.Phones[i].ContactID = c.ID
		phoneIDs = append(phoneIDs, c.Phones[i].ID)
	}
	emailIDs := make([]string, 0, len(c.Emails))
	for i := range c.Emails {
		if c.Emails[i].ID == "" {
			c.Emails[i].ID = uuid.NewString()
		}
		c.Emails[i].ContactID = c.ID
		emailIDs = append(emailIDs, c.Emails[i].ID)
	}

	if err := db.WithContext(ctx).Session(&gorm.Session{FullSaveAssociations: true}).Save(c).Error; err != nil {
		return err
	}
	if err := pruneChildren(ctx, db, &domain.ContactPhone{}, c.ID, phoneIDs); err != nil {
		return err
	}
	return pruneChildren(ctx, db, &domain.ContactEmail{}, c.ID, emailIDs)
}

// pruneChildren deletes child rows of the contact that are not in keep.
func pruneChildren(ctx context.Context, db *gorm.DB, model any, contactID string, keep []string) error {
	q := db.WithContext(ctx).Where("contact_id = ?", contactID)
	if len(keep) > 0 {
		q = q.Where("id NOT IN ?", keep)
	}
	return q.Delete(model).Error
}
