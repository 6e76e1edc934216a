// Package services – ContactService
//
// This file implements contact hygiene: normalizing and deduplicating phone
// and email rows before a save, selecting primaries, and running the carrier
// lookup on phone rows that have not been validated yet. Validation is
// advisory; a failed lookup marks the row "unknown" and never blocks the
// save.
package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/crmsuite/go-messaging-backend/internal/domain"
	"github.com/crmsuite/go-messaging-backend/internal/phone"
	"github.com/crmsuite/go-messaging-backend/internal/sms"
)

// ContactRepo defines the repository contract required by ContactService.
type ContactRepo interface {
	GetContactWithChildren(ctx context.Context, db *gorm.DB, id string) (*domain.Contact, error)
	SaveContact(ctx context.Context, db *gorm.DB, c *domain.Contact) error
	SavePhoneValidation(ctx context.Context, db *gorm.DB, phoneRowID string, valid bool, carrierType, validatedNumber string) error
}

// ContactService owns contact persistence with hygiene applied.
type ContactService struct {
	DB   *gorm.DB
	Repo ContactRepo

	// Lookup is the optional carrier validator; nil skips validation.
	Lookup sms.Lookup

	// DefaultRegion resolves nationally formatted numbers, e.g. "US".
	DefaultRegion string
}

// NewContactService constructs a ContactService.
func NewContactService(db *gorm.DB, r ContactRepo, lookup sms.Lookup, defaultRegion string) *ContactService {
	return &ContactService{DB: db, Repo: r, Lookup: lookup, DefaultRegion: defaultRegion}
}

// Save normalizes, deduplicates, and persists a contact with its phone and
// email rows, then validates any unvalidated phone rows against the carrier
// database.
func (s *ContactService) Save(ctx context.Context, c *domain.Contact) error {
	s.normalize(c)
	if err := s.Repo.SaveContact(ctx, s.DB, c); err != nil {
		return err
	}
	s.validatePhones(ctx, c)
	return nil
}

// Get returns a contact with its phone and email rows preloaded.
func (s *ContactService) Get(ctx context.Context, id string) (*domain.Contact, error) {
	return s.Repo.GetContactWithChildren(ctx, s.DB, id)
}

// normalize applies the hygiene rules in place. Phone rows are converted to
// E.164 where possible (unconvertible numbers are kept as entered), both row
// sets are deduplicated, and a primary is elected when none is marked. The
// contact's flat mobile_no and email_id mirror the primaries.
func (s *ContactService) normalize(c *domain.Contact) {
	seenPhones := make(map[string]struct{})
	phones := c.Phones[:0]
	for _, p := range c.Phones {
		raw := strings.TrimSpace(p.Phone)
		if raw == "" {
			continue
		}
		if e164, err := phone.ConvertToE164(raw, s.DefaultRegion); err == nil {
			p.Phone = e164
		} else {
			p.Phone = raw
		}
		if _, dup := seenPhones[p.Phone]; dup {
			continue
		}
		seenPhones[p.Phone] = struct{}{}
		phones = append(phones, p)
	}
	c.Phones = phones

	seenEmails := make(map[string]struct{})
	emails := c.Emails[:0]
	for _, e := range c.Emails {
		addr := strings.ToLower(strings.TrimSpace(e.EmailID))
		if addr == "" {
			continue
		}
		if _, dup := seenEmails[addr]; dup {
			continue
		}
		seenEmails[addr] = struct{}{}
		e.EmailID = addr
		emails = append(emails, e)
	}
	c.Emails = emails

	electPrimaries(c)

	for i := range c.Phones {
		if c.Phones[i].IsPrimaryMobileNo {
			c.MobileNo = c.Phones[i].Phone
			break
		}
	}
	for i := range c.Emails {
		if c.Emails[i].IsPrimary {
			c.EmailID = c.Emails[i].EmailID
			break
		}
	}
}

// electPrimaries keeps a single primary per row set, defaulting to the first
// row when none is marked and clearing extras when several are.
func electPrimaries(c *domain.Contact) {
	foundMobile := false
	for i := range c.Phones {
		if c.Phones[i].IsPrimaryMobileNo {
			if foundMobile {
				c.Phones[i].IsPrimaryMobileNo = false
				continue
			}
			foundMobile = true
		}
	}
	if !foundMobile && len(c.Phones) > 0 {
		c.Phones[0].IsPrimaryMobileNo = true
	}

	foundEmail := false
	for i := range c.Emails {
		if c.Emails[i].IsPrimary {
			if foundEmail {
				c.Emails[i].IsPrimary = false
				continue
			}
			foundEmail = true
		}
	}
	if !foundEmail && len(c.Emails) > 0 {
		c.Emails[0].IsPrimary = true
	}
}

// validatePhones runs the carrier lookup on rows that have no carrier type
// recorded yet. Lookup failures degrade to "unknown".
func (s *ContactService) validatePhones(ctx context.Context, c *domain.Contact) {
	if s.Lookup == nil {
		return
	}
	for i := range c.Phones {
		p := &c.Phones[i]
		if p.CarrierType != "" {
			continue
		}
		res, err := s.Lookup.Validate(ctx, p.Phone)
		if err != nil {
			log.Warn().Err(err).Str("phone", p.Phone).Msg("contact: carrier lookup failed")
			res = sms.LookupResult{CarrierType: "unknown"}
		}
		if err := s.Repo.SavePhoneValidation(ctx, s.DB, p.ID, res.Valid, res.CarrierType, res.E164); err != nil {
			log.Warn().Err(err).Str("phone", p.Phone).Msg("contact: saving validation failed")
			continue
		}
		p.IsValidNumber = res.Valid
		p.CarrierType = res.CarrierType
		p.ValidatedNumber = res.E164
	}
}
