// Package services – OptOutService
//
// This file implements the STOP keyword handling for inbound SMS: every
// contact holding the sending number is flagged unsubscribed and a single
// confirmation SMS is sent back and recorded in the communication log.
package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/crmsuite/go-messaging-backend/internal/domain"
	"github.com/crmsuite/go-messaging-backend/internal/sms"
)

// optOutConfirmation is the confirmation reply sent once per STOP message.
const optOutConfirmation = "You have been removed from our broadcast list."

// OptOutRepo defines the repository contract required by OptOutService.
type OptOutRepo interface {
	ListContactsByPhone(ctx context.Context, db *gorm.DB, phone string) ([]domain.Contact, error)
	UnsubscribeContacts(ctx context.Context, db *gorm.DB, ids []string) (int64, error)
	CreateCommunication(ctx context.Context, db *gorm.DB, c *domain.Communication) error
}

// OptOutService detects and processes SMS opt-out requests.
type OptOutService struct {
	DB   *gorm.DB
	Repo OptOutRepo
	SMS  sms.Sender
}

// NewOptOutService constructs an OptOutService.
func NewOptOutService(db *gorm.DB, r OptOutRepo, smsSender sms.Sender) *OptOutService {
	return &OptOutService{DB: db, Repo: r, SMS: smsSender}
}

// IsStopMessage reports whether an inbound SMS body is an opt-out request.
// Matching is the trimmed, case-folded word "stop" and nothing else.
func IsStopMessage(body string) bool {
	return strings.EqualFold(strings.TrimSpace(body), "stop")
}

// ProcessStop unsubscribes every contact holding the number and sends one
// confirmation SMS, recorded as a sent communication. Unsubscribing is
// idempotent; a repeated STOP flips nothing but still gets its confirmation.
// The confirmation is best-effort: a transport failure is logged and the
// opt-out stands.
func (s *OptOutService) ProcessStop(ctx context.Context, phone string) (int64, error) {
	contacts, err := s.Repo.ListContactsByPhone(ctx, s.DB, phone)
	if err != nil {
		return 0, err
	}
	ids := make([]string, 0, len(contacts))
	for _, c := range contacts {
		ids = append(ids, c.ID)
	}
	flipped, err := s.Repo.UnsubscribeContacts(ctx, s.DB, ids)
	if err != nil {
		return 0, err
	}
	log.Info().Str("phone", phone).Int64("contacts", flipped).Msg("optout: processed STOP")

	s.confirm(ctx, phone)
	return flipped, nil
}

func (s *OptOutService) confirm(ctx context.Context, phone string) {
	rec := &domain.Communication{
		Medium:         domain.MediumSMS,
		SentOrReceived: domain.DirectionSent,
		Subject:        "Message to " + phone,
		TextContent:    optOutConfirmation,
		Content:        optOutConfirmation,
		PhoneNo:        phone,
		Recipients:     phone,
		Status:         domain.StatusLinked,
		Seen:           true,
	}

	if s.SMS != nil {
		sid, err := s.SMS.Send(ctx, phone, optOutConfirmation)
		if err != nil {
			log.Warn().Err(err).Str("phone", phone).Msg("optout: confirmation send failed")
			rec.DeliveryStatus = domain.DeliveryError
		} else {
			rec.MessageID = sid
			rec.DeliveryStatus = domain.DeliverySent
		}
	}

	if err := s.Repo.CreateCommunication(ctx, s.DB, rec); err != nil {
		log.Warn().Err(err).Str("phone", phone).Msg("optout: confirmation record failed")
	}
}
