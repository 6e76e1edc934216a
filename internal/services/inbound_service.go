// Package services – InboundService
//
// This file implements InboundService, which turns a provider webhook
// delivery into a received communication record. Signature verification
// happens in the webhook handler before anything reaches this service;
// by the time Receive runs the payload is trusted.
package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/crmsuite/go-messaging-backend/internal/chat"
	"github.com/crmsuite/go-messaging-backend/internal/content"
	"github.com/crmsuite/go-messaging-backend/internal/domain"
	"github.com/crmsuite/go-messaging-backend/internal/push"
)

// InboundSMS is one provider-delivered text message.
type InboundSMS struct {
	From      string // sender number, E.164
	To        string // receiving number
	Body      string
	MessageID string // provider message SID
}

// Notifier is the push fan-out hook; PushService satisfies it.
type Notifier interface {
	Notify(ctx context.Context, n push.Notification)
}

// OptOut is the STOP processing hook; OptOutService satisfies it.
type OptOut interface {
	ProcessStop(ctx context.Context, phone string) (int64, error)
}

// InboundRepo defines the repository contract required by InboundService.
type InboundRepo interface {
	CreateCommunication(ctx context.Context, db *gorm.DB, c *domain.Communication) error
	FindContactByPhone(ctx context.Context, db *gorm.DB, phone string) (*domain.Contact, error)
}

// InboundService records provider-delivered messages.
type InboundService struct {
	DB   *gorm.DB
	Repo InboundRepo

	// Notifier and OptOut are optional collaborators; nil disables the
	// corresponding side effect.
	Notifier Notifier
	OptOut   OptOut
}

// NewInboundService constructs an InboundService.
func NewInboundService(db *gorm.DB, r InboundRepo, n Notifier, o OptOut) *InboundService {
	return &InboundService{DB: db, Repo: r, Notifier: n, OptOut: o}
}

// ReceiveSMS persists one inbound text as an unseen received communication,
// processes a STOP keyword, and fans out a push notification. The record is
// written even for STOP messages so the opt-out request stays visible in the
// conversation.
func (s *InboundService) ReceiveSMS(ctx context.Context, in InboundSMS) (*domain.Communication, error) {
	tr := otel.Tracer("services/InboundService")
	ctx, span := tr.Start(ctx, "ReceiveSMS",
		trace.WithAttributes(attribute.String("sms.from", in.From)),
	)
	defer span.End()

	from := strings.TrimSpace(in.From)
	if from == "" {
		return nil, ErrInvalidRoomID
	}

	// A contact row with no stored name still labels the sender by number.
	senderName := from
	if contact, err := s.Repo.FindContactByPhone(ctx, s.DB, from); err == nil {
		if name := strings.TrimSpace(contact.FullName); name != "" {
			senderName = name
		}
	}

	rec := &domain.Communication{
		Medium:         domain.MediumSMS,
		SentOrReceived: domain.DirectionReceived,
		Subject:        "SMS from " + from,
		TextContent:    in.Body,
		Content:        in.Body,
		PhoneNo:        from,
		Sender:         from,
		SenderFullName: senderName,
		Recipients:     in.To,
		Status:         domain.StatusOpen,
		Seen:           false,
		MessageID:      in.MessageID,
	}
	if err := s.Repo.CreateCommunication(ctx, s.DB, rec); err != nil {
		return nil, err
	}

	if s.OptOut != nil && IsStopMessage(in.Body) {
		if _, err := s.OptOut.ProcessStop(ctx, from); err != nil {
			log.Warn().Err(err).Str("phone", from).Msg("inbound: STOP processing failed")
		}
	}

	if s.Notifier != nil {
		s.Notifier.Notify(ctx, push.Notification{
			Title: "New message from " + senderName,
			Body:  chatPreview(in.Body),
			Tag:   chat.FormatRoomID(domain.MediumSMS, from),
		})
	}
	return rec, nil
}

// chatPreview trims a notification body to one short line.
func chatPreview(body string) string {
	body = strings.TrimSpace(body)
	if i := strings.IndexByte(body, '\n'); i >= 0 {
		body = body[:i]
	}
	return content.TruncateEllipsis(body, 120)
}
