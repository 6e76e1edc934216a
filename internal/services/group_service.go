// Package services – GroupMessageService
//
// This file implements the scheduled bulk SMS sweep. A minute-resolution
// scheduler calls SendDue; each due message resolves its recipient set from
// the included groups minus the excluded groups minus unsubscribed contacts,
// sends one SMS per number, records each as a sent communication, and marks
// the bulk message Sent.
//
// The Scheduled status is the only double-send guard. Between the status
// re-read and the Sent update there is a window in which two overlapping
// sweeps could both pick up the same message; with a single scheduler
// goroutine the window never opens, so it is accepted rather than locked
// away.
package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/crmsuite/go-messaging-backend/internal/domain"
	"github.com/crmsuite/go-messaging-backend/internal/sms"
)

// GroupRepo defines the repository contract required by GroupMessageService.
type GroupRepo interface {
	ListDueGroupMessages(ctx context.Context, db *gorm.DB, now time.Time) ([]domain.GroupTextMessage, error)
	GetGroupMessageStatus(ctx context.Context, db *gorm.DB, id string) (string, error)
	UpdateGroupMessageStatus(ctx context.Context, db *gorm.DB, id, status string) error
	GroupRecipientPhones(ctx context.Context, db *gorm.DB, includeGroupIDs, excludeGroupIDs []string) ([]string, error)
	CreateCommunication(ctx context.Context, db *gorm.DB, c *domain.Communication) error
}

// GroupMessageService dispatches due scheduled bulk SMS.
type GroupMessageService struct {
	DB   *gorm.DB
	Repo GroupRepo
	SMS  sms.Sender

	// now is a test seam.
	now func() time.Time
}

// NewGroupMessageService constructs a GroupMessageService.
func NewGroupMessageService(db *gorm.DB, r GroupRepo, smsSender sms.Sender) *GroupMessageService {
	return &GroupMessageService{DB: db, Repo: r, SMS: smsSender, now: time.Now}
}

// SendDue processes every scheduled message whose delivery time has passed
// and returns how many bulk messages were dispatched. Per-message failures
// are logged and do not stop the sweep.
func (s *GroupMessageService) SendDue(ctx context.Context) (int, error) {
	tr := otel.Tracer("services/GroupMessageService")
	ctx, span := tr.Start(ctx, "SendDue")
	defer span.End()

	due, err := s.Repo.ListDueGroupMessages(ctx, s.DB, s.now())
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range due {
		if s.sendOne(ctx, &due[i]) {
			sent++
		}
	}
	span.SetAttributes(attribute.Int("dispatched", sent))
	return sent, nil
}

// sendOne dispatches a single bulk message and reports whether it went out.
func (s *GroupMessageService) sendOne(ctx context.Context, gm *domain.GroupTextMessage) bool {
	tr := otel.Tracer("services/GroupMessageService")
	ctx, span := tr.Start(ctx, "sendOne",
		trace.WithAttributes(attribute.String("group_message.id", gm.ID)),
	)
	defer span.End()

	// Re-read the status right before sending to shrink the duplicate
	// window left by an earlier sweep still in flight.
	status, err := s.Repo.GetGroupMessageStatus(ctx, s.DB, gm.ID)
	if err != nil {
		log.Error().Err(err).Str("id", gm.ID).Msg("group: status re-read failed")
		return false
	}
	if status != domain.StatusScheduled {
		return false
	}

	var include, exclude []string
	for _, t := range gm.Targets {
		if t.Excluded {
			exclude = append(exclude, t.GroupID)
		} else {
			include = append(include, t.GroupID)
		}
	}
	phones, err := s.Repo.GroupRecipientPhones(ctx, s.DB, include, exclude)
	if err != nil {
		log.Error().Err(err).Str("id", gm.ID).Msg("group: recipient resolution failed")
		return false
	}

	delivered := 0
	for _, phone := range phones {
		rec := &domain.Communication{
			Medium:         domain.MediumSMS,
			SentOrReceived: domain.DirectionSent,
			Subject:        "Message to " + phone,
			TextContent:    gm.Message,
			Content:        gm.Message,
			PhoneNo:        phone,
			Recipients:     phone,
			Status:         domain.StatusLinked,
			Seen:           true,
			User:           gm.CreatedBy,
			Sender:         gm.CreatedBy,
			ReferenceDoctype: domain.GroupTextMessage{}.TableName(),
			ReferenceName:    gm.ID,
		}
		sid, err := s.SMS.Send(ctx, phone, gm.Message)
		if err != nil {
			log.Warn().Err(err).Str("id", gm.ID).Str("phone", phone).Msg("group: send failed")
			rec.DeliveryStatus = domain.DeliveryError
		} else {
			rec.MessageID = sid
			rec.DeliveryStatus = domain.DeliverySent
			delivered++
		}
		if err := s.Repo.CreateCommunication(ctx, s.DB, rec); err != nil {
			log.Warn().Err(err).Str("id", gm.ID).Str("phone", phone).Msg("group: record failed")
		}
	}

	if err := s.Repo.UpdateGroupMessageStatus(ctx, s.DB, gm.ID, domain.StatusSent); err != nil {
		log.Error().Err(err).Str("id", gm.ID).Msg("group: status update failed")
		return false
	}
	log.Info().Str("id", gm.ID).Int("recipients", len(phones)).Int("delivered", delivered).Msg("group: dispatched")
	return true
}
