// Package services – SendService
//
// This file implements SendService, the outbound orchestrator. It validates a
// send request, resolves the reply context (explicit target or the latest
// record of the thread), derives the subject, persists the sent record, and
// dispatches it over the medium's transport.
//
// Send never returns a transport failure as an error: the record is persisted
// first and a failed dispatch is recorded as delivery_status "Error" on an
// otherwise successful result. Only validation problems produce a failed
// SendResult, and even those arrive as a result value rather than a Go error,
// so one handler path serves every outcome.
package services

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/crmsuite/go-messaging-backend/internal/chat"
	"github.com/crmsuite/go-messaging-backend/internal/content"
	"github.com/crmsuite/go-messaging-backend/internal/domain"
	"github.com/crmsuite/go-messaging-backend/internal/mail"
	"github.com/crmsuite/go-messaging-backend/internal/sms"
)

// quotedDateLayout formats the timestamp in generated reply intros.
const quotedDateLayout = "January 2, 2006 at 3:04 PM"

// SendRepo defines the repository contract required by SendService.
type SendRepo interface {
	CreateCommunication(ctx context.Context, db *gorm.DB, c *domain.Communication) error
	CreateAttachment(ctx context.Context, db *gorm.DB, a *domain.Attachment) error
	GetCommunication(ctx context.Context, db *gorm.DB, id string) (*domain.Communication, error)
	LatestInThread(ctx context.Context, db *gorm.DB, medium domain.Medium, identifier string) (*domain.Communication, error)
	UpdateCommunicationStatus(ctx context.Context, db *gorm.DB, id, status string) error
	SetDeliveryStatus(ctx context.Context, db *gorm.DB, id, deliveryStatus string) error
	SetProviderMessageID(ctx context.Context, db *gorm.DB, id, messageID string) error
}

// SendRequest carries one outbound message.
type SendRequest struct {
	RoomID  string
	Content string

	// ReplyTo optionally names the communication record (primary key) being
	// answered. When empty the latest record of the thread, if any, provides
	// the reply context.
	ReplyTo string

	// UserID and UserName identify the agent sending; UserName feeds the
	// email signature and the stored sender full name.
	UserID   string
	UserName string

	Attachments []AttachmentInput
}

// AttachmentInput is attachment metadata accompanying a send request. The
// file itself is uploaded out of band; only the reference is stored.
type AttachmentInput struct {
	FileName string
	FileURL  string
	FileSize int64
	MimeType string
}

// SendResult is the uniform outcome of a send. Success is false only for
// validation failures; a transport failure still yields Success true with
// the persisted record carrying delivery_status "Error".
type SendResult struct {
	Success bool                  `json:"success"`
	Message *domain.Communication `json:"message,omitempty"`
	Error   string                `json:"error,omitempty"`
}

// SendService orchestrates outbound SMS and email.
type SendService struct {
	DB   *gorm.DB
	Repo SendRepo

	SMS  sms.Sender
	Mail mail.Sender

	// FromName and FromEmail are the outbound email identity; MailDomain is
	// the domain minted into generated Message-ID headers.
	FromName   string
	FromEmail  string
	MailDomain string

	// now is a test seam.
	now func() time.Time
}

// NewSendService constructs a SendService.
func NewSendService(db *gorm.DB, r SendRepo, smsSender sms.Sender, mailSender mail.Sender, fromName, fromEmail, mailDomain string) *SendService {
	return &SendService{
		DB:         db,
		Repo:       r,
		SMS:        smsSender,
		Mail:       mailSender,
		FromName:   fromName,
		FromEmail:  fromEmail,
		MailDomain: mailDomain,
		now:        time.Now,
	}
}

// Send validates and dispatches one outbound message to the room's
// counterparty. See SendResult for the outcome contract.
func (s *SendService) Send(ctx context.Context, req SendRequest) SendResult {
	tr := otel.Tracer("services/SendService")
	ctx, span := tr.Start(ctx, "Send",
		trace.WithAttributes(attribute.String("room.id", req.RoomID)),
	)
	defer span.End()

	medium, identifier, err := chat.ParseRoomID(req.RoomID)
	if err != nil || identifier == "" {
		return SendResult{Error: ErrInvalidRoomID.Error()}
	}
	body := strings.TrimSpace(req.Content)
	if body == "" {
		return SendResult{Error: ErrEmptyContent.Error()}
	}
	if medium != domain.MediumSMS && medium != domain.MediumEmail {
		return SendResult{Error: ErrUnsupportedMedium.Error()}
	}

	parent := s.replyContext(ctx, medium, identifier, req.ReplyTo)

	rec := &domain.Communication{
		Medium:         medium,
		SentOrReceived: domain.DirectionSent,
		Subject:        deriveSubject(medium, identifier, parent),
		TextContent:    body,
		Content:        content.PlainTextToHTML(body),
		Status:         domain.StatusLinked,
		Seen:           true,
		User:           req.UserID,
		Sender:         req.UserID,
		SenderFullName: req.UserName,
	}
	if medium.PhoneBased() {
		rec.PhoneNo = identifier
		rec.Recipients = identifier
	} else {
		rec.Sender = s.FromEmail
		rec.Recipients = identifier
		rec.MessageID = mail.NewMessageID(s.MailDomain)
		if parent != nil && parent.MessageID != "" {
			rec.InReplyTo = parent.MessageID
		}
	}

	if err := s.Repo.CreateCommunication(ctx, s.DB, rec); err != nil {
		log.Error().Err(err).Str("room_id", req.RoomID).Msg("send: persist failed")
		return SendResult{Error: "failed to store message"}
	}
	for _, a := range req.Attachments {
		att := &domain.Attachment{
			CommunicationID: rec.ID,
			FileName:        a.FileName,
			FileURL:         a.FileURL,
			FileSize:        a.FileSize,
			MimeType:        a.MimeType,
		}
		if err := s.Repo.CreateAttachment(ctx, s.DB, att); err != nil {
			log.Warn().Err(err).Str("communication_id", rec.ID).Msg("send: attachment persist failed")
		}
	}

	if err := s.dispatch(ctx, medium, identifier, rec, parent, req.UserName); err != nil {
		log.Error().Err(err).Str("communication_id", rec.ID).Msg("send: transport failed")
		if derr := s.Repo.SetDeliveryStatus(ctx, s.DB, rec.ID, domain.DeliveryError); derr == nil {
			rec.DeliveryStatus = domain.DeliveryError
		}
	} else {
		if derr := s.Repo.SetDeliveryStatus(ctx, s.DB, rec.ID, domain.DeliverySent); derr == nil {
			rec.DeliveryStatus = domain.DeliverySent
		}
	}

	// Answering a received message resolves it regardless of delivery outcome.
	if parent != nil && parent.SentOrReceived == domain.DirectionReceived &&
		parent.Status != domain.StatusReplied && parent.Status != domain.StatusClosed {
		if err := s.Repo.UpdateCommunicationStatus(ctx, s.DB, parent.ID, domain.StatusReplied); err != nil {
			log.Warn().Err(err).Str("communication_id", parent.ID).Msg("send: mark replied failed")
		}
	}

	return SendResult{Success: true, Message: rec}
}

// replyContext resolves the record being answered: the explicit target when
// given, otherwise the latest record of the thread. Resolution failures fall
// back to sending without context.
func (s *SendService) replyContext(ctx context.Context, medium domain.Medium, identifier, replyTo string) *domain.Communication {
	if strings.TrimSpace(replyTo) != "" {
		parent, err := s.Repo.GetCommunication(ctx, s.DB, replyTo)
		if err == nil {
			return parent
		}
		log.Warn().Err(err).Str("reply_to", replyTo).Msg("send: explicit reply target not found")
	}
	parent, err := s.Repo.LatestInThread(ctx, s.DB, medium, identifier)
	if err != nil {
		return nil
	}
	return parent
}

// dispatch hands the persisted record to its medium's transport. SMS replaces
// the stored provider id with the returned SID; email reuses the pre-minted
// Message-ID so the stored record and the outbound headers agree.
func (s *SendService) dispatch(ctx context.Context, medium domain.Medium, identifier string, rec, parent *domain.Communication, userName string) error {
	if medium.PhoneBased() {
		if s.SMS == nil {
			return ErrUnsupportedMedium
		}
		sid, err := s.SMS.Send(ctx, identifier, rec.TextContent)
		if err != nil {
			return err
		}
		rec.MessageID = sid
		return s.Repo.SetProviderMessageID(ctx, s.DB, rec.ID, sid)
	}

	if s.Mail == nil {
		return ErrUnsupportedMedium
	}
	textBody := rec.TextContent
	if userName != "" {
		textBody += "\n\n--\n" + userName
	}
	if parent != nil {
		quoted := content.DisplayText(parent.TextContent, parent.Content)
		textBody = content.BuildQuotedReply(textBody, quoted, senderName(parent), parent.CommunicationDate.Format(quotedDateLayout))
	}
	return s.Mail.Send(ctx, mail.Outgoing{
		FromName:  s.FromName,
		From:      s.FromEmail,
		To:        []string{identifier},
		Subject:   rec.Subject,
		TextBody:  textBody,
		HTMLBody:  content.PlainTextToHTML(textBody),
		MessageID: rec.MessageID,
		InReplyTo: rec.InReplyTo,
	})
}

// deriveSubject picks the subject for a sent record: a single idempotent
// "Re: " prefix over the parent's subject when replying, a generic line
// otherwise. SMS records reuse the same convention for the flat log view.
func deriveSubject(medium domain.Medium, identifier string, parent *domain.Communication) string {
	if parent != nil && strings.TrimSpace(parent.Subject) != "" {
		subject := strings.TrimSpace(parent.Subject)
		if strings.HasPrefix(strings.ToLower(subject), "re:") {
			return subject
		}
		return "Re: " + subject
	}
	return "Message to " + identifier
}
