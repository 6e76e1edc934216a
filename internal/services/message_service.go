// Package services – MessageService
//
// This file implements MessageService, the component that assembles the
// display-ready message view of one conversation: tail-based pagination over
// the thread, attachment metadata joined per record, and reply previews
// resolved through provider message-id correlation.
//
// Observability: public methods are OpenTelemetry-instrumented; spans include
// room identifiers and pagination parameters.
package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/crmsuite/go-messaging-backend/internal/chat"
	"github.com/crmsuite/go-messaging-backend/internal/content"
	"github.com/crmsuite/go-messaging-backend/internal/domain"
)

// replyPreviewLen caps the embedded reply-context excerpt.
const replyPreviewLen = 200

// MessageRepo defines the repository contract required by MessageService.
type MessageRepo interface {
	// ListThread returns a conversation oldest-first.
	ListThread(ctx context.Context, db *gorm.DB, medium domain.Medium, identifier string) ([]domain.Communication, error)

	// ListAttachments joins attachment rows onto a set of communications.
	ListAttachments(ctx context.Context, db *gorm.DB, communicationIDs []string) (map[string][]domain.Attachment, error)

	// GetByMessageID resolves a provider message id to its record.
	GetByMessageID(ctx context.Context, db *gorm.DB, messageID string) (*domain.Communication, error)
}

// MessageService assembles message pages from the tail of a conversation.
type MessageService struct {
	DB   *gorm.DB
	Repo MessageRepo
}

// NewMessageService constructs a MessageService.
func NewMessageService(db *gorm.DB, r MessageRepo) *MessageService {
	return &MessageService{DB: db, Repo: r}
}

// ListMessages returns one tail page of a room's messages, oldest-first
// within the page. Page 1 is the most recent limit messages; higher pages
// reach further back in time. A malformed room id soft-fails to an empty
// page rather than an error.
func (s *MessageService) ListMessages(ctx context.Context, roomID string, page, limit int) ([]chat.Message, int, bool, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "ListMessages",
		trace.WithAttributes(
			attribute.String("room.id", roomID),
			attribute.Int("page", page),
			attribute.Int("limit", limit),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	medium, identifier, err := chat.ParseRoomID(roomID)
	if err != nil {
		return []chat.Message{}, 0, false, nil
	}

	thread, err := s.Repo.ListThread(ctx, s.DB, medium, identifier)
	if err != nil {
		return nil, 0, false, err
	}

	start, end, hasMore := chat.TailWindow(len(thread), page, limit)
	window := thread[start:end]

	ids := make([]string, 0, len(window))
	for i := range window {
		if window[i].HasAttachment {
			ids = append(ids, window[i].ID)
		}
	}
	files, err := s.Repo.ListAttachments(ctx, s.DB, ids)
	if err != nil {
		return nil, 0, false, err
	}

	out := make([]chat.Message, 0, len(window))
	for i := range window {
		c := &window[i]
		m := chat.Message{
			ID:             c.ID,
			RoomID:         roomID,
			SenderID:       chat.SenderID(c),
			SenderName:     senderName(c),
			Content:        messageBody(c),
			Direction:      c.SentOrReceived,
			Date:           c.CommunicationDate,
			Seen:           c.Seen,
			Status:         c.Status,
			DeliveryStatus: c.DeliveryStatus,
		}
		for _, a := range files[c.ID] {
			m.Files = append(m.Files, chat.MessageFile{
				Name:     a.FileName,
				URL:      a.FileURL,
				Size:     a.FileSize,
				MimeType: a.MimeType,
			})
		}
		m.ReplyPreview = s.replyPreview(ctx, c.InReplyTo)
		out = append(out, m)
	}
	return out, len(thread), hasMore, nil
}

// replyPreview resolves an in_reply_to message id to a truncated excerpt of
// the quoted record. In-reply-to values correlate provider message ids, never
// primary keys. Missing or dangling references yield no preview; the message
// still renders without its quote context.
func (s *MessageService) replyPreview(ctx context.Context, inReplyTo string) *chat.ReplyPreview {
	if strings.TrimSpace(inReplyTo) == "" {
		return nil
	}
	parent, err := s.Repo.GetByMessageID(ctx, s.DB, inReplyTo)
	if err != nil {
		return nil
	}
	excerpt := content.StripQuotedReplies(content.DisplayText(parent.TextContent, parent.Content))
	return &chat.ReplyPreview{
		ID:         parent.ID,
		Content:    content.Truncate(excerpt, replyPreviewLen),
		SenderName: senderName(parent),
	}
}

// messageBody renders one record for display. Received email bodies have
// their quoted reply tails stripped; an email subject is kept as a bolded
// header line so it survives the flat message view.
func messageBody(c *domain.Communication) string {
	text := content.DisplayText(c.TextContent, c.Content)
	if c.Medium == domain.MediumEmail && c.SentOrReceived == domain.DirectionReceived {
		text = content.StripQuotedReplies(text)
	}
	if c.Medium == domain.MediumEmail {
		if subject := strings.TrimSpace(c.Subject); subject != "" {
			text = "**" + subject + "**\n\n" + text
		}
	}
	return text
}

// senderName picks a display name without a directory lookup: stored full
// name first, identity string second.
func senderName(c *domain.Communication) string {
	if c.SenderFullName != "" {
		return c.SenderFullName
	}
	return chat.SenderID(c)
}
