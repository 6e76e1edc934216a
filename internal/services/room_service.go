// Package services – RoomService
//
// This file implements the RoomService, the read side of the conversation
// engine: listing rooms (grouped on every call from the flat communication
// log, never persisted), searching them, counting unread messages, and the
// per-room state transitions (seen, archive, delete).
//
// Malformed room ids follow the soft-failure policy: list-shaped operations
// return empty results, mutating operations return ErrInvalidRoomID for the
// handler to translate.
package services

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"gorm.io/gorm"

	"github.com/crmsuite/go-messaging-backend/internal/chat"
	"github.com/crmsuite/go-messaging-backend/internal/content"
	"github.com/crmsuite/go-messaging-backend/internal/domain"
	"github.com/crmsuite/go-messaging-backend/internal/repo"
)

// roomPreviewLen caps the last-message preview attached to each room.
const roomPreviewLen = 140

// RoomRepo defines the repository contract required by RoomService.
type RoomRepo interface {
	// ListCommunications returns grouping-eligible records, date-descending.
	ListCommunications(ctx context.Context, db *gorm.DB, f repo.CommunicationFilter) ([]domain.Communication, error)

	// MarkThreadSeen flips unseen received records of one thread to seen.
	MarkThreadSeen(ctx context.Context, db *gorm.DB, medium domain.Medium, identifier string) (int64, error)

	// ArchiveThread closes every open record of one thread.
	ArchiveThread(ctx context.Context, db *gorm.DB, medium domain.Medium, identifier string) (int64, error)

	// DeleteThread removes one thread record by record.
	DeleteThread(ctx context.Context, db *gorm.DB, medium domain.Medium, identifier string) (int64, error)

	// CountUnread counts unseen received records across all threads.
	CountUnread(ctx context.Context, db *gorm.DB) (int64, error)
}

// ContactDirectory resolves counterparty identities to contact records for
// display enrichment. Both lookups return repo.ErrNotFound on a miss.
type ContactDirectory interface {
	FindContactByPhone(ctx context.Context, db *gorm.DB, phone string) (*domain.Contact, error)
	FindContactByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.Contact, error)
}

// RoomService provides the room-level read operations and state transitions.
type RoomService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the communication repository used by this service.
	Repo RoomRepo
	// Contacts resolves display names and avatars.
	Contacts ContactDirectory
}

// NewRoomService constructs a RoomService.
func NewRoomService(db *gorm.DB, r RoomRepo, c ContactDirectory) *RoomService {
	return &RoomService{DB: db, Repo: r, Contacts: c}
}

// ListRooms groups the communication log into rooms and returns one page.
// The filter narrows by medium and by a case-insensitive substring search
// before grouping. Page defaults to 1 and limit to 20.
func (s *RoomService) ListRooms(ctx context.Context, medium domain.Medium, search string, page, limit int) ([]chat.Room, int, bool, error) {
	ctx, span := otel.Tracer("services").Start(ctx, "RoomService.ListRooms")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	records, err := s.Repo.ListCommunications(ctx, s.DB, repo.CommunicationFilter{Medium: medium, Search: search})
	if err != nil {
		return nil, 0, false, err
	}

	rooms := chat.GroupRooms(records, s.displayResolver(ctx), roomPreview)
	pageRooms, total, hasMore := chat.PageRooms(rooms, page, limit)
	return pageRooms, total, hasMore, nil
}

// SearchRooms returns up to limit rooms matching the query, unpaginated.
func (s *RoomService) SearchRooms(ctx context.Context, query string, limit int) ([]chat.Room, error) {
	ctx, span := otel.Tracer("services").Start(ctx, "RoomService.SearchRooms")
	defer span.End()

	if limit <= 0 {
		limit = 20
	}
	records, err := s.Repo.ListCommunications(ctx, s.DB, repo.CommunicationFilter{Search: query})
	if err != nil {
		return nil, err
	}
	rooms := chat.GroupRooms(records, s.displayResolver(ctx), roomPreview)
	if len(rooms) > limit {
		rooms = rooms[:limit]
	}
	return rooms, nil
}

// UnreadCount returns the number of unseen received communications across
// every room.
func (s *RoomService) UnreadCount(ctx context.Context) (int64, error) {
	return s.Repo.CountUnread(ctx, s.DB)
}

// MarkRoomSeen flags a room's unseen received messages as seen and returns
// how many records changed.
func (s *RoomService) MarkRoomSeen(ctx context.Context, roomID string) (int64, error) {
	medium, identifier, err := chat.ParseRoomID(roomID)
	if err != nil {
		return 0, ErrInvalidRoomID
	}
	return s.Repo.MarkThreadSeen(ctx, s.DB, medium, identifier)
}

// ArchiveRoom closes every open record in the room and returns how many
// records changed.
func (s *RoomService) ArchiveRoom(ctx context.Context, roomID string) (int64, error) {
	medium, identifier, err := chat.ParseRoomID(roomID)
	if err != nil {
		return 0, ErrInvalidRoomID
	}
	return s.Repo.ArchiveThread(ctx, s.DB, medium, identifier)
}

// DeleteRoom removes every record in the room. Per-record failures do not
// stop the sweep; the count of removed records and the first failure are
// both returned so the handler can report a partial delete.
func (s *RoomService) DeleteRoom(ctx context.Context, roomID string) (int64, error) {
	medium, identifier, err := chat.ParseRoomID(roomID)
	if err != nil {
		return 0, ErrInvalidRoomID
	}
	return s.Repo.DeleteThread(ctx, s.DB, medium, identifier)
}

// displayResolver adapts the contact directory into the grouping engine's
// resolver shape, memoizing lookups for the duration of one grouping pass.
func (s *RoomService) displayResolver(ctx context.Context) chat.DisplayResolver {
	if s.Contacts == nil {
		return nil
	}
	type hit struct {
		name, avatar string
		ok           bool
	}
	cache := make(map[string]hit)
	return func(medium domain.Medium, identifier string) (string, string, bool) {
		key := string(medium) + ":" + identifier
		if h, seen := cache[key]; seen {
			return h.name, h.avatar, h.ok
		}
		var (
			c   *domain.Contact
			err error
		)
		if medium.PhoneBased() {
			c, err = s.Contacts.FindContactByPhone(ctx, s.DB, identifier)
		} else {
			c, err = s.Contacts.FindContactByEmail(ctx, s.DB, identifier)
		}
		if err != nil || c == nil {
			// A directory miss is expected; anything else degrades to the
			// record-level fallback rather than failing the listing.
			if err != nil && !errors.Is(err, repo.ErrNotFound) {
				cache[key] = hit{}
				return "", "", false
			}
			cache[key] = hit{}
			return "", "", false
		}
		h := hit{name: c.FullName, avatar: c.Image, ok: true}
		cache[key] = h
		return h.name, h.avatar, h.ok
	}
}

// roomPreview formats a record into the short last-message preview.
func roomPreview(c *domain.Communication) string {
	text := content.DisplayText(c.TextContent, c.Content)
	if c.SentOrReceived == domain.DirectionReceived && c.Medium == domain.MediumEmail {
		text = content.StripQuotedReplies(text)
	}
	return content.TruncateEllipsis(text, roomPreviewLen)
}
