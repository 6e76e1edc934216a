// Room HTTP handlers.
//
// This file exposes REST endpoints for conversation rooms:
//   - GET    /rooms                  (list, paginated, ETag support)
//   - GET    /rooms/search           (substring search)
//   - GET    /rooms/unread-count     (global unread badge)
//   - GET    /rooms/{id}/messages    (tail-paginated thread view)
//   - POST   /rooms/{id}/messages    (send)
//   - POST   /rooms/{id}/seen        (mark read)
//   - POST   /rooms/{id}/archive     (close thread)
//   - DELETE /rooms/{id}             (remove thread)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses (including conditional responses).
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	chatpkg "github.com/crmsuite/go-messaging-backend/internal/chat"
	"github.com/crmsuite/go-messaging-backend/internal/domain"
	"github.com/crmsuite/go-messaging-backend/internal/http/middleware"
	"github.com/crmsuite/go-messaging-backend/internal/repo"
	"github.com/crmsuite/go-messaging-backend/internal/services"
	"github.com/crmsuite/go-messaging-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// RoomService defines room listing and state operations consumed by HTTP
// handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type RoomService interface {
	// ListRooms returns one page of grouped rooms plus total and a has-more flag.
	ListRooms(ctx context.Context, medium domain.Medium, search string, page, limit int) ([]chatpkg.Room, int, bool, error)
	// SearchRooms returns up to limit rooms matching the query.
	SearchRooms(ctx context.Context, query string, limit int) ([]chatpkg.Room, error)
	// UnreadCount returns the number of unseen received messages across rooms.
	UnreadCount(ctx context.Context) (int64, error)
	// MarkRoomSeen flags a room's unseen received messages as seen.
	MarkRoomSeen(ctx context.Context, roomID string) (int64, error)
	// ArchiveRoom closes every open record in the room.
	ArchiveRoom(ctx context.Context, roomID string) (int64, error)
	// DeleteRoom removes every record in the room.
	DeleteRoom(ctx context.Context, roomID string) (int64, error)
}

// MessageService defines thread retrieval operations.
type MessageService interface {
	// ListMessages returns one tail page of a room's messages.
	ListMessages(ctx context.Context, roomID string, page, limit int) ([]chatpkg.Message, int, bool, error)
}

// SendService defines the outbound dispatch operation.
type SendService interface {
	// Send validates and dispatches one outbound message; it reports failure
	// through the result value, never through a panic or transport error.
	Send(ctx context.Context, req services.SendRequest) services.SendResult
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for rooms, messages, and sending.
// It depends on abstract service interfaces to keep transport concerns
// separate from business logic.
type Handlers struct {
	roomSvc RoomService
	msgSvc  MessageService
	sendSvc SendService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(roomSvc RoomService, msgSvc MessageService, sendSvc SendService) *Handlers {
	return &Handlers{roomSvc: roomSvc, msgSvc: msgSvc, sendSvc: sendSvc}
}

// userID extracts the authenticated user id from Gin context (set by upstream
// middleware). If absent, it falls back to "X-User-ID" header (tests use it),
// and finally to "demo-user". It never touches c.Request if it's nil.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return "demo-user"
}

// roomIDParam returns the :id path segment, URL-decoded (room ids carry ':'
// and '+' characters).
func roomIDParam(c *gin.Context) string {
	raw := c.Param("id")
	if dec, err := url.PathUnescape(raw); err == nil {
		return dec
	}
	return raw
}

//
// DTOs
//

// SendMessageRequest is the JSON payload for sending a message into a room.
type SendMessageRequest struct {
	// Content is the message body (plain text).
	Content string `json:"content" binding:"required" example:"On my way"`
	// ReplyTo optionally names the communication record being answered.
	ReplyTo string `json:"reply_to,omitempty" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
	// UserName labels the sender in signatures and stored records.
	UserName string `json:"user_name,omitempty" example:"Bob Jones"`
	// Attachments carries already-uploaded file references.
	Attachments []SendAttachment `json:"attachments,omitempty"`
}

// SendAttachment references one uploaded file accompanying a message.
type SendAttachment struct {
	FileName string `json:"file_name" example:"doc.pdf"`
	FileURL  string `json:"file_url"  example:"/files/doc.pdf"`
	FileSize int64  `json:"file_size" example:"2048"`
	MimeType string `json:"mime_type" example:"application/pdf"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	Total    int  `json:"total"`
	HasMore  bool `json:"has_more"`
}

// ListRoomsResponse wraps a page of rooms and pagination information.
type ListRoomsResponse struct {
	Rooms      []chatpkg.Room `json:"rooms"`
	Pagination Pagination     `json:"pagination"`
}

// ListMessagesResponse wraps a tail page of messages.
type ListMessagesResponse struct {
	Messages   []chatpkg.Message `json:"messages"`
	Pagination Pagination        `json:"pagination"`
}

// MutationResponse reports how many records a room state change touched.
type MutationResponse struct {
	Affected int64 `json:"affected"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// serviceDB digs the GORM handle out of a concrete service for ETag stats
// and idempotency records; interfaces without one simply skip those paths.
func serviceDB(svc any) *gorm.DB {
	switch s := svc.(type) {
	case *services.RoomService:
		return s.DB
	case *services.SendService:
		return s.DB
	}
	return nil
}

// idempotencyKey returns the key stashed by the idempotency middleware,
// falling back to the raw header when the route runs without it.
func idempotencyKey(c *gin.Context) string {
	if k, ok := middleware.GetIdempotencyKey(c); ok {
		return k
	}
	return strings.TrimSpace(c.GetHeader(middleware.HeaderIdempotencyKey))
}

//
// Handlers
//

// ListRooms godoc
// @ID          listRooms
// @Summary     List conversation rooms (paginated)
// @Description Returns a page of rooms grouped from the communication log, unreplied first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Rooms
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
// @Param       medium         query   string  false "Filter by medium"            Enums(Email, SMS, Phone, Chat)
// @Param       search         query   string  false "Substring filter"
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListRoomsResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /rooms [get]
func (h *Handlers) ListRooms(c *gin.Context) {
	ctx := c.Request.Context()
	page, pageSize := clampPagination(c)
	medium := domain.ParseMedium(c.Query("medium"))
	search := strings.TrimSpace(c.Query("search"))

	// ETag pre-check (best effort). Only unfiltered listings are cacheable.
	if db := serviceDB(h.roomSvc); db != nil && medium == "" && search == "" {
		count, maxTS, err := repo.CommunicationsStats(ctx, db)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"rooms:%d:%d"`, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	rooms, total, hasMore, err := h.roomSvc.ListRooms(ctx, medium, search, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListRoomsResponse{
		Rooms: rooms,
		Pagination: Pagination{
			Page:     page,
			PageSize: pageSize,
			Total:    total,
			HasMore:  hasMore,
		},
	})
}

// SearchRooms godoc
// @ID          searchRooms
// @Summary     Search rooms
// @Description Returns rooms whose subject, content, sender, or identifier matches the query.
// @Tags        Rooms
// @Produce     json
//
// @Param       q     query  string  true  "Search query"
// @Param       limit query  int     false "Maximum results" minimum(1) maximum(100) default(20)
//
// @Success     200  {array}  chat.Room
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /rooms/search [get]
func (h *Handlers) SearchRooms(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "query parameter q is required")
		return
	}
	limit := utils.AtoiDefault(c.Query("limit"), 20)
	if limit < 1 {
		limit = 1
	}
	if limit > 100 {
		limit = 100
	}

	rooms, err := h.roomSvc.SearchRooms(c.Request.Context(), query, limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, rooms)
}

// UnreadCount godoc
// @ID          unreadCount
// @Summary     Global unread counter
// @Description Returns the number of unseen received messages across all rooms.
// @Tags        Rooms
// @Produce     json
//
// @Success     200  {object} map[string]int64
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /rooms/unread-count [get]
func (h *Handlers) UnreadCount(c *gin.Context) {
	n, err := h.roomSvc.UnreadCount(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, gin.H{"unread_count": n})
}

// ListMessages godoc
// @ID          listMessages
// @Summary     List a room's messages (tail paginated)
// @Description Returns one page from the tail of the thread; page 1 is the most recent messages. Supports weak ETag via If-None-Match.
// @Tags        Messages
// @Produce     json
//
// @Param       id             path    string  true  "Room ID"  example(SMS:+15550000001)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       page           query   int     false "Page number (1 = newest)"  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"            minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListMessagesResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /rooms/{id}/messages [get]
func (h *Handlers) ListMessages(c *gin.Context) {
	ctx := c.Request.Context()
	roomID := roomIDParam(c)
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	if db := serviceDB(h.roomSvc); db != nil {
		if medium, identifier, err := chatpkg.ParseRoomID(roomID); err == nil {
			count, maxTS, err := repo.ThreadStats(ctx, db, medium, identifier)
			if err == nil {
				var ts int64
				if maxTS != nil {
					ts = maxTS.Unix()
				}
				etag := fmt.Sprintf(`W/"thread:%s:%d:%d"`, roomID, count, ts)
				c.Header("ETag", etag)
				if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
					c.Status(http.StatusNotModified)
					return
				}
			}
		}
	}

	msgs, total, hasMore, err := h.msgSvc.ListMessages(ctx, roomID, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListMessagesResponse{
		Messages: msgs,
		Pagination: Pagination{
			Page:     page,
			PageSize: pageSize,
			Total:    total,
			HasMore:  hasMore,
		},
	})
}

// SendMessage godoc
// @ID          sendMessage
// @Summary     Send a message into a room
// @Description Dispatches an SMS or email to the room's counterparty. Transport failures still return 200 with delivery_status "Error" on the stored record.
// @Tags        Messages
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "User ID (demo header)"  example(agent@example.com)
// @Param       Idempotency-Key  header  string  false "Client retry deduplication key"
// @Param       id               path    string  true  "Room ID"  example(SMS:+15550000001)
// @Param       body             body    handlers.SendMessageRequest  true  "Message payload"
//
// @Success     200  {object} services.SendResult
// @Header      200  {string} Idempotency-Replayed "Set to true when a stored result is served"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /rooms/{id}/messages [post]
func (h *Handlers) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	ctx := c.Request.Context()
	roomID := roomIDParam(c)
	uid := userID(c)
	idemKey := idempotencyKey(c)

	// Replay: a key that already completed serves the stored record instead
	// of dispatching again.
	if idemKey != "" {
		if db := serviceDB(h.sendSvc); db != nil {
			if prior, err := repo.GetIdempotency(ctx, db, uid, roomID, idemKey, time.Now().UTC()); err == nil {
				if prev, err := repo.GetCommunication(ctx, db, prior.CommunicationID); err == nil {
					c.Header("Idempotency-Replayed", "true")
					ok(c, http.StatusOK, services.SendResult{Success: true, Message: prev})
					return
				}
			}
		}
	}

	svcReq := services.SendRequest{
		RoomID:   roomID,
		Content:  req.Content,
		ReplyTo:  req.ReplyTo,
		UserID:   uid,
		UserName: req.UserName,
	}
	for _, a := range req.Attachments {
		svcReq.Attachments = append(svcReq.Attachments, services.AttachmentInput{
			FileName: a.FileName,
			FileURL:  a.FileURL,
			FileSize: a.FileSize,
			MimeType: a.MimeType,
		})
	}

	res := h.sendSvc.Send(ctx, svcReq)
	if !res.Success {
		// Validation failures are the caller's problem; everything else
		// already surfaced as delivery_status on a successful result.
		fail(c, http.StatusBadRequest, ErrCodeSendFailed, res.Error)
		return
	}

	// Best effort: a lost row only means one duplicate send on retry.
	if idemKey != "" && res.Message != nil {
		if db := serviceDB(h.sendSvc); db != nil {
			ttl := 24 * time.Hour
			_, _ = repo.CreateIdempotency(ctx, db, uid, roomID, idemKey, res.Message.ID, http.StatusOK, ttl)
		}
	}
	ok(c, http.StatusOK, res)
}

// MarkSeen godoc
// @ID          markRoomSeen
// @Summary     Mark a room as read
// @Tags        Rooms
// @Produce     json
//
// @Param       id  path  string  true  "Room ID"  example(SMS:+15550000001)
//
// @Success     200  {object} handlers.MutationResponse
// @Failure     400  {object} handlers.ErrorResponse "Invalid room id"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /rooms/{id}/seen [post]
func (h *Handlers) MarkSeen(c *gin.Context) {
	h.mutateRoom(c, h.roomSvc.MarkRoomSeen)
}

// ArchiveRoom godoc
// @ID          archiveRoom
// @Summary     Archive a room
// @Description Closes every open record in the thread.
// @Tags        Rooms
// @Produce     json
//
// @Param       id  path  string  true  "Room ID"  example(Email:alice@example.org)
//
// @Success     200  {object} handlers.MutationResponse
// @Failure     400  {object} handlers.ErrorResponse "Invalid room id"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /rooms/{id}/archive [post]
func (h *Handlers) ArchiveRoom(c *gin.Context) {
	h.mutateRoom(c, h.roomSvc.ArchiveRoom)
}

// DeleteRoom godoc
// @ID          deleteRoom
// @Summary     Delete a room
// @Description Removes every record in the thread. A partial failure still reports the number of removed records.
// @Tags        Rooms
// @Produce     json
//
// @Param       id  path  string  true  "Room ID"  example(SMS:+15550000001)
//
// @Success     200  {object} handlers.MutationResponse
// @Failure     400  {object} handlers.ErrorResponse "Invalid room id"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /rooms/{id} [delete]
func (h *Handlers) DeleteRoom(c *gin.Context) {
	h.mutateRoom(c, h.roomSvc.DeleteRoom)
}

// mutateRoom runs one room state transition and maps its outcome: invalid ids
// to 400, repo failures to 500, success to the affected-row count.
func (h *Handlers) mutateRoom(c *gin.Context, op func(context.Context, string) (int64, error)) {
	n, err := op(c.Request.Context(), roomIDParam(c))
	if err != nil {
		if errors.Is(err, services.ErrInvalidRoomID) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid room id")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, MutationResponse{Affected: n})
}
