package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	chatpkg "github.com/crmsuite/go-messaging-backend/internal/chat"
	"github.com/crmsuite/go-messaging-backend/internal/domain"
	"github.com/crmsuite/go-messaging-backend/internal/repo"
	"github.com/crmsuite/go-messaging-backend/internal/services"
)

// ---------- test DB + repo shim ----------

func newHandlerDB(t *testing.T) *gorm.DB {
	t.Helper()

	// Unique DSN per call to avoid cross-test contamination
	dsn := fmt.Sprintf("file:room_handlers_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	db.Exec("PRAGMA foreign_keys=ON;")
	if err := db.AutoMigrate(&domain.Communication{}, &domain.Attachment{}, &domain.Contact{}, &domain.ContactPhone{}, &domain.ContactEmail{}, &domain.Idempotency{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// Minimal shim implementing services.RoomRepo using repo package (like router.go)
type testRoomRepo struct{}

func (testRoomRepo) ListCommunications(ctx context.Context, db *gorm.DB, f repo.CommunicationFilter) ([]domain.Communication, error) {
	return repo.ListCommunications(ctx, db, f)
}

func (testRoomRepo) MarkThreadSeen(ctx context.Context, db *gorm.DB, medium domain.Medium, identifier string) (int64, error) {
	return repo.MarkThreadSeen(ctx, db, medium, identifier)
}

func (testRoomRepo) ArchiveThread(ctx context.Context, db *gorm.DB, medium domain.Medium, identifier string) (int64, error) {
	return repo.ArchiveThread(ctx, db, medium, identifier)
}

func (testRoomRepo) DeleteThread(ctx context.Context, db *gorm.DB, medium domain.Medium, identifier string) (int64, error) {
	return repo.DeleteThread(ctx, db, medium, identifier)
}

func (testRoomRepo) CountUnread(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountUnread(ctx, db)
}

// Shim implementing services.SendRepo over the repo package, mirroring the
// router wiring.
type testSendRepo struct{}

func (testSendRepo) CreateCommunication(ctx context.Context, db *gorm.DB, c *domain.Communication) error {
	return repo.CreateCommunication(ctx, db, c)
}

func (testSendRepo) CreateAttachment(ctx context.Context, db *gorm.DB, a *domain.Attachment) error {
	return repo.CreateAttachment(ctx, db, a)
}

func (testSendRepo) GetCommunication(ctx context.Context, db *gorm.DB, id string) (*domain.Communication, error) {
	return repo.GetCommunication(ctx, db, id)
}

func (testSendRepo) LatestInThread(ctx context.Context, db *gorm.DB, medium domain.Medium, identifier string) (*domain.Communication, error) {
	return repo.LatestInThread(ctx, db, medium, identifier)
}

func (testSendRepo) UpdateCommunicationStatus(ctx context.Context, db *gorm.DB, id, status string) error {
	return repo.UpdateCommunicationStatus(ctx, db, id, status)
}

func (testSendRepo) SetDeliveryStatus(ctx context.Context, db *gorm.DB, id, deliveryStatus string) error {
	return repo.SetDeliveryStatus(ctx, db, id, deliveryStatus)
}

func (testSendRepo) SetProviderMessageID(ctx context.Context, db *gorm.DB, id, messageID string) error {
	return repo.SetProviderMessageID(ctx, db, id, messageID)
}

type countingSMSSender struct{ sent int }

func (s *countingSMSSender) Send(ctx context.Context, to, body string) (string, error) {
	s.sent++
	return fmt.Sprintf("SM%d", s.sent), nil
}

type testDirectoryShim struct{}

func (testDirectoryShim) FindContactByPhone(ctx context.Context, db *gorm.DB, phone string) (*domain.Contact, error) {
	return repo.FindContactByPhone(ctx, db, phone)
}

func (testDirectoryShim) FindContactByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.Contact, error) {
	return repo.FindContactByEmail(ctx, db, email)
}

// ---------- flexible service stubs ----------

type stubRoomSvc struct {
	list    func(context.Context, domain.Medium, string, int, int) ([]chatpkg.Room, int, bool, error)
	search  func(context.Context, string, int) ([]chatpkg.Room, error)
	unread  func(context.Context) (int64, error)
	seen    func(context.Context, string) (int64, error)
	archive func(context.Context, string) (int64, error)
	remove  func(context.Context, string) (int64, error)
}

func (s stubRoomSvc) ListRooms(ctx context.Context, m domain.Medium, q string, p, l int) ([]chatpkg.Room, int, bool, error) {
	if s.list != nil {
		return s.list(ctx, m, q, p, l)
	}
	return nil, 0, false, nil
}

func (s stubRoomSvc) SearchRooms(ctx context.Context, q string, l int) ([]chatpkg.Room, error) {
	if s.search != nil {
		return s.search(ctx, q, l)
	}
	return nil, nil
}

func (s stubRoomSvc) UnreadCount(ctx context.Context) (int64, error) {
	if s.unread != nil {
		return s.unread(ctx)
	}
	return 0, nil
}

func (s stubRoomSvc) MarkRoomSeen(ctx context.Context, id string) (int64, error) {
	if s.seen != nil {
		return s.seen(ctx, id)
	}
	return 0, nil
}

func (s stubRoomSvc) ArchiveRoom(ctx context.Context, id string) (int64, error) {
	if s.archive != nil {
		return s.archive(ctx, id)
	}
	return 0, nil
}

func (s stubRoomSvc) DeleteRoom(ctx context.Context, id string) (int64, error) {
	if s.remove != nil {
		return s.remove(ctx, id)
	}
	return 0, nil
}

type stubMsgSvc struct {
	list func(context.Context, string, int, int) ([]chatpkg.Message, int, bool, error)
}

func (s stubMsgSvc) ListMessages(ctx context.Context, roomID string, p, l int) ([]chatpkg.Message, int, bool, error) {
	if s.list != nil {
		return s.list(ctx, roomID, p, l)
	}
	return nil, 0, false, nil
}

type stubSendSvc struct {
	send func(context.Context, services.SendRequest) services.SendResult
}

func (s stubSendSvc) Send(ctx context.Context, req services.SendRequest) services.SendResult {
	if s.send != nil {
		return s.send(ctx, req)
	}
	return services.SendResult{Success: true}
}

// ---------- helpers-only tests ----------

func Test_userID_and_clampPagination(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// userID helper
	rc := gin.CreateTestContextOnly(httptest.NewRecorder(), gin.New())
	if got := userID(rc); got != "demo-user" {
		t.Fatalf("fallback userID = %q", got)
	}
	rc.Set("userID", "u1")
	if got := userID(rc); got != "u1" {
		t.Fatalf("ctx userID = %q", got)
	}
	rc.Set("userID", 123) // wrong type → fallback
	if got := userID(rc); got != "demo-user" {
		t.Fatalf("wrong-type fallback userID = %q", got)
	}

	// header fallback
	cH, _ := gin.CreateTestContext(httptest.NewRecorder())
	reqH := httptest.NewRequest("GET", "/", nil)
	reqH.Header.Set("X-User-ID", "u-123")
	cH.Request = reqH
	if got := userID(cH); got != "u-123" {
		t.Fatalf("header fallback userID = %q", got)
	}

	// clampPagination bounds
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?page=-5&page_size=9999", nil)
	p, ps := clampPagination(c)
	if p != 1 || ps != 100 {
		t.Fatalf("clamp bounds got p=%d ps=%d", p, ps)
	}
	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?page=&page_size=0", nil)
	p, ps = clampPagination(c)
	if p != 1 || ps != 1 {
		t.Fatalf("clamp defaults got p=%d ps=%d", p, ps)
	}
}

func Test_roomIDParam_Decodes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var got string
	r := gin.New()
	r.GET("/rooms/:id", func(c *gin.Context) {
		got = roomIDParam(c)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/rooms/SMS%3A%2B15550000001", nil)
	r.ServeHTTP(w, req)
	if got != "SMS:+15550000001" {
		t.Fatalf("decoded room id = %q", got)
	}
}

// ---------- ListRooms ----------

func TestListRooms_ETag304_and_SuccessPage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newHandlerDB(t)
	svc := services.NewRoomService(db, testRoomRepo{}, testDirectoryShim{})
	h := New(svc, stubMsgSvc{}, stubSendSvc{})

	// Seed two SMS threads
	now := time.Now().UTC().Truncate(time.Second)
	for i, phone := range []string{"+15550000001", "+15550000002"} {
		rec := &domain.Communication{
			ID:                uuid.NewString(),
			CommunicationType: domain.CommunicationTypeDefault,
			Medium:            domain.MediumSMS,
			SentOrReceived:    domain.DirectionReceived,
			PhoneNo:           phone,
			TextContent:       fmt.Sprintf("hello %d", i),
			CommunicationDate: now.Add(time.Duration(i) * time.Second),
			Status:            domain.StatusOpen,
		}
		if err := db.Create(rec).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	r := gin.New()
	r.GET("/rooms", h.ListRooms)

	// Compute expected ETag
	count, maxTS, err := repo.CommunicationsStats(context.Background(), db)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	var ts int64
	if maxTS != nil {
		ts = maxTS.Unix()
	}
	etag := fmt.Sprintf(`W/"rooms:%d:%d"`, count, ts)

	// 304 path
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/rooms", nil)
	req.Header.Set("If-None-Match", etag)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotModified {
		t.Fatalf("etag 304 -> %d", w.Code)
	}

	// 200 success with pagination
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/rooms?page=1&page_size=1", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("list 200 -> %d body=%s", w.Code, w.Body.String())
	}
	var out ListRoomsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	if out.Pagination.Page != 1 || out.Pagination.PageSize != 1 || out.Pagination.Total != 2 {
		t.Fatalf("pagination mismatch: %#v", out.Pagination)
	}
	if !out.Pagination.HasMore {
		t.Fatalf("expected has_more on page 1 of 2")
	}
	if len(out.Rooms) != 1 {
		t.Fatalf("expected 1 room on page 1, got %d", len(out.Rooms))
	}
}

func TestListRooms_FilteredSkipsETag_And_ListError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// Stub service (not *services.RoomService) so db==nil → ETag pre-check is skipped.
	svc := stubRoomSvc{
		list: func(ctx context.Context, m domain.Medium, q string, p, l int) ([]chatpkg.Room, int, bool, error) {
			return nil, 0, false, gorm.ErrInvalidField
		},
	}
	h := New(svc, stubMsgSvc{}, stubSendSvc{})

	r := gin.New()
	r.GET("/rooms", h.ListRooms)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/rooms?medium=SMS", nil)
	req.Header.Set("If-None-Match", `W/"nope"`)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 on list error; got %d body=%s", w.Code, w.Body.String())
	}
	if et := w.Header().Get("ETag"); et != "" {
		t.Fatalf("filtered listing should not set ETag, got %q", et)
	}
}

// ---------- SearchRooms / UnreadCount ----------

func TestSearchRooms_RequiresQuery_And_Success(t *testing.T) {
	gin.SetMode(gin.TestMode)

	svc := stubRoomSvc{
		search: func(ctx context.Context, q string, l int) ([]chatpkg.Room, error) {
			if q != "alice" || l != 5 {
				t.Fatalf("search args q=%q l=%d", q, l)
			}
			return []chatpkg.Room{{ID: "Email:alice@example.org"}}, nil
		},
	}
	h := New(svc, stubMsgSvc{}, stubSendSvc{})
	r := gin.New()
	r.GET("/rooms/search", h.SearchRooms)

	// missing q -> 400
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/rooms/search", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing q -> %d", w.Code)
	}

	// success
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/rooms/search?q=alice&limit=5", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("search -> %d body=%s", w.Code, w.Body.String())
	}
	var rooms []chatpkg.Room
	if err := json.Unmarshal(w.Body.Bytes(), &rooms); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(rooms) != 1 || rooms[0].ID != "Email:alice@example.org" {
		t.Fatalf("unexpected rooms: %#v", rooms)
	}
}

func TestUnreadCount(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := New(stubRoomSvc{unread: func(context.Context) (int64, error) { return 7, nil }}, stubMsgSvc{}, stubSendSvc{})
	r := gin.New()
	r.GET("/rooms/unread-count", h.UnreadCount)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/rooms/unread-count", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("unread -> %d", w.Code)
	}
	var out map[string]int64
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	if out["unread_count"] != 7 {
		t.Fatalf("unread_count = %d", out["unread_count"])
	}
}

// ---------- ListMessages ----------

func TestListMessages_Success_And_Error(t *testing.T) {
	gin.SetMode(gin.TestMode)

	svc := stubMsgSvc{
		list: func(ctx context.Context, roomID string, p, l int) ([]chatpkg.Message, int, bool, error) {
			if roomID != "SMS:+15550000001" {
				t.Fatalf("roomID = %q", roomID)
			}
			return []chatpkg.Message{{ID: "m1", RoomID: roomID}}, 11, true, nil
		},
	}
	h := New(stubRoomSvc{}, svc, stubSendSvc{})
	r := gin.New()
	r.GET("/rooms/:id/messages", h.ListMessages)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/rooms/SMS%3A%2B15550000001/messages?page=2&page_size=5", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("messages -> %d body=%s", w.Code, w.Body.String())
	}
	var out ListMessagesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	if out.Pagination.Total != 11 || !out.Pagination.HasMore || len(out.Messages) != 1 {
		t.Fatalf("unexpected response: %#v", out)
	}

	// error -> 500
	hErr := New(stubRoomSvc{}, stubMsgSvc{
		list: func(context.Context, string, int, int) ([]chatpkg.Message, int, bool, error) {
			return nil, 0, false, gorm.ErrInvalidField
		},
	}, stubSendSvc{})
	rErr := gin.New()
	rErr.GET("/rooms/:id/messages", hErr.ListMessages)
	w = httptest.NewRecorder()
	rErr.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/rooms/x/messages", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("messages error -> %d", w.Code)
	}
}

// ---------- SendMessage ----------

func TestSendMessage_BadJSON_Validation_Success(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// Bad JSON -> 400
	{
		h := New(stubRoomSvc{}, stubMsgSvc{}, stubSendSvc{})
		r := gin.New()
		r.POST("/rooms/:id/messages", h.SendMessage)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/rooms/SMS%3A%2B15550000001/messages", bytes.NewBufferString("{bad"))
		r.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("bad json -> %d", w.Code)
		}
	}

	// Validation failure surfaces as 400 with send_failed code
	{
		svc := stubSendSvc{
			send: func(ctx context.Context, req services.SendRequest) services.SendResult {
				return services.SendResult{Success: false, Error: "message content is required"}
			},
		}
		h := New(stubRoomSvc{}, stubMsgSvc{}, svc)
		r := gin.New()
		r.POST("/rooms/:id/messages", h.SendMessage)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/rooms/SMS%3A%2B15550000001/messages", bytes.NewBufferString(`{"content":"   "}`))
		r.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("validation -> %d body=%s", w.Code, w.Body.String())
		}
		var er ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
			t.Fatalf("json: %v", err)
		}
		if er.Code != ErrCodeSendFailed {
			t.Fatalf("code = %q", er.Code)
		}
	}

	// Success: request fields reach the service intact
	{
		var got services.SendRequest
		svc := stubSendSvc{
			send: func(ctx context.Context, req services.SendRequest) services.SendResult {
				got = req
				return services.SendResult{Success: true, Message: &domain.Communication{ID: "c1"}}
			},
		}
		h := New(stubRoomSvc{}, stubMsgSvc{}, svc)
		r := gin.New()
		r.POST("/rooms/:id/messages", h.SendMessage)

		body := `{"content":"On my way","reply_to":"p1","user_name":"Bob Jones","attachments":[{"file_name":"doc.pdf","file_url":"/files/doc.pdf","file_size":2048,"mime_type":"application/pdf"}]}`
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/rooms/SMS%3A%2B15550000001/messages", bytes.NewBufferString(body))
		req.Header.Set("X-User-ID", "agent@example.com")
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("send -> %d body=%s", w.Code, w.Body.String())
		}
		if got.RoomID != "SMS:+15550000001" || got.Content != "On my way" || got.ReplyTo != "p1" {
			t.Fatalf("service args mismatch: %#v", got)
		}
		if got.UserID != "agent@example.com" || got.UserName != "Bob Jones" {
			t.Fatalf("user fields mismatch: %#v", got)
		}
		if len(got.Attachments) != 1 || got.Attachments[0].FileName != "doc.pdf" || got.Attachments[0].FileSize != 2048 {
			t.Fatalf("attachments mismatch: %#v", got.Attachments)
		}
	}
}

func TestSendMessage_IdempotencyKeyReplaysStoredResult(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newHandlerDB(t)
	sender := &countingSMSSender{}
	sendSvc := services.NewSendService(db, testSendRepo{}, sender, nil, "CRM", "crm@example.com", "example.com")
	h := New(stubRoomSvc{}, stubMsgSvc{}, sendSvc)

	r := gin.New()
	r.POST("/rooms/:id/messages", h.SendMessage)

	post := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/rooms/SMS%3A%2B15550000001/messages", bytes.NewBufferString(`{"content":"On my way"}`))
		req.Header.Set("X-User-ID", "agent@example.com")
		req.Header.Set("Idempotency-Key", "retry-abc-1")
		r.ServeHTTP(w, req)
		return w
	}

	first := post()
	if first.Code != http.StatusOK {
		t.Fatalf("first send -> %d body=%s", first.Code, first.Body.String())
	}
	var firstRes services.SendResult
	if err := json.Unmarshal(first.Body.Bytes(), &firstRes); err != nil {
		t.Fatalf("json: %v", err)
	}
	if firstRes.Message == nil || firstRes.Message.ID == "" {
		t.Fatalf("first result carries no record: %s", first.Body.String())
	}

	second := post()
	if second.Code != http.StatusOK {
		t.Fatalf("retry -> %d body=%s", second.Code, second.Body.String())
	}
	if sender.sent != 1 {
		t.Fatalf("dispatched %d times; the retry must not reach the provider", sender.sent)
	}
	if second.Header().Get("Idempotency-Replayed") != "true" {
		t.Fatalf("retry response missing replay header, headers=%v", second.Header())
	}
	var secondRes services.SendResult
	if err := json.Unmarshal(second.Body.Bytes(), &secondRes); err != nil {
		t.Fatalf("json: %v", err)
	}
	if secondRes.Message == nil || secondRes.Message.ID != firstRes.Message.ID {
		t.Fatalf("retry served a different record: %s vs %s", second.Body.String(), first.Body.String())
	}

	var rows int64
	if err := db.Model(&domain.Idempotency{}).Count(&rows).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if rows != 1 {
		t.Fatalf("idempotency rows = %d; want the completed send recorded once", rows)
	}

	// A different key is a different operation and dispatches again.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/rooms/SMS%3A%2B15550000001/messages", bytes.NewBufferString(`{"content":"Second message"}`))
	req.Header.Set("X-User-ID", "agent@example.com")
	req.Header.Set("Idempotency-Key", "retry-abc-2")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || sender.sent != 2 {
		t.Fatalf("fresh key -> %d, dispatched %d times", w.Code, sender.sent)
	}
}

// ---------- room mutations ----------

func TestRoomMutations_InvalidID_Error_Success(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// invalid id -> 400
	{
		svc := stubRoomSvc{seen: func(context.Context, string) (int64, error) {
			return 0, services.ErrInvalidRoomID
		}}
		h := New(svc, stubMsgSvc{}, stubSendSvc{})
		r := gin.New()
		r.POST("/rooms/:id/seen", h.MarkSeen)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/rooms/garbage/seen", nil))
		if w.Code != http.StatusBadRequest {
			t.Fatalf("invalid id -> %d", w.Code)
		}
	}

	// repo error -> 500
	{
		svc := stubRoomSvc{archive: func(context.Context, string) (int64, error) {
			return 0, gorm.ErrInvalidField
		}}
		h := New(svc, stubMsgSvc{}, stubSendSvc{})
		r := gin.New()
		r.POST("/rooms/:id/archive", h.ArchiveRoom)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/rooms/SMS%3A%2B15550000001/archive", nil))
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("archive error -> %d", w.Code)
		}
	}

	// success -> affected count
	{
		svc := stubRoomSvc{remove: func(ctx context.Context, id string) (int64, error) {
			if id != "SMS:+15550000001" {
				t.Fatalf("delete id = %q", id)
			}
			return 3, nil
		}}
		h := New(svc, stubMsgSvc{}, stubSendSvc{})
		r := gin.New()
		r.DELETE("/rooms/:id", h.DeleteRoom)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/rooms/SMS%3A%2B15550000001", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("delete -> %d", w.Code)
		}
		var out MutationResponse
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("json: %v", err)
		}
		if out.Affected != 3 {
			t.Fatalf("affected = %d", out.Affected)
		}
	}
}
