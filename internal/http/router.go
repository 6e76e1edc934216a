// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/crmsuite/go-messaging-backend/internal/config"
	"github.com/crmsuite/go-messaging-backend/internal/domain"
	"github.com/crmsuite/go-messaging-backend/internal/http/handlers"
	"github.com/crmsuite/go-messaging-backend/internal/http/middleware"
	"github.com/crmsuite/go-messaging-backend/internal/mail"
	"github.com/crmsuite/go-messaging-backend/internal/push"
	"github.com/crmsuite/go-messaging-backend/internal/queue"
	"github.com/crmsuite/go-messaging-backend/internal/repo"
	"github.com/crmsuite/go-messaging-backend/internal/services"
	"github.com/crmsuite/go-messaging-backend/internal/sms"
)

// Dependencies carries the transport collaborators built in main and injected
// into the service layer. Broker may be nil (push fan-out runs inline) and
// Lookup may be nil (carrier validation reports "unknown").
type Dependencies struct {
	SMS    sms.Sender
	Lookup sms.Lookup
	Mail   mail.Sender
	Keys   *push.KeyStore
	Broker *queue.Broker
}

// roomRepoShim adapts the repository free functions to the services.RoomRepo
// interface. This keeps services decoupled from the concrete repo package
// while reusing existing functions.
type roomRepoShim struct{}

func (roomRepoShim) ListCommunications(ctx context.Context, db *gorm.DB, f repo.CommunicationFilter) ([]domain.Communication, error) {
	return repo.ListCommunications(ctx, db, f)
}

func (roomRepoShim) MarkThreadSeen(ctx context.Context, db *gorm.DB, medium domain.Medium, identifier string) (int64, error) {
	return repo.MarkThreadSeen(ctx, db, medium, identifier)
}

func (roomRepoShim) ArchiveThread(ctx context.Context, db *gorm.DB, medium domain.Medium, identifier string) (int64, error) {
	return repo.ArchiveThread(ctx, db, medium, identifier)
}

func (roomRepoShim) DeleteThread(ctx context.Context, db *gorm.DB, medium domain.Medium, identifier string) (int64, error) {
	return repo.DeleteThread(ctx, db, medium, identifier)
}

func (roomRepoShim) CountUnread(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountUnread(ctx, db)
}

// contactDirShim adapts contact lookups to services.ContactDirectory.
type contactDirShim struct{}

func (contactDirShim) FindContactByPhone(ctx context.Context, db *gorm.DB, phone string) (*domain.Contact, error) {
	return repo.FindContactByPhone(ctx, db, phone)
}

func (contactDirShim) FindContactByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.Contact, error) {
	return repo.FindContactByEmail(ctx, db, email)
}

// messageRepoShim adapts thread reads to services.MessageRepo.
type messageRepoShim struct{}

func (messageRepoShim) ListThread(ctx context.Context, db *gorm.DB, medium domain.Medium, identifier string) ([]domain.Communication, error) {
	return repo.ListThread(ctx, db, medium, identifier)
}

func (messageRepoShim) ListAttachments(ctx context.Context, db *gorm.DB, communicationIDs []string) (map[string][]domain.Attachment, error) {
	return repo.ListAttachments(ctx, db, communicationIDs)
}

func (messageRepoShim) GetByMessageID(ctx context.Context, db *gorm.DB, messageID string) (*domain.Communication, error) {
	return repo.GetByMessageID(ctx, db, messageID)
}

// sendRepoShim adapts persistence writes to services.SendRepo.
type sendRepoShim struct{}

func (sendRepoShim) CreateCommunication(ctx context.Context, db *gorm.DB, c *domain.Communication) error {
	return repo.CreateCommunication(ctx, db, c)
}

func (sendRepoShim) CreateAttachment(ctx context.Context, db *gorm.DB, a *domain.Attachment) error {
	return repo.CreateAttachment(ctx, db, a)
}

func (sendRepoShim) GetCommunication(ctx context.Context, db *gorm.DB, id string) (*domain.Communication, error) {
	return repo.GetCommunication(ctx, db, id)
}

func (sendRepoShim) LatestInThread(ctx context.Context, db *gorm.DB, medium domain.Medium, identifier string) (*domain.Communication, error) {
	return repo.LatestInThread(ctx, db, medium, identifier)
}

func (sendRepoShim) UpdateCommunicationStatus(ctx context.Context, db *gorm.DB, id, status string) error {
	return repo.UpdateCommunicationStatus(ctx, db, id, status)
}

func (sendRepoShim) SetDeliveryStatus(ctx context.Context, db *gorm.DB, id, deliveryStatus string) error {
	return repo.SetDeliveryStatus(ctx, db, id, deliveryStatus)
}

func (sendRepoShim) SetProviderMessageID(ctx context.Context, db *gorm.DB, id, messageID string) error {
	return repo.SetProviderMessageID(ctx, db, id, messageID)
}

// optOutRepoShim adapts opt-out persistence to services.OptOutRepo.
type optOutRepoShim struct{}

func (optOutRepoShim) ListContactsByPhone(ctx context.Context, db *gorm.DB, phone string) ([]domain.Contact, error) {
	return repo.ListContactsByPhone(ctx, db, phone)
}

func (optOutRepoShim) UnsubscribeContacts(ctx context.Context, db *gorm.DB, ids []string) (int64, error) {
	return repo.UnsubscribeContacts(ctx, db, ids)
}

func (optOutRepoShim) CreateCommunication(ctx context.Context, db *gorm.DB, c *domain.Communication) error {
	return repo.CreateCommunication(ctx, db, c)
}

// pushRepoShim adapts subscription storage to services.PushRepo.
type pushRepoShim struct{}

func (pushRepoShim) UpsertSubscription(ctx context.Context, db *gorm.DB, s *domain.PushSubscription) error {
	return repo.UpsertSubscription(ctx, db, s)
}

func (pushRepoShim) DeleteSubscription(ctx context.Context, db *gorm.DB, userID, endpoint string) error {
	return repo.DeleteSubscription(ctx, db, userID, endpoint)
}

func (pushRepoShim) DeleteSubscriptionByEndpoint(ctx context.Context, db *gorm.DB, endpoint string) error {
	return repo.DeleteSubscriptionByEndpoint(ctx, db, endpoint)
}

func (pushRepoShim) ListSubscriptions(ctx context.Context, db *gorm.DB, userID string) ([]domain.PushSubscription, error) {
	return repo.ListSubscriptions(ctx, db, userID)
}

func (pushRepoShim) ListAllSubscriptions(ctx context.Context, db *gorm.DB) ([]domain.PushSubscription, error) {
	return repo.ListAllSubscriptions(ctx, db)
}

func (pushRepoShim) HasSubscription(ctx context.Context, db *gorm.DB, userID, endpoint string) (bool, error) {
	return repo.HasSubscription(ctx, db, userID, endpoint)
}

// inboundRepoShim adapts inbound persistence to services.InboundRepo.
type inboundRepoShim struct{}

func (inboundRepoShim) CreateCommunication(ctx context.Context, db *gorm.DB, c *domain.Communication) error {
	return repo.CreateCommunication(ctx, db, c)
}

func (inboundRepoShim) FindContactByPhone(ctx context.Context, db *gorm.DB, phone string) (*domain.Contact, error) {
	return repo.FindContactByPhone(ctx, db, phone)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), idempotency and rate
// limiting, CORS and security headers, health and metrics endpoints, and then
// mounts the versioned public API under /api/v*.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Idempotency validator (before rate limiter to allow bypass on replay)
//  8. Rate limiter (per user/IP, bypass on replay)
//  9. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, deps Dependencies, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			"Authorization",
			"X-Twilio-Signature", // derived from the provider auth token
		},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB) and response compression
	r.Use(limitBody(1 << 20))
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
		},
		func(ctx context.Context, userID, roomID, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, userID, roomID, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	// 8) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 9) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Swagger UI (opt-in; serves generated OpenAPI docs)
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db/transports
	roomSvc := services.NewRoomService(db, roomRepoShim{}, contactDirShim{})
	msgSvc := services.NewMessageService(db, messageRepoShim{})
	sendSvc := services.NewSendService(db, sendRepoShim{}, deps.SMS, deps.Mail,
		cfg.SMTP.FromName, cfg.SMTP.From, cfg.SMTP.Domain)
	optOutSvc := services.NewOptOutService(db, optOutRepoShim{}, deps.SMS)
	pushSvc := services.NewPushService(db, pushRepoShim{}, deps.Keys, cfg.Push.Subscriber, deps.Broker)
	inboundSvc := services.NewInboundService(db, inboundRepoShim{}, pushSvc, optOutSvc)
	contactSvc := NewContactService(db, deps, cfg)

	h := handlers.New(roomSvc, msgSvc, sendSvc)
	ph := handlers.NewPushHandlers(pushSvc)
	wh := handlers.NewWebhookHandlers(inboundSvc, cfg.Twilio.AuthToken, cfg.Twilio.WebhookURL)
	ch := handlers.NewContactHandlers(contactSvc)

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	{
		// Rooms
		api.GET("/rooms", h.ListRooms)
		api.GET("/rooms/search", h.SearchRooms)
		api.GET("/rooms/unread-count", h.UnreadCount)
		api.POST("/rooms/:id/seen", h.MarkSeen)
		api.POST("/rooms/:id/archive", h.ArchiveRoom)
		api.DELETE("/rooms/:id", h.DeleteRoom)

		// Messages
		api.GET("/rooms/:id/messages", h.ListMessages)
		api.POST("/rooms/:id/messages", h.SendMessage)

		// Contacts
		api.GET("/contacts/:id", ch.GetContact)
		api.PUT("/contacts/:id", ch.SaveContact)

		// Web push
		api.GET("/push/public-key", ph.PublicKey)
		api.POST("/push/subscribe", ph.Subscribe)
		api.POST("/push/unsubscribe", ph.Unsubscribe)
		api.GET("/push/status", ph.Status)

		// Provider callbacks
		api.POST("/webhooks/twilio/sms", wh.TwilioSMS)
	}
}

// groupRepoShim adapts scheduled bulk message storage to services.GroupRepo.
type groupRepoShim struct{}

func (groupRepoShim) ListDueGroupMessages(ctx context.Context, db *gorm.DB, now time.Time) ([]domain.GroupTextMessage, error) {
	return repo.ListDueGroupMessages(ctx, db, now)
}

func (groupRepoShim) GetGroupMessageStatus(ctx context.Context, db *gorm.DB, id string) (string, error) {
	return repo.GetGroupMessageStatus(ctx, db, id)
}

func (groupRepoShim) UpdateGroupMessageStatus(ctx context.Context, db *gorm.DB, id, status string) error {
	return repo.UpdateGroupMessageStatus(ctx, db, id, status)
}

func (groupRepoShim) GroupRecipientPhones(ctx context.Context, db *gorm.DB, includeGroupIDs, excludeGroupIDs []string) ([]string, error) {
	return repo.GroupRecipientPhones(ctx, db, includeGroupIDs, excludeGroupIDs)
}

func (groupRepoShim) CreateCommunication(ctx context.Context, db *gorm.DB, c *domain.Communication) error {
	return repo.CreateCommunication(ctx, db, c)
}

// NewGroupService builds the scheduled bulk sender over the repo layer. The
// scheduler loop in main drives it; it has no HTTP surface.
func NewGroupService(db *gorm.DB, sender sms.Sender) *services.GroupMessageService {
	return services.NewGroupMessageService(db, groupRepoShim{}, sender)
}

// NewPushService builds the push fan-out service over the repo layer. The
// router uses it for the subscription endpoints; main reuses the same wiring
// for the queue consumer.
func NewPushService(db *gorm.DB, deps Dependencies, cfg config.Config) *services.PushService {
	return services.NewPushService(db, pushRepoShim{}, deps.Keys, cfg.Push.Subscriber, deps.Broker)
}

// NewContactService builds the contact hygiene service over the repo layer.
func NewContactService(db *gorm.DB, deps Dependencies, cfg config.Config) *services.ContactService {
	return services.NewContactService(db, contactRepoShim{}, deps.Lookup, cfg.DefaultRegion)
}

// contactRepoShim adapts contact persistence to services.ContactRepo.
type contactRepoShim struct{}

func (contactRepoShim) GetContactWithChildren(ctx context.Context, db *gorm.DB, id string) (*domain.Contact, error) {
	return repo.GetContactWithChildren(ctx, db, id)
}

func (contactRepoShim) SaveContact(ctx context.Context, db *gorm.DB, c *domain.Contact) error {
	return repo.SaveContact(ctx, db, c)
}

func (contactRepoShim) SavePhoneValidation(ctx context.Context, db *gorm.DB, phoneRowID string, valid bool, carrierType, validatedNumber string) error {
	return repo.SavePhoneValidation(ctx, db, phoneRowID, valid, carrierType, validatedNumber)
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
