package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/crmsuite/go-messaging-backend/internal/push"
	"github.com/crmsuite/go-messaging-backend/internal/services"
)

// PushService defines the web push operations consumed by HTTP handlers.
type PushService interface {
	PublicKey(ctx context.Context) (string, error)
	Subscribe(ctx context.Context, userID string, sub push.Subscription) error
	Unsubscribe(ctx context.Context, userID, endpoint string) error
	Status(ctx context.Context, userID, endpoint string) (bool, error)
}

// PushHandlers exposes web push subscription endpoints.
type PushHandlers struct {
	svc PushService
}

// NewPushHandlers constructs PushHandlers bound to the given service.
func NewPushHandlers(svc PushService) *PushHandlers {
	return &PushHandlers{svc: svc}
}

// SubscribeRequest is the JSON payload for registering a browser subscription.
type SubscribeRequest struct {
	Endpoint string `json:"endpoint" binding:"required" example:"https://fcm.googleapis.com/fcm/send/abc"`
	Keys     struct {
		P256dh string `json:"p256dh" binding:"required"`
		Auth   string `json:"auth"   binding:"required"`
	} `json:"keys" binding:"required"`
}

// EndpointRequest names a subscription by its endpoint URL.
type EndpointRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// PublicKey godoc
// @ID          pushPublicKey
// @Summary     VAPID public key
// @Description Returns the server's VAPID public key for use in PushManager.subscribe. The keypair is generated on first request and stable afterwards.
// @Tags        Push
// @Produce     json
//
// @Success     200  {object} map[string]string
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /push/public-key [get]
func (h *PushHandlers) PublicKey(c *gin.Context) {
	key, err := h.svc.PublicKey(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, gin.H{"public_key": key})
}

// Subscribe godoc
// @ID          pushSubscribe
// @Summary     Register a push subscription
// @Description Stores (or refreshes) a browser push subscription for the current user. Re-posting the same endpoint updates its keys in place.
// @Tags        Push
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"
// @Param       body       body    handlers.SubscribeRequest  true  "PushSubscription JSON"
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Invalid subscription"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /push/subscribe [post]
func (h *PushHandlers) Subscribe(c *gin.Context) {
	var req SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	sub := push.Subscription{
		Endpoint: strings.TrimSpace(req.Endpoint),
		P256dh:   strings.TrimSpace(req.Keys.P256dh),
		Auth:     strings.TrimSpace(req.Keys.Auth),
	}
	if err := h.svc.Subscribe(c.Request.Context(), userID(c), sub); err != nil {
		if errors.Is(err, services.ErrInvalidSubscription) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid subscription payload")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeSubscribeFailed, err.Error())
		return
	}
	noContent(c)
}

// Unsubscribe godoc
// @ID          pushUnsubscribe
// @Summary     Remove a push subscription
// @Description Deletes the subscription matching the given endpoint for the current user. Unknown endpoints succeed silently.
// @Tags        Push
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"
// @Param       body       body    handlers.EndpointRequest  true  "Subscription endpoint"
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /push/unsubscribe [post]
func (h *PushHandlers) Unsubscribe(c *gin.Context) {
	var req EndpointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if err := h.svc.Unsubscribe(c.Request.Context(), userID(c), strings.TrimSpace(req.Endpoint)); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}

// Status godoc
// @ID          pushStatus
// @Summary     Check a push subscription
// @Description Reports whether the given endpoint is registered for the current user.
// @Tags        Push
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"
// @Param       endpoint   query   string  true  "Subscription endpoint"
//
// @Success     200  {object} map[string]bool
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /push/status [get]
func (h *PushHandlers) Status(c *gin.Context) {
	endpoint := strings.TrimSpace(c.Query("endpoint"))
	if endpoint == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "query parameter endpoint is required")
		return
	}
	subscribed, err := h.svc.Status(c.Request.Context(), userID(c), endpoint)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, gin.H{"subscribed": subscribed})
}
