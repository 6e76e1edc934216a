// Package services – PushService
//
// This file implements PushService: registration of browser push
// subscriptions and notification fan-out. Fan-out is best-effort and
// per-recipient isolated; an endpoint the provider reports gone is dropped
// from the table instead of being retried forever.
package services

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"

	"github.com/crmsuite/go-messaging-backend/internal/domain"
	"github.com/crmsuite/go-messaging-backend/internal/push"
	"github.com/crmsuite/go-messaging-backend/internal/queue"
)

// PushRepo defines the repository contract required by PushService.
type PushRepo interface {
	UpsertSubscription(ctx context.Context, db *gorm.DB, s *domain.PushSubscription) error
	DeleteSubscription(ctx context.Context, db *gorm.DB, userID, endpoint string) error
	DeleteSubscriptionByEndpoint(ctx context.Context, db *gorm.DB, endpoint string) error
	ListSubscriptions(ctx context.Context, db *gorm.DB, userID string) ([]domain.PushSubscription, error)
	ListAllSubscriptions(ctx context.Context, db *gorm.DB) ([]domain.PushSubscription, error)
	HasSubscription(ctx context.Context, db *gorm.DB, userID, endpoint string) (bool, error)
}

// PushService manages push subscriptions and notification delivery.
type PushService struct {
	DB   *gorm.DB
	Repo PushRepo
	Keys *push.KeyStore

	// Subscriber is the mailto: contact handed to the push provider.
	Subscriber string

	// Broker, when set, routes fan-out through the job queue; inbound
	// handlers return before any push traffic happens. Without it NotifyAll
	// runs inline.
	Broker *queue.Broker

	// NewTransport is a seam for tests; it defaults to the Web Push
	// transport bound to the stored VAPID pair.
	NewTransport func(pub, priv string) push.Transport
}

// NewPushService constructs a PushService with the production transport.
func NewPushService(db *gorm.DB, r PushRepo, keys *push.KeyStore, subscriber string, broker *queue.Broker) *PushService {
	s := &PushService{DB: db, Repo: r, Keys: keys, Subscriber: subscriber, Broker: broker}
	s.NewTransport = func(pub, priv string) push.Transport {
		return &push.WebPushTransport{
			Subscriber:      subscriber,
			VAPIDPublicKey:  pub,
			VAPIDPrivateKey: priv,
			TTL:             60,
		}
	}
	return s
}

// PublicKey returns the VAPID public key browsers subscribe with, generating
// the pair on first use.
func (s *PushService) PublicKey(ctx context.Context) (string, error) {
	pub, _, err := s.Keys.EnsureKeys(ctx)
	return pub, err
}

// Subscribe registers or refreshes one browser subscription for a user.
func (s *PushService) Subscribe(ctx context.Context, userID string, sub push.Subscription) error {
	if strings.TrimSpace(sub.Endpoint) == "" || sub.P256dh == "" || sub.Auth == "" {
		return ErrInvalidSubscription
	}
	return s.Repo.UpsertSubscription(ctx, s.DB, &domain.PushSubscription{
		UserID:    userID,
		Endpoint:  sub.Endpoint,
		P256dhKey: sub.P256dh,
		AuthKey:   sub.Auth,
	})
}

// Unsubscribe removes one subscription. Removing an unknown endpoint is not
// an error.
func (s *PushService) Unsubscribe(ctx context.Context, userID, endpoint string) error {
	if strings.TrimSpace(endpoint) == "" {
		return ErrInvalidSubscription
	}
	return s.Repo.DeleteSubscription(ctx, s.DB, userID, endpoint)
}

// Status reports whether the user has the given endpoint registered.
func (s *PushService) Status(ctx context.Context, userID, endpoint string) (bool, error) {
	return s.Repo.HasSubscription(ctx, s.DB, userID, endpoint)
}

// Notify fans a notification out to every registered subscription. With a
// broker configured the job is enqueued; otherwise delivery moves to a
// goroutine detached from the caller's context. Either way the call returns
// without waiting on push traffic, so webhook handlers never stall on it.
func (s *PushService) Notify(ctx context.Context, n push.Notification) {
	if s.Broker != nil {
		err := s.Broker.PublishPushJob(ctx, queue.PushJob{Title: n.Title, Body: n.Body, RoomID: n.Tag})
		if err == nil {
			return
		}
		log.Warn().Err(err).Msg("push: enqueue failed, delivering in background")
	}
	go s.NotifyAll(context.WithoutCancel(ctx), n)
}

// NotifyAll delivers one notification to every subscription. Failures are
// isolated per recipient: a gone endpoint is deleted, any other failure is
// logged and skipped.
func (s *PushService) NotifyAll(ctx context.Context, n push.Notification) {
	ctx, span := otel.Tracer("services/PushService").Start(ctx, "NotifyAll")
	defer span.End()

	pub, priv, err := s.Keys.EnsureKeys(ctx)
	if err != nil {
		log.Error().Err(err).Msg("push: key material unavailable")
		return
	}
	subs, err := s.Repo.ListAllSubscriptions(ctx, s.DB)
	if err != nil {
		log.Error().Err(err).Msg("push: listing subscriptions failed")
		return
	}
	transport := s.NewTransport(pub, priv)

	for _, row := range subs {
		err := transport.Send(ctx, push.Subscription{
			Endpoint: row.Endpoint,
			P256dh:   row.P256dhKey,
			Auth:     row.AuthKey,
		}, n)
		if err == nil {
			continue
		}
		var gone *push.ErrSubscriptionGone
		if errors.As(err, &gone) {
			if derr := s.Repo.DeleteSubscriptionByEndpoint(ctx, s.DB, gone.Endpoint); derr != nil {
				log.Warn().Err(derr).Str("endpoint", gone.Endpoint).Msg("push: pruning gone endpoint failed")
			}
			continue
		}
		log.Warn().Err(err).Str("endpoint", row.Endpoint).Msg("push: delivery failed")
	}
}
