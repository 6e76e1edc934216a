// Package push delivers browser push notifications over the Web Push
// protocol with VAPID authentication. Key material lives in the settings
// table: the public half in the clear, the private half AES-GCM sealed with
// a configured secret.
package push

import (
	"context"
	"encoding/json"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// Subscription mirrors the browser PushSubscription shape.
type Subscription struct {
	Endpoint string `json:"endpoint"`
	P256dh   string `json:"p256dh"`
	Auth     string `json:"auth"`
}

// Notification is the payload delivered to the service worker.
type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Tag   string `json:"tag,omitempty"`
	URL   string `json:"url,omitempty"`
}

// ErrSubscriptionGone marks endpoints the provider reports as expired or
// removed (HTTP 404/410); callers delete those rows.
type ErrSubscriptionGone struct{ Endpoint string }

func (e *ErrSubscriptionGone) Error() string { return "push: subscription gone: " + e.Endpoint }

// Transport sends one notification to one endpoint.
type Transport interface {
	Send(ctx context.Context, sub Subscription, n Notification) error
}

// WebPushTransport is the production Transport over webpush-go.
type WebPushTransport struct {
	Subscriber      string // contact mailto: for the push provider
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	TTL             int
}

// Send encrypts and posts the notification. A 404/410 from the provider is
// reported as *ErrSubscriptionGone so the caller can drop the subscription.
func (t *WebPushTransport) Send(ctx context.Context, sub Subscription, n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys:     webpush.Keys{P256dh: sub.P256dh, Auth: sub.Auth},
	}, &webpush.Options{
		Subscriber:      t.Subscriber,
		VAPIDPublicKey:  t.VAPIDPublicKey,
		VAPIDPrivateKey: t.VAPIDPrivateKey,
		TTL:             t.TTL,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		return &ErrSubscriptionGone{Endpoint: sub.Endpoint}
	}
	return nil
}

// GenerateKeys mints a fresh VAPID keypair (private, public).
func GenerateKeys() (string, string, error) {
	return webpush.GenerateVAPIDKeys()
}
