package notification

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// ErrSubscriptionGone is returned by a Sender when the push service reports
// the channel as expired or unknown. The subscription should be deleted.
var ErrSubscriptionGone = errors.New("push subscription gone")

// DeliveryError is any other failed delivery attempt. StatusCode is 0 when
// the push service could not be reached.
type DeliveryError struct {
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("push to %s: status %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("push to %s: %v", e.Endpoint, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Sender delivers one payload to one subscription.
type Sender interface {
	Send(ctx context.Context, s *Subscription, payload []byte) error
}

// VAPIDConfig identifies this server to push services.
type VAPIDConfig struct {
	PublicKey  string
	PrivateKey string
	Subscriber string
	TTL        int
}

// WebPushSender encrypts payloads and posts them to the subscription's
// push service with a VAPID signature.
type WebPushSender struct {
	cfg    VAPIDConfig
	client *http.Client
}

func NewWebPushSender(cfg VAPIDConfig, timeout time.Duration) *WebPushSender {
	return &WebPushSender{cfg: cfg, client: &http.Client{Timeout: timeout}}
}

func (w *WebPushSender) Send(ctx context.Context, s *Subscription, payload []byte) error {
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: s.Endpoint,
		Keys:     webpush.Keys{P256dh: s.P256dh, Auth: s.Auth},
	}, &webpush.Options{
		HTTPClient:      w.client,
		Subscriber:      w.cfg.Subscriber,
		TTL:             w.cfg.TTL,
		VAPIDPublicKey:  w.cfg.PublicKey,
		VAPIDPrivateKey: w.cfg.PrivateKey,
		Urgency:         webpush.UrgencyNormal,
	})
	if err != nil {
		return &DeliveryError{Endpoint: s.Endpoint, Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	return classifyStatus(s.Endpoint, resp.StatusCode)
}

func classifyStatus(endpoint string, status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusNotFound || status == http.StatusGone:
		return fmt.Errorf("%s: %w", endpoint, ErrSubscriptionGone)
	default:
		return &DeliveryError{Endpoint: endpoint, StatusCode: status}
	}
}

// GenerateVAPIDKeys returns a new base64url encoded key pair.
func GenerateVAPIDKeys() (publicKey, privateKey string, err error) {
	privateKey, publicKey, err = webpush.GenerateVAPIDKeys()
	if err != nil {
		return "", "", fmt.Errorf("generate vapid keys: %w", err)
	}
	return publicKey, privateKey, nil
}
