package notification

import (
	"context"
	"net/url"
	"strings"

	"github.com/pharmagarde/pharmagarde/internal/platform/apperr"
)

type Service struct {
	subs      SubscriptionRepository
	publicKey string
}

func NewService(subs SubscriptionRepository, publicKey string) *Service {
	return &Service{subs: subs, publicKey: publicKey}
}

// PublicKey is the VAPID application server key handed to browsers.
func (s *Service) PublicKey() string {
	return s.publicKey
}

// SubscribeRequest mirrors the JSON form of a browser PushSubscription.
type SubscribeRequest struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

func (r *SubscribeRequest) Validate() (*Subscription, error) {
	v := &apperr.ValidationError{}
	endpoint := strings.TrimSpace(r.Endpoint)
	if endpoint == "" {
		v.Add("endpoint", "is required")
	} else if u, err := url.Parse(endpoint); err != nil || u.Scheme != "https" || u.Host == "" {
		v.Add("endpoint", "must be an https URL")
	}
	if r.Keys.P256dh == "" {
		v.Add("keys.p256dh", "is required")
	}
	if r.Keys.Auth == "" {
		v.Add("keys.auth", "is required")
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}
	return &Subscription{Endpoint: endpoint, P256dh: r.Keys.P256dh, Auth: r.Keys.Auth}, nil
}

// Subscribe registers a push channel. Registering the same endpoint again is
// a no-op.
func (s *Service) Subscribe(ctx context.Context, sub *Subscription) error {
	return s.subs.Upsert(ctx, sub)
}

// Unsubscribe removes a push channel. Unknown endpoints are ignored.
func (s *Service) Unsubscribe(ctx context.Context, endpoint string) error {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return apperr.Invalid("endpoint", "is required")
	}
	_, err := s.subs.DeleteByEndpoint(ctx, endpoint)
	return err
}
