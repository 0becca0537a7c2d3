package notification

import "context"

type SubscriptionRepository interface {
	// Upsert stores s unless its endpoint is already registered.
	Upsert(ctx context.Context, s *Subscription) error
	// DeleteByEndpoint removes the subscription, if any. It reports whether
	// a row was removed.
	DeleteByEndpoint(ctx context.Context, endpoint string) (bool, error)
	List(ctx context.Context) ([]*Subscription, error)
}
