package notification

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pharmagarde/pharmagarde/internal/platform/db"
)

type subscriptionRepoPG struct{ pool *pgxpool.Pool }

func NewSubscriptionRepoPG(pool *pgxpool.Pool) SubscriptionRepository {
	return &subscriptionRepoPG{pool: pool}
}

func (r *subscriptionRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

func (r *subscriptionRepoPG) Upsert(ctx context.Context, s *Subscription) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO push_subscriptions (endpoint, p256dh, auth)
		VALUES ($1, $2, $3)
		ON CONFLICT (endpoint) DO NOTHING`,
		s.Endpoint, s.P256dh, s.Auth)
	if err != nil {
		return fmt.Errorf("upsert push subscription: %w", err)
	}
	return nil
}

func (r *subscriptionRepoPG) DeleteByEndpoint(ctx context.Context, endpoint string) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM push_subscriptions WHERE endpoint = $1`, endpoint)
	if err != nil {
		return false, fmt.Errorf("delete push subscription: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *subscriptionRepoPG) List(ctx context.Context) ([]*Subscription, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, endpoint, p256dh, auth, created_at
		FROM push_subscriptions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query push subscriptions: %w", err)
	}
	defer rows.Close()

	var items []*Subscription
	for rows.Next() {
		var s Subscription
		if err := rows.Scan(&s.ID, &s.Endpoint, &s.P256dh, &s.Auth, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan push subscription: %w", err)
		}
		items = append(items, &s)
	}
	return items, rows.Err()
}
