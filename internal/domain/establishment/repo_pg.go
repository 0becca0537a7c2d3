package establishment

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pharmagarde/pharmagarde/internal/platform/apperr"
	"github.com/pharmagarde/pharmagarde/internal/platform/db"
)

type establishmentRepoPG struct{ pool *pgxpool.Pool }

func NewEstablishmentRepoPG(pool *pgxpool.Pool) EstablishmentRepository {
	return &establishmentRepoPG{pool: pool}
}

func (r *establishmentRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const estCols = `id, name, type, address, lat, lon, phone, hours,
	on_duty, open_24h, photo_url, created_at, updated_at`

func (r *establishmentRepoPG) scanRow(row pgx.Row) (*Establishment, error) {
	var e Establishment
	err := row.Scan(&e.ID, &e.Name, &e.Type, &e.Address, &e.Lat, &e.Lon, &e.Phone, &e.Hours,
		&e.OnDuty, &e.Open24h, &e.PhotoURL, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if e.Hours == nil {
		e.Hours = map[string]string{}
	}
	return &e, nil
}

func (r *establishmentRepoPG) List(ctx context.Context) ([]*Establishment, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+estCols+` FROM establishments ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query establishments: %w", err)
	}
	defer rows.Close()

	var items []*Establishment
	for rows.Next() {
		e, err := r.scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan establishment: %w", err)
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

func (r *establishmentRepoPG) GetByID(ctx context.Context, id int64) (*Establishment, error) {
	e, err := r.scanRow(r.conn(ctx).QueryRow(ctx, `SELECT `+estCols+` FROM establishments WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("establishment", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get establishment %d: %w", id, err)
	}
	return e, nil
}

func (r *establishmentRepoPG) Create(ctx context.Context, e *Establishment) error {
	if e.Hours == nil {
		e.Hours = map[string]string{}
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO establishments (name, type, address, lat, lon, phone, hours,
			on_duty, open_24h, photo_url)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING id, created_at, updated_at`,
		e.Name, e.Type, e.Address, e.Lat, e.Lon, e.Phone, e.Hours,
		e.OnDuty, e.Open24h, e.PhotoURL).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert establishment: %w", err)
	}
	return nil
}

func (r *establishmentRepoPG) SetOnDuty(ctx context.Context, id int64, onDuty bool) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE establishments SET on_duty = $2, updated_at = NOW()
		WHERE id = $1`, id, onDuty)
	if err != nil {
		return fmt.Errorf("update establishment %d status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("establishment", id)
	}
	return nil
}

// -- Reviews --

type reviewRepoPG struct{ pool *pgxpool.Pool }

func NewReviewRepoPG(pool *pgxpool.Pool) ReviewRepository {
	return &reviewRepoPG{pool: pool}
}

func (r *reviewRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const reviewCols = `id, establishment_id, user_id, user_name, rating, comment, created_at, updated_at`

func (r *reviewRepoPG) scanRows(rows pgx.Rows) ([]*Review, error) {
	defer rows.Close()
	var items []*Review
	for rows.Next() {
		var rv Review
		if err := rows.Scan(&rv.ID, &rv.EstablishmentID, &rv.UserID, &rv.UserName,
			&rv.Rating, &rv.Comment, &rv.CreatedAt, &rv.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		items = append(items, &rv)
	}
	return items, rows.Err()
}

func (r *reviewRepoPG) ListAll(ctx context.Context) ([]*Review, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+reviewCols+` FROM reviews ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("query reviews: %w", err)
	}
	return r.scanRows(rows)
}

func (r *reviewRepoPG) ListByEstablishment(ctx context.Context, establishmentID int64) ([]*Review, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+reviewCols+` FROM reviews
		WHERE establishment_id = $1
		ORDER BY created_at DESC, id`, establishmentID)
	if err != nil {
		return nil, fmt.Errorf("query reviews of establishment %d: %w", establishmentID, err)
	}
	return r.scanRows(rows)
}

func (r *reviewRepoPG) Create(ctx context.Context, rv *Review) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO reviews (establishment_id, user_id, user_name, rating, comment)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id, created_at, updated_at`,
		rv.EstablishmentID, rv.UserID, rv.UserName, rv.Rating, rv.Comment).
		Scan(&rv.ID, &rv.CreatedAt, &rv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}
