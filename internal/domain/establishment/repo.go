package establishment

import "context"

// EstablishmentRepository stores establishments. Missing records are
// reported with apperr.ErrNotFound.
type EstablishmentRepository interface {
	// List returns every establishment in ascending id order.
	List(ctx context.Context) ([]*Establishment, error)
	GetByID(ctx context.Context, id int64) (*Establishment, error)
	Create(ctx context.Context, e *Establishment) error
	SetOnDuty(ctx context.Context, id int64, onDuty bool) error
}

type ReviewRepository interface {
	// ListAll returns every review, newest first.
	ListAll(ctx context.Context) ([]*Review, error)
	ListByEstablishment(ctx context.Context, establishmentID int64) ([]*Review, error)
	Create(ctx context.Context, r *Review) error
}
