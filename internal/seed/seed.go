// Package seed loads a small demo directory of establishments in Douala and
// Yaoundé.
package seed

import (
	"context"
	"fmt"

	"github.com/pharmagarde/pharmagarde/internal/domain/establishment"
)

func strPtr(s string) *string { return &s }

// Establishments returns the demo establishments, unsaved.
func Establishments() []*establishment.Establishment {
	return []*establishment.Establishment{
		{
			Name:     "Pharmacie du Progrès",
			Type:     establishment.TypePharmacy,
			Address:  "123 Rue de la République, Douala",
			Lat:      4.0483,
			Lon:      9.7043,
			Phone:    "+237 233 45 67 89",
			Hours:    map[string]string{"Lundi-Samedi": "08:00 - 20:00", "Dimanche": "Fermé"},
			OnDuty:   true,
			Open24h:  false,
			PhotoURL: strPtr("https://images.unsplash.com/photo-1585435557343-3c90272c63c9?q=80&w=1974&auto=format&fit=crop"),
		},
		{
			Name:     "Hôpital Laquintinie",
			Type:     establishment.TypeHospital,
			Address:  "Avenue De Gaulle, Douala",
			Lat:      4.0448,
			Lon:      9.6935,
			Phone:    "+237 233 50 12 12",
			Hours:    map[string]string{"Tous les jours": "24h/24"},
			OnDuty:   true,
			Open24h:  true,
			PhotoURL: strPtr("https://images.unsplash.com/photo-1629904853716-f0bc54eea481?q=80&w=2070&auto=format&fit=crop"),
		},
		{
			Name:     "Centre Médical de la Cité",
			Type:     establishment.TypeHealthCenter,
			Address:  "Rue des Palmiers, Yaoundé",
			Lat:      3.8480,
			Lon:      11.5021,
			Phone:    "+237 222 22 33 44",
			Hours:    map[string]string{"Lundi-Vendredi": "07:30 - 18:00", "Samedi": "08:00 - 12:00"},
			OnDuty:   false,
			Open24h:  false,
			PhotoURL: strPtr("https://images.unsplash.com/photo-1538108149393-fbbd81895907?q=80&w=2128&auto=format&fit=crop"),
		},
		{
			Name:     "Pharmacie de la Liberté",
			Type:     establishment.TypePharmacy,
			Address:  "Boulevard de la Liberté, Douala",
			Lat:      4.0511,
			Lon:      9.7115,
			Phone:    "+237 233 98 76 54",
			Hours:    map[string]string{"Lundi-Samedi": "08:00 - 21:00", "Dimanche": "09:00 - 13:00"},
			OnDuty:   false,
			Open24h:  false,
			PhotoURL: strPtr("https://images.unsplash.com/photo-1605658144498-651d2f974757?q=80&w=2070&auto=format&fit=crop"),
		},
		{
			Name:     "Pharmacie des Acacias",
			Type:     establishment.TypePharmacy,
			Address:  "Rond Point Deido, Douala",
			Lat:      4.0600,
			Lon:      9.7200,
			Phone:    "+237 233 11 22 33",
			Hours:    map[string]string{"Tous les jours": "24h/24"},
			OnDuty:   false,
			Open24h:  true,
			PhotoURL: strPtr("https://images.unsplash.com/photo-1576683567232-a32863a44315?q=80&w=1974&auto=format&fit=crop"),
		},
	}
}

type demoReview struct {
	establishment int // index into Establishments()
	userID        int64
	userName      string
	rating        int
	comment       string
}

var demoReviews = []demoReview{
	{0, 1, "Alice", 5, "Service impeccable et personnel très compétent. Toujours de bon conseil."},
	{0, 2, "Bob Premium", 4, "Très bonne pharmacie, un peu d'attente aux heures de pointe."},
	{1, 1, "Alice", 3, "Les urgences sont efficaces mais le bâtiment mériterait une rénovation."},
}

// Result counts the inserted rows.
type Result struct {
	Establishments int
	Reviews        int
	Skipped        bool
}

// Run inserts the demo data unless establishments already exist and force
// is false. Call it inside db.WithTx so a failure leaves nothing behind.
func Run(ctx context.Context, ests establishment.EstablishmentRepository, reviews establishment.ReviewRepository, force bool) (Result, error) {
	existing, err := ests.List(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("check existing establishments: %w", err)
	}
	if len(existing) > 0 && !force {
		return Result{Skipped: true}, nil
	}

	var res Result
	created := Establishments()
	for _, e := range created {
		if err := ests.Create(ctx, e); err != nil {
			return Result{}, fmt.Errorf("seed %q: %w", e.Name, err)
		}
		res.Establishments++
	}
	for _, d := range demoReviews {
		rv := &establishment.Review{
			EstablishmentID: created[d.establishment].ID,
			UserID:          d.userID,
			UserName:        d.userName,
			Rating:          d.rating,
			Comment:         strPtr(d.comment),
		}
		if err := reviews.Create(ctx, rv); err != nil {
			return Result{}, fmt.Errorf("seed review: %w", err)
		}
		res.Reviews++
	}
	return res, nil
}
