package establishment

import (
	"fmt"
	"time"

	"github.com/pharmagarde/pharmagarde/internal/geo"
)

type Type string

const (
	TypePharmacy     Type = "pharmacy"
	TypeHospital     Type = "hospital"
	TypeHealthCenter Type = "healthCenter"
)

func (t Type) Valid() bool {
	switch t {
	case TypePharmacy, TypeHospital, TypeHealthCenter:
		return true
	}
	return false
}

// ParseType accepts the wire name of an establishment type.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown establishment type %q", s)
	}
	return t, nil
}

// Establishment is a pharmacy, hospital or health center. Distance,
// Reviews and AvgRating are computed per query and never stored.
type Establishment struct {
	ID        int64             `json:"id"`
	Name      string            `json:"name"`
	Type      Type              `json:"type"`
	Address   string            `json:"address"`
	Lat       float64           `json:"lat"`
	Lon       float64           `json:"lon"`
	Phone     string            `json:"phone"`
	Hours     map[string]string `json:"hours"`
	OnDuty    bool              `json:"onDuty"`
	Open24h   bool              `json:"open24h"`
	PhotoURL  *string           `json:"photoUrl,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`

	Distance  *float64  `json:"distance"`
	Reviews   []*Review `json:"reviews"`
	AvgRating float64   `json:"avgRating"`
}

func (e *Establishment) Coordinates() geo.Coordinates {
	return geo.Coordinates{Lat: e.Lat, Lon: e.Lon}
}

// Review is immutable once created. UserName is copied from the author's
// token at creation time.
type Review struct {
	ID              int64     `json:"id"`
	EstablishmentID int64     `json:"establishmentId"`
	UserID          int64     `json:"userId"`
	UserName        string    `json:"userName"`
	Rating          int       `json:"rating"`
	Comment         *string   `json:"comment,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// StatusEvent is the notification payload emitted when an establishment's
// duty status changes.
type StatusEvent struct {
	Title           string `json:"title"`
	Body            string `json:"body"`
	EstablishmentID int64  `json:"establishmentId"`
	OnDuty          bool   `json:"onDuty"`
}

const statusTitle = "Changement de statut"

// NewStatusEvent builds the user-facing message for a duty change.
func NewStatusEvent(e *Establishment, onDuty bool) StatusEvent {
	body := fmt.Sprintf("La pharmacie \"%s\" n'est plus de garde.", e.Name)
	if onDuty {
		body = fmt.Sprintf("La pharmacie \"%s\" est maintenant de garde.", e.Name)
	}
	return StatusEvent{
		Title:           statusTitle,
		Body:            body,
		EstablishmentID: e.ID,
		OnDuty:          onDuty,
	}
}
