package establishment

import (
	"net/url"
	"strings"

	"github.com/pharmagarde/pharmagarde/internal/platform/apperr"
)

// CreateRequest is the body of POST /establishments. Pointers distinguish
// missing fields from zero values.
type CreateRequest struct {
	Name     *string           `json:"name"`
	Type     *string           `json:"type"`
	Address  *string           `json:"address"`
	Lat      *float64          `json:"lat"`
	Lon      *float64          `json:"lon"`
	Phone    *string           `json:"phone"`
	Hours    map[string]string `json:"hours"`
	OnDuty   *bool             `json:"onDuty"`
	Open24h  *bool             `json:"open24h"`
	PhotoURL *string           `json:"photoUrl"`
}

func requiredString(v *apperr.ValidationError, field string, s *string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		v.Add(field, "is required")
		return ""
	}
	return strings.TrimSpace(*s)
}

// Validate checks every field and returns the establishment to insert.
func (r *CreateRequest) Validate() (*Establishment, error) {
	v := &apperr.ValidationError{}
	e := &Establishment{
		Name:    requiredString(v, "name", r.Name),
		Address: requiredString(v, "address", r.Address),
		Phone:   requiredString(v, "phone", r.Phone),
		Hours:   r.Hours,
	}

	if r.Type == nil {
		v.Add("type", "is required")
	} else if t, err := ParseType(*r.Type); err != nil {
		v.Add("type", "must be one of pharmacy, hospital, healthCenter")
	} else {
		e.Type = t
	}

	switch {
	case r.Lat == nil:
		v.Add("lat", "is required")
	case *r.Lat < -90 || *r.Lat > 90:
		v.Add("lat", "must be between -90 and 90")
	default:
		e.Lat = *r.Lat
	}
	switch {
	case r.Lon == nil:
		v.Add("lon", "is required")
	case *r.Lon < -180 || *r.Lon > 180:
		v.Add("lon", "must be between -180 and 180")
	default:
		e.Lon = *r.Lon
	}

	if r.Hours == nil {
		v.Add("hours", "must be an object")
	}

	if r.OnDuty == nil {
		v.Add("onDuty", "must be a boolean")
	} else {
		e.OnDuty = *r.OnDuty
	}
	if r.Open24h == nil {
		v.Add("open24h", "must be a boolean")
	} else {
		e.Open24h = *r.Open24h
	}

	if r.PhotoURL != nil && *r.PhotoURL != "" {
		if u, err := url.ParseRequestURI(*r.PhotoURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			v.Add("photoUrl", "must be a valid URL")
		} else {
			e.PhotoURL = r.PhotoURL
		}
	}

	if err := v.OrNil(); err != nil {
		return nil, err
	}
	return e, nil
}

const maxCommentLength = 2000

// ReviewRequest is the body of POST /establishments/:id/reviews.
type ReviewRequest struct {
	Rating  *int    `json:"rating"`
	Comment *string `json:"comment"`
}

func (r *ReviewRequest) Validate() error {
	v := &apperr.ValidationError{}
	if r.Rating == nil || *r.Rating < 1 || *r.Rating > 5 {
		v.Add("rating", "must be an integer between 1 and 5")
	}
	if r.Comment != nil && len(*r.Comment) > maxCommentLength {
		v.Add("comment", "is too long")
	}
	return v.OrNil()
}

// StatusRequest is the body of PUT /establishments/:id/status.
type StatusRequest struct {
	OnDuty *bool `json:"onDuty"`
}

func (r *StatusRequest) Validate() error {
	if r.OnDuty == nil {
		return apperr.Invalid("onDuty", "must be a boolean")
	}
	return nil
}
