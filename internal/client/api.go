// Package client is the consumer side of the directory API: a typed HTTP
// client, a durable last-known-good snapshot and the controller deciding
// between live data and the snapshot.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pharmagarde/pharmagarde/internal/domain/establishment"
	"github.com/pharmagarde/pharmagarde/internal/geo"
)

// ConnectivityError means the server could not be reached at all.
type ConnectivityError struct {
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("server unreachable: %v", e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// ServerError is a non-2xx answer from the server.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

// API talks to the directory server.
type API struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewAPI(baseURL, token string, timeout time.Duration) *API {
	return &API{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

// BaseURL is the API root this client talks to.
func (a *API) BaseURL() string { return a.baseURL }

// do sends a request and returns the body of a 2xx answer. A 204 yields a
// nil body.
func (a *API) do(ctx context.Context, method, path string, query url.Values, in any) ([]byte, error) {
	u := a.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, &ConnectivityError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ConnectivityError{Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ServerError{Status: resp.StatusCode, Message: errorMessage(resp.StatusCode, raw)}
	}
	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	return raw, nil
}

func errorMessage(status int, raw []byte) string {
	var body struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Message != "" {
		return body.Message
	}
	return http.StatusText(status)
}

// ListParams are the optional query parameters of the list endpoint.
type ListParams struct {
	Near     *geo.Coordinates
	RadiusKm float64
}

func (p ListParams) values() url.Values {
	q := url.Values{}
	if p.Near != nil {
		q.Set("lat", strconv.FormatFloat(p.Near.Lat, 'f', -1, 64))
		q.Set("lon", strconv.FormatFloat(p.Near.Lon, 'f', -1, 64))
		if p.RadiusKm > 0 {
			q.Set("radius", strconv.FormatFloat(p.RadiusKm, 'f', -1, 64))
		}
	}
	return q
}

// ListEstablishments returns the raw JSON array and its decoded form.
func (a *API) ListEstablishments(ctx context.Context, p ListParams) ([]byte, []*establishment.Establishment, error) {
	raw, err := a.do(ctx, http.MethodGet, "/establishments", p.values(), nil)
	if err != nil {
		return nil, nil, err
	}
	items, err := DecodeEstablishments(raw)
	if err != nil {
		return nil, nil, err
	}
	return raw, items, nil
}

// DecodeEstablishments parses a list payload as returned by the server.
func DecodeEstablishments(raw []byte) ([]*establishment.Establishment, error) {
	var items []*establishment.Establishment
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode establishments: %w", err)
	}
	return items, nil
}

func (a *API) SetStatus(ctx context.Context, id int64, onDuty bool) error {
	_, err := a.do(ctx, http.MethodPut, "/establishments/"+strconv.FormatInt(id, 10)+"/status", nil,
		map[string]bool{"onDuty": onDuty})
	return err
}

func (a *API) CreateEstablishment(ctx context.Context, req *establishment.CreateRequest) (*establishment.Establishment, error) {
	raw, err := a.do(ctx, http.MethodPost, "/establishments", nil, req)
	if err != nil {
		return nil, err
	}
	var e establishment.Establishment
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("decode establishment: %w", err)
	}
	return &e, nil
}

func (a *API) AddReview(ctx context.Context, establishmentID int64, req *establishment.ReviewRequest) (*establishment.Review, error) {
	raw, err := a.do(ctx, http.MethodPost, "/establishments/"+strconv.FormatInt(establishmentID, 10)+"/reviews", nil, req)
	if err != nil {
		return nil, err
	}
	var rv establishment.Review
	if err := json.Unmarshal(raw, &rv); err != nil {
		return nil, fmt.Errorf("decode review: %w", err)
	}
	return &rv, nil
}
