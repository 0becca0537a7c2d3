package establishment

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/pharmagarde/pharmagarde/internal/geo"
	"github.com/pharmagarde/pharmagarde/internal/platform/apperr"
	"github.com/pharmagarde/pharmagarde/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the establishment routes on api. Mutations go
// through requireUser.
func (h *Handler) RegisterRoutes(api *echo.Group, requireUser echo.MiddlewareFunc) {
	api.GET("/establishments", h.ListEstablishments)
	api.GET("/establishments/:id", h.GetEstablishment)

	write := api.Group("", requireUser)
	write.POST("/establishments", h.CreateEstablishment)
	write.PUT("/establishments/:id/status", h.SetStatus)
	write.POST("/establishments/:id/reviews", h.AddReview)
}

func (h *Handler) ListEstablishments(c echo.Context) error {
	q, err := parseListQuery(c)
	if err != nil {
		return err
	}
	items, err := h.svc.ListEstablishments(c.Request().Context(), q)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) GetEstablishment(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	near, err := parseCoordinates(c)
	if err != nil {
		return err
	}
	e, err := h.svc.GetEstablishment(c.Request().Context(), id, near)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) CreateEstablishment(c echo.Context) error {
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	e, err := req.Validate()
	if err != nil {
		return err
	}
	if err := h.svc.CreateEstablishment(c.Request().Context(), e); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, e)
}

func (h *Handler) SetStatus(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req StatusRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}
	if err := h.svc.SetOnDuty(c.Request().Context(), id, *req.OnDuty); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) AddReview(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	user, ok := auth.UserFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	var req ReviewRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}
	rv := &Review{
		EstablishmentID: id,
		UserID:          user.ID,
		UserName:        user.Name,
		Rating:          *req.Rating,
		Comment:         req.Comment,
	}
	if err := h.svc.AddReview(c.Request().Context(), rv); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, rv)
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func parseFloatParam(c echo.Context, name string) (*float64, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, apperr.Invalid(name, "must be a number")
	}
	return &v, nil
}

func parseBoolParam(c echo.Context, name string) (*bool, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, apperr.Invalid(name, "must be true or false")
	}
	return &v, nil
}

// parseCoordinates reads lat/lon. Both or neither must be present.
func parseCoordinates(c echo.Context) (*geo.Coordinates, error) {
	lat, err := parseFloatParam(c, "lat")
	if err != nil {
		return nil, err
	}
	lon, err := parseFloatParam(c, "lon")
	if err != nil {
		return nil, err
	}
	switch {
	case lat == nil && lon == nil:
		return nil, nil
	case lat == nil:
		return nil, apperr.Invalid("lat", "is required when lon is given")
	case lon == nil:
		return nil, apperr.Invalid("lon", "is required when lat is given")
	}
	p := geo.Coordinates{Lat: *lat, Lon: *lon}
	if !p.Valid() {
		return nil, apperr.Invalid("lat", "coordinates out of range")
	}
	return &p, nil
}

func parseListQuery(c echo.Context) (ListQuery, error) {
	var q ListQuery
	var err error
	if q.Near, err = parseCoordinates(c); err != nil {
		return q, err
	}
	if q.RadiusKm, err = parseFloatParam(c, "radius"); err != nil {
		return q, err
	}
	if q.RadiusKm != nil && !(*q.RadiusKm > 0) {
		return q, apperr.Invalid("radius", "must be greater than 0")
	}
	if raw := c.QueryParam("type"); raw != "" {
		t, err := ParseType(raw)
		if err != nil {
			return q, apperr.Invalid("type", "must be one of pharmacy, hospital, healthCenter")
		}
		q.Type = &t
	}
	if q.OnDuty, err = parseBoolParam(c, "onDuty"); err != nil {
		return q, err
	}
	if q.Open24h, err = parseBoolParam(c, "open24h"); err != nil {
		return q, err
	}
	if q.Near == nil {
		q.RadiusKm = nil
	}
	return q, nil
}
