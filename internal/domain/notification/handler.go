package notification

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/notifications")
	g.GET("/vapid-key", h.VAPIDKey)
	g.POST("/subscribe", h.Subscribe)
	g.POST("/unsubscribe", h.Unsubscribe)
}

type successResponse struct {
	Success bool `json:"success"`
}

func (h *Handler) VAPIDKey(c echo.Context) error {
	key := h.svc.PublicKey()
	if key == "" {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "push notifications are not configured")
	}
	return c.JSON(http.StatusOK, map[string]string{"key": key})
}

func (h *Handler) Subscribe(c echo.Context) error {
	var req SubscribeRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	sub, err := req.Validate()
	if err != nil {
		return err
	}
	if err := h.svc.Subscribe(c.Request().Context(), sub); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, successResponse{Success: true})
}

func (h *Handler) Unsubscribe(c echo.Context) error {
	var req struct {
		Endpoint string `json:"endpoint"`
	}
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := h.svc.Unsubscribe(c.Request().Context(), req.Endpoint); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, successResponse{Success: true})
}
