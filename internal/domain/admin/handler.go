package admin

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudarshannathmazumdar123/bookmydoct-be-v2/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the admin settings endpoints on api and the
// specialization list on public, since it feeds clinic and patient forms
// before login.
func (h *Handler) RegisterRoutes(api, public *echo.Group) {
	adminGroup := api.Group("/admin", auth.RequireRole(auth.RoleAdmin))
	adminGroup.GET("/settings", h.GetSettings)
	adminGroup.PUT("/settings", h.UpdateSettings)
	adminGroup.POST("/specializations", h.AddSpecialization)
	adminGroup.DELETE("/specializations/:name", h.RemoveSpecialization)

	public.GET("/specializations", h.ListSpecializations)
}

func (h *Handler) GetSettings(c echo.Context) error {
	settings, err := h.svc.Settings(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, settings)
}

func (h *Handler) UpdateSettings(c echo.Context) error {
	var req struct {
		PlatformFee   *float64 `json:"platform_fee"`
		BookingPct    *float64 `json:"booking_pct"`
		LabBookingPct *float64 `json:"lab_booking_pct"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	settings, err := h.svc.UpdateSettings(c.Request().Context(), UpdateInput{
		PlatformFee:   req.PlatformFee,
		BookingPct:    req.BookingPct,
		LabBookingPct: req.LabBookingPct,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, settings)
}

func (h *Handler) AddSpecialization(c echo.Context) error {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	settings, err := h.svc.AddSpecialization(c.Request().Context(), req.Name)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, settings)
}

func (h *Handler) RemoveSpecialization(c echo.Context) error {
	settings, err := h.svc.RemoveSpecialization(c.Request().Context(), c.Param("name"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.JSON(http.StatusOK, settings)
}

func (h *Handler) ListSpecializations(c echo.Context) error {
	settings, err := h.svc.Settings(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"specializations": settings.Specializations})
}
