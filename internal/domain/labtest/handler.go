package labtest

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/sudarshannathmazumdar123/bookmydoct-be-v2/internal/platform/auth"
	"github.com/sudarshannathmazumdar123/bookmydoct-be-v2/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	clinicGroup := api.Group("/clinic", auth.RequireRole(auth.RoleClinic))
	clinicGroup.GET("/lab-tests", h.ListOwn)
	clinicGroup.POST("/lab-tests", h.Create)
	clinicGroup.PUT("/lab-tests/:id", h.Update)
	clinicGroup.DELETE("/lab-tests/:id", h.Delete)

	userGroup := api.Group("/user", auth.RequireRole(auth.RoleUser))
	userGroup.GET("/lab-tests", h.ListForClinic)
}

type request struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
}

func ownClinicID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(auth.ClinicIDFromContext(c.Request().Context()))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusForbidden, "no clinic linked to account")
	}
	return id, nil
}

func (h *Handler) Create(c echo.Context) error {
	cid, err := ownClinicID(c)
	if err != nil {
		return err
	}
	var req request
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	lt, err := h.svc.Create(c.Request().Context(), cid, Input(req))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, lt)
}

func (h *Handler) Update(c echo.Context) error {
	cid, err := ownClinicID(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req request
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	lt, err := h.svc.Update(c.Request().Context(), cid, id, Input(req))
	if err != nil {
		if err == ErrNotFound {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, lt)
}

func (h *Handler) Delete(c echo.Context) error {
	cid, err := ownClinicID(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), cid, id); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "lab test not found")
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "lab test deleted"})
}

func (h *Handler) ListOwn(c echo.Context) error {
	cid, err := ownClinicID(c)
	if err != nil {
		return err
	}
	return h.list(c, cid)
}

func (h *Handler) ListForClinic(c echo.Context) error {
	cid, err := uuid.Parse(c.QueryParam("clinic_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "clinic_id is required")
	}
	return h.list(c, cid)
}

func (h *Handler) list(c echo.Context, clinicID uuid.UUID) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByClinic(c.Request().Context(), clinicID, c.QueryParam("search"), pg.Limit, pg.Offset())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}
