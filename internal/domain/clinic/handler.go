package clinic

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

// RegisterRoutes mounts the patient-facing, clinic-side and admin clinic
// endpoints. The group is expected to sit behind the JWT middleware.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	userGroup := api.Group("/user", auth.RequireRole(auth.RoleUser))
	userGroup.GET("/clinics", h.SearchClinics)
	userGroup.GET("/clinics/cities", h.Cities)
	userGroup.GET("/clinics/lab-tests", h.SearchLabClinics)
	userGroup.GET("/clinics/:id", h.GetClinic)

	clinicGroup := api.Group("/clinic", auth.RequireRole(auth.RoleClinic))
	clinicGroup.GET("/details", h.OwnDetails)
	clinicGroup.PUT("/details", h.UpdateDetails)

	adminGroup := api.Group("/admin", auth.RequireRole(auth.RoleAdmin))
	adminGroup.GET("/clinics/unverified", h.ListUnverified)
	adminGroup.PUT("/clinics/:id/verify", h.VerifyClinic)
}

func (h *Handler) SearchClinics(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.Search(c.Request().Context(),
		c.QueryParam("search"), c.QueryParam("city"), pg.Limit, pg.Offset())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) SearchLabClinics(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.SearchLabClinics(c.Request().Context(),
		c.QueryParam("search"), c.QueryParam("city"), pg.Limit, pg.Offset())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) Cities(c echo.Context) error {
	cities, err := h.svc.Cities(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"cities": cities})
}

func (h *Handler) GetClinic(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	cl, err := h.svc.GetVerified(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "clinic not found")
	}
	return c.JSON(http.StatusOK, cl)
}

func ownClinicID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(auth.ClinicIDFromContext(c.Request().Context()))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusForbidden, "no clinic linked to account")
	}
	return id, nil
}

func (h *Handler) OwnDetails(c echo.Context) error {
	id, err := ownClinicID(c)
	if err != nil {
		return err
	}
	cl, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "clinic not found")
	}
	return c.JSON(http.StatusOK, cl)
}

type updateRequest struct {
	Name       string   `json:"name"`
	AddressOne string   `json:"address_one"`
	AddressTwo string   `json:"address_two"`
	City       string   `json:"city"`
	State      string   `json:"state"`
	Pincode    string   `json:"pincode"`
	Phone      string   `json:"phone"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
}

func (h *Handler) UpdateDetails(c echo.Context) error {
	id, err := ownClinicID(c)
	if err != nil {
		return err
	}
	var req updateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cl, err := h.svc.Update(c.Request().Context(), id, UpdateInput{
		Name:       req.Name,
		AddressOne: req.AddressOne,
		AddressTwo: req.AddressTwo,
		City:       req.City,
		State:      req.State,
		Pincode:    req.Pincode,
		Phone:      req.Phone,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, cl)
}

func (h *Handler) ListUnverified(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListUnverified(c.Request().Context(), pg.Limit, pg.Offset())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) VerifyClinic(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Verify(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "clinic not found")
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "clinic verified"})
}
