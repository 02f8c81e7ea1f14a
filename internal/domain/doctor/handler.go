package doctor

import (
	"errors"
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
	clinicGroup.GET("/doctors", h.ListClinicDoctors)
	clinicGroup.POST("/doctors", h.AddDoctor)
	clinicGroup.GET("/doctors/lookup", h.LookupByRegistration)
	clinicGroup.GET("/doctors/:id", h.GetClinicDoctor)
	clinicGroup.PUT("/doctors/:id", h.UpdateDoctor)
	clinicGroup.DELETE("/doctors/:id", h.RemoveDoctor)
	clinicGroup.GET("/doctors/:id/schedule", h.GetClinicSchedule)
	clinicGroup.PUT("/doctors/:id/schedule", h.ReplaceSchedule)
	clinicGroup.PUT("/doctors/schedule/:entryId", h.EditEntry)
	clinicGroup.DELETE("/doctors/schedule/:entryId", h.DeleteEntry)

	userGroup := api.Group("/user", auth.RequireRole(auth.RoleUser))
	userGroup.GET("/doctors", h.SearchDoctors)
	userGroup.GET("/doctors/:id", h.GetDoctor)
	userGroup.GET("/doctors/:id/slots", h.DoctorSlots)
}

// writeErr maps domain errors onto HTTP statuses the way every schedule
// mutation endpoint needs.
func writeErr(err error) error {
	var cerr *ConflictError
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrEntryNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrVersionConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.As(err, &cerr):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
}

type entryRequest struct {
	Day       string `json:"day"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	MaxSlots  int    `json:"max_slots"`
}

func toEntries(reqs []entryRequest) []ScheduleEntry {
	entries := make([]ScheduleEntry, len(reqs))
	for i, r := range reqs {
		entries[i] = ScheduleEntry{
			Day:       r.Day,
			StartTime: r.StartTime,
			EndTime:   r.EndTime,
			MaxSlots:  r.MaxSlots,
		}
	}
	return entries
}

type addDoctorRequest struct {
	RegistrationNumber string         `json:"registration_number"`
	FullName           string         `json:"full_name"`
	Email              string         `json:"email"`
	Specialization     string         `json:"specialization"`
	MedicalDegree      string         `json:"medical_degree"`
	ExperienceYears    int            `json:"experience_years"`
	Phone              string         `json:"phone"`
	Fee                float64        `json:"fee"`
	Schedule           []entryRequest `json:"schedule"`
}

func clinicID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(auth.ClinicIDFromContext(c.Request().Context()))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusForbidden, "no clinic linked to account")
	}
	return id, nil
}

func (h *Handler) AddDoctor(c echo.Context) error {
	cid, err := clinicID(c)
	if err != nil {
		return err
	}
	var req addDoctorRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	d, err := h.svc.UpsertForClinic(c.Request().Context(), cid, UpsertInput{
		RegistrationNumber: req.RegistrationNumber,
		FullName:           req.FullName,
		Email:              req.Email,
		Specialization:     req.Specialization,
		MedicalDegree:      req.MedicalDegree,
		ExperienceYears:    req.ExperienceYears,
		Phone:              req.Phone,
		Fee:                req.Fee,
		Entries:            toEntries(req.Schedule),
	})
	if err != nil {
		return writeErr(err)
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) ListClinicDoctors(c echo.Context) error {
	cid, err := clinicID(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByClinic(c.Request().Context(), cid, c.QueryParam("search"), pg.Limit, pg.Offset())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) LookupByRegistration(c echo.Context) error {
	regNo := c.QueryParam("registration_number")
	if regNo == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "registration_number is required")
	}
	d, err := h.svc.GetByRegistrationNumber(c.Request().Context(), regNo)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "doctor not found")
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) GetClinicDoctor(c echo.Context) error {
	cid, err := clinicID(c)
	if err != nil {
		return err
	}
	did, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	d, err := h.svc.Get(c.Request().Context(), did)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "doctor not found")
	}
	fee, err := h.svc.Fee(c.Request().Context(), did, cid)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "doctor not found")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"doctor": d,
		"fee":    fee,
	})
}

func (h *Handler) UpdateDoctor(c echo.Context) error {
	cid, err := clinicID(c)
	if err != nil {
		return err
	}
	did, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req struct {
		FullName        string   `json:"full_name"`
		Email           string   `json:"email"`
		Specialization  string   `json:"specialization"`
		MedicalDegree   string   `json:"medical_degree"`
		ExperienceYears *int     `json:"experience_years"`
		Phone           string   `json:"phone"`
		Fee             *float64 `json:"fee"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	d, err := h.svc.UpdateForClinic(c.Request().Context(), cid, did, UpdateInput{
		FullName:        req.FullName,
		Email:           req.Email,
		Specialization:  req.Specialization,
		MedicalDegree:   req.MedicalDegree,
		ExperienceYears: req.ExperienceYears,
		Phone:           req.Phone,
		Fee:             req.Fee,
	})
	if err != nil {
		return writeErr(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) RemoveDoctor(c echo.Context) error {
	cid, err := clinicID(c)
	if err != nil {
		return err
	}
	did, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.RemoveFromClinic(c.Request().Context(), cid, did); err != nil {
		return writeErr(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "doctor removed"})
}

func (h *Handler) GetClinicSchedule(c echo.Context) error {
	cid, err := clinicID(c)
	if err != nil {
		return err
	}
	did, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	entries, err := h.svc.Schedule(c.Request().Context(), did, cid)
	if err != nil {
		return writeErr(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"schedule": entries})
}

func (h *Handler) ReplaceSchedule(c echo.Context) error {
	cid, err := clinicID(c)
	if err != nil {
		return err
	}
	did, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req struct {
		Schedule []entryRequest `json:"schedule"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.ReplaceSchedule(c.Request().Context(), cid, did, toEntries(req.Schedule)); err != nil {
		return writeErr(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "schedule updated"})
}

func (h *Handler) EditEntry(c echo.Context) error {
	cid, err := clinicID(c)
	if err != nil {
		return err
	}
	eid, err := uuid.Parse(c.Param("entryId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid entry id")
	}
	var patch EntryPatch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	entry, err := h.svc.EditEntry(c.Request().Context(), cid, eid, patch)
	if err != nil {
		return writeErr(err)
	}
	return c.JSON(http.StatusOK, entry)
}

func (h *Handler) DeleteEntry(c echo.Context) error {
	cid, err := clinicID(c)
	if err != nil {
		return err
	}
	eid, err := uuid.Parse(c.Param("entryId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid entry id")
	}
	if err := h.svc.DeleteEntry(c.Request().Context(), cid, eid); err != nil {
		return writeErr(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "entry deleted"})
}

func (h *Handler) SearchDoctors(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.Search(c.Request().Context(),
		c.QueryParam("search"), c.QueryParam("specialization"), pg.Limit, pg.Offset())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) GetDoctor(c echo.Context) error {
	did, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	d, err := h.svc.Get(c.Request().Context(), did)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "doctor not found")
	}
	return c.JSON(http.StatusOK, d)
}

// DoctorSlots returns the doctor's weekly windows at one clinic so a
// patient can pick a bookable slot.
func (h *Handler) DoctorSlots(c echo.Context) error {
	did, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	cid, err := uuid.Parse(c.QueryParam("clinic_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "clinic_id is required")
	}
	entries, err := h.svc.Schedule(c.Request().Context(), did, cid)
	if err != nil {
		return writeErr(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"slots": entries})
}
