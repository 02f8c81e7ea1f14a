package identity

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/sudarshannathmazumdar123/bookmydoct-be-v2/internal/platform/auth"
	"github.com/sudarshannathmazumdar123/bookmydoct-be-v2/pkg/pagination"
)

type Handler struct {
	svc    *Service
	issuer *auth.TokenIssuer
}

func NewHandler(svc *Service, issuer *auth.TokenIssuer) *Handler {
	return &Handler{svc: svc, issuer: issuer}
}

// RegisterRoutes mounts the public auth endpoints on api and the
// authenticated profile endpoints behind the JWT middleware.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/auth")
	g.POST("/user/signup", h.SignupUser)
	g.POST("/admin/signup", h.SignupAdmin)
	g.POST("/clinic/signup", h.SignupClinic)
	g.POST("/:role/login", h.Login)
	g.POST("/:role/forgot-password", h.ForgotPassword)
	g.POST("/:role/reset-password", h.ResetPassword)
	g.POST("/refresh", h.Refresh)

	me := g.Group("", auth.JWTMiddleware(h.issuer))
	me.POST("/change-password", h.ChangePassword)
	me.GET("/details", h.Details)
	me.PUT("/edit", h.Edit)
}

// RegisterClinicRoutes mounts the clinic staff account management endpoints.
// The group is expected to sit behind the JWT middleware.
func (h *Handler) RegisterClinicRoutes(protected *echo.Group) {
	g := protected.Group("/clinic/users", auth.RequireRole(auth.RoleClinic))
	g.POST("", h.CreateStaff)
	g.GET("", h.ListStaff)
	g.PUT("/:id", h.EditStaff)
	g.DELETE("/:id", h.DeleteStaff)
}

type signupRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

func (r signupRequest) input() SignupInput {
	return SignupInput{
		FullName: r.FullName,
		Email:    r.Email,
		Password: r.Password,
		Phone:    r.Phone,
		Address:  r.Address,
	}
}

func (h *Handler) SignupUser(c echo.Context) error  { return h.signup(c, RoleUser) }
func (h *Handler) SignupAdmin(c echo.Context) error { return h.signup(c, RoleAdmin) }

func (h *Handler) signup(c echo.Context, role string) error {
	var req signupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.Signup(c.Request().Context(), role, req.input())
	if err != nil {
		if err == ErrDuplicateEmail {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, a)
}

type clinicSignupRequest struct {
	signupRequest
	ClinicName string   `json:"clinic_name"`
	AddressOne string   `json:"address_one"`
	AddressTwo string   `json:"address_two"`
	City       string   `json:"city"`
	State      string   `json:"state"`
	Pincode    string   `json:"pincode"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
}

func (h *Handler) SignupClinic(c echo.Context) error {
	var req clinicSignupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	reg := ClinicRegistration{
		Name:       req.ClinicName,
		Email:      NormalizeEmail(req.Email),
		AddressOne: req.AddressOne,
		AddressTwo: req.AddressTwo,
		City:       req.City,
		State:      req.State,
		Pincode:    req.Pincode,
		Phone:      req.Phone,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
	}
	a, err := h.svc.SignupClinic(c.Request().Context(), req.input(), reg)
	if err != nil {
		if err == ErrDuplicateEmail {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, a)
}

func roleParam(c echo.Context) (string, error) {
	role := c.Param("role")
	switch role {
	case RoleUser, RoleClinic, RoleAdmin:
		return role, nil
	}
	return "", echo.NewHTTPError(http.StatusNotFound, "unknown role")
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(c echo.Context) error {
	role, err := roleParam(c)
	if err != nil {
		return err
	}
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, pair, err := h.svc.Login(c.Request().Context(), role, req.Email, req.Password)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"account": a,
		"tokens":  pair,
	})
}

func (h *Handler) ForgotPassword(c echo.Context) error {
	role, err := roleParam(c)
	if err != nil {
		return err
	}
	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.ForgotPassword(c.Request().Context(), role, req.Email); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not process request")
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "reset code sent if the account exists"})
}

func (h *Handler) ResetPassword(c echo.Context) error {
	role, err := roleParam(c)
	if err != nil {
		return err
	}
	var req struct {
		Email       string `json:"email"`
		OTP         string `json:"otp"`
		NewPassword string `json:"new_password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.ResetPassword(c.Request().Context(), role, req.Email, req.OTP, req.NewPassword); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "password updated"})
}

func (h *Handler) Refresh(c echo.Context) error {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	pair, err := h.svc.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	return c.JSON(http.StatusOK, pair)
}

func callerClinicID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(auth.ClinicIDFromContext(c.Request().Context()))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusForbidden, "no clinic linked to account")
	}
	return id, nil
}

func (h *Handler) CreateStaff(c echo.Context) error {
	clinicID, err := callerClinicID(c)
	if err != nil {
		return err
	}
	var req signupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.CreateStaff(c.Request().Context(), clinicID, req.input())
	if err != nil {
		if err == ErrDuplicateEmail {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) ListStaff(c echo.Context) error {
	clinicID, err := callerClinicID(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListStaff(c.Request().Context(), clinicID, pg.Limit, pg.Offset())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) EditStaff(c echo.Context) error {
	clinicID, err := callerClinicID(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req struct {
		FullName string `json:"full_name"`
		Email    string `json:"email"`
		Phone    string `json:"phone"`
		Address  string `json:"address"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.EditStaff(c.Request().Context(), clinicID, id, EditInput{
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    req.Phone,
		Address:  req.Address,
	})
	if err != nil {
		switch err {
		case ErrNotFound:
			return echo.NewHTTPError(http.StatusNotFound, "account not found")
		case ErrDuplicateEmail:
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) DeleteStaff(c echo.Context) error {
	clinicID, err := callerClinicID(c)
	if err != nil {
		return err
	}
	caller, err := callerID(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteStaff(c.Request().Context(), clinicID, caller, id); err != nil {
		if err == ErrNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "account not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "account removed"})
}

func callerID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid token subject")
	}
	return id, nil
}

func (h *Handler) ChangePassword(c echo.Context) error {
	id, err := callerID(c)
	if err != nil {
		return err
	}
	var req struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.ChangePassword(c.Request().Context(), id, req.OldPassword, req.NewPassword); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "password updated"})
}

func (h *Handler) Details(c echo.Context) error {
	id, err := callerID(c)
	if err != nil {
		return err
	}
	a, err := h.svc.Details(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "account not found")
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Edit(c echo.Context) error {
	id, err := callerID(c)
	if err != nil {
		return err
	}
	var req struct {
		FullName string `json:"full_name"`
		Email    string `json:"email"`
		Phone    string `json:"phone"`
		Address  string `json:"address"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.Edit(c.Request().Context(), id, EditInput{
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    req.Phone,
		Address:  req.Address,
	})
	if err != nil {
		if err == ErrDuplicateEmail {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, a)
}
