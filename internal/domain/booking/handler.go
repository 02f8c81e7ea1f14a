package booking

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/sudarshannathmazumdar123/bookmydoct-be-v2/internal/platform/auth"
	"github.com/sudarshannathmazumdar123/bookmydoct-be-v2/internal/platform/payments"
	"github.com/sudarshannathmazumdar123/bookmydoct-be-v2/pkg/pagination"
)

type Handler struct {
	svc              *Service
	gateway          payments.Gateway
	webhookSecret    string
	labWebhookSecret string
	log              zerolog.Logger
}

func NewHandler(svc *Service, gateway payments.Gateway, webhookSecret, labWebhookSecret string, log zerolog.Logger) *Handler {
	return &Handler{
		svc:              svc,
		gateway:          gateway,
		webhookSecret:    webhookSecret,
		labWebhookSecret: labWebhookSecret,
		log:              log,
	}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	userGroup := api.Group("/user", auth.RequireRole(auth.RoleUser))
	userGroup.POST("/appointments", h.CreateAppointmentOrder)
	userGroup.GET("/appointments", h.ListUserAppointments)
	userGroup.POST("/lab-appointments", h.CreateLabOrder)
	userGroup.GET("/lab-appointments", h.ListUserLabAppointments)

	clinicGroup := api.Group("/clinic", auth.RequireRole(auth.RoleClinic))
	clinicGroup.GET("/appointments", h.ListClinicAppointments)
	clinicGroup.GET("/lab-appointments", h.ListClinicLabAppointments)
}

// RegisterWebhookRoutes mounts the provider callbacks. These stay outside
// the JWT group; the HMAC signature is the authentication.
func (h *Handler) RegisterWebhookRoutes(public *echo.Group) {
	public.POST("/user/webhook/appointments", h.AppointmentWebhook)
	public.POST("/user/webhook/labtests", h.LabWebhook)
}

func userID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid token subject")
	}
	return id, nil
}

func clinicID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(auth.ClinicIDFromContext(c.Request().Context()))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusForbidden, "no clinic linked to account")
	}
	return id, nil
}

func writeErr(err error) error {
	switch {
	case errors.Is(err, ErrSlotFull):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
}

func (h *Handler) CreateAppointmentOrder(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	var in AppointmentInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	order, err := h.svc.CreateAppointmentOrder(c.Request().Context(), uid, in)
	if err != nil {
		return writeErr(err)
	}
	return c.JSON(http.StatusCreated, order)
}

func (h *Handler) CreateLabOrder(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	var in LabInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	order, err := h.svc.CreateLabOrder(c.Request().Context(), uid, in)
	if err != nil {
		return writeErr(err)
	}
	return c.JSON(http.StatusCreated, order)
}

func (h *Handler) ListUserAppointments(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListForUser(c.Request().Context(), uid, pg.Limit, pg.Offset())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) ListClinicAppointments(c echo.Context) error {
	cid, err := clinicID(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListForClinic(c.Request().Context(), cid, pg.Limit, pg.Offset())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) ListUserLabAppointments(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListLabForUser(c.Request().Context(), uid, pg.Limit, pg.Offset())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) ListClinicLabAppointments(c echo.Context) error {
	cid, err := clinicID(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListLabForClinic(c.Request().Context(), cid, pg.Limit, pg.Offset())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

type webhookPayload struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string            `json:"id"`
				OrderID string            `json:"order_id"`
				Notes   map[string]string `json:"notes"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

func (h *Handler) AppointmentWebhook(c echo.Context) error {
	return h.handleWebhook(c, h.webhookSecret, h.svc.ConfirmAppointment)
}

func (h *Handler) LabWebhook(c echo.Context) error {
	return h.handleWebhook(c, h.labWebhookSecret, h.svc.ConfirmLabBooking)
}

func (h *Handler) handleWebhook(c echo.Context, secret string, confirm func(context.Context, CapturedPayment) error) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable body")
	}

	signature := c.Request().Header.Get("X-Razorpay-Signature")
	if !h.gateway.VerifyWebhookSignature(body, signature, secret) {
		h.log.Warn().Str("path", c.Path()).Msg("webhook signature rejected")
		return echo.NewHTTPError(http.StatusBadRequest, "invalid signature")
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed payload")
	}
	if payload.Event != "payment.captured" {
		return c.JSON(http.StatusOK, map[string]string{"status": "ignored"})
	}

	eventID := c.Request().Header.Get("X-Razorpay-Event-Id")
	if eventID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing event id")
	}

	ev := CapturedPayment{
		EventID:   eventID,
		PaymentID: payload.Payload.Payment.Entity.ID,
		OrderID:   payload.Payload.Payment.Entity.OrderID,
		Notes:     payload.Payload.Payment.Entity.Notes,
	}

	err = confirm(c.Request().Context(), ev)
	if errors.Is(err, ErrSlotFull) {
		// Payment went through but the slot filled in the meantime. A retry
		// cannot succeed, so acknowledge and leave the refund to support.
		h.log.Error().Str("event_id", ev.EventID).Str("order_id", ev.OrderID).
			Msg("captured payment for a full slot, refund needed")
		return c.JSON(http.StatusOK, map[string]string{"status": "slot full"})
	}
	if err != nil {
		h.log.Error().Err(err).Str("event_id", ev.EventID).Msg("webhook processing failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "processing failed")
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
