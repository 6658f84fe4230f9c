package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Eursukkul/attendance-service/internal/dto"
	"github.com/Eursukkul/attendance-service/internal/models"
	"github.com/Eursukkul/attendance-service/internal/service"
	"github.com/labstack/echo/v4"
)

type RegistrationHandler struct {
	svc service.RegistrationService
}

func NewRegistrationHandler(svc service.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{svc: svc}
}

func (h *RegistrationHandler) RegisterRoutes(e *echo.Echo) {
	events := e.Group("/api/v1/events")
	events.POST("/:id/registrations", h.CreateRegistration)
	events.GET("/:id/registrations", h.ListRegistrations)

	e.GET("/api/v1/registrations/:id", h.GetRegistration)
	e.DELETE("/api/v1/registrations/:id", h.CancelRegistration)
}

func (h *RegistrationHandler) CreateRegistration(c echo.Context) error {
	eventID, err := uintParam(c, "id", "event id")
	if err != nil {
		return err
	}

	var req dto.CreateRegistrationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	reg, err := h.svc.Register(c.Request().Context(), service.RegisterInput{
		EventID:      eventID,
		MemberID:     req.MemberID,
		Kind:         req.Type,
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		Body:         req.Body,
		ChandaNumber: req.ChandaNumber,
		Circuit:      req.Circuit,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEventClosed):
			return c.JSON(http.StatusBadRequest, map[string]string{
				"status":  string(service.StatusEventClosed),
				"message": err.Error(),
			})
		case errors.Is(err, service.ErrEventNotFound), errors.Is(err, service.ErrMemberNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrInvalidRegistration), errors.Is(err, service.ErrNotRegistrationEvent):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.JSON(http.StatusCreated, dto.ToRegistrationResponse(reg, true))
}

func (h *RegistrationHandler) GetRegistration(c echo.Context) error {
	reg, err := h.svc.GetRegistration(c.Request().Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		if errors.Is(err, service.ErrRegistrationNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, dto.ToRegistrationResponse(reg, true))
}

func (h *RegistrationHandler) CancelRegistration(c echo.Context) error {
	reg, err := h.svc.CancelRegistration(c.Request().Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRegistrationNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrAlreadyCancelled):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusOK, dto.ToRegistrationResponse(reg, false))
}

func (h *RegistrationHandler) ListRegistrations(c echo.Context) error {
	eventID, err := uintParam(c, "id", "event id")
	if err != nil {
		return err
	}

	var status *models.RegistrationStatus
	if s := c.QueryParam("status"); s != "" {
		rs := models.RegistrationStatus(s)
		status = &rs
	}

	regs, err := h.svc.ListRegistrations(c.Request().Context(), eventID, status)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	resp := make([]dto.RegistrationResponse, len(regs))
	for i := range regs {
		resp[i] = dto.ToRegistrationResponse(&regs[i], false)
	}
	return c.JSON(http.StatusOK, resp)
}
