package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/Eursukkul/attendance-service/internal/dto"
	"github.com/Eursukkul/attendance-service/internal/models"
	"github.com/Eursukkul/attendance-service/internal/presence"
	"github.com/Eursukkul/attendance-service/internal/service"
	"github.com/labstack/echo/v4"
)

type AttendanceLister interface {
	FindByEventID(ctx context.Context, eventID uint) ([]models.Attendance, error)
}

type ScannerLister interface {
	Active(ctx context.Context, eventID uint) ([]presence.Scanner, error)
}

type ValidationHandler struct {
	svc        service.ValidationService
	attendance AttendanceLister
	scanners   ScannerLister
}

func NewValidationHandler(svc service.ValidationService, attendance AttendanceLister, scanners ScannerLister) *ValidationHandler {
	return &ValidationHandler{svc: svc, attendance: attendance, scanners: scanners}
}

func (h *ValidationHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/v1/scan", h.Scan)
	e.POST("/api/v1/validate-code", h.ValidateCode)

	events := e.Group("/api/v1/events")
	events.GET("/:id/attendance", h.ListAttendance)
	events.GET("/:id/scanners", h.ListScanners)
}

func (h *ValidationHandler) Scan(c echo.Context) error {
	var req dto.ScanRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Token) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "token is required")
	}
	op := operatorID(c, req.OperatorID)
	if op == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "operator_id is required")
	}

	res, err := h.svc.Scan(c.Request().Context(), service.ScanInput{Token: req.Token, OperatorID: op, EventID: req.EventID})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(res.HTTPStatus, dto.ToValidationResponse(res))
}

func (h *ValidationHandler) ValidateCode(c echo.Context) error {
	var req dto.ValidateCodeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Code) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "code is required")
	}
	op := operatorID(c, req.OperatorID)
	if op == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "operator_id is required")
	}

	res, err := h.svc.ValidateByCode(c.Request().Context(), service.CodeInput{ShortCode: req.Code, OperatorID: op, EventID: req.EventID})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(res.HTTPStatus, dto.ToValidationResponse(res))
}

func (h *ValidationHandler) ListAttendance(c echo.Context) error {
	eventID, err := uintParam(c, "id", "event id")
	if err != nil {
		return err
	}

	records, err := h.attendance.FindByEventID(c.Request().Context(), eventID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if records == nil {
		records = []models.Attendance{}
	}
	return c.JSON(http.StatusOK, dto.AttendanceSummaryResponse{EventID: eventID, Total: len(records), Records: records})
}

func (h *ValidationHandler) ListScanners(c echo.Context) error {
	eventID, err := uintParam(c, "id", "event id")
	if err != nil {
		return err
	}

	scanners, err := h.scanners.Active(c.Request().Context(), eventID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, scanners)
}
