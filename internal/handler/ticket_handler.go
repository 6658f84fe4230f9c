package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Eursukkul/attendance-service/internal/dto"
	"github.com/Eursukkul/attendance-service/internal/models"
	"github.com/Eursukkul/attendance-service/internal/service"
	"github.com/Eursukkul/attendance-service/internal/token"
	"github.com/Eursukkul/attendance-service/pkg/payment"
	"github.com/labstack/echo/v4"
)

type TicketHandler struct {
	svc      service.TicketService
	payments service.PaymentService
}

func NewTicketHandler(svc service.TicketService, payments service.PaymentService) *TicketHandler {
	return &TicketHandler{svc: svc, payments: payments}
}

func (h *TicketHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/v1/events/:id/tickets", h.PurchaseTicket)

	tickets := e.Group("/api/v1/tickets")
	tickets.POST("/validate", h.ValidateTicket)
	tickets.GET("/:id", h.GetTicket)
	tickets.GET("/:id/transfers", h.ListTransfers)
	tickets.POST("/:id/transfer", h.TransferTicket)

	e.POST("/api/v1/payments/callback", h.PaymentCallback)
}

func (h *TicketHandler) PurchaseTicket(c echo.Context) error {
	eventID, err := uintParam(c, "id", "event id")
	if err != nil {
		return err
	}

	var req dto.PurchaseTicketRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.CategoryID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "category_id is required")
	}

	res, err := h.svc.Purchase(c.Request().Context(), service.PurchaseInput{
		EventID:       eventID,
		CategoryID:    req.CategoryID,
		Buyer:         models.TicketOwner{Name: req.Name, Email: req.Email, Phone: req.Phone},
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEventNotFound), errors.Is(err, service.ErrCategoryNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrEventClosed):
			return c.JSON(http.StatusBadRequest, map[string]string{
				"status":  string(service.StatusEventClosed),
				"message": err.Error(),
			})
		case errors.Is(err, service.ErrInvalidPurchase),
			errors.Is(err, service.ErrNotTicketEvent),
			errors.Is(err, service.ErrCategoryUnavailable):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrCategorySoldOut):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		case errors.Is(err, service.ErrPaymentSession), errors.Is(err, service.ErrPaymentUnavailable):
			return echo.NewHTTPError(http.StatusBadGateway, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.JSON(http.StatusCreated, dto.ToPurchaseResponse(res))
}

func (h *TicketHandler) TransferTicket(c echo.Context) error {
	var req dto.TransferTicketRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ticket, err := h.svc.Transfer(c.Request().Context(), service.TransferInput{
		TicketID: c.Param("id"),
		NewOwner: models.TicketOwner{Name: req.Name, Email: req.Email, Phone: req.Phone},
		Reason:   req.Reason,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTicketNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrInvalidOwner), errors.Is(err, service.ErrSameOwner):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrTicketUnpaid):
			return echo.NewHTTPError(http.StatusPaymentRequired, err.Error())
		case errors.Is(err, service.ErrTicketNotTransferable),
			errors.Is(err, service.ErrTicketNotActive),
			errors.Is(err, service.ErrTransferLimitReached):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.JSON(http.StatusOK, dto.TransferResponse{
		Status:        "transferred",
		TicketID:      ticket.ID,
		TransferCount: ticket.TransferCount,
	})
}

func (h *TicketHandler) ValidateTicket(c echo.Context) error {
	var req dto.ValidateTicketRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Ticket) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "ticket is required")
	}
	op := operatorID(c, req.OperatorID)
	if op == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "operator_id is required")
	}

	res, err := h.svc.ValidateAtEntry(c.Request().Context(), req.Ticket, op)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(res.HTTPStatus, dto.ToTicketValidationResponse(res))
}

func (h *TicketHandler) GetTicket(c echo.Context) error {
	ticket, err := h.svc.GetTicket(c.Request().Context(), c.Param("id"))
	if err != nil {
		return ticketLookupError(err)
	}
	return c.JSON(http.StatusOK, dto.ToTicketResponse(ticket))
}

func (h *TicketHandler) ListTransfers(c echo.Context) error {
	transfers, err := h.svc.ListTransfers(c.Request().Context(), c.Param("id"))
	if err != nil {
		return ticketLookupError(err)
	}
	if transfers == nil {
		transfers = []models.TicketTransfer{}
	}
	return c.JSON(http.StatusOK, transfers)
}

func ticketLookupError(err error) error {
	switch {
	case errors.Is(err, service.ErrTicketNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, token.ErrDecode), errors.Is(err, token.ErrSignature):
		return echo.NewHTTPError(http.StatusBadRequest, "invalid ticket code")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

// PaymentCallback is hit by the gateway redirect or webhook. The reference is
// re-verified with the gateway, so the request itself is not trusted.
func (h *TicketHandler) PaymentCallback(c echo.Context) error {
	var req dto.PaymentCallbackRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ref := strings.TrimSpace(req.Reference)
	if ref == "" {
		ref = strings.TrimSpace(c.QueryParam("reference"))
	}
	if ref == "" {
		ref = strings.TrimSpace(c.QueryParam("trxref"))
	}
	if ref == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "reference is required")
	}

	ticket, err := h.payments.Confirm(c.Request().Context(), ref)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTicketNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrPaymentMismatch):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		case errors.Is(err, service.ErrPaymentUnavailable):
			return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
		case errors.Is(err, payment.ErrGateway):
			return echo.NewHTTPError(http.StatusBadGateway, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusOK, dto.ToTicketResponse(ticket))
}
