package handler

import (
	"context"
	"io"
	"net/http/httptest"

	"github.com/Eursukkul/attendance-service/internal/models"
	"github.com/Eursukkul/attendance-service/internal/presence"
	"github.com/Eursukkul/attendance-service/internal/service"
	"github.com/labstack/echo/v4"
)

// --- Mock ValidationService ---

type mockValidationService struct {
	scanFn func(ctx context.Context, in service.ScanInput) (*service.ValidationResult, error)
	codeFn func(ctx context.Context, in service.CodeInput) (*service.ValidationResult, error)
}

func (m *mockValidationService) Scan(ctx context.Context, in service.ScanInput) (*service.ValidationResult, error) {
	return m.scanFn(ctx, in)
}
func (m *mockValidationService) ValidateByCode(ctx context.Context, in service.CodeInput) (*service.ValidationResult, error) {
	return m.codeFn(ctx, in)
}

// --- Mock TicketService ---

type mockTicketService struct {
	purchaseFn  func(ctx context.Context, in service.PurchaseInput) (*service.PurchaseResult, error)
	transferFn  func(ctx context.Context, in service.TransferInput) (*models.Ticket, error)
	validateFn  func(ctx context.Context, ref, operatorID string) (*service.TicketValidationResult, error)
	getFn       func(ctx context.Context, ref string) (*models.Ticket, error)
	transfersFn func(ctx context.Context, id string) ([]models.TicketTransfer, error)
}

func (m *mockTicketService) Purchase(ctx context.Context, in service.PurchaseInput) (*service.PurchaseResult, error) {
	return m.purchaseFn(ctx, in)
}
func (m *mockTicketService) Transfer(ctx context.Context, in service.TransferInput) (*models.Ticket, error) {
	return m.transferFn(ctx, in)
}
func (m *mockTicketService) ValidateAtEntry(ctx context.Context, ref, operatorID string) (*service.TicketValidationResult, error) {
	return m.validateFn(ctx, ref, operatorID)
}
func (m *mockTicketService) GetTicket(ctx context.Context, ref string) (*models.Ticket, error) {
	return m.getFn(ctx, ref)
}
func (m *mockTicketService) ListTransfers(ctx context.Context, id string) ([]models.TicketTransfer, error) {
	return m.transfersFn(ctx, id)
}

// --- Mock PaymentService ---

type mockPaymentService struct {
	confirmFn func(ctx context.Context, ref string) (*models.Ticket, error)
}

func (m *mockPaymentService) Confirm(ctx context.Context, ref string) (*models.Ticket, error) {
	return m.confirmFn(ctx, ref)
}
func (m *mockPaymentService) ReconcilePending(ctx context.Context) (int, error) { return 0, nil }

// --- Mock RegistrationService ---

type mockRegistrationService struct {
	registerFn func(ctx context.Context, in service.RegisterInput) (*models.Registration, error)
	getFn      func(ctx context.Context, id string) (*models.Registration, error)
	cancelFn   func(ctx context.Context, id string) (*models.Registration, error)
	listFn     func(ctx context.Context, eventID uint, status *models.RegistrationStatus) ([]models.Registration, error)
}

func (m *mockRegistrationService) Register(ctx context.Context, in service.RegisterInput) (*models.Registration, error) {
	return m.registerFn(ctx, in)
}
func (m *mockRegistrationService) GetRegistration(ctx context.Context, id string) (*models.Registration, error) {
	return m.getFn(ctx, id)
}
func (m *mockRegistrationService) CancelRegistration(ctx context.Context, id string) (*models.Registration, error) {
	return m.cancelFn(ctx, id)
}
func (m *mockRegistrationService) ListRegistrations(ctx context.Context, eventID uint, status *models.RegistrationStatus) ([]models.Registration, error) {
	return m.listFn(ctx, eventID, status)
}

// --- Mock RosterService ---

type mockRosterService struct {
	uploadFn func(ctx context.Context, in service.RosterUploadInput) (*models.RosterUpload, error)
	listFn   func(ctx context.Context, eventID uint) ([]models.RosterUpload, error)
	deleteFn func(ctx context.Context, id uint) error
}

func (m *mockRosterService) Upload(ctx context.Context, in service.RosterUploadInput) (*models.RosterUpload, error) {
	return m.uploadFn(ctx, in)
}
func (m *mockRosterService) List(ctx context.Context, eventID uint) ([]models.RosterUpload, error) {
	return m.listFn(ctx, eventID)
}
func (m *mockRosterService) Delete(ctx context.Context, id uint) error {
	return m.deleteFn(ctx, id)
}

// --- Mock listers ---

type mockAttendance struct {
	records []models.Attendance
}

func (m *mockAttendance) FindByEventID(ctx context.Context, eventID uint) ([]models.Attendance, error) {
	return m.records, nil
}

type mockScanners struct {
	scanners []presence.Scanner
}

func (m *mockScanners) Active(ctx context.Context, eventID uint) ([]presence.Scanner, error) {
	return m.scanners, nil
}

// newContext builds an echo context with optional path params given as
// name/value pairs.
func newContext(method, target string, body io.Reader, contentType string, params ...string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	var names, values []string
	for i := 0; i+1 < len(params); i += 2 {
		names = append(names, params[i])
		values = append(values, params[i+1])
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)
	return c, rec
}
