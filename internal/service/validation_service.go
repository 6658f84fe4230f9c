package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Eursukkul/attendance-service/internal/models"
	"github.com/Eursukkul/attendance-service/internal/repository"
	"github.com/Eursukkul/attendance-service/internal/roster"
	"github.com/Eursukkul/attendance-service/internal/token"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type ValidationStatus string

const (
	StatusValid               ValidationStatus = "valid"
	StatusInvalid             ValidationStatus = "invalid"
	StatusDuplicate           ValidationStatus = "duplicate"
	StatusCSVValidationFailed ValidationStatus = "csv_validation_failed"
	StatusRequiresPayment     ValidationStatus = "requires_payment"
	StatusEventClosed         ValidationStatus = "event_closed"
)

// ValidationResult is returned for every business outcome. Only
// infrastructure failures are reported through the error return.
type ValidationResult struct {
	HTTPStatus   int
	Status       ValidationStatus
	Message      string
	Registration *models.Registration
	Member       *models.Member
	Event        *models.Event
	Attendance   *models.Attendance
}

func reject(code int, status ValidationStatus, msg string) *ValidationResult {
	return &ValidationResult{HTTPStatus: code, Status: status, Message: msg}
}

type ScanInput struct {
	Token      string
	OperatorID string
	// EventID pins the scanner to one event; zero accepts any event.
	EventID uint
}

type CodeInput struct {
	ShortCode  string
	OperatorID string
	EventID    uint
}

type ValidationService interface {
	Scan(ctx context.Context, in ScanInput) (*ValidationResult, error)
	ValidateByCode(ctx context.Context, in CodeInput) (*ValidationResult, error)
}

type ValidationDeps struct {
	Tx            repository.Transactor
	Registrations repository.RegistrationRepository
	Events        repository.EventRepository
	Members       repository.MemberRepository
	Rosters       repository.RosterRepository
	Attendance    repository.AttendanceRepository
	Codec         *token.Codec
	Presence      PresenceTracker
	Publisher     Publisher
	Now           func() time.Time
}

type validationService struct {
	ValidationDeps
	now clock
	log *logrus.Entry
}

func NewValidationService(deps ValidationDeps) ValidationService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &validationService{
		ValidationDeps: deps,
		now:            now,
		log:            logrus.WithField("component", "validation"),
	}
}

var errAlreadyOnline = errors.New("registration already validated")

func (s *validationService) Scan(ctx context.Context, in ScanInput) (*ValidationResult, error) {
	raw := strings.TrimSpace(in.Token)
	payload, err := s.Codec.Decode(raw)
	if err != nil {
		s.log.WithError(err).Info("undecodable token presented")
		return reject(http.StatusBadRequest, StatusInvalid, "Invalid QR code"), nil
	}
	if payload.Kind == token.KindTicket || payload.RegistrationID == "" {
		return reject(http.StatusBadRequest, StatusInvalid, "This QR code is not a registration code"), nil
	}

	reg, err := s.Registrations.FindByID(ctx, payload.RegistrationID)
	if err != nil {
		if isNotFound(err) {
			return reject(http.StatusNotFound, StatusInvalid, "Registration not found"), nil
		}
		return nil, fmt.Errorf("find registration: %w", err)
	}
	if reg.Token != raw || reg.EventID != payload.EventID {
		return reject(http.StatusBadRequest, StatusInvalid, "QR code does not match any registration"), nil
	}

	return s.validate(ctx, reg, payload, in.OperatorID, in.EventID, models.MethodQRScan)
}

func (s *validationService) ValidateByCode(ctx context.Context, in CodeInput) (*ValidationResult, error) {
	code := token.NormalizeShortCode(in.ShortCode)
	if !token.ValidShortCode(code) {
		return reject(http.StatusBadRequest, StatusInvalid, "Validation code must be 6 letters"), nil
	}

	reg, err := s.Registrations.FindByShortCode(ctx, code)
	if err != nil {
		if isNotFound(err) {
			return reject(http.StatusNotFound, StatusInvalid, "No registration found for this code"), nil
		}
		return nil, fmt.Errorf("find registration by code: %w", err)
	}

	// Manual codes age with the registration they belong to.
	payload := &token.Payload{
		RegistrationID: reg.ID,
		EventID:        reg.EventID,
		MemberID:       reg.MemberID,
		Kind:           reg.Kind,
		IssuedAt:       reg.CreatedAt.UnixMilli(),
	}
	return s.validate(ctx, reg, payload, in.OperatorID, in.EventID, models.MethodManualValidation)
}

// validate runs every gate before the single committing write.
func (s *validationService) validate(ctx context.Context, reg *models.Registration, payload *token.Payload, operatorID string, pinnedEvent uint, method models.ValidationMethod) (*ValidationResult, error) {
	logger := s.log.WithFields(logrus.Fields{
		"registration_id": reg.ID,
		"event_id":        reg.EventID,
		"operator_id":     operatorID,
		"method":          method,
	})

	if reg.Status == models.StatusCancelled {
		return reject(http.StatusBadRequest, StatusInvalid, "Registration has been cancelled"), nil
	}
	if pinnedEvent != 0 && pinnedEvent != reg.EventID {
		return reject(http.StatusBadRequest, StatusInvalid, "Registration belongs to a different event"), nil
	}

	event, err := s.Events.FindByID(ctx, reg.EventID)
	if err != nil {
		if isNotFound(err) {
			return reject(http.StatusNotFound, StatusInvalid, "Event not found"), nil
		}
		return nil, fmt.Errorf("find event: %w", err)
	}

	now := s.now()
	if !token.IsLive(payload, event.EndAt, now) {
		logger.Info("expired code presented")
		res := reject(http.StatusBadRequest, StatusInvalid, "QR code has expired")
		res.Registration, res.Event = reg, event
		return res, nil
	}

	if reg.IsValidated() {
		return s.duplicate(reg, event), nil
	}

	if !eligible(event.EligibleGroups, reg.Body) {
		res := reject(http.StatusForbidden, StatusInvalid,
			fmt.Sprintf("%s is not eligible for this event", groupLabel(reg.Body)))
		res.Registration, res.Event = reg, event
		return res, nil
	}

	uploads, err := s.Rosters.FindByEventID(ctx, event.ID)
	if err != nil {
		return nil, fmt.Errorf("load rosters: %w", err)
	}
	attendanceMethod := method
	if roster.CheckRequired(len(uploads), reg.Kind) {
		if !roster.Matches(uploads, roster.CandidateFrom(reg)) {
			logger.Info("roster check failed")
			res := reject(http.StatusForbidden, StatusCSVValidationFailed,
				"Name, email or chanda number was not found in the member list uploaded for this event")
			res.Registration, res.Event = reg, event
			return res, nil
		}
		attendanceMethod = models.MethodCSVGated
	}

	regID := reg.ID
	attendance := &models.Attendance{
		EventID:        event.ID,
		RegistrationID: &regID,
		OperatorID:     operatorID,
		Outcome:        models.OutcomeValid,
		Method:         attendanceMethod,
	}
	err = s.Tx.Transaction(ctx, func(tx *gorm.DB) error {
		ok, err := s.Registrations.MarkOnline(ctx, tx, reg.ID, method, operatorID, now)
		if err != nil {
			return err
		}
		if !ok {
			return errAlreadyOnline
		}
		if err := s.Attendance.Create(ctx, tx, attendance); err != nil {
			return err
		}
		if reg.MemberID != nil {
			return s.Members.MarkOnline(ctx, tx, *reg.MemberID)
		}
		return nil
	})
	if errors.Is(err, errAlreadyOnline) {
		logger.Info("lost check-in race")
		fresh, ferr := s.Registrations.FindByID(ctx, reg.ID)
		if ferr != nil {
			return nil, fmt.Errorf("reload registration: %w", ferr)
		}
		if fresh.Status == models.StatusCancelled {
			return reject(http.StatusBadRequest, StatusInvalid, "Registration has been cancelled"), nil
		}
		return s.duplicate(fresh, event), nil
	}
	if err != nil {
		return nil, fmt.Errorf("commit attendance: %w", err)
	}

	reg.Status = models.StatusOnline
	reg.ValidationMethod = method
	reg.ValidatedAt = &now
	reg.ValidatedBy = operatorID

	var member *models.Member
	if reg.MemberID != nil {
		member, err = s.Members.FindByID(ctx, *reg.MemberID)
		if err != nil && !isNotFound(err) {
			logger.WithError(err).Warn("could not load member for result")
		}
	}

	s.afterCommit(ctx, logger, event.ID, operatorID, attendance, reg)
	logger.Info("attendance recorded")

	return &ValidationResult{
		HTTPStatus:   http.StatusOK,
		Status:       StatusValid,
		Message:      "Attendance recorded",
		Registration: reg,
		Member:       member,
		Event:        event,
		Attendance:   attendance,
	}, nil
}

func (s *validationService) duplicate(reg *models.Registration, event *models.Event) *ValidationResult {
	msg := "Registration has already been validated"
	if reg.ValidatedAt != nil {
		msg = fmt.Sprintf("%s at %s", msg, reg.ValidatedAt.Format(time.RFC3339))
	}
	res := reject(http.StatusConflict, StatusDuplicate, msg)
	res.Registration, res.Event = reg, event
	return res
}

// afterCommit performs the best-effort side effects of a check-in. The state
// change already stands, so failures are only logged.
func (s *validationService) afterCommit(ctx context.Context, logger *logrus.Entry, eventID uint, operatorID string, attendance *models.Attendance, reg *models.Registration) {
	if s.Presence != nil && operatorID != "" {
		if err := s.Presence.Touch(ctx, eventID, operatorID); err != nil {
			logger.WithError(err).Warn("presence update failed")
		}
	}
	if s.Publisher != nil {
		if err := s.Publisher.Publish(KeyAttendanceRecorded, map[string]any{
			"attendance":   attendance,
			"registration": reg,
		}); err != nil {
			logger.WithError(err).Warn("publish attendance failed")
		}
	}
}

// eligible treats an empty list as open to every group.
func eligible(groups []string, body string) bool {
	if len(groups) == 0 {
		return true
	}
	body = strings.TrimSpace(body)
	for _, g := range groups {
		if strings.EqualFold(strings.TrimSpace(g), body) {
			return true
		}
	}
	return false
}

func groupLabel(body string) string {
	if strings.TrimSpace(body) == "" {
		return "Registrations without a group"
	}
	return body
}
