package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Eursukkul/attendance-service/internal/models"
	"github.com/Eursukkul/attendance-service/internal/repository"
	"github.com/Eursukkul/attendance-service/internal/token"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type RegisterInput struct {
	EventID      uint
	MemberID     *uint
	Kind         models.RegistrationKind
	Name         string
	Email        string
	Phone        string
	Body         string
	ChandaNumber string
	Circuit      string
}

type RegistrationService interface {
	Register(ctx context.Context, in RegisterInput) (*models.Registration, error)
	GetRegistration(ctx context.Context, id string) (*models.Registration, error)
	CancelRegistration(ctx context.Context, id string) (*models.Registration, error)
	ListRegistrations(ctx context.Context, eventID uint, status *models.RegistrationStatus) ([]models.Registration, error)
}

type registrationService struct {
	registrations repository.RegistrationRepository
	events        repository.EventRepository
	members       repository.MemberRepository
	codec         *token.Codec
	publisher     Publisher
	now           clock
	log           *logrus.Entry
}

func NewRegistrationService(
	registrations repository.RegistrationRepository,
	events repository.EventRepository,
	members repository.MemberRepository,
	codec *token.Codec,
	publisher Publisher,
) RegistrationService {
	return &registrationService{
		registrations: registrations,
		events:        events,
		members:       members,
		codec:         codec,
		publisher:     publisher,
		now:           time.Now,
		log:           logrus.WithField("component", "registrations"),
	}
}

func (s *registrationService) Register(ctx context.Context, in RegisterInput) (*models.Registration, error) {
	if in.Kind == "" {
		in.Kind = models.KindGuest
		if in.MemberID != nil {
			in.Kind = models.KindMember
		}
	}
	if !in.Kind.Valid() {
		return nil, fmt.Errorf("%w: unknown registration type %q", ErrInvalidRegistration, in.Kind)
	}

	event, err := s.events.FindByID(ctx, in.EventID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	if event.Type == models.EventTypeTicket {
		return nil, ErrNotRegistrationEvent
	}
	if !event.RegistrationOpen(s.now()) {
		return nil, ErrEventClosed
	}

	reg := &models.Registration{
		EventID:      event.ID,
		MemberID:     in.MemberID,
		Kind:         in.Kind,
		Name:         strings.TrimSpace(in.Name),
		Email:        strings.TrimSpace(in.Email),
		Phone:        strings.TrimSpace(in.Phone),
		Body:         strings.TrimSpace(in.Body),
		ChandaNumber: strings.TrimSpace(in.ChandaNumber),
		Circuit:      strings.TrimSpace(in.Circuit),
		Status:       models.StatusRegistered,
	}

	if in.MemberID != nil {
		member, err := s.members.FindByID(ctx, *in.MemberID)
		if err != nil {
			if isNotFound(err) {
				return nil, ErrMemberNotFound
			}
			return nil, err
		}
		fillFromMember(reg, member)
	}
	if reg.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidRegistration)
	}

	for attempt := 0; attempt < maxMintAttempts; attempt++ {
		reg.ID = uuid.NewString()
		reg.ShortCode = token.MintShortCode()
		reg.Token, err = s.codec.Mint(reg.ID, reg.EventID, reg.MemberID, reg.Kind)
		if err != nil {
			return nil, err
		}

		err = s.registrations.Create(ctx, reg)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			s.log.WithField("attempt", attempt+1).Debug("short code collision, retrying")
			continue
		}
		if err != nil {
			return nil, err
		}

		logger := s.log.WithFields(logrus.Fields{"registration_id": reg.ID, "event_id": reg.EventID})
		logger.Info("registration created")
		if s.publisher != nil {
			if err := s.publisher.Publish(KeyRegistrationCreated, reg); err != nil {
				logger.WithError(err).Warn("publish failed")
			}
		}
		return reg, nil
	}
	return nil, ErrCodesExhausted
}

// fillFromMember completes blank snapshot fields from the member record.
func fillFromMember(reg *models.Registration, m *models.Member) {
	fill := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}
	fill(&reg.Name, m.Name)
	fill(&reg.Email, m.Email)
	fill(&reg.Phone, m.Phone)
	fill(&reg.Body, m.Body)
	fill(&reg.ChandaNumber, m.ChandaNumber)
	fill(&reg.Circuit, m.Circuit)
}

func (s *registrationService) GetRegistration(ctx context.Context, id string) (*models.Registration, error) {
	reg, err := s.registrations.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrRegistrationNotFound
		}
		return nil, err
	}
	return reg, nil
}

// CancelRegistration soft-cancels; the row and its attendance history stay.
func (s *registrationService) CancelRegistration(ctx context.Context, id string) (*models.Registration, error) {
	ok, err := s.registrations.Cancel(ctx, id)
	if err != nil {
		return nil, err
	}
	reg, err := s.GetRegistration(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAlreadyCancelled
	}
	s.log.WithField("registration_id", id).Info("registration cancelled")
	return reg, nil
}

func (s *registrationService) ListRegistrations(ctx context.Context, eventID uint, status *models.RegistrationStatus) ([]models.Registration, error) {
	return s.registrations.FindByEventID(ctx, eventID, status)
}
