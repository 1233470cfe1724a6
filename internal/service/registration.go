package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openloft/pigeonrace/internal/domain"
	"github.com/openloft/pigeonrace/internal/repository"
)

var (
	ErrRegistrationNotFound = repository.ErrRegistrationNotFound
	ErrPaymentNotFound      = repository.ErrPaymentNotFound
	ErrBirdNotFound         = repository.ErrBirdNotFound
	ErrEventClosed          = errors.New("event is closed")
)

// BirdEnrollment is one bird to enroll, with its betting-class picks.
type BirdEnrollment struct {
	Bird            domain.Bird
	BettingClassIDs []uint
}

type RegistrationRepository interface {
	CreateBundle(ctx context.Context, reg domain.Registration, birds []domain.Bird, classIDs [][]uint, payments []domain.Payment) (domain.Registration, error)
	AddItem(ctx context.Context, registrationID uint, bird domain.Bird, classIDs []uint) (domain.RegistrationItem, error)
	FindByID(ctx context.Context, id uint) (domain.Registration, error)
	FindByEvent(ctx context.Context, eventID uint) ([]domain.Registration, error)
	FindPayments(ctx context.Context, registrationID uint) ([]domain.Payment, error)
	RecordPayment(ctx context.Context, paymentID uint, amount int64, method string) (domain.Payment, error)
	FindBirdByBand(ctx context.Context, band domain.Band) (domain.Bird, error)
	MarkBirdLost(ctx context.Context, birdID uint, lostAt time.Time, raceID *uint) error
}

type RegistrationEventRepository interface {
	FindByID(ctx context.Context, id uint) (domain.Event, error)
}

// RegistrationService is the registration ledger: it turns a breeder's
// reservation into birds, items, fan-out race entries and fee obligations.
type RegistrationService struct {
	repo      RegistrationRepository
	eventRepo RegistrationEventRepository
}

func NewRegistrationService(repo RegistrationRepository, eventRepo RegistrationEventRepository) *RegistrationService {
	return &RegistrationService{
		repo:      repo,
		eventRepo: eventRepo,
	}
}

// CreateRegistration validates the reservation against the event's fee
// scheme, computes the entry and perch fee obligations, and persists the
// whole bundle atomically. The perch fee is fixed here, by reserved-bird
// ordinal, and never recomputed from race results.
func (s *RegistrationService) CreateRegistration(ctx context.Context, reg domain.Registration, enrollments []BirdEnrollment) (domain.Registration, error) {
	event, err := s.eventRepo.FindByID(ctx, reg.EventID)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("s.eventRepo.FindByID -> %w", err)
	}
	if event.Closed {
		return domain.Registration{}, ErrEventClosed
	}

	if len(enrollments) != reg.ReservedBirds {
		return domain.Registration{}, &domain.ValidationError{
			Field:   "reserved_birds",
			Message: fmt.Sprintf("declared %d birds but enrolled %d", reg.ReservedBirds, len(enrollments)),
		}
	}
	if event.FeeScheme.MaxBirds > 0 && reg.ReservedBirds > event.FeeScheme.MaxBirds {
		return domain.Registration{}, &domain.ValidationError{
			Field:   "reserved_birds",
			Message: fmt.Sprintf("event allows at most %d birds", event.FeeScheme.MaxBirds),
		}
	}

	birds := make([]domain.Bird, len(enrollments))
	classIDs := make([][]uint, len(enrollments))
	for i, enrollment := range enrollments {
		if err := validateClassIDs(event, enrollment.BettingClassIDs); err != nil {
			return domain.Registration{}, err
		}
		bird := enrollment.Bird
		bird.BreederID = reg.BreederID
		birds[i] = bird
		classIDs[i] = enrollment.BettingClassIDs
	}

	payments := []domain.Payment{
		{
			Type:      domain.PaymentEntryFee,
			AmountDue: event.FeeScheme.EntryFeeTotal(reg.ReservedBirds),
		},
		{
			Type:      domain.PaymentPerchFee,
			AmountDue: event.FeeScheme.PerchFeeTotal(reg.ReservedBirds),
		},
	}

	created, err := s.repo.CreateBundle(ctx, reg, birds, classIDs, payments)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("s.repo.CreateBundle -> %w", err)
	}

	return created, nil
}

// AddBirdToRegistration enrolls a bird after the initial submission; the
// perch fee stays as fixed at registration time.
func (s *RegistrationService) AddBirdToRegistration(ctx context.Context, registrationID uint, enrollment BirdEnrollment) (domain.RegistrationItem, error) {
	reg, err := s.repo.FindByID(ctx, registrationID)
	if err != nil {
		return domain.RegistrationItem{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	event, err := s.eventRepo.FindByID(ctx, reg.EventID)
	if err != nil {
		return domain.RegistrationItem{}, fmt.Errorf("s.eventRepo.FindByID -> %w", err)
	}
	if event.Closed {
		return domain.RegistrationItem{}, ErrEventClosed
	}
	if err := validateClassIDs(event, enrollment.BettingClassIDs); err != nil {
		return domain.RegistrationItem{}, err
	}

	bird := enrollment.Bird
	bird.BreederID = reg.BreederID

	item, err := s.repo.AddItem(ctx, registrationID, bird, enrollment.BettingClassIDs)
	if err != nil {
		return domain.RegistrationItem{}, fmt.Errorf("s.repo.AddItem -> %w", err)
	}

	return item, nil
}

func (s *RegistrationService) GetRegistration(ctx context.Context, id uint) (domain.Registration, error) {
	reg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	return reg, nil
}

func (s *RegistrationService) GetRegistrationsByEvent(ctx context.Context, eventID uint) ([]domain.Registration, error) {
	regs, err := s.repo.FindByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("s.repo.FindByEvent -> %w", err)
	}

	return regs, nil
}

func (s *RegistrationService) GetPayments(ctx context.Context, registrationID uint) ([]domain.Payment, error) {
	payments, err := s.repo.FindPayments(ctx, registrationID)
	if err != nil {
		return nil, fmt.Errorf("s.repo.FindPayments -> %w", err)
	}

	return payments, nil
}

func (s *RegistrationService) RecordPayment(ctx context.Context, paymentID uint, amount int64, method string) (domain.Payment, error) {
	if amount <= 0 {
		return domain.Payment{}, &domain.ValidationError{Field: "amount", Message: "must be positive"}
	}

	payment, err := s.repo.RecordPayment(ctx, paymentID, amount, method)
	if err != nil {
		return domain.Payment{}, fmt.Errorf("s.repo.RecordPayment -> %w", err)
	}

	return payment, nil
}

func (s *RegistrationService) MarkBirdLost(ctx context.Context, birdID uint, lostAt time.Time, raceID *uint) error {
	if err := s.repo.MarkBirdLost(ctx, birdID, lostAt, raceID); err != nil {
		return fmt.Errorf("s.repo.MarkBirdLost -> %w", err)
	}

	return nil
}

func validateClassIDs(event domain.Event, classIDs []uint) error {
	known := make(map[uint]bool, len(event.BettingScheme))
	for _, class := range event.BettingScheme {
		known[class.ID] = true
	}

	for _, id := range classIDs {
		if !known[id] {
			return &domain.ValidationError{
				Field:   "betting_class_ids",
				Message: fmt.Sprintf("class %d does not belong to event %d", id, event.ID),
			}
		}
	}

	return nil
}
