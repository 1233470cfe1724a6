package service

import (
	"context"
	"fmt"

	"github.com/openloft/pigeonrace/internal/domain"
	"github.com/openloft/pigeonrace/internal/repository"
)

var ErrEventNotFound = repository.ErrEventNotFound

type EventRepository interface {
	Create(ctx context.Context, event domain.Event) (domain.Event, error)
	FindByID(ctx context.Context, id uint) (domain.Event, error)
	FindAll(ctx context.Context) ([]domain.Event, error)
}

// EventService owns the scheme catalog: schemes are written once at event
// creation and read-only from then on.
type EventService struct {
	repo EventRepository
}

func NewEventService(repo EventRepository) *EventService {
	return &EventService{
		repo: repo,
	}
}

func (s *EventService) CreateEvent(ctx context.Context, event domain.Event) (domain.Event, error) {
	if err := validateSchemes(event); err != nil {
		return domain.Event{}, err
	}

	created, err := s.repo.Create(ctx, event)
	if err != nil {
		return domain.Event{}, fmt.Errorf("s.repo.Create -> %w", err)
	}

	return created, nil
}

func (s *EventService) GetEvent(ctx context.Context, id uint) (domain.Event, error) {
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Event{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	return event, nil
}

func (s *EventService) GetEvents(ctx context.Context) ([]domain.Event, error) {
	events, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("s.repo.FindAll -> %w", err)
	}

	return events, nil
}

func validateSchemes(event domain.Event) error {
	seen := make(map[int]bool)
	for _, tier := range event.FeeScheme.PerchTiers {
		if tier.BirdNo < 1 {
			return &domain.ValidationError{Field: "perch_tiers", Message: "bird ordinal must be positive"}
		}
		if seen[tier.BirdNo] {
			return &domain.ValidationError{Field: "perch_tiers", Message: fmt.Sprintf("duplicate tier for bird %d", tier.BirdNo)}
		}
		seen[tier.BirdNo] = true
		if tier.Fee < 0 {
			return &domain.ValidationError{Field: "perch_tiers", Message: "fee must not be negative"}
		}
	}

	for _, item := range event.PrizeScheme {
		if item.FromPosition < 1 || item.ToPosition < item.FromPosition {
			return &domain.ValidationError{Field: "prize_scheme", Message: "positions must satisfy 1 <= from <= to"}
		}
		if item.PrizeAmount < 0 {
			return &domain.ValidationError{Field: "prize_scheme", Message: "prize amount must not be negative"}
		}
	}

	for _, class := range event.BettingScheme {
		if class.Name == "" {
			return &domain.ValidationError{Field: "betting_scheme", Message: "class name is required"}
		}
		if class.Payout < 0 {
			return &domain.ValidationError{Field: "betting_scheme", Message: "payout must not be negative"}
		}
	}

	return nil
}
