package service

import (
	"context"
	"fmt"
	"time"

	"github.com/openloft/pigeonrace/internal/domain"
	"github.com/openloft/pigeonrace/internal/repository"
)

var (
	ErrBasketNotFound = repository.ErrBasketNotFound
	ErrBasketExists   = repository.ErrBasketExists
	ErrBasketNotEmpty = repository.ErrBasketNotEmpty
)

type BasketRaceRepository interface {
	FindByID(ctx context.Context, id uint) (domain.Race, error)
	CreateBasket(ctx context.Context, basket domain.Basket) (domain.Basket, error)
	FindBasketByID(ctx context.Context, id uint) (domain.Basket, error)
	FindBasketsByRace(ctx context.Context, raceID uint) ([]domain.Basket, error)
	DeleteBasket(ctx context.Context, basketID uint) error
	AssignEntries(ctx context.Context, entryIDs []uint, basketID uint, side domain.BasketSide, arrivedAt time.Time) ([]domain.RaceEntry, error)
	UnassignEntries(ctx context.Context, entryIDs []uint, side domain.BasketSide) ([]domain.RaceEntry, error)
}

// BasketService is the basket assignment engine. Baskets are a finite,
// operator-counted resource at a live event; the invariants here keep the
// physical count and the stored state reconciled.
type BasketService struct {
	repo BasketRaceRepository
}

func NewBasketService(repo BasketRaceRepository) *BasketService {
	return &BasketService{
		repo: repo,
	}
}

func (s *BasketService) CreateBasket(ctx context.Context, raceID uint, basketNo int, side domain.BasketSide) (domain.Basket, error) {
	if !side.Valid() {
		return domain.Basket{}, &domain.ValidationError{Field: "side", Message: "must be loft or race"}
	}
	if basketNo < 1 {
		return domain.Basket{}, &domain.ValidationError{Field: "basket_no", Message: "must be positive"}
	}

	if _, err := s.repo.FindByID(ctx, raceID); err != nil {
		return domain.Basket{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	basket, err := s.repo.CreateBasket(ctx, domain.Basket{
		RaceID:   raceID,
		BasketNo: basketNo,
		Side:     side,
	})
	if err != nil {
		return domain.Basket{}, fmt.Errorf("s.repo.CreateBasket -> %w", err)
	}

	return basket, nil
}

func (s *BasketService) GetBasketsByRace(ctx context.Context, raceID uint) ([]domain.Basket, error) {
	baskets, err := s.repo.FindBasketsByRace(ctx, raceID)
	if err != nil {
		return nil, fmt.Errorf("s.repo.FindBasketsByRace -> %w", err)
	}

	return baskets, nil
}

// DeleteBasket refuses to remove a basket any entry still references, on
// either side. Hard precondition, not best-effort.
func (s *BasketService) DeleteBasket(ctx context.Context, basketID uint) error {
	if err := s.repo.DeleteBasket(ctx, basketID); err != nil {
		return fmt.Errorf("s.repo.DeleteBasket -> %w", err)
	}

	return nil
}

// AssignEntries assigns the batch to the basket, all-or-nothing. Loft-side
// assignment advances REGISTERED entries to LOFT_BASKETED; race-side
// assignment advances RELEASED (or pre-release LOFT_BASKETED) entries to
// RACE_BASKETED and stamps the arrival.
func (s *BasketService) AssignEntries(ctx context.Context, entryIDs []uint, basketID uint, side domain.BasketSide, arrivedAt time.Time) ([]domain.RaceEntry, error) {
	if !side.Valid() {
		return nil, &domain.ValidationError{Field: "side", Message: "must be loft or race"}
	}
	if len(entryIDs) == 0 {
		return nil, &domain.ValidationError{Field: "entry_ids", Message: "at least one entry is required"}
	}
	if arrivedAt.IsZero() {
		arrivedAt = time.Now().UTC()
	}

	entries, err := s.repo.AssignEntries(ctx, entryIDs, basketID, side, arrivedAt)
	if err != nil {
		return nil, fmt.Errorf("s.repo.AssignEntries -> %w", err)
	}

	return entries, nil
}

func (s *BasketService) UnassignEntries(ctx context.Context, entryIDs []uint, side domain.BasketSide) ([]domain.RaceEntry, error) {
	if !side.Valid() {
		return nil, &domain.ValidationError{Field: "side", Message: "must be loft or race"}
	}
	if len(entryIDs) == 0 {
		return nil, &domain.ValidationError{Field: "entry_ids", Message: "at least one entry is required"}
	}

	entries, err := s.repo.UnassignEntries(ctx, entryIDs, side)
	if err != nil {
		return nil, fmt.Errorf("s.repo.UnassignEntries -> %w", err)
	}

	return entries, nil
}
