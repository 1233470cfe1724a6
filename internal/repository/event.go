package repository

import (
	"context"
	"fmt"

	"github.com/openloft/pigeonrace/internal/domain"
	"github.com/openloft/pigeonrace/internal/repository/dao"
)

var ErrEventNotFound = dao.ErrEventNotFound

type EventDAO interface {
	Insert(ctx context.Context, event dao.Event) (dao.Event, error)
	FindByID(ctx context.Context, id uint) (dao.Event, error)
	FindAll(ctx context.Context) ([]dao.Event, error)
}

type EventRepository struct {
	dao EventDAO
}

func NewEventRepository(dao EventDAO) *EventRepository {
	return &EventRepository{
		dao: dao,
	}
}

func (r *EventRepository) Create(ctx context.Context, event domain.Event) (domain.Event, error) {
	created, err := r.dao.Insert(ctx, eventDomainToDao(event))
	if err != nil {
		return domain.Event{}, fmt.Errorf("r.dao.Insert -> %w", err)
	}

	return eventDaoToDomain(created), nil
}

func (r *EventRepository) FindByID(ctx context.Context, id uint) (domain.Event, error) {
	found, err := r.dao.FindByID(ctx, id)
	if err != nil {
		return domain.Event{}, fmt.Errorf("r.dao.FindByID -> %w", err)
	}

	return eventDaoToDomain(found), nil
}

func (r *EventRepository) FindAll(ctx context.Context) ([]domain.Event, error) {
	found, err := r.dao.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindAll -> %w", err)
	}

	events := make([]domain.Event, len(found))
	for i, e := range found {
		events[i] = eventDaoToDomain(e)
	}

	return events, nil
}

func eventDomainToDao(e domain.Event) dao.Event {
	tiers := make([]dao.PerchTier, len(e.FeeScheme.PerchTiers))
	for i, t := range e.FeeScheme.PerchTiers {
		tiers[i] = dao.PerchTier{BirdNo: t.BirdNo, Fee: t.Fee}
	}

	prizes := make([]dao.PrizeItem, len(e.PrizeScheme))
	for i, p := range e.PrizeScheme {
		prizes[i] = dao.PrizeItem{
			RaceType:     p.RaceType,
			FromPosition: p.FromPosition,
			ToPosition:   p.ToPosition,
			PrizeAmount:  p.PrizeAmount,
		}
	}

	classes := make([]dao.BettingClass, len(e.BettingScheme))
	for i, c := range e.BettingScheme {
		classes[i] = dao.BettingClass{Name: c.Name, Payout: c.Payout}
	}

	return dao.Event{
		ID:          e.ID,
		Name:        e.Name,
		Location:    e.Location,
		Description: e.Description,
		StartsAt:    e.StartsAt,
		EndsAt:      e.EndsAt,
		CreatorID:   e.CreatorID,
		Closed:      e.Closed,
		FeeScheme: dao.FeeScheme{
			EntryFee:   e.FeeScheme.EntryFee,
			MaxBirds:   e.FeeScheme.MaxBirds,
			SpeedUnit:  e.FeeScheme.SpeedUnit,
			PerchTiers: tiers,
		},
		PrizeScheme:   prizes,
		BettingScheme: classes,
	}
}

func eventDaoToDomain(e dao.Event) domain.Event {
	tiers := make([]domain.PerchTier, len(e.FeeScheme.PerchTiers))
	for i, t := range e.FeeScheme.PerchTiers {
		tiers[i] = domain.PerchTier{
			ID:          t.ID,
			FeeSchemeID: t.FeeSchemeID,
			BirdNo:      t.BirdNo,
			Fee:         t.Fee,
		}
	}

	prizes := make([]domain.PrizeItem, len(e.PrizeScheme))
	for i, p := range e.PrizeScheme {
		prizes[i] = domain.PrizeItem{
			ID:           p.ID,
			EventID:      p.EventID,
			RaceType:     p.RaceType,
			FromPosition: p.FromPosition,
			ToPosition:   p.ToPosition,
			PrizeAmount:  p.PrizeAmount,
		}
	}

	classes := make([]domain.BettingClass, len(e.BettingScheme))
	for i, c := range e.BettingScheme {
		classes[i] = domain.BettingClass{
			ID:      c.ID,
			EventID: c.EventID,
			Name:    c.Name,
			Payout:  c.Payout,
		}
	}

	return domain.Event{
		ID:          e.ID,
		Name:        e.Name,
		Location:    e.Location,
		Description: e.Description,
		StartsAt:    e.StartsAt,
		EndsAt:      e.EndsAt,
		CreatorID:   e.CreatorID,
		Closed:      e.Closed,
		FeeScheme: domain.FeeScheme{
			ID:         e.FeeScheme.ID,
			EventID:    e.FeeScheme.EventID,
			EntryFee:   e.FeeScheme.EntryFee,
			MaxBirds:   e.FeeScheme.MaxBirds,
			SpeedUnit:  e.FeeScheme.SpeedUnit,
			PerchTiers: tiers,
		},
		PrizeScheme:   prizes,
		BettingScheme: classes,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}
