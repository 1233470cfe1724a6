package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openloft/pigeonrace/internal/domain"
	"github.com/openloft/pigeonrace/internal/repository/dao"
)

var (
	ErrRaceNotFound        = dao.ErrRaceNotFound
	ErrRaceClosed          = dao.ErrRaceClosed
	ErrRaceAlreadyStarted  = dao.ErrRaceAlreadyStarted
	ErrNothingToRelease    = dao.ErrNothingToRelease
	ErrEntryNotFound       = dao.ErrEntryNotFound
	ErrEntryConflict       = dao.ErrEntryConflict
	ErrEntryNotForeignable = dao.ErrEntryNotForeignable
	ErrBasketNotFound      = dao.ErrBasketNotFound
	ErrBasketExists        = dao.ErrBasketExists
	ErrBasketNotEmpty      = dao.ErrBasketNotEmpty
)

type RaceDAO interface {
	Insert(ctx context.Context, race dao.Race) (dao.Race, error)
	FanOutEntries(ctx context.Context, raceID uint) error
	FindByID(ctx context.Context, id uint) (dao.Race, error)
	FindByEvent(ctx context.Context, eventID uint) ([]dao.Race, error)
	Start(ctx context.Context, raceID uint, releasedAt time.Time, force bool) (dao.Race, error)
	Close(ctx context.Context, raceID uint) (dao.Race, error)
	FindEntriesByRace(ctx context.Context, raceID uint) ([]dao.RaceEntry, error)
	FindEntriesByRegistration(ctx context.Context, registrationID uint) ([]dao.RaceEntry, error)
	FindEntryByID(ctx context.Context, id uint) (dao.RaceEntry, error)
	FindEntryByBird(ctx context.Context, raceID, birdID uint) (dao.RaceEntry, error)
	RecordArrival(ctx context.Context, entryID uint, arrivedAt time.Time, position *int) (dao.RaceEntry, error)
	MarkForeign(ctx context.Context, entryID uint) (dao.RaceEntry, error)
	UpdateResults(ctx context.Context, results []dao.EntryResult) error
	FindEnrollments(ctx context.Context, raceID uint) (map[uint][]uint, error)
}

type BasketDAO interface {
	Insert(ctx context.Context, basket dao.Basket) (dao.Basket, error)
	FindByID(ctx context.Context, id uint) (dao.Basket, error)
	FindByRace(ctx context.Context, raceID uint) ([]dao.Basket, error)
	Delete(ctx context.Context, basketID uint) error
	AssignEntries(ctx context.Context, entryIDs []uint, basketID uint, loftSide bool, arrivedAt time.Time) ([]dao.RaceEntry, error)
	UnassignEntries(ctx context.Context, entryIDs []uint, loftSide bool) ([]dao.RaceEntry, error)
}

type RaceRepository struct {
	dao       RaceDAO
	basketDAO BasketDAO
}

func NewRaceRepository(dao RaceDAO, basketDAO BasketDAO) *RaceRepository {
	return &RaceRepository{
		dao:       dao,
		basketDAO: basketDAO,
	}
}

func (r *RaceRepository) Create(ctx context.Context, race domain.Race) (domain.Race, error) {
	created, err := r.dao.Insert(ctx, raceDomainToDao(race))
	if err != nil {
		return domain.Race{}, fmt.Errorf("r.dao.Insert -> %w", err)
	}

	return raceDaoToDomain(created), nil
}

func (r *RaceRepository) FanOutEntries(ctx context.Context, raceID uint) error {
	if err := r.dao.FanOutEntries(ctx, raceID); err != nil {
		return fmt.Errorf("r.dao.FanOutEntries -> %w", err)
	}

	return nil
}

func (r *RaceRepository) FindByID(ctx context.Context, id uint) (domain.Race, error) {
	found, err := r.dao.FindByID(ctx, id)
	if err != nil {
		return domain.Race{}, fmt.Errorf("r.dao.FindByID -> %w", err)
	}

	return raceDaoToDomain(found), nil
}

func (r *RaceRepository) FindByEvent(ctx context.Context, eventID uint) ([]domain.Race, error) {
	found, err := r.dao.FindByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindByEvent -> %w", err)
	}

	races := make([]domain.Race, len(found))
	for i, race := range found {
		races[i] = raceDaoToDomain(race)
	}

	return races, nil
}

func (r *RaceRepository) Start(ctx context.Context, raceID uint, releasedAt time.Time, force bool) (domain.Race, error) {
	started, err := r.dao.Start(ctx, raceID, releasedAt, force)
	if err != nil {
		return domain.Race{}, fmt.Errorf("r.dao.Start -> %w", err)
	}

	return raceDaoToDomain(started), nil
}

func (r *RaceRepository) Close(ctx context.Context, raceID uint) (domain.Race, error) {
	closed, err := r.dao.Close(ctx, raceID)
	if err != nil {
		return domain.Race{}, fmt.Errorf("r.dao.Close -> %w", err)
	}

	return raceDaoToDomain(closed), nil
}

func (r *RaceRepository) FindEntriesByRace(ctx context.Context, raceID uint) ([]domain.RaceEntry, error) {
	found, err := r.dao.FindEntriesByRace(ctx, raceID)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindEntriesByRace -> %w", err)
	}

	return entriesDaoToDomain(found), nil
}

func (r *RaceRepository) FindEntriesByRegistration(ctx context.Context, registrationID uint) ([]domain.RaceEntry, error) {
	found, err := r.dao.FindEntriesByRegistration(ctx, registrationID)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindEntriesByRegistration -> %w", err)
	}

	return entriesDaoToDomain(found), nil
}

func (r *RaceRepository) FindEntryByID(ctx context.Context, id uint) (domain.RaceEntry, error) {
	found, err := r.dao.FindEntryByID(ctx, id)
	if err != nil {
		return domain.RaceEntry{}, fmt.Errorf("r.dao.FindEntryByID -> %w", err)
	}

	return entryDaoToDomain(found), nil
}

func (r *RaceRepository) FindEntryByBird(ctx context.Context, raceID, birdID uint) (domain.RaceEntry, error) {
	found, err := r.dao.FindEntryByBird(ctx, raceID, birdID)
	if err != nil {
		return domain.RaceEntry{}, fmt.Errorf("r.dao.FindEntryByBird -> %w", err)
	}

	return entryDaoToDomain(found), nil
}

func (r *RaceRepository) RecordArrival(ctx context.Context, entryID uint, arrivedAt time.Time, position *int) (domain.RaceEntry, error) {
	updated, err := r.dao.RecordArrival(ctx, entryID, arrivedAt, position)
	if err != nil {
		return domain.RaceEntry{}, fmt.Errorf("r.dao.RecordArrival -> %w", mapEntryError(err))
	}

	return entryDaoToDomain(updated), nil
}

func (r *RaceRepository) MarkForeign(ctx context.Context, entryID uint) (domain.RaceEntry, error) {
	updated, err := r.dao.MarkForeign(ctx, entryID)
	if err != nil {
		return domain.RaceEntry{}, fmt.Errorf("r.dao.MarkForeign -> %w", err)
	}

	return entryDaoToDomain(updated), nil
}

func (r *RaceRepository) UpdateResults(ctx context.Context, results []domain.RaceEntry) error {
	daoResults := make([]dao.EntryResult, len(results))
	for i, entry := range results {
		daoResults[i] = dao.EntryResult{
			EntryID:      entry.ID,
			BirdPosition: entry.BirdPosition,
			Speed:        entry.Speed,
			PrizeValue:   entry.PrizeValue,
		}
	}

	if err := r.dao.UpdateResults(ctx, daoResults); err != nil {
		return fmt.Errorf("r.dao.UpdateResults -> %w", err)
	}

	return nil
}

func (r *RaceRepository) FindEnrollments(ctx context.Context, raceID uint) (map[uint][]uint, error) {
	enrollment, err := r.dao.FindEnrollments(ctx, raceID)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindEnrollments -> %w", err)
	}

	return enrollment, nil
}

func (r *RaceRepository) CreateBasket(ctx context.Context, basket domain.Basket) (domain.Basket, error) {
	created, err := r.basketDAO.Insert(ctx, dao.Basket{
		RaceID:   basket.RaceID,
		BasketNo: basket.BasketNo,
		LoftSide: basket.Side == domain.SideLoft,
	})
	if err != nil {
		return domain.Basket{}, fmt.Errorf("r.basketDAO.Insert -> %w", err)
	}

	return basketDaoToDomain(created), nil
}

func (r *RaceRepository) FindBasketByID(ctx context.Context, id uint) (domain.Basket, error) {
	found, err := r.basketDAO.FindByID(ctx, id)
	if err != nil {
		return domain.Basket{}, fmt.Errorf("r.basketDAO.FindByID -> %w", err)
	}

	return basketDaoToDomain(found), nil
}

func (r *RaceRepository) FindBasketsByRace(ctx context.Context, raceID uint) ([]domain.Basket, error) {
	found, err := r.basketDAO.FindByRace(ctx, raceID)
	if err != nil {
		return nil, fmt.Errorf("r.basketDAO.FindByRace -> %w", err)
	}

	baskets := make([]domain.Basket, len(found))
	for i, b := range found {
		baskets[i] = basketDaoToDomain(b)
	}

	return baskets, nil
}

func (r *RaceRepository) DeleteBasket(ctx context.Context, basketID uint) error {
	if err := r.basketDAO.Delete(ctx, basketID); err != nil {
		return fmt.Errorf("r.basketDAO.Delete -> %w", err)
	}

	return nil
}

func (r *RaceRepository) AssignEntries(ctx context.Context, entryIDs []uint, basketID uint, side domain.BasketSide, arrivedAt time.Time) ([]domain.RaceEntry, error) {
	assigned, err := r.basketDAO.AssignEntries(ctx, entryIDs, basketID, side == domain.SideLoft, arrivedAt)
	if err != nil {
		return nil, fmt.Errorf("r.basketDAO.AssignEntries -> %w", mapEntryError(err))
	}

	return entriesDaoToDomain(assigned), nil
}

func (r *RaceRepository) UnassignEntries(ctx context.Context, entryIDs []uint, side domain.BasketSide) ([]domain.RaceEntry, error) {
	unassigned, err := r.basketDAO.UnassignEntries(ctx, entryIDs, side == domain.SideLoft)
	if err != nil {
		return nil, fmt.Errorf("r.basketDAO.UnassignEntries -> %w", mapEntryError(err))
	}

	return entriesDaoToDomain(unassigned), nil
}

// mapEntryError translates dao-level batch validation failures into the
// domain's ValidationError so callers above the repository never see dao
// types.
func mapEntryError(err error) error {
	var ve *dao.EntryValidationError
	if errors.As(err, &ve) {
		return &domain.ValidationError{
			Field:   ve.Field,
			EntryID: ve.EntryID,
			Message: ve.Reason,
		}
	}

	return err
}

func raceDomainToDao(race domain.Race) dao.Race {
	return dao.Race{
		ID:             race.ID,
		EventID:        race.EventID,
		Name:           race.Name,
		RaceType:       race.RaceType,
		Distance:       race.Distance,
		ReleaseWeather: race.ReleaseWeather,
		ArrivalWeather: race.ArrivalWeather,
		ReleasedAt:     race.ReleasedAt,
		Closed:         race.Closed,
		Live:           race.Live,
	}
}

func raceDaoToDomain(race dao.Race) domain.Race {
	return domain.Race{
		ID:             race.ID,
		EventID:        race.EventID,
		Name:           race.Name,
		RaceType:       race.RaceType,
		Distance:       race.Distance,
		ReleaseWeather: race.ReleaseWeather,
		ArrivalWeather: race.ArrivalWeather,
		ReleasedAt:     race.ReleasedAt,
		Closed:         race.Closed,
		Live:           race.Live,
		CreatedAt:      race.CreatedAt,
		UpdatedAt:      race.UpdatedAt,
	}
}

func entryDaoToDomain(entry dao.RaceEntry) domain.RaceEntry {
	return domain.RaceEntry{
		ID:                 entry.ID,
		RaceID:             entry.RaceID,
		RegistrationItemID: entry.RegistrationItemID,
		BirdID:             entry.BirdID,
		Status:             domain.EntryStatus(entry.Status),
		LoftBasketID:       entry.LoftBasketID,
		RaceBasketID:       entry.RaceBasketID,
		ArrivedAt:          entry.ArrivedAt,
		BirdPosition:       entry.BirdPosition,
		Speed:              entry.Speed,
		PrizeValue:         entry.PrizeValue,
		CreatedAt:          entry.CreatedAt,
		UpdatedAt:          entry.UpdatedAt,
	}
}

func entriesDaoToDomain(entries []dao.RaceEntry) []domain.RaceEntry {
	out := make([]domain.RaceEntry, len(entries))
	for i, entry := range entries {
		out[i] = entryDaoToDomain(entry)
	}
	return out
}

func basketDaoToDomain(b dao.Basket) domain.Basket {
	side := domain.SideRace
	if b.LoftSide {
		side = domain.SideLoft
	}

	return domain.Basket{
		ID:        b.ID,
		RaceID:    b.RaceID,
		BasketNo:  b.BasketNo,
		Side:      side,
		CreatedAt: b.CreatedAt,
	}
}
