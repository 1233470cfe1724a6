package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openloft/pigeonrace/internal/domain"
)

// fakeBasketRepo mirrors the row-locked dao semantics with a mutex so the
// concurrent assignment test exercises a serialized check-then-act.
type fakeBasketRepo struct {
	mu sync.Mutex

	races   map[uint]domain.Race
	baskets map[uint]domain.Basket
	entries map[uint]*domain.RaceEntry

	nextBasketID uint
}

func newFakeBasketRepo() *fakeBasketRepo {
	return &fakeBasketRepo{
		races:   map[uint]domain.Race{1: {ID: 1, EventID: 1}},
		baskets: map[uint]domain.Basket{},
		entries: map[uint]*domain.RaceEntry{},
	}
}

func (f *fakeBasketRepo) addEntry(id uint, status domain.EntryStatus) {
	f.entries[id] = &domain.RaceEntry{ID: id, RaceID: 1, Status: status}
}

func (f *fakeBasketRepo) FindByID(_ context.Context, id uint) (domain.Race, error) {
	race, ok := f.races[id]
	if !ok {
		return domain.Race{}, ErrRaceNotFound
	}
	return race, nil
}

func (f *fakeBasketRepo) CreateBasket(_ context.Context, basket domain.Basket) (domain.Basket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, existing := range f.baskets {
		if existing.RaceID == basket.RaceID && existing.BasketNo == basket.BasketNo && existing.Side == basket.Side {
			return domain.Basket{}, ErrBasketExists
		}
	}

	f.nextBasketID++
	basket.ID = f.nextBasketID
	f.baskets[basket.ID] = basket
	return basket, nil
}

func (f *fakeBasketRepo) FindBasketByID(_ context.Context, id uint) (domain.Basket, error) {
	basket, ok := f.baskets[id]
	if !ok {
		return domain.Basket{}, ErrBasketNotFound
	}
	return basket, nil
}

func (f *fakeBasketRepo) FindBasketsByRace(_ context.Context, raceID uint) ([]domain.Basket, error) {
	var out []domain.Basket
	for _, b := range f.baskets {
		if b.RaceID == raceID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBasketRepo) DeleteBasket(_ context.Context, basketID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.baskets[basketID]; !ok {
		return ErrBasketNotFound
	}
	for _, e := range f.entries {
		if (e.LoftBasketID != nil && *e.LoftBasketID == basketID) ||
			(e.RaceBasketID != nil && *e.RaceBasketID == basketID) {
			return ErrBasketNotEmpty
		}
	}
	delete(f.baskets, basketID)
	return nil
}

func (f *fakeBasketRepo) AssignEntries(_ context.Context, entryIDs []uint, basketID uint, side domain.BasketSide, arrivedAt time.Time) ([]domain.RaceEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	basket, ok := f.baskets[basketID]
	if !ok {
		return nil, ErrBasketNotFound
	}
	if basket.Side != side {
		return nil, &domain.ValidationError{Field: "side", Message: "basket side mismatch"}
	}

	// Validate the whole batch before mutating anything.
	for _, id := range entryIDs {
		entry, ok := f.entries[id]
		if !ok {
			return nil, ErrEntryNotFound
		}
		if side == domain.SideLoft {
			if entry.Status != domain.EntryRegistered {
				return nil, ErrEntryConflict
			}
		} else if entry.Status != domain.EntryReleased && entry.Status != domain.EntryLoftBasketed {
			return nil, ErrEntryConflict
		}
	}

	out := make([]domain.RaceEntry, 0, len(entryIDs))
	for _, id := range entryIDs {
		entry := f.entries[id]
		if side == domain.SideLoft {
			entry.Status = domain.EntryLoftBasketed
			entry.LoftBasketID = &basket.ID
		} else {
			entry.Status = domain.EntryRaceBasketed
			entry.RaceBasketID = &basket.ID
			if entry.ArrivedAt == nil {
				at := arrivedAt
				entry.ArrivedAt = &at
			}
		}
		out = append(out, *entry)
	}
	return out, nil
}

func (f *fakeBasketRepo) UnassignEntries(_ context.Context, entryIDs []uint, side domain.BasketSide) ([]domain.RaceEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]domain.RaceEntry, 0, len(entryIDs))
	for _, id := range entryIDs {
		entry, ok := f.entries[id]
		if !ok {
			return nil, ErrEntryNotFound
		}
		if side == domain.SideLoft {
			if entry.Status != domain.EntryLoftBasketed {
				return nil, ErrEntryConflict
			}
			entry.Status = domain.EntryRegistered
			entry.LoftBasketID = nil
		} else {
			if entry.Status != domain.EntryRaceBasketed {
				return nil, ErrEntryConflict
			}
			entry.Status = domain.EntryReleased
			entry.RaceBasketID = nil
			entry.ArrivedAt = nil
		}
		out = append(out, *entry)
	}
	return out, nil
}

func TestBasketService_CreateBasket(t *testing.T) {
	repo := newFakeBasketRepo()
	svc := NewBasketService(repo)

	basket, err := svc.CreateBasket(context.Background(), 1, 1, domain.SideLoft)
	require.NoError(t, err)
	assert.NotZero(t, basket.ID)

	// Same number on the other side is fine.
	_, err = svc.CreateBasket(context.Background(), 1, 1, domain.SideRace)
	require.NoError(t, err)

	// Exact duplicate is a conflict.
	_, err = svc.CreateBasket(context.Background(), 1, 1, domain.SideLoft)
	assert.ErrorIs(t, err, ErrBasketExists)
}

func TestBasketService_CreateBasket_Validation(t *testing.T) {
	svc := NewBasketService(newFakeBasketRepo())

	_, err := svc.CreateBasket(context.Background(), 1, 1, domain.BasketSide("middle"))
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "side", ve.Field)

	_, err = svc.CreateBasket(context.Background(), 1, 0, domain.SideLoft)
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "basket_no", ve.Field)

	_, err = svc.CreateBasket(context.Background(), 99, 1, domain.SideLoft)
	assert.ErrorIs(t, err, ErrRaceNotFound)
}

func TestBasketService_AssignEntries_LoftSide(t *testing.T) {
	repo := newFakeBasketRepo()
	svc := NewBasketService(repo)
	basket, err := svc.CreateBasket(context.Background(), 1, 1, domain.SideLoft)
	require.NoError(t, err)

	repo.addEntry(1, domain.EntryRegistered)
	repo.addEntry(2, domain.EntryRegistered)

	entries, err := svc.AssignEntries(context.Background(), []uint{1, 2}, basket.ID, domain.SideLoft, time.Time{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, domain.EntryLoftBasketed, e.Status)
		require.NotNil(t, e.LoftBasketID)
		assert.Equal(t, basket.ID, *e.LoftBasketID)
		assert.Nil(t, e.ArrivedAt, "loft assignment never stamps arrivals")
	}
}

func TestBasketService_AssignEntries_RaceSideStampsArrival(t *testing.T) {
	repo := newFakeBasketRepo()
	svc := NewBasketService(repo)
	basket, err := svc.CreateBasket(context.Background(), 1, 1, domain.SideRace)
	require.NoError(t, err)

	repo.addEntry(1, domain.EntryReleased)

	entries, err := svc.AssignEntries(context.Background(), []uint{1}, basket.ID, domain.SideRace, time.Time{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.EntryRaceBasketed, entries[0].Status)
	require.NotNil(t, entries[0].ArrivedAt, "zero arrival defaults to the server clock")
	assert.False(t, entries[0].ArrivedAt.IsZero())
}

func TestBasketService_AssignEntries_AllOrNothing(t *testing.T) {
	repo := newFakeBasketRepo()
	svc := NewBasketService(repo)
	basket, err := svc.CreateBasket(context.Background(), 1, 1, domain.SideLoft)
	require.NoError(t, err)

	repo.addEntry(1, domain.EntryRegistered)
	repo.addEntry(2, domain.EntryReleased) // not loft-basketable

	_, err = svc.AssignEntries(context.Background(), []uint{1, 2}, basket.ID, domain.SideLoft, time.Time{})
	require.ErrorIs(t, err, ErrEntryConflict)

	assert.Equal(t, domain.EntryRegistered, repo.entries[1].Status, "good entry must not advance when the batch fails")
}

func TestBasketService_AssignEntries_SideMismatch(t *testing.T) {
	repo := newFakeBasketRepo()
	svc := NewBasketService(repo)
	basket, err := svc.CreateBasket(context.Background(), 1, 1, domain.SideLoft)
	require.NoError(t, err)

	repo.addEntry(1, domain.EntryRegistered)

	_, err = svc.AssignEntries(context.Background(), []uint{1}, basket.ID, domain.SideRace, time.Time{})
	var ve *domain.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestBasketService_AssignEntries_Validation(t *testing.T) {
	svc := NewBasketService(newFakeBasketRepo())

	_, err := svc.AssignEntries(context.Background(), nil, 1, domain.SideLoft, time.Time{})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "entry_ids", ve.Field)
}

func TestBasketService_ConcurrentAssignment_OneWins(t *testing.T) {
	repo := newFakeBasketRepo()
	svc := NewBasketService(repo)
	basket, err := svc.CreateBasket(context.Background(), 1, 1, domain.SideLoft)
	require.NoError(t, err)

	repo.addEntry(1, domain.EntryRegistered)

	const workers = 8
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AssignEntries(context.Background(), []uint{1}, basket.ID, domain.SideLoft, time.Time{})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	wins, conflicts := 0, 0
	for err := range errs {
		if err == nil {
			wins++
		} else {
			require.ErrorIs(t, err, ErrEntryConflict)
			conflicts++
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, workers-1, conflicts)
	assert.Equal(t, domain.EntryLoftBasketed, repo.entries[1].Status)
}

func TestBasketService_BasketRoundTrip(t *testing.T) {
	repo := newFakeBasketRepo()
	svc := NewBasketService(repo)
	basket, err := svc.CreateBasket(context.Background(), 1, 1, domain.SideLoft)
	require.NoError(t, err)

	repo.addEntry(1, domain.EntryRegistered)

	_, err = svc.AssignEntries(context.Background(), []uint{1}, basket.ID, domain.SideLoft, time.Time{})
	require.NoError(t, err)

	// Occupied basket cannot be deleted.
	err = svc.DeleteBasket(context.Background(), basket.ID)
	require.ErrorIs(t, err, ErrBasketNotEmpty)

	entries, err := svc.UnassignEntries(context.Background(), []uint{1}, domain.SideLoft)
	require.NoError(t, err)
	assert.Equal(t, domain.EntryRegistered, entries[0].Status)
	assert.Nil(t, entries[0].LoftBasketID)

	require.NoError(t, svc.DeleteBasket(context.Background(), basket.ID))

	_, err = svc.UnassignEntries(context.Background(), []uint{1}, domain.SideLoft)
	assert.ErrorIs(t, err, ErrEntryConflict, "an unassigned entry cannot be unassigned twice")
}
