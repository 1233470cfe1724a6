package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openloft/pigeonrace/internal/domain"
)

type fakeRaceRepo struct {
	races   map[uint]domain.Race
	entries map[uint][]domain.RaceEntry

	fanOutCalls int
}

func (f *fakeRaceRepo) Create(_ context.Context, race domain.Race) (domain.Race, error) {
	race.ID = uint(len(f.races) + 1)
	if f.races == nil {
		f.races = map[uint]domain.Race{}
	}
	f.races[race.ID] = race
	return race, nil
}

func (f *fakeRaceRepo) FanOutEntries(_ context.Context, raceID uint) error {
	race, ok := f.races[raceID]
	if !ok {
		return ErrRaceNotFound
	}
	if !race.AcceptsEntries() {
		return ErrRaceClosed
	}
	f.fanOutCalls++

	// One entry per known bird, skipping birds already entered.
	existing := make(map[uint]bool)
	for _, e := range f.entries[raceID] {
		existing[e.BirdID] = true
	}
	for birdID := uint(1); birdID <= 3; birdID++ {
		if existing[birdID] {
			continue
		}
		f.entries[raceID] = append(f.entries[raceID], domain.RaceEntry{
			ID:     uint(len(f.entries[raceID]) + 1),
			RaceID: raceID,
			BirdID: birdID,
			Status: domain.EntryRegistered,
		})
	}
	return nil
}

func (f *fakeRaceRepo) FindByID(_ context.Context, id uint) (domain.Race, error) {
	race, ok := f.races[id]
	if !ok {
		return domain.Race{}, ErrRaceNotFound
	}
	return race, nil
}

func (f *fakeRaceRepo) FindByEvent(_ context.Context, _ uint) ([]domain.Race, error) {
	return nil, nil
}

func (f *fakeRaceRepo) Start(_ context.Context, raceID uint, releasedAt time.Time, force bool) (domain.Race, error) {
	race, ok := f.races[raceID]
	if !ok {
		return domain.Race{}, ErrRaceNotFound
	}
	if race.Live {
		return domain.Race{}, ErrRaceAlreadyStarted
	}

	released := 0
	for i, e := range f.entries[raceID] {
		if e.Status == domain.EntryLoftBasketed {
			f.entries[raceID][i].Status = domain.EntryReleased
			released++
		}
	}
	if released == 0 && !force {
		return domain.Race{}, ErrNothingToRelease
	}

	race.Live = true
	race.Closed = true
	race.ReleasedAt = &releasedAt
	f.races[raceID] = race
	return race, nil
}

func (f *fakeRaceRepo) Close(_ context.Context, raceID uint) (domain.Race, error) {
	race, ok := f.races[raceID]
	if !ok {
		return domain.Race{}, ErrRaceNotFound
	}
	race.Closed = true
	f.races[raceID] = race
	return race, nil
}

func (f *fakeRaceRepo) FindEntriesByRace(_ context.Context, raceID uint) ([]domain.RaceEntry, error) {
	return f.entries[raceID], nil
}

func (f *fakeRaceRepo) FindEntriesByRegistration(_ context.Context, _ uint) ([]domain.RaceEntry, error) {
	return nil, nil
}

func (f *fakeRaceRepo) FindEntryByID(_ context.Context, id uint) (domain.RaceEntry, error) {
	for _, entries := range f.entries {
		for _, e := range entries {
			if e.ID == id {
				return e, nil
			}
		}
	}
	return domain.RaceEntry{}, ErrEntryNotFound
}

func (f *fakeRaceRepo) FindEntryByBird(_ context.Context, raceID, birdID uint) (domain.RaceEntry, error) {
	for _, e := range f.entries[raceID] {
		if e.BirdID == birdID {
			return e, nil
		}
	}
	return domain.RaceEntry{}, ErrEntryNotFound
}

func (f *fakeRaceRepo) MarkForeign(_ context.Context, entryID uint) (domain.RaceEntry, error) {
	for raceID, entries := range f.entries {
		for i, e := range entries {
			if e.ID != entryID {
				continue
			}
			if e.Status != domain.EntryRegistered {
				return domain.RaceEntry{}, ErrEntryNotForeignable
			}
			f.entries[raceID][i].Status = domain.EntryForeignBird
			return f.entries[raceID][i], nil
		}
	}
	return domain.RaceEntry{}, ErrEntryNotFound
}

type fakeBirdRepo struct {
	birds map[string]domain.Bird
}

func (f *fakeBirdRepo) FindBirdByBand(_ context.Context, band domain.Band) (domain.Bird, error) {
	bird, ok := f.birds[band.String()]
	if !ok {
		return domain.Bird{}, ErrBirdNotFound
	}
	return bird, nil
}

func newRaceFixture() (*RaceService, *fakeRaceRepo) {
	repo := &fakeRaceRepo{
		races:   map[uint]domain.Race{},
		entries: map[uint][]domain.RaceEntry{},
	}
	events := &fakeEventRepo{events: map[uint]domain.Event{1: testEvent()}}
	svc := NewRaceService(repo, &fakeBirdRepo{}, events)
	return svc, repo
}

func TestRaceService_CreateRace(t *testing.T) {
	svc, _ := newRaceFixture()

	race, err := svc.CreateRace(context.Background(), domain.Race{EventID: 1, Name: "Final 400", RaceType: "final", Distance: 400})
	require.NoError(t, err)
	assert.NotZero(t, race.ID)
	assert.True(t, race.AcceptsEntries())
}

func TestRaceService_CreateRace_RejectsBadDistance(t *testing.T) {
	svc, _ := newRaceFixture()

	_, err := svc.CreateRace(context.Background(), domain.Race{EventID: 1, Distance: 0})

	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "distance", ve.Field)
}

func TestRaceService_CreateRace_ClosedEvent(t *testing.T) {
	repo := &fakeRaceRepo{races: map[uint]domain.Race{}, entries: map[uint][]domain.RaceEntry{}}
	closed := testEvent()
	closed.Closed = true
	svc := NewRaceService(repo, &fakeBirdRepo{}, &fakeEventRepo{events: map[uint]domain.Event{1: closed}})

	_, err := svc.CreateRace(context.Background(), domain.Race{EventID: 1, Distance: 100})
	assert.ErrorIs(t, err, ErrEventClosed)
}

func TestRaceService_CreateEntriesForRace_Idempotent(t *testing.T) {
	svc, repo := newRaceFixture()
	race, err := svc.CreateRace(context.Background(), domain.Race{EventID: 1, Distance: 100})
	require.NoError(t, err)

	first, err := svc.CreateEntriesForRace(context.Background(), race.ID)
	require.NoError(t, err)
	require.Len(t, first, 3)

	second, err := svc.CreateEntriesForRace(context.Background(), race.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second, "re-running fan-out must not duplicate entries")
	assert.Equal(t, 2, repo.fanOutCalls)
}

func TestRaceService_CreateEntriesForRace_ClosedRace(t *testing.T) {
	svc, repo := newRaceFixture()
	race, err := svc.CreateRace(context.Background(), domain.Race{EventID: 1, Distance: 100})
	require.NoError(t, err)

	race.Closed = true
	repo.races[race.ID] = race

	_, err = svc.CreateEntriesForRace(context.Background(), race.ID)
	assert.ErrorIs(t, err, ErrRaceClosed)
}

func TestRaceService_StartRace(t *testing.T) {
	svc, repo := newRaceFixture()
	race, err := svc.CreateRace(context.Background(), domain.Race{EventID: 1, Distance: 100})
	require.NoError(t, err)

	_, err = svc.CreateEntriesForRace(context.Background(), race.ID)
	require.NoError(t, err)

	// Two birds basketed, one no-show.
	repo.entries[race.ID][0].Status = domain.EntryLoftBasketed
	repo.entries[race.ID][1].Status = domain.EntryLoftBasketed

	releasedAt := time.Date(2025, 5, 10, 8, 0, 0, 0, time.UTC)
	started, err := svc.StartRace(context.Background(), race.ID, releasedAt, false)
	require.NoError(t, err)
	assert.True(t, started.Live)
	assert.True(t, started.Closed)
	require.NotNil(t, started.ReleasedAt)
	assert.True(t, started.ReleasedAt.Equal(releasedAt))

	assert.Equal(t, domain.EntryReleased, repo.entries[race.ID][0].Status)
	assert.Equal(t, domain.EntryReleased, repo.entries[race.ID][1].Status)
	assert.Equal(t, domain.EntryRegistered, repo.entries[race.ID][2].Status, "no-shows stay behind")

	_, err = svc.StartRace(context.Background(), race.ID, releasedAt, false)
	assert.ErrorIs(t, err, ErrRaceAlreadyStarted)
}

func TestRaceService_StartRace_NothingToRelease(t *testing.T) {
	svc, _ := newRaceFixture()
	race, err := svc.CreateRace(context.Background(), domain.Race{EventID: 1, Distance: 100})
	require.NoError(t, err)

	releasedAt := time.Now().UTC()
	_, err = svc.StartRace(context.Background(), race.ID, releasedAt, false)
	assert.ErrorIs(t, err, ErrNothingToRelease)

	started, err := svc.StartRace(context.Background(), race.ID, releasedAt, true)
	require.NoError(t, err)
	assert.True(t, started.Live)
}

func TestRaceService_MarkForeign(t *testing.T) {
	svc, repo := newRaceFixture()
	race, err := svc.CreateRace(context.Background(), domain.Race{EventID: 1, Distance: 100})
	require.NoError(t, err)
	_, err = svc.CreateEntriesForRace(context.Background(), race.ID)
	require.NoError(t, err)

	entry, err := svc.MarkForeign(context.Background(), repo.entries[race.ID][0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EntryForeignBird, entry.Status)

	repo.entries[race.ID][1].Status = domain.EntryReleased
	_, err = svc.MarkForeign(context.Background(), repo.entries[race.ID][1].ID)
	assert.ErrorIs(t, err, ErrEntryNotForeignable)
}

func TestRaceService_ResolveScan(t *testing.T) {
	repo := &fakeRaceRepo{
		races:   map[uint]domain.Race{1: {ID: 1, EventID: 1}},
		entries: map[uint][]domain.RaceEntry{1: {{ID: 10, RaceID: 1, BirdID: 5, Status: domain.EntryReleased}}},
	}
	bird := domain.Bird{ID: 5, Band: domain.Band{Federation: "AU", Year: 2025, Letters: "ARPU", Serial: "123"}}
	birds := &fakeBirdRepo{birds: map[string]domain.Bird{bird.Band.String(): bird}}
	svc := NewRaceService(repo, birds, &fakeEventRepo{events: map[uint]domain.Event{1: testEvent()}})

	entry, err := svc.ResolveScan(context.Background(), 1, "AU-2025-ARPU-123")
	require.NoError(t, err)
	assert.Equal(t, uint(10), entry.ID)

	_, err = svc.ResolveScan(context.Background(), 1, "AU-2025-ARPU-999")
	assert.ErrorIs(t, err, ErrBirdNotFound)

	_, err = svc.ResolveScan(context.Background(), 1, "not a band")
	var ve *domain.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestParseBand(t *testing.T) {
	band, err := ParseBand("AU-2025-ARPU-1234")
	require.NoError(t, err)
	assert.Equal(t, domain.Band{Federation: "AU", Year: 2025, Letters: "ARPU", Serial: "1234"}, band)

	for _, bad := range []string{"", "AU-2025-ARPU", "AU-YEAR-ARPU-1234", "AU 2025 ARPU 1234"} {
		_, err := ParseBand(bad)
		var ve *domain.ValidationError
		assert.ErrorAs(t, err, &ve, bad)
	}
}
