package service

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/openloft/pigeonrace/internal/domain"
	"github.com/openloft/pigeonrace/internal/repository"
)

var (
	ErrRaceNotFound        = repository.ErrRaceNotFound
	ErrRaceClosed          = repository.ErrRaceClosed
	ErrRaceAlreadyStarted  = repository.ErrRaceAlreadyStarted
	ErrNothingToRelease    = repository.ErrNothingToRelease
	ErrEntryNotFound       = repository.ErrEntryNotFound
	ErrEntryConflict       = repository.ErrEntryConflict
	ErrEntryNotForeignable = repository.ErrEntryNotForeignable
)

var bandPattern = regexp.MustCompile(`^([A-Za-z]+)-(\d{2,4})-([A-Za-z]+)-([A-Za-z0-9]+)$`)

type RaceRepository interface {
	Create(ctx context.Context, race domain.Race) (domain.Race, error)
	FanOutEntries(ctx context.Context, raceID uint) error
	FindByID(ctx context.Context, id uint) (domain.Race, error)
	FindByEvent(ctx context.Context, eventID uint) ([]domain.Race, error)
	Start(ctx context.Context, raceID uint, releasedAt time.Time, force bool) (domain.Race, error)
	Close(ctx context.Context, raceID uint) (domain.Race, error)
	FindEntriesByRace(ctx context.Context, raceID uint) ([]domain.RaceEntry, error)
	FindEntriesByRegistration(ctx context.Context, registrationID uint) ([]domain.RaceEntry, error)
	FindEntryByID(ctx context.Context, id uint) (domain.RaceEntry, error)
	FindEntryByBird(ctx context.Context, raceID, birdID uint) (domain.RaceEntry, error)
	MarkForeign(ctx context.Context, entryID uint) (domain.RaceEntry, error)
}

type RaceBirdRepository interface {
	FindBirdByBand(ctx context.Context, band domain.Band) (domain.Bird, error)
}

// RaceService is the race entry manager: it creates one entry per
// (bird, race) pair and drives the race lifecycle.
type RaceService struct {
	repo      RaceRepository
	birdRepo  RaceBirdRepository
	eventRepo RegistrationEventRepository
}

func NewRaceService(repo RaceRepository, birdRepo RaceBirdRepository, eventRepo RegistrationEventRepository) *RaceService {
	return &RaceService{
		repo:      repo,
		birdRepo:  birdRepo,
		eventRepo: eventRepo,
	}
}

// CreateRace creates the race and fans out one REGISTERED entry per bird
// already registered into the event.
func (s *RaceService) CreateRace(ctx context.Context, race domain.Race) (domain.Race, error) {
	event, err := s.eventRepo.FindByID(ctx, race.EventID)
	if err != nil {
		return domain.Race{}, fmt.Errorf("s.eventRepo.FindByID -> %w", err)
	}
	if event.Closed {
		return domain.Race{}, ErrEventClosed
	}

	if race.Distance <= 0 {
		return domain.Race{}, &domain.ValidationError{Field: "distance", Message: "must be positive"}
	}

	created, err := s.repo.Create(ctx, race)
	if err != nil {
		return domain.Race{}, fmt.Errorf("s.repo.Create -> %w", err)
	}

	return created, nil
}

// CreateEntriesForRace re-runs the entry fan-out. Idempotent: a second call
// produces the exact same entry set.
func (s *RaceService) CreateEntriesForRace(ctx context.Context, raceID uint) ([]domain.RaceEntry, error) {
	if err := s.repo.FanOutEntries(ctx, raceID); err != nil {
		return nil, fmt.Errorf("s.repo.FanOutEntries -> %w", err)
	}

	entries, err := s.repo.FindEntriesByRace(ctx, raceID)
	if err != nil {
		return nil, fmt.Errorf("s.repo.FindEntriesByRace -> %w", err)
	}

	return entries, nil
}

// StartRace releases the race: every LOFT_BASKETED entry becomes RELEASED
// in one atomic step and the race goes live. Entries still REGISTERED are
// no-shows and stay behind, excluded from scoring. With force, a race with
// nothing to release still starts.
func (s *RaceService) StartRace(ctx context.Context, raceID uint, releasedAt time.Time, force bool) (domain.Race, error) {
	race, err := s.repo.Start(ctx, raceID, releasedAt, force)
	if err != nil {
		return domain.Race{}, fmt.Errorf("s.repo.Start -> %w", err)
	}

	return race, nil
}

func (s *RaceService) CloseRace(ctx context.Context, raceID uint) (domain.Race, error) {
	race, err := s.repo.Close(ctx, raceID)
	if err != nil {
		return domain.Race{}, fmt.Errorf("s.repo.Close -> %w", err)
	}

	return race, nil
}

func (s *RaceService) GetRace(ctx context.Context, raceID uint) (domain.Race, error) {
	race, err := s.repo.FindByID(ctx, raceID)
	if err != nil {
		return domain.Race{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	return race, nil
}

func (s *RaceService) GetRacesByEvent(ctx context.Context, eventID uint) ([]domain.Race, error) {
	races, err := s.repo.FindByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("s.repo.FindByEvent -> %w", err)
	}

	return races, nil
}

func (s *RaceService) ListEntriesByRace(ctx context.Context, raceID uint) ([]domain.RaceEntry, error) {
	entries, err := s.repo.FindEntriesByRace(ctx, raceID)
	if err != nil {
		return nil, fmt.Errorf("s.repo.FindEntriesByRace -> %w", err)
	}

	return entries, nil
}

func (s *RaceService) ListEntriesByRegistration(ctx context.Context, registrationID uint) ([]domain.RaceEntry, error) {
	entries, err := s.repo.FindEntriesByRegistration(ctx, registrationID)
	if err != nil {
		return nil, fmt.Errorf("s.repo.FindEntriesByRegistration -> %w", err)
	}

	return entries, nil
}

// MarkForeign is the operator's call for a stray bird that joined a loft's
// return without being an entrant.
func (s *RaceService) MarkForeign(ctx context.Context, entryID uint) (domain.RaceEntry, error) {
	entry, err := s.repo.MarkForeign(ctx, entryID)
	if err != nil {
		return domain.RaceEntry{}, fmt.Errorf("s.repo.MarkForeign -> %w", err)
	}

	return entry, nil
}

// ResolveScan maps a scanned band string to the bird's entry in the race.
// A band that parses but matches no entry reports not-found; the operator
// decides whether to mark a foreign bird.
func (s *RaceService) ResolveScan(ctx context.Context, raceID uint, bandStr string) (domain.RaceEntry, error) {
	band, err := ParseBand(bandStr)
	if err != nil {
		return domain.RaceEntry{}, err
	}

	bird, err := s.birdRepo.FindBirdByBand(ctx, band)
	if err != nil {
		return domain.RaceEntry{}, fmt.Errorf("s.birdRepo.FindBirdByBand -> %w", err)
	}

	entry, err := s.repo.FindEntryByBird(ctx, raceID, bird.ID)
	if err != nil {
		return domain.RaceEntry{}, fmt.Errorf("s.repo.FindEntryByBird -> %w", err)
	}

	return entry, nil
}

// ParseBand parses the composite "FED-2024-AB-1234" band form scanners emit.
func ParseBand(s string) (domain.Band, error) {
	match := bandPattern.FindStringSubmatch(s)
	if match == nil {
		return domain.Band{}, &domain.ValidationError{Field: "band", Message: "malformed band " + strconv.Quote(s)}
	}

	year, err := strconv.Atoi(match[2])
	if err != nil {
		return domain.Band{}, &domain.ValidationError{Field: "band", Message: "malformed year in band"}
	}

	return domain.Band{
		Federation: match[1],
		Year:       year,
		Letters:    match[3],
		Serial:     match[4],
	}, nil
}
