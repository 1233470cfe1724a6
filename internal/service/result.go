package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/openloft/pigeonrace/internal/domain"
)

// BettingPayout is one fixed-class payout to the best-ranked enrolled bird.
type BettingPayout struct {
	ClassID   uint   `json:"class_id"`
	ClassName string `json:"class_name"`
	EntryID   uint   `json:"entry_id"`
	Amount    int64  `json:"amount"`
}

// RaceResults is a full result computation: ranked entries, betting
// payouts and any ambiguity warnings. Warnings never fail the computation.
type RaceResults struct {
	Race     domain.Race        `json:"race"`
	Entries  []domain.RaceEntry `json:"entries"`
	Payouts  []BettingPayout    `json:"payouts"`
	Warnings []domain.Warning   `json:"warnings"`
}

type ResultRaceRepository interface {
	FindByID(ctx context.Context, id uint) (domain.Race, error)
	FindEntriesByRace(ctx context.Context, raceID uint) ([]domain.RaceEntry, error)
	RecordArrival(ctx context.Context, entryID uint, arrivedAt time.Time, position *int) (domain.RaceEntry, error)
	UpdateResults(ctx context.Context, results []domain.RaceEntry) error
	FindEnrollments(ctx context.Context, raceID uint) (map[uint][]uint, error)
}

// ResultService consumes arrival events and derives speed, ranking, prize
// apportionment and betting payouts. Computation is idempotent: every run
// re-derives the full ranking from current data.
type ResultService struct {
	repo      ResultRaceRepository
	eventRepo RegistrationEventRepository
}

func NewResultService(repo ResultRaceRepository, eventRepo RegistrationEventRepository) *ResultService {
	return &ResultService{
		repo:      repo,
		eventRepo: eventRepo,
	}
}

func (s *ResultService) RecordArrival(ctx context.Context, entryID uint, arrivedAt time.Time, position *int) (domain.RaceEntry, error) {
	if arrivedAt.IsZero() {
		return domain.RaceEntry{}, &domain.ValidationError{Field: "arrived_at", Message: "timestamp is required"}
	}

	entry, err := s.repo.RecordArrival(ctx, entryID, arrivedAt, position)
	if err != nil {
		return domain.RaceEntry{}, fmt.Errorf("s.repo.RecordArrival -> %w", err)
	}

	return entry, nil
}

// ComputeResults recomputes the race's ranking and money from scratch and
// persists the per-entry fields. Entries missing inputs get nil results,
// never an error; ambiguous scheme configuration is reported as warnings.
func (s *ResultService) ComputeResults(ctx context.Context, raceID uint) (RaceResults, error) {
	race, err := s.repo.FindByID(ctx, raceID)
	if err != nil {
		return RaceResults{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	event, err := s.eventRepo.FindByID(ctx, race.EventID)
	if err != nil {
		return RaceResults{}, fmt.Errorf("s.eventRepo.FindByID -> %w", err)
	}

	entries, err := s.repo.FindEntriesByRace(ctx, raceID)
	if err != nil {
		return RaceResults{}, fmt.Errorf("s.repo.FindEntriesByRace -> %w", err)
	}

	enrollment, err := s.repo.FindEnrollments(ctx, raceID)
	if err != nil {
		return RaceResults{}, fmt.Errorf("s.repo.FindEnrollments -> %w", err)
	}

	results := Compute(race, entries, event.PrizeScheme, event.BettingScheme, enrollment)

	if err := s.repo.UpdateResults(ctx, results.Entries); err != nil {
		return RaceResults{}, fmt.Errorf("s.repo.UpdateResults -> %w", err)
	}

	return results, nil
}

// Compute is the pure calculation: ranking, speed, prizes and payouts from
// a snapshot of the race's data.
func Compute(race domain.Race, entries []domain.RaceEntry, prizes []domain.PrizeItem, classes []domain.BettingClass, enrollment map[uint][]uint) RaceResults {
	results := RaceResults{Race: race, Entries: rankEntries(race, entries)}

	results.Warnings = append(results.Warnings, apportionPrizes(results.Entries, prizes, race.RaceType)...)

	payouts, warnings := settleBets(results.Entries, classes, enrollment)
	results.Payouts = payouts
	results.Warnings = append(results.Warnings, warnings...)

	return results
}

// rankEntries orders arrived entries by arrival time, breaking identical
// timestamps by entry creation order so the ranking is deterministic.
// Entries without an arrival stay unranked with nil speed.
func rankEntries(race domain.Race, entries []domain.RaceEntry) []domain.RaceEntry {
	ranked := make([]domain.RaceEntry, len(entries))
	copy(ranked, entries)

	var arrived []*domain.RaceEntry
	for i := range ranked {
		ranked[i].BirdPosition = nil
		ranked[i].Speed = nil
		ranked[i].PrizeValue = nil
		if ranked[i].Scored() {
			arrived = append(arrived, &ranked[i])
		}
	}

	sort.SliceStable(arrived, func(i, j int) bool {
		if arrived[i].ArrivedAt.Equal(*arrived[j].ArrivedAt) {
			return arrived[i].ID < arrived[j].ID
		}
		return arrived[i].ArrivedAt.Before(*arrived[j].ArrivedAt)
	})

	for rank, entry := range arrived {
		position := rank + 1
		entry.BirdPosition = &position
		entry.Speed = speed(race, *entry)
	}

	return ranked
}

// speed is distance over elapsed hours between release and arrival, in the
// unit the fee scheme declares (miles per hour by convention). Nil when the
// release or arrival timestamp is missing or inconsistent.
func speed(race domain.Race, entry domain.RaceEntry) *float64 {
	if race.ReleasedAt == nil || entry.ArrivedAt == nil {
		return nil
	}

	elapsed := entry.ArrivedAt.Sub(*race.ReleasedAt).Hours()
	if elapsed <= 0 {
		return nil
	}

	v := race.Distance / elapsed
	return &v
}

// apportionPrizes sets each ranked entry's prize from the first scheme item
// covering its position. Overlapping items are a historical configuration
// quirk: first match wins and a warning is raised.
func apportionPrizes(entries []domain.RaceEntry, prizes []domain.PrizeItem, raceType string) []domain.Warning {
	var warnings []domain.Warning

	for i := range entries {
		if entries[i].BirdPosition == nil {
			continue
		}
		position := *entries[i].BirdPosition

		matches := 0
		for _, item := range prizes {
			if item.RaceType != raceType || !item.Covers(position) {
				continue
			}
			if matches == 0 {
				amount := item.PrizeAmount
				entries[i].PrizeValue = &amount
			}
			matches++
		}

		if matches > 1 {
			warnings = append(warnings, domain.Warning{
				Code:    domain.WarnPrizeOverlap,
				Message: fmt.Sprintf("position %d is covered by %d prize items; first item kept", position, matches),
			})
		}
	}

	return warnings
}

// settleBets pays each class's fixed amount to the best-ranked enrolled
// entry. Rank is the global finish position, not a per-class one. A tie on
// the winning arrival time leaves the class unsettled with a warning.
func settleBets(entries []domain.RaceEntry, classes []domain.BettingClass, enrollment map[uint][]uint) ([]BettingPayout, []domain.Warning) {
	var payouts []BettingPayout
	var warnings []domain.Warning

	for _, class := range classes {
		var winner *domain.RaceEntry
		tied := false

		for i := range entries {
			entry := &entries[i]
			if entry.BirdPosition == nil || !enrolledIn(enrollment, entry.RegistrationItemID, class.ID) {
				continue
			}
			if winner == nil || *entry.BirdPosition < *winner.BirdPosition {
				winner = entry
				tied = false
				continue
			}
			if entry.ArrivedAt != nil && winner.ArrivedAt != nil && entry.ArrivedAt.Equal(*winner.ArrivedAt) {
				tied = true
			}
		}

		if winner == nil {
			continue
		}
		if tied {
			warnings = append(warnings, domain.Warning{
				Code:    domain.WarnBettingTie,
				Message: fmt.Sprintf("class %q has tied arrivals at the winning time; payout withheld", class.Name),
			})
			continue
		}

		payouts = append(payouts, BettingPayout{
			ClassID:   class.ID,
			ClassName: class.Name,
			EntryID:   winner.ID,
			Amount:    class.Payout,
		})
	}

	return payouts, warnings
}

func enrolledIn(enrollment map[uint][]uint, itemID, classID uint) bool {
	for _, id := range enrollment[itemID] {
		if id == classID {
			return true
		}
	}
	return false
}
