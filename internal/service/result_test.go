package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openloft/pigeonrace/internal/domain"
)

func ts(base time.Time, d time.Duration) *time.Time {
	t := base.Add(d)
	return &t
}

func arrivedEntry(id, itemID uint, at *time.Time) domain.RaceEntry {
	status := domain.EntryRaceBasketed
	if at == nil {
		status = domain.EntryReleased
	}
	return domain.RaceEntry{
		ID:                 id,
		RegistrationItemID: itemID,
		Status:             status,
		ArrivedAt:          at,
	}
}

func TestCompute_RankingAndSpeed(t *testing.T) {
	released := time.Date(2025, 5, 10, 8, 0, 0, 0, time.UTC)
	race := domain.Race{ID: 1, Distance: 100, RaceType: "final", ReleasedAt: &released}

	entries := []domain.RaceEntry{
		arrivedEntry(1, 11, ts(released, 90*time.Minute)),
		arrivedEntry(2, 12, ts(released, time.Hour)),
		arrivedEntry(3, 13, nil),
	}

	results := Compute(race, entries, nil, nil, nil)
	require.Len(t, results.Entries, 3)
	assert.Empty(t, results.Warnings)

	byID := make(map[uint]domain.RaceEntry)
	for _, e := range results.Entries {
		byID[e.ID] = e
	}

	first := byID[2]
	require.NotNil(t, first.BirdPosition)
	assert.Equal(t, 1, *first.BirdPosition)
	require.NotNil(t, first.Speed)
	assert.InDelta(t, 100.0, *first.Speed, 0.001)

	second := byID[1]
	require.NotNil(t, second.BirdPosition)
	assert.Equal(t, 2, *second.BirdPosition)
	require.NotNil(t, second.Speed)
	assert.InDelta(t, 66.667, *second.Speed, 0.001)

	noShow := byID[3]
	assert.Nil(t, noShow.BirdPosition)
	assert.Nil(t, noShow.Speed)
	assert.Nil(t, noShow.PrizeValue)
}

func TestCompute_SpeedNilWithoutRelease(t *testing.T) {
	race := domain.Race{ID: 1, Distance: 100, RaceType: "final"}
	at := time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC)

	results := Compute(race, []domain.RaceEntry{arrivedEntry(1, 11, &at)}, nil, nil, nil)

	require.NotNil(t, results.Entries[0].BirdPosition, "ranking does not depend on speed")
	assert.Nil(t, results.Entries[0].Speed)
}

func TestCompute_TieBreaksByEntryID(t *testing.T) {
	released := time.Date(2025, 5, 10, 8, 0, 0, 0, time.UTC)
	race := domain.Race{ID: 1, Distance: 50, ReleasedAt: &released}
	same := ts(released, time.Hour)

	results := Compute(race, []domain.RaceEntry{
		arrivedEntry(9, 11, same),
		arrivedEntry(4, 12, same),
	}, nil, nil, nil)

	byID := make(map[uint]domain.RaceEntry)
	for _, e := range results.Entries {
		byID[e.ID] = e
	}

	assert.Equal(t, 1, *byID[4].BirdPosition)
	assert.Equal(t, 2, *byID[9].BirdPosition)
}

func TestCompute_PrizeApportionment(t *testing.T) {
	released := time.Date(2025, 5, 10, 8, 0, 0, 0, time.UTC)
	race := domain.Race{ID: 1, Distance: 100, RaceType: "final", ReleasedAt: &released}

	entries := []domain.RaceEntry{
		arrivedEntry(1, 11, ts(released, time.Hour)),
		arrivedEntry(2, 12, ts(released, 2*time.Hour)),
		arrivedEntry(3, 13, ts(released, 3*time.Hour)),
		arrivedEntry(4, 14, ts(released, 4*time.Hour)),
	}

	prizes := []domain.PrizeItem{
		{RaceType: "final", FromPosition: 1, ToPosition: 1, PrizeAmount: 50000},
		{RaceType: "final", FromPosition: 2, ToPosition: 3, PrizeAmount: 10000},
		{RaceType: "training", FromPosition: 1, ToPosition: 10, PrizeAmount: 99999},
	}

	results := Compute(race, entries, prizes, nil, nil)
	assert.Empty(t, results.Warnings)

	byID := make(map[uint]domain.RaceEntry)
	for _, e := range results.Entries {
		byID[e.ID] = e
	}

	require.NotNil(t, byID[1].PrizeValue)
	assert.Equal(t, int64(50000), *byID[1].PrizeValue)
	require.NotNil(t, byID[2].PrizeValue)
	assert.Equal(t, int64(10000), *byID[2].PrizeValue)
	require.NotNil(t, byID[3].PrizeValue)
	assert.Equal(t, int64(10000), *byID[3].PrizeValue)
	assert.Nil(t, byID[4].PrizeValue, "position 4 is outside every range")
}

func TestCompute_OverlappingPrizesWarnFirstWins(t *testing.T) {
	released := time.Date(2025, 5, 10, 8, 0, 0, 0, time.UTC)
	race := domain.Race{ID: 1, Distance: 100, RaceType: "final", ReleasedAt: &released}

	prizes := []domain.PrizeItem{
		{RaceType: "final", FromPosition: 1, ToPosition: 3, PrizeAmount: 20000},
		{RaceType: "final", FromPosition: 1, ToPosition: 1, PrizeAmount: 50000},
	}

	results := Compute(race, []domain.RaceEntry{arrivedEntry(1, 11, ts(released, time.Hour))}, prizes, nil, nil)

	require.NotNil(t, results.Entries[0].PrizeValue)
	assert.Equal(t, int64(20000), *results.Entries[0].PrizeValue, "first declared item wins")

	require.Len(t, results.Warnings, 1)
	assert.Equal(t, domain.WarnPrizeOverlap, results.Warnings[0].Code)
}

func TestCompute_BettingPayouts(t *testing.T) {
	released := time.Date(2025, 5, 10, 8, 0, 0, 0, time.UTC)
	race := domain.Race{ID: 1, Distance: 100, RaceType: "final", ReleasedAt: &released}

	entries := []domain.RaceEntry{
		arrivedEntry(1, 11, ts(released, time.Hour)),
		arrivedEntry(2, 12, ts(released, 2*time.Hour)),
		arrivedEntry(3, 13, ts(released, 3*time.Hour)),
	}

	classes := []domain.BettingClass{
		{ID: 1, Name: "WTA 2", Payout: 100000},
		{ID: 2, Name: "Belgian Show", Payout: 40000},
	}

	// The overall winner is not in WTA 2; its pot goes to the best-ranked
	// enrolled bird, not the race winner.
	enrollment := map[uint][]uint{
		12: {1, 2},
		13: {1},
	}

	results := Compute(race, entries, nil, classes, enrollment)
	require.Len(t, results.Payouts, 2)
	assert.Empty(t, results.Warnings)

	assert.Equal(t, uint(1), results.Payouts[0].ClassID)
	assert.Equal(t, uint(2), results.Payouts[0].EntryID)
	assert.Equal(t, int64(100000), results.Payouts[0].Amount)

	assert.Equal(t, uint(2), results.Payouts[1].ClassID)
	assert.Equal(t, uint(2), results.Payouts[1].EntryID)
}

func TestCompute_BettingTieWithholdsPayout(t *testing.T) {
	released := time.Date(2025, 5, 10, 8, 0, 0, 0, time.UTC)
	race := domain.Race{ID: 1, Distance: 100, RaceType: "final", ReleasedAt: &released}
	same := ts(released, time.Hour)

	entries := []domain.RaceEntry{
		arrivedEntry(1, 11, same),
		arrivedEntry(2, 12, same),
	}

	classes := []domain.BettingClass{{ID: 1, Name: "WTA 2", Payout: 100000}}
	enrollment := map[uint][]uint{11: {1}, 12: {1}}

	results := Compute(race, entries, nil, classes, enrollment)

	assert.Empty(t, results.Payouts)
	require.Len(t, results.Warnings, 1)
	assert.Equal(t, domain.WarnBettingTie, results.Warnings[0].Code)
}

func TestCompute_NoEnrolledArrivalsNoPayout(t *testing.T) {
	released := time.Date(2025, 5, 10, 8, 0, 0, 0, time.UTC)
	race := domain.Race{ID: 1, Distance: 100, ReleasedAt: &released}

	entries := []domain.RaceEntry{
		arrivedEntry(1, 11, ts(released, time.Hour)),
		arrivedEntry(2, 12, nil),
	}

	classes := []domain.BettingClass{{ID: 1, Name: "WTA 2", Payout: 100000}}
	enrollment := map[uint][]uint{12: {1}}

	results := Compute(race, entries, nil, classes, enrollment)
	assert.Empty(t, results.Payouts)
	assert.Empty(t, results.Warnings)
}

func TestCompute_Idempotent(t *testing.T) {
	released := time.Date(2025, 5, 10, 8, 0, 0, 0, time.UTC)
	race := domain.Race{ID: 1, Distance: 100, RaceType: "final", ReleasedAt: &released}

	entries := []domain.RaceEntry{
		arrivedEntry(1, 11, ts(released, time.Hour)),
		arrivedEntry(2, 12, ts(released, 2*time.Hour)),
	}
	prizes := []domain.PrizeItem{{RaceType: "final", FromPosition: 1, ToPosition: 2, PrizeAmount: 10000}}

	first := Compute(race, entries, prizes, nil, nil)

	// A second run over already-computed entries yields identical results.
	second := Compute(race, first.Entries, prizes, nil, nil)
	assert.Equal(t, first.Entries, second.Entries)
	assert.Equal(t, first.Warnings, second.Warnings)
}
