package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from EntryStatus
		to   EntryStatus
		want bool
	}{
		{"registered to loft basketed", EntryRegistered, EntryLoftBasketed, true},
		{"registered to foreign bird", EntryRegistered, EntryForeignBird, true},
		{"registered to released skips basketing", EntryRegistered, EntryReleased, false},
		{"registered to race basketed skips release", EntryRegistered, EntryRaceBasketed, false},
		{"loft basketed to released", EntryLoftBasketed, EntryReleased, true},
		{"loft basketed pre-release arrival", EntryLoftBasketed, EntryRaceBasketed, true},
		{"loft basketed back to registered", EntryLoftBasketed, EntryRegistered, false},
		{"loft basketed to foreign bird", EntryLoftBasketed, EntryForeignBird, false},
		{"released to race basketed", EntryReleased, EntryRaceBasketed, true},
		{"released back to loft basketed", EntryReleased, EntryLoftBasketed, false},
		{"race basketed is terminal", EntryRaceBasketed, EntryReleased, false},
		{"race basketed cannot repeat", EntryRaceBasketed, EntryRaceBasketed, false},
		{"foreign bird is terminal", EntryForeignBird, EntryRegistered, false},
		{"unknown status goes nowhere", EntryStatus("LOST"), EntryRegistered, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestRaceEntry_TransitionTo(t *testing.T) {
	entry := RaceEntry{ID: 7, Status: EntryRegistered}

	require.NoError(t, entry.TransitionTo(EntryLoftBasketed))
	require.NoError(t, entry.TransitionTo(EntryReleased))
	require.NoError(t, entry.TransitionTo(EntryRaceBasketed))
	assert.Equal(t, EntryRaceBasketed, entry.Status)

	err := entry.TransitionTo(EntryReleased)
	require.ErrorIs(t, err, ErrInvalidStatusTransition)
	assert.Equal(t, EntryRaceBasketed, entry.Status, "failed transition must not mutate the entry")
}

func TestEntryStatus_Valid(t *testing.T) {
	for _, s := range []EntryStatus{EntryRegistered, EntryLoftBasketed, EntryReleased, EntryRaceBasketed, EntryForeignBird} {
		assert.True(t, s.Valid(), string(s))
	}
	assert.False(t, EntryStatus("").Valid())
	assert.False(t, EntryStatus("BASKETED").Valid())
}

func TestRaceEntry_Scored(t *testing.T) {
	now := time.Now()

	assert.False(t, RaceEntry{Status: EntryReleased, ArrivedAt: &now}.Scored())
	assert.False(t, RaceEntry{Status: EntryRaceBasketed}.Scored())
	assert.True(t, RaceEntry{Status: EntryRaceBasketed, ArrivedAt: &now}.Scored())
}
