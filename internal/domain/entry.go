package domain

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidStatusTransition = errors.New("invalid race entry status transition")

// EntryStatus tracks a bird's participation in one race.
type EntryStatus string

const (
	EntryRegistered   EntryStatus = "REGISTERED"
	EntryLoftBasketed EntryStatus = "LOFT_BASKETED"
	EntryReleased     EntryStatus = "RELEASED"
	EntryRaceBasketed EntryStatus = "RACE_BASKETED"
	EntryForeignBird  EntryStatus = "FOREIGN_BIRD"
)

// legalTransitions is the single source of truth for the entry state
// machine. LOFT_BASKETED -> RACE_BASKETED covers deployments that record
// arrivals before the release is entered into the system.
var legalTransitions = map[EntryStatus][]EntryStatus{
	EntryRegistered:   {EntryLoftBasketed, EntryForeignBird},
	EntryLoftBasketed: {EntryReleased, EntryRaceBasketed},
	EntryReleased:     {EntryRaceBasketed},
	EntryRaceBasketed: {},
	EntryForeignBird:  {},
}

func (s EntryStatus) Valid() bool {
	_, ok := legalTransitions[s]
	return ok
}

// CanTransition reports whether from -> to is a legal status change.
func CanTransition(from, to EntryStatus) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// RaceEntry is the unit the state machine operates on: one bird's
// participation in one race.
type RaceEntry struct {
	ID                 uint        `json:"id"`
	RaceID             uint        `json:"race_id"`
	RegistrationItemID uint        `json:"registration_item_id"`
	BirdID             uint        `json:"bird_id"`
	Status             EntryStatus `json:"status"`

	LoftBasketID *uint `json:"loft_basket_id,omitempty"`
	RaceBasketID *uint `json:"race_basket_id,omitempty"`

	ArrivedAt *time.Time `json:"arrived_at,omitempty"`

	// Computed by the result calculator; nil until computable.
	BirdPosition *int     `json:"bird_position,omitempty"`
	Speed        *float64 `json:"speed,omitempty"`
	PrizeValue   *int64   `json:"prize_value,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TransitionTo advances the entry's status, rejecting illegal transitions.
func (e *RaceEntry) TransitionTo(next EntryStatus) error {
	if !CanTransition(e.Status, next) {
		return fmt.Errorf("entry %d: %s -> %s: %w", e.ID, e.Status, next, ErrInvalidStatusTransition)
	}
	e.Status = next
	return nil
}

// Scored reports whether the entry counts for ranking: it must have been
// race-basketed with a recorded arrival.
func (e RaceEntry) Scored() bool {
	return e.Status == EntryRaceBasketed && e.ArrivedAt != nil
}
