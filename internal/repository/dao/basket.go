package dao

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrBasketNotFound = errors.New("basket not found")
	ErrBasketExists   = errors.New("basket already exists")
	ErrBasketNotEmpty = errors.New("basket not empty")
)

// EntryValidationError rejects a whole assignment batch, naming the entry
// that failed validation.
type EntryValidationError struct {
	EntryID uint
	Field   string
	Reason  string
}

func (e *EntryValidationError) Error() string {
	return fmt.Sprintf("entry %d: %s: %s", e.EntryID, e.Field, e.Reason)
}

type Basket struct {
	ID       uint `gorm:"primaryKey"`
	RaceID   uint `gorm:"not null;uniqueIndex:idx_baskets_race_no_side"`
	BasketNo int  `gorm:"not null;uniqueIndex:idx_baskets_race_no_side"`
	LoftSide bool `gorm:"not null;uniqueIndex:idx_baskets_race_no_side"`

	CreatedAt time.Time
}

type BasketDAO struct {
	db *gorm.DB
}

func NewBasketDAO(db *gorm.DB) *BasketDAO {
	return &BasketDAO{
		db: db,
	}
}

func (d *BasketDAO) Insert(ctx context.Context, basket Basket) (Basket, error) {
	result := d.db.WithContext(ctx).Create(&basket)
	if result.Error != nil {
		if isUniqueViolation(result.Error, "idx_baskets_race_no_side") {
			return Basket{}, ErrBasketExists
		}

		return Basket{}, result.Error
	}

	return basket, nil
}

func (d *BasketDAO) FindByID(ctx context.Context, id uint) (Basket, error) {
	var basket Basket

	result := d.db.WithContext(ctx).First(&basket, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Basket{}, ErrBasketNotFound
		}

		return Basket{}, result.Error
	}

	return basket, nil
}

func (d *BasketDAO) FindByRace(ctx context.Context, raceID uint) ([]Basket, error) {
	var baskets []Basket

	result := d.db.WithContext(ctx).
		Where("race_id = ?", raceID).
		Order("loft_side DESC, basket_no").
		Find(&baskets)
	if result.Error != nil {
		return nil, result.Error
	}

	return baskets, nil
}

// Delete removes a basket only when no entry references it on either side.
// The check and the delete share one transaction, so a concurrent assignment
// cannot slip in between.
func (d *BasketDAO) Delete(ctx context.Context, basketID uint) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var basket Basket
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&basket, basketID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBasketNotFound
			}
			return err
		}

		var referencing int64
		err := tx.Model(&RaceEntry{}).
			Where("loft_basket_id = ? OR race_basket_id = ?", basketID, basketID).
			Count(&referencing).Error
		if err != nil {
			return err
		}
		if referencing > 0 {
			return ErrBasketNotEmpty
		}

		return tx.Delete(&basket).Error
	})
}

// AssignEntries assigns a batch of entries to a basket and advances their
// statuses. All-or-nothing: the first invalid entry rolls the batch back.
// Entry rows are locked for the whole check-then-act sequence, so of two
// concurrent assignments of the same entry exactly one wins; the loser sees
// the already-advanced status and gets ErrEntryConflict.
func (d *BasketDAO) AssignEntries(ctx context.Context, entryIDs []uint, basketID uint, loftSide bool, arrivedAt time.Time) ([]RaceEntry, error) {
	var entries []RaceEntry

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var basket Basket
		if err := tx.First(&basket, basketID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBasketNotFound
			}
			return err
		}

		if basket.LoftSide != loftSide {
			return &EntryValidationError{
				Field:  "side",
				Reason: fmt.Sprintf("basket %d is not a %s basket", basketID, sideName(loftSide)),
			}
		}

		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id IN ?", entryIDs).
			Order("id").
			Find(&entries).Error
		if err != nil {
			return err
		}
		if len(entries) != len(entryIDs) {
			return ErrEntryNotFound
		}

		for i := range entries {
			if err := validateAssignment(&entries[i], basket); err != nil {
				return err
			}
		}

		for i := range entries {
			if loftSide {
				entries[i].LoftBasketID = &basketID
				entries[i].Status = "LOFT_BASKETED"
			} else {
				entries[i].RaceBasketID = &basketID
				entries[i].Status = "RACE_BASKETED"
				if entries[i].ArrivedAt == nil {
					at := arrivedAt
					entries[i].ArrivedAt = &at
				}
			}
			if err := tx.Save(&entries[i]).Error; err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

func validateAssignment(entry *RaceEntry, basket Basket) error {
	if entry.RaceID != basket.RaceID {
		return &EntryValidationError{
			EntryID: entry.ID,
			Field:   "race_id",
			Reason:  fmt.Sprintf("entry belongs to race %d, basket to race %d", entry.RaceID, basket.RaceID),
		}
	}

	if basket.LoftSide {
		switch entry.Status {
		case "REGISTERED":
			return nil
		case "LOFT_BASKETED", "RELEASED", "RACE_BASKETED":
			return fmt.Errorf("entry %d: %w", entry.ID, ErrEntryConflict)
		default:
			return &EntryValidationError{
				EntryID: entry.ID,
				Field:   "status",
				Reason:  "loft assignment requires REGISTERED, got " + entry.Status,
			}
		}
	}

	switch entry.Status {
	case "RELEASED", "LOFT_BASKETED":
		return nil
	case "RACE_BASKETED":
		return fmt.Errorf("entry %d: %w", entry.ID, ErrEntryConflict)
	default:
		return &EntryValidationError{
			EntryID: entry.ID,
			Field:   "status",
			Reason:  "race assignment requires RELEASED, got " + entry.Status,
		}
	}
}

// UnassignEntries is the operator's correction path: it clears the basket
// reference and steps the status back one stage. Race-side unassignment also
// wipes the arrival and any derived result fields.
func (d *BasketDAO) UnassignEntries(ctx context.Context, entryIDs []uint, loftSide bool) ([]RaceEntry, error) {
	var entries []RaceEntry

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id IN ?", entryIDs).
			Order("id").
			Find(&entries).Error
		if err != nil {
			return err
		}
		if len(entries) != len(entryIDs) {
			return ErrEntryNotFound
		}

		for i := range entries {
			entry := &entries[i]
			if loftSide {
				if entry.Status != "LOFT_BASKETED" || entry.LoftBasketID == nil {
					return &EntryValidationError{
						EntryID: entry.ID,
						Field:   "status",
						Reason:  "loft unassignment requires LOFT_BASKETED, got " + entry.Status,
					}
				}
				entry.LoftBasketID = nil
				entry.Status = "REGISTERED"
			} else {
				if entry.Status != "RACE_BASKETED" || entry.RaceBasketID == nil {
					return &EntryValidationError{
						EntryID: entry.ID,
						Field:   "status",
						Reason:  "race unassignment requires RACE_BASKETED, got " + entry.Status,
					}
				}
				entry.RaceBasketID = nil
				entry.ArrivedAt = nil
				entry.BirdPosition = nil
				entry.Speed = nil
				entry.PrizeValue = nil
				entry.Status = "RELEASED"
			}

			err := tx.Model(entry).Select(
				"loft_basket_id", "race_basket_id", "status",
				"arrived_at", "bird_position", "speed", "prize_value",
			).Updates(entry).Error
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

func sideName(loftSide bool) string {
	if loftSide {
		return "loft"
	}
	return "race"
}
