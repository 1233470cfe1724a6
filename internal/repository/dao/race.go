package dao

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrRaceNotFound        = errors.New("race not found")
	ErrRaceClosed          = errors.New("race is closed")
	ErrRaceAlreadyStarted  = errors.New("race already started")
	ErrNothingToRelease    = errors.New("race has no loft-basketed entries to release")
	ErrEntryNotFound       = errors.New("race entry not found")
	ErrEntryConflict       = errors.New("race entry already assigned")
	ErrEntryNotForeignable = errors.New("only a registered entry can be marked foreign")
)

type Race struct {
	ID       uint    `gorm:"primaryKey"`
	EventID  uint    `gorm:"not null;index"`
	Name     string  `gorm:"not null"`
	RaceType string  `gorm:"not null"`
	Distance float64 `gorm:"not null"`

	ReleaseWeather string
	ArrivalWeather string

	ReleasedAt *time.Time
	Closed     bool `gorm:"not null;default:false"`
	Live       bool `gorm:"not null;default:false"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

type RaceEntry struct {
	ID                 uint   `gorm:"primaryKey"`
	RaceID             uint   `gorm:"not null;uniqueIndex:idx_entries_race_item"`
	RegistrationItemID uint   `gorm:"not null;uniqueIndex:idx_entries_race_item"`
	BirdID             uint   `gorm:"not null;index"`
	Status             string `gorm:"not null"`

	LoftBasketID *uint `gorm:"index"`
	RaceBasketID *uint `gorm:"index"`

	ArrivedAt    *time.Time
	BirdPosition *int
	Speed        *float64
	PrizeValue   *int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// EntryResult carries one entry's computed ranking fields back to the store.
type EntryResult struct {
	EntryID      uint
	BirdPosition *int
	Speed        *float64
	PrizeValue   *int64
}

type RaceDAO struct {
	db *gorm.DB
}

func NewRaceDAO(db *gorm.DB) *RaceDAO {
	return &RaceDAO{
		db: db,
	}
}

// Insert creates the race and fans out one REGISTERED entry per currently
// registered bird of the event, in one transaction.
func (d *RaceDAO) Insert(ctx context.Context, race Race) (Race, error) {
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&race).Error; err != nil {
			return err
		}

		return fanOutRaceEntries(tx, race)
	})
	if err != nil {
		return Race{}, err
	}

	return race, nil
}

// FanOutEntries re-runs entry creation for the race. Safe to call any number
// of times; the unique index on (race_id, registration_item_id) makes
// duplicates impossible.
func (d *RaceDAO) FanOutEntries(ctx context.Context, raceID uint) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var race Race
		if err := tx.First(&race, raceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRaceNotFound
			}
			return err
		}

		return fanOutRaceEntries(tx, race)
	})
}

func fanOutRaceEntries(tx *gorm.DB, race Race) error {
	if race.Closed || race.Live {
		return ErrRaceClosed
	}

	var items []RegistrationItem
	err := tx.
		Joins("JOIN registrations ON registrations.id = registration_items.registration_id").
		Where("registrations.event_id = ?", race.EventID).
		Find(&items).Error
	if err != nil {
		return err
	}

	var entries []RaceEntry
	for _, item := range items {
		entries = append(entries, RaceEntry{
			RaceID:             race.ID,
			RegistrationItemID: item.ID,
			BirdID:             item.BirdID,
			Status:             "REGISTERED",
		})
	}
	if len(entries) == 0 {
		return nil
	}

	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&entries).Error
}

func (d *RaceDAO) FindByID(ctx context.Context, id uint) (Race, error) {
	var race Race

	result := d.db.WithContext(ctx).First(&race, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Race{}, ErrRaceNotFound
		}

		return Race{}, result.Error
	}

	return race, nil
}

func (d *RaceDAO) FindByEvent(ctx context.Context, eventID uint) ([]Race, error) {
	var races []Race

	result := d.db.WithContext(ctx).Where("event_id = ?", eventID).Order("id").Find(&races)
	if result.Error != nil {
		return nil, result.Error
	}

	return races, nil
}

// Start releases the race: the race row is locked, all LOFT_BASKETED entries
// move to RELEASED in a single batch update, and the race goes live. Readers
// never observe a live race with un-released entries. With force false the
// start is rejected when there is nothing to release.
func (d *RaceDAO) Start(ctx context.Context, raceID uint, releasedAt time.Time, force bool) (Race, error) {
	var race Race

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&race, raceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRaceNotFound
			}
			return err
		}

		if race.Live {
			return ErrRaceAlreadyStarted
		}

		var basketed int64
		err := tx.Model(&RaceEntry{}).
			Where("race_id = ? AND status = ?", raceID, "LOFT_BASKETED").
			Count(&basketed).Error
		if err != nil {
			return err
		}
		if basketed == 0 && !force {
			return ErrNothingToRelease
		}

		err = tx.Model(&RaceEntry{}).
			Where("race_id = ? AND status = ?", raceID, "LOFT_BASKETED").
			Update("status", "RELEASED").Error
		if err != nil {
			return err
		}

		race.Live = true
		race.Closed = true
		race.ReleasedAt = &releasedAt

		return tx.Save(&race).Error
	})
	if err != nil {
		return Race{}, err
	}

	return race, nil
}

func (d *RaceDAO) Close(ctx context.Context, raceID uint) (Race, error) {
	var race Race

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&race, raceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRaceNotFound
			}
			return err
		}

		race.Closed = true

		return tx.Save(&race).Error
	})
	if err != nil {
		return Race{}, err
	}

	return race, nil
}

func (d *RaceDAO) FindEntriesByRace(ctx context.Context, raceID uint) ([]RaceEntry, error) {
	var entries []RaceEntry

	result := d.db.WithContext(ctx).Where("race_id = ?", raceID).Order("id").Find(&entries)
	if result.Error != nil {
		return nil, result.Error
	}

	return entries, nil
}

func (d *RaceDAO) FindEntriesByRegistration(ctx context.Context, registrationID uint) ([]RaceEntry, error) {
	var entries []RaceEntry

	result := d.db.WithContext(ctx).
		Joins("JOIN registration_items ON registration_items.id = race_entries.registration_item_id").
		Where("registration_items.registration_id = ?", registrationID).
		Order("race_entries.id").
		Find(&entries)
	if result.Error != nil {
		return nil, result.Error
	}

	return entries, nil
}

func (d *RaceDAO) FindEntryByID(ctx context.Context, id uint) (RaceEntry, error) {
	var entry RaceEntry

	result := d.db.WithContext(ctx).First(&entry, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return RaceEntry{}, ErrEntryNotFound
		}

		return RaceEntry{}, result.Error
	}

	return entry, nil
}

// FindEntryByBird resolves a scanned band to the bird's entry in the race.
func (d *RaceDAO) FindEntryByBird(ctx context.Context, raceID, birdID uint) (RaceEntry, error) {
	var entry RaceEntry

	result := d.db.WithContext(ctx).
		Where("race_id = ? AND bird_id = ?", raceID, birdID).
		First(&entry)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return RaceEntry{}, ErrEntryNotFound
		}

		return RaceEntry{}, result.Error
	}

	return entry, nil
}

// RecordArrival stamps the arrival under a row lock. Legal from RELEASED, or
// from LOFT_BASKETED where arrivals are recorded before the release is
// entered. A second arrival for the same entry is a conflict.
func (d *RaceDAO) RecordArrival(ctx context.Context, entryID uint, arrivedAt time.Time, position *int) (RaceEntry, error) {
	var entry RaceEntry

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&entry, entryID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEntryNotFound
			}
			return err
		}

		switch entry.Status {
		case "RELEASED", "LOFT_BASKETED":
			// ok
		case "RACE_BASKETED":
			return ErrEntryConflict
		default:
			return &EntryValidationError{
				EntryID: entry.ID,
				Field:   "status",
				Reason:  "arrival requires a released entry, got " + entry.Status,
			}
		}

		entry.Status = "RACE_BASKETED"
		entry.ArrivedAt = &arrivedAt
		entry.BirdPosition = position

		return tx.Save(&entry).Error
	})
	if err != nil {
		return RaceEntry{}, err
	}

	return entry, nil
}

// MarkForeign flags a stray bird. The guarded update keeps the check and the
// write in one statement.
func (d *RaceDAO) MarkForeign(ctx context.Context, entryID uint) (RaceEntry, error) {
	result := d.db.WithContext(ctx).Model(&RaceEntry{}).
		Where("id = ? AND status = ?", entryID, "REGISTERED").
		Update("status", "FOREIGN_BIRD")
	if result.Error != nil {
		return RaceEntry{}, result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := d.FindEntryByID(ctx, entryID); err != nil {
			return RaceEntry{}, err
		}
		return RaceEntry{}, ErrEntryNotForeignable
	}

	return d.FindEntryByID(ctx, entryID)
}

// UpdateResults writes the freshly derived ranking fields in one
// transaction, replacing whatever the previous computation stored.
func (d *RaceDAO) UpdateResults(ctx context.Context, results []EntryResult) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, r := range results {
			err := tx.Model(&RaceEntry{}).
				Where("id = ?", r.EntryID).
				Updates(map[string]interface{}{
					"bird_position": r.BirdPosition,
					"speed":         r.Speed,
					"prize_value":   r.PrizeValue,
				}).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// FindEnrollments returns registration_item_id -> betting class ids for all
// entries of the race.
func (d *RaceDAO) FindEnrollments(ctx context.Context, raceID uint) (map[uint][]uint, error) {
	var rows []ItemBettingClass

	err := d.db.WithContext(ctx).
		Joins("JOIN race_entries ON race_entries.registration_item_id = item_betting_classes.registration_item_id").
		Where("race_entries.race_id = ?", raceID).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	enrollment := make(map[uint][]uint)
	for _, row := range rows {
		enrollment[row.RegistrationItemID] = append(enrollment[row.RegistrationItemID], row.BettingClassID)
	}

	return enrollment, nil
}
