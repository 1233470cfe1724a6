package dao

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var ErrEventNotFound = errors.New("event not found")

type Event struct {
	ID          uint      `gorm:"primaryKey"`
	Name        string    `gorm:"not null"`
	Location    string    `gorm:"not null"`
	Description string
	StartsAt    time.Time `gorm:"not null"`
	EndsAt      time.Time
	CreatorID   uint `gorm:"not null;index"`
	Closed      bool `gorm:"not null;default:false"`

	FeeScheme     FeeScheme      `gorm:"foreignKey:EventID"`
	PrizeScheme   []PrizeItem    `gorm:"foreignKey:EventID"`
	BettingScheme []BettingClass `gorm:"foreignKey:EventID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

type FeeScheme struct {
	ID        uint   `gorm:"primaryKey"`
	EventID   uint   `gorm:"not null;uniqueIndex"`
	EntryFee  int64  `gorm:"not null"`
	MaxBirds  int    `gorm:"not null"`
	SpeedUnit string `gorm:"not null;default:mph"`

	PerchTiers []PerchTier `gorm:"foreignKey:FeeSchemeID"`
}

type PerchTier struct {
	ID          uint  `gorm:"primaryKey"`
	FeeSchemeID uint  `gorm:"not null;index"`
	BirdNo      int   `gorm:"not null"`
	Fee         int64 `gorm:"not null"`
}

type PrizeItem struct {
	ID           uint   `gorm:"primaryKey"`
	EventID      uint   `gorm:"not null;index"`
	RaceType     string `gorm:"not null"`
	FromPosition int    `gorm:"not null"`
	ToPosition   int    `gorm:"not null"`
	PrizeAmount  int64  `gorm:"not null"`
}

type BettingClass struct {
	ID      uint   `gorm:"primaryKey"`
	EventID uint   `gorm:"not null;index"`
	Name    string `gorm:"not null"`
	Payout  int64  `gorm:"not null"`
}

type EventDAO struct {
	db *gorm.DB
}

func NewEventDAO(db *gorm.DB) *EventDAO {
	return &EventDAO{
		db: db,
	}
}

// Insert creates the event together with its schemes. The schemes are
// immutable afterwards; there is deliberately no update path for them.
func (d *EventDAO) Insert(ctx context.Context, event Event) (Event, error) {
	result := d.db.WithContext(ctx).Create(&event)
	if result.Error != nil {
		return Event{}, result.Error
	}

	return event, nil
}

func (d *EventDAO) FindByID(ctx context.Context, id uint) (Event, error) {
	var event Event

	result := d.db.WithContext(ctx).
		Preload("FeeScheme.PerchTiers").
		Preload("FeeScheme").
		Preload("PrizeScheme").
		Preload("BettingScheme").
		First(&event, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Event{}, ErrEventNotFound
		}

		return Event{}, result.Error
	}

	return event, nil
}

func (d *EventDAO) FindAll(ctx context.Context) ([]Event, error) {
	var events []Event

	result := d.db.WithContext(ctx).Order("starts_at DESC").Find(&events)
	if result.Error != nil {
		return nil, result.Error
	}

	return events, nil
}
