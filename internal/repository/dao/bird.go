package dao

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var ErrBirdNotFound = errors.New("bird not found")

type Bird struct {
	ID uint `gorm:"primaryKey"`

	// The band is the natural key of a physical bird.
	Federation string `gorm:"not null;uniqueIndex:idx_birds_band"`
	Year       int    `gorm:"not null;uniqueIndex:idx_birds_band"`
	Letters    string `gorm:"not null;uniqueIndex:idx_birds_band"`
	Serial     string `gorm:"not null;uniqueIndex:idx_birds_band"`

	Name      string
	Color     string
	Sex       string
	BreederID uint `gorm:"not null;index"`

	LostAt     *time.Time
	LostRaceID *uint

	CreatedAt time.Time
	UpdatedAt time.Time
}

type BirdDAO struct {
	db *gorm.DB
}

func NewBirdDAO(db *gorm.DB) *BirdDAO {
	return &BirdDAO{
		db: db,
	}
}

func (d *BirdDAO) FindByID(ctx context.Context, id uint) (Bird, error) {
	var bird Bird

	result := d.db.WithContext(ctx).First(&bird, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Bird{}, ErrBirdNotFound
		}

		return Bird{}, result.Error
	}

	return bird, nil
}

func (d *BirdDAO) FindByBand(ctx context.Context, federation string, year int, letters, serial string) (Bird, error) {
	var bird Bird

	result := d.db.WithContext(ctx).
		Where("federation = ? AND year = ? AND letters = ? AND serial = ?", federation, year, letters, serial).
		First(&bird)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Bird{}, ErrBirdNotFound
		}

		return Bird{}, result.Error
	}

	return bird, nil
}

func (d *BirdDAO) MarkLost(ctx context.Context, birdID uint, lostAt time.Time, raceID *uint) error {
	result := d.db.WithContext(ctx).Model(&Bird{}).
		Where("id = ?", birdID).
		Updates(map[string]interface{}{"lost_at": lostAt, "lost_race_id": raceID})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrBirdNotFound
	}

	return nil
}
