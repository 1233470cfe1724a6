package dao

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrPaymentNotFound      = errors.New("payment not found")
)

type Registration struct {
	ID            uint   `gorm:"primaryKey"`
	EventID       uint   `gorm:"not null;index"`
	BreederID     uint   `gorm:"not null;index"`
	LoftName      string `gorm:"not null"`
	ReservedBirds int    `gorm:"not null"`

	Items    []RegistrationItem `gorm:"foreignKey:RegistrationID"`
	Payments []Payment          `gorm:"foreignKey:RegistrationID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

type RegistrationItem struct {
	ID             uint `gorm:"primaryKey"`
	RegistrationID uint `gorm:"not null;index"`
	BirdID         uint `gorm:"not null;index"`
	Bird           Bird `gorm:"foreignKey:BirdID"`

	BettingClasses []ItemBettingClass `gorm:"foreignKey:RegistrationItemID"`

	CreatedAt time.Time
}

// ItemBettingClass enrolls one registration item into one betting class.
type ItemBettingClass struct {
	ID                 uint `gorm:"primaryKey"`
	RegistrationItemID uint `gorm:"not null;uniqueIndex:idx_item_betting_class"`
	BettingClassID     uint `gorm:"not null;uniqueIndex:idx_item_betting_class"`
}

type Payment struct {
	ID             uint   `gorm:"primaryKey"`
	RegistrationID uint   `gorm:"not null;index"`
	Type           string `gorm:"not null"`
	Method         string
	AmountDue      int64 `gorm:"not null"`
	AmountPaid     int64 `gorm:"not null;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

type RegistrationDAO struct {
	db *gorm.DB
}

func NewRegistrationDAO(db *gorm.DB) *RegistrationDAO {
	return &RegistrationDAO{
		db: db,
	}
}

// InsertBundle persists a registration as one atomic unit: birds are
// resolved by band (an existing band reuses the existing bird row), the
// registration and its items are inserted, fee payments are recorded, and
// race entries are fanned out to every race of the event that still accepts
// entries. Any failure rolls the whole bundle back.
func (d *RegistrationDAO) InsertBundle(ctx context.Context, reg Registration, birds []Bird, classIDs [][]uint, payments []Payment) (Registration, error) {
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items := make([]RegistrationItem, len(birds))
		for i := range birds {
			bird, err := resolveBird(tx, birds[i])
			if err != nil {
				return err
			}
			items[i] = RegistrationItem{BirdID: bird.ID}
		}

		reg.Items = items
		if err := tx.Create(&reg).Error; err != nil {
			return err
		}

		for i := range reg.Items {
			for _, classID := range classIDs[i] {
				enroll := ItemBettingClass{
					RegistrationItemID: reg.Items[i].ID,
					BettingClassID:     classID,
				}
				if err := tx.Create(&enroll).Error; err != nil {
					return err
				}
			}
		}

		for i := range payments {
			payments[i].RegistrationID = reg.ID
		}
		if len(payments) > 0 {
			if err := tx.Create(&payments).Error; err != nil {
				return err
			}
		}

		return fanOutItemEntries(tx, reg.EventID, reg.Items)
	})
	if err != nil {
		return Registration{}, err
	}

	return d.FindByID(ctx, reg.ID)
}

// AddItem enrolls one more bird into an existing registration and fans out
// entries to the event's open races, atomically.
func (d *RegistrationDAO) AddItem(ctx context.Context, registrationID uint, bird Bird, classIDs []uint) (RegistrationItem, error) {
	var item RegistrationItem

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var reg Registration
		if err := tx.First(&reg, registrationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRegistrationNotFound
			}
			return err
		}

		resolved, err := resolveBird(tx, bird)
		if err != nil {
			return err
		}

		item = RegistrationItem{
			RegistrationID: reg.ID,
			BirdID:         resolved.ID,
		}
		if err := tx.Create(&item).Error; err != nil {
			return err
		}

		for _, classID := range classIDs {
			enroll := ItemBettingClass{
				RegistrationItemID: item.ID,
				BettingClassID:     classID,
			}
			if err := tx.Create(&enroll).Error; err != nil {
				return err
			}
		}

		return fanOutItemEntries(tx, reg.EventID, []RegistrationItem{item})
	})
	if err != nil {
		return RegistrationItem{}, err
	}

	return item, nil
}

func resolveBird(tx *gorm.DB, bird Bird) (Bird, error) {
	var existing Bird
	err := tx.
		Where("federation = ? AND year = ? AND letters = ? AND serial = ?",
			bird.Federation, bird.Year, bird.Letters, bird.Serial).
		First(&existing).Error
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return Bird{}, err
	}

	if err := tx.Create(&bird).Error; err != nil {
		return Bird{}, err
	}
	return bird, nil
}

// fanOutItemEntries creates one REGISTERED entry per (item, race) pair for
// every race of the event that still accepts entries. ON CONFLICT DO NOTHING
// on the (race_id, registration_item_id) unique index keeps it idempotent.
func fanOutItemEntries(tx *gorm.DB, eventID uint, items []RegistrationItem) error {
	var races []Race
	if err := tx.Where("event_id = ? AND closed = false AND live = false", eventID).Find(&races).Error; err != nil {
		return err
	}

	var entries []RaceEntry
	for _, race := range races {
		for _, item := range items {
			entries = append(entries, RaceEntry{
				RaceID:             race.ID,
				RegistrationItemID: item.ID,
				BirdID:             item.BirdID,
				Status:             "REGISTERED",
			})
		}
	}
	if len(entries) == 0 {
		return nil
	}

	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&entries).Error
}

func (d *RegistrationDAO) FindByID(ctx context.Context, id uint) (Registration, error) {
	var reg Registration

	result := d.db.WithContext(ctx).
		Preload("Items.Bird").
		Preload("Items.BettingClasses").
		Preload("Payments").
		First(&reg, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Registration{}, ErrRegistrationNotFound
		}

		return Registration{}, result.Error
	}

	return reg, nil
}

func (d *RegistrationDAO) FindByEvent(ctx context.Context, eventID uint) ([]Registration, error) {
	var regs []Registration

	result := d.db.WithContext(ctx).
		Preload("Items.Bird").
		Preload("Items.BettingClasses").
		Where("event_id = ?", eventID).
		Find(&regs)
	if result.Error != nil {
		return nil, result.Error
	}

	return regs, nil
}

func (d *RegistrationDAO) FindPayments(ctx context.Context, registrationID uint) ([]Payment, error) {
	var payments []Payment

	result := d.db.WithContext(ctx).
		Where("registration_id = ?", registrationID).
		Order("id").
		Find(&payments)
	if result.Error != nil {
		return nil, result.Error
	}

	return payments, nil
}

// RecordPayment adds a paid amount to an obligation and tags the method.
func (d *RegistrationDAO) RecordPayment(ctx context.Context, paymentID uint, amount int64, method string) (Payment, error) {
	var payment Payment

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&payment, paymentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPaymentNotFound
			}
			return err
		}

		payment.AmountPaid += amount
		payment.Method = method

		return tx.Save(&payment).Error
	})
	if err != nil {
		return Payment{}, err
	}

	return payment, nil
}
