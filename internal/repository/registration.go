package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/openloft/pigeonrace/internal/domain"
	"github.com/openloft/pigeonrace/internal/repository/dao"
)

var (
	ErrRegistrationNotFound = dao.ErrRegistrationNotFound
	ErrPaymentNotFound      = dao.ErrPaymentNotFound
	ErrBirdNotFound         = dao.ErrBirdNotFound
)

type RegistrationDAO interface {
	InsertBundle(ctx context.Context, reg dao.Registration, birds []dao.Bird, classIDs [][]uint, payments []dao.Payment) (dao.Registration, error)
	AddItem(ctx context.Context, registrationID uint, bird dao.Bird, classIDs []uint) (dao.RegistrationItem, error)
	FindByID(ctx context.Context, id uint) (dao.Registration, error)
	FindByEvent(ctx context.Context, eventID uint) ([]dao.Registration, error)
	FindPayments(ctx context.Context, registrationID uint) ([]dao.Payment, error)
	RecordPayment(ctx context.Context, paymentID uint, amount int64, method string) (dao.Payment, error)
}

type BirdDAO interface {
	FindByID(ctx context.Context, id uint) (dao.Bird, error)
	FindByBand(ctx context.Context, federation string, year int, letters, serial string) (dao.Bird, error)
	MarkLost(ctx context.Context, birdID uint, lostAt time.Time, raceID *uint) error
}

type RegistrationRepository struct {
	dao     RegistrationDAO
	birdDAO BirdDAO
}

func NewRegistrationRepository(dao RegistrationDAO, birdDAO BirdDAO) *RegistrationRepository {
	return &RegistrationRepository{
		dao:     dao,
		birdDAO: birdDAO,
	}
}

// CreateBundle persists a registration with its birds, betting enrollments
// and fee obligations as one atomic unit.
func (r *RegistrationRepository) CreateBundle(ctx context.Context, reg domain.Registration, birds []domain.Bird, classIDs [][]uint, payments []domain.Payment) (domain.Registration, error) {
	daoBirds := make([]dao.Bird, len(birds))
	for i, b := range birds {
		daoBirds[i] = birdDomainToDao(b)
	}

	daoPayments := make([]dao.Payment, len(payments))
	for i, p := range payments {
		daoPayments[i] = dao.Payment{
			Type:       string(p.Type),
			Method:     p.Method,
			AmountDue:  p.AmountDue,
			AmountPaid: p.AmountPaid,
		}
	}

	created, err := r.dao.InsertBundle(ctx, dao.Registration{
		EventID:       reg.EventID,
		BreederID:     reg.BreederID,
		LoftName:      reg.LoftName,
		ReservedBirds: reg.ReservedBirds,
	}, daoBirds, classIDs, daoPayments)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("r.dao.InsertBundle -> %w", err)
	}

	return registrationDaoToDomain(created), nil
}

func (r *RegistrationRepository) AddItem(ctx context.Context, registrationID uint, bird domain.Bird, classIDs []uint) (domain.RegistrationItem, error) {
	created, err := r.dao.AddItem(ctx, registrationID, birdDomainToDao(bird), classIDs)
	if err != nil {
		return domain.RegistrationItem{}, fmt.Errorf("r.dao.AddItem -> %w", err)
	}

	return itemDaoToDomain(created), nil
}

func (r *RegistrationRepository) FindByID(ctx context.Context, id uint) (domain.Registration, error) {
	found, err := r.dao.FindByID(ctx, id)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("r.dao.FindByID -> %w", err)
	}

	return registrationDaoToDomain(found), nil
}

func (r *RegistrationRepository) FindByEvent(ctx context.Context, eventID uint) ([]domain.Registration, error) {
	found, err := r.dao.FindByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindByEvent -> %w", err)
	}

	regs := make([]domain.Registration, len(found))
	for i, reg := range found {
		regs[i] = registrationDaoToDomain(reg)
	}

	return regs, nil
}

func (r *RegistrationRepository) FindPayments(ctx context.Context, registrationID uint) ([]domain.Payment, error) {
	found, err := r.dao.FindPayments(ctx, registrationID)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindPayments -> %w", err)
	}

	payments := make([]domain.Payment, len(found))
	for i, p := range found {
		payments[i] = paymentDaoToDomain(p)
	}

	return payments, nil
}

func (r *RegistrationRepository) RecordPayment(ctx context.Context, paymentID uint, amount int64, method string) (domain.Payment, error) {
	updated, err := r.dao.RecordPayment(ctx, paymentID, amount, method)
	if err != nil {
		return domain.Payment{}, fmt.Errorf("r.dao.RecordPayment -> %w", err)
	}

	return paymentDaoToDomain(updated), nil
}

func (r *RegistrationRepository) FindBirdByBand(ctx context.Context, band domain.Band) (domain.Bird, error) {
	found, err := r.birdDAO.FindByBand(ctx, band.Federation, band.Year, band.Letters, band.Serial)
	if err != nil {
		return domain.Bird{}, fmt.Errorf("r.birdDAO.FindByBand -> %w", err)
	}

	return birdDaoToDomain(found), nil
}

func (r *RegistrationRepository) MarkBirdLost(ctx context.Context, birdID uint, lostAt time.Time, raceID *uint) error {
	if err := r.birdDAO.MarkLost(ctx, birdID, lostAt, raceID); err != nil {
		return fmt.Errorf("r.birdDAO.MarkLost -> %w", err)
	}

	return nil
}

func birdDomainToDao(b domain.Bird) dao.Bird {
	return dao.Bird{
		ID:         b.ID,
		Federation: b.Band.Federation,
		Year:       b.Band.Year,
		Letters:    b.Band.Letters,
		Serial:     b.Band.Serial,
		Name:       b.Name,
		Color:      b.Color,
		Sex:        b.Sex,
		BreederID:  b.BreederID,
	}
}

func birdDaoToDomain(b dao.Bird) domain.Bird {
	return domain.Bird{
		ID: b.ID,
		Band: domain.Band{
			Federation: b.Federation,
			Year:       b.Year,
			Letters:    b.Letters,
			Serial:     b.Serial,
		},
		Name:       b.Name,
		Color:      b.Color,
		Sex:        b.Sex,
		BreederID:  b.BreederID,
		LostAt:     b.LostAt,
		LostRaceID: b.LostRaceID,
		CreatedAt:  b.CreatedAt,
		UpdatedAt:  b.UpdatedAt,
	}
}

func itemDaoToDomain(item dao.RegistrationItem) domain.RegistrationItem {
	classIDs := make([]uint, len(item.BettingClasses))
	for i, enroll := range item.BettingClasses {
		classIDs[i] = enroll.BettingClassID
	}

	return domain.RegistrationItem{
		ID:              item.ID,
		RegistrationID:  item.RegistrationID,
		BirdID:          item.BirdID,
		Bird:            birdDaoToDomain(item.Bird),
		BettingClassIDs: classIDs,
		CreatedAt:       item.CreatedAt,
	}
}

func registrationDaoToDomain(reg dao.Registration) domain.Registration {
	items := make([]domain.RegistrationItem, len(reg.Items))
	for i, item := range reg.Items {
		items[i] = itemDaoToDomain(item)
	}

	return domain.Registration{
		ID:            reg.ID,
		EventID:       reg.EventID,
		BreederID:     reg.BreederID,
		LoftName:      reg.LoftName,
		ReservedBirds: reg.ReservedBirds,
		Items:         items,
		CreatedAt:     reg.CreatedAt,
		UpdatedAt:     reg.UpdatedAt,
	}
}

func paymentDaoToDomain(p dao.Payment) domain.Payment {
	return domain.Payment{
		ID:             p.ID,
		RegistrationID: p.RegistrationID,
		Type:           domain.PaymentType(p.Type),
		Method:         p.Method,
		AmountDue:      p.AmountDue,
		AmountPaid:     p.AmountPaid,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}
