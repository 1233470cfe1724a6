package dao

import (
	"errors"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func InitTables(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Event{},
		&FeeScheme{},
		&PerchTier{},
		&PrizeItem{},
		&BettingClass{},
		&Bird{},
		&Registration{},
		&RegistrationItem{},
		&ItemBettingClass{},
		&Race{},
		&RaceEntry{},
		&Basket{},
		&Payment{},
	)
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) &&
		pgErr.Code == pgerrcode.UniqueViolation &&
		strings.Contains(pgErr.Message, constraint)
}
