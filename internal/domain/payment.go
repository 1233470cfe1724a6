package domain

import "time"

type PaymentType string

const (
	PaymentEntryFee PaymentType = "entry_fee"
	PaymentPerchFee PaymentType = "perch_fee"
	PaymentRaceFee  PaymentType = "race_fee"
	PaymentPayout   PaymentType = "payout"
	PaymentOther    PaymentType = "other"
)

type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
)

// Payment records an obligation against a registration. Amounts are cents.
// Status is always derived from the two amounts, never stored.
type Payment struct {
	ID             uint        `json:"id"`
	RegistrationID uint        `json:"registration_id"`
	Type           PaymentType `json:"type"`
	Method         string      `json:"method"`
	AmountDue      int64       `json:"amount_due"`
	AmountPaid     int64       `json:"amount_paid"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

func (p Payment) Status() PaymentStatus {
	switch {
	case p.AmountPaid <= 0:
		return PaymentUnpaid
	case p.AmountPaid < p.AmountDue:
		return PaymentPartial
	default:
		return PaymentPaid
	}
}
