package request

import (
	validation "github.com/go-ozzo/ozzo-validation"
)

type BirdInput struct {
	Federation string `json:"federation"`
	Year       int    `json:"year"`
	Letters    string `json:"letters"`
	Serial     string `json:"serial"`

	Name  string `json:"name"`
	Color string `json:"color"`
	Sex   string `json:"sex"`

	BettingClassIDs []uint `json:"betting_class_ids"`
}

func (b BirdInput) Validate() error {
	return validation.ValidateStruct(
		&b,
		validation.Field(&b.Federation, validation.Required, validation.Length(1, 10)),
		validation.Field(&b.Year, validation.Required, validation.Min(1950)),
		validation.Field(&b.Letters, validation.Required, validation.Length(1, 10)),
		validation.Field(&b.Serial, validation.Required, validation.Length(1, 16)),
		validation.Field(&b.Sex, validation.In("cock", "hen", "")),
	)
}

type CreateRegistrationRequest struct {
	EventID       uint        `json:"event_id"`
	LoftName      string      `json:"loft_name"`
	ReservedBirds int         `json:"reserved_birds"`
	Birds         []BirdInput `json:"birds"`
}

func (req *CreateRegistrationRequest) Validate() error {
	err := validation.ValidateStruct(
		req,
		validation.Field(&req.EventID, validation.Required, validation.Min(uint(1))),
		validation.Field(&req.LoftName, validation.Required, validation.Length(2, 100)),
		validation.Field(&req.ReservedBirds, validation.Required, validation.Min(1)),
		validation.Field(&req.Birds, validation.Required),
	)
	if err != nil {
		return err
	}

	for _, bird := range req.Birds {
		if err := bird.Validate(); err != nil {
			return err
		}
	}

	return nil
}

type AddBirdRequest struct {
	Bird BirdInput `json:"bird"`
}

func (req *AddBirdRequest) Validate() error {
	return req.Bird.Validate()
}

type RecordPaymentRequest struct {
	PaymentID uint   `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Method    string `json:"method"`
}

func (req *RecordPaymentRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.PaymentID, validation.Required, validation.Min(uint(1))),
		validation.Field(&req.Amount, validation.Required, validation.Min(int64(1))),
		validation.Field(&req.Method, validation.Required, validation.In("cash", "bank_transfer", "card", "other")),
	)
}

type MarkBirdLostRequest struct {
	LostAt string `json:"lost_at" format:"RFC3339"`
	RaceID *uint  `json:"race_id"`
}

func (req *MarkBirdLostRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.LostAt, validation.Required, validation.Date("2006-01-02T15:04:05Z07:00")),
	)
}
