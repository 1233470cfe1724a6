package request

import (
	validation "github.com/go-ozzo/ozzo-validation"
)

type CreateBasketRequest struct {
	BasketNo int    `json:"basket_no"`
	Side     string `json:"side"`
}

func (req *CreateBasketRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.BasketNo, validation.Required, validation.Min(1)),
		validation.Field(&req.Side, validation.Required, validation.In("loft", "race")),
	)
}

type AssignEntriesRequest struct {
	EntryIDs []uint `json:"entry_ids"`
	Side     string `json:"side"`

	// Optional operator-supplied arrival stamp for race-side assignment;
	// defaults to the server clock.
	ArrivedAt string `json:"arrived_at,omitempty" format:"RFC3339"`
}

func (req *AssignEntriesRequest) Validate() error {
	err := validation.ValidateStruct(
		req,
		validation.Field(&req.EntryIDs, validation.Required, validation.Length(1, 0)),
		validation.Field(&req.Side, validation.Required, validation.In("loft", "race")),
	)
	if err != nil {
		return err
	}

	if req.ArrivedAt != "" {
		return validation.Validate(req.ArrivedAt, validation.Date("2006-01-02T15:04:05Z07:00"))
	}

	return nil
}

type UnassignEntriesRequest struct {
	EntryIDs []uint `json:"entry_ids"`
	Side     string `json:"side"`
}

func (req *UnassignEntriesRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.EntryIDs, validation.Required, validation.Length(1, 0)),
		validation.Field(&req.Side, validation.Required, validation.In("loft", "race")),
	)
}
