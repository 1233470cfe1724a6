package request

import (
	validation "github.com/go-ozzo/ozzo-validation"
)

type CreateRaceRequest struct {
	EventID        uint    `json:"event_id"`
	Name           string  `json:"name"`
	RaceType       string  `json:"race_type"`
	Distance       float64 `json:"distance"`
	ReleaseWeather string  `json:"release_weather"`
}

func (req *CreateRaceRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.EventID, validation.Required, validation.Min(uint(1))),
		validation.Field(&req.Name, validation.Required, validation.Length(2, 100)),
		validation.Field(&req.RaceType, validation.Required, validation.Length(1, 50)),
		validation.Field(&req.Distance, validation.Required, validation.Min(0.1)),
	)
}

type StartRaceRequest struct {
	ReleasedAt string `json:"released_at" format:"RFC3339"`
	Force      bool   `json:"force"`
}

func (req *StartRaceRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.ReleasedAt, validation.Required, validation.Date("2006-01-02T15:04:05Z07:00")),
	)
}

type RecordArrivalRequest struct {
	ArrivedAt string `json:"arrived_at" format:"RFC3339"`
	Position  *int   `json:"position"`
}

func (req *RecordArrivalRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.ArrivedAt, validation.Required, validation.Date("2006-01-02T15:04:05Z07:00")),
	)
}

type ScanRequest struct {
	Band      string `json:"band"`
	ScannedAt string `json:"scanned_at" format:"RFC3339"`
}

func (req *ScanRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Band, validation.Required),
		validation.Field(&req.ScannedAt, validation.Required, validation.Date("2006-01-02T15:04:05Z07:00")),
	)
}
