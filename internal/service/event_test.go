package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openloft/pigeonrace/internal/domain"
)

type fakeEventWriteRepo struct {
	fakeEventRepo
	created *domain.Event
}

func (f *fakeEventWriteRepo) Create(_ context.Context, event domain.Event) (domain.Event, error) {
	event.ID = 1
	f.created = &event
	return event, nil
}

func (f *fakeEventWriteRepo) FindAll(_ context.Context) ([]domain.Event, error) {
	return nil, nil
}

func TestEventService_CreateEvent_SchemeValidation(t *testing.T) {
	valid := domain.Event{
		Name: "Derby 2025",
		FeeScheme: domain.FeeScheme{
			EntryFee:   2000,
			PerchTiers: []domain.PerchTier{{BirdNo: 1, Fee: 500}, {BirdNo: 2, Fee: 500}},
		},
		PrizeScheme:   []domain.PrizeItem{{RaceType: "final", FromPosition: 1, ToPosition: 3, PrizeAmount: 10000}},
		BettingScheme: []domain.BettingClass{{Name: "WTA 2", Payout: 100000}},
	}

	tests := []struct {
		name      string
		mutate    func(e *domain.Event)
		wantField string
	}{
		{"valid scheme", func(e *domain.Event) {}, ""},
		{"zero bird ordinal", func(e *domain.Event) {
			e.FeeScheme.PerchTiers[0].BirdNo = 0
		}, "perch_tiers"},
		{"duplicate tier", func(e *domain.Event) {
			e.FeeScheme.PerchTiers[1].BirdNo = 1
		}, "perch_tiers"},
		{"negative perch fee", func(e *domain.Event) {
			e.FeeScheme.PerchTiers[0].Fee = -1
		}, "perch_tiers"},
		{"inverted prize range", func(e *domain.Event) {
			e.PrizeScheme[0].FromPosition = 5
		}, "prize_scheme"},
		{"zero from position", func(e *domain.Event) {
			e.PrizeScheme[0].FromPosition = 0
		}, "prize_scheme"},
		{"unnamed betting class", func(e *domain.Event) {
			e.BettingScheme[0].Name = ""
		}, "betting_scheme"},
		{"negative payout", func(e *domain.Event) {
			e.BettingScheme[0].Payout = -1
		}, "betting_scheme"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeEventWriteRepo{}
			svc := NewEventService(repo)

			event := valid
			event.FeeScheme.PerchTiers = append([]domain.PerchTier(nil), valid.FeeScheme.PerchTiers...)
			event.PrizeScheme = append([]domain.PrizeItem(nil), valid.PrizeScheme...)
			event.BettingScheme = append([]domain.BettingClass(nil), valid.BettingScheme...)
			tt.mutate(&event)

			_, err := svc.CreateEvent(context.Background(), event)
			if tt.wantField == "" {
				require.NoError(t, err)
				require.NotNil(t, repo.created)
				return
			}

			var ve *domain.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.wantField, ve.Field)
		})
	}
}
