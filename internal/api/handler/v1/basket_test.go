package v1

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openloft/pigeonrace/internal/api/middleware"
	"github.com/openloft/pigeonrace/internal/domain"
	"github.com/openloft/pigeonrace/internal/service"
)

type stubUserService struct{}

func (s *stubUserService) GetUser(_ context.Context, id uint) (domain.User, error) {
	return domain.User{ID: id, Role: domain.RoleAdmin}, nil
}

type stubBasketService struct {
	assignErr error
	deleteErr error
}

func (s *stubBasketService) CreateBasket(_ context.Context, raceID uint, basketNo int, side domain.BasketSide) (domain.Basket, error) {
	return domain.Basket{ID: 1, RaceID: raceID, BasketNo: basketNo, Side: side}, nil
}

func (s *stubBasketService) GetBasketsByRace(_ context.Context, _ uint) ([]domain.Basket, error) {
	return nil, nil
}

func (s *stubBasketService) DeleteBasket(_ context.Context, _ uint) error {
	return s.deleteErr
}

func (s *stubBasketService) AssignEntries(_ context.Context, entryIDs []uint, _ uint, _ domain.BasketSide, _ time.Time) ([]domain.RaceEntry, error) {
	if s.assignErr != nil {
		return nil, s.assignErr
	}
	entries := make([]domain.RaceEntry, len(entryIDs))
	for i, id := range entryIDs {
		entries[i] = domain.RaceEntry{ID: id, Status: domain.EntryLoftBasketed}
	}
	return entries, nil
}

func (s *stubBasketService) UnassignEntries(_ context.Context, _ []uint, _ domain.BasketSide) ([]domain.RaceEntry, error) {
	return nil, nil
}

func newBasketRouter(svc BasketService, authed bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	if authed {
		router.Use(func(ctx *gin.Context) {
			ctx.Set(middleware.ContextKeyUserID, uint(42))
		})
	}

	handler := NewBasketHandler(svc, &stubUserService{})
	router.POST("/races/:raceID/baskets", handler.HandleCreateBasket)
	router.DELETE("/baskets/:basketID", handler.HandleDeleteBasket)
	router.POST("/baskets/:basketID/entries", handler.HandleAssignEntries)
	return router
}

func TestHandleCreateBasket(t *testing.T) {
	router := newBasketRouter(&stubBasketService{}, true)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/races/1/baskets", strings.NewReader(`{"basket_no":3,"side":"loft"}`))
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"basket_no":3`)
}

func TestHandleCreateBasket_Unauthenticated(t *testing.T) {
	router := newBasketRouter(&stubBasketService{}, false)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/races/1/baskets", strings.NewReader(`{"basket_no":3,"side":"loft"}`))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandleCreateBasket_BadSide(t *testing.T) {
	router := newBasketRouter(&stubBasketService{}, true)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/races/1/baskets", strings.NewReader(`{"basket_no":3,"side":"middle"}`))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleAssignEntries_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"conflict on concurrent loss", service.ErrEntryConflict, http.StatusConflict},
		{"missing basket", service.ErrBasketNotFound, http.StatusNotFound},
		{"side mismatch", &domain.ValidationError{Field: "side", Message: "basket side mismatch"}, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newBasketRouter(&stubBasketService{assignErr: tt.err}, true)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/baskets/1/entries", strings.NewReader(`{"entry_ids":[1],"side":"loft"}`))
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code, w.Body.String())
		})
	}
}

func TestHandleAssignEntries_OK(t *testing.T) {
	router := newBasketRouter(&stubBasketService{}, true)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/baskets/1/entries", strings.NewReader(`{"entry_ids":[1,2],"side":"loft"}`))
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"LOFT_BASKETED"`)
}

func TestHandleDeleteBasket_NotEmpty(t *testing.T) {
	router := newBasketRouter(&stubBasketService{deleteErr: service.ErrBasketNotEmpty}, true)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/baskets/1", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}
