package v1

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openloft/pigeonrace/internal/api/handler/v1/request"
	"github.com/openloft/pigeonrace/internal/api/handler/v1/response"
	"github.com/openloft/pigeonrace/internal/domain"
)

type BasketService interface {
	CreateBasket(ctx context.Context, raceID uint, basketNo int, side domain.BasketSide) (domain.Basket, error)
	GetBasketsByRace(ctx context.Context, raceID uint) ([]domain.Basket, error)
	DeleteBasket(ctx context.Context, basketID uint) error
	AssignEntries(ctx context.Context, entryIDs []uint, basketID uint, side domain.BasketSide, arrivedAt time.Time) ([]domain.RaceEntry, error)
	UnassignEntries(ctx context.Context, entryIDs []uint, side domain.BasketSide) ([]domain.RaceEntry, error)
}

type BasketHandler struct {
	svc  BasketService
	uSvc UserService
}

func NewBasketHandler(svc BasketService, uSvc UserService) *BasketHandler {
	return &BasketHandler{
		svc:  svc,
		uSvc: uSvc,
	}
}

// HandleCreateBasket godoc
// @Summary      Create a basket for a race
// @Description  The (race, number, side) triple is unique; a duplicate is a
// @Description  conflict, not an upsert.
// @Tags         baskets
// @Accept       json
// @Produce      json
// @Param        raceID  path      int                          true  "race id"
// @Param        input   body      request.CreateBasketRequest  true  "basket details"
// @Success      201     {object}  domain.Basket
// @Failure      400     {object}  response.Err
// @Failure      404     {object}  response.Err
// @Failure      409     {object}  response.Err
// @Router       /races/{raceID}/baskets [post]
// @Security BearerAuth
func (h *BasketHandler) HandleCreateBasket(ctx *gin.Context) {
	if _, respErr := getUserFromContext(ctx, h.uSvc); respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	raceID, err := parseIDParam(ctx, "raceID")
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	var input request.CreateBasketRequest
	if err := ctx.ShouldBindJSON(&input); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := input.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	basket, err := h.svc.CreateBasket(ctx.Request.Context(), raceID, input.BasketNo, domain.BasketSide(input.Side))
	if err != nil {
		renderServiceErr(ctx, fmt.Errorf("HandleCreateBasket -> h.svc.CreateBasket -> %w", err))
		return
	}

	ctx.JSON(http.StatusCreated, basket)
}

// HandleGetBaskets godoc
// @Summary      List a race's baskets
// @Tags         baskets
// @Produce      json
// @Param        raceID  path      int  true  "race id"
// @Success      200     {array}   domain.Basket
// @Failure      404     {object}  response.Err
// @Router       /races/{raceID}/baskets [get]
// @Security BearerAuth
func (h *BasketHandler) HandleGetBaskets(ctx *gin.Context) {
	raceID, err := parseIDParam(ctx, "raceID")
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	baskets, err := h.svc.GetBasketsByRace(ctx.Request.Context(), raceID)
	if err != nil {
		renderServiceErr(ctx, fmt.Errorf("HandleGetBaskets -> h.svc.GetBasketsByRace -> %w", err))
		return
	}

	ctx.JSON(http.StatusOK, baskets)
}

// HandleDeleteBasket godoc
// @Summary      Delete an empty basket
// @Description  Refused while any entry still references the basket.
// @Tags         baskets
// @Param        basketID  path  int  true  "basket id"
// @Success      204
// @Failure      404  {object}  response.Err
// @Failure      409  {object}  response.Err
// @Router       /baskets/{basketID} [delete]
// @Security BearerAuth
func (h *BasketHandler) HandleDeleteBasket(ctx *gin.Context) {
	if _, respErr := getUserFromContext(ctx, h.uSvc); respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	basketID, err := parseIDParam(ctx, "basketID")
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := h.svc.DeleteBasket(ctx.Request.Context(), basketID); err != nil {
		renderServiceErr(ctx, fmt.Errorf("HandleDeleteBasket -> h.svc.DeleteBasket -> %w", err))
		return
	}

	ctx.Status(http.StatusNoContent)
}

// HandleAssignEntries godoc
// @Summary      Assign entries to a basket
// @Description  All-or-nothing: one bad entry rejects the whole batch. Loft
// @Description  side advances REGISTERED entries; race side stamps arrivals.
// @Tags         baskets
// @Accept       json
// @Produce      json
// @Param        basketID  path      int                           true  "basket id"
// @Param        input     body      request.AssignEntriesRequest  true  "entry batch"
// @Success      200       {array}   domain.RaceEntry
// @Failure      400       {object}  response.Err
// @Failure      404       {object}  response.Err
// @Failure      409       {object}  response.Err
// @Failure      422       {object}  response.Err
// @Router       /baskets/{basketID}/entries [post]
// @Security BearerAuth
func (h *BasketHandler) HandleAssignEntries(ctx *gin.Context) {
	if _, respErr := getUserFromContext(ctx, h.uSvc); respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	basketID, err := parseIDParam(ctx, "basketID")
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	var input request.AssignEntriesRequest
	if err := ctx.ShouldBindJSON(&input); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := input.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	var arrivedAt time.Time
	if input.ArrivedAt != "" {
		arrivedAt, err = time.Parse(time.RFC3339, input.ArrivedAt)
		if err != nil {
			response.RenderErr(ctx, response.ErrBadRequest(fmt.Errorf("invalid arrived_at: %v", err)))
			return
		}
	}

	entries, err := h.svc.AssignEntries(ctx.Request.Context(), input.EntryIDs, basketID, domain.BasketSide(input.Side), arrivedAt)
	if err != nil {
		renderServiceErr(ctx, fmt.Errorf("HandleAssignEntries -> h.svc.AssignEntries -> %w", err))
		return
	}

	ctx.JSON(http.StatusOK, entries)
}

// HandleUnassignEntries godoc
// @Summary      Take entries back out of their basket
// @Description  Operator correction path: loft-side entries return to
// @Description  REGISTERED, race-side entries to RELEASED with arrival data
// @Description  cleared.
// @Tags         baskets
// @Accept       json
// @Produce      json
// @Param        input  body      request.UnassignEntriesRequest  true  "entry batch"
// @Success      200    {array}   domain.RaceEntry
// @Failure      400    {object}  response.Err
// @Failure      404    {object}  response.Err
// @Failure      409    {object}  response.Err
// @Router       /entries/unassign [post]
// @Security BearerAuth
func (h *BasketHandler) HandleUnassignEntries(ctx *gin.Context) {
	if _, respErr := getUserFromContext(ctx, h.uSvc); respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	var input request.UnassignEntriesRequest
	if err := ctx.ShouldBindJSON(&input); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := input.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	entries, err := h.svc.UnassignEntries(ctx.Request.Context(), input.EntryIDs, domain.BasketSide(input.Side))
	if err != nil {
		renderServiceErr(ctx, fmt.Errorf("HandleUnassignEntries -> h.svc.UnassignEntries -> %w", err))
		return
	}

	ctx.JSON(http.StatusOK, entries)
}
