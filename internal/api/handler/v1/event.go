package v1

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openloft/pigeonrace/internal/api/handler/v1/request"
	"github.com/openloft/pigeonrace/internal/api/handler/v1/response"
	"github.com/openloft/pigeonrace/internal/domain"
)

type EventService interface {
	CreateEvent(ctx context.Context, event domain.Event) (domain.Event, error)
	GetEvent(ctx context.Context, id uint) (domain.Event, error)
	GetEvents(ctx context.Context) ([]domain.Event, error)
}

type EventHandler struct {
	svc  EventService
	uSvc UserService
}

func NewEventHandler(svc EventService, uSvc UserService) *EventHandler {
	return &EventHandler{
		svc:  svc,
		uSvc: uSvc,
	}
}

// HandleCreateEvent godoc
// @Summary      Create an event with its fee, prize and betting schemes
// @Description  Schemes are immutable once created. Requires the admin role.
// @Tags         events
// @Accept       json
// @Produce      json
// @Param        input  body      request.CreateEventRequest  true  "event details"
// @Success      201    {object}  domain.Event
// @Failure      400    {object}  response.Err
// @Failure      403    {object}  response.Err
// @Failure      422    {object}  response.Err
// @Router       /events [post]
// @Security BearerAuth
func (h *EventHandler) HandleCreateEvent(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	if user.Role != domain.RoleAdmin && user.Role != domain.RoleSuperadmin {
		response.RenderErr(ctx, response.ErrPermissionDenied(fmt.Errorf("user %v may not create events", user.ID)))
		return
	}

	var input request.CreateEventRequest
	if err := ctx.ShouldBindJSON(&input); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := input.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	startsAt, err := time.Parse(time.RFC3339, input.StartsAt)
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(fmt.Errorf("invalid starts_at: %v", err)))
		return
	}
	var endsAt time.Time
	if input.EndsAt != "" {
		endsAt, err = time.Parse(time.RFC3339, input.EndsAt)
		if err != nil {
			response.RenderErr(ctx, response.ErrBadRequest(fmt.Errorf("invalid ends_at: %v", err)))
			return
		}
	}

	event := domain.Event{
		Name:        input.Name,
		Location:    input.Location,
		Description: input.Description,
		StartsAt:    startsAt,
		EndsAt:      endsAt,
		CreatorID:   user.ID,
		FeeScheme: domain.FeeScheme{
			EntryFee:  input.EntryFee,
			MaxBirds:  input.MaxBirds,
			SpeedUnit: "mph",
		},
	}
	for _, tier := range input.PerchTiers {
		event.FeeScheme.PerchTiers = append(event.FeeScheme.PerchTiers, domain.PerchTier{
			BirdNo: tier.BirdNo,
			Fee:    tier.Fee,
		})
	}
	for _, item := range input.PrizeScheme {
		event.PrizeScheme = append(event.PrizeScheme, domain.PrizeItem{
			RaceType:     item.RaceType,
			FromPosition: item.FromPosition,
			ToPosition:   item.ToPosition,
			PrizeAmount:  item.PrizeAmount,
		})
	}
	for _, class := range input.BettingScheme {
		event.BettingScheme = append(event.BettingScheme, domain.BettingClass{
			Name:   class.Name,
			Payout: class.Payout,
		})
	}

	created, err := h.svc.CreateEvent(ctx.Request.Context(), event)
	if err != nil {
		renderServiceErr(ctx, fmt.Errorf("HandleCreateEvent -> h.svc.CreateEvent -> %w", err))
		return
	}

	ctx.JSON(http.StatusCreated, created)
}

// HandleGetEvent godoc
// @Summary      Get one event with its schemes
// @Tags         events
// @Produce      json
// @Param        eventID  path      int  true  "event id"
// @Success      200      {object}  domain.Event
// @Failure      404      {object}  response.Err
// @Router       /events/{eventID} [get]
// @Security BearerAuth
func (h *EventHandler) HandleGetEvent(ctx *gin.Context) {
	eventID, err := parseIDParam(ctx, "eventID")
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	event, err := h.svc.GetEvent(ctx.Request.Context(), eventID)
	if err != nil {
		renderServiceErr(ctx, fmt.Errorf("HandleGetEvent -> h.svc.GetEvent -> %w", err))
		return
	}

	ctx.JSON(http.StatusOK, event)
}

// HandleGetEvents godoc
// @Summary      List events
// @Tags         events
// @Produce      json
// @Success      200  {array}   domain.Event
// @Failure      500  {object}  response.Err
// @Router       /events [get]
// @Security BearerAuth
func (h *EventHandler) HandleGetEvents(ctx *gin.Context) {
	events, err := h.svc.GetEvents(ctx.Request.Context())
	if err != nil {
		renderServiceErr(ctx, fmt.Errorf("HandleGetEvents -> h.svc.GetEvents -> %w", err))
		return
	}

	ctx.JSON(http.StatusOK, events)
}

func parseIDParam(ctx *gin.Context, name string) (uint, error) {
	raw := ctx.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %v (%v)", name, raw)
	}

	return uint(id), nil
}
