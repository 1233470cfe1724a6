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
	"github.com/openloft/pigeonrace/internal/service"
)

type RaceService interface {
	CreateRace(ctx context.Context, race domain.Race) (domain.Race, error)
	CreateEntriesForRace(ctx context.Context, raceID uint) ([]domain.RaceEntry, error)
	StartRace(ctx context.Context, raceID uint, releasedAt time.Time, force bool) (domain.Race, error)
	CloseRace(ctx context.Context, raceID uint) (domain.Race, error)
	GetRace(ctx context.Context, raceID uint) (domain.Race, error)
	GetRacesByEvent(ctx context.Context, eventID uint) ([]domain.Race, error)
	ListEntriesByRace(ctx context.Context, raceID uint) ([]domain.RaceEntry, error)
	MarkForeign(ctx context.Context, entryID uint) (domain.RaceEntry, error)
	ResolveScan(ctx context.Context, raceID uint, band string) (domain.RaceEntry, error)
}

type ResultService interface {
	RecordArrival(ctx context.Context, entryID uint, arrivedAt time.Time, position *int) (domain.RaceEntry, error)
	ComputeResults(ctx context.Context, raceID uint) (service.RaceResults, error)
}

type RaceHandler struct {
	svc       RaceService
	resultSvc ResultService
	eventSvc  EventService
	uSvc      UserService
}

func NewRaceHandler(svc RaceService, resultSvc ResultService, eventSvc EventService, uSvc UserService) *RaceHandler {
	return &RaceHandler{
		svc:       svc,
		resultSvc: resultSvc,
		eventSvc:  eventSvc,
		uSvc:      uSvc,
	}
}

// HandleCreateRace godoc
// @Summary      Create a race and fan out its entries
// @Description  Every bird already registered into the event gets a REGISTERED
// @Description  entry for the new race. Requires event management rights.
// @Tags         races
// @Accept       json
// @Produce      json
// @Param        input  body      request.CreateRaceRequest  true  "race details"
// @Success      201    {object}  domain.Race
// @Failure      400    {object}  response.Err
// @Failure      403    {object}  response.Err
// @Failure      409    {object}  response.Err
// @Router       /races [post]
// @Security BearerAuth
func (h *RaceHandler) HandleCreateRace(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	var input request.CreateRaceRequest
	if err := ctx.ShouldBindJSON(&input); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := input.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if respErr := h.requireEventManager(ctx, user, input.EventID); respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	race, err := h.svc.CreateRace(ctx.Request.Context(), domain.Race{
		EventID:        input.EventID,
		Name:           input.Name,
		RaceType:       input.RaceType,
		Distance:       input.Distance,
		ReleaseWeather: input.ReleaseWeather,
	})
	if err != nil {
		renderServiceErr(ctx, fmt.Errorf("HandleCreateRace -> h.svc.CreateRace -> %w", err))
		return
	}

	ctx.JSON(http.StatusCreated, race)
}

// HandleGetRace godoc
// @Summary      Get a race
// @Tags         races
// @Produce      json
// @Param        raceID  path      int  true  "race id"
// @Success      200     {object}  domain.Race
// @Failure      404     {object}  response.Err
// @Router       /races/{raceID} [get]
// @Security BearerAuth
func (h *RaceHandler) HandleGetRace(ctx *gin.Context) {
	raceID, err := parseIDParam(ctx, "raceID")
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	race, err := h.svc.GetRace(ctx.Request.Context(), raceID)
	if err != nil {
		renderServiceErr(ctx, fmt.Errorf("HandleGetRace -> h.svc.GetRace -> %w", err))
		return
	}

	ctx.JSON(http.StatusOK, race)
}

// HandleListRacesByEvent godoc
// @Summary      List an event's races
// @Tags         races
// @Produce      json
// @Param        eventID  path      int  true  "event id"
// @Success      200      {array}   domain.Race
// @Failure      404      {object}  response.Err
// @Router       /events/{eventID}/races [get]
// @Security BearerAuth
func (h *RaceHandler) HandleListRacesByEvent(ctx *gin.Context) {
	eventID, err := parseIDParam(ctx, "eventID")
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	races, err := h.svc.GetRacesByEvent(ctx.Request.Context(), eventID)
	if err != nil {
		renderServiceErr(ctx, fmt.Errorf("HandleListRacesByEvent -> h.svc.GetRacesByEvent -> %w", err))
		return
	}

	ctx.JSON(http.StatusOK, races)
}

// HandleFanOutEntries godoc
// @Summary      Re-run the race's entry fan-out
// @Description  Idempotent: birds already entered keep their existing entry.
// @Tags         races
// @Produce      json
// @Param        raceID  path      int  true  "race id"
// @Success      200     {array}   domain.RaceEntry
// @Failure      404     {object}  response.Err
// @Failure      409     {object}  response.Err
// @Router       /races/{raceID}/entries [post]
// @Security BearerAuth
func (h *RaceHandler) HandleFanOutEntries(ctx *gin.Context) {
	if _, respErr := getUserFromContext(ctx, h.uSvc); respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	raceID, err := parseIDParam(ctx, "raceID")
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	entries, err := h.svc.CreateEntriesForRace(ctx.Request.Context(), raceID)
	if err != nil {
		renderServiceErr(ctx, fmt.Errorf("HandleFanOutEntries -> h.svc.CreateEntriesForRace -> %w", err))
		return
	}

	ctx.JSON(http.StatusOK, entries)
}

// HandleListEntries godoc
// @Summary      List a race's entries
// @Tags         races
// @Produce      json
// @Param        raceID  path      int  true  "race id"
// @Success      200     {array}   domain.RaceEntry
// @Failure      404     {object}  response.Err
// @Router       /races/{raceID}/entries [get]
// @Security BearerAuth
func (h *RaceHandler) HandleListEntries(ctx *gin.Context) {
	raceID, err := parseIDParam(ctx, "raceID")
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	entries, err := h.svc.ListEntriesByRace(ctx.Request.Context(), raceID)
	if err != nil {
		renderServiceErr(ctx, fmt.Errorf("HandleListEntries -> h.svc.ListEntriesByRace -> %w", err))
		return
	}

	ctx.JSON(http.StatusOK, entries)
}

// HandleStartRace godoc
// @Summary      Release the race
// @Description  Atomically moves every LOFT_BASKETED entry to RELEASED and
// @Description  puts the race live. Birds never basketed are no-shows.
// @Tags         races
// @Accept       json
// @Produce      json
// @Param        raceID  path      int                       true  "race id"
// @Param        input   body      request.StartRaceRequest  true  "release details"
// @Success      200     {object}  domain.Race
// @Failure      400     {object}  response.Err
// @Failure      403     {object}  response.Err
// @Failure      409     {object}  response.Err
// @Router       /races/{raceID}/start [post]
// @Security BearerAuth
func (h *RaceHandler) HandleStartRace(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	raceID, err := parseIDParam(ctx, "raceID")
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if respErr := h.requireRaceManager(ctx, user, raceID); respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	var input request.StartRaceRequest
	if err := ctx.ShouldBindJSON(&input); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := input.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	releasedAt, err := time.Parse(time.RFC3339, input.ReleasedAt)
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(fmt.Errorf("invalid released_at: %v", err)))
		return
	}

	race, err := h.svc.StartRace(ctx.Request.Context(), raceID, releasedAt, input.Force)
	if err != nil {
		renderServiceErr(ctx, fmt.Errorf("HandleStartRace -> h.svc.StartRace -> %w", err))
		return
	}

	ctx.JSON(http.StatusOK, race)
}

// HandleCloseRace godoc
// @Summary      Close the race to further entries
// @Tags         races
// @Produce      json
// @Param        raceID  path      int  true  "race id"
// @Success      200     {object}  domain.Race
// @Failure      403     {object}  response.Err
// @Failure      404     {object}  response.Err
// @Router       /races/{raceID}/close [post]
// @Security BearerAuth
func (h *RaceHandler) HandleCloseRace(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	raceID, err := parseIDParam(ctx, "raceID")
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if respErr := h.requireRaceManager(ctx, user, raceID); respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	race, err := h.svc.CloseRace(ctx.Request.Context(), raceID)
	if err != nil {
		renderServiceErr(ctx, fmt.Errorf("HandleCloseRace -> h.svc.CloseRace -> %w", err))
		return
	}

	ctx.JSON(http.StatusOK, race)
}

// HandleScan godoc
// @Summary      Resolve a scanned band to the race entry
// @Description  A band that parses but matches no entry yields 404; the
// @Description  operator decides whether to record a foreign bird.
// @Tags         races
// @Accept       json
// @Produce      json
// @Param        raceID  path      int                  true  "race id"
// @Param        input   body      request.ScanRequest  true  "scan details"
// @Success      200     {object}  domain.RaceEntry
// @Failure      404     {object}  response.Err
// @Failure      422     {object}  response.Err
// @Router       /races/{raceID}/scan [post]
// @Security BearerAuth
func (h *RaceHandler) HandleScan(ctx *gin.Context) {
	if _, respErr := getUserFromContext(ctx, h.uSvc); respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	raceID, err := parseIDParam(ctx, "raceID")
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	var input request.ScanRequest
	if err := ctx.ShouldBindJSON(&input); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := input.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	entry, err := h.svc.ResolveScan(ctx.Request.Context(), raceID, input.Band)
	if err != nil {
		renderServiceErr(ctx, fmt.Errorf("HandleScan -> h.svc.ResolveScan -> %w", err))
		return
	}

	ctx.JSON(http.StatusOK, entry)
}

// HandleMarkForeign godoc
// @Summary      Mark an entry as a foreign bird
// @Description  Terminal: the bird arrived with someone else's return and is
// @Description  excluded from scoring. Only REGISTERED entries qualify.
// @Tags         races
// @Produce      json
// @Param        entryID  path      int  true  "entry id"
// @Success      200      {object}  domain.RaceEntry
// @Failure      404      {object}  response.Err
// @Failure      409      {object}  response.Err
// @Router       /entries/{entryID}/foreign [post]
// @Security BearerAuth
func (h *RaceHandler) HandleMarkForeign(ctx *gin.Context) {
	if _, respErr := getUserFromContext(ctx, h.uSvc); respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	entryID, err := parseIDParam(ctx, "entryID")
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	entry, err := h.svc.MarkForeign(ctx.Request.Context(), entryID)
	if err != nil {
		renderServiceErr(ctx, fmt.Errorf("HandleMarkForeign -> h.svc.MarkForeign -> %w", err))
		return
	}

	ctx.JSON(http.StatusOK, entry)
}

// HandleRecordArrival godoc
// @Summary      Record an entry's arrival
// @Tags         races
// @Accept       json
// @Produce      json
// @Param        entryID  path      int                           true  "entry id"
// @Param        input    body      request.RecordArrivalRequest  true  "arrival details"
// @Success      200      {object}  domain.RaceEntry
// @Failure      400      {object}  response.Err
// @Failure      409      {object}  response.Err
// @Failure      422      {object}  response.Err
// @Router       /entries/{entryID}/arrival [post]
// @Security BearerAuth
func (h *RaceHandler) HandleRecordArrival(ctx *gin.Context) {
	if _, respErr := getUserFromContext(ctx, h.uSvc); respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	entryID, err := parseIDParam(ctx, "entryID")
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	var input request.RecordArrivalRequest
	if err := ctx.ShouldBindJSON(&input); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := input.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	arrivedAt, err := time.Parse(time.RFC3339, input.ArrivedAt)
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(fmt.Errorf("invalid arrived_at: %v", err)))
		return
	}

	entry, err := h.resultSvc.RecordArrival(ctx.Request.Context(), entryID, arrivedAt, input.Position)
	if err != nil {
		renderServiceErr(ctx, fmt.Errorf("HandleRecordArrival -> h.resultSvc.RecordArrival -> %w", err))
		return
	}

	ctx.JSON(http.StatusOK, entry)
}

// HandleComputeResults godoc
// @Summary      Compute and persist the race's results
// @Description  Re-derives ranking, speed, prizes and betting payouts from
// @Description  scratch. Safe to re-run after corrections.
// @Tags         races
// @Produce      json
// @Param        raceID  path      int  true  "race id"
// @Success      200     {object}  service.RaceResults
// @Failure      404     {object}  response.Err
// @Router       /races/{raceID}/results [post]
// @Security BearerAuth
func (h *RaceHandler) HandleComputeResults(ctx *gin.Context) {
	if _, respErr := getUserFromContext(ctx, h.uSvc); respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	raceID, err := parseIDParam(ctx, "raceID")
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	results, err := h.resultSvc.ComputeResults(ctx.Request.Context(), raceID)
	if err != nil {
		renderServiceErr(ctx, fmt.Errorf("HandleComputeResults -> h.resultSvc.ComputeResults -> %w", err))
		return
	}

	ctx.JSON(http.StatusOK, results)
}

func (h *RaceHandler) requireEventManager(ctx *gin.Context, user domain.User, eventID uint) *response.Err {
	event, err := h.eventSvc.GetEvent(ctx.Request.Context(), eventID)
	if err != nil {
		return response.ErrNotFound("event", "id", eventID)
	}

	if user.Role != domain.RoleAdmin && !user.CanManageEvent(event) {
		return response.ErrPermissionDenied(fmt.Errorf("user %v may not manage event %v", user.ID, eventID))
	}

	return nil
}

func (h *RaceHandler) requireRaceManager(ctx *gin.Context, user domain.User, raceID uint) *response.Err {
	race, err := h.svc.GetRace(ctx.Request.Context(), raceID)
	if err != nil {
		return response.ErrNotFound("race", "id", raceID)
	}

	return h.requireEventManager(ctx, user, race.EventID)
}
