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

type RegistrationService interface {
	CreateRegistration(ctx context.Context, reg domain.Registration, enrollments []service.BirdEnrollment) (domain.Registration, error)
	AddBirdToRegistration(ctx context.Context, registrationID uint, enrollment service.BirdEnrollment) (domain.RegistrationItem, error)
	GetRegistration(ctx context.Context, id uint) (domain.Registration, error)
	GetPayments(ctx context.Context, registrationID uint) ([]domain.Payment, error)
	RecordPayment(ctx context.Context, paymentID uint, amount int64, method string) (domain.Payment, error)
	MarkBirdLost(ctx context.Context, birdID uint, lostAt time.Time, raceID *uint) error
}

type RegistrationEntryLister interface {
	ListEntriesByRegistration(ctx context.Context, registrationID uint) ([]domain.RaceEntry, error)
}

type RegistrationHandler struct {
	svc     RegistrationService
	raceSvc RegistrationEntryLister
	uSvc    UserService
}

func NewRegistrationHandler(svc RegistrationService, raceSvc RegistrationEntryLister, uSvc UserService) *RegistrationHandler {
	return &RegistrationHandler{
		svc:     svc,
		raceSvc: raceSvc,
		uSvc:    uSvc,
	}
}

// HandleCreateRegistration godoc
// @Summary      Register a breeder's loft into an event
// @Description  Creates the registration, its birds (reusing existing bands),
// @Description  race-entry fan-out and fee obligations in one atomic unit.
// @Tags         registrations
// @Accept       json
// @Produce      json
// @Param        input  body      request.CreateRegistrationRequest  true  "registration details"
// @Success      201    {object}  domain.Registration
// @Failure      400    {object}  response.Err
// @Failure      409    {object}  response.Err
// @Failure      422    {object}  response.Err
// @Router       /registrations [post]
// @Security BearerAuth
func (h *RegistrationHandler) HandleCreateRegistration(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	var input request.CreateRegistrationRequest
	if err := ctx.ShouldBindJSON(&input); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := input.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	reg := domain.Registration{
		EventID:       input.EventID,
		BreederID:     user.ID,
		LoftName:      input.LoftName,
		ReservedBirds: input.ReservedBirds,
	}

	enrollments := make([]service.BirdEnrollment, len(input.Birds))
	for i, bird := range input.Birds {
		enrollments[i] = birdInputToEnrollment(bird)
	}

	created, err := h.svc.CreateRegistration(ctx.Request.Context(), reg, enrollments)
	if err != nil {
		renderServiceErr(ctx, fmt.Errorf("HandleCreateRegistration -> h.svc.CreateRegistration -> %w", err))
		return
	}

	ctx.JSON(http.StatusCreated, created)
}

// HandleAddBird godoc
// @Summary      Add a bird to an existing registration
// @Tags         registrations
// @Accept       json
// @Produce      json
// @Param        registrationID  path      int                     true  "registration id"
// @Param        input           body      request.AddBirdRequest  true  "bird details"
// @Success      201             {object}  domain.RegistrationItem
// @Failure      400             {object}  response.Err
// @Failure      404             {object}  response.Err
// @Router       /registrations/{registrationID}/birds [post]
// @Security BearerAuth
func (h *RegistrationHandler) HandleAddBird(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	registrationID, err := parseIDParam(ctx, "registrationID")
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if respErr := h.requireOwnership(ctx, user, registrationID); respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	var input request.AddBirdRequest
	if err := ctx.ShouldBindJSON(&input); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := input.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	item, err := h.svc.AddBirdToRegistration(ctx.Request.Context(), registrationID, birdInputToEnrollment(input.Bird))
	if err != nil {
		renderServiceErr(ctx, fmt.Errorf("HandleAddBird -> h.svc.AddBirdToRegistration -> %w", err))
		return
	}

	ctx.JSON(http.StatusCreated, item)
}

// HandleGetRegistration godoc
// @Summary      Get a registration with its birds
// @Tags         registrations
// @Produce      json
// @Param        registrationID  path      int  true  "registration id"
// @Success      200             {object}  domain.Registration
// @Failure      404             {object}  response.Err
// @Router       /registrations/{registrationID} [get]
// @Security BearerAuth
func (h *RegistrationHandler) HandleGetRegistration(ctx *gin.Context) {
	registrationID, err := parseIDParam(ctx, "registrationID")
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	reg, err := h.svc.GetRegistration(ctx.Request.Context(), registrationID)
	if err != nil {
		renderServiceErr(ctx, fmt.Errorf("HandleGetRegistration -> h.svc.GetRegistration -> %w", err))
		return
	}

	ctx.JSON(http.StatusOK, reg)
}

// HandleListRegistrationEntries godoc
// @Summary      List race entries of a registration's birds
// @Tags         registrations
// @Produce      json
// @Param        registrationID  path      int  true  "registration id"
// @Success      200             {array}   domain.RaceEntry
// @Failure      404             {object}  response.Err
// @Router       /registrations/{registrationID}/entries [get]
// @Security BearerAuth
func (h *RegistrationHandler) HandleListRegistrationEntries(ctx *gin.Context) {
	registrationID, err := parseIDParam(ctx, "registrationID")
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	entries, err := h.raceSvc.ListEntriesByRegistration(ctx.Request.Context(), registrationID)
	if err != nil {
		renderServiceErr(ctx, fmt.Errorf("HandleListRegistrationEntries -> h.raceSvc.ListEntriesByRegistration -> %w", err))
		return
	}

	ctx.JSON(http.StatusOK, entries)
}

// HandleGetPayments godoc
// @Summary      List a registration's fee obligations
// @Tags         registrations
// @Produce      json
// @Param        registrationID  path      int  true  "registration id"
// @Success      200             {array}   domain.Payment
// @Failure      404             {object}  response.Err
// @Router       /registrations/{registrationID}/payments [get]
// @Security BearerAuth
func (h *RegistrationHandler) HandleGetPayments(ctx *gin.Context) {
	registrationID, err := parseIDParam(ctx, "registrationID")
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	payments, err := h.svc.GetPayments(ctx.Request.Context(), registrationID)
	if err != nil {
		renderServiceErr(ctx, fmt.Errorf("HandleGetPayments -> h.svc.GetPayments -> %w", err))
		return
	}

	ctx.JSON(http.StatusOK, payments)
}

// HandleRecordPayment godoc
// @Summary      Record an amount paid against an obligation
// @Tags         registrations
// @Accept       json
// @Produce      json
// @Param        registrationID  path      int                           true  "registration id"
// @Param        input           body      request.RecordPaymentRequest  true  "payment details"
// @Success      200             {object}  domain.Payment
// @Failure      400             {object}  response.Err
// @Failure      404             {object}  response.Err
// @Router       /registrations/{registrationID}/payments [post]
// @Security BearerAuth
func (h *RegistrationHandler) HandleRecordPayment(ctx *gin.Context) {
	if _, respErr := getUserFromContext(ctx, h.uSvc); respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	var input request.RecordPaymentRequest
	if err := ctx.ShouldBindJSON(&input); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := input.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	payment, err := h.svc.RecordPayment(ctx.Request.Context(), input.PaymentID, input.Amount, input.Method)
	if err != nil {
		renderServiceErr(ctx, fmt.Errorf("HandleRecordPayment -> h.svc.RecordPayment -> %w", err))
		return
	}

	ctx.JSON(http.StatusOK, payment)
}

// HandleMarkBirdLost godoc
// @Summary      Mark a bird as lost
// @Tags         birds
// @Accept       json
// @Produce      json
// @Param        birdID  path  int                          true  "bird id"
// @Param        input   body  request.MarkBirdLostRequest  true  "loss details"
// @Success      204
// @Failure      400  {object}  response.Err
// @Failure      404  {object}  response.Err
// @Router       /birds/{birdID}/lost [post]
// @Security BearerAuth
func (h *RegistrationHandler) HandleMarkBirdLost(ctx *gin.Context) {
	if _, respErr := getUserFromContext(ctx, h.uSvc); respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	birdID, err := parseIDParam(ctx, "birdID")
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	var input request.MarkBirdLostRequest
	if err := ctx.ShouldBindJSON(&input); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := input.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	lostAt, err := time.Parse(time.RFC3339, input.LostAt)
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(fmt.Errorf("invalid lost_at: %v", err)))
		return
	}

	if err := h.svc.MarkBirdLost(ctx.Request.Context(), birdID, lostAt, input.RaceID); err != nil {
		renderServiceErr(ctx, fmt.Errorf("HandleMarkBirdLost -> h.svc.MarkBirdLost -> %w", err))
		return
	}

	ctx.Status(http.StatusNoContent)
}

func (h *RegistrationHandler) requireOwnership(ctx *gin.Context, user domain.User, registrationID uint) *response.Err {
	reg, err := h.svc.GetRegistration(ctx.Request.Context(), registrationID)
	if err != nil {
		return response.ErrNotFound("registration", "id", registrationID)
	}

	if user.Role != domain.RoleSuperadmin && user.Role != domain.RoleAdmin && reg.BreederID != user.ID {
		return response.ErrPermissionDenied(fmt.Errorf("user %v does not own registration %v", user.ID, registrationID))
	}

	return nil
}

func birdInputToEnrollment(input request.BirdInput) service.BirdEnrollment {
	return service.BirdEnrollment{
		Bird: domain.Bird{
			Band: domain.Band{
				Federation: input.Federation,
				Year:       input.Year,
				Letters:    input.Letters,
				Serial:     input.Serial,
			},
			Name:  input.Name,
			Color: input.Color,
			Sex:   input.Sex,
		},
		BettingClassIDs: input.BettingClassIDs,
	}
}
