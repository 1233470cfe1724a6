package v1

import (
	"context"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/openloft/pigeonrace/internal/api/middleware"
	"github.com/openloft/pigeonrace/internal/api/handler/v1/response"
	"github.com/openloft/pigeonrace/internal/domain"
	"github.com/openloft/pigeonrace/internal/service"
)

type UserService interface {
	GetUser(ctx context.Context, id uint) (domain.User, error)
}

// getUserFromContext resolves the authenticated caller set by the JWT
// middleware. Core operations receive the user explicitly; nothing reads
// ambient session state below this point.
func getUserFromContext(ctx *gin.Context, svc UserService) (domain.User, *response.Err) {
	v, ok := ctx.Get(middleware.ContextKeyUserID)
	if !ok {
		return domain.User{}, response.ErrUnauthorized("missing authentication")
	}

	userID, ok := v.(uint)
	if !ok || userID == 0 {
		return domain.User{}, response.ErrUnauthorized("invalid authentication")
	}

	user, err := svc.GetUser(ctx.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return domain.User{}, response.ErrUnauthorized("unknown user")
		}
		return domain.User{}, response.ErrInternalServerError(fmt.Errorf("getUserFromContext -> %w", err))
	}

	return user, nil
}

// renderServiceErr maps the core error taxonomy onto HTTP responses:
// validation -> 422, conflicts and invalid lifecycle states -> 409,
// missing entities -> 404, everything else -> 500.
func renderServiceErr(ctx *gin.Context, err error) {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		response.RenderErr(ctx, response.ErrValidation(ve))
		return
	}

	switch {
	case errors.Is(err, service.ErrEventNotFound),
		errors.Is(err, service.ErrRegistrationNotFound),
		errors.Is(err, service.ErrPaymentNotFound),
		errors.Is(err, service.ErrBirdNotFound),
		errors.Is(err, service.ErrRaceNotFound),
		errors.Is(err, service.ErrEntryNotFound),
		errors.Is(err, service.ErrBasketNotFound):
		response.RenderErr(ctx, response.ErrNotFound("entity", "error", err.Error()))
	case errors.Is(err, service.ErrBasketExists),
		errors.Is(err, service.ErrBasketNotEmpty),
		errors.Is(err, service.ErrEntryConflict):
		response.RenderErr(ctx, response.ErrConflict(err))
	case errors.Is(err, service.ErrRaceClosed),
		errors.Is(err, service.ErrRaceAlreadyStarted),
		errors.Is(err, service.ErrNothingToRelease),
		errors.Is(err, service.ErrEntryNotForeignable),
		errors.Is(err, service.ErrEventClosed),
		errors.Is(err, domain.ErrInvalidStatusTransition):
		response.RenderErr(ctx, response.ErrInvalidState(err))
	default:
		response.RenderErr(ctx, response.ErrInternalServerError(err))
	}
}
