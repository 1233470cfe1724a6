package response

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Err struct {
	StatusCode int `json:"-"`

	ErrorCode int    `json:"error_code"`
	ErrorMsg  string `json:"error_message"`
}

func (e *Err) Error() string {
	return fmt.Sprintf("[%d] %s", e.ErrorCode, e.ErrorMsg)
}

func RenderErr(ctx *gin.Context, err *Err) {
	ctx.AbortWithStatusJSON(err.StatusCode, err)
}

func ErrBadRequest(err error) *Err {
	return &Err{
		StatusCode: http.StatusBadRequest,
		ErrorCode:  40001,
		ErrorMsg:   err.Error(),
	}
}

func ErrUnauthorized(msg string) *Err {
	return &Err{
		StatusCode: http.StatusUnauthorized,
		ErrorCode:  40101,
		ErrorMsg:   msg,
	}
}

func ErrPermissionDenied(err error) *Err {
	return &Err{
		StatusCode: http.StatusForbidden,
		ErrorCode:  40301,
		ErrorMsg:   err.Error(),
	}
}

func ErrNotFound(what, key string, value interface{}) *Err {
	return &Err{
		StatusCode: http.StatusNotFound,
		ErrorCode:  40401,
		ErrorMsg:   fmt.Sprintf("%v not found by %v (%v)", what, key, value),
	}
}

// ErrConflict covers state-invariant violations: duplicate baskets,
// non-empty basket deletion, concurrent assignment losses.
func ErrConflict(err error) *Err {
	return &Err{
		StatusCode: http.StatusConflict,
		ErrorCode:  40901,
		ErrorMsg:   err.Error(),
	}
}

// ErrInvalidState rejects operations illegal in the current lifecycle
// state; the caller must change state first, retrying won't help.
func ErrInvalidState(err error) *Err {
	return &Err{
		StatusCode: http.StatusConflict,
		ErrorCode:  40902,
		ErrorMsg:   err.Error(),
	}
}

func ErrValidation(err error) *Err {
	return &Err{
		StatusCode: http.StatusUnprocessableEntity,
		ErrorCode:  42201,
		ErrorMsg:   err.Error(),
	}
}

func ErrInternalServerError(err error) *Err {
	zap.L().Error("internal server error", zap.Error(err))

	return &Err{
		StatusCode: http.StatusInternalServerError,
		ErrorCode:  50001,
		ErrorMsg:   "internal server error",
	}
}
