package weberror

import (
	"fmt"
	"net/http"

	"github.com/mdouchement/chestlink/internal/manager"
	"github.com/pkg/errors"
)

type (
	// HTTPCoder interface is implemented by application errors.
	HTTPCoder interface {
		// HTTPCode return the HTTP status code for the given error.
		HTTPCode() int
	}

	// Error is the payload rendered in case of error.
	Error struct {
		Code    int    `json:"-"`
		Message string `json:"message"`
	}
)

var codes = map[error]int{
	manager.ErrAccessDenied:    http.StatusForbidden,
	manager.ErrNotOwner:        http.StatusForbidden,
	manager.ErrShareSelf:       http.StatusUnprocessableEntity,
	manager.ErrNoPendingBind:   http.StatusConflict,
	manager.ErrAlreadyBound:    http.StatusConflict,
	manager.ErrInvalidPosition: http.StatusBadRequest,
	manager.ErrInvalidName:     http.StatusBadRequest,
	manager.ErrUnknownView:     http.StatusNotFound,
	manager.ErrUpgradeDisabled: http.StatusForbidden,
	manager.ErrMaxLevel:        http.StatusConflict,
	manager.ErrLimitReached:    http.StatusForbidden,
	manager.ErrCannotPay:       http.StatusPaymentRequired,
	manager.ErrFilterFull:      http.StatusConflict,
	manager.ErrNoPendingRename: http.StatusConflict,
	manager.ErrRecordFull:      http.StatusConflict,
}

// StatusCode the know HHTP status for the given err. If unknown, it returns 500.
func StatusCode(err error) int {
	if hc, ok := err.(HTTPCoder); ok {
		return hc.HTTPCode()
	}
	if code, ok := codes[errors.Cause(err)]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// New returns a new Error.
func New(code int, message string) error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// From returns an Error carrying the status code of err.
func From(err error) error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		return e
	}
	return New(StatusCode(err), err.Error())
}

// Error stringifies the error.
func (e *Error) Error() string {
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// HTTPCode returns the HTTP status code.
func (e *Error) HTTPCode() int {
	return e.Code
}
