package apperror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Code classifies an application error.
type Code int

// System errors (1000-1999)
const (
	ErrInternal Code = 1000 + iota
	ErrDatabase
)

// Auth errors (2000-2999)
const (
	ErrUnauthorized Code = 2000 + iota
	ErrForbidden
	ErrInvalidToken
	ErrInvalidCredentials
)

// Request errors (3000-3999)
const (
	ErrBadRequest Code = 3000 + iota
	ErrValidation
	ErrNotFound
	ErrConflict
)

// Comment errors (4000-4999)
const (
	ErrCommentNotFound Code = 4000 + iota
	ErrParentNotFound
	ErrMaxDepthExceeded
	ErrCommentDeleted
	ErrCommentNotDeleted
	ErrEntityNotFound
)

var statusByCode = map[Code]int{
	ErrInternal: http.StatusInternalServerError,
	ErrDatabase: http.StatusInternalServerError,

	ErrUnauthorized:       http.StatusUnauthorized,
	ErrForbidden:          http.StatusForbidden,
	ErrInvalidToken:       http.StatusUnauthorized,
	ErrInvalidCredentials: http.StatusUnauthorized,

	ErrBadRequest: http.StatusBadRequest,
	ErrValidation: http.StatusBadRequest,
	ErrNotFound:   http.StatusNotFound,
	ErrConflict:   http.StatusConflict,

	ErrCommentNotFound:   http.StatusNotFound,
	ErrParentNotFound:    http.StatusNotFound,
	ErrMaxDepthExceeded:  http.StatusBadRequest,
	ErrCommentDeleted:    http.StatusConflict,
	ErrCommentNotDeleted: http.StatusConflict,
	ErrEntityNotFound:    http.StatusNotFound,
}

// AppError is an error with a stable code and a message safe to show users.
type AppError struct {
	Code    Code
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// Status is the HTTP status the code maps to.
func (e *AppError) Status() int {
	if s, ok := statusByCode[e.Code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// New creates an application error.
func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap creates an application error around a cause.
func Wrap(code Code, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// Response is the JSON error body. Message is what clients show to users.
type Response struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

// HandleError writes err as a JSON error response and aborts the chain.
// Causes are never exposed to the client.
func HandleError(c *gin.Context, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		_ = c.Error(err)
		c.AbortWithStatusJSON(appErr.Status(), Response{Code: appErr.Code, Message: appErr.Message})
		return
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, Response{
		Code:    ErrInternal,
		Message: "internal server error",
	})
}
