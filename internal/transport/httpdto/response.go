package httpdto

import (
	"errors"
	"net/http"

	taskerrors "taskchat/pkg/errors"
)

type Response[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

func NewSuccessResponse[T any](data T) Response[T] {
	return Response[T]{
		Success: true,
		Data:    data,
	}
}

func NewErrorResponse(err string, code string) Response[any] {
	return Response[any]{
		Success: false,
		Error:   err,
		Code:    code,
	}
}

// HTTPStatus maps the error taxonomy onto status codes.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, taskerrors.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, taskerrors.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, taskerrors.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, taskerrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, taskerrors.ErrTooManyRequests):
		return http.StatusTooManyRequests
	case errors.Is(err, taskerrors.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
