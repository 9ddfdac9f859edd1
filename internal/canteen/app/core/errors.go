package core

import (
	"context"
	"errors"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrClosed            = errors.New("canteen is closed")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrForbidden         = errors.New("forbidden")
	ErrConflict          = errors.New("conflict, try again")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrBusy              = errors.New("too many orders, try again later")
)

// Kind maps an error to the machine readable kind returned to clients.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrClosed):
		return "closed"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrConflict), errors.Is(err, context.DeadlineExceeded):
		return "conflict"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrBusy):
		return "busy"
	default:
		return "internal"
	}
}
