package service

import (
	"context"
	"errors"
	"net/http"

	"github.com/satishbabariya/prisma-filter/internal/core/query/domain"
	"github.com/satishbabariya/prisma-filter/internal/repository"
)

// StatusCode maps a Compile or Select error to an HTTP status.
// FilterErrors are the caller's fault and map to 400; a broken default
// filter is the server's and maps to 500.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrEntityNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrBadDefaultFilter):
		return http.StatusInternalServerError
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	}
	if _, ok := domain.AsFilterError(err); ok {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
