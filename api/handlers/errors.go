package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/videold-go/internal/domain"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// statusFor maps an operation failure to an HTTP status code
func statusFor(err error) int {
	var (
		fetchErr  *domain.FetchError
		statusErr *domain.StatusError
	)
	switch {
	case errors.Is(err, domain.ErrSelectionEmpty),
		errors.Is(err, domain.ErrInvalidFilter),
		errors.Is(err, domain.ErrNoFormat):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnknownMember),
		errors.Is(err, domain.ErrUnknownFormat):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrFormatChoiceDisabled):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNoResource),
		errors.Is(err, domain.ErrNotCollection),
		errors.Is(err, domain.ErrNotSingle),
		errors.Is(err, domain.ErrTransferInProgress),
		errors.Is(err, domain.ErrStaleFetch):
		return http.StatusConflict
	case errors.As(err, &fetchErr), errors.As(err, &statusErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(statusFor(err), ErrorResponse{
		Error:   err.Error(),
		Message: domain.UserMessage(err),
	})
}
