package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/vinoplan-backend/internal/modules/tasting"
	"github.com/yungbote/vinoplan-backend/internal/platform/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondDomainError maps err onto a status and a message that is safe to show. Policy
// reasons are shown verbatim; upstream and unknown failures get the generic message.
func RespondDomainError(c *gin.Context, err error) {
	ae := Classify(err)
	msg := tasting.UserMessage(err)
	var explicit *apierr.Error
	if errors.As(err, &explicit) && explicit.Err != nil {
		msg = explicit.Err.Error()
	}
	c.JSON(ae.Status, ErrorEnvelope{Error: APIError{Message: msg, Code: ae.Code}})
}

// Classify returns the status and code for err.
func Classify(err error) *apierr.Error {
	var ae *apierr.Error
	switch {
	case errors.As(err, &ae):
		return ae
	case errors.Is(err, tasting.ErrValidationRejected):
		return apierr.New(http.StatusBadRequest, "validation_rejected", err)
	case errors.Is(err, tasting.ErrQuotaExceeded):
		return apierr.New(http.StatusTooManyRequests, "quota_exceeded", err)
	case errors.Is(err, tasting.ErrUpstreamGenerationFailed):
		return apierr.New(http.StatusBadGateway, "generation_failed", err)
	default:
		return apierr.New(http.StatusInternalServerError, "internal_error", err)
	}
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
