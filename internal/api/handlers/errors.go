package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/ledger-service/ledger_service/internal/domain/entities"
	apperrors "github.com/ledger-service/ledger_service/internal/domain/errors"
)

// Error messages as constants for consistency
const (
	MsgInvalidRequest     = "Invalid request payload"
	MsgInternalError      = "Internal server error"
	MsgServiceUnavailable = "Service temporarily unavailable"
)

// respondError sends a standardized error response
func respondError(c *gin.Context, status int, message string, fieldErrors map[string]string) {
	c.JSON(status, entities.ErrorResponse{
		Status:      status,
		Message:     message,
		Timestamp:   time.Now().UTC(),
		FieldErrors: fieldErrors,
	})
}

// SendBadRequest sends a 400 Bad Request error
func SendBadRequest(c *gin.Context, message string) {
	respondError(c, http.StatusBadRequest, message, nil)
}

// SendNotFound sends a 404 Not Found error
func SendNotFound(c *gin.Context, message string) {
	respondError(c, http.StatusNotFound, message, nil)
}

// SendInternalError sends a 500 Internal Server Error
func SendInternalError(c *gin.Context, message string) {
	respondError(c, http.StatusInternalServerError, message, nil)
}

// SendServiceUnavailable sends a 503 Service Unavailable error
func SendServiceUnavailable(c *gin.Context, message string) {
	respondError(c, http.StatusServiceUnavailable, message, nil)
}

// SendValidationError sends a 400 with per-field validation messages
func SendValidationError(c *gin.Context, message string, fieldErrors map[string]string) {
	respondError(c, http.StatusBadRequest, message, fieldErrors)
}

// SendSuccess sends a 200 OK response with data
func SendSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// SendCreated sends a 201 Created response with data
func SendCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// RespondWithDomainError maps a domain error onto its HTTP status and
// sends the standard error body. Unrecognized errors become a 500
// without leaking internals.
func RespondWithDomainError(c *gin.Context, err error) {
	switch {
	case apperrors.IsAccountNotFound(err), apperrors.IsTransactionNotFound(err):
		SendNotFound(c, err.Error())
	case apperrors.IsInsufficientFunds(err),
		apperrors.IsCurrencyMismatch(err),
		apperrors.IsInvalidTransaction(err),
		apperrors.IsDuplicateReference(err),
		errors.Is(err, apperrors.ErrInvalidInput):
		SendBadRequest(c, err.Error())
	case apperrors.IsTransient(err):
		SendServiceUnavailable(c, MsgServiceUnavailable)
	case errors.Is(err, apperrors.ErrBalanceVerification):
		SendInternalError(c, err.Error())
	default:
		SendInternalError(c, MsgInternalError)
	}
}

// fieldErrorsFrom flattens validator errors into a field → message map
func fieldErrorsFrom(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			out[fe.Field()] = "is required"
		case "uuid":
			out[fe.Field()] = "must be a valid UUID"
		case "oneof":
			out[fe.Field()] = "must be one of: " + fe.Param()
		default:
			out[fe.Field()] = "failed validation rule " + fe.Tag()
		}
	}
	return out
}
