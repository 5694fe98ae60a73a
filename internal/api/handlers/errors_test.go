package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ledger-service/ledger_service/internal/domain/errors"
)

func TestRespondWithDomainError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
	}{
		{
			name:        "account not found maps to 404",
			err:         fmt.Errorf("%w: abc", apperrors.ErrAccountNotFound),
			wantStatus:  http.StatusNotFound,
			wantMessage: "account not found: abc",
		},
		{
			name:        "transaction not found maps to 404",
			err:         fmt.Errorf("%w: ref", apperrors.ErrTransactionNotFound),
			wantStatus:  http.StatusNotFound,
			wantMessage: "transaction not found: ref",
		},
		{
			name:        "insufficient funds maps to 400",
			err:         fmt.Errorf("%w: balance 50, requested 100", apperrors.ErrInsufficientFunds),
			wantStatus:  http.StatusBadRequest,
			wantMessage: "insufficient funds: balance 50, requested 100",
		},
		{
			name:        "currency mismatch maps to 400",
			err:         fmt.Errorf("%w: EUR vs USD", apperrors.ErrCurrencyMismatch),
			wantStatus:  http.StatusBadRequest,
			wantMessage: "currency mismatch: EUR vs USD",
		},
		{
			name:        "invalid transaction maps to 400",
			err:         fmt.Errorf("%w: amount must be positive", apperrors.ErrInvalidTransaction),
			wantStatus:  http.StatusBadRequest,
			wantMessage: "invalid transaction: amount must be positive",
		},
		{
			name:        "duplicate reference maps to 400",
			err:         fmt.Errorf("%w: reference %q", apperrors.ErrDuplicateReference, "payout-1"),
			wantStatus:  http.StatusBadRequest,
			wantMessage: `duplicate transaction reference: reference "payout-1"`,
		},
		{
			name:        "invalid input maps to 400",
			err:         fmt.Errorf("%w: fromAccountId is not a UUID", apperrors.ErrInvalidInput),
			wantStatus:  http.StatusBadRequest,
			wantMessage: "invalid input: fromAccountId is not a UUID",
		},
		{
			name:        "transient failure maps to 503 without detail",
			err:         fmt.Errorf("%w: lock wait timeout", apperrors.ErrTransient),
			wantStatus:  http.StatusServiceUnavailable,
			wantMessage: MsgServiceUnavailable,
		},
		{
			name:        "balance verification failure maps to 500 with detail",
			err:         fmt.Errorf("%w: debits 10 credits 9", apperrors.ErrBalanceVerification),
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "balance verification failed: debits 10 credits 9",
		},
		{
			name:        "unknown errors map to 500 without leaking",
			err:         errors.New("pq: connection refused"),
			wantStatus:  http.StatusInternalServerError,
			wantMessage: MsgInternalError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := testRouter()
			router.GET("/boom", func(c *gin.Context) {
				RespondWithDomainError(c, tt.err)
			})

			recorder := performRequest(t, router, http.MethodGet, "/boom", nil)

			assert.Equal(t, tt.wantStatus, recorder.Code)
			body := errorBody(t, recorder)
			assert.Equal(t, tt.wantStatus, body.Status)
			assert.Equal(t, tt.wantMessage, body.Message)
			assert.False(t, body.Timestamp.IsZero())
		})
	}
}

// The wire shape stays fixed: status, message, timestamp, and an
// optional fieldErrors map. Machine codes carried by domain errors
// stay internal.
func TestErrorResponseShape(t *testing.T) {
	coded := apperrors.WrapWithCode(apperrors.ErrInvalidTransaction,
		"DUPLICATE_REFERENCE_DIFFERENT_PARAMS",
		`reference "payout-1" was already used with different parameters`)

	router := testRouter()
	router.GET("/boom", func(c *gin.Context) {
		RespondWithDomainError(c, coded)
	})

	recorder := performRequest(t, router, http.MethodGet, "/boom", nil)

	require.Equal(t, http.StatusBadRequest, recorder.Code)

	raw := decodeJSON[map[string]interface{}](t, recorder)
	assert.Contains(t, raw, "status")
	assert.Contains(t, raw, "message")
	assert.Contains(t, raw, "timestamp")
	assert.NotContains(t, raw, "code")
	assert.Equal(t, coded.Error(), raw["message"])
}

func TestSendValidationError(t *testing.T) {
	router := testRouter()
	router.GET("/boom", func(c *gin.Context) {
		SendValidationError(c, "Request validation failed", map[string]string{
			"Currency": "is required",
		})
	})

	recorder := performRequest(t, router, http.MethodGet, "/boom", nil)

	require.Equal(t, http.StatusBadRequest, recorder.Code)
	body := errorBody(t, recorder)
	assert.Equal(t, "Request validation failed", body.Message)
	assert.Equal(t, "is required", body.FieldErrors["Currency"])
}

func TestFieldErrorsFrom(t *testing.T) {
	type payload struct {
		Currency    string `validate:"required,oneof=EUR USD"`
		AccountID   string `validate:"required,uuid"`
		AccountType string `validate:"required"`
	}

	v := validator.New()
	err := v.Struct(payload{Currency: "XXX", AccountID: "nope"})
	require.Error(t, err)

	fields := fieldErrorsFrom(err)
	assert.Equal(t, "must be one of: EUR USD", fields["Currency"])
	assert.Equal(t, "must be a valid UUID", fields["AccountID"])
	assert.Equal(t, "is required", fields["AccountType"])
}

func TestFieldErrorsFrom_NonValidatorError(t *testing.T) {
	assert.Nil(t, fieldErrorsFrom(errors.New("not a validator error")))
}
