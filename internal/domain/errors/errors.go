// Package errors provides standardized error types for the domain layer.
// Services wrap these sentinels with context; the API layer maps them
// onto HTTP status codes.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the ledger domain
var (
	// ErrAccountNotFound indicates a referenced account does not exist
	ErrAccountNotFound = errors.New("account not found")

	// ErrTransactionNotFound indicates a referenced transaction does not exist
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrInsufficientFunds indicates a debit would take a bounded account below zero
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrCurrencyMismatch indicates the transfer currency differs from an account currency
	ErrCurrencyMismatch = errors.New("currency mismatch")

	// ErrInvalidTransaction indicates the transfer parameters violate a business rule
	ErrInvalidTransaction = errors.New("invalid transaction")

	// ErrDuplicateReference indicates the client reference is already taken,
	// detected via the case-insensitive unique index on transactions.reference
	ErrDuplicateReference = errors.New("duplicate transaction reference")

	// ErrBalanceVerification indicates a double-entry consistency check failed
	ErrBalanceVerification = errors.New("balance verification failed")

	// ErrTransient indicates a retryable condition such as a lock wait
	// timeout, deadlock or serialization failure
	ErrTransient = errors.New("transient storage error")

	// ErrStoreIO indicates a non-retryable storage failure
	ErrStoreIO = errors.New("storage error")

	// ErrInvalidInput indicates malformed or out-of-range input
	ErrInvalidInput = errors.New("invalid input")
)

// DomainError represents a domain-specific error with additional context
type DomainError struct {
	Err       error
	Code      string
	Message   string
	Details   map[string]interface{}
	Retryable bool
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Code
}

// Unwrap returns the wrapped error for errors.Is and errors.As
func (e *DomainError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the operation may be retried
func (e *DomainError) IsRetryable() bool {
	return e.Retryable
}

// NewDomainError creates a new domain error wrapping err
func NewDomainError(err error, code, message string) *DomainError {
	return &DomainError{
		Err:     err,
		Code:    code,
		Message: message,
	}
}

// WithDetails attaches structured details to the error
func (e *DomainError) WithDetails(details map[string]interface{}) *DomainError {
	e.Details = details
	return e
}

// WithRetryable marks the error as retryable or not
func (e *DomainError) WithRetryable(retryable bool) *DomainError {
	e.Retryable = retryable
	return e
}

// IsAccountNotFound checks if the error is an account lookup miss
func IsAccountNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound)
}

// IsTransactionNotFound checks if the error is a transaction lookup miss
func IsTransactionNotFound(err error) bool {
	return errors.Is(err, ErrTransactionNotFound)
}

// IsInsufficientFunds checks if the error is an overdraw rejection
func IsInsufficientFunds(err error) bool {
	return errors.Is(err, ErrInsufficientFunds)
}

// IsCurrencyMismatch checks if the error is a currency rule violation
func IsCurrencyMismatch(err error) bool {
	return errors.Is(err, ErrCurrencyMismatch)
}

// IsInvalidTransaction checks if the error is a transfer rule violation
func IsInvalidTransaction(err error) bool {
	return errors.Is(err, ErrInvalidTransaction)
}

// IsDuplicateReference checks if the error is a reference collision
func IsDuplicateReference(err error) bool {
	return errors.Is(err, ErrDuplicateReference)
}

// IsTransient checks if the error is retryable
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// ShouldRetry reports whether an operation that returned err is worth
// retrying. Transient sentinels and retryable domain errors qualify.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTransient) {
		return true
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Retryable
	}
	return false
}

// GetErrorCode extracts a stable machine-readable code from an error
func GetErrorCode(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) && domainErr.Code != "" {
		return domainErr.Code
	}

	switch {
	case IsAccountNotFound(err):
		return "ACCOUNT_NOT_FOUND"
	case IsTransactionNotFound(err):
		return "TRANSACTION_NOT_FOUND"
	case IsInsufficientFunds(err):
		return "INSUFFICIENT_FUNDS"
	case IsCurrencyMismatch(err):
		return "CURRENCY_MISMATCH"
	case IsDuplicateReference(err):
		return "DUPLICATE_REFERENCE"
	case IsInvalidTransaction(err):
		return "INVALID_TRANSACTION"
	case errors.Is(err, ErrBalanceVerification):
		return "BALANCE_VERIFICATION_FAILED"
	case IsTransient(err):
		return "TRANSIENT"
	case errors.Is(err, ErrStoreIO):
		return "STORE_IO"
	case errors.Is(err, ErrInvalidInput):
		return "INVALID_INPUT"
	default:
		return "UNKNOWN_ERROR"
	}
}

// Wrap adds context to an error while preserving the chain
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// WrapWithCode wraps an error into a DomainError with a code
func WrapWithCode(err error, code, message string) *DomainError {
	return &DomainError{
		Err:     err,
		Code:    code,
		Message: message,
	}
}
