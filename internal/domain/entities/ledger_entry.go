package entities

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxAmountScale is the number of decimal places stored for monetary
// amounts. Postgres columns are declared NUMERIC(19,4) to match.
const MaxAmountScale = 4

// EntryType represents the direction of a ledger entry
type EntryType string

const (
	EntryTypeDebit  EntryType = "DEBIT"
	EntryTypeCredit EntryType = "CREDIT"
)

// Validate checks that the entry type is DEBIT or CREDIT
func (t EntryType) Validate() error {
	switch t {
	case EntryTypeDebit, EntryTypeCredit:
		return nil
	default:
		return fmt.Errorf("invalid entry type: %s", t)
	}
}

// LedgerEntry is one immutable leg of a double-entry transaction.
// Amounts are always positive; the direction lives in EntryType.
// Entries are never updated or deleted once written.
type LedgerEntry struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	AccountID     uuid.UUID       `json:"accountId" db:"account_id"`
	TransactionID uuid.UUID       `json:"transactionId" db:"transaction_id"`
	EntryType     EntryType       `json:"entryType" db:"entry_type"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	Currency      Currency        `json:"currency" db:"currency"`
	Description   *string         `json:"description,omitempty" db:"description"`
	CreatedAt     time.Time       `json:"createdAt" db:"created_at"`
}

// SignedAmount returns the entry amount with its direction applied:
// positive for credits, negative for debits.
func (e *LedgerEntry) SignedAmount() decimal.Decimal {
	if e.EntryType == EntryTypeCredit {
		return e.Amount
	}
	return e.Amount.Neg()
}

// Validate checks the entry invariants
func (e *LedgerEntry) Validate() error {
	if e.AccountID == uuid.Nil {
		return fmt.Errorf("account id is required")
	}
	if e.TransactionID == uuid.Nil {
		return fmt.Errorf("transaction id is required")
	}
	if err := e.EntryType.Validate(); err != nil {
		return err
	}
	if err := e.Currency.Validate(); err != nil {
		return err
	}
	return ValidateAmount(e.Amount)
}

// ValidateAmount checks that a monetary amount is strictly positive and
// does not exceed the stored scale.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("amount must be positive, got %s", amount)
	}
	if !amount.Equal(amount.Round(MaxAmountScale)) {
		return fmt.Errorf("amount %s exceeds scale of %d decimal places", amount, MaxAmountScale)
	}
	return nil
}
