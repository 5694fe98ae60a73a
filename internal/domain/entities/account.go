package entities

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Currency represents an ISO 4217 currency code supported by the ledger
type Currency string

const (
	CurrencyEUR Currency = "EUR"
	CurrencyUSD Currency = "USD"
	CurrencyGBP Currency = "GBP"
	CurrencySEK Currency = "SEK"
	CurrencyNOK Currency = "NOK"
	CurrencyCHF Currency = "CHF"
)

// SupportedCurrencies returns every currency the ledger accepts
func SupportedCurrencies() []Currency {
	return []Currency{CurrencyEUR, CurrencyUSD, CurrencyGBP, CurrencySEK, CurrencyNOK, CurrencyCHF}
}

// Validate checks that the currency is one of the supported codes
func (c Currency) Validate() error {
	switch c {
	case CurrencyEUR, CurrencyUSD, CurrencyGBP, CurrencySEK, CurrencyNOK, CurrencyCHF:
		return nil
	default:
		return fmt.Errorf("unsupported currency: %s", c)
	}
}

// AccountType represents the kind of an account
type AccountType string

const (
	AccountTypeMain    AccountType = "MAIN"
	AccountTypeBonus   AccountType = "BONUS"
	AccountTypePending AccountType = "PENDING"
	AccountTypeJackpot AccountType = "JACKPOT"
	AccountTypeSystem  AccountType = "SYSTEM"
)

// Validate checks that the account type is a known kind
func (t AccountType) Validate() error {
	switch t {
	case AccountTypeMain, AccountTypeBonus, AccountTypePending, AccountTypeJackpot, AccountTypeSystem:
		return nil
	default:
		return fmt.Errorf("invalid account type: %s", t)
	}
}

// DebitPolicy describes whether and how far an account type may be debited
type DebitPolicy int

const (
	// DebitBounded allows debits up to the current derived balance
	DebitBounded DebitPolicy = iota
	// DebitUnbounded allows debits past zero; balances may go negative
	DebitUnbounded
	// DebitDenied forbids debits entirely
	DebitDenied
)

// DebitPolicy returns the withdrawal rule for the account type.
// System accounts fund the rest of the ledger and may run negative.
// Bonus and pending balances are credit-only until released by a
// dedicated transaction kind.
func (t AccountType) DebitPolicy() DebitPolicy {
	switch t {
	case AccountTypeSystem:
		return DebitUnbounded
	case AccountTypeBonus, AccountTypePending:
		return DebitDenied
	default:
		return DebitBounded
	}
}

// Account represents a wallet account. Accounts are immutable after
// creation and never store a balance; balances are derived from
// ledger entries.
type Account struct {
	ID        uuid.UUID   `json:"id" db:"id"`
	Currency  Currency    `json:"currency" db:"currency"`
	Type      AccountType `json:"accountType" db:"account_type"`
	CreatedAt time.Time   `json:"createdAt" db:"created_at"`
}

// Validate checks the account invariants
func (a *Account) Validate() error {
	if a.ID == uuid.Nil {
		return fmt.Errorf("account id is required")
	}
	if err := a.Currency.Validate(); err != nil {
		return err
	}
	return a.Type.Validate()
}
