package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BalanceResponse reports the derived balance of an account at the
// moment of the query.
type BalanceResponse struct {
	AccountID uuid.UUID       `json:"accountId"`
	Currency  Currency        `json:"currency"`
	Balance   decimal.Decimal `json:"balance"`
	Timestamp time.Time       `json:"timestamp"`
}

// TransactionHistory bundles a transaction header with every ledger
// entry it produced.
type TransactionHistory struct {
	Transaction Transaction   `json:"transaction"`
	Entries     []LedgerEntry `json:"entries"`
}

// LedgerLine is one entry of an account ledger report together with
// the running balance after the entry was applied.
type LedgerLine struct {
	Entry          LedgerEntry     `json:"entry"`
	RunningBalance decimal.Decimal `json:"runningBalance"`
}

// AccountLedgerReport is a paginated, chronologically ascending view of
// an account's ledger with running balances per line.
type AccountLedgerReport struct {
	AccountID    uuid.UUID       `json:"accountId"`
	Currency     Currency        `json:"currency"`
	PageNumber   int             `json:"pageNumber"`
	PageSize     int             `json:"pageSize"`
	TotalEntries int64           `json:"totalEntries"`
	Lines        []LedgerLine    `json:"lines"`
	Balance      decimal.Decimal `json:"balance"`
}

// StatementLine is one movement inside an account statement window.
type StatementLine struct {
	TransactionID uuid.UUID       `json:"transactionId"`
	Timestamp     time.Time       `json:"timestamp"`
	Description   *string         `json:"description,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	IsCredit      bool            `json:"isCredit"`
}

// AccountStatement summarises account activity over a closed interval.
// The opening balance reflects every entry strictly before StartDate;
// closing equals opening plus credits minus debits inside the window.
type AccountStatement struct {
	AccountID        uuid.UUID       `json:"accountId"`
	Currency         Currency        `json:"currency"`
	StartDate        time.Time       `json:"startDate"`
	EndDate          time.Time       `json:"endDate"`
	OpeningBalance   decimal.Decimal `json:"openingBalance"`
	TotalDebits      decimal.Decimal `json:"totalDebits"`
	TotalCredits     decimal.Decimal `json:"totalCredits"`
	ClosingBalance   decimal.Decimal `json:"closingBalance"`
	TransactionCount int64           `json:"transactionCount"`
	Lines            []StatementLine `json:"lines"`
}

// LedgerVerificationReport is the outcome of a full ledger sweep. A
// clean ledger has no unbalanced transactions, no orphaned entries, no
// currency mismatches and equal global debit and credit totals.
type LedgerVerificationReport struct {
	CheckedAt              time.Time       `json:"checkedAt"`
	UnbalancedTransactions []uuid.UUID     `json:"unbalancedTransactions"`
	OrphanedEntries        int64           `json:"orphanedEntries"`
	CurrencyMismatches     int64           `json:"currencyMismatches"`
	TotalDebits            decimal.Decimal `json:"totalDebits"`
	TotalCredits           decimal.Decimal `json:"totalCredits"`
}

// Clean reports whether the sweep found a fully consistent ledger.
func (r *LedgerVerificationReport) Clean() bool {
	return len(r.UnbalancedTransactions) == 0 &&
		r.OrphanedEntries == 0 &&
		r.CurrencyMismatches == 0 &&
		r.TotalDebits.Equal(r.TotalCredits)
}
