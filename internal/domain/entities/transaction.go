package entities

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType represents the business kind of a transfer
type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "DEPOSIT"
	TransactionTypeWithdrawal TransactionType = "WITHDRAWAL"
	TransactionTypeTransfer   TransactionType = "TRANSFER"
	TransactionTypeGameBet    TransactionType = "GAME_BET"
	TransactionTypeGameWin    TransactionType = "GAME_WIN"
	TransactionTypeBonusAward TransactionType = "BONUS_AWARD"
	TransactionTypeJackpotWin TransactionType = "JACKPOT_WIN"
)

// Validate checks that the transaction type is a known kind
func (t TransactionType) Validate() error {
	switch t {
	case TransactionTypeDeposit, TransactionTypeWithdrawal, TransactionTypeTransfer,
		TransactionTypeGameBet, TransactionTypeGameWin, TransactionTypeBonusAward,
		TransactionTypeJackpotWin:
		return nil
	default:
		return fmt.Errorf("invalid transaction type: %s", t)
	}
}

// Transaction is the header row grouping the balanced pair of ledger
// entries produced by a transfer. Headers are immutable; there is no
// status column because a transaction only exists once its entries
// committed.
type Transaction struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	FromAccountID uuid.UUID       `json:"fromAccountId" db:"from_account_id"`
	ToAccountID   uuid.UUID       `json:"toAccountId" db:"to_account_id"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	Currency      Currency        `json:"currency" db:"currency"`
	Type          TransactionType `json:"transactionType" db:"transaction_type"`
	Reference     *string         `json:"reference,omitempty" db:"reference"`
	CreatedAt     time.Time       `json:"createdAt" db:"created_at"`
}

// TransferRequest carries the parameters of a requested transfer into
// the transfer engine.
type TransferRequest struct {
	FromAccountID uuid.UUID
	ToAccountID   uuid.UUID
	Amount        decimal.Decimal
	Currency      Currency
	Type          TransactionType
	Reference     *string
	Description   *string
}

// Matches reports whether an existing transaction was created from the
// same transfer parameters. Used to decide between an idempotent replay
// and a reference collision.
func (r *TransferRequest) Matches(tx *Transaction) bool {
	return tx.FromAccountID == r.FromAccountID &&
		tx.ToAccountID == r.ToAccountID &&
		tx.Amount.Equal(r.Amount) &&
		tx.Currency == r.Currency &&
		tx.Type == r.Type
}
