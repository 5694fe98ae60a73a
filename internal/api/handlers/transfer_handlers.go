package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledger-service/ledger_service/internal/domain/entities"
	apperrors "github.com/ledger-service/ledger_service/internal/domain/errors"
	"github.com/ledger-service/ledger_service/internal/domain/services/account"
	"github.com/ledger-service/ledger_service/internal/domain/services/transfer"
	"github.com/ledger-service/ledger_service/pkg/logger"
)

// TransferHandlers handles transfer posting
type TransferHandlers struct {
	transferService *transfer.Service
	accountService  *account.Service
	validator       *validator.Validate
	logger          *logger.Logger
}

// NewTransferHandlers creates a new TransferHandlers instance
func NewTransferHandlers(transferService *transfer.Service, accountService *account.Service, logger *logger.Logger) *TransferHandlers {
	return &TransferHandlers{
		transferService: transferService,
		accountService:  accountService,
		validator:       validator.New(),
		logger:          logger,
	}
}

// CreateTransferRequest represents a transfer request. The currency is
// taken from the source account; the engine rejects the transfer if the
// destination disagrees.
type CreateTransferRequest struct {
	FromAccountID   string          `json:"fromAccountId" validate:"required,uuid"`
	ToAccountID     string          `json:"toAccountId" validate:"required,uuid"`
	Amount          decimal.Decimal `json:"amount" validate:"required"`
	ReferenceID     *string         `json:"referenceId,omitempty"`
	TransactionType *string         `json:"transactionType,omitempty"`
	Description     *string         `json:"description,omitempty"`
}

// CreateTransfer handles POST /transfers
// @Summary Post a transfer between two accounts
// @Description Moves amount from one account to another as a balanced debit/credit pair. Idempotent on referenceId: replaying identical parameters returns the already posted transaction.
// @Tags transfers
// @Accept json
// @Produce json
// @Param request body CreateTransferRequest true "Transfer parameters"
// @Success 200 {object} entities.Transaction
// @Failure 400 {object} entities.ErrorResponse
// @Failure 404 {object} entities.ErrorResponse
// @Failure 503 {object} entities.ErrorResponse
// @Router /api/v1/transfers [post]
func (h *TransferHandlers) CreateTransfer(c *gin.Context) {
	ctx := c.Request.Context()

	var req CreateTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Malformed transfer payload", "error", err, "request_id", getRequestID(c))
		SendBadRequest(c, MsgInvalidRequest)
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("Transfer validation failed", "error", err)
		SendValidationError(c, "Request validation failed", fieldErrorsFrom(err))
		return
	}

	transferReq, err := h.buildTransferRequest(c, &req)
	if err != nil {
		RespondWithDomainError(c, err)
		return
	}

	transaction, err := h.transferService.Transfer(ctx, transferReq)
	if err != nil {
		h.logger.Warn("Transfer rejected",
			"error", err,
			"from_account_id", req.FromAccountID,
			"to_account_id", req.ToAccountID,
			"request_id", getRequestID(c))
		RespondWithDomainError(c, err)
		return
	}

	SendSuccess(c, transaction)
}

// buildTransferRequest converts the wire request into an engine request,
// resolving the currency from the source account.
func (h *TransferHandlers) buildTransferRequest(c *gin.Context, req *CreateTransferRequest) (*entities.TransferRequest, error) {
	fromID, err := uuid.Parse(req.FromAccountID)
	if err != nil {
		return nil, fmt.Errorf("%w: fromAccountId is not a UUID", apperrors.ErrInvalidInput)
	}
	toID, err := uuid.Parse(req.ToAccountID)
	if err != nil {
		return nil, fmt.Errorf("%w: toAccountId is not a UUID", apperrors.ErrInvalidInput)
	}

	from, err := h.accountService.Get(c.Request.Context(), fromID)
	if err != nil {
		return nil, err
	}

	transactionType := entities.TransactionTypeTransfer
	if req.TransactionType != nil {
		transactionType = entities.TransactionType(*req.TransactionType)
	}

	return &entities.TransferRequest{
		FromAccountID: fromID,
		ToAccountID:   toID,
		Amount:        req.Amount,
		Currency:      from.Currency,
		Type:          transactionType,
		Reference:     req.ReferenceID,
		Description:   req.Description,
	}, nil
}
