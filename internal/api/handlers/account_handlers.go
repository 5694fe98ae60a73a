package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/ledger-service/ledger_service/internal/domain/entities"
	"github.com/ledger-service/ledger_service/internal/domain/services/account"
	"github.com/ledger-service/ledger_service/internal/domain/services/reporting"
	"github.com/ledger-service/ledger_service/pkg/logger"
)

// AccountHandlers handles account-related operations
type AccountHandlers struct {
	accountService   *account.Service
	reportingService *reporting.Service
	validator        *validator.Validate
	logger           *logger.Logger
}

// NewAccountHandlers creates a new AccountHandlers instance
func NewAccountHandlers(accountService *account.Service, reportingService *reporting.Service, logger *logger.Logger) *AccountHandlers {
	return &AccountHandlers{
		accountService:   accountService,
		reportingService: reportingService,
		validator:        validator.New(),
		logger:           logger,
	}
}

// CreateAccountRequest represents an account creation request
type CreateAccountRequest struct {
	Currency    string `json:"currency" validate:"required,oneof=EUR USD GBP SEK NOK CHF"`
	AccountType string `json:"accountType" validate:"required,oneof=MAIN BONUS PENDING JACKPOT SYSTEM"`
}

// CreateAccount handles POST /accounts
// @Summary Create a new wallet account
// @Description Open an account in the given currency. Accounts start with a zero balance; value only enters through transfers.
// @Tags accounts
// @Accept json
// @Produce json
// @Param request body CreateAccountRequest true "Account currency and type"
// @Success 201 {object} entities.Account
// @Failure 400 {object} entities.ErrorResponse
// @Router /api/v1/accounts [post]
func (h *AccountHandlers) CreateAccount(c *gin.Context) {
	ctx := c.Request.Context()

	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Malformed account creation payload", "error", err, "request_id", getRequestID(c))
		SendBadRequest(c, MsgInvalidRequest)
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("Account creation validation failed", "error", err)
		SendValidationError(c, "Request validation failed", fieldErrorsFrom(err))
		return
	}

	acct, err := h.accountService.Create(ctx, entities.Currency(req.Currency), entities.AccountType(req.AccountType))
	if err != nil {
		h.logger.Error("Failed to create account", "error", err, "currency", req.Currency)
		RespondWithDomainError(c, err)
		return
	}

	h.logger.Info("Account created",
		"account_id", acct.ID.String(),
		"currency", acct.Currency,
		"account_type", acct.Type)

	SendCreated(c, acct)
}

// GetAccount handles GET /accounts/:id
// @Summary Get an account by id
// @Tags accounts
// @Produce json
// @Param id path string true "Account ID"
// @Success 200 {object} entities.Account
// @Failure 404 {object} entities.ErrorResponse
// @Router /api/v1/accounts/{id} [get]
func (h *AccountHandlers) GetAccount(c *gin.Context) {
	ctx := c.Request.Context()

	accountID, err := parseUUIDParam(c, "id")
	if err != nil {
		SendBadRequest(c, err.Error())
		return
	}

	acct, err := h.accountService.Get(ctx, accountID)
	if err != nil {
		RespondWithDomainError(c, err)
		return
	}

	SendSuccess(c, acct)
}

// GetBalance handles GET /accounts/:id/balance
// @Summary Get the derived balance of an account
// @Description Balance is the sum of credit entries minus debit entries; it is never stored.
// @Tags accounts
// @Produce json
// @Param id path string true "Account ID"
// @Success 200 {object} entities.BalanceResponse
// @Failure 404 {object} entities.ErrorResponse
// @Router /api/v1/accounts/{id}/balance [get]
func (h *AccountHandlers) GetBalance(c *gin.Context) {
	ctx := c.Request.Context()

	accountID, err := parseUUIDParam(c, "id")
	if err != nil {
		SendBadRequest(c, err.Error())
		return
	}

	balance, err := h.accountService.GetBalance(ctx, accountID)
	if err != nil {
		h.logger.Error("Failed to derive balance", "error", err, "account_id", accountID.String())
		RespondWithDomainError(c, err)
		return
	}

	SendSuccess(c, balance)
}

// GetAccountTransactions handles GET /accounts/:id/transactions
// @Summary List transactions touching an account
// @Tags accounts
// @Produce json
// @Param id path string true "Account ID"
// @Param pageSize query int false "Page size"
// @Param pageNumber query int false "Zero-based page number"
// @Success 200 {array} entities.Transaction
// @Failure 404 {object} entities.ErrorResponse
// @Router /api/v1/accounts/{id}/transactions [get]
func (h *AccountHandlers) GetAccountTransactions(c *gin.Context) {
	ctx := c.Request.Context()

	accountID, err := parseUUIDParam(c, "id")
	if err != nil {
		SendBadRequest(c, err.Error())
		return
	}

	pageSize := parseIntQuery(c, "pageSize", 0)
	pageNumber := parseIntQuery(c, "pageNumber", 0)

	transactions, err := h.reportingService.GetTransactionsForAccount(ctx, accountID, pageSize, pageNumber)
	if err != nil {
		RespondWithDomainError(c, err)
		return
	}

	SendSuccess(c, transactions)
}

// GetAccountEntries handles GET /accounts/:id/ledger-entries
// @Summary List ledger entries for an account, newest first
// @Tags accounts
// @Produce json
// @Param id path string true "Account ID"
// @Param pageSize query int false "Page size"
// @Param pageNumber query int false "Zero-based page number"
// @Success 200 {array} entities.LedgerEntry
// @Failure 404 {object} entities.ErrorResponse
// @Router /api/v1/accounts/{id}/ledger-entries [get]
func (h *AccountHandlers) GetAccountEntries(c *gin.Context) {
	ctx := c.Request.Context()

	accountID, err := parseUUIDParam(c, "id")
	if err != nil {
		SendBadRequest(c, err.Error())
		return
	}

	pageSize := parseIntQuery(c, "pageSize", 0)
	pageNumber := parseIntQuery(c, "pageNumber", 0)

	entries, err := h.reportingService.GetEntriesForAccount(ctx, accountID, pageSize, pageNumber)
	if err != nil {
		RespondWithDomainError(c, err)
		return
	}

	SendSuccess(c, entries)
}
