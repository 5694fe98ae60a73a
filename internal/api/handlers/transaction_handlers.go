package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ledger-service/ledger_service/internal/domain/services/reporting"
	"github.com/ledger-service/ledger_service/pkg/logger"
)

// TransactionHandlers handles transaction lookups
type TransactionHandlers struct {
	reportingService *reporting.Service
	logger           *logger.Logger
}

// NewTransactionHandlers creates a new TransactionHandlers instance
func NewTransactionHandlers(reportingService *reporting.Service, logger *logger.Logger) *TransactionHandlers {
	return &TransactionHandlers{
		reportingService: reportingService,
		logger:           logger,
	}
}

// GetTransactionByReference handles GET /transactions/reference/:ref
// @Summary Look up a transaction by client reference
// @Description Reference matching is case-insensitive.
// @Tags transactions
// @Produce json
// @Param ref path string true "Client reference"
// @Success 200 {object} entities.Transaction
// @Failure 404 {object} entities.ErrorResponse
// @Router /api/v1/transactions/reference/{ref} [get]
func (h *TransactionHandlers) GetTransactionByReference(c *gin.Context) {
	ctx := c.Request.Context()

	reference := c.Param("ref")
	if reference == "" {
		SendBadRequest(c, "missing reference parameter")
		return
	}

	transaction, err := h.reportingService.GetTransactionByReference(ctx, reference)
	if err != nil {
		RespondWithDomainError(c, err)
		return
	}

	SendSuccess(c, transaction)
}

// GetTransactionEntries handles GET /transactions/:id/ledger-entries
// @Summary List the ledger entries posted by a transaction
// @Tags transactions
// @Produce json
// @Param id path string true "Transaction ID"
// @Success 200 {array} entities.LedgerEntry
// @Failure 404 {object} entities.ErrorResponse
// @Router /api/v1/transactions/{id}/ledger-entries [get]
func (h *TransactionHandlers) GetTransactionEntries(c *gin.Context) {
	ctx := c.Request.Context()

	transactionID, err := parseUUIDParam(c, "id")
	if err != nil {
		SendBadRequest(c, err.Error())
		return
	}

	entries, err := h.reportingService.GetEntriesForTransaction(ctx, transactionID)
	if err != nil {
		RespondWithDomainError(c, err)
		return
	}

	SendSuccess(c, entries)
}
