package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ledger-service/ledger_service/internal/domain/services/reporting"
	"github.com/ledger-service/ledger_service/pkg/logger"
)

// ReportHandlers handles ledger reporting
type ReportHandlers struct {
	reportingService *reporting.Service
	logger           *logger.Logger
}

// NewReportHandlers creates a new ReportHandlers instance
func NewReportHandlers(reportingService *reporting.Service, logger *logger.Logger) *ReportHandlers {
	return &ReportHandlers{
		reportingService: reportingService,
		logger:           logger,
	}
}

// GetTransactionHistory handles GET /reports/transactions/:id
// @Summary Get a transaction header with all its ledger entries
// @Tags reports
// @Produce json
// @Param id path string true "Transaction ID"
// @Success 200 {object} entities.TransactionHistory
// @Failure 404 {object} entities.ErrorResponse
// @Router /api/v1/reports/transactions/{id} [get]
func (h *ReportHandlers) GetTransactionHistory(c *gin.Context) {
	ctx := c.Request.Context()

	transactionID, err := parseUUIDParam(c, "id")
	if err != nil {
		SendBadRequest(c, err.Error())
		return
	}

	history, err := h.reportingService.GetTransactionHistory(ctx, transactionID)
	if err != nil {
		RespondWithDomainError(c, err)
		return
	}

	SendSuccess(c, history)
}

// GetAccountLedger handles GET /reports/accounts/:id/ledger
// @Summary Get one page of an account's ledger with running balances
// @Description Entries are ordered chronologically; each line carries the balance after that entry. Running balances are independent of the page size.
// @Tags reports
// @Produce json
// @Param id path string true "Account ID"
// @Param pageSize query int false "Page size"
// @Param pageNumber query int false "Zero-based page number"
// @Success 200 {object} entities.AccountLedgerReport
// @Failure 404 {object} entities.ErrorResponse
// @Router /api/v1/reports/accounts/{id}/ledger [get]
func (h *ReportHandlers) GetAccountLedger(c *gin.Context) {
	ctx := c.Request.Context()

	accountID, err := parseUUIDParam(c, "id")
	if err != nil {
		SendBadRequest(c, err.Error())
		return
	}

	pageSize := parseIntQuery(c, "pageSize", 0)
	pageNumber := parseIntQuery(c, "pageNumber", 0)

	report, err := h.reportingService.GetAccountLedger(ctx, accountID, pageSize, pageNumber)
	if err != nil {
		h.logger.Error("Failed to build account ledger",
			"error", err,
			"account_id", accountID.String(),
			"request_id", getRequestID(c))
		RespondWithDomainError(c, err)
		return
	}

	SendSuccess(c, report)
}

// GetAccountStatement handles GET /reports/accounts/:id/statement
// @Summary Get an account statement for a date range
// @Description Opening balance is the balance strictly before startDate; closing balance adds every entry inside the range.
// @Tags reports
// @Produce json
// @Param id path string true "Account ID"
// @Param startDate query string true "Range start, RFC 3339"
// @Param endDate query string true "Range end, RFC 3339"
// @Success 200 {object} entities.AccountStatement
// @Failure 400 {object} entities.ErrorResponse
// @Failure 404 {object} entities.ErrorResponse
// @Router /api/v1/reports/accounts/{id}/statement [get]
func (h *ReportHandlers) GetAccountStatement(c *gin.Context) {
	ctx := c.Request.Context()

	accountID, err := parseUUIDParam(c, "id")
	if err != nil {
		SendBadRequest(c, err.Error())
		return
	}

	from, err := parseTimeQuery(c, "startDate")
	if err != nil {
		SendBadRequest(c, err.Error())
		return
	}
	to, err := parseTimeQuery(c, "endDate")
	if err != nil {
		SendBadRequest(c, err.Error())
		return
	}

	statement, err := h.reportingService.GetAccountStatement(ctx, accountID, from, to)
	if err != nil {
		h.logger.Error("Failed to build account statement",
			"error", err,
			"account_id", accountID.String(),
			"request_id", getRequestID(c))
		RespondWithDomainError(c, err)
		return
	}

	SendSuccess(c, statement)
}
