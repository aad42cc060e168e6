package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/fintlabs/lending-api/internal/repository"
	"github.com/fintlabs/lending-api/internal/services"
	"github.com/gin-gonic/gin"
)

// LoanHandler serves loan reads, audit lookups, and document exports
type LoanHandler struct {
	loanService   *services.LoanService
	auditService  *services.AuditService
	exportService *services.ExportService
	reportService *services.ReportService
}

// NewLoanHandler creates a new loan handler
func NewLoanHandler(
	loanService *services.LoanService,
	auditService *services.AuditService,
	exportService *services.ExportService,
	reportService *services.ReportService,
) *LoanHandler {
	return &LoanHandler{
		loanService:   loanService,
		auditService:  auditService,
		exportService: exportService,
		reportService: reportService,
	}
}

// Index returns a paginated list of loans
func (h *LoanHandler) Index(c *gin.Context) {
	query := repository.NewListQuery()
	query.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	query.PerPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	query.Search = c.Query("search")
	query.Filters["borrower_id"] = c.Query("borrower_id")
	query.Filters["status"] = c.Query("status")

	// Parse sort parameter (format: field-direction)
	if sort := c.Query("sort"); sort != "" {
		parts := strings.Split(sort, "-")
		query.SortBy = parts[0]
		if len(parts) > 1 {
			query.SortDir = parts[1]
		}
	}

	loans, total, err := h.loanService.ListLoans(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"loans": loans,
		"pagination": gin.H{
			"page":        query.Page,
			"per_page":    query.PerPage,
			"total":       total,
			"total_pages": (total + int64(query.PerPage) - 1) / int64(query.PerPage),
		},
	})
}

// Show returns a loan with its disbursement, schedule, and payments
func (h *LoanHandler) Show(c *gin.Context) {
	id, ok := parseUUIDParam(c, "loan_id")
	if !ok {
		return
	}

	loan, err := h.loanService.GetLoan(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"loan": loan})
}

// AuditTrail returns every audit entry referencing the loan
func (h *LoanHandler) AuditTrail(c *gin.Context) {
	id, ok := parseUUIDParam(c, "loan_id")
	if !ok {
		return
	}

	entries, err := h.auditService.GetByLoan(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"audit_logs": entries})
}

// ExportSchedule downloads the repayment schedule as CSV or XLSX
func (h *LoanHandler) ExportSchedule(c *gin.Context) {
	id, ok := parseUUIDParam(c, "loan_id")
	if !ok {
		return
	}

	format := c.DefaultQuery("format", "csv")

	var (
		data     []byte
		filename string
		mime     string
		err      error
	)
	switch format {
	case "csv":
		data, filename, err = h.exportService.ExportScheduleCSV(c.Request.Context(), id)
		mime = "text/csv"
	case "xlsx":
		data, filename, err = h.exportService.ExportScheduleXLSX(c.Request.Context(), id)
		mime = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be csv or xlsx"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, mime, data)
}

// Statement downloads the loan statement PDF
func (h *LoanHandler) Statement(c *gin.Context) {
	id, ok := parseUUIDParam(c, "loan_id")
	if !ok {
		return
	}

	data, filename, err := h.reportService.LoanStatementPDF(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/pdf", data)
}
