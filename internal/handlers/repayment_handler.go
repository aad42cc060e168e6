package handlers

import (
	"net/http"

	"github.com/fintlabs/lending-api/internal/services"
	"github.com/gin-gonic/gin"
)

// RepaymentHandler serves repayment posting and the due-now calculator
type RepaymentHandler struct {
	repaymentService *services.RepaymentService
}

// NewRepaymentHandler creates a new repayment handler
func NewRepaymentHandler(repaymentService *services.RepaymentService) *RepaymentHandler {
	return &RepaymentHandler{repaymentService: repaymentService}
}

// Create posts a payment against a loan
func (h *RepaymentHandler) Create(c *gin.Context) {
	loanID, ok := parseUUIDParam(c, "loan_id")
	if !ok {
		return
	}

	var req CreateRepaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input, err := req.ToInput(loanID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payment, err := h.repaymentService.RecordRepayment(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"payment": payment})
}

// History returns all payments for a loan, most recent first
func (h *RepaymentHandler) History(c *gin.Context) {
	loanID, ok := parseUUIDParam(c, "loan_id")
	if !ok {
		return
	}

	payments, err := h.repaymentService.GetPaymentHistory(c.Request.Context(), loanID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": payments})
}

// Schedule returns the loan's full repayment schedule
func (h *RepaymentHandler) Schedule(c *gin.Context) {
	loanID, ok := parseUUIDParam(c, "loan_id")
	if !ok {
		return
	}

	entries, err := h.repaymentService.GetRepaymentSchedule(c.Request.Context(), loanID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedule": entries})
}

// DueNow reports what is currently owed on a loan
func (h *RepaymentHandler) DueNow(c *gin.Context) {
	loanID, ok := parseUUIDParam(c, "loan_id")
	if !ok {
		return
	}

	result, err := h.repaymentService.CalculateDueNow(c.Request.Context(), loanID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
