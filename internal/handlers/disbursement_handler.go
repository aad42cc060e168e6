package handlers

import (
	"net/http"

	"github.com/fintlabs/lending-api/internal/services"
	"github.com/gin-gonic/gin"
)

// DisbursementHandler serves the disbursement lifecycle endpoints
type DisbursementHandler struct {
	disbursementService *services.DisbursementService
}

// NewDisbursementHandler creates a new disbursement handler
func NewDisbursementHandler(disbursementService *services.DisbursementService) *DisbursementHandler {
	return &DisbursementHandler{disbursementService: disbursementService}
}

// Create disburses an approved loan and generates its repayment schedule
func (h *DisbursementHandler) Create(c *gin.Context) {
	var req CreateDisbursementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input, err := req.ToInput()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	disbursement, err := h.disbursementService.CreateDisbursement(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"disbursement": disbursement})
}

// Show returns a disbursement with its loan joined
func (h *DisbursementHandler) Show(c *gin.Context) {
	id, ok := parseUUIDParam(c, "disbursement_id")
	if !ok {
		return
	}

	disbursement, err := h.disbursementService.GetDisbursement(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"disbursement": disbursement})
}

// Rollback reverses a completed disbursement
func (h *DisbursementHandler) Rollback(c *gin.Context) {
	id, ok := parseUUIDParam(c, "disbursement_id")
	if !ok {
		return
	}

	var req RollbackRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	disbursement, err := h.disbursementService.RollbackDisbursement(c.Request.Context(), id, req.Reason, req.PerformedBy)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"disbursement": disbursement})
}

// AuditTrail returns the audit entries recorded for a disbursement
func (h *DisbursementHandler) AuditTrail(c *gin.Context) {
	id, ok := parseUUIDParam(c, "disbursement_id")
	if !ok {
		return
	}

	entries, err := h.disbursementService.GetAuditTrail(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"audit_logs": entries})
}
