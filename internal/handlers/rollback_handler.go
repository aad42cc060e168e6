package handlers

import (
	"net/http"

	"github.com/fintlabs/lending-api/internal/services"
	"github.com/gin-gonic/gin"
)

// RollbackHandler serves the generic transaction reversal endpoints. A
// transaction id may identify either a disbursement or a payment.
type RollbackHandler struct {
	rollbackService *services.RollbackService
}

// NewRollbackHandler creates a new rollback handler
func NewRollbackHandler(rollbackService *services.RollbackService) *RollbackHandler {
	return &RollbackHandler{rollbackService: rollbackService}
}

// Create reverses a transaction and returns the rollback record
func (h *RollbackHandler) Create(c *gin.Context) {
	id, ok := parseUUIDParam(c, "transaction_id")
	if !ok {
		return
	}

	var req RollbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := h.rollbackService.RollbackTransaction(c.Request.Context(), id, req.Reason, req.PerformedBy)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"rollback": record})
}

// Eligibility reports whether a transaction can still be rolled back
func (h *RollbackHandler) Eligibility(c *gin.Context) {
	id, ok := parseUUIDParam(c, "transaction_id")
	if !ok {
		return
	}

	eligible, err := h.rollbackService.CanRollback(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"transaction_id": id,
		"can_rollback":   eligible,
	})
}

// AuditTrail returns the audit entries for a transaction, oldest first
func (h *RollbackHandler) AuditTrail(c *gin.Context) {
	id, ok := parseUUIDParam(c, "transaction_id")
	if !ok {
		return
	}

	entries, err := h.rollbackService.GetAuditTrail(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"audit_logs": entries})
}
