package handlers

import (
	"errors"
	"net/http"

	"github.com/fintlabs/lending-api/internal/services"
	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
)

// Handlers holds all HTTP handler instances
type Handlers struct {
	Health       *HealthHandler
	Loan         *LoanHandler
	Disbursement *DisbursementHandler
	Repayment    *RepaymentHandler
	Rollback     *RollbackHandler
}

// NewHandlers creates all handler instances
func NewHandlers(svcs *services.Services) *Handlers {
	return &Handlers{
		Health:       NewHealthHandler(),
		Loan:         NewLoanHandler(svcs.Loan, svcs.Audit, svcs.Export, svcs.Report),
		Disbursement: NewDisbursementHandler(svcs.Disbursement),
		Repayment:    NewRepaymentHandler(svcs.Repayment),
		Rollback:     NewRollbackHandler(svcs.Rollback),
	}
}

// respondError maps domain errors onto HTTP statuses. Unexpected errors go
// to Sentry and come back as an opaque 500.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidState),
		errors.Is(err, services.ErrInsufficientFunds):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		if hub := sentry.GetHubFromContext(c.Request.Context()); hub != nil {
			hub.CaptureException(err)
		} else {
			sentry.CaptureException(err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
