package handlers

import (
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/fintlabs/lending-api/internal/models"
	"github.com/fintlabs/lending-api/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

var minAmount = decimal.RequireFromString("0.01")

// parseUUIDParam reads a path parameter as a UUID, answering 400 itself when
// the value is malformed.
func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid %s", name)})
		return uuid.Nil, false
	}
	return id, true
}

// CreateDisbursementRequest is the payload for disbursing a loan
type CreateDisbursementRequest struct {
	LoanID           string          `json:"loan_id" binding:"required"`
	BorrowerID       string          `json:"borrower_id" binding:"required"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	DisbursementDate string          `json:"disbursement_date" binding:"required"`
	FirstPaymentDate string          `json:"first_payment_date" binding:"required"`
	TenorMonths      int             `json:"tenor_months" binding:"required"`
	InterestRate     decimal.Decimal `json:"interest_rate"`
}

// ToInput validates the request and converts it to a service input
func (r *CreateDisbursementRequest) ToInput() (services.CreateDisbursementInput, error) {
	var input services.CreateDisbursementInput

	loanID, err := uuid.Parse(r.LoanID)
	if err != nil {
		return input, fmt.Errorf("invalid loan_id")
	}
	borrowerID, err := uuid.Parse(r.BorrowerID)
	if err != nil {
		return input, fmt.Errorf("invalid borrower_id")
	}

	if r.Amount.LessThan(minAmount) {
		return input, fmt.Errorf("amount must be at least %s", minAmount)
	}

	currency := r.Currency
	if currency == "" {
		currency = "USD"
	}
	if !slices.Contains(models.SupportedCurrencies, currency) {
		return input, fmt.Errorf("unsupported currency %q", currency)
	}

	disbursementDate, err := time.Parse(dateLayout, r.DisbursementDate)
	if err != nil {
		return input, fmt.Errorf("disbursement_date must be YYYY-MM-DD")
	}
	firstPaymentDate, err := time.Parse(dateLayout, r.FirstPaymentDate)
	if err != nil {
		return input, fmt.Errorf("first_payment_date must be YYYY-MM-DD")
	}
	if firstPaymentDate.Before(disbursementDate) {
		return input, fmt.Errorf("first_payment_date cannot precede disbursement_date")
	}

	if r.TenorMonths < 1 {
		return input, fmt.Errorf("tenor_months must be at least 1")
	}
	if r.InterestRate.IsNegative() {
		return input, fmt.Errorf("interest_rate cannot be negative")
	}

	input = services.CreateDisbursementInput{
		LoanID:           loanID,
		BorrowerID:       borrowerID,
		Amount:           r.Amount,
		Currency:         currency,
		DisbursementDate: disbursementDate,
		FirstPaymentDate: firstPaymentDate,
		TenorMonths:      r.TenorMonths,
		InterestRate:     r.InterestRate,
	}
	return input, nil
}

// CreateRepaymentRequest is the payload for posting a repayment. The paid
// component fields and days_late are optional overrides.
type CreateRepaymentRequest struct {
	Amount        decimal.Decimal  `json:"amount"`
	PaymentDate   string           `json:"payment_date"`
	PrincipalPaid *decimal.Decimal `json:"principal_paid,omitempty"`
	InterestPaid  *decimal.Decimal `json:"interest_paid,omitempty"`
	LateFeePaid   *decimal.Decimal `json:"late_fee_paid,omitempty"`
	DaysLate      *int             `json:"days_late,omitempty"`
	PerformedBy   string           `json:"performed_by"`
}

// ToInput validates the request and converts it to a service input
func (r *CreateRepaymentRequest) ToInput(loanID uuid.UUID) (services.CreateRepaymentInput, error) {
	var input services.CreateRepaymentInput

	if r.Amount.LessThan(minAmount) {
		return input, fmt.Errorf("amount must be at least %s", minAmount)
	}

	paymentDate := time.Now()
	if r.PaymentDate != "" {
		var err error
		paymentDate, err = time.Parse(dateLayout, r.PaymentDate)
		if err != nil {
			return input, fmt.Errorf("payment_date must be YYYY-MM-DD")
		}
	}

	for name, v := range map[string]*decimal.Decimal{
		"principal_paid": r.PrincipalPaid,
		"interest_paid":  r.InterestPaid,
		"late_fee_paid":  r.LateFeePaid,
	} {
		if v != nil && v.IsNegative() {
			return input, fmt.Errorf("%s cannot be negative", name)
		}
	}
	if r.DaysLate != nil && *r.DaysLate < 0 {
		return input, fmt.Errorf("days_late cannot be negative")
	}

	input = services.CreateRepaymentInput{
		LoanID:        loanID,
		Amount:        r.Amount,
		PaymentDate:   paymentDate,
		PrincipalPaid: r.PrincipalPaid,
		InterestPaid:  r.InterestPaid,
		LateFeePaid:   r.LateFeePaid,
		DaysLate:      r.DaysLate,
		PerformedBy:   r.PerformedBy,
	}
	return input, nil
}

// RollbackRequest carries the reason a transaction is being reversed
type RollbackRequest struct {
	Reason      string `json:"reason"`
	PerformedBy string `json:"performed_by"`
}
