package services

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Late fee policy constants. Two models coexist deliberately: the flat tier
// is applied when a repayment is recorded, while the percentage projection is
// only ever reported by the due-now calculator. Reconciling them is a product
// decision, not something this service guesses at.
var (
	lateFeeTierStandard = decimal.NewFromInt(25)
	lateFeeTierSevere   = decimal.NewFromInt(50)

	projectedFeeDailyRate = decimal.NewFromFloat(0.01) // 1% per day
	projectedFeeCapRate   = decimal.NewFromFloat(0.10) // capped at 10%
)

// GracePeriodDays is the lateness window during which no fee accrues
const GracePeriodDays = 3

// PaymentAllocation is the waterfall breakdown of a single payment
type PaymentAllocation struct {
	InterestPaid  decimal.Decimal
	LateFeePaid   decimal.Decimal
	PrincipalPaid decimal.Decimal
}

// CalculationService holds the pure repayment arithmetic: accrued interest,
// late fees, and the payment waterfall.
type CalculationService struct{}

// NewCalculationService creates a new calculation service
func NewCalculationService() *CalculationService {
	return &CalculationService{}
}

// DailyInterest computes simple interest for a principal over a number of
// days at an annual percentage rate on a 365-day basis, rounded to cents.
func (s *CalculationService) DailyInterest(principal, annualRate decimal.Decimal, days int) (decimal.Decimal, error) {
	if principal.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: principal cannot be negative", ErrValidation)
	}
	if days < 0 {
		return decimal.Zero, fmt.Errorf("%w: days cannot be negative", ErrValidation)
	}
	if days == 0 {
		return decimal.Zero, nil
	}

	dailyRate := annualRate.Div(decimal.NewFromInt(100)).Div(decimal.NewFromInt(365))
	return principal.Mul(dailyRate).Mul(decimal.NewFromInt(int64(days))).Round(2), nil
}

// LateFee returns the flat tiered fee applied at payment-recording time:
// within grace 0, under 30 days 25, 30 days or more 50.
func (s *CalculationService) LateFee(daysLate int) (decimal.Decimal, error) {
	if daysLate < 0 {
		return decimal.Zero, fmt.Errorf("%w: days late cannot be negative", ErrValidation)
	}

	switch {
	case daysLate <= GracePeriodDays:
		return decimal.Zero, nil
	case daysLate >= 30:
		return lateFeeTierSevere, nil
	default:
		return lateFeeTierStandard, nil
	}
}

// ProjectedLateFee returns the percentage-model projection used by the
// due-now calculator: 1% of the installment total per day overdue, capped at
// 10% of that total. This is a forecast, not the fee charged at payment time.
func (s *CalculationService) ProjectedLateFee(installmentTotal decimal.Decimal, daysOverdue int) decimal.Decimal {
	if daysOverdue <= 0 || installmentTotal.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}

	fee := installmentTotal.Mul(projectedFeeDailyRate).Mul(decimal.NewFromInt(int64(daysOverdue)))
	cap := installmentTotal.Mul(projectedFeeCapRate)
	if fee.GreaterThan(cap) {
		fee = cap
	}
	return fee.Round(2)
}

// AllocatePayment distributes a payment across interest, late fee, and
// principal, in that order. Any amount left after principal is fully covered
// is dropped; there is no overpayment credit.
func (s *CalculationService) AllocatePayment(paymentAmount, interestDue, lateFeeDue, principalRemaining decimal.Decimal) (*PaymentAllocation, error) {
	if paymentAmount.IsNegative() {
		return nil, fmt.Errorf("%w: payment amount cannot be negative", ErrValidation)
	}
	if interestDue.IsNegative() || lateFeeDue.IsNegative() || principalRemaining.IsNegative() {
		return nil, fmt.Errorf("%w: interest, late fee, and principal cannot be negative", ErrValidation)
	}

	remaining := paymentAmount
	allocation := &PaymentAllocation{
		InterestPaid:  decimal.Zero,
		LateFeePaid:   decimal.Zero,
		PrincipalPaid: decimal.Zero,
	}

	allocation.InterestPaid = decimal.Min(remaining, interestDue)
	remaining = remaining.Sub(allocation.InterestPaid)

	if remaining.IsPositive() {
		allocation.LateFeePaid = decimal.Min(remaining, lateFeeDue)
		remaining = remaining.Sub(allocation.LateFeePaid)
	}

	if remaining.IsPositive() {
		allocation.PrincipalPaid = decimal.Min(remaining, principalRemaining)
	}

	allocation.InterestPaid = allocation.InterestPaid.Round(2)
	allocation.LateFeePaid = allocation.LateFeePaid.Round(2)
	allocation.PrincipalPaid = allocation.PrincipalPaid.Round(2)

	return allocation, nil
}
