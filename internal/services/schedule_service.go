package services

import (
	"fmt"
	"math"
	"time"

	"github.com/fintlabs/lending-api/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ScheduleService generates amortization schedules. It is a pure calculator:
// no I/O, no clock reads.
type ScheduleService struct{}

// NewScheduleService creates a new schedule service
func NewScheduleService() *ScheduleService {
	return &ScheduleService{}
}

// ScheduleParams are the inputs for schedule generation
type ScheduleParams struct {
	LoanID           uuid.UUID
	Amount           decimal.Decimal
	InterestRate     decimal.Decimal // annual, percent
	TenorMonths      int
	FirstPaymentDate time.Time
}

// GenerateSchedule produces one installment per tenor month using the
// standard annuity formula. The last installment absorbs any rounding drift
// so emitted principal portions always sum to the disbursed amount exactly.
func (s *ScheduleService) GenerateSchedule(params ScheduleParams) ([]models.RepaymentSchedule, error) {
	if params.TenorMonths < 1 {
		return nil, fmt.Errorf("%w: tenor must be at least 1 month", ErrValidation)
	}
	if params.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if params.InterestRate.IsNegative() {
		return nil, fmt.Errorf("%w: interest rate cannot be negative", ErrValidation)
	}

	tenor := params.TenorMonths
	monthlyRate := params.InterestRate.Div(decimal.NewFromInt(12)).Div(decimal.NewFromInt(100))

	var monthlyPayment decimal.Decimal
	if monthlyRate.IsZero() {
		monthlyPayment = params.Amount.Div(decimal.NewFromInt(int64(tenor))).Round(2)
	} else {
		// P * m / (1 - (1+m)^-n); only the (1+m)^n power term goes through
		// float64, the monetary arithmetic stays decimal.
		growth := math.Pow(1+monthlyRate.InexactFloat64(), float64(tenor))
		one := decimal.NewFromInt(1)
		factor := one.Sub(one.Div(decimal.NewFromFloat(growth)))
		monthlyPayment = params.Amount.Mul(monthlyRate).Div(factor).Round(2)
	}

	schedule := make([]models.RepaymentSchedule, 0, tenor)
	remaining := params.Amount

	for i := 1; i <= tenor; i++ {
		var interest decimal.Decimal
		if monthlyRate.IsZero() {
			interest = decimal.Zero.Round(2)
		} else {
			interest = remaining.Mul(monthlyRate).Round(2)
		}

		principal := monthlyPayment.Sub(interest)
		if i == tenor {
			principal = remaining
		}

		remaining = remaining.Sub(principal)
		if remaining.IsNegative() {
			remaining = decimal.Zero
		}

		schedule = append(schedule, models.RepaymentSchedule{
			LoanID:            params.LoanID,
			InstallmentNumber: i,
			DueDate:           params.FirstPaymentDate.AddDate(0, i-1, 0),
			PrincipalAmount:   principal.Round(2),
			InterestAmount:    interest,
			Status:            models.ScheduleStatusPending,
		})
	}

	return schedule, nil
}
