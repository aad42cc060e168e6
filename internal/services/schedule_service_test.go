package services

import (
	"testing"
	"time"

	"github.com/fintlabs/lending-api/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSchedule_StandardLoan(t *testing.T) {
	svc := NewScheduleService()
	loanID := uuid.New()
	firstPayment := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	schedule, err := svc.GenerateSchedule(ScheduleParams{
		LoanID:           loanID,
		Amount:           decimal.NewFromInt(10000),
		InterestRate:     decimal.NewFromInt(12),
		TenorMonths:      12,
		FirstPaymentDate: firstPayment,
	})
	require.NoError(t, err)
	require.Len(t, schedule, 12)

	// Annuity payment for 10000 at 1% monthly over 12 months is 888.49
	first := schedule[0]
	assert.Equal(t, "100.00", first.InterestAmount.StringFixed(2))
	assert.Equal(t, "788.49", first.PrincipalAmount.StringFixed(2))

	totalPrincipal := decimal.Zero
	for i, entry := range schedule {
		assert.Equal(t, i+1, entry.InstallmentNumber)
		assert.Equal(t, loanID, entry.LoanID)
		assert.Equal(t, models.ScheduleStatusPending, entry.Status)
		assert.True(t, entry.DueDate.Equal(firstPayment.AddDate(0, i, 0)),
			"installment %d due date", i+1)
		totalPrincipal = totalPrincipal.Add(entry.PrincipalAmount)
	}

	// Principal portions reconcile to the disbursed amount to the cent
	assert.Equal(t, "10000.00", totalPrincipal.StringFixed(2))
}

func TestGenerateSchedule_ZeroInterest(t *testing.T) {
	svc := NewScheduleService()

	schedule, err := svc.GenerateSchedule(ScheduleParams{
		LoanID:           uuid.New(),
		Amount:           decimal.NewFromInt(1200),
		InterestRate:     decimal.Zero,
		TenorMonths:      12,
		FirstPaymentDate: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, schedule, 12)

	for _, entry := range schedule {
		assert.Equal(t, "100.00", entry.PrincipalAmount.StringFixed(2))
		assert.Equal(t, "0.00", entry.InterestAmount.StringFixed(2))
	}
}

func TestGenerateSchedule_SingleInstallment(t *testing.T) {
	svc := NewScheduleService()

	schedule, err := svc.GenerateSchedule(ScheduleParams{
		LoanID:           uuid.New(),
		Amount:           decimal.NewFromInt(5000),
		InterestRate:     decimal.NewFromInt(12),
		TenorMonths:      1,
		FirstPaymentDate: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, schedule, 1)

	// One installment repays the whole principal plus one month of interest
	assert.Equal(t, "5000.00", schedule[0].PrincipalAmount.StringFixed(2))
	assert.Equal(t, "50.00", schedule[0].InterestAmount.StringFixed(2))
}

func TestGenerateSchedule_RoundingDriftAbsorbedByLastInstallment(t *testing.T) {
	svc := NewScheduleService()

	// 999.99 over 7 months does not divide evenly
	schedule, err := svc.GenerateSchedule(ScheduleParams{
		LoanID:           uuid.New(),
		Amount:           decimal.RequireFromString("999.99"),
		InterestRate:     decimal.RequireFromString("11.5"),
		TenorMonths:      7,
		FirstPaymentDate: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, schedule, 7)

	totalPrincipal := decimal.Zero
	for _, entry := range schedule {
		totalPrincipal = totalPrincipal.Add(entry.PrincipalAmount)
	}
	assert.Equal(t, "999.99", totalPrincipal.StringFixed(2))
}

func TestGenerateSchedule_LargePrincipalStaysLevel(t *testing.T) {
	svc := NewScheduleService()

	// A principal far beyond everyday amounts keeps exact level payments
	// because the level payment is derived in decimal, not float64
	amount := decimal.RequireFromString("9876543210.12")
	schedule, err := svc.GenerateSchedule(ScheduleParams{
		LoanID:           uuid.New(),
		Amount:           amount,
		InterestRate:     decimal.RequireFromString("7.5"),
		TenorMonths:      24,
		FirstPaymentDate: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, schedule, 24)

	// First month of interest at 7.5%/12 on the full principal
	assert.Equal(t, "61728395.06", schedule[0].InterestAmount.StringFixed(2))

	levelPayment := schedule[0].PrincipalAmount.Add(schedule[0].InterestAmount)
	totalPrincipal := decimal.Zero
	for i, entry := range schedule {
		if i < len(schedule)-1 {
			payment := entry.PrincipalAmount.Add(entry.InterestAmount)
			assert.True(t, payment.Equal(levelPayment),
				"installment %d payment %s != %s", i+1, payment, levelPayment)
		}
		totalPrincipal = totalPrincipal.Add(entry.PrincipalAmount)
	}
	assert.Equal(t, "9876543210.12", totalPrincipal.StringFixed(2))
}

func TestGenerateSchedule_Validation(t *testing.T) {
	svc := NewScheduleService()
	firstPayment := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	_, err := svc.GenerateSchedule(ScheduleParams{
		LoanID:           uuid.New(),
		Amount:           decimal.NewFromInt(1000),
		InterestRate:     decimal.NewFromInt(10),
		TenorMonths:      0,
		FirstPaymentDate: firstPayment,
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.GenerateSchedule(ScheduleParams{
		LoanID:           uuid.New(),
		Amount:           decimal.Zero,
		InterestRate:     decimal.NewFromInt(10),
		TenorMonths:      12,
		FirstPaymentDate: firstPayment,
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.GenerateSchedule(ScheduleParams{
		LoanID:           uuid.New(),
		Amount:           decimal.NewFromInt(1000),
		InterestRate:     decimal.NewFromInt(-1),
		TenorMonths:      12,
		FirstPaymentDate: firstPayment,
	})
	assert.ErrorIs(t, err, ErrValidation)
}
