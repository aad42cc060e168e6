package services

import (
	"context"
	"testing"
	"time"

	"github.com/fintlabs/lending-api/internal/jobs"
	"github.com/fintlabs/lending-api/internal/models"
	"github.com/fintlabs/lending-api/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activeLoan(paymentDate time.Time) *models.Loan {
	return &models.Loan{
		ID:           uuid.New(),
		BorrowerID:   uuid.New(),
		Amount:       decimal.NewFromInt(10000),
		InterestRate: decimal.NewFromInt(12),
		TenorMonths:  12,
		Status:       models.LoanStatusActive,
		CreatedAt:    paymentDate.AddDate(0, 0, -30),
	}
}

func TestRecordRepayment_AllocatesAccruedInterestFirst(t *testing.T) {
	repos, loans, _, schedules, payments, _, audits := newMockRepos()
	svc := NewRepaymentService(&fakeUnitOfWork{repos: repos}, repos, NewCalculationService(), nil)

	paymentDate := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	loan := activeLoan(paymentDate)
	loans.mockFindByID = func(ctx context.Context, id uuid.UUID) (*models.Loan, error) {
		return loan, nil
	}

	// Next installment is not yet due, so no late fee applies
	entry := &models.RepaymentSchedule{
		ID:                uuid.New(),
		LoanID:            loan.ID,
		InstallmentNumber: 1,
		DueDate:           paymentDate.AddDate(0, 0, 14),
		PrincipalAmount:   decimal.RequireFromString("788.49"),
		InterestAmount:    decimal.NewFromInt(100),
		Status:            models.ScheduleStatusPending,
	}
	schedules.mockFindFirstUnpaid = func(ctx context.Context, loanID uuid.UUID) (*models.RepaymentSchedule, error) {
		return entry, nil
	}

	var created *models.Payment
	payments.mockCreate = func(ctx context.Context, p *models.Payment) error {
		created = p
		return nil
	}
	var audited *models.AuditLog
	audits.mockCreate = func(ctx context.Context, e *models.AuditLog) error {
		audited = e
		return nil
	}

	payment, err := svc.RecordRepayment(context.Background(), CreateRepaymentInput{
		LoanID:      loan.ID,
		Amount:      decimal.NewFromInt(500),
		PaymentDate: paymentDate,
	})
	require.NoError(t, err)
	require.NotNil(t, created)

	// 30 days of accrual on 10000 at 12%: 98.63 interest, remainder to principal
	assert.Equal(t, "98.63", payment.InterestPaid.StringFixed(2))
	assert.Equal(t, "0.00", payment.LateFeePaid.StringFixed(2))
	assert.Equal(t, "401.37", payment.PrincipalPaid.StringFixed(2))
	assert.Equal(t, 0, payment.DaysLate)
	assert.Equal(t, models.PaymentStatusPosted, payment.Status)

	// Partial coverage of the 888.49 installment
	assert.Equal(t, models.ScheduleStatusPartiallyPaid, entry.Status)
	assert.Nil(t, entry.PaidDate)

	require.NotNil(t, audited)
	assert.Equal(t, models.AuditRepaymentCreate, audited.Operation)
	assert.Equal(t, "98.63", audited.Metadata["accruedInterest"])
	assert.Equal(t, "10000.00", audited.Metadata["principalBefore"])
}

func TestRecordRepayment_SettlesInstallmentWhenCovered(t *testing.T) {
	repos, loans, _, schedules, _, _, _ := newMockRepos()
	svc := NewRepaymentService(&fakeUnitOfWork{repos: repos}, repos, NewCalculationService(), nil)

	paymentDate := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	loan := activeLoan(paymentDate)
	loans.mockFindByID = func(ctx context.Context, id uuid.UUID) (*models.Loan, error) {
		return loan, nil
	}

	entry := &models.RepaymentSchedule{
		ID:                uuid.New(),
		LoanID:            loan.ID,
		InstallmentNumber: 1,
		DueDate:           paymentDate.AddDate(0, 0, 1),
		PrincipalAmount:   decimal.RequireFromString("788.49"),
		InterestAmount:    decimal.NewFromInt(100),
		Status:            models.ScheduleStatusPending,
	}
	schedules.mockFindFirstUnpaid = func(ctx context.Context, loanID uuid.UUID) (*models.RepaymentSchedule, error) {
		return entry, nil
	}

	// 98.63 interest + 888.49 principal covers the installment in full
	_, err := svc.RecordRepayment(context.Background(), CreateRepaymentInput{
		LoanID:      loan.ID,
		Amount:      decimal.RequireFromString("987.12"),
		PaymentDate: paymentDate,
	})
	require.NoError(t, err)

	assert.Equal(t, models.ScheduleStatusPaid, entry.Status)
	require.NotNil(t, entry.PaidDate)
	assert.True(t, entry.PaidDate.Equal(paymentDate))
}

func TestRecordRepayment_RejectsBelowMinimum(t *testing.T) {
	repos, loans, _, schedules, payments, _, _ := newMockRepos()
	svc := NewRepaymentService(&fakeUnitOfWork{repos: repos}, repos, NewCalculationService(), nil)

	paymentDate := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	loan := activeLoan(paymentDate)
	loans.mockFindByID = func(ctx context.Context, id uuid.UUID) (*models.Loan, error) {
		return loan, nil
	}
	schedules.mockFindFirstUnpaid = func(ctx context.Context, loanID uuid.UUID) (*models.RepaymentSchedule, error) {
		return &models.RepaymentSchedule{
			LoanID:  loan.ID,
			DueDate: paymentDate.AddDate(0, 0, 14),
			Status:  models.ScheduleStatusPending,
		}, nil
	}

	createCalled := false
	payments.mockCreate = func(ctx context.Context, p *models.Payment) error {
		createCalled = true
		return nil
	}

	// 50 does not cover 98.63 of accrued interest
	_, err := svc.RecordRepayment(context.Background(), CreateRepaymentInput{
		LoanID:      loan.ID,
		Amount:      decimal.NewFromInt(50),
		PaymentDate: paymentDate,
	})
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.False(t, createCalled, "nothing should be written for a rejected payment")
}

func TestRecordRepayment_LateFeeFromSchedule(t *testing.T) {
	repos, loans, _, schedules, _, _, _ := newMockRepos()
	svc := NewRepaymentService(&fakeUnitOfWork{repos: repos}, repos, NewCalculationService(), nil)

	paymentDate := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	loan := activeLoan(paymentDate)
	loans.mockFindByID = func(ctx context.Context, id uuid.UUID) (*models.Loan, error) {
		return loan, nil
	}

	// Due 10 days ago: 10 raw days minus 3 grace days leaves 7 late days
	schedules.mockFindFirstUnpaid = func(ctx context.Context, loanID uuid.UUID) (*models.RepaymentSchedule, error) {
		return &models.RepaymentSchedule{
			LoanID:          loan.ID,
			DueDate:         paymentDate.AddDate(0, 0, -10),
			PrincipalAmount: decimal.RequireFromString("788.49"),
			InterestAmount:  decimal.NewFromInt(100),
			Status:          models.ScheduleStatusPending,
		}, nil
	}

	payment, err := svc.RecordRepayment(context.Background(), CreateRepaymentInput{
		LoanID:      loan.ID,
		Amount:      decimal.NewFromInt(500),
		PaymentDate: paymentDate,
	})
	require.NoError(t, err)

	assert.Equal(t, 7, payment.DaysLate)
	assert.Equal(t, "25.00", payment.LateFeePaid.StringFixed(2))
}

func TestRecordRepayment_RejectsOverridesExceedingAmount(t *testing.T) {
	repos, loans, _, schedules, payments, _, _ := newMockRepos()
	svc := NewRepaymentService(&fakeUnitOfWork{repos: repos}, repos, NewCalculationService(), nil)

	paymentDate := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	loan := activeLoan(paymentDate)
	loans.mockFindByID = func(ctx context.Context, id uuid.UUID) (*models.Loan, error) {
		return loan, nil
	}
	schedules.mockFindFirstUnpaid = func(ctx context.Context, loanID uuid.UUID) (*models.RepaymentSchedule, error) {
		return &models.RepaymentSchedule{
			LoanID:  loan.ID,
			DueDate: paymentDate.AddDate(0, 0, 14),
			Status:  models.ScheduleStatusPending,
		}, nil
	}

	createCalled := false
	payments.mockCreate = func(ctx context.Context, p *models.Payment) error {
		createCalled = true
		return nil
	}

	// A caller-supplied breakdown may not claim more than the payment carries
	interestOverride := decimal.NewFromInt(600)
	_, err := svc.RecordRepayment(context.Background(), CreateRepaymentInput{
		LoanID:       loan.ID,
		Amount:       decimal.NewFromInt(500),
		PaymentDate:  paymentDate,
		InterestPaid: &interestOverride,
	})
	assert.ErrorIs(t, err, ErrValidation)
	assert.False(t, createCalled, "nothing should be written for a rejected breakdown")
}

func TestRecordRepayment_Validation(t *testing.T) {
	repos, loans, _, _, _, _, _ := newMockRepos()
	svc := NewRepaymentService(&fakeUnitOfWork{repos: repos}, repos, NewCalculationService(), nil)

	_, err := svc.RecordRepayment(context.Background(), CreateRepaymentInput{
		LoanID: uuid.New(),
		Amount: decimal.Zero,
	})
	assert.ErrorIs(t, err, ErrValidation)

	loans.mockFindByID = func(ctx context.Context, id uuid.UUID) (*models.Loan, error) {
		return &models.Loan{ID: id, Status: models.LoanStatusApproved}, nil
	}
	_, err = svc.RecordRepayment(context.Background(), CreateRepaymentInput{
		LoanID: uuid.New(),
		Amount: decimal.NewFromInt(100),
	})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCalculateDueNow(t *testing.T) {
	repos, loans, _, schedules, _, _, _ := newMockRepos()
	svc := NewRepaymentService(&fakeUnitOfWork{repos: repos}, repos, NewCalculationService(), nil)

	loanID := uuid.New()
	loans.mockFindByID = func(ctx context.Context, id uuid.UUID) (*models.Loan, error) {
		return &models.Loan{ID: loanID, Status: models.LoanStatusActive}, nil
	}

	dueDate := time.Now().Add(-10 * 24 * time.Hour)
	schedules.mockFindDueBefore = func(ctx context.Context, id uuid.UUID, asOf time.Time) ([]models.RepaymentSchedule, error) {
		return []models.RepaymentSchedule{
			{
				LoanID:            loanID,
				InstallmentNumber: 1,
				DueDate:           dueDate,
				PrincipalAmount:   decimal.NewFromInt(90),
				InterestAmount:    decimal.NewFromInt(10),
				Status:            models.ScheduleStatusPending,
			},
			{
				LoanID:            loanID,
				InstallmentNumber: 2,
				DueDate:           dueDate,
				PrincipalAmount:   decimal.NewFromInt(90),
				InterestAmount:    decimal.NewFromInt(10),
				Status:            models.ScheduleStatusPending,
			},
		}, nil
	}

	result, err := svc.CalculateDueNow(context.Background(), loanID)
	require.NoError(t, err)

	assert.Equal(t, 2, result.OverdueCount)
	assert.Equal(t, "180.00", result.PrincipalDue.StringFixed(2))
	assert.Equal(t, "20.00", result.InterestDue.StringFixed(2))
	assert.Equal(t, "200.00", result.TotalDue.StringFixed(2))
	assert.Equal(t, "0.00", result.FeesAlreadyPaid.StringFixed(2))
	require.Len(t, result.Installments, 2)
	assert.Equal(t, 10, result.Installments[0].DaysOverdue)

	// 1% per day for 10 days hits the 10% cap exactly
	assert.Equal(t, "10.00", result.Installments[0].ProjectedLateFee.StringFixed(2))
	assert.Equal(t, "20.00", result.TotalProjectedFee.StringFixed(2))
	assert.Equal(t, "220.00", result.Outstanding.StringFixed(2))
	assert.Nil(t, result.NextInstallment)
}

func TestCalculateDueNow_NetsPaymentsAgainstDue(t *testing.T) {
	repos, loans, _, schedules, payments, _, _ := newMockRepos()
	svc := NewRepaymentService(&fakeUnitOfWork{repos: repos}, repos, NewCalculationService(), nil)

	loanID := uuid.New()
	loans.mockFindByID = func(ctx context.Context, id uuid.UUID) (*models.Loan, error) {
		return &models.Loan{ID: loanID, Status: models.LoanStatusActive}, nil
	}

	dueDate := time.Now().Add(-10 * 24 * time.Hour)
	schedules.mockFindDueBefore = func(ctx context.Context, id uuid.UUID, asOf time.Time) ([]models.RepaymentSchedule, error) {
		return []models.RepaymentSchedule{
			{
				LoanID:            loanID,
				InstallmentNumber: 1,
				DueDate:           dueDate,
				PrincipalAmount:   decimal.NewFromInt(90),
				InterestAmount:    decimal.NewFromInt(10),
				Status:            models.ScheduleStatusPartiallyPaid,
			},
		}, nil
	}
	payments.mockSumComponentsByLoan = func(ctx context.Context, id uuid.UUID) (*repository.PaymentTotals, error) {
		return &repository.PaymentTotals{
			PrincipalPaid: decimal.NewFromInt(50),
			InterestPaid:  decimal.NewFromInt(10),
			LateFeePaid:   decimal.NewFromInt(25),
		}, nil
	}

	result, err := svc.CalculateDueNow(context.Background(), loanID)
	require.NoError(t, err)

	// 90 principal less 50 paid; interest fully covered; late fees paid are
	// reported on their own and never reduce the due amounts
	assert.Equal(t, "40.00", result.PrincipalDue.StringFixed(2))
	assert.Equal(t, "0.00", result.InterestDue.StringFixed(2))
	assert.Equal(t, "40.00", result.TotalDue.StringFixed(2))
	assert.Equal(t, "25.00", result.FeesAlreadyPaid.StringFixed(2))
	assert.Equal(t, "10.00", result.TotalProjectedFee.StringFixed(2))
	assert.Equal(t, "50.00", result.Outstanding.StringFixed(2))
}

func TestCalculateDueNow_WritesAuditEntry(t *testing.T) {
	repos, loans, _, _, _, _, audits := newMockRepos()
	worker := jobs.NewWorker(1)
	defer worker.Shutdown()
	svc := NewRepaymentService(&fakeUnitOfWork{repos: repos}, repos, NewCalculationService(), worker)

	loanID := uuid.New()
	loans.mockFindByID = func(ctx context.Context, id uuid.UUID) (*models.Loan, error) {
		return &models.Loan{ID: loanID, Status: models.LoanStatusActive}, nil
	}

	audited := make(chan *models.AuditLog, 1)
	audits.mockCreate = func(ctx context.Context, e *models.AuditLog) error {
		audited <- e
		return nil
	}

	_, err := svc.CalculateDueNow(context.Background(), loanID)
	require.NoError(t, err)

	select {
	case entry := <-audited:
		assert.Equal(t, models.AuditRepaymentCalculation, entry.Operation)
		assert.Equal(t, loanID, entry.TransactionID)
		assert.Equal(t, loanID.String(), entry.Metadata["loanId"])
		assert.Equal(t, "0.00", entry.Metadata["totalDue"])
	case <-time.After(2 * time.Second):
		t.Fatal("due-now read was not audited")
	}
}

func TestCheckOverdueInstallments(t *testing.T) {
	repos, _, _, schedules, _, _, _ := newMockRepos()
	svc := NewRepaymentService(&fakeUnitOfWork{repos: repos}, repos, NewCalculationService(), nil)

	schedules.mockFindOverdue = func(ctx context.Context, asOf time.Time) ([]models.RepaymentSchedule, error) {
		return []models.RepaymentSchedule{
			{LoanID: uuid.New(), InstallmentNumber: 1, Status: models.ScheduleStatusPending},
		}, nil
	}

	assert.NoError(t, svc.CheckOverdueInstallments(context.Background()))
}
