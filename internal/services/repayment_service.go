package services

import (
	"context"
	"fmt"
	"time"

	"github.com/fintlabs/lending-api/internal/jobs"
	"github.com/fintlabs/lending-api/internal/models"
	"github.com/fintlabs/lending-api/internal/repository"
	"github.com/fintlabs/lending-api/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RepaymentService records borrower payments and answers "what is due now"
// questions. Interest accrues daily on the outstanding principal between
// payments, so the order of operations here matters: accrual first, then the
// minimum-payment gate, then the waterfall.
type RepaymentService struct {
	uow    repository.UnitOfWork
	repos  *repository.Repositories
	calc   *CalculationService
	worker *jobs.Worker
}

// NewRepaymentService creates a new repayment service
func NewRepaymentService(
	uow repository.UnitOfWork,
	repos *repository.Repositories,
	calc *CalculationService,
	worker *jobs.Worker,
) *RepaymentService {
	return &RepaymentService{
		uow:    uow,
		repos:  repos,
		calc:   calc,
		worker: worker,
	}
}

// CreateRepaymentInput carries a validated repayment request. The paid
// component fields and DaysLate are optional overrides; when nil the service
// derives them from the loan's state.
type CreateRepaymentInput struct {
	LoanID        uuid.UUID
	Amount        decimal.Decimal
	PaymentDate   time.Time
	PrincipalPaid *decimal.Decimal
	InterestPaid  *decimal.Decimal
	LateFeePaid   *decimal.Decimal
	DaysLate      *int
	PerformedBy   string
}

// DueInstallment is one overdue or due installment with its projected charge
type DueInstallment struct {
	Schedule         models.RepaymentSchedule `json:"schedule"`
	DaysOverdue      int                      `json:"days_overdue"`
	ProjectedLateFee decimal.Decimal          `json:"projected_late_fee"`
	TotalWithFee     decimal.Decimal          `json:"total_with_fee"`
}

// DueNowResult summarizes what is owed on a loan net of payments already
// posted. PrincipalDue and InterestDue are each floored at zero before
// TotalDue is formed, so overpayment of one component never offsets the
// other. Late fees paid so far are reported separately and never reduce
// the due amounts.
type DueNowResult struct {
	LoanID            uuid.UUID                 `json:"loan_id"`
	AsOf              time.Time                 `json:"as_of"`
	OverdueCount      int                       `json:"overdue_count"`
	PrincipalDue      decimal.Decimal           `json:"principal_due"`
	InterestDue       decimal.Decimal           `json:"interest_due"`
	TotalDue          decimal.Decimal           `json:"total_due"`
	TotalProjectedFee decimal.Decimal           `json:"total_projected_fee"`
	FeesAlreadyPaid   decimal.Decimal           `json:"fees_already_paid"`
	Outstanding       decimal.Decimal           `json:"outstanding"`
	Installments      []DueInstallment          `json:"installments"`
	NextInstallment   *models.RepaymentSchedule `json:"next_installment,omitempty"`
}

// RecordRepayment posts a payment against an active loan. Accrued interest
// and the late fee must be covered in full or the payment is rejected before
// anything is written. The write, the schedule status flip, and the audit
// entry commit together.
func (s *RepaymentService) RecordRepayment(ctx context.Context, input CreateRepaymentInput) (*models.Payment, error) {
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: payment amount must be positive", ErrValidation)
	}
	if input.PaymentDate.IsZero() {
		input.PaymentDate = time.Now()
	}

	loan, err := s.repos.Loan.FindByID(ctx, input.LoanID)
	if err != nil {
		if translateDBError(err) == ErrNotFound {
			return nil, fmt.Errorf("%w: loan %s", ErrNotFound, input.LoanID)
		}
		return nil, fmt.Errorf("failed to load loan %s: %w", input.LoanID, err)
	}
	if loan.Status != models.LoanStatusActive {
		return nil, fmt.Errorf("%w: repayments require an active loan (loan is %s)", ErrInvalidState, loan.Status)
	}

	principalRemaining, err := s.principalRemaining(ctx, loan)
	if err != nil {
		return nil, err
	}

	days, err := s.elapsedAccrualDays(ctx, loan, input.PaymentDate)
	if err != nil {
		return nil, err
	}
	accrued, err := s.calc.DailyInterest(principalRemaining, loan.InterestRate, days)
	if err != nil {
		return nil, err
	}

	daysLate, err := s.resolveDaysLate(ctx, input)
	if err != nil {
		return nil, err
	}

	var lateFee decimal.Decimal
	if input.LateFeePaid != nil {
		lateFee = *input.LateFeePaid
	} else {
		lateFee, err = s.calc.LateFee(daysLate)
		if err != nil {
			return nil, err
		}
	}

	minimum := accrued.Add(lateFee)
	if input.Amount.LessThan(minimum) {
		return nil, fmt.Errorf("%w: payment %s does not cover accrued interest plus late fee %s",
			ErrInvalidState, input.Amount.StringFixed(2), minimum.StringFixed(2))
	}

	allocation, err := s.calc.AllocatePayment(input.Amount, accrued, lateFee, principalRemaining)
	if err != nil {
		return nil, err
	}
	if input.InterestPaid != nil {
		allocation.InterestPaid = input.InterestPaid.Round(2)
	}
	if input.PrincipalPaid != nil {
		allocation.PrincipalPaid = decimal.Min(principalRemaining, *input.PrincipalPaid).Round(2)
	}

	componentSum := allocation.InterestPaid.Add(allocation.LateFeePaid).Add(allocation.PrincipalPaid)
	if componentSum.GreaterThan(input.Amount) {
		return nil, fmt.Errorf("%w: paid components %s exceed payment amount %s",
			ErrValidation, componentSum.StringFixed(2), input.Amount.StringFixed(2))
	}

	payment := &models.Payment{
		LoanID:        loan.ID,
		Amount:        input.Amount,
		PaymentDate:   input.PaymentDate,
		PrincipalPaid: allocation.PrincipalPaid,
		InterestPaid:  allocation.InterestPaid,
		LateFeePaid:   allocation.LateFeePaid,
		DaysLate:      daysLate,
		Status:        models.PaymentStatusPosted,
	}

	performer := input.PerformedBy
	if performer == "" {
		performer = systemActor
	}

	err = s.uow.WithinTx(ctx, func(r *repository.Repositories) error {
		if err := r.Payment.Create(ctx, payment); err != nil {
			return translateDBError(err)
		}

		if err := s.settleInstallment(ctx, r, loan.ID, allocation, input.PaymentDate); err != nil {
			return err
		}

		return translateDBError(r.Audit.Create(ctx, &models.AuditLog{
			TransactionID: payment.ID,
			Operation:     models.AuditRepaymentCreate,
			UserID:        performer,
			Metadata: models.Metadata{
				"loanId":          loan.ID.String(),
				"amount":          input.Amount.StringFixed(2),
				"accruedInterest": accrued.StringFixed(2),
				"daysLate":        daysLate,
				"principalBefore": principalRemaining.StringFixed(2),
			},
		}))
	})
	if err != nil {
		logger.Error("Repayment failed", "loan_id", loan.ID, "error", err)
		if IsDomainError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to record repayment for loan %s: %w", loan.ID, err)
	}

	return payment, nil
}

// CalculateDueNow reports what is owed on a loan right now: every installment
// at or past its due date with its projected late fee, the principal and
// interest still due after subtracting payments already posted, and the next
// upcoming installment. Read-only; the audit entry it leaves behind is
// written asynchronously.
func (s *RepaymentService) CalculateDueNow(ctx context.Context, loanID uuid.UUID) (*DueNowResult, error) {
	loan, err := s.repos.Loan.FindByID(ctx, loanID)
	if err != nil {
		if translateDBError(err) == ErrNotFound {
			return nil, fmt.Errorf("%w: loan %s", ErrNotFound, loanID)
		}
		return nil, err
	}

	now := time.Now()
	dueEntries, err := s.repos.Schedule.FindDueBefore(ctx, loan.ID, now)
	if err != nil {
		return nil, translateDBError(err)
	}

	totals, err := s.repos.Payment.SumComponentsByLoan(ctx, loan.ID)
	if err != nil {
		return nil, translateDBError(err)
	}

	result := &DueNowResult{
		LoanID:            loan.ID,
		AsOf:              now,
		OverdueCount:      len(dueEntries),
		TotalProjectedFee: decimal.Zero,
		FeesAlreadyPaid:   totals.LateFeePaid,
		Installments:      make([]DueInstallment, 0, len(dueEntries)),
	}

	duePrincipal := decimal.Zero
	dueInterest := decimal.Zero
	for _, entry := range dueEntries {
		daysOverdue := entry.DaysOverdue(now)
		fee := s.calc.ProjectedLateFee(entry.TotalDue(), daysOverdue)
		duePrincipal = duePrincipal.Add(entry.PrincipalAmount)
		dueInterest = dueInterest.Add(entry.InterestAmount)
		result.TotalProjectedFee = result.TotalProjectedFee.Add(fee)
		result.Installments = append(result.Installments, DueInstallment{
			Schedule:         entry,
			DaysOverdue:      daysOverdue,
			ProjectedLateFee: fee,
			TotalWithFee:     entry.TotalDue().Add(fee),
		})
	}

	result.PrincipalDue = decimal.Max(duePrincipal.Sub(totals.PrincipalPaid), decimal.Zero)
	result.InterestDue = decimal.Max(dueInterest.Sub(totals.InterestPaid), decimal.Zero)
	result.TotalDue = result.PrincipalDue.Add(result.InterestDue)
	result.Outstanding = result.TotalDue.Add(result.TotalProjectedFee)

	next, err := s.repos.Schedule.FindNextUpcoming(ctx, loan.ID, now)
	if err != nil && translateDBError(err) != ErrNotFound {
		return nil, translateDBError(err)
	}
	result.NextInstallment = next

	s.auditCalculation(loan.ID, result)

	return result, nil
}

// GetPaymentHistory returns all payments for a loan, most recent first
func (s *RepaymentService) GetPaymentHistory(ctx context.Context, loanID uuid.UUID) ([]models.Payment, error) {
	if _, err := s.repos.Loan.FindByID(ctx, loanID); err != nil {
		if translateDBError(err) == ErrNotFound {
			return nil, fmt.Errorf("%w: loan %s", ErrNotFound, loanID)
		}
		return nil, err
	}
	payments, err := s.repos.Payment.FindByLoan(ctx, loanID)
	return payments, translateDBError(err)
}

// GetRepaymentSchedule returns a loan's full schedule in installment order
func (s *RepaymentService) GetRepaymentSchedule(ctx context.Context, loanID uuid.UUID) ([]models.RepaymentSchedule, error) {
	if _, err := s.repos.Loan.FindByID(ctx, loanID); err != nil {
		if translateDBError(err) == ErrNotFound {
			return nil, fmt.Errorf("%w: loan %s", ErrNotFound, loanID)
		}
		return nil, err
	}
	entries, err := s.repos.Schedule.FindByLoan(ctx, loanID)
	return entries, translateDBError(err)
}

// CheckOverdueInstallments scans every loan for unpaid installments past due
// and logs what it finds. Runs on the background scheduler.
func (s *RepaymentService) CheckOverdueInstallments(ctx context.Context) error {
	now := time.Now()
	entries, err := s.repos.Schedule.FindOverdue(ctx, now)
	if err != nil {
		return translateDBError(err)
	}
	if len(entries) == 0 {
		logger.Debug("Overdue scan found nothing past due")
		return nil
	}

	byLoan := make(map[uuid.UUID]int)
	for _, entry := range entries {
		byLoan[entry.LoanID]++
	}
	for loanID, count := range byLoan {
		logger.Warn("Loan has overdue installments",
			"loan_id", loanID, "overdue_count", count)
	}
	logger.Info("Overdue scan complete",
		"total_overdue", len(entries), "loans_affected", len(byLoan))
	return nil
}

// principalRemaining is the disbursed amount minus principal repaid so far,
// floored at zero. Compensating payments net out through the signed sums.
func (s *RepaymentService) principalRemaining(ctx context.Context, loan *models.Loan) (decimal.Decimal, error) {
	totals, err := s.repos.Payment.SumComponentsByLoan(ctx, loan.ID)
	if err != nil {
		return decimal.Zero, translateDBError(err)
	}
	remaining := loan.Amount.Sub(totals.PrincipalPaid)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	return remaining, nil
}

// elapsedAccrualDays counts whole days between the payment date and the
// later of the last posted payment and loan creation, never less than one.
func (s *RepaymentService) elapsedAccrualDays(ctx context.Context, loan *models.Loan, paymentDate time.Time) (int, error) {
	anchor := loan.CreatedAt

	last, err := s.repos.Payment.FindLatestByLoan(ctx, loan.ID)
	if err != nil && translateDBError(err) != ErrNotFound {
		return 0, translateDBError(err)
	}
	if last != nil && last.PaymentDate.After(anchor) {
		anchor = last.PaymentDate
	}

	days := int(paymentDate.Sub(anchor).Hours() / 24)
	if days < 1 {
		days = 1
	}
	return days, nil
}

// resolveDaysLate uses the supplied value when present, otherwise derives
// lateness from the earliest unpaid installment minus the grace period.
func (s *RepaymentService) resolveDaysLate(ctx context.Context, input CreateRepaymentInput) (int, error) {
	if input.DaysLate != nil {
		if *input.DaysLate < 0 {
			return 0, fmt.Errorf("%w: days late cannot be negative", ErrValidation)
		}
		return *input.DaysLate, nil
	}

	entry, err := s.repos.Schedule.FindFirstUnpaid(ctx, input.LoanID)
	if err != nil {
		if translateDBError(err) == ErrNotFound {
			return 0, nil
		}
		return 0, translateDBError(err)
	}

	late := entry.DaysOverdue(input.PaymentDate) - GracePeriodDays
	if late < 0 {
		late = 0
	}
	return late, nil
}

// settleInstallment flips the earliest unpaid schedule entry after a payment:
// fully covered becomes PAID with a paid date, anything less becomes
// PARTIALLY_PAID. A loan with no unpaid entries left is a no-op.
func (s *RepaymentService) settleInstallment(ctx context.Context, r *repository.Repositories, loanID uuid.UUID, allocation *PaymentAllocation, paidDate time.Time) error {
	entry, err := r.Schedule.FindFirstUnpaid(ctx, loanID)
	if err != nil {
		if translateDBError(err) == ErrNotFound {
			return nil
		}
		return translateDBError(err)
	}

	applied := allocation.PrincipalPaid.Add(allocation.InterestPaid)
	if entry.TotalDue().Sub(applied).LessThanOrEqual(decimal.Zero) {
		entry.Status = models.ScheduleStatusPaid
		entry.PaidDate = &paidDate
	} else {
		entry.Status = models.ScheduleStatusPartiallyPaid
	}
	return translateDBError(r.Schedule.Update(ctx, entry))
}

// auditCalculation records the due-now read on the audit trail without making
// the caller wait for the write.
func (s *RepaymentService) auditCalculation(loanID uuid.UUID, result *DueNowResult) {
	if s.worker == nil {
		return
	}
	entry := &models.AuditLog{
		TransactionID: loanID,
		Operation:     models.AuditRepaymentCalculation,
		Metadata: models.Metadata{
			"loanId":            loanID.String(),
			"principalDue":      result.PrincipalDue.StringFixed(2),
			"interestDue":       result.InterestDue.StringFixed(2),
			"totalDue":          result.TotalDue.StringFixed(2),
			"totalProjectedFee": result.TotalProjectedFee.StringFixed(2),
			"feesAlreadyPaid":   result.FeesAlreadyPaid.StringFixed(2),
			"installmentsDue":   len(result.Installments),
		},
	}
	s.worker.EnqueueAsync(func(ctx context.Context) error {
		return s.repos.Audit.Create(ctx, entry)
	})
}
