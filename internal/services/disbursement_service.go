package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fintlabs/lending-api/internal/models"
	"github.com/fintlabs/lending-api/internal/repository"
	"github.com/fintlabs/lending-api/internal/statemachine"
	"github.com/fintlabs/lending-api/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DisbursementService orchestrates loan payouts: eligibility checks, the
// platform liquidity guard, schedule generation, and the atomic write of the
// whole disbursement unit.
type DisbursementService struct {
	uow       repository.UnitOfWork
	repos     *repository.Repositories
	scheduler *ScheduleService
	rollbacks *RollbackService
}

// NewDisbursementService creates a new disbursement service
func NewDisbursementService(
	uow repository.UnitOfWork,
	repos *repository.Repositories,
	scheduler *ScheduleService,
	rollbacks *RollbackService,
) *DisbursementService {
	return &DisbursementService{
		uow:       uow,
		repos:     repos,
		scheduler: scheduler,
		rollbacks: rollbacks,
	}
}

// CreateDisbursementInput carries a validated disbursement request
type CreateDisbursementInput struct {
	LoanID           uuid.UUID
	BorrowerID       uuid.UUID
	Amount           decimal.Decimal
	Currency         string
	DisbursementDate time.Time
	FirstPaymentDate time.Time
	TenorMonths      int
	InterestRate     decimal.Decimal
}

// CreateDisbursement pays out an approved loan. Preconditions run before any
// transaction opens; everything that mutates state commits atomically or not
// at all. A failed attempt leaves a forensic rollback record behind.
func (s *DisbursementService) CreateDisbursement(ctx context.Context, input CreateDisbursementInput) (*models.Disbursement, error) {
	loan, err := s.repos.Loan.FindByIDWithDisbursement(ctx, input.LoanID)
	if err != nil {
		if translateDBError(err) == ErrNotFound {
			return nil, fmt.Errorf("%w: loan %s", ErrNotFound, input.LoanID)
		}
		return nil, fmt.Errorf("failed to load loan %s: %w", input.LoanID, err)
	}

	if !loan.MayDisburse() {
		return nil, fmt.Errorf("%w: only approved loans can be disbursed (loan is %s)", ErrInvalidState, loan.Status)
	}

	if loan.HasLiveDisbursement() {
		return nil, fmt.Errorf("%w: this loan has already been disbursed", ErrInvalidState)
	}

	var disbursementID uuid.UUID
	err = s.uow.WithinTx(ctx, func(r *repository.Repositories) error {
		if err := s.ensurePlatformFunds(ctx, r, input.Amount); err != nil {
			return err
		}

		disbursement := &models.Disbursement{
			LoanID:           loan.ID,
			Amount:           input.Amount,
			Currency:         input.Currency,
			DisbursementDate: input.DisbursementDate,
			Status:           models.DisbursementStatusPending,
		}
		if err := r.Disbursement.Create(ctx, disbursement); err != nil {
			return translateDBError(err)
		}

		schedule, err := s.scheduler.GenerateSchedule(ScheduleParams{
			LoanID:           loan.ID,
			Amount:           input.Amount,
			InterestRate:     input.InterestRate,
			TenorMonths:      input.TenorMonths,
			FirstPaymentDate: input.FirstPaymentDate,
		})
		if err != nil {
			return err
		}
		if err := r.Schedule.BulkCreate(ctx, schedule); err != nil {
			return translateDBError(err)
		}

		if err := r.Audit.Create(ctx, &models.AuditLog{
			TransactionID: disbursement.ID,
			Operation:     models.AuditLoanDisbursement,
			Metadata: models.Metadata{
				"loanId":     loan.ID.String(),
				"borrowerId": input.BorrowerID.String(),
				"amount":     input.Amount.StringFixed(2),
				"currency":   input.Currency,
				"tenor":      input.TenorMonths,
			},
		}); err != nil {
			return translateDBError(err)
		}

		if err := statemachine.NewDisbursementFSM(disbursement).Complete(ctx); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidState, err)
		}
		if err := r.Disbursement.Update(ctx, disbursement); err != nil {
			return translateDBError(err)
		}

		loan.Status = models.LoanStatusActive
		if err := r.Loan.Update(ctx, loan); err != nil {
			return translateDBError(err)
		}

		disbursementID = disbursement.ID
		return nil
	})
	if err != nil {
		s.recordFailedAttempt(ctx, input, err)
		// A duplicate-key violation here means another disbursement won the
		// race after our pre-check passed.
		if errors.Is(err, ErrDuplicate) {
			return nil, fmt.Errorf("%w: this loan has already been disbursed", ErrInvalidState)
		}
		if IsDomainError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create disbursement for loan %s: %w", input.LoanID, err)
	}

	return s.GetDisbursement(ctx, disbursementID)
}

// GetDisbursement returns a disbursement with its loan, schedule, and
// payments joined
func (s *DisbursementService) GetDisbursement(ctx context.Context, id uuid.UUID) (*models.Disbursement, error) {
	disbursement, err := s.repos.Disbursement.FindByIDWithLoan(ctx, id)
	if err != nil {
		if translateDBError(err) == ErrNotFound {
			return nil, fmt.Errorf("%w: disbursement %s", ErrNotFound, id)
		}
		return nil, err
	}
	return disbursement, nil
}

// RollbackDisbursement reverses a completed disbursement through the
// rollback engine after an eligibility pre-check.
func (s *DisbursementService) RollbackDisbursement(ctx context.Context, id uuid.UUID, reason, performedBy string) (*models.Disbursement, error) {
	if _, err := s.repos.Disbursement.FindByID(ctx, id); err != nil {
		if translateDBError(err) == ErrNotFound {
			return nil, fmt.Errorf("%w: disbursement %s", ErrNotFound, id)
		}
		return nil, err
	}

	if reason == "" {
		reason = "MANUAL_ROLLBACK"
	}

	eligible, err := s.rollbacks.CanRollback(ctx, id)
	if err != nil {
		return nil, err
	}
	if !eligible {
		return nil, fmt.Errorf("%w: disbursement is not eligible for rollback", ErrInvalidState)
	}

	if _, err := s.rollbacks.RollbackTransaction(ctx, id, reason, performedBy); err != nil {
		return nil, err
	}

	return s.GetDisbursement(ctx, id)
}

// GetAuditTrail returns the audit entries recorded for a disbursement
func (s *DisbursementService) GetAuditTrail(ctx context.Context, id uuid.UUID) ([]models.AuditLog, error) {
	return s.rollbacks.GetAuditTrail(ctx, id)
}

// ensurePlatformFunds enforces the liquidity invariant: total incoming
// payments minus total outgoing disbursements must cover the request.
// Equality is allowed. Runs inside the disbursement transaction.
func (s *DisbursementService) ensurePlatformFunds(ctx context.Context, r *repository.Repositories, requested decimal.Decimal) error {
	incoming, err := r.Payment.SumAmounts(ctx)
	if err != nil {
		return err
	}
	outgoing, err := r.Disbursement.SumAmounts(ctx)
	if err != nil {
		return err
	}

	available := incoming.Sub(outgoing)
	if requested.GreaterThan(available) {
		return fmt.Errorf("%w: requested %s exceeds available %s",
			ErrInsufficientFunds, requested.StringFixed(2), available.StringFixed(2))
	}
	return nil
}

// recordFailedAttempt writes a forensic note about a disbursement attempt
// whose transaction was discarded. Best effort, outside the failed
// transaction, so the attempt stays visible even though nothing committed.
func (s *DisbursementService) recordFailedAttempt(ctx context.Context, input CreateDisbursementInput, cause error) {
	record := &models.RollbackRecord{
		TransactionID:     input.LoanID,
		OriginalOperation: models.RollbackOperationFailedDisbursement,
		RollbackReason:    cause.Error(),
		CompensatingActions: models.CompensatingActions{
			{
				Type:        "record_failed_attempt",
				Description: "Disbursement transaction discarded before commit",
				Status:      "completed",
				Metadata: map[string]any{
					"loanId":          input.LoanID.String(),
					"attemptedAmount": input.Amount.StringFixed(2),
				},
				Timestamp: time.Now(),
			},
		},
	}
	if err := s.repos.Rollback.Create(ctx, record); err != nil {
		logger.Error("Failed to record failed disbursement attempt",
			"loan_id", input.LoanID, "error", err)
	}
}
