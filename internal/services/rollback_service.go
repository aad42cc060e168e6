package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fintlabs/lending-api/internal/models"
	"github.com/fintlabs/lending-api/internal/repository"
	"github.com/fintlabs/lending-api/internal/statemachine"
	"github.com/fintlabs/lending-api/pkg/logger"
	"github.com/google/uuid"
)

const systemActor = "system"

// transactionContext resolves a transaction id to the entity it identifies
type transactionContext struct {
	disbursement *models.Disbursement
	payment      *models.Payment
}

// RollbackService undoes disbursements and repayments through compensating
// actions. A transaction id can be rolled back at most once; the existing
// RollbackRecord is the gate.
type RollbackService struct {
	uow   repository.UnitOfWork
	repos *repository.Repositories
}

// NewRollbackService creates a new rollback service
func NewRollbackService(uow repository.UnitOfWork, repos *repository.Repositories) *RollbackService {
	return &RollbackService{uow: uow, repos: repos}
}

// CanRollback reports whether a transaction is still eligible: it must
// resolve to a disbursement or payment, have no rollback record yet, and be
// in a reversible state.
func (s *RollbackService) CanRollback(ctx context.Context, transactionID uuid.UUID) (bool, error) {
	tc, err := s.findTransaction(ctx, transactionID)
	if err != nil {
		return false, err
	}
	if tc == nil {
		return false, nil
	}

	exists, err := s.repos.Rollback.ExistsForTransaction(ctx, transactionID)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	if tc.disbursement != nil {
		return tc.disbursement.MayRollback(), nil
	}
	return tc.payment.MayRollback(), nil
}

// RollbackTransaction reverses a prior disbursement or repayment inside one
// atomic transaction and returns the durable record of what was done.
func (s *RollbackService) RollbackTransaction(ctx context.Context, transactionID uuid.UUID, reason, performer string) (*models.RollbackRecord, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: rollback reason is required", ErrValidation)
	}
	if performer == "" {
		performer = systemActor
	}

	tc, err := s.findTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if tc == nil {
		return nil, fmt.Errorf("%w: no disbursement or repayment found for transaction %s", ErrNotFound, transactionID)
	}

	eligible, err := s.CanRollback(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if !eligible {
		return nil, fmt.Errorf("%w: transaction is not eligible for rollback", ErrInvalidState)
	}

	var record *models.RollbackRecord
	err = s.uow.WithinTx(ctx, func(r *repository.Repositories) error {
		var txErr error
		if tc.disbursement != nil {
			record, txErr = s.rollbackDisbursement(ctx, r, tc.disbursement, reason, performer)
		} else {
			record, txErr = s.rollbackRepayment(ctx, r, tc.payment, reason, performer)
		}
		return txErr
	})
	if err != nil {
		logger.Error("Rollback failed", "transaction_id", transactionID, "error", err)
		if IsDomainError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("unable to rollback transaction %s: %w", transactionID, err)
	}

	return record, nil
}

// GetAuditTrail returns all audit entries for a transaction, oldest first
func (s *RollbackService) GetAuditTrail(ctx context.Context, transactionID uuid.UUID) ([]models.AuditLog, error) {
	return s.repos.Audit.FindByTransactionID(ctx, transactionID)
}

// findTransaction tries the id as a disbursement first, then as a payment
func (s *RollbackService) findTransaction(ctx context.Context, transactionID uuid.UUID) (*transactionContext, error) {
	disbursement, err := s.repos.Disbursement.FindByID(ctx, transactionID)
	if err == nil {
		return &transactionContext{disbursement: disbursement}, nil
	}
	if translateDBError(err) != ErrNotFound {
		return nil, err
	}

	payment, err := s.repos.Payment.FindByID(ctx, transactionID)
	if err == nil {
		return &transactionContext{payment: payment}, nil
	}
	if translateDBError(err) != ErrNotFound {
		return nil, err
	}

	return nil, nil
}

func (s *RollbackService) rollbackDisbursement(ctx context.Context, r *repository.Repositories, disbursement *models.Disbursement, reason, performer string) (*models.RollbackRecord, error) {
	now := time.Now()
	previousStatus := disbursement.Status
	actions := make(models.CompensatingActions, 0, 2)

	removed, err := r.Schedule.DeleteByLoan(ctx, disbursement.LoanID)
	if err != nil {
		return nil, translateDBError(err)
	}
	actions = append(actions, models.CompensatingAction{
		Type:        models.ActionRevertSchedule,
		Description: "Removed generated repayment schedules for loan",
		Status:      "completed",
		Metadata: map[string]any{
			"loanId":       disbursement.LoanID.String(),
			"removedCount": removed,
		},
		Timestamp: now,
	})

	if err := statemachine.NewDisbursementFSM(disbursement).Rollback(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	disbursement.RolledBackAt = &now
	if err := r.Disbursement.Update(ctx, disbursement); err != nil {
		return nil, translateDBError(err)
	}
	actions = append(actions, models.CompensatingAction{
		Type:        models.ActionMarkDisbursement,
		Description: "Flagged disbursement as rolled back",
		Status:      "completed",
		Metadata: map[string]any{
			"disbursementId": disbursement.ID.String(),
			"previousStatus": previousStatus,
		},
		Timestamp: now,
	})

	loan, err := r.Loan.FindByID(ctx, disbursement.LoanID)
	if err != nil {
		return nil, translateDBError(err)
	}
	previousLoanStatus := loan.Status
	loan.Status = models.LoanStatusApproved
	if err := r.Loan.Update(ctx, loan); err != nil {
		return nil, translateDBError(err)
	}
	actions = append(actions, models.CompensatingAction{
		Type:        models.ActionRevertLoanStatus,
		Description: "Returned loan to its pre-disbursement status",
		Status:      "completed",
		Metadata: map[string]any{
			"loanId":         loan.ID.String(),
			"previousStatus": previousLoanStatus,
			"newStatus":      loan.Status,
		},
		Timestamp: now,
	})

	if err := r.Audit.Create(ctx, &models.AuditLog{
		TransactionID: disbursement.ID,
		Operation:     models.AuditDisbursementRollback,
		UserID:        performer,
		Metadata: models.Metadata{
			"loanId":       disbursement.LoanID.String(),
			"reason":       reason,
			"rolledBackAt": now.Format(time.RFC3339),
			"rolledBackBy": performer,
		},
	}); err != nil {
		return nil, translateDBError(err)
	}

	record := &models.RollbackRecord{
		TransactionID:       disbursement.ID,
		OriginalOperation:   models.RollbackOperationDisbursement,
		RollbackReason:      reason,
		CompensatingActions: actions,
		RolledBackBy:        performer,
	}
	if err := r.Rollback.Create(ctx, record); err != nil {
		return nil, translateDBError(err)
	}
	return record, nil
}

func (s *RollbackService) rollbackRepayment(ctx context.Context, r *repository.Repositories, payment *models.Payment, reason, performer string) (*models.RollbackRecord, error) {
	now := time.Now()
	actions := make(models.CompensatingActions, 0, 2)

	if err := statemachine.NewPaymentFSM(payment).Rollback(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	payment.RolledBackAt = &now
	if err := r.Payment.Update(ctx, payment); err != nil {
		return nil, translateDBError(err)
	}
	actions = append(actions, models.CompensatingAction{
		Type:        models.ActionMarkPayment,
		Description: "Flagged repayment record as rolled back",
		Status:      "completed",
		Metadata: map[string]any{
			"paymentId": payment.ID.String(),
			"loanId":    payment.LoanID.String(),
		},
		Timestamp: now,
	})

	compensation := payment.Compensation(now)
	if err := r.Payment.Create(ctx, compensation); err != nil {
		return nil, translateDBError(err)
	}
	actions = append(actions, models.CompensatingAction{
		Type:        models.ActionCreateCompensation,
		Description: "Inserted reversing payment entry",
		Status:      "completed",
		Metadata: map[string]any{
			"compensationId": compensation.ID.String(),
			"loanId":         payment.LoanID.String(),
			"amount":         payment.Amount.StringFixed(2),
		},
		Timestamp: now,
	})

	if err := r.Audit.Create(ctx, &models.AuditLog{
		TransactionID: payment.ID,
		Operation:     models.AuditRepaymentRollback,
		UserID:        performer,
		Metadata: models.Metadata{
			"loanId":                payment.LoanID.String(),
			"reason":                reason,
			"rolledBackAt":          now.Format(time.RFC3339),
			"compensationPaymentId": compensation.ID.String(),
		},
	}); err != nil {
		return nil, translateDBError(err)
	}

	record := &models.RollbackRecord{
		TransactionID:       payment.ID,
		OriginalOperation:   models.RollbackOperationRepayment,
		RollbackReason:      reason,
		CompensatingActions: actions,
		RolledBackBy:        performer,
	}
	if err := r.Rollback.Create(ctx, record); err != nil {
		return nil, translateDBError(err)
	}
	return record, nil
}
