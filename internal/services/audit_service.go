package services

import (
	"context"

	"github.com/fintlabs/lending-api/internal/models"
	"github.com/fintlabs/lending-api/internal/repository"
	"github.com/google/uuid"
)

// AuditService reads the append-only audit trail. Writes happen inside the
// transactions that produce them; nothing here mutates anything.
type AuditService struct {
	repos *repository.Repositories
}

// NewAuditService creates a new audit service
func NewAuditService(repos *repository.Repositories) *AuditService {
	return &AuditService{repos: repos}
}

// GetByTransaction returns every entry recorded for a transaction, oldest
// first, so the sequence of events reads top to bottom.
func (s *AuditService) GetByTransaction(ctx context.Context, transactionID uuid.UUID) ([]models.AuditLog, error) {
	entries, err := s.repos.Audit.FindByTransactionID(ctx, transactionID)
	return entries, translateDBError(err)
}

// GetByLoan returns every entry whose metadata references the loan, newest
// first.
func (s *AuditService) GetByLoan(ctx context.Context, loanID uuid.UUID) ([]models.AuditLog, error) {
	entries, err := s.repos.Audit.FindByLoanID(ctx, loanID)
	return entries, translateDBError(err)
}
