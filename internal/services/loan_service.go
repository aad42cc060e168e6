package services

import (
	"context"
	"fmt"

	"github.com/fintlabs/lending-api/internal/models"
	"github.com/fintlabs/lending-api/internal/repository"
	"github.com/google/uuid"
)

// LoanService exposes read access to loans and their transaction history
type LoanService struct {
	repos *repository.Repositories
}

// NewLoanService creates a new loan service
func NewLoanService(repos *repository.Repositories) *LoanService {
	return &LoanService{repos: repos}
}

// GetLoan returns a loan with its disbursement, schedule, and payments
func (s *LoanService) GetLoan(ctx context.Context, id uuid.UUID) (*models.Loan, error) {
	loan, err := s.repos.Loan.FindByIDWithDetails(ctx, id)
	if err != nil {
		if translateDBError(err) == ErrNotFound {
			return nil, fmt.Errorf("%w: loan %s", ErrNotFound, id)
		}
		return nil, err
	}
	return loan, nil
}

// ListLoans returns a filtered, paginated page of loans plus the total count
func (s *LoanService) ListLoans(ctx context.Context, query *repository.ListQuery) ([]models.Loan, int64, error) {
	loans, total, err := s.repos.Loan.List(ctx, query)
	if err != nil {
		return nil, 0, translateDBError(err)
	}
	return loans, total, nil
}
