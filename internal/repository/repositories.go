package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repositories holds all repository instances
type Repositories struct {
	Loan         LoanRepository
	Disbursement DisbursementRepository
	Schedule     ScheduleRepository
	Payment      PaymentRepository
	Rollback     RollbackRepository
	Audit        AuditRepository
}

// NewRepositories creates all repository instances
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Loan:         NewLoanRepository(db),
		Disbursement: NewDisbursementRepository(db),
		Schedule:     NewScheduleRepository(db),
		Payment:      NewPaymentRepository(db),
		Rollback:     NewRollbackRepository(db),
		Audit:        NewAuditRepository(db),
	}
}

// UnitOfWork runs a batch of repository operations inside one atomic
// database transaction. The callback receives repositories bound to the
// transaction; if it returns an error, nothing commits.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(r *Repositories) error) error
}

type gormUnitOfWork struct {
	db *gorm.DB
}

// NewUnitOfWork creates a UnitOfWork backed by GORM transactions
func NewUnitOfWork(db *gorm.DB) UnitOfWork {
	return &gormUnitOfWork{db: db}
}

func (u *gormUnitOfWork) WithinTx(ctx context.Context, fn func(r *Repositories) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}

// ListQuery carries pagination, sorting and filter parameters for list reads
type ListQuery struct {
	Page    int
	PerPage int
	Search  string
	SortBy  string
	SortDir string
	Filters map[string]string
}

// NewListQuery creates a ListQuery with defaults
func NewListQuery() *ListQuery {
	return &ListQuery{
		Page:    1,
		PerPage: 20,
		Filters: make(map[string]string),
	}
}

// Offset returns the row offset for the current page
func (q *ListQuery) Offset() int {
	if q.Page < 1 {
		return 0
	}
	return (q.Page - 1) * q.PerPage
}
