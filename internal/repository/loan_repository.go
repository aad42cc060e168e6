package repository

import (
	"context"

	"github.com/fintlabs/lending-api/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LoanRepository defines the interface for loan data access
type LoanRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Loan, error)
	FindByIDWithDetails(ctx context.Context, id uuid.UUID) (*models.Loan, error)
	FindByIDWithDisbursement(ctx context.Context, id uuid.UUID) (*models.Loan, error)
	List(ctx context.Context, query *ListQuery) ([]models.Loan, int64, error)
	Update(ctx context.Context, loan *models.Loan) error
}

type loanRepository struct {
	db *gorm.DB
}

// NewLoanRepository creates a new loan repository
func NewLoanRepository(db *gorm.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Loan, error) {
	var loan models.Loan
	err := r.db.WithContext(ctx).First(&loan, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

func (r *loanRepository) FindByIDWithDetails(ctx context.Context, id uuid.UUID) (*models.Loan, error) {
	var loan models.Loan
	err := r.db.WithContext(ctx).
		Preload("Disbursement").
		Preload("Schedules", func(db *gorm.DB) *gorm.DB {
			return db.Order("installment_number ASC")
		}).
		Preload("Payments", func(db *gorm.DB) *gorm.DB {
			return db.Order("payment_date DESC")
		}).
		First(&loan, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

func (r *loanRepository) FindByIDWithDisbursement(ctx context.Context, id uuid.UUID) (*models.Loan, error) {
	var loan models.Loan
	err := r.db.WithContext(ctx).
		Preload("Disbursement").
		First(&loan, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

func (r *loanRepository) List(ctx context.Context, query *ListQuery) ([]models.Loan, int64, error) {
	var loans []models.Loan
	var total int64

	db := r.db.WithContext(ctx).Model(&models.Loan{})

	if borrower := query.Filters["borrower_id"]; borrower != "" {
		db = db.Where("borrower_id = ?", borrower)
	}
	if status := query.Filters["status"]; status != "" {
		db = db.Where("status = ?", status)
	}
	if query.Search != "" {
		db = db.Where("CAST(id AS TEXT) ILIKE ? OR CAST(borrower_id AS TEXT) ILIKE ?",
			"%"+query.Search+"%", "%"+query.Search+"%")
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortBy := "created_at"
	if query.SortBy != "" {
		sortBy = query.SortBy
	}
	sortDir := "desc"
	if query.SortDir == "asc" {
		sortDir = "asc"
	}

	err := db.
		Order(sortBy + " " + sortDir).
		Limit(query.PerPage).
		Offset(query.Offset()).
		Find(&loans).Error

	return loans, total, err
}

func (r *loanRepository) Update(ctx context.Context, loan *models.Loan) error {
	return r.db.WithContext(ctx).Save(loan).Error
}
