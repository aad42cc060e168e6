package repository

import (
	"context"

	"github.com/fintlabs/lending-api/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DisbursementRepository defines the interface for disbursement data access
type DisbursementRepository interface {
	Create(ctx context.Context, disbursement *models.Disbursement) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Disbursement, error)
	FindByIDWithLoan(ctx context.Context, id uuid.UUID) (*models.Disbursement, error)
	FindByLoan(ctx context.Context, loanID uuid.UUID) (*models.Disbursement, error)
	Update(ctx context.Context, disbursement *models.Disbursement) error
	SumAmounts(ctx context.Context) (decimal.Decimal, error)
}

type disbursementRepository struct {
	db *gorm.DB
}

// NewDisbursementRepository creates a new disbursement repository
func NewDisbursementRepository(db *gorm.DB) DisbursementRepository {
	return &disbursementRepository{db: db}
}

func (r *disbursementRepository) Create(ctx context.Context, disbursement *models.Disbursement) error {
	return r.db.WithContext(ctx).Create(disbursement).Error
}

func (r *disbursementRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Disbursement, error) {
	var disbursement models.Disbursement
	err := r.db.WithContext(ctx).First(&disbursement, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &disbursement, nil
}

func (r *disbursementRepository) FindByIDWithLoan(ctx context.Context, id uuid.UUID) (*models.Disbursement, error) {
	var disbursement models.Disbursement
	err := r.db.WithContext(ctx).
		Preload("Loan").
		Preload("Loan.Schedules", func(db *gorm.DB) *gorm.DB {
			return db.Order("installment_number ASC")
		}).
		Preload("Loan.Payments", func(db *gorm.DB) *gorm.DB {
			return db.Order("payment_date DESC")
		}).
		First(&disbursement, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &disbursement, nil
}

func (r *disbursementRepository) FindByLoan(ctx context.Context, loanID uuid.UUID) (*models.Disbursement, error) {
	var disbursement models.Disbursement
	err := r.db.WithContext(ctx).First(&disbursement, "loan_id = ?", loanID).Error
	if err != nil {
		return nil, err
	}
	return &disbursement, nil
}

func (r *disbursementRepository) Update(ctx context.Context, disbursement *models.Disbursement) error {
	return r.db.WithContext(ctx).Save(disbursement).Error
}

// SumAmounts totals every disbursement on the platform, null sum treated as 0
func (r *disbursementRepository) SumAmounts(ctx context.Context) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Model(&models.Disbursement{}).
		Select("COALESCE(SUM(amount), 0) as total").
		Scan(&result).Error
	return result.Total, err
}
