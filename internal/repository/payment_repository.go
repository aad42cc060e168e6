package repository

import (
	"context"

	"github.com/fintlabs/lending-api/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentTotals aggregates the monetary components posted against a loan
type PaymentTotals struct {
	PrincipalPaid decimal.Decimal
	InterestPaid  decimal.Decimal
	LateFeePaid   decimal.Decimal
}

// PaymentRepository defines the interface for payment data access
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	FindByLoan(ctx context.Context, loanID uuid.UUID) ([]models.Payment, error)
	FindLatestByLoan(ctx context.Context, loanID uuid.UUID) (*models.Payment, error)
	Update(ctx context.Context, payment *models.Payment) error
	SumAmounts(ctx context.Context) (decimal.Decimal, error)
	SumComponentsByLoan(ctx context.Context, loanID uuid.UUID) (*PaymentTotals, error)
}

type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *paymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).First(&payment, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) FindByLoan(ctx context.Context, loanID uuid.UUID) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.WithContext(ctx).
		Where("loan_id = ?", loanID).
		Order("payment_date DESC").
		Find(&payments).Error
	return payments, err
}

func (r *paymentRepository) FindLatestByLoan(ctx context.Context, loanID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Where("loan_id = ? AND status = ?", loanID, models.PaymentStatusPosted).
		Order("payment_date DESC").
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) Update(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Save(payment).Error
}

// SumAmounts totals every payment on the platform, null sum treated as 0.
// Compensating payments carry negative amounts and net out naturally.
func (r *paymentRepository) SumAmounts(ctx context.Context) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Select("COALESCE(SUM(amount), 0) as total").
		Scan(&result).Error
	return result.Total, err
}

func (r *paymentRepository) SumComponentsByLoan(ctx context.Context, loanID uuid.UUID) (*PaymentTotals, error) {
	var result struct {
		Principal decimal.Decimal
		Interest  decimal.Decimal
		LateFee   decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Select("COALESCE(SUM(principal_paid), 0) as principal, COALESCE(SUM(interest_paid), 0) as interest, COALESCE(SUM(late_fee_paid), 0) as late_fee").
		Where("loan_id = ?", loanID).
		Scan(&result).Error
	if err != nil {
		return nil, err
	}
	return &PaymentTotals{
		PrincipalPaid: result.Principal,
		InterestPaid:  result.Interest,
		LateFeePaid:   result.LateFee,
	}, nil
}
