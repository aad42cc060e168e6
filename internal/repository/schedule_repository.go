package repository

import (
	"context"
	"time"

	"github.com/fintlabs/lending-api/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ScheduleRepository defines the interface for repayment schedule data access
type ScheduleRepository interface {
	BulkCreate(ctx context.Context, entries []models.RepaymentSchedule) error
	FindByLoan(ctx context.Context, loanID uuid.UUID) ([]models.RepaymentSchedule, error)
	FindFirstUnpaid(ctx context.Context, loanID uuid.UUID) (*models.RepaymentSchedule, error)
	FindDueBefore(ctx context.Context, loanID uuid.UUID, asOf time.Time) ([]models.RepaymentSchedule, error)
	FindNextUpcoming(ctx context.Context, loanID uuid.UUID, after time.Time) (*models.RepaymentSchedule, error)
	FindOverdue(ctx context.Context, asOf time.Time) ([]models.RepaymentSchedule, error)
	Update(ctx context.Context, entry *models.RepaymentSchedule) error
	DeleteByLoan(ctx context.Context, loanID uuid.UUID) (int64, error)
}

type scheduleRepository struct {
	db *gorm.DB
}

// NewScheduleRepository creates a new schedule repository
func NewScheduleRepository(db *gorm.DB) ScheduleRepository {
	return &scheduleRepository{db: db}
}

func (r *scheduleRepository) BulkCreate(ctx context.Context, entries []models.RepaymentSchedule) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&entries).Error
}

func (r *scheduleRepository) FindByLoan(ctx context.Context, loanID uuid.UUID) ([]models.RepaymentSchedule, error) {
	var entries []models.RepaymentSchedule
	err := r.db.WithContext(ctx).
		Where("loan_id = ?", loanID).
		Order("installment_number ASC").
		Find(&entries).Error
	return entries, err
}

// FindFirstUnpaid returns the earliest installment that is not fully paid
func (r *scheduleRepository) FindFirstUnpaid(ctx context.Context, loanID uuid.UUID) (*models.RepaymentSchedule, error) {
	var entry models.RepaymentSchedule
	err := r.db.WithContext(ctx).
		Where("loan_id = ? AND status IN ?", loanID,
			[]string{models.ScheduleStatusPending, models.ScheduleStatusPartiallyPaid}).
		Order("installment_number ASC").
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *scheduleRepository) FindDueBefore(ctx context.Context, loanID uuid.UUID, asOf time.Time) ([]models.RepaymentSchedule, error) {
	var entries []models.RepaymentSchedule
	err := r.db.WithContext(ctx).
		Where("loan_id = ? AND due_date <= ? AND status IN ?", loanID, asOf,
			[]string{models.ScheduleStatusPending, models.ScheduleStatusPartiallyPaid}).
		Order("installment_number ASC").
		Find(&entries).Error
	return entries, err
}

func (r *scheduleRepository) FindNextUpcoming(ctx context.Context, loanID uuid.UUID, after time.Time) (*models.RepaymentSchedule, error) {
	var entry models.RepaymentSchedule
	err := r.db.WithContext(ctx).
		Where("loan_id = ? AND due_date > ? AND status = ?", loanID, after, models.ScheduleStatusPending).
		Order("due_date ASC").
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// FindOverdue returns unpaid installments past due across all loans
func (r *scheduleRepository) FindOverdue(ctx context.Context, asOf time.Time) ([]models.RepaymentSchedule, error) {
	var entries []models.RepaymentSchedule
	err := r.db.WithContext(ctx).
		Where("due_date < ? AND status IN ?", asOf,
			[]string{models.ScheduleStatusPending, models.ScheduleStatusPartiallyPaid}).
		Order("due_date ASC").
		Find(&entries).Error
	return entries, err
}

func (r *scheduleRepository) Update(ctx context.Context, entry *models.RepaymentSchedule) error {
	return r.db.WithContext(ctx).Save(entry).Error
}

// DeleteByLoan removes every schedule row for a loan and reports the count
func (r *scheduleRepository) DeleteByLoan(ctx context.Context, loanID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("loan_id = ?", loanID).
		Delete(&models.RepaymentSchedule{})
	return result.RowsAffected, result.Error
}
