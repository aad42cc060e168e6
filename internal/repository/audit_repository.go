package repository

import (
	"context"

	"github.com/fintlabs/lending-api/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditRepository defines the interface for audit log data access.
// The log is append-only: there is no update or delete.
type AuditRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	FindByTransactionID(ctx context.Context, transactionID uuid.UUID) ([]models.AuditLog, error)
	FindByLoanID(ctx context.Context, loanID uuid.UUID) ([]models.AuditLog, error)
}

type auditRepository struct {
	db *gorm.DB
}

// NewAuditRepository creates a new audit log repository
func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *auditRepository) FindByTransactionID(ctx context.Context, transactionID uuid.UUID) ([]models.AuditLog, error) {
	var entries []models.AuditLog
	err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("created_at ASC").
		Find(&entries).Error
	return entries, err
}

// FindByLoanID matches audit entries whose metadata references the loan
func (r *auditRepository) FindByLoanID(ctx context.Context, loanID uuid.UUID) ([]models.AuditLog, error) {
	var entries []models.AuditLog
	err := r.db.WithContext(ctx).
		Where("metadata->>'loanId' = ?", loanID.String()).
		Order("created_at DESC").
		Find(&entries).Error
	return entries, err
}
