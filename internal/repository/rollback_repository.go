package repository

import (
	"context"
	"errors"

	"github.com/fintlabs/lending-api/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RollbackRepository defines the interface for rollback record data access
type RollbackRepository interface {
	Create(ctx context.Context, record *models.RollbackRecord) error
	FindByTransactionID(ctx context.Context, transactionID uuid.UUID) (*models.RollbackRecord, error)
	ExistsForTransaction(ctx context.Context, transactionID uuid.UUID) (bool, error)
}

type rollbackRepository struct {
	db *gorm.DB
}

// NewRollbackRepository creates a new rollback record repository
func NewRollbackRepository(db *gorm.DB) RollbackRepository {
	return &rollbackRepository{db: db}
}

func (r *rollbackRepository) Create(ctx context.Context, record *models.RollbackRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *rollbackRepository) FindByTransactionID(ctx context.Context, transactionID uuid.UUID) (*models.RollbackRecord, error) {
	var record models.RollbackRecord
	err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("created_at ASC").
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *rollbackRepository) ExistsForTransaction(ctx context.Context, transactionID uuid.UUID) (bool, error) {
	var record models.RollbackRecord
	err := r.db.WithContext(ctx).
		Select("id").
		Where("transaction_id = ?", transactionID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
