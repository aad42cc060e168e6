package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Disbursement represents the single payout of an approved loan. Uniqueness
// of live disbursements per loan is enforced by a partial unique index on
// (loan_id) where status <> 'rolled_back', so a rolled back payout does not
// block a retry.
type Disbursement struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	LoanID           uuid.UUID       `gorm:"type:uuid;not null;index" json:"loan_id"`
	Amount           decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	Currency         string          `gorm:"size:3;default:USD;not null" json:"currency"`
	DisbursementDate time.Time       `gorm:"type:date;not null" json:"disbursement_date"`
	Status           string          `gorm:"size:20;default:pending;not null;index" json:"status"`
	RolledBackAt     *time.Time      `json:"rolled_back_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`

	// Associations
	Loan Loan `gorm:"foreignKey:LoanID" json:"loan,omitempty"`
}

// TableName specifies the table name for Disbursement
func (Disbursement) TableName() string {
	return "disbursements"
}

// Disbursement status constants
const (
	DisbursementStatusPending    = "pending"
	DisbursementStatusCompleted  = "completed"
	DisbursementStatusFailed     = "failed"
	DisbursementStatusRolledBack = "rolled_back"
)

// Supported disbursement currencies
var SupportedCurrencies = []string{"USD", "EUR", "EGP"}

// BeforeCreate assigns an id when none was set
func (d *Disbursement) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// MayComplete returns true if the disbursement can transition to completed
func (d *Disbursement) MayComplete() bool {
	return d.Status == DisbursementStatusPending
}

// MayRollback returns true if the disbursement can be rolled back
func (d *Disbursement) MayRollback() bool {
	return d.Status == DisbursementStatusCompleted && d.RolledBackAt == nil
}
