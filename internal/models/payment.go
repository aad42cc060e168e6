package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Payment is a repayment posted against a loan. Rows are append-only: a
// reversal inserts a negated compensating payment instead of mutating the
// original amounts.
type Payment struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	LoanID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"loan_id"`
	Amount        decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	PaymentDate   time.Time       `gorm:"type:date;not null;index" json:"payment_date"`
	PrincipalPaid decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"principal_paid"`
	InterestPaid  decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"interest_paid"`
	LateFeePaid   decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"late_fee_paid"`
	DaysLate      int             `gorm:"default:0;not null" json:"days_late"`
	Status        string          `gorm:"size:30;default:POSTED;not null;index" json:"status"`
	RolledBackAt  *time.Time      `json:"rolled_back_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// TableName specifies the table name for Payment
func (Payment) TableName() string {
	return "payments"
}

// Payment status constants
const (
	PaymentStatusPosted       = "POSTED"
	PaymentStatusCompensation = "ROLLBACK_COMPENSATION"
	PaymentStatusRolledBack   = "rolled_back"
)

// BeforeCreate assigns an id when none was set
func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// MayRollback returns true if the payment can be rolled back
func (p *Payment) MayRollback() bool {
	return p.Status != PaymentStatusRolledBack && p.RolledBackAt == nil
}

// Compensation builds the reversing payment for a rollback: every monetary
// field negated, dated now, flagged as compensation.
func (p *Payment) Compensation(now time.Time) *Payment {
	return &Payment{
		LoanID:        p.LoanID,
		Amount:        p.Amount.Neg(),
		PaymentDate:   now,
		PrincipalPaid: p.PrincipalPaid.Neg(),
		InterestPaid:  p.InterestPaid.Neg(),
		LateFeePaid:   p.LateFeePaid.Neg(),
		DaysLate:      p.DaysLate,
		Status:        PaymentStatusCompensation,
	}
}
