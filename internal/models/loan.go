package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Loan represents a lending agreement. Loans are created by the origination
// system; this service only reads them and moves their status forward as a
// side effect of disbursement.
type Loan struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	BorrowerID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"borrower_id"`
	Amount       decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	InterestRate decimal.Decimal `gorm:"type:decimal(7,4);not null" json:"interest_rate"`
	TenorMonths  int             `gorm:"not null" json:"tenor_months"`
	Status       string          `gorm:"size:20;default:PENDING;not null;index" json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`

	// Associations
	Disbursement *Disbursement       `gorm:"foreignKey:LoanID" json:"disbursement,omitempty"`
	Schedules    []RepaymentSchedule `gorm:"foreignKey:LoanID" json:"schedules,omitempty"`
	Payments     []Payment           `gorm:"foreignKey:LoanID" json:"payments,omitempty"`
}

// TableName specifies the table name for Loan
func (Loan) TableName() string {
	return "loans"
}

// Loan status constants
const (
	LoanStatusPending  = "PENDING"
	LoanStatusApproved = "APPROVED"
	LoanStatusActive   = "ACTIVE"
	LoanStatusClosed   = "CLOSED"
)

// MayDisburse returns true if the loan is in a disbursable state
func (l *Loan) MayDisburse() bool {
	return l.Status == LoanStatusApproved
}

// HasLiveDisbursement reports whether the loan already carries a
// disbursement that has not been rolled back.
func (l *Loan) HasLiveDisbursement() bool {
	return l.Disbursement != nil && l.Disbursement.Status != DisbursementStatusRolledBack
}
