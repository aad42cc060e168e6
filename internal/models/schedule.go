package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RepaymentSchedule is one installment of a loan's amortization schedule.
// Rows are created in bulk at disbursement time; only their status and paid
// date change afterwards, and they are deleted only when the owning
// disbursement is rolled back.
type RepaymentSchedule struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	LoanID            uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_loan_installment" json:"loan_id"`
	InstallmentNumber int             `gorm:"not null;uniqueIndex:idx_loan_installment" json:"installment_number"`
	DueDate           time.Time       `gorm:"type:date;not null;index" json:"due_date"`
	PrincipalAmount   decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"principal_amount"`
	InterestAmount    decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"interest_amount"`
	Status            string          `gorm:"size:20;default:PENDING;not null;index" json:"status"`
	PaidDate          *time.Time      `gorm:"type:date" json:"paid_date,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// TableName specifies the table name for RepaymentSchedule
func (RepaymentSchedule) TableName() string {
	return "repayment_schedules"
}

// Schedule entry status constants
const (
	ScheduleStatusPending       = "PENDING"
	ScheduleStatusPartiallyPaid = "PARTIALLY_PAID"
	ScheduleStatusPaid          = "PAID"
)

// BeforeCreate assigns an id when none was set
func (s *RepaymentSchedule) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// TotalDue returns principal plus interest for the installment
func (s *RepaymentSchedule) TotalDue() decimal.Decimal {
	return s.PrincipalAmount.Add(s.InterestAmount)
}

// IsSettled returns true once the installment is fully paid
func (s *RepaymentSchedule) IsSettled() bool {
	return s.Status == ScheduleStatusPaid
}

// DaysOverdue returns whole days elapsed past the due date as of the given
// time, zero when not yet due.
func (s *RepaymentSchedule) DaysOverdue(asOf time.Time) int {
	if !asOf.After(s.DueDate) {
		return 0
	}
	return int(asOf.Sub(s.DueDate).Hours() / 24)
}
