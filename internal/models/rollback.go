package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CompensatingAction is one step taken while undoing a transaction.
type CompensatingAction struct {
	Type        string         `json:"type"`
	Description string         `json:"description"`
	Status      string         `json:"status"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

// CompensatingActions stores the ordered action list as a JSONB column.
type CompensatingActions []CompensatingAction

// Value implements driver.Valuer
func (a CompensatingActions) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	data, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner
func (a *CompensatingActions) Scan(value interface{}) error {
	if value == nil {
		*a = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for compensating actions", value)
	}
	return json.Unmarshal(data, a)
}

// Compensating action types
const (
	ActionRevertSchedule     = "revert_repayment_schedule"
	ActionMarkDisbursement   = "mark_disbursement_rolled_back"
	ActionRevertLoanStatus   = "revert_loan_status"
	ActionMarkPayment        = "mark_payment_rolled_back"
	ActionCreateCompensation = "create_compensating_payment"
)

// Rollback operation kinds
const (
	RollbackOperationDisbursement = "disbursement"
	RollbackOperationRepayment    = "repayment"

	// Forensic record written when a disbursement attempt fails before
	// anything committed. Not a compensation.
	RollbackOperationFailedDisbursement = "CREATE_DISBURSEMENT"
)

// RollbackRecord is the durable trace of a compensating transaction. At most
// one record exists per transaction id; its existence is what makes a second
// rollback ineligible.
type RollbackRecord struct {
	ID                  uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	TransactionID       uuid.UUID           `gorm:"type:uuid;not null;index" json:"transaction_id"`
	OriginalOperation   string              `gorm:"size:30;not null" json:"original_operation"`
	RollbackReason      string              `gorm:"type:text;not null" json:"rollback_reason"`
	CompensatingActions CompensatingActions `gorm:"type:jsonb" json:"compensating_actions"`
	RolledBackBy        string              `gorm:"size:100;default:system" json:"rolled_back_by"`
	CreatedAt           time.Time           `json:"created_at"`
}

// TableName specifies the table name for RollbackRecord
func (RollbackRecord) TableName() string {
	return "rollback_records"
}

// BeforeCreate assigns an id when none was set
func (r *RollbackRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
