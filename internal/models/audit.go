package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Metadata is a structured JSONB payload attached to audit entries.
type Metadata map[string]any

// Value implements driver.Valuer
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner
func (m *Metadata) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for metadata", value)
	}
	return json.Unmarshal(data, m)
}

// AuditLog is an append-only record of a domain operation, keyed by the
// transaction (disbursement or payment) it describes. Entries are never
// mutated or deleted.
type AuditLog struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TransactionID uuid.UUID `gorm:"type:uuid;not null;index" json:"transaction_id"`
	Operation     string    `gorm:"size:50;not null" json:"operation"`
	UserID        string    `gorm:"size:100;default:system" json:"user_id"`
	Metadata      Metadata  `gorm:"type:jsonb" json:"metadata"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for AuditLog
func (AuditLog) TableName() string {
	return "audit_logs"
}

// Audit operation tags
const (
	AuditLoanDisbursement     = "LOAN_DISBURSEMENT"
	AuditRepaymentCreate      = "REPAYMENT_CREATE"
	AuditRepaymentCalculation = "REPAYMENT_CALCULATION"
	AuditDisbursementRollback = "DISBURSEMENT_ROLLBACK"
	AuditRepaymentRollback    = "REPAYMENT_ROLLBACK"
)

// BeforeCreate assigns an id when none was set
func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
