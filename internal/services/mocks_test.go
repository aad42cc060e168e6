package services

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/fintlabs/lending-api/internal/models"
	"github.com/fintlabs/lending-api/internal/repository"
	"github.com/fintlabs/lending-api/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	logger.Setup("test")
	os.Exit(m.Run())
}

// fakeUnitOfWork runs the callback against the same repositories the service
// already holds, with no real transaction.
type fakeUnitOfWork struct {
	repos *repository.Repositories
}

func (u *fakeUnitOfWork) WithinTx(ctx context.Context, fn func(r *repository.Repositories) error) error {
	return fn(u.repos)
}

// Mock LoanRepository (using embedding to avoid implementing all methods)
type mockLoanRepository struct {
	repository.LoanRepository
	mockFindByID                 func(ctx context.Context, id uuid.UUID) (*models.Loan, error)
	mockFindByIDWithDisbursement func(ctx context.Context, id uuid.UUID) (*models.Loan, error)
	mockFindByIDWithDetails      func(ctx context.Context, id uuid.UUID) (*models.Loan, error)
	mockUpdate                   func(ctx context.Context, loan *models.Loan) error
}

func (m *mockLoanRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Loan, error) {
	if m.mockFindByID != nil {
		return m.mockFindByID(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockLoanRepository) FindByIDWithDisbursement(ctx context.Context, id uuid.UUID) (*models.Loan, error) {
	if m.mockFindByIDWithDisbursement != nil {
		return m.mockFindByIDWithDisbursement(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockLoanRepository) FindByIDWithDetails(ctx context.Context, id uuid.UUID) (*models.Loan, error) {
	if m.mockFindByIDWithDetails != nil {
		return m.mockFindByIDWithDetails(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockLoanRepository) Update(ctx context.Context, loan *models.Loan) error {
	if m.mockUpdate != nil {
		return m.mockUpdate(ctx, loan)
	}
	return nil
}

// Mock DisbursementRepository
type mockDisbursementRepository struct {
	repository.DisbursementRepository
	mockCreate         func(ctx context.Context, disbursement *models.Disbursement) error
	mockFindByID       func(ctx context.Context, id uuid.UUID) (*models.Disbursement, error)
	mockFindByIDWithLoan func(ctx context.Context, id uuid.UUID) (*models.Disbursement, error)
	mockUpdate         func(ctx context.Context, disbursement *models.Disbursement) error
	mockSumAmounts     func(ctx context.Context) (decimal.Decimal, error)
}

func (m *mockDisbursementRepository) Create(ctx context.Context, disbursement *models.Disbursement) error {
	if disbursement.ID == uuid.Nil {
		disbursement.ID = uuid.New()
	}
	if m.mockCreate != nil {
		return m.mockCreate(ctx, disbursement)
	}
	return nil
}

func (m *mockDisbursementRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Disbursement, error) {
	if m.mockFindByID != nil {
		return m.mockFindByID(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockDisbursementRepository) FindByIDWithLoan(ctx context.Context, id uuid.UUID) (*models.Disbursement, error) {
	if m.mockFindByIDWithLoan != nil {
		return m.mockFindByIDWithLoan(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockDisbursementRepository) Update(ctx context.Context, disbursement *models.Disbursement) error {
	if m.mockUpdate != nil {
		return m.mockUpdate(ctx, disbursement)
	}
	return nil
}

func (m *mockDisbursementRepository) SumAmounts(ctx context.Context) (decimal.Decimal, error) {
	if m.mockSumAmounts != nil {
		return m.mockSumAmounts(ctx)
	}
	return decimal.Zero, nil
}

// Mock ScheduleRepository
type mockScheduleRepository struct {
	repository.ScheduleRepository
	mockBulkCreate      func(ctx context.Context, entries []models.RepaymentSchedule) error
	mockFindByLoan      func(ctx context.Context, loanID uuid.UUID) ([]models.RepaymentSchedule, error)
	mockFindFirstUnpaid func(ctx context.Context, loanID uuid.UUID) (*models.RepaymentSchedule, error)
	mockFindDueBefore   func(ctx context.Context, loanID uuid.UUID, asOf time.Time) ([]models.RepaymentSchedule, error)
	mockFindNextUpcoming func(ctx context.Context, loanID uuid.UUID, after time.Time) (*models.RepaymentSchedule, error)
	mockFindOverdue     func(ctx context.Context, asOf time.Time) ([]models.RepaymentSchedule, error)
	mockUpdate          func(ctx context.Context, entry *models.RepaymentSchedule) error
	mockDeleteByLoan    func(ctx context.Context, loanID uuid.UUID) (int64, error)
}

func (m *mockScheduleRepository) BulkCreate(ctx context.Context, entries []models.RepaymentSchedule) error {
	if m.mockBulkCreate != nil {
		return m.mockBulkCreate(ctx, entries)
	}
	return nil
}

func (m *mockScheduleRepository) FindByLoan(ctx context.Context, loanID uuid.UUID) ([]models.RepaymentSchedule, error) {
	if m.mockFindByLoan != nil {
		return m.mockFindByLoan(ctx, loanID)
	}
	return nil, nil
}

func (m *mockScheduleRepository) FindFirstUnpaid(ctx context.Context, loanID uuid.UUID) (*models.RepaymentSchedule, error) {
	if m.mockFindFirstUnpaid != nil {
		return m.mockFindFirstUnpaid(ctx, loanID)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockScheduleRepository) FindDueBefore(ctx context.Context, loanID uuid.UUID, asOf time.Time) ([]models.RepaymentSchedule, error) {
	if m.mockFindDueBefore != nil {
		return m.mockFindDueBefore(ctx, loanID, asOf)
	}
	return nil, nil
}

func (m *mockScheduleRepository) FindNextUpcoming(ctx context.Context, loanID uuid.UUID, after time.Time) (*models.RepaymentSchedule, error) {
	if m.mockFindNextUpcoming != nil {
		return m.mockFindNextUpcoming(ctx, loanID, after)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockScheduleRepository) FindOverdue(ctx context.Context, asOf time.Time) ([]models.RepaymentSchedule, error) {
	if m.mockFindOverdue != nil {
		return m.mockFindOverdue(ctx, asOf)
	}
	return nil, nil
}

func (m *mockScheduleRepository) Update(ctx context.Context, entry *models.RepaymentSchedule) error {
	if m.mockUpdate != nil {
		return m.mockUpdate(ctx, entry)
	}
	return nil
}

func (m *mockScheduleRepository) DeleteByLoan(ctx context.Context, loanID uuid.UUID) (int64, error) {
	if m.mockDeleteByLoan != nil {
		return m.mockDeleteByLoan(ctx, loanID)
	}
	return 0, nil
}

// Mock PaymentRepository
type mockPaymentRepository struct {
	repository.PaymentRepository
	mockCreate              func(ctx context.Context, payment *models.Payment) error
	mockFindByID            func(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	mockFindByLoan          func(ctx context.Context, loanID uuid.UUID) ([]models.Payment, error)
	mockFindLatestByLoan    func(ctx context.Context, loanID uuid.UUID) (*models.Payment, error)
	mockUpdate              func(ctx context.Context, payment *models.Payment) error
	mockSumAmounts          func(ctx context.Context) (decimal.Decimal, error)
	mockSumComponentsByLoan func(ctx context.Context, loanID uuid.UUID) (*repository.PaymentTotals, error)
}

func (m *mockPaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	if m.mockCreate != nil {
		return m.mockCreate(ctx, payment)
	}
	return nil
}

func (m *mockPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	if m.mockFindByID != nil {
		return m.mockFindByID(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPaymentRepository) FindByLoan(ctx context.Context, loanID uuid.UUID) ([]models.Payment, error) {
	if m.mockFindByLoan != nil {
		return m.mockFindByLoan(ctx, loanID)
	}
	return nil, nil
}

func (m *mockPaymentRepository) FindLatestByLoan(ctx context.Context, loanID uuid.UUID) (*models.Payment, error) {
	if m.mockFindLatestByLoan != nil {
		return m.mockFindLatestByLoan(ctx, loanID)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPaymentRepository) Update(ctx context.Context, payment *models.Payment) error {
	if m.mockUpdate != nil {
		return m.mockUpdate(ctx, payment)
	}
	return nil
}

func (m *mockPaymentRepository) SumAmounts(ctx context.Context) (decimal.Decimal, error) {
	if m.mockSumAmounts != nil {
		return m.mockSumAmounts(ctx)
	}
	return decimal.Zero, nil
}

func (m *mockPaymentRepository) SumComponentsByLoan(ctx context.Context, loanID uuid.UUID) (*repository.PaymentTotals, error) {
	if m.mockSumComponentsByLoan != nil {
		return m.mockSumComponentsByLoan(ctx, loanID)
	}
	return &repository.PaymentTotals{
		PrincipalPaid: decimal.Zero,
		InterestPaid:  decimal.Zero,
		LateFeePaid:   decimal.Zero,
	}, nil
}

// Mock RollbackRepository
type mockRollbackRepository struct {
	repository.RollbackRepository
	mockCreate               func(ctx context.Context, record *models.RollbackRecord) error
	mockFindByTransactionID  func(ctx context.Context, transactionID uuid.UUID) (*models.RollbackRecord, error)
	mockExistsForTransaction func(ctx context.Context, transactionID uuid.UUID) (bool, error)
}

func (m *mockRollbackRepository) Create(ctx context.Context, record *models.RollbackRecord) error {
	if m.mockCreate != nil {
		return m.mockCreate(ctx, record)
	}
	return nil
}

func (m *mockRollbackRepository) FindByTransactionID(ctx context.Context, transactionID uuid.UUID) (*models.RollbackRecord, error) {
	if m.mockFindByTransactionID != nil {
		return m.mockFindByTransactionID(ctx, transactionID)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockRollbackRepository) ExistsForTransaction(ctx context.Context, transactionID uuid.UUID) (bool, error) {
	if m.mockExistsForTransaction != nil {
		return m.mockExistsForTransaction(ctx, transactionID)
	}
	return false, nil
}

// Mock AuditRepository
type mockAuditRepository struct {
	repository.AuditRepository
	mockCreate              func(ctx context.Context, entry *models.AuditLog) error
	mockFindByTransactionID func(ctx context.Context, transactionID uuid.UUID) ([]models.AuditLog, error)
	mockFindByLoanID        func(ctx context.Context, loanID uuid.UUID) ([]models.AuditLog, error)
}

func (m *mockAuditRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	if m.mockCreate != nil {
		return m.mockCreate(ctx, entry)
	}
	return nil
}

func (m *mockAuditRepository) FindByTransactionID(ctx context.Context, transactionID uuid.UUID) ([]models.AuditLog, error) {
	if m.mockFindByTransactionID != nil {
		return m.mockFindByTransactionID(ctx, transactionID)
	}
	return nil, nil
}

func (m *mockAuditRepository) FindByLoanID(ctx context.Context, loanID uuid.UUID) ([]models.AuditLog, error) {
	if m.mockFindByLoanID != nil {
		return m.mockFindByLoanID(ctx, loanID)
	}
	return nil, nil
}

// newMockRepos builds a Repositories value backed entirely by mocks
func newMockRepos() (*repository.Repositories, *mockLoanRepository, *mockDisbursementRepository, *mockScheduleRepository, *mockPaymentRepository, *mockRollbackRepository, *mockAuditRepository) {
	loans := &mockLoanRepository{}
	disbursements := &mockDisbursementRepository{}
	schedules := &mockScheduleRepository{}
	payments := &mockPaymentRepository{}
	rollbacks := &mockRollbackRepository{}
	audits := &mockAuditRepository{}

	repos := &repository.Repositories{
		Loan:         loans,
		Disbursement: disbursements,
		Schedule:     schedules,
		Payment:      payments,
		Rollback:     rollbacks,
		Audit:        audits,
	}
	return repos, loans, disbursements, schedules, payments, rollbacks, audits
}
