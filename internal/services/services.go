package services

import (
	"github.com/fintlabs/lending-api/internal/jobs"
	"github.com/fintlabs/lending-api/internal/repository"
)

// Services holds all service instances
type Services struct {
	Loan         *LoanService
	Disbursement *DisbursementService
	Repayment    *RepaymentService
	Rollback     *RollbackService
	Schedule     *ScheduleService
	Calculation  *CalculationService
	Audit        *AuditService
	Export       *ExportService
	Report       *ReportService
}

// NewServices creates all service instances
func NewServices(repos *repository.Repositories, uow repository.UnitOfWork, worker *jobs.Worker) *Services {
	scheduleSvc := NewScheduleService()
	calcSvc := NewCalculationService()
	rollbackSvc := NewRollbackService(uow, repos)

	return &Services{
		Loan:         NewLoanService(repos),
		Disbursement: NewDisbursementService(uow, repos, scheduleSvc, rollbackSvc),
		Repayment:    NewRepaymentService(uow, repos, calcSvc, worker),
		Rollback:     rollbackSvc,
		Schedule:     scheduleSvc,
		Calculation:  calcSvc,
		Audit:        NewAuditService(repos),
		Export:       NewExportService(repos),
		Report:       NewReportService(repos),
	}
}
