package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/fintlabs/lending-api/internal/repository"
	"github.com/google/uuid"
	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
)

// ReportService renders borrower-facing documents
type ReportService struct {
	repos *repository.Repositories
}

// NewReportService creates a new report service
func NewReportService(repos *repository.Repositories) *ReportService {
	return &ReportService{repos: repos}
}

// LoanStatementPDF builds a one-page statement for a loan: terms,
// disbursement, payment totals, and the recent payment history.
func (s *ReportService) LoanStatementPDF(ctx context.Context, loanID uuid.UUID) ([]byte, string, error) {
	loan, err := s.repos.Loan.FindByIDWithDetails(ctx, loanID)
	if err != nil {
		if translateDBError(err) == ErrNotFound {
			return nil, "", fmt.Errorf("%w: loan %s", ErrNotFound, loanID)
		}
		return nil, "", err
	}

	totals, err := s.repos.Payment.SumComponentsByLoan(ctx, loanID)
	if err != nil {
		return nil, "", translateDBError(err)
	}
	principalRemaining := loan.Amount.Sub(totals.PrincipalPaid)
	if principalRemaining.IsNegative() {
		principalRemaining = decimal.Zero
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, "Loan Statement")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(60, 10, "Loan ID:")
	pdf.Cell(40, 10, loan.ID.String())
	pdf.Ln(6)
	pdf.Cell(60, 10, "Borrower ID:")
	pdf.Cell(40, 10, loan.BorrowerID.String())
	pdf.Ln(6)
	pdf.Cell(60, 10, "Status:")
	pdf.Cell(40, 10, loan.Status)
	pdf.Ln(6)
	pdf.Cell(60, 10, "Amount:")
	pdf.Cell(40, 10, loan.Amount.StringFixed(2))
	pdf.Ln(6)
	pdf.Cell(60, 10, "Interest Rate:")
	pdf.Cell(40, 10, fmt.Sprintf("%s%% annual", loan.InterestRate.String()))
	pdf.Ln(6)
	pdf.Cell(60, 10, "Tenor:")
	pdf.Cell(40, 10, fmt.Sprintf("%d months", loan.TenorMonths))
	pdf.Ln(12)

	if loan.Disbursement != nil {
		pdf.SetFont("Arial", "B", 12)
		pdf.Cell(40, 10, "Disbursement")
		pdf.Ln(8)
		pdf.SetFont("Arial", "", 10)
		pdf.Cell(60, 10, "Date:")
		pdf.Cell(40, 10, loan.Disbursement.DisbursementDate.Format("2006-01-02"))
		pdf.Ln(6)
		pdf.Cell(60, 10, "Amount:")
		pdf.Cell(40, 10, fmt.Sprintf("%s %s",
			loan.Disbursement.Amount.StringFixed(2), loan.Disbursement.Currency))
		pdf.Ln(6)
		pdf.Cell(60, 10, "Status:")
		pdf.Cell(40, 10, loan.Disbursement.Status)
		pdf.Ln(12)
	}

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(40, 10, "Totals Paid")
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(60, 10, "Principal:")
	pdf.Cell(40, 10, totals.PrincipalPaid.StringFixed(2))
	pdf.Ln(6)
	pdf.Cell(60, 10, "Interest:")
	pdf.Cell(40, 10, totals.InterestPaid.StringFixed(2))
	pdf.Ln(6)
	pdf.Cell(60, 10, "Late Fees:")
	pdf.Cell(40, 10, totals.LateFeePaid.StringFixed(2))
	pdf.Ln(6)
	pdf.Cell(60, 10, "Principal Remaining:")
	pdf.Cell(40, 10, principalRemaining.StringFixed(2))
	pdf.Ln(12)

	if len(loan.Payments) > 0 {
		pdf.SetFont("Arial", "B", 12)
		pdf.Cell(40, 10, "Recent Payments")
		pdf.Ln(8)
		pdf.SetFont("Arial", "", 10)

		limit := len(loan.Payments)
		if limit > 10 {
			limit = 10
		}
		for _, p := range loan.Payments[:limit] {
			pdf.Cell(40, 8, p.PaymentDate.Format("2006-01-02"))
			pdf.Cell(40, 8, p.Amount.StringFixed(2))
			pdf.Cell(40, 8, p.Status)
			pdf.Ln(6)
		}
	}

	buf := new(bytes.Buffer)
	if err := pdf.Output(buf); err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("loan_statement_%s_%s.pdf", loan.ID, time.Now().Format("2006-01-02"))
	return buf.Bytes(), filename, nil
}
