package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/fintlabs/lending-api/internal/models"
	"github.com/fintlabs/lending-api/internal/repository"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// ExportService renders a loan's repayment schedule as downloadable files
type ExportService struct {
	repos *repository.Repositories
}

// NewExportService creates a new export service
func NewExportService(repos *repository.Repositories) *ExportService {
	return &ExportService{repos: repos}
}

func (s *ExportService) loadSchedule(ctx context.Context, loanID uuid.UUID) (*models.Loan, []models.RepaymentSchedule, error) {
	loan, err := s.repos.Loan.FindByID(ctx, loanID)
	if err != nil {
		if translateDBError(err) == ErrNotFound {
			return nil, nil, fmt.Errorf("%w: loan %s", ErrNotFound, loanID)
		}
		return nil, nil, err
	}
	entries, err := s.repos.Schedule.FindByLoan(ctx, loanID)
	if err != nil {
		return nil, nil, translateDBError(err)
	}
	return loan, entries, nil
}

// ExportScheduleCSV writes the schedule as CSV
func (s *ExportService) ExportScheduleCSV(ctx context.Context, loanID uuid.UUID) ([]byte, string, error) {
	loan, entries, err := s.loadSchedule(ctx, loanID)
	if err != nil {
		return nil, "", err
	}

	buf := new(bytes.Buffer)
	writer := csv.NewWriter(buf)

	_ = writer.Write([]string{"Repayment Schedule", loan.ID.String()})
	_ = writer.Write([]string{""})
	_ = writer.Write([]string{"Installment", "Due Date", "Principal", "Interest", "Total", "Status", "Paid Date"})

	for _, entry := range entries {
		paidDate := ""
		if entry.PaidDate != nil {
			paidDate = entry.PaidDate.Format("2006-01-02")
		}
		_ = writer.Write([]string{
			fmt.Sprintf("%d", entry.InstallmentNumber),
			entry.DueDate.Format("2006-01-02"),
			entry.PrincipalAmount.StringFixed(2),
			entry.InterestAmount.StringFixed(2),
			entry.TotalDue().StringFixed(2),
			entry.Status,
			paidDate,
		})
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("schedule_%s_%s.csv", loan.ID, time.Now().Format("2006-01-02"))
	return buf.Bytes(), filename, nil
}

// ExportScheduleXLSX writes the schedule as an Excel workbook
func (s *ExportService) ExportScheduleXLSX(ctx context.Context, loanID uuid.UUID) ([]byte, string, error) {
	loan, entries, err := s.loadSchedule(ctx, loanID)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Schedule"
	_ = f.SetSheetName("Sheet1", sheet)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 12},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})

	_ = f.SetCellValue(sheet, "A1", "Repayment Schedule")
	_ = f.SetCellValue(sheet, "B1", loan.ID.String())
	_ = f.SetCellStyle(sheet, "A1", "B1", headerStyle)

	headers := []string{"Installment", "Due Date", "Principal", "Interest", "Total", "Status", "Paid Date"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 3)
		_ = f.SetCellValue(sheet, cell, h)
		_ = f.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	for row, entry := range entries {
		values := []any{
			entry.InstallmentNumber,
			entry.DueDate.Format("2006-01-02"),
			entry.PrincipalAmount.InexactFloat64(),
			entry.InterestAmount.InexactFloat64(),
			entry.TotalDue().InexactFloat64(),
			entry.Status,
		}
		if entry.PaidDate != nil {
			values = append(values, entry.PaidDate.Format("2006-01-02"))
		} else {
			values = append(values, "")
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+4)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("schedule_%s_%s.xlsx", loan.ID, time.Now().Format("2006-01-02"))
	return buf.Bytes(), filename, nil
}
