package services

import (
	"fmt"
	"time"

	"github.com/docurisk/backend/internal/models"
	"github.com/xuri/excelize/v2"
)

// ReportGenerator renders a job's accumulated results into an XLSX workbook:
// one row per input document on the assessment sheet, plus a sheet listing
// failed documents by name and reason.
type ReportGenerator struct{}

func NewReportGenerator() *ReportGenerator {
	return &ReportGenerator{}
}

var reportHeaders = []string{
	"Document",
	"Applicant Number",
	"Borrower Name",
	"Property Address",
	"Property Type",
	"State",
	"Document Date",
	"Mutation Status",
	"Adverse Entries",
	"Adverse Remarks",
	"Risk Rating",
	"Enforceability",
	"Confidence Score",
	"Rationale",
	"Recommended Actions",
	"Chunks Processed",
	"Processed At",
}

// Generate returns the workbook bytes for a finished (or partially failed)
// job ledger.
func (g *ReportGenerator) Generate(state *models.ProcessingQueueState) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Risk Assessment"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	for i, h := range reportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}

	for row, r := range state.Results {
		write := func(col int, v interface{}) {
			cell, _ := excelize.CoordinatesToCellName(col, row+2)
			_ = f.SetCellValue(sheet, cell, v)
		}
		chunks := r.ChunksProcessed
		if chunks == 0 {
			chunks = 1
		}
		write(1, r.DocumentName)
		write(2, r.ApplicantNumber)
		write(3, r.BorrowerName)
		write(4, r.PropertyAddress)
		write(5, r.PropertyType)
		write(6, r.State)
		write(7, r.DocumentDate)
		write(8, r.MutationStatus)
		write(9, r.AdverseEntries)
		write(10, r.AdverseRemarks)
		write(11, r.RiskRating)
		write(12, r.EnforceabilityDecision)
		write(13, r.ConfidenceScore)
		write(14, r.Rationale)
		write(15, r.RecommendedActions)
		write(16, chunks)
		if !r.ProcessedAt.IsZero() {
			write(17, r.ProcessedAt.Format(time.RFC3339))
		}
	}

	if len(state.FailedDocuments) > 0 {
		const failedSheet = "Failed Documents"
		if _, err := f.NewSheet(failedSheet); err != nil {
			return nil, err
		}
		_ = f.SetCellValue(failedSheet, "A1", "Document")
		_ = f.SetCellValue(failedSheet, "B1", "Reason")
		for i, fd := range state.FailedDocuments {
			cellA, _ := excelize.CoordinatesToCellName(1, i+2)
			cellB, _ := excelize.CoordinatesToCellName(2, i+2)
			_ = f.SetCellValue(failedSheet, cellA, fd.Name)
			_ = f.SetCellValue(failedSheet, cellB, fd.Reason)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render report workbook: %w", err)
	}
	return buf.Bytes(), nil
}
