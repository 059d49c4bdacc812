// Package services – ReportService
//
// This file builds the contact log spreadsheet export. The report lists every
// contact log ever recorded, soft-deleted ones included, with the deletion
// marker in its own columns.
package services

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/tbourn/go-contactlog-backend/internal/domain"
	"github.com/tbourn/go-contactlog-backend/internal/observability"
	"github.com/tbourn/go-contactlog-backend/internal/repo"
)

// ReportSheet is the worksheet name of the export.
const ReportSheet = "Contact logs"

// ReportHeaders are the column titles of the export, in order.
var ReportHeaders = []string{
	"ID",
	"Created",
	"Created by",
	"Contact date",
	"Type of contact",
	"Contact name",
	"Contact note",
	"AE identified",
	"AE receipt no",
	"Deleted",
	"Deleted by",
}

const reportTimeLayout = "02/01/2006 15:04"

// ReportService renders contact log exports.
type ReportService struct {
	DB     *gorm.DB
	Policy TimeWindowPolicy
}

// ExportXLSX writes all contact logs, deleted ones included, to an xlsx
// workbook and returns its bytes.
func (s *ReportService) ExportXLSX(ctx context.Context) (_ *bytes.Buffer, err error) {
	ctx, span := observability.StartSpan(ctx, "services/ReportService", "ExportXLSX")
	defer func() {
		outcome := observability.OutcomeOK
		if err != nil {
			outcome = observability.OutcomeError
		}
		observability.RecordContactLogOp(observability.OpExport, outcome)
		observability.EndSpan(span, err)
	}()

	rows, err := repo.ListContactLogsUnscoped(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("report.rows", len(rows)))
	observability.ObserveReportRows(len(rows))

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ReportSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	for i, h := range ReportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(ReportSheet, cell, h); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}
	headerStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	lastCol, _ := excelize.ColumnNumberToName(len(ReportHeaders))
	f.SetCellStyle(ReportSheet, "A1", lastCol+"1", headerStyle)
	f.SetColWidth(ReportSheet, "A", lastCol, 20)

	for i := range rows {
		if err := f.SetSheetRow(ReportSheet, fmt.Sprintf("A%d", i+2), s.reportRow(&rows[i])); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write excel buffer: %w", err)
	}
	return buf, nil
}

// reportRow flattens c into cell values matching ReportHeaders.
func (s *ReportService) reportRow(c *domain.ContactLog) *[]any {
	loc := s.Policy.loc()
	typeName := ""
	if c.TypeOfContact != nil {
		typeName = c.TypeOfContact.Name
	}
	deleted, deletedBy := "", ""
	if c.DeletedAt.Valid {
		deleted = c.DeletedAt.Time.In(loc).Format(reportTimeLayout)
	}
	if c.DeletedBy != nil {
		deletedBy = *c.DeletedBy
	}
	return &[]any{
		c.ID,
		c.CreatedAt.In(loc).Format(reportTimeLayout),
		c.AuthorName,
		c.ContactDate,
		typeName,
		c.ContactName,
		c.ContactNote,
		string(c.AdverseEventIdentified),
		c.AEReceiptNo,
		deleted,
		deletedBy,
	}
}
