// v0
// internal/report/xlsx.go
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// Sheet names of the spreadsheet export, in workbook order.
const (
	SheetExecutiveSummary = "Executive Summary"
	SheetDetailedAnalysis = "Detailed Analysis"
	SheetProblemSummary   = "Problem Summary"
	SheetRawData          = "Raw Data"
)

// XLSXContentType is the media type of WriteXLSX output.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	fmtOneDecimal = "0.0"
	numFmtPercent = 9 // built-in "0%"
)

type workbook struct {
	f       *excelize.File
	tonnes  int
	percent int
	header  int
}

// WriteXLSX renders the four-sheet workbook. Tonnage cells keep full precision
// and are displayed with one decimal.
func WriteXLSX(w io.Writer, rep Report) error {
	f := excelize.NewFile()
	defer f.Close()

	wb, err := newWorkbook(f)
	if err != nil {
		return err
	}
	if err := wb.executiveSummary(rep); err != nil {
		return err
	}
	if err := wb.detailedAnalysis(rep); err != nil {
		return err
	}
	if err := wb.problemSummary(rep); err != nil {
		return err
	}
	if err := wb.rawData(rep); err != nil {
		return err
	}
	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func newWorkbook(f *excelize.File) (*workbook, error) {
	if err := f.SetSheetName("Sheet1", SheetExecutiveSummary); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetDetailedAnalysis, SheetProblemSummary, SheetRawData} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("new sheet %q: %w", name, err)
		}
	}

	oneDecimal := fmtOneDecimal
	tonnes, err := f.NewStyle(&excelize.Style{CustomNumFmt: &oneDecimal})
	if err != nil {
		return nil, fmt.Errorf("tonnes style: %w", err)
	}
	percent, err := f.NewStyle(&excelize.Style{NumFmt: numFmtPercent})
	if err != nil {
		return nil, fmt.Errorf("percent style: %w", err)
	}
	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	return &workbook{f: f, tonnes: tonnes, percent: percent, header: header}, nil
}

func (wb *workbook) row(sheet string, row int, values ...interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := wb.f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("%s row %d: %w", sheet, row, err)
	}
	return nil
}

func (wb *workbook) headerRow(sheet string, titles ...interface{}) error {
	if err := wb.row(sheet, 1, titles...); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(titles), 1)
	if err != nil {
		return err
	}
	return wb.f.SetCellStyle(sheet, "A1", last, wb.header)
}

// styleColumn applies style to rows [2, lastRow] of column col.
func (wb *workbook) styleColumn(sheet string, col, lastRow, style int) error {
	if lastRow < 2 {
		return nil
	}
	top, err := excelize.CoordinatesToCellName(col, 2)
	if err != nil {
		return err
	}
	bottom, err := excelize.CoordinatesToCellName(col, lastRow)
	if err != nil {
		return err
	}
	return wb.f.SetCellStyle(sheet, top, bottom, style)
}

func (wb *workbook) executiveSummary(rep Report) error {
	const sheet = SheetExecutiveSummary
	highestName, highestLost := "", interface{}("")
	if h := rep.Summary.HighestLossCategory; h != nil {
		highestName, highestLost = h.Category, h.TotalLost
	}
	rows := [][]interface{}{
		{"Metric", "Value"},
		{"Report ID", rep.ID},
		{"Generated", rep.Timestamp},
		{"Region", rep.Region},
		{"Total Lost Customers", rep.Summary.TotalLost},
		{"Avg Tonnes per Customer", rep.Summary.AvgTonnesPerCustomer},
		{"Categories Analyzed", rep.Summary.CategoriesAnalyzed},
		{"Highest Loss Category", highestName},
		{"Highest Loss Customers", highestLost},
		{"Total Potential Recovery (MT/month)", rep.Summary.GrandTotalTonnes},
	}
	if err := wb.headerRow(sheet, rows[0]...); err != nil {
		return err
	}
	for i, r := range rows[1:] {
		if err := wb.row(sheet, i+2, r...); err != nil {
			return err
		}
	}
	if err := wb.f.SetCellStyle(sheet, "B10", "B10", wb.tonnes); err != nil {
		return err
	}
	return wb.f.SetColWidth(sheet, "A", "B", 38)
}

func (wb *workbook) detailedAnalysis(rep Report) error {
	const sheet = SheetDetailedAnalysis
	if err := wb.headerRow(sheet,
		"Category", "Priority", "Lost Customers", "Conversion Rate",
		"Potential Customers", "Potential Tonnes", "Category Total Tonnes", "Contributing"); err != nil {
		return err
	}
	row := 2
	for _, cat := range rep.Analysis.Categories {
		for _, p := range cat.Priorities {
			if err := wb.row(sheet, row,
				cat.Category, p.Priority.String(), p.Customers, float64(p.Rate)/100,
				p.PotentialCustomers, p.PotentialTonnes, cat.CategoryTotalTonnes, yesNo(p.Contributing)); err != nil {
				return err
			}
			row++
		}
	}
	last := row - 1
	if err := wb.styleColumn(sheet, 4, last, wb.percent); err != nil {
		return err
	}
	for _, col := range []int{5, 6, 7} {
		if err := wb.styleColumn(sheet, col, last, wb.tonnes); err != nil {
			return err
		}
	}
	return wb.f.SetColWidth(sheet, "A", "A", 48)
}

func (wb *workbook) problemSummary(rep Report) error {
	const sheet = SheetProblemSummary
	if err := wb.headerRow(sheet,
		"Category", "Total Customers", "Avg Conversion Rate (%)",
		"Total Potential Tonnes", "Share of Total (%)"); err != nil {
		return err
	}
	for i, ps := range rep.ProblemSummary {
		if err := wb.row(sheet, i+2,
			ps.Category, ps.TotalCustomers, ps.AvgConversionRate,
			ps.CategoryTotalTonnes, ps.SharePct); err != nil {
			return err
		}
	}
	last := len(rep.ProblemSummary) + 1
	for _, col := range []int{3, 4, 5} {
		if err := wb.styleColumn(sheet, col, last, wb.tonnes); err != nil {
			return err
		}
	}
	return wb.f.SetColWidth(sheet, "A", "A", 48)
}

func (wb *workbook) rawData(rep Report) error {
	const sheet = SheetRawData
	if err := wb.headerRow(sheet,
		"Region", "Reason Category", "Total Lost", "P1", "P2", "P3", "P4",
		"Avg Tonnes per Customer"); err != nil {
		return err
	}
	for i, rec := range rep.RawData {
		if err := wb.row(sheet, i+2,
			rec.Region, rec.ReasonCategory, rec.TotalLost,
			rec.PriorityCounts[0], rec.PriorityCounts[1], rec.PriorityCounts[2], rec.PriorityCounts[3],
			rec.AvgTonnesPerCustomer); err != nil {
			return err
		}
	}
	return wb.f.SetColWidth(sheet, "B", "B", 48)
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
