// v0
// internal/report/report.go
package report

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"salesops/recovery/internal/dataset"
	"salesops/recovery/internal/recovery"
)

// Report is the canonical export payload. Every serialized artifact (JSON,
// spreadsheet) is rendered from one Report value so the files never disagree.
// It only contains plain values.
type Report struct {
	ID             string               `json:"id"`
	Timestamp      string               `json:"timestamp"`
	Region         string               `json:"region"`
	Summary        Summary              `json:"summary"`
	Analysis       recovery.Result      `json:"analysis"`
	ProblemSummary []ProblemSummaryRow  `json:"problemSummary"`
	RawData        []dataset.LossRecord `json:"rawData"`
}

// Summary is the executive block of the export.
type Summary struct {
	TotalLost            int     `json:"totalLost"`
	AvgTonnesPerCustomer float64 `json:"avgTonnesPerCustomer"`
	CategoriesAnalyzed   int     `json:"categoriesAnalyzed"`
	// HighestLossCategory is nil when no category was analyzed.
	HighestLossCategory *HighestLoss `json:"highestLossCategory"`
	GrandTotalTonnes    float64      `json:"grandTotalTonnes"`
}

// HighestLoss names the analyzed category with the largest TotalLost.
type HighestLoss struct {
	Category  string `json:"category"`
	TotalLost int    `json:"totalLost"`
}

// ProblemSummaryRow condenses one analyzed category.
type ProblemSummaryRow struct {
	Category            string  `json:"category"`
	TotalCustomers      int     `json:"totalCustomers"`
	AvgConversionRate   float64 `json:"avgConversionRate"`
	CategoryTotalTonnes float64 `json:"categoryTotalTonnes"`
	SharePct            float64 `json:"sharePct"`
}

// Build assembles the export of one evaluated scenario. The summary totals are
// taken from every dataset row of the region, not only the analyzed
// categories. An empty scenario yields an empty report with a zero total and
// no highest-loss category.
func Build(s recovery.Scenario, data *dataset.Dataset, now time.Time) Report {
	region, result := s.Region, s.Result
	raw := data.RegionRecords(region)
	if raw == nil {
		raw = []dataset.LossRecord{}
	}
	avg, _ := data.AvgTonnes(region)

	categories := result.Categories
	if categories == nil {
		categories = []recovery.CategoryBreakdown{}
	}

	var highest *HighestLoss
	if len(categories) > 0 {
		top := lo.MaxBy(categories, func(a, b recovery.CategoryBreakdown) bool {
			return a.TotalLost > b.TotalLost
		})
		highest = &HighestLoss{Category: top.Category, TotalLost: top.TotalLost}
	}

	return Report{
		ID:        uuid.NewString(),
		Timestamp: now.UTC().Format(time.RFC3339),
		Region:    region,
		Summary: Summary{
			TotalLost:            lo.SumBy(raw, func(r dataset.LossRecord) int { return r.TotalLost }),
			AvgTonnesPerCustomer: avg,
			CategoriesAnalyzed:   len(categories),
			HighestLossCategory:  highest,
			GrandTotalTonnes:     result.GrandTotalTonnes,
		},
		Analysis: recovery.Result{
			Categories:       categories,
			GrandTotalTonnes: result.GrandTotalTonnes,
		},
		ProblemSummary: problemSummary(categories, result.GrandTotalTonnes),
		RawData:        raw,
	}
}

func problemSummary(categories []recovery.CategoryBreakdown, grandTotal float64) []ProblemSummaryRow {
	rows := make([]ProblemSummaryRow, 0, len(categories))
	for _, cat := range categories {
		row := ProblemSummaryRow{
			Category:            cat.Category,
			TotalCustomers:      lo.SumBy(cat.Priorities, func(p recovery.PriorityBreakdown) int { return p.Customers }),
			CategoryTotalTonnes: cat.CategoryTotalTonnes,
		}
		if n := len(cat.Priorities); n > 0 {
			rateSum := lo.SumBy(cat.Priorities, func(p recovery.PriorityBreakdown) int { return p.Rate })
			row.AvgConversionRate = float64(rateSum) / float64(n)
		}
		if grandTotal != 0 {
			row.SharePct = cat.CategoryTotalTonnes / grandTotal * 100
		}
		rows = append(rows, row)
	}
	return rows
}
