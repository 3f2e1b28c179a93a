// v0
// internal/report/report_test.go
package report

import (
	"bytes"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"salesops/recovery/internal/dataset"
	"salesops/recovery/internal/recovery"
)

var fixedNow = time.Date(2024, 3, 9, 14, 30, 0, 0, time.FixedZone("IST", 19800))

func buildFor(t *testing.T, region string, rates recovery.Rates) (Report, recovery.Scenario) {
	t.Helper()
	e := recovery.NewEngine(dataset.Builtin(), recovery.TopK)
	s := e.Evaluate(region, rates)
	return Build(s, e.Dataset(), fixedNow), s
}

func TestBuildSummary(t *testing.T) {
	rep, s := buildFor(t, "APTS", nil)

	assert.NotEmpty(t, rep.ID)
	assert.Equal(t, "2024-03-09T09:00:00Z", rep.Timestamp)
	assert.Equal(t, "APTS", rep.Region)
	assert.Equal(t, 14.8, rep.Summary.AvgTonnesPerCustomer)
	assert.Equal(t, 3, rep.Summary.CategoriesAnalyzed)
	assert.Equal(t, s.Result.GrandTotalTonnes, rep.Summary.GrandTotalTonnes)

	total := 0
	for _, rec := range dataset.Builtin().RegionRecords("APTS") {
		total += rec.TotalLost
	}
	assert.Equal(t, total, rep.Summary.TotalLost)
	assert.Len(t, rep.RawData, len(dataset.Builtin().RegionRecords("APTS")))

	require.NotNil(t, rep.Summary.HighestLossCategory)
	assert.Equal(t, s.Result.Categories[0].Category, rep.Summary.HighestLossCategory.Category)
	assert.Equal(t, s.Result.Categories[0].TotalLost, rep.Summary.HighestLossCategory.TotalLost)
}

func TestBuildProblemSummary(t *testing.T) {
	rates := recovery.Rates{
		{Category: 0, Priority: dataset.P1}: 10,
		{Category: 0, Priority: dataset.P2}: 20,
		{Category: 0, Priority: dataset.P3}: 30,
		{Category: 0, Priority: dataset.P4}: 40,
	}
	rep, s := buildFor(t, "WB", rates)

	require.Len(t, rep.ProblemSummary, len(s.Result.Categories))
	first := rep.ProblemSummary[0]
	assert.Equal(t, 25.0, first.AvgConversionRate)
	assert.Equal(t, 50.0, rep.ProblemSummary[1].AvgConversionRate)

	customers := 0
	for _, p := range s.Result.Categories[0].Priorities {
		customers += p.Customers
	}
	assert.Equal(t, customers, first.TotalCustomers)

	share := 0.0
	for _, ps := range rep.ProblemSummary {
		share += ps.SharePct
	}
	assert.InDelta(t, 100.0, share, 1e-9)
}

func TestBuildEmptyScenario(t *testing.T) {
	rep, _ := buildFor(t, "ZZ", nil)

	assert.Nil(t, rep.Summary.HighestLossCategory)
	assert.Equal(t, 0, rep.Summary.TotalLost)
	assert.Equal(t, 0, rep.Summary.CategoriesAnalyzed)
	assert.Equal(t, 0.0, rep.Summary.GrandTotalTonnes)
	assert.NotNil(t, rep.Analysis.Categories)
	assert.Empty(t, rep.ProblemSummary)
	assert.Empty(t, rep.RawData)

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, rep))
	assert.Contains(t, buf.String(), `"highestLossCategory": null`)
	assert.Contains(t, buf.String(), `"perCategory": []`)

	buf.Reset()
	require.NoError(t, WriteXLSX(&buf, rep))
	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(SheetDetailedAnalysis)
	require.NoError(t, err)
	assert.Len(t, rows, 1, "header only")
}

func TestJSONRoundTrip(t *testing.T) {
	rep, _ := buildFor(t, "TN", recovery.Rates{{Category: 2, Priority: dataset.P4}: 33})

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, rep))
	assert.Contains(t, buf.String(), `"priority": "P1"`)

	back, err := ReadJSON(&buf)
	require.NoError(t, err)
	assert.Equal(t, rep, back)
}

func TestReadJSONRejectsGarbage(t *testing.T) {
	_, err := ReadJSON(strings.NewReader("{not json"))
	assert.Error(t, err)
}

func TestWriteXLSXSheets(t *testing.T) {
	rep, s := buildFor(t, "KA", nil)

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, rep))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetExecutiveSummary, SheetDetailedAnalysis, SheetProblemSummary, SheetRawData}, f.GetSheetList())

	detail, err := f.GetRows(SheetDetailedAnalysis, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, detail, 1+len(s.Result.Categories)*dataset.PriorityCount)
	assert.Equal(t, "Category", detail[0][0])
	assert.Equal(t, s.Result.Categories[0].Category, detail[1][0])
	assert.Equal(t, "P1", detail[1][1])
	assert.Equal(t, "0.5", detail[1][3])
	assert.Equal(t, "Contributing", detail[0][7])
	assert.Equal(t, "Yes", detail[1][7])
	// "P- Other brand" has no P3 customers
	assert.Equal(t, "P3", detail[7][1])
	assert.Equal(t, "No", detail[7][7])

	tonnes, err := strconv.ParseFloat(detail[1][5], 64)
	require.NoError(t, err)
	assert.InDelta(t, s.Result.Categories[0].Priorities[0].PotentialTonnes, tonnes, 1e-9)

	summary, err := f.GetRows(SheetExecutiveSummary, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, summary, 10)
	assert.Equal(t, "KA", summary[3][1])
	grand, err := strconv.ParseFloat(summary[9][1], 64)
	require.NoError(t, err)
	assert.InDelta(t, s.Result.GrandTotalTonnes, grand, 1e-9)

	raw, err := f.GetRows(SheetRawData)
	require.NoError(t, err)
	assert.Len(t, raw, 1+len(rep.RawData))

	problems, err := f.GetRows(SheetProblemSummary)
	require.NoError(t, err)
	assert.Len(t, problems, 1+len(rep.ProblemSummary))
}

func TestRenderText(t *testing.T) {
	e := recovery.NewEngine(dataset.Builtin(), recovery.TopK)

	out := RenderText(e.Evaluate("APTS", nil))
	assert.Contains(t, out, "  - P1: 6 customers × 50% × 14.8 MT = 44.4 MT\n")
	assert.Contains(t, out, "Total Potential: 399.6 MT/month\n")
	assert.Contains(t, out, "TOTAL POTENTIAL RECOVERY: 917.6 MT/MONTH for APTS\n")

	mh := RenderText(e.Evaluate("MH", nil))
	credit := mh[:strings.Index(mh, "\n\n")]
	assert.NotContains(t, credit, "P1:")
	assert.NotContains(t, credit, "P3:")
	assert.Contains(t, credit, "P2:")

	empty := RenderText(e.Evaluate("ZZ", nil))
	assert.Contains(t, empty, "No loss categories for ZZ")
	assert.Contains(t, empty, "TOTAL POTENTIAL RECOVERY: 0.0 MT/MONTH for ZZ")
}

func TestOneDecimal(t *testing.T) {
	assert.Equal(t, "0.0", OneDecimal(0))
	assert.Equal(t, "44.4", OneDecimal(44.4))
	assert.Equal(t, "2.5", OneDecimal(2.45))
	assert.Equal(t, "-4.0", OneDecimal(-4))
	assert.Equal(t, "5.0", OneDecimal(1*0.5*10.1))
	assert.Equal(t, "833.2", OneDecimal(833.25))
	assert.Equal(t, "499.9", OneDecimal(499.95))
}

func TestRenderTextDefaultMH(t *testing.T) {
	e := recovery.NewEngine(dataset.Builtin(), recovery.TopK)
	out := RenderText(e.Evaluate("MH", nil))
	assert.Contains(t, out, "  - P1: 1 customers × 50% × 10.1 MT = 5.0 MT\n")
}

func TestFilename(t *testing.T) {
	rep := Report{Region: "A/B C", Timestamp: "2024-03-09T09:00:00Z"}
	assert.Equal(t, "recovery_A_B_C_20240309T090000Z.xlsx", Filename(rep, "xlsx"))
}
