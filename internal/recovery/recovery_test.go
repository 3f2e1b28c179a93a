// v0
// internal/recovery/recovery_test.go
package recovery

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesops/recovery/internal/dataset"
)

const biddingLabel = "Bidding/ Requirement cancelled/ Uncertain/ Delay"

func TestSelectTopSortedAndBounded(t *testing.T) {
	d := dataset.Builtin()
	for _, region := range d.Regions() {
		got := SelectTop(d.Records(), region, TopK)
		assert.LessOrEqual(t, len(got), TopK, region)
		for i := 1; i < len(got); i++ {
			assert.GreaterOrEqual(t, got[i-1].TotalLost, got[i].TotalLost, region)
		}
		for _, rec := range got {
			assert.Equal(t, region, rec.Region)
		}
	}

	top := SelectTop(d.Records(), "APTS", TopK)
	require.Len(t, top, 3)
	assert.Equal(t, biddingLabel, top[0].ReasonCategory)
}

func TestSelectTopStableOnTies(t *testing.T) {
	rows := []dataset.LossRecord{
		{Region: "R", ReasonCategory: "small", TotalLost: 1},
		{Region: "R", ReasonCategory: "first", TotalLost: 7},
		{Region: "X", ReasonCategory: "other region", TotalLost: 99},
		{Region: "R", ReasonCategory: "second", TotalLost: 7},
		{Region: "R", ReasonCategory: "third", TotalLost: 7},
		{Region: "R", ReasonCategory: "fourth", TotalLost: 7},
	}

	got := SelectTop(rows, "R", 3)
	require.Len(t, got, 3)
	assert.Equal(t, "first", got[0].ReasonCategory)
	assert.Equal(t, "second", got[1].ReasonCategory)
	assert.Equal(t, "third", got[2].ReasonCategory)

	assert.Equal(t, "small", rows[0].ReasonCategory, "input must not be reordered")
}

func TestSelectTopUnknownRegionIsEmpty(t *testing.T) {
	got := SelectTop(dataset.Builtin().Records(), "ZZ", TopK)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	assert.Empty(t, SelectTop(dataset.Builtin().Records(), "APTS", 0))
}

func TestComputeAPTSTopCategoryAtHalf(t *testing.T) {
	e := NewEngine(dataset.Builtin(), TopK)
	s := e.Evaluate("APTS", nil)

	require.Len(t, s.Result.Categories, 3)
	first := s.Result.Categories[0]
	assert.Equal(t, biddingLabel, first.Category)
	assert.InDelta(t, 399.6, first.CategoryTotalTonnes, 1e-9)
	assert.Equal(t, 14.8, s.AvgTonnesPerCustomer)

	require.Len(t, first.Priorities, 4)
	assert.Equal(t, dataset.P1, first.Priorities[0].Priority)
	assert.Equal(t, 6, first.Priorities[0].Customers)
	assert.Equal(t, 50, first.Priorities[0].Rate)
	assert.InDelta(t, 3.0, first.Priorities[0].PotentialCustomers, 1e-12)
	assert.InDelta(t, 44.4, first.Priorities[0].PotentialTonnes, 1e-9)

	assert.InDelta(t, 917.6, s.Result.GrandTotalTonnes, 1e-9)
}

func TestComputeGrandTotalIsSumOfCategories(t *testing.T) {
	e := NewEngine(dataset.Builtin(), TopK)
	rates := Rates{
		{Category: 0, Priority: dataset.P1}: 13,
		{Category: 1, Priority: dataset.P4}: 87,
		{Category: 2, Priority: dataset.P2}: 3,
	}
	for _, region := range e.Dataset().Regions() {
		res := e.Evaluate(region, rates).Result
		sum := 0.0
		for _, cat := range res.Categories {
			catSum := 0.0
			for _, p := range cat.Priorities {
				catSum += p.PotentialTonnes
			}
			assert.InEpsilon(t, catSum, cat.CategoryTotalTonnes, 1e-9)
			sum += cat.CategoryTotalTonnes
		}
		assert.InEpsilon(t, sum, res.GrandTotalTonnes, 1e-9, region)
	}
}

func TestComputeIsIdempotent(t *testing.T) {
	problems := SelectTop(dataset.Builtin().Records(), "TN", TopK)
	rates := Rates{{Category: 1, Priority: dataset.P3}: 71}

	a := Compute(problems, rates, 21.5)
	b := Compute(problems, rates, 21.5)
	assert.Equal(t, a, b)
	assert.Equal(t, 71, rates[Slot{Category: 1, Priority: dataset.P3}])
	assert.Len(t, rates, 1, "compute must not fill missing slots")
}

func TestComputeMonotonicInEveryRate(t *testing.T) {
	e := NewEngine(dataset.Builtin(), TopK)
	for _, region := range e.Dataset().Regions() {
		n := len(e.Problems(region))
		for c := 0; c < n; c++ {
			for _, p := range dataset.Priorities() {
				prev := math.Inf(-1)
				for _, v := range []int{0, 10, 35, 50, 51, 90, 100} {
					rates := DefaultRates(n)
					rates[Slot{Category: c, Priority: p}] = v
					total := e.Evaluate(region, rates).Result.GrandTotalTonnes
					assert.GreaterOrEqual(t, total, prev, "%s c=%d %s v=%d", region, c, p, v)
					prev = total
				}
			}
		}
	}
}

func TestComputeBoundaryRates(t *testing.T) {
	e := NewEngine(dataset.Builtin(), TopK)
	for _, region := range e.Dataset().Regions() {
		problems := e.Problems(region)
		zero := make(Rates)
		full := make(Rates)
		customers := 0
		for c, rec := range problems {
			for _, p := range dataset.Priorities() {
				zero[Slot{Category: c, Priority: p}] = 0
				full[Slot{Category: c, Priority: p}] = 100
				customers += rec.Customers(p)
			}
		}
		avg, _ := e.Dataset().AvgTonnes(region)

		assert.Equal(t, 0.0, e.Evaluate(region, zero).Result.GrandTotalTonnes, region)
		assert.InEpsilon(t, float64(customers)*avg, e.Evaluate(region, full).Result.GrandTotalTonnes, 1e-9, region)
	}
}

func TestComputeFlagsZeroCustomerRowsButKeepsThem(t *testing.T) {
	e := NewEngine(dataset.Builtin(), TopK)
	s := e.Evaluate("MH", nil)

	credit := s.Result.Categories[0]
	require.Equal(t, "Credit", credit.Category)
	require.Len(t, credit.Priorities, 4)
	assert.False(t, credit.Priorities[0].Contributing)
	assert.False(t, credit.Priorities[2].Contributing)
	assert.True(t, credit.Priorities[1].Contributing)
	assert.Equal(t, 0.0, credit.Priorities[0].PotentialTonnes)
	assert.InDelta(t, (3+110)*0.5*10.1, credit.CategoryTotalTonnes, 1e-9)
}

func TestComputeDoesNotValidateRates(t *testing.T) {
	rec := dataset.LossRecord{Region: "R", ReasonCategory: "c", TotalLost: 10, PriorityCounts: dataset.PriorityCounts{10, 0, 0, 0}}
	res := Compute([]dataset.LossRecord{rec}, Rates{{Category: 0, Priority: dataset.P1}: 150}, 2)
	assert.InDelta(t, 30.0, res.GrandTotalTonnes, 1e-9)

	res = Compute([]dataset.LossRecord{rec}, Rates{{Category: 0, Priority: dataset.P1}: -20}, 2)
	assert.InDelta(t, -4.0, res.GrandTotalTonnes, 1e-9)
}

func TestEvaluateUnknownRegion(t *testing.T) {
	s := NewEngine(dataset.Builtin(), 0).Evaluate("ZZ", nil)
	assert.Empty(t, s.Problems)
	assert.Empty(t, s.Result.Categories)
	assert.Equal(t, 0.0, s.Result.GrandTotalTonnes)
	assert.Equal(t, 0.0, s.AvgTonnesPerCustomer)
}

func TestRatesHelpers(t *testing.T) {
	defaults := DefaultRates(2)
	assert.Len(t, defaults, 8)
	assert.Equal(t, DefaultRate, defaults.Rate(1, dataset.P4))
	assert.Equal(t, DefaultRate, Rates(nil).Rate(5, dataset.P1))

	clone := defaults.Clone()
	clone[Slot{Category: 0, Priority: dataset.P1}] = 5
	assert.Equal(t, DefaultRate, defaults.Rate(0, dataset.P1))

	assert.Equal(t, 0, ClampRate(-3))
	assert.Equal(t, 100, ClampRate(250))
	assert.Equal(t, 42, ClampRate(42))
}
