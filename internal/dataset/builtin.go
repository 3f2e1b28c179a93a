// v0
// internal/dataset/builtin.go
package dataset

// Builtin returns the static table the dashboard ships with.
func Builtin() *Dataset {
	d, err := New(builtinRecords(), builtinAvgTonnes())
	if err != nil {
		// The literal table below is covered by tests; failing here is a programming error.
		panic(err)
	}
	return d
}

func builtinAvgTonnes() map[string]float64 {
	return map[string]float64{
		"APTS": 14.8,
		"WB":   31.5,
		"MH":   10.1,
		"TN":   21.5,
		"KA":   15.2,
	}
}

const (
	reasonBidding     = "Bidding/ Requirement cancelled/ Uncertain/ Delay"
	reasonSameBrand   = "P- Same brand"
	reasonOtherBrand  = "P- Other brand"
	reasonPriceDiscov = "Price discovery"
	reasonCredit      = "Credit"
	reasonOthers      = "Others"
)

func builtinRecords() []LossRecord {
	row := func(region, reason string, total, p1, p2, p3, p4 int) LossRecord {
		return LossRecord{
			Region:         region,
			ReasonCategory: reason,
			TotalLost:      total,
			PriorityCounts: PriorityCounts{p1, p2, p3, p4},
		}
	}
	return []LossRecord{
		row("APTS", reasonBidding, 54, 6, 4, 8, 36),
		row("APTS", reasonSameBrand, 37, 1, 4, 3, 29),
		row("APTS", reasonPriceDiscov, 33, 1, 3, 3, 26),
		row("KA", reasonSameBrand, 66, 11, 9, 8, 38),
		row("KA", reasonOtherBrand, 11, 1, 4, 0, 6),
		row("KA", reasonCredit, 7, 0, 0, 1, 6),
		row("MH", reasonCredit, 113, 0, 3, 0, 110),
		row("MH", reasonSameBrand, 46, 1, 1, 2, 42),
		row("MH", reasonBidding, 45, 3, 5, 5, 32),
		row("TN", reasonPriceDiscov, 53, 9, 7, 3, 34),
		row("TN", reasonOthers, 20, 5, 4, 3, 8),
		row("TN", reasonBidding, 17, 5, 1, 0, 11),
		row("WB", reasonPriceDiscov, 20, 2, 3, 0, 15),
		row("WB", reasonBidding, 11, 1, 2, 1, 7),
		row("WB", reasonOthers, 9, 0, 2, 2, 5),
	}
}
