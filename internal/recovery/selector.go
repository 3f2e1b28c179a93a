// v0
// internal/recovery/selector.go
package recovery

import (
	"sort"

	"github.com/samber/lo"

	"salesops/recovery/internal/dataset"
)

// TopK is the number of categories the dashboard analyses per region.
const TopK = 3

// SelectTop returns the k rows of region with the highest TotalLost. Rows
// with equal TotalLost keep their dataset order. An unknown region yields an
// empty slice so callers can render an empty state.
func SelectTop(records []dataset.LossRecord, region string, k int) []dataset.LossRecord {
	if k <= 0 {
		return []dataset.LossRecord{}
	}
	rows := lo.Filter(records, func(rec dataset.LossRecord, _ int) bool {
		return rec.Region == region
	})
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].TotalLost > rows[j].TotalLost
	})
	if len(rows) > k {
		rows = rows[:k]
	}
	return rows
}
