// v0
// internal/report/text.go
package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"salesops/recovery/internal/recovery"
)

// OneDecimal formats a value for display. Rounding is applied to the exact
// binary value, so 5.05 (stored as 5.0499...) renders as 5.0.
func OneDecimal(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

// RenderText reproduces the result cards of the dashboard. Priority rows
// without customers are left out of the detail lines but are part of every
// total.
func RenderText(s recovery.Scenario) string {
	var b strings.Builder
	avg := decimal.NewFromFloat(s.AvgTonnesPerCustomer).String()

	if len(s.Result.Categories) == 0 {
		fmt.Fprintf(&b, "No loss categories for %s\n", s.Region)
	}
	for _, cat := range s.Result.Categories {
		fmt.Fprintf(&b, "%s\n", cat.Category)
		fmt.Fprintf(&b, "Total Potential: %s MT/month\n", OneDecimal(cat.CategoryTotalTonnes))
		for _, p := range cat.Priorities {
			if !p.Contributing {
				continue
			}
			fmt.Fprintf(&b, "  - %s: %d customers × %d%% × %s MT = %s MT\n",
				p.Priority, p.Customers, p.Rate, avg, OneDecimal(p.PotentialTonnes))
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "TOTAL POTENTIAL RECOVERY: %s MT/MONTH for %s\n", OneDecimal(s.Result.GrandTotalTonnes), s.Region)
	return b.String()
}
