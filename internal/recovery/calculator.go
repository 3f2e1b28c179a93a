// v0
// internal/recovery/calculator.go
package recovery

import "salesops/recovery/internal/dataset"

// PriorityBreakdown is the computation for one (category, priority) slider.
type PriorityBreakdown struct {
	Priority           dataset.Priority `json:"priority"`
	Customers          int              `json:"customers"`
	Rate               int              `json:"rate"`
	PotentialCustomers float64          `json:"potentialCustomers"`
	PotentialTonnes    float64          `json:"potentialTonnes"`
	// Contributing is false for buckets without customers. Such rows are kept
	// in every total but hidden from the human-readable breakdown.
	Contributing bool `json:"contributing"`
}

// CategoryBreakdown aggregates the four priority rows of one selected category.
type CategoryBreakdown struct {
	Category            string              `json:"category"`
	TotalLost           int                 `json:"totalLost"`
	Priorities          []PriorityBreakdown `json:"perPriority"`
	CategoryTotalTonnes float64             `json:"categoryTotalTonnes"`
}

// Result is the derived state of one recomputation pass. It is never stored;
// callers recompute it whenever an input changes.
type Result struct {
	Categories       []CategoryBreakdown `json:"perCategory"`
	GrandTotalTonnes float64             `json:"grandTotalTonnes"`
}

// Compute derives the recovery potential of the selected categories.
//
//	potentialCustomers = customers × rate / 100
//	potentialTonnes    = potentialCustomers × avgTonnes
//	categoryTotal      = Σ potentialTonnes over P1..P4
//	grandTotal         = Σ categoryTotal
//
// Sums run over unrounded float64 values; rounding belongs to the renderers.
// Rates are used as given (no clamping) and missing slots resolve to
// DefaultRate.
func Compute(categories []dataset.LossRecord, rates Rates, avgTonnes float64) Result {
	out := Result{Categories: make([]CategoryBreakdown, 0, len(categories))}
	for idx, rec := range categories {
		cat := CategoryBreakdown{
			Category:   rec.ReasonCategory,
			TotalLost:  rec.TotalLost,
			Priorities: make([]PriorityBreakdown, 0, dataset.PriorityCount),
		}
		for _, p := range dataset.Priorities() {
			customers := rec.Customers(p)
			rate := rates.Rate(idx, p)
			potentialCustomers := float64(customers) * (float64(rate) / 100)
			potentialTonnes := potentialCustomers * avgTonnes
			cat.Priorities = append(cat.Priorities, PriorityBreakdown{
				Priority:           p,
				Customers:          customers,
				Rate:               rate,
				PotentialCustomers: potentialCustomers,
				PotentialTonnes:    potentialTonnes,
				Contributing:       customers > 0,
			})
			cat.CategoryTotalTonnes += potentialTonnes
		}
		out.GrandTotalTonnes += cat.CategoryTotalTonnes
		out.Categories = append(out.Categories, cat)
	}
	return out
}
