// v0
// internal/recovery/rates.go
package recovery

import "salesops/recovery/internal/dataset"

const (
	// DefaultRate is the conversion percentage assumed for any slider that has
	// not reported a value yet.
	DefaultRate = 50
	MinRate     = 0
	MaxRate     = 100
)

// Slot addresses one conversion-rate slider: a selected category (by its
// position in the selector output) and a priority bucket.
type Slot struct {
	Category int
	Priority dataset.Priority
}

// Rates maps slots to integer percentages. A nil map is valid and resolves
// every slot to DefaultRate.
type Rates map[Slot]int

// Rate resolves the percentage of a slot, falling back to DefaultRate.
func (r Rates) Rate(category int, p dataset.Priority) int {
	if v, ok := r[Slot{Category: category, Priority: p}]; ok {
		return v
	}
	return DefaultRate
}

// Clone returns an independent copy.
func (r Rates) Clone() Rates {
	out := make(Rates, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// DefaultRates fills every slot of n categories with DefaultRate, which is the
// state of the sliders right after a region is (re)selected.
func DefaultRates(n int) Rates {
	out := make(Rates, n*dataset.PriorityCount)
	for c := 0; c < n; c++ {
		for _, p := range dataset.Priorities() {
			out[Slot{Category: c, Priority: p}] = DefaultRate
		}
	}
	return out
}

// ClampRate bounds a user supplied percentage to [MinRate, MaxRate]. Input
// boundaries call it; Compute never does.
func ClampRate(v int) int {
	if v < MinRate {
		return MinRate
	}
	if v > MaxRate {
		return MaxRate
	}
	return v
}
