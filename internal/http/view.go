// v0
// internal/http/view.go
package httpserver

import (
	"fmt"

	"salesops/recovery/internal/dataset"
	"salesops/recovery/internal/recovery"
	"salesops/recovery/internal/session"
)

// RateView is the wire form of one slider.
type RateView struct {
	Category int              `json:"category"`
	Priority dataset.Priority `json:"priority"`
	Value    int              `json:"value"`
}

// RateUpdate is one slider change sent by a client. Priority has no default:
// an update without one is rejected.
type RateUpdate struct {
	Category int               `json:"category"`
	Priority *dataset.Priority `json:"priority"`
	Value    int               `json:"value"`
}

var errMissingPriority = fmt.Errorf("%w: priority is required", dataset.ErrInvalidPriority)

func (u RateUpdate) slot() (recovery.Slot, error) {
	if u.Priority == nil {
		return recovery.Slot{}, fmt.Errorf("%w: %w", session.ErrUnknownSlot, errMissingPriority)
	}
	return recovery.Slot{Category: u.Category, Priority: *u.Priority}, nil
}

// ScenarioView is what the dashboard renders after every interaction.
type ScenarioView struct {
	SessionID            string               `json:"sessionId,omitempty"`
	Region               string               `json:"region"`
	AvgTonnesPerCustomer float64              `json:"avgTonnesPerCustomer"`
	Problems             []dataset.LossRecord `json:"problems"`
	Rates                []RateView           `json:"rates"`
	Result               recovery.Result      `json:"result"`
}

// RegionView summarises one selectable region.
type RegionView struct {
	Region               string  `json:"region"`
	AvgTonnesPerCustomer float64 `json:"avgTonnesPerCustomer"`
	TotalLost            int     `json:"totalLost"`
	Categories           int     `json:"categories"`
}

func newScenarioView(sessionID string, s recovery.Scenario) ScenarioView {
	problems := s.Problems
	if problems == nil {
		problems = []dataset.LossRecord{}
	}
	return ScenarioView{
		SessionID:            sessionID,
		Region:               s.Region,
		AvgTonnesPerCustomer: s.AvgTonnesPerCustomer,
		Problems:             problems,
		Rates:                rateViews(s.Rates, len(problems)),
		Result:               s.Result,
	}
}

// rateViews lists every slider of n categories, missing slots resolved to the
// default, ordered by category then priority.
func rateViews(rates recovery.Rates, n int) []RateView {
	out := make([]RateView, 0, n*dataset.PriorityCount)
	for c := 0; c < n; c++ {
		for _, p := range dataset.Priorities() {
			out = append(out, RateView{Category: c, Priority: p, Value: rates.Rate(c, p)})
		}
	}
	return out
}

// ratesFromUpdates converts client sliders, clamping values and rejecting
// slots outside the current selection.
func ratesFromUpdates(in []RateUpdate, categories int) (recovery.Rates, error) {
	out := recovery.DefaultRates(categories)
	for _, u := range in {
		slot, err := u.slot()
		if err != nil {
			return nil, err
		}
		if slot.Category < 0 || slot.Category >= categories {
			return nil, fmt.Errorf("%w: category %d of %d", session.ErrUnknownSlot, slot.Category, categories)
		}
		if !slot.Priority.Valid() {
			return nil, fmt.Errorf("%w: %w", session.ErrUnknownSlot, dataset.ErrInvalidPriority)
		}
		out[slot] = recovery.ClampRate(u.Value)
	}
	return out, nil
}
