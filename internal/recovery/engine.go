// v0
// internal/recovery/engine.go
package recovery

import "salesops/recovery/internal/dataset"

// Scenario is one evaluated (region, rates) pair: the selector output and the
// calculation derived from it.
type Scenario struct {
	Region               string               `json:"region"`
	AvgTonnesPerCustomer float64              `json:"avgTonnesPerCustomer"`
	Problems             []dataset.LossRecord `json:"problems"`
	Rates                Rates                `json:"-"`
	Result               Result               `json:"result"`
}

// Engine threads the shared dataset through the selector and the calculator.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	data *dataset.Dataset
	topK int
}

// NewEngine binds the dataset; topK <= 0 selects TopK.
func NewEngine(data *dataset.Dataset, topK int) *Engine {
	if topK <= 0 {
		topK = TopK
	}
	return &Engine{data: data, topK: topK}
}

// Dataset exposes the read-only table.
func (e *Engine) Dataset() *dataset.Dataset {
	return e.data
}

// Problems runs the selector for region.
func (e *Engine) Problems(region string) []dataset.LossRecord {
	return SelectTop(e.data.Records(), region, e.topK)
}

// Evaluate runs selector and calculator for one interaction. Unknown regions
// evaluate to an empty scenario with a zero total.
func (e *Engine) Evaluate(region string, rates Rates) Scenario {
	problems := e.Problems(region)
	avg, _ := e.data.AvgTonnes(region)
	return Scenario{
		Region:               region,
		AvgTonnesPerCustomer: avg,
		Problems:             problems,
		Rates:                rates.Clone(),
		Result:               Compute(problems, rates, avg),
	}
}
