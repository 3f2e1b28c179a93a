// v0
// internal/dataset/dataset.go
package dataset

import (
	"errors"
	"fmt"
	"strings"
)

// LossRecord is one row of the lost-customer table. PriorityCounts is indexed
// by Priority and is not required to add up to TotalLost.
type LossRecord struct {
	Region               string         `json:"region" yaml:"region"`
	ReasonCategory       string         `json:"reasonCategory" yaml:"reasonCategory"`
	TotalLost            int            `json:"totalLost" yaml:"totalLost"`
	PriorityCounts       PriorityCounts `json:"priorityCounts" yaml:"priorityCounts"`
	AvgTonnesPerCustomer float64        `json:"avgTonnesPerCustomer" yaml:"-"`
}

// Customers returns the customer count of a single priority bucket.
func (r LossRecord) Customers(p Priority) int {
	if !p.Valid() {
		return 0
	}
	return r.PriorityCounts[p]
}

// Dataset is the immutable in-memory table shared by every session. All
// accessors hand out copies so callers cannot mutate the shared rows.
type Dataset struct {
	records   []LossRecord
	avgTonnes map[string]float64
	regions   []string
}

var errEmptyDataset = errors.New("dataset has no records")

// New validates the rows and the region→average-tonnage table and returns the
// frozen dataset. Every record gets the average of its region attached.
func New(records []LossRecord, avgTonnes map[string]float64) (*Dataset, error) {
	if len(records) == 0 {
		return nil, errEmptyDataset
	}
	avg := make(map[string]float64, len(avgTonnes))
	for region, v := range avgTonnes {
		region = strings.TrimSpace(region)
		if region == "" {
			return nil, errors.New("average tonnage table contains an empty region")
		}
		if !(v > 0) {
			return nil, fmt.Errorf("average tonnes per customer for %s must be positive, got %v", region, v)
		}
		avg[region] = v
	}

	rows := make([]LossRecord, 0, len(records))
	seen := make(map[string]struct{})
	var regions []string
	for i, rec := range records {
		rec.Region = strings.TrimSpace(rec.Region)
		if rec.Region == "" {
			return nil, fmt.Errorf("record %d: region cannot be empty", i)
		}
		if rec.TotalLost < 0 {
			return nil, fmt.Errorf("record %d: totalLost must be >= 0, got %d", i, rec.TotalLost)
		}
		for _, p := range Priorities() {
			if rec.PriorityCounts[p] < 0 {
				return nil, fmt.Errorf("record %d: %s count must be >= 0, got %d", i, p, rec.PriorityCounts[p])
			}
		}
		v, ok := avg[rec.Region]
		if !ok {
			return nil, fmt.Errorf("record %d: no average tonnes per customer for region %s", i, rec.Region)
		}
		rec.AvgTonnesPerCustomer = v
		rows = append(rows, rec)
		if _, dup := seen[rec.Region]; !dup {
			seen[rec.Region] = struct{}{}
			regions = append(regions, rec.Region)
		}
	}

	return &Dataset{records: rows, avgTonnes: avg, regions: regions}, nil
}

// Regions lists the distinct regions in order of first appearance.
func (d *Dataset) Regions() []string {
	return append([]string(nil), d.regions...)
}

// DefaultRegion is the region preselected for a new session.
func (d *Dataset) DefaultRegion() string {
	return d.regions[0]
}

// HasRegion reports whether at least one row belongs to region.
func (d *Dataset) HasRegion(region string) bool {
	for _, r := range d.regions {
		if r == region {
			return true
		}
	}
	return false
}

// Records returns a copy of all rows in dataset order.
func (d *Dataset) Records() []LossRecord {
	return append([]LossRecord(nil), d.records...)
}

// RegionRecords returns a copy of the rows of one region in dataset order.
func (d *Dataset) RegionRecords(region string) []LossRecord {
	var out []LossRecord
	for _, rec := range d.records {
		if rec.Region == region {
			out = append(out, rec)
		}
	}
	return out
}

// AvgTonnes looks up the average tonnes per customer of a region.
func (d *Dataset) AvgTonnes(region string) (float64, bool) {
	v, ok := d.avgTonnes[region]
	return v, ok
}

// Len is the number of rows.
func (d *Dataset) Len() int {
	return len(d.records)
}
