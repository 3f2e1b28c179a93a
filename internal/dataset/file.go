// v0
// internal/dataset/file.go
package dataset

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// fileDocument is the YAML layout accepted by Load:
//
//	avgTonnesPerCustomer:
//	  APTS: 14.8
//	records:
//	  - region: APTS
//	    reasonCategory: Price discovery
//	    totalLost: 33
//	    priorityCounts: [1, 3, 3, 26]
type fileDocument struct {
	AvgTonnesPerCustomer map[string]float64 `yaml:"avgTonnesPerCustomer"`
	Records              []LossRecord       `yaml:"records"`
}

// Load reads a dataset from a YAML file. An empty path yields the builtin table.
func Load(path string) (*Dataset, error) {
	if path == "" {
		return Builtin(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset %q: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	d, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("dataset %q: %w", path, err)
	}
	return d, nil
}

// Decode parses the YAML document and validates it through New.
func Decode(r io.Reader) (*Dataset, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc fileDocument
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse dataset: %w", err)
	}
	return New(doc.Records, doc.AvgTonnesPerCustomer)
}
