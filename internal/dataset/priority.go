// v0
// internal/dataset/priority.go
package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Priority is the ordinal customer-priority bucket inside a loss category.
type Priority int

const (
	P1 Priority = iota
	P2
	P3
	P4
)

// PriorityCount is the number of priority buckets tracked per record.
const PriorityCount = 4

// ErrInvalidPriority is returned when a priority label cannot be parsed.
var ErrInvalidPriority = errors.New("invalid priority")

// Priorities lists the buckets in their fixed iteration order.
func Priorities() []Priority {
	return []Priority{P1, P2, P3, P4}
}

// Valid reports whether p is one of P1..P4.
func (p Priority) Valid() bool {
	return p >= P1 && p <= P4
}

func (p Priority) String() string {
	if !p.Valid() {
		return fmt.Sprintf("Priority(%d)", int(p))
	}
	return fmt.Sprintf("P%d", int(p)+1)
}

// ParsePriority accepts "P1".."P4" (case-insensitive) or the bare digits "1".."4".
func ParsePriority(raw string) (Priority, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.TrimPrefix(s, "P")
	switch s {
	case "1":
		return P1, nil
	case "2":
		return P2, nil
	case "3":
		return P3, nil
	case "4":
		return P4, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidPriority, raw)
}

// MarshalText renders the priority as "P1".."P4" in JSON and YAML documents.
func (p Priority) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPriority, int(p))
	}
	return []byte(p.String()), nil
}

func (p *Priority) UnmarshalText(text []byte) error {
	parsed, err := ParsePriority(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// PriorityCounts holds lost customers per bucket, indexed by Priority. JSON
// documents carry it as an object keyed "P1".."P4"; YAML keeps the list form.
type PriorityCounts [PriorityCount]int

func (c PriorityCounts) MarshalJSON() ([]byte, error) {
	m := make(map[Priority]int, PriorityCount)
	for _, p := range Priorities() {
		m[p] = c[p]
	}
	return json.Marshal(m)
}

func (c *PriorityCounts) UnmarshalJSON(data []byte) error {
	var m map[Priority]int
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("priority counts: %w", err)
	}
	var out PriorityCounts
	for p, n := range m {
		out[p] = n
	}
	*c = out
	return nil
}
