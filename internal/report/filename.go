// v0
// internal/report/filename.go
package report

import (
	"fmt"
	"strings"
	"time"
)

// Filename names a download, e.g. recovery_APTS_20240309T090000Z.xlsx.
func Filename(rep Report, ext string) string {
	stamp := rep.Timestamp
	if ts, err := time.Parse(time.RFC3339, rep.Timestamp); err == nil {
		stamp = ts.UTC().Format("20060102T150405Z")
	}
	region := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ' ', '"':
			return '_'
		}
		return r
	}, rep.Region)
	return fmt.Sprintf("recovery_%s_%s.%s", region, stamp, ext)
}
