// File: internal/infra/metrics/metrics.go
package metrics

import "strings"

// norm keeps label values lowercase and bounded; anything odd becomes "other".
func norm(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || len(s) > 32 {
		return "other"
	}
	return s
}
