// Package strings holds small slice-of-string helpers shared by the models.
package strings

import (
	"strings"
)

// DedupeFold trims every element, drops empty ones and removes later
// elements that equal an earlier one under Unicode case folding. The first
// spelling wins and order is preserved.
//
//	DedupeFold([]string{" Halal ", "halal", "", "Nut-free"})
//	// []string{"Halal", "Nut-free"}
func DedupeFold(values []string) []string {
	if values == nil {
		return nil
	}
	result := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" || containsFold(result, trimmed) {
			continue
		}
		result = append(result, trimmed)
	}
	return result
}

func containsFold(values []string, s string) bool {
	for _, v := range values {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
