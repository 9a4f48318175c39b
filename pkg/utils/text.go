// Package utils holds small helpers shared across packages: logger
// construction, embedding normalization, and snippet truncation.
package utils

// Truncate caps s at maxLen bytes for display in classification reasons,
// marking the cut with an ellipsis. Non-positive maxLen disables truncation.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
