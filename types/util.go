package types

import "strings"

func lowerJoin(title, summary string) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(title))
	b.WriteByte(' ')
	b.WriteString(strings.ToLower(summary))
	return b.String()
}

// Clamp restricts v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
