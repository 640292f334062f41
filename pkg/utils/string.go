package utils

// Truncate shortens s to at most maxLen runes, marking the cut with "...".
// It never splits a multi-byte character.
func Truncate(s string, maxLen int) string {
	if maxLen < 0 {
		maxLen = 0
	}

	n := 0
	for i := range s {
		if n == maxLen {
			return s[:i] + "..."
		}
		n++
	}
	return s
}
