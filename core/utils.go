package core

import "strings"

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// ChunkStrings splits `ss` into consecutive chunks of at most `size` elements.
func ChunkStrings(ss []string, size int) [][]string {
	if size <= 0 || len(ss) == 0 {
		return nil
	}
	chunks := make([][]string, 0, (len(ss)+size-1)/size)
	for size < len(ss) {
		chunks = append(chunks, ss[:size])
		ss = ss[size:]
	}
	return append(chunks, ss)
}
