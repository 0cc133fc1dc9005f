// Package filenamify converts arbitrary strings into safe file names.
package filenamify

import "strings"

// Safe replaces every character that is not safe in a file name with an
// underscore. The result is deterministic: the same input always yields the
// same name, which lets callers derive stable per-URL paths.
func Safe(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
