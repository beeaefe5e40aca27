package design

import "strings"

// Normalize maps a raw node id to its canonical name.
//
// Every character is lower-cased, anything outside [a-z0-9] becomes '_',
// and leading or trailing '_' are stripped. Non-ASCII letters are replaced
// too, so the result is always a plain identifier. Normalize is total and
// idempotent; it returns "" only when raw has no ASCII letter or digit.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range strings.ToLower(raw) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return strings.Trim(b.String(), "_")
}
