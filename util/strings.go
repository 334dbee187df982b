package util

import "strings"

//----------------------------------------------------------------------------------------------------
// Helper Functions for Optional Fields and Display Names
//----------------------------------------------------------------------------------------------------

// ValueOrDefault helps handle *string pointers safely.
func ValueOrDefault(s *string) string {
	if s != nil {
		return *s
	}
	return ""
}

// ValueOr returns the pointed-to string, or the given fallback when the pointer
// is nil or points at an empty string.
func ValueOr(s *string, fallback string) string {
	if s != nil && *s != "" {
		return *s
	}
	return fallback
}

// StripDirectionIsolates removes the Unicode directional isolate characters
// (U+2068 FIRST STRONG ISOLATE, U+2069 POP DIRECTIONAL ISOLATE) that Signal
// wraps around contact names. They are invisible in most terminals but confuse
// the downstream ASCII transliteration.
func StripDirectionIsolates(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\u2068' || r == '\u2069' {
			return -1
		}
		return r
	}, s)
}
