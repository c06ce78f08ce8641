package util

import (
	"bytes"
	"strings"
)

// Find returns the offset of the first occurrence of needle in haystack.
// An empty needle or a needle longer than haystack never matches.
func Find(haystack, needle []byte) (int, bool) {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return -1, false
	}
	idx := bytes.Index(haystack, needle)
	if idx < 0 {
		return -1, false
	}
	return idx, true
}

// LossyString decodes b as UTF-8, replacing invalid sequences with U+FFFD.
func LossyString(b []byte) string {
	return strings.ToValidUTF8(string(b), "�")
}
