package richtext

import "github.com/rivo/uniseg"

// TruncateGraphemes returns the first limit grapheme clusters of s and
// whether anything was cut.
func TruncateGraphemes(s string, limit int) (string, bool) {
	if limit <= 0 {
		return "", s != ""
	}
	rest, state, end := s, -1, 0
	for n := 0; n < limit && rest != ""; n++ {
		var cluster string
		cluster, rest, _, state = uniseg.FirstGraphemeClusterInString(rest, state)
		end += len(cluster)
	}
	return s[:end], rest != ""
}
