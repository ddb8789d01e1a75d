package configstore

import "strings"

// KeyDelimiter separates segments in canonical keys.
const KeyDelimiter = ":"

// NormalizeKey folds key to its canonical form: ASCII lower case with ':' as
// the only delimiter. It reports false when key is empty or contains an
// empty segment.
func NormalizeKey(key string) (string, bool) {
	display, ok := DisplayKey(key)
	if !ok {
		return "", false
	}
	return lowerASCII(display), true
}

// DisplayKey unifies delimiters to ':' while preserving case.
func DisplayKey(key string) (string, bool) {
	if key == "" {
		return "", false
	}
	unified := strings.ReplaceAll(key, ".", KeyDelimiter)
	for _, segment := range strings.Split(unified, KeyDelimiter) {
		if segment == "" {
			return "", false
		}
	}
	return unified, true
}

// JoinKey joins segments with ':'.
func JoinKey(segments ...string) string {
	return strings.Join(segments, KeyDelimiter)
}

func segmentCount(key string) int {
	return strings.Count(key, KeyDelimiter) + 1
}

// dropSegments strips the first n segments of a canonical or display key.
func dropSegments(key string, n int) string {
	for ; n > 0; n-- {
		idx := strings.Index(key, KeyDelimiter)
		if idx < 0 {
			return ""
		}
		key = key[idx+1:]
	}
	return key
}

func lowerASCII(s string) string {
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= 'A' && c <= 'Z' {
			b := []byte(s)
			for j := i; j < len(b); j++ {
				if b[j] >= 'A' && b[j] <= 'Z' {
					b[j] += 'a' - 'A'
				}
			}
			return string(b)
		}
	}
	return s
}
