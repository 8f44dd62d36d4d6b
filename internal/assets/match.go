package assets

import (
	"path"
	"strings"
)

// Match reports whether an asset identifier matches a slash-separated glob.
// Segments use path.Match syntax; a "**" segment matches zero or more
// segments. A malformed segment never matches.
func Match(pattern, assetPath string) bool {
	return matchParts(strings.Split(assetPath, "/"), strings.Split(pattern, "/"))
}

// matchParts recursively matches path segments against pattern segments.
func matchParts(parts, pattern []string) bool {
	if len(pattern) == 0 {
		return len(parts) == 0
	}

	p := pattern[0]
	rest := pattern[1:]

	if p == "**" {
		if len(rest) == 0 {
			return true
		}
		for i := 0; i <= len(parts); i++ {
			if matchParts(parts[i:], rest) {
				return true
			}
		}
		return false
	}

	if len(parts) == 0 {
		return false
	}
	ok, err := path.Match(p, parts[0])
	if err != nil || !ok {
		return false
	}
	return matchParts(parts[1:], rest)
}

// Filter returns the entries whose identifier matches pattern.
// An empty pattern returns the index unchanged.
func (ix Index) Filter(pattern string) Index {
	if pattern == "" {
		return ix
	}
	out := make(Index)
	for p, a := range ix {
		if Match(pattern, p) {
			out[p] = a
		}
	}
	return out
}
