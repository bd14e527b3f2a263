package scanner

import (
	"path"
	"strings"
)

// IgnorePattern is a single gitignore-style pattern.
type IgnorePattern struct {
	negate   bool     // pattern started with !
	dirOnly  bool     // pattern ended with /
	anchored bool     // pattern contained a / before its last segment or started with one
	segments []string // slash-separated glob segments; ** matches any number of them
}

// ParseIgnorePattern parses one line of an ignore file. Blank lines and
// comments yield ok == false.
func ParseIgnorePattern(line string) (p IgnorePattern, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return p, false
	}
	if strings.HasPrefix(line, "!") {
		p.negate = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		p.dirOnly = true
		line = strings.TrimSuffix(line, "/")
	}
	if strings.Contains(line, "/") {
		p.anchored = true
		line = strings.TrimPrefix(line, "/")
	}
	if line == "" {
		return p, false
	}
	p.segments = strings.Split(line, "/")
	return p, true
}

// Match reports whether rel, a slash-separated path relative to the scan
// root, matches the pattern. isDir tells whether rel names a directory.
// Unanchored patterns match at any depth.
func (p IgnorePattern) Match(rel string, isDir bool) bool {
	if p.dirOnly && !isDir {
		return false
	}
	parts := strings.Split(rel, "/")
	if p.anchored {
		return matchSegments(p.segments, parts)
	}
	for i := range parts {
		if matchSegments(p.segments, parts[i:]) {
			return true
		}
	}
	return false
}

// IsNegation reports whether the pattern re-includes what it matches.
func (p IgnorePattern) IsNegation() bool {
	return p.negate
}

func matchSegments(pattern, parts []string) bool {
	if len(pattern) == 0 {
		return len(parts) == 0
	}
	if pattern[0] == "**" {
		for i := 0; i <= len(parts); i++ {
			if matchSegments(pattern[1:], parts[i:]) {
				return true
			}
		}
		return false
	}
	if len(parts) == 0 {
		return false
	}
	if ok, err := path.Match(pattern[0], parts[0]); err != nil || !ok {
		return false
	}
	return matchSegments(pattern[1:], parts[1:])
}

// ignored applies patterns in order; the last matching one wins.
func ignored(patterns []IgnorePattern, rel string, isDir bool) bool {
	out := false
	for _, p := range patterns {
		if p.Match(rel, isDir) {
			out = !p.negate
		}
	}
	return out
}
