package design

import (
	"fmt"
	"strconv"
	"strings"
)

// ColumnPattern matches column names either exactly or, when written with a
// trailing '*', by prefix. "face*" matches face_A and face_B; "face_A"
// matches only face_A.
type ColumnPattern struct {
	text     string
	prefix   string
	wildcard bool
}

// ParseColumnPattern validates and compiles a single pattern. A '*' is only
// allowed as the last character and the pattern must not be empty.
func ParseColumnPattern(p string) (ColumnPattern, error) {
	if p == "" || p == "*" {
		return ColumnPattern{}, fmt.Errorf("%w: empty column pattern %q", ErrInvalidArgument, p)
	}
	star := strings.IndexByte(p, '*')
	switch {
	case star < 0:
		return ColumnPattern{text: p, prefix: p}, nil
	case star == len(p)-1:
		return ColumnPattern{text: p, prefix: p[:star], wildcard: true}, nil
	default:
		return ColumnPattern{}, fmt.Errorf("%w: '*' must end column pattern %q", ErrInvalidArgument, p)
	}
}

// Match reports whether name satisfies the pattern.
func (p ColumnPattern) Match(name string) bool {
	if p.wildcard {
		return strings.HasPrefix(name, p.prefix)
	}
	return name == p.prefix
}

// IsWildcard reports whether the pattern matches by prefix.
func (p ColumnPattern) IsWildcard() bool { return p.wildcard }

// String returns the pattern as written.
func (p ColumnPattern) String() string { return p.text }

// ColumnMatcher is a set of patterns; a name matches when any pattern does.
type ColumnMatcher []ColumnPattern

// NewColumnMatcher compiles every pattern, failing on the first invalid one.
func NewColumnMatcher(patterns []string) (ColumnMatcher, error) {
	out := make(ColumnMatcher, 0, len(patterns))
	for _, p := range patterns {
		cp, err := ParseColumnPattern(p)
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	return out, nil
}

// Match reports whether any pattern matches name.
func (cm ColumnMatcher) Match(name string) bool {
	for _, p := range cm {
		if p.Match(name) {
			return true
		}
	}
	return false
}

// Select returns the names matched by cm, in input order.
func (cm ColumnMatcher) Select(names []string) []string {
	var out []string
	for _, n := range names {
		if cm.Match(n) {
			out = append(out, n)
		}
	}
	return out
}

// runPrefix formats the name of a run specific column.
func runPrefix(run int, name string) string {
	return strconv.Itoa(run) + "_" + name
}

// splitRunPrefix parses "K_name" into K and name.
func splitRunPrefix(name string) (int, string, bool) {
	i := strings.IndexByte(name, '_')
	if i <= 0 {
		return 0, name, false
	}
	run, err := strconv.Atoi(name[:i])
	if err != nil || run < 0 {
		return 0, name, false
	}
	return run, name[i+1:], true
}

// stripRunPrefix removes a leading run index, if any.
func stripRunPrefix(name string) string {
	_, base, _ := splitRunPrefix(name)
	return base
}
