package domain

import (
	"slices"
	"strings"
)

type (
	ClientID string
	Username string
	Scope    string
)

// ScopeSet is a sorted, de-duplicated set of scopes. The zero value is the empty set.
type ScopeSet []Scope

// NewScopeSet normalizes scopes into a ScopeSet, dropping empty entries.
func NewScopeSet(scopes ...Scope) ScopeSet {
	out := make(ScopeSet, 0, len(scopes))
	for _, s := range scopes {
		if s = Scope(strings.TrimSpace(string(s))); s != "" {
			out = append(out, s)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// ParseScopeSet parses a space-delimited scope parameter.
func ParseScopeSet(s string) ScopeSet {
	return ScopesFromStrings(strings.Fields(s))
}

// ScopesFromStrings builds a ScopeSet from plain strings.
func ScopesFromStrings(ss []string) ScopeSet {
	scopes := make([]Scope, len(ss))
	for i, s := range ss {
		scopes[i] = Scope(s)
	}
	return NewScopeSet(scopes...)
}

func (s ScopeSet) Contains(scope Scope) bool {
	_, ok := slices.BinarySearch(s, scope)
	return ok
}

// SubsetOf reports whether every scope in s is also in other.
func (s ScopeSet) SubsetOf(other ScopeSet) bool {
	for _, scope := range s {
		if !other.Contains(scope) {
			return false
		}
	}
	return true
}

func (s ScopeSet) Union(other ScopeSet) ScopeSet {
	return NewScopeSet(append(slices.Clone(s), other...)...)
}

// Minus returns the scopes of s that are not in other.
func (s ScopeSet) Minus(other ScopeSet) ScopeSet {
	out := ScopeSet{}
	for _, scope := range s {
		if !other.Contains(scope) {
			out = append(out, scope)
		}
	}
	return out
}

func (s ScopeSet) Equal(other ScopeSet) bool {
	return slices.Equal(s, other)
}

func (s ScopeSet) IsEmpty() bool {
	return len(s) == 0
}

// Strings returns the scopes as plain strings, in order.
func (s ScopeSet) Strings() []string {
	out := make([]string, len(s))
	for i, scope := range s {
		out[i] = string(scope)
	}
	return out
}

// String returns the space-delimited form used on the wire.
func (s ScopeSet) String() string {
	return strings.Join(s.Strings(), " ")
}
