// Package query holds the named queries that flow from corpus loading through
// expansion into ranking.
package query

import "sort"

// Query is a named list of seed terms in the order they were produced.
type Query struct {
	Name  string   `json:"name" cbor:"name"`
	Seeds []string `json:"seeds" cbor:"seeds"`
}

// TermSet is a sorted, duplicate-free set of terms.
type TermSet []string

// NewTermSet builds a set from terms in any order.
func NewTermSet(terms ...string) TermSet {
	set := make(TermSet, 0, len(terms))
	set = append(set, terms...)
	sort.Strings(set)
	out := set[:0]
	for i, t := range set {
		if i > 0 && t == set[i-1] {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Contains reports whether term is in the set.
func (s TermSet) Contains(term string) bool {
	i := sort.SearchStrings(s, term)
	return i < len(s) && s[i] == term
}

// Union returns a new set holding the terms of both sets.
func (s TermSet) Union(other TermSet) TermSet {
	merged := make([]string, 0, len(s)+len(other))
	merged = append(merged, s...)
	merged = append(merged, other...)
	return NewTermSet(merged...)
}

// TermSet returns the de-duplicated seeds of q.
func (q Query) TermSet() TermSet {
	return NewTermSet(q.Seeds...)
}

// Names returns the query names in order.
func Names(queries []Query) []string {
	names := make([]string, len(queries))
	for i, q := range queries {
		names[i] = q.Name
	}
	return names
}
