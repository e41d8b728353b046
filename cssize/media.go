package cssize

import (
	"slices"

	"cssnest/ast"
)

// MergeMediaQueries combines the query list of a @media block nested in
// another one with the outer list. Every pair is merged, inner queries
// varying slowest, and unsatisfiable pairs are dropped. An empty result
// means the nested block can never apply.
func MergeMediaQueries(inner, outer []*ast.MediaQuery) []*ast.MediaQuery {
	var res []*ast.MediaQuery
	for _, q1 := range inner {
		for _, q2 := range outer {
			if q := MergeMediaQuery(q1, q2); q != nil {
				res = append(res, q)
			}
		}
	}
	return res
}

// MergeMediaQuery merges q1 nested in q2 into a single query or returns nil
// when no medium can satisfy both. Features of q2 come first.
func MergeMediaQuery(q1, q2 *ast.MediaQuery) *ast.MediaQuery {
	m1, t1 := q1.Modifier(), q1.Type
	m2, t2 := q2.Modifier(), q2.Type

	if t1 == "" {
		t1 = t2
	}
	if t2 == "" {
		t2 = t1
	}

	var typ, mod string
	switch {
	case (m1 == "not") != (m2 == "not"):
		if t1 == t2 {
			return nil
		}
		if m1 == "not" {
			typ, mod = t2, m2
		} else {
			typ, mod = t1, m1
		}
	case m1 == "not" && m2 == "not":
		if t1 != t2 {
			return nil
		}
		typ, mod = t1, "not"
	case t1 != t2:
		return nil
	default:
		typ, mod = t1, m1
		if mod == "" {
			mod = m2
		}
	}

	return &ast.MediaQuery{
		Negated:    mod == "not",
		Restricted: mod == "only",
		Type:       typ,
		Features:   slices.Concat(q2.Features, q1.Features),
	}
}
