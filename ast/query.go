package ast

import (
	"slices"
	"strings"
)

// MediaQuery is a single query of an @media query list, e.g.
// "only screen and (min-width: 500px)".
type MediaQuery struct {
	Negated    bool     // "not" modifier
	Restricted bool     // "only" modifier
	Type       string   // media type, may be empty
	Features   []string // feature expressions in source order, e.g. "(min-width: 500px)"
}

// Modifier returns "only", "not" or an empty string.
func (q *MediaQuery) Modifier() string {
	switch {
	case q.Restricted:
		return "only"
	case q.Negated:
		return "not"
	}
	return ""
}

func (q *MediaQuery) String() string {
	var sb strings.Builder
	if q.Type != "" {
		if mod := q.Modifier(); mod != "" {
			sb.WriteString(mod)
			sb.WriteByte(' ')
		}
		sb.WriteString(q.Type)
	}
	for i, f := range q.Features {
		if i > 0 || q.Type != "" {
			sb.WriteString(" and ")
		}
		sb.WriteString(f)
	}
	return sb.String()
}

// Equal compares queries structurally.
func (q *MediaQuery) Equal(o *MediaQuery) bool {
	if q == nil || o == nil {
		return q == o
	}
	return q.Negated == o.Negated &&
		q.Restricted == o.Restricted &&
		q.Type == o.Type &&
		slices.Equal(q.Features, o.Features)
}

func (q *MediaQuery) Clone() *MediaQuery {
	if q == nil {
		return nil
	}
	c := *q
	c.Features = slices.Clone(q.Features)
	return &c
}

// QueriesEqual compares two query lists element by element.
func QueriesEqual(a, b []*MediaQuery) bool {
	return slices.EqualFunc(a, b, func(x, y *MediaQuery) bool { return x.Equal(y) })
}

// CloneQueries deep copies a query list.
func CloneQueries(qq []*MediaQuery) []*MediaQuery {
	if qq == nil {
		return nil
	}
	out := make([]*MediaQuery, len(qq))
	for i, q := range qq {
		out[i] = q.Clone()
	}
	return out
}

// AtRootQuery is the (with: ...) or (without: ...) part of @at-root.
type AtRootQuery struct {
	With  bool
	Names []string
}

func (q *AtRootQuery) String() string {
	if q == nil {
		return ""
	}
	kw := "without"
	if q.With {
		kw = "with"
	}
	return "(" + kw + ": " + strings.Join(q.Names, " ") + ")"
}

// Excludes reports whether an ancestor of the given kind is left behind.
// Kinds are "rule", "media", "supports" or an at-rule name without "@".
func (q *AtRootQuery) Excludes(kind string) bool {
	if q == nil {
		return kind == "rule"
	}
	if q.With {
		if len(q.Names) == 0 {
			return kind != "rule"
		}
		for _, n := range q.Names {
			if n == "all" || n == kind {
				return false
			}
		}
		return true
	}
	if len(q.Names) == 0 {
		return kind == "rule"
	}
	for _, n := range q.Names {
		if n == "all" || n == kind {
			return true
		}
	}
	return false
}

// ExcludesNode maps an ancestor statement to its kind and checks it.
func (q *AtRootQuery) ExcludesNode(s Statement) bool {
	switch n := s.(type) {
	case *Ruleset:
		return q.Excludes("rule")
	case *MediaBlock:
		return q.Excludes("media")
	case *FeatureBlock:
		return q.Excludes("supports")
	case *AtRule:
		// vendor prefixed keyframes only match their own name
		return q.Excludes(n.Name())
	}
	return false
}

func (q *AtRootQuery) Clone() *AtRootQuery {
	if q == nil {
		return nil
	}
	return &AtRootQuery{With: q.With, Names: slices.Clone(q.Names)}
}
