package cssize

import (
	"cssnest/ast"
)

// slice is a maximal stretch of either Bubble or non-Bubble statements.
type slice struct {
	bubbles bool
	stmts   []ast.Statement
}

func sliceByBubble(children []ast.Statement) []slice {
	var runs []slice
	for _, s := range children {
		_, isBubble := s.(*ast.Bubble)
		if n := len(runs); n > 0 && runs[n-1].bubbles == isBubble {
			runs[n-1].stmts = append(runs[n-1].stmts, s)
			continue
		}
		runs = append(runs, slice{bubbles: isBubble, stmts: []ast.Statement{s}})
	}
	return runs
}

// flatten inlines nested blocks.
func flatten(dst *ast.Block, stmts ...ast.Statement) {
	for _, s := range stmts {
		if b, ok := s.(*ast.Block); ok {
			flatten(dst, b.Children...)
			continue
		}
		dst.Append(s)
	}
}

// debubble reassembles children under parent. Resolved statements are
// gathered into copies of parent (or passed through when parent is nil),
// bubbles are unwrapped and resolved again at the current level. A
// non-empty bubble result closes the pending copy, so statements following
// it start a new one.
func (c *Cssize) debubble(pos ast.Position, children []ast.Statement, parent ast.HasBody) (*ast.Block, error) {
	res := ast.NewBlock(pos)

	var previous ast.HasBody
	for _, r := range sliceByBubble(children) {
		if !r.bubbles {
			switch {
			case parent == nil:
				flatten(res, r.stmts...)
			case previous != nil:
				previous.Body().Append(r.stmts...)
			default:
				pp, err := ast.CloneShell(parent)
				if err != nil {
					return nil, err
				}
				pp.SetTabs(parent.Tabs())
				pp.Body().Append(r.stmts...)
				res.Append(pp)
				previous = pp
			}
			continue
		}

		for _, s := range r.stmts {
			b := s.(*ast.Bubble)
			if b.Node == nil {
				continue
			}
			inner, err := ast.Clone(b.Node)
			if err != nil {
				return nil, err
			}

			outerMedia, ok1 := parent.(*ast.MediaBlock)
			innerMedia, ok2 := inner.(*ast.MediaBlock)
			if ok1 && ok2 && !ast.QueriesEqual(outerMedia.Queries, innerMedia.Queries) {
				merged := MergeMediaQueries(innerMedia.Queries, outerMedia.Queries)
				if len(merged) == 0 {
					continue
				}
				innerMedia.Queries = merged
			}

			inner.SetTabs(inner.Tabs() + b.Tabs())
			inner.SetGroupEnd(b.GroupEnd())

			out, err := c.perform(inner)
			if err != nil {
				return nil, err
			}
			wrapper := ast.NewBlock(pos)
			flatten(wrapper, out)
			res.Append(wrapper.Children...)
			if wrapper.Len() > 0 {
				previous = nil
			}
		}
	}
	return res, nil
}
