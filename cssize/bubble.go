package cssize

import (
	"cssnest/ast"
)

// bubble inverts the nesting of x and its nearest ancestor. A copy of the
// ancestor takes the children of x and becomes the only child of a copy of
// x, which is then marked for relocation one level up.
//
// For @media and @supports the ancestor is always a style rule. An ancestor
// without a body leaves x with an empty body.
func (c *Cssize) bubble(x ast.HasBody) (ast.Statement, error) {
	wrapper := ast.NewBlock(x.Pos())
	if b := x.Body(); b != nil {
		wrapper = ast.NewBlock(b.Pos())
	}

	if p, ok := c.parent().(ast.HasBody); ok {
		pp, err := ast.CloneShell(p)
		if err != nil {
			return nil, err
		}
		pp.SetTabs(p.Tabs())
		if b := x.Body(); b != nil {
			pp.Body().Append(b.Children...)
		}
		wrapper.Append(pp)
	}

	xx, err := ast.Clone(x)
	if err != nil {
		return nil, err
	}
	xx.(ast.HasBody).SetBody(wrapper)
	return ast.NewBubble(xx), nil
}
