package ast

import "slices"

// Clone returns a copy of the statement header. The body block is shared,
// selector and query slices are copied so the clone can be re-annotated or
// re-queried without touching the original.
func Clone(s Statement) (Statement, error) {
	switch n := s.(type) {
	case *Block:
		c := *n
		c.Children = slices.Clone(n.Children)
		return &c, nil
	case *Ruleset:
		c := *n
		c.Selector = slices.Clone(n.Selector)
		return &c, nil
	case *MediaBlock:
		c := *n
		c.Queries = CloneQueries(n.Queries)
		return &c, nil
	case *FeatureBlock:
		c := *n
		return &c, nil
	case *AtRule:
		c := *n
		c.Selector = slices.Clone(n.Selector)
		return &c, nil
	case *KeyframeRule:
		c := *n
		c.Selector = slices.Clone(n.Selector)
		return &c, nil
	case *AtRootBlock:
		c := *n
		c.Query = n.Query.Clone()
		return &c, nil
	case *Bubble:
		c := *n
		return &c, nil
	case *Declaration:
		c := *n
		return &c, nil
	case *Comment:
		c := *n
		return &c, nil
	default:
		return nil, unknownKind(s)
	}
}

// CloneShell copies a has-body statement and gives the copy a fresh empty
// body positioned where the original one was.
func CloneShell(h HasBody) (HasBody, error) {
	c, err := Clone(h)
	if err != nil {
		return nil, err
	}
	shell, ok := c.(HasBody)
	if !ok {
		return nil, unknownKind(h)
	}
	pos := h.Pos()
	if body := h.Body(); body != nil {
		pos = body.Pos()
	}
	shell.SetBody(NewBlock(pos))
	return shell, nil
}
