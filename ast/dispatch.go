package ast

// Operation is a tree transformation with one optional handler per statement
// variant. Variants without a handler go to Fallback, and when Fallback is
// not set the statement is returned unchanged.
type Operation struct {
	Block        func(*Block) (Statement, error)
	Ruleset      func(*Ruleset) (Statement, error)
	MediaBlock   func(*MediaBlock) (Statement, error)
	FeatureBlock func(*FeatureBlock) (Statement, error)
	AtRule       func(*AtRule) (Statement, error)
	KeyframeRule func(*KeyframeRule) (Statement, error)
	AtRootBlock  func(*AtRootBlock) (Statement, error)
	Bubble       func(*Bubble) (Statement, error)
	Declaration  func(*Declaration) (Statement, error)
	Comment      func(*Comment) (Statement, error)

	Fallback func(Statement) (Statement, error)
}

// Perform selects the handler for s. Statements outside of the closed set
// produce UnknownStatementKindError.
func (op *Operation) Perform(s Statement) (Statement, error) {
	switch n := s.(type) {
	case *Block:
		if op.Block != nil {
			return op.Block(n)
		}
	case *Ruleset:
		if op.Ruleset != nil {
			return op.Ruleset(n)
		}
	case *MediaBlock:
		if op.MediaBlock != nil {
			return op.MediaBlock(n)
		}
	case *FeatureBlock:
		if op.FeatureBlock != nil {
			return op.FeatureBlock(n)
		}
	case *AtRule:
		if op.AtRule != nil {
			return op.AtRule(n)
		}
	case *KeyframeRule:
		if op.KeyframeRule != nil {
			return op.KeyframeRule(n)
		}
	case *AtRootBlock:
		if op.AtRootBlock != nil {
			return op.AtRootBlock(n)
		}
	case *Bubble:
		if op.Bubble != nil {
			return op.Bubble(n)
		}
	case *Declaration:
		if op.Declaration != nil {
			return op.Declaration(n)
		}
	case *Comment:
		if op.Comment != nil {
			return op.Comment(n)
		}
	default:
		return nil, unknownKind(s)
	}
	if op.Fallback != nil {
		return op.Fallback(s)
	}
	return s, nil
}
