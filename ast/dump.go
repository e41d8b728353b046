package ast

import (
	"cssnest/utils/debug"
)

// Dump renders the tree one statement per line for debugging.
func Dump(s Statement) string {
	tw := debug.NewTreeWriter()
	dump(tw, 0, s)
	return tw.String()
}

func dump(tw *debug.TreeWriter, depth int, s Statement) {
	if s == nil {
		tw.Line(depth, "<nil>")
		return
	}

	attrs := []debug.Attr{
		debug.Int("tabs", s.Tabs()),
		debug.Flag("group_end", s.GroupEnd()),
		debug.Str("at", posString(s.Pos())),
	}

	switch n := s.(type) {
	case *Block:
		tw.Node(depth, "Block", append([]debug.Attr{debug.Flag("root", n.IsRoot)}, attrs...)...)
		for _, c := range n.Children {
			dump(tw, depth+1, c)
		}
		return
	case *Ruleset:
		tw.Node(depth, "Ruleset", append([]debug.Attr{debug.Str("selector", n.Selector.String())}, attrs...)...)
	case *MediaBlock:
		tw.Node(depth, "MediaBlock", append([]debug.Attr{debug.Str("queries", n.QueryString())}, attrs...)...)
	case *FeatureBlock:
		tw.Node(depth, "FeatureBlock", append([]debug.Attr{debug.Str("condition", n.Condition)}, attrs...)...)
	case *AtRule:
		tw.Node(depth, "AtRule", append([]debug.Attr{
			debug.Str("keyword", n.Keyword),
			debug.Str("selector", n.Selector.String()),
			debug.Str("value", n.Value),
		}, attrs...)...)
	case *KeyframeRule:
		tw.Node(depth, "KeyframeRule", append([]debug.Attr{debug.Str("selector", n.Selector.String())}, attrs...)...)
	case *AtRootBlock:
		tw.Node(depth, "AtRootBlock", append([]debug.Attr{debug.Str("query", n.Query.String())}, attrs...)...)
	case *Bubble:
		tw.Node(depth, "Bubble", attrs...)
		dump(tw, depth+1, n.Node)
		return
	case *Declaration:
		tw.Node(depth, "Declaration", append([]debug.Attr{
			debug.Str("property", n.Property),
			debug.Str("value", n.Value),
			debug.Flag("important", n.Important),
		}, attrs...)...)
		return
	case *Comment:
		tw.TextBlock(depth, "Comment", n.Text)
		return
	default:
		tw.Line(depth, "%s", TypeName(s))
		return
	}

	if h, ok := s.(HasBody); ok && h.Body() != nil {
		for _, c := range h.Body().Children {
			dump(tw, depth+1, c)
		}
	}
}

func posString(p Position) string {
	if p.Line == 0 {
		return ""
	}
	return p.String()
}

// Inspect walks the tree depth first calling fn for every statement,
// including nodes wrapped by Bubble. Children are skipped when fn returns
// false.
func Inspect(s Statement, fn func(Statement) bool) {
	if s == nil || !fn(s) {
		return
	}
	switch n := s.(type) {
	case *Block:
		for _, c := range n.Children {
			Inspect(c, fn)
		}
	case *Bubble:
		Inspect(n.Node, fn)
	case HasBody:
		if b := n.Body(); b != nil {
			for _, c := range b.Children {
				Inspect(c, fn)
			}
		}
	}
}

// Count returns the number of statements of the tree excluding blocks.
func Count(s Statement) int {
	var cnt int
	Inspect(s, func(n Statement) bool {
		if _, ok := n.(*Block); !ok {
			cnt++
		}
		return true
	})
	return cnt
}
