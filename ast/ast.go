// Package ast defines the statement tree the nesting pass works on.
//
// The set of statement variants is closed: Statement carries an unexported
// marker method so only this package can add implementations.
package ast

import (
	"fmt"
	"strings"
)

// Position locates a node in its source.
type Position struct {
	Source string
	Line   int
	Column int
}

func (p Position) String() string {
	switch {
	case p.Source == "" && p.Line == 0:
		return "-"
	case p.Line == 0:
		return p.Source
	case p.Source == "":
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d:%d", p.Source, p.Line, p.Column)
}

// Statement is a node of the statement tree.
type Statement interface {
	Pos() Position
	Tabs() int
	SetTabs(n int)
	GroupEnd() bool
	SetGroupEnd(v bool)
	// Bubbles reports whether the statement may have to be relocated
	// relative to an enclosing style rule.
	Bubbles() bool
	statement()
}

// HasBody is implemented by every statement that owns a nested block.
type HasBody interface {
	Statement
	Body() *Block
	SetBody(b *Block)
}

// base holds the annotations shared by all statements.
type base struct {
	pos      Position
	tabs     int
	groupEnd bool
}

func (b *base) Pos() Position { return b.pos }
func (b *base) Tabs() int { return b.tabs }
func (b *base) SetTabs(n int) { b.tabs = n }
func (b *base) GroupEnd() bool { return b.groupEnd }
func (b *base) SetGroupEnd(v bool) { b.groupEnd = v }
func (b *base) Bubbles() bool { return false }
func (b *base) statement() {}

// Block is an ordered sequence of statements. Order is cascade order.
type Block struct {
	base
	IsRoot   bool
	Children []Statement
}

func NewBlock(pos Position, children ...Statement) *Block {
	return &Block{base: base{pos: pos}, Children: children}
}

// NewRoot returns an empty top level block.
func NewRoot(pos Position) *Block {
	return &Block{base: base{pos: pos}, IsRoot: true}
}

func (b *Block) Len() int { return len(b.Children) }

func (b *Block) Append(s ...Statement) {
	b.Children = append(b.Children, s...)
}

// Last returns the last child or nil.
func (b *Block) Last() Statement {
	if len(b.Children) == 0 {
		return nil
	}
	return b.Children[len(b.Children)-1]
}

// SelectorList is a comma separated selector group, one complex selector per
// element.
type SelectorList []string

func (s SelectorList) String() string {
	return strings.Join(s, ", ")
}

// Ruleset is a style rule.
type Ruleset struct {
	base
	Selector SelectorList
	Block    *Block
}

func NewRuleset(pos Position, sel SelectorList, body *Block) *Ruleset {
	return &Ruleset{base: base{pos: pos}, Selector: sel, Block: body}
}

func (r *Ruleset) Body() *Block { return r.Block }
func (r *Ruleset) SetBody(b *Block) { r.Block = b }

// MediaBlock is an @media directive.
type MediaBlock struct {
	base
	Queries []*MediaQuery
	Block   *Block
}

func NewMediaBlock(pos Position, queries []*MediaQuery, body *Block) *MediaBlock {
	return &MediaBlock{base: base{pos: pos}, Queries: queries, Block: body}
}

func (m *MediaBlock) Body() *Block { return m.Block }
func (m *MediaBlock) SetBody(b *Block) { m.Block = b }
func (m *MediaBlock) Bubbles() bool { return true }

// QueryString renders the comma separated query list.
func (m *MediaBlock) QueryString() string {
	parts := make([]string, 0, len(m.Queries))
	for _, q := range m.Queries {
		parts = append(parts, q.String())
	}
	return strings.Join(parts, ", ")
}

// FeatureBlock is an @supports directive.
type FeatureBlock struct {
	base
	Condition string
	Block     *Block
}

func NewFeatureBlock(pos Position, cond string, body *Block) *FeatureBlock {
	return &FeatureBlock{base: base{pos: pos}, Condition: cond, Block: body}
}

func (f *FeatureBlock) Body() *Block { return f.Block }
func (f *FeatureBlock) SetBody(b *Block) { f.Block = b }
func (f *FeatureBlock) Bubbles() bool { return true }

// AtRule is any other directive. Block is nil for the statement form
// (@import, @charset and the like).
type AtRule struct {
	base
	Keyword  string // including leading "@"
	Selector SelectorList
	Value    string
	Block    *Block
}

func NewAtRule(pos Position, keyword, value string, body *Block) *AtRule {
	return &AtRule{base: base{pos: pos}, Keyword: keyword, Value: value, Block: body}
}

func (a *AtRule) Body() *Block { return a.Block }
func (a *AtRule) SetBody(b *Block) { a.Block = b }
func (a *AtRule) Bubbles() bool { return a.IsKeyframes() || a.IsMedia() }

// IsKeyframes reports whether the directive is @keyframes or one of its
// vendor prefixed spellings.
func (a *AtRule) IsKeyframes() bool {
	switch strings.ToLower(a.Keyword) {
	case "@keyframes", "@-webkit-keyframes", "@-moz-keyframes", "@-o-keyframes":
		return true
	}
	return false
}

// IsMedia reports whether the directive is @media or one of its vendor
// prefixed spellings.
func (a *AtRule) IsMedia() bool {
	switch strings.ToLower(a.Keyword) {
	case "@media", "@-webkit-media", "@-moz-media", "@-o-media":
		return true
	}
	return false
}

// Name returns the keyword without "@".
func (a *AtRule) Name() string {
	return strings.TrimPrefix(strings.ToLower(a.Keyword), "@")
}

// KeyframeRule is a single step inside @keyframes (from, to, 50%).
type KeyframeRule struct {
	base
	Selector SelectorList
	Block    *Block
}

func NewKeyframeRule(pos Position, sel SelectorList, body *Block) *KeyframeRule {
	return &KeyframeRule{base: base{pos: pos}, Selector: sel, Block: body}
}

func (k *KeyframeRule) Body() *Block { return k.Block }
func (k *KeyframeRule) SetBody(b *Block) { k.Block = b }

// AtRootBlock is an @at-root directive. A nil Query excludes style rules
// only.
type AtRootBlock struct {
	base
	Query *AtRootQuery
	Block *Block
}

func NewAtRootBlock(pos Position, query *AtRootQuery, body *Block) *AtRootBlock {
	return &AtRootBlock{base: base{pos: pos}, Query: query, Block: body}
}

func (a *AtRootBlock) Body() *Block { return a.Block }
func (a *AtRootBlock) SetBody(b *Block) { a.Block = b }
func (a *AtRootBlock) Bubbles() bool { return true }

// ExcludesNode reports whether s is an ancestor this block escapes from.
func (a *AtRootBlock) ExcludesNode(s Statement) bool {
	return a.Query.ExcludesNode(s)
}

// Bubble marks a statement which still has to move to an enclosing level.
// It never survives the nesting pass.
type Bubble struct {
	base
	Node Statement
}

// NewBubble wraps node. A fresh bubble ends its group, so whatever it
// carries keeps a separating blank line once unwrapped.
func NewBubble(node Statement) *Bubble {
	return &Bubble{base: base{pos: node.Pos(), groupEnd: true}, Node: node}
}

func (b *Bubble) Bubbles() bool { return true }

// Declaration is a property: value pair.
type Declaration struct {
	base
	Property  string
	Value     string
	Important bool
}

func NewDeclaration(pos Position, property, value string, important bool) *Declaration {
	return &Declaration{base: base{pos: pos}, Property: property, Value: value, Important: important}
}

// Comment keeps the comment text including delimiters.
type Comment struct {
	base
	Text string
}

func NewComment(pos Position, text string) *Comment {
	return &Comment{base: base{pos: pos}, Text: text}
}

// Preserved reports whether the comment survives compressed output.
func (c *Comment) Preserved() bool {
	return strings.HasPrefix(c.Text, "/*!")
}

// Bubblable reports whether s is kept apart from declarations when a
// style rule is flattened.
func Bubblable(s Statement) bool {
	if _, ok := s.(*Ruleset); ok {
		return true
	}
	return s.Bubbles()
}

// TypeName returns a short variant name for diagnostics.
func TypeName(s Statement) string {
	switch s.(type) {
	case *Block:
		return "Block"
	case *Ruleset:
		return "Ruleset"
	case *MediaBlock:
		return "MediaBlock"
	case *FeatureBlock:
		return "FeatureBlock"
	case *AtRule:
		return "AtRule"
	case *KeyframeRule:
		return "KeyframeRule"
	case *AtRootBlock:
		return "AtRootBlock"
	case *Bubble:
		return "Bubble"
	case *Declaration:
		return "Declaration"
	case *Comment:
		return "Comment"
	case nil:
		return "nil"
	}
	return fmt.Sprintf("%T", s)
}
