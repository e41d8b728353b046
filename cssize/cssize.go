// Package cssize resolves directive nesting of an evaluated statement tree.
//
// Directives nested in style rules are wrapped in ast.Bubble markers and
// moved up one ancestor at a time until an enclosing container can place
// them, at which point the container reassembles its children (debubble).
// The result has the same nesting rules as plain CSS and carries the tabs
// and group_end annotations a serializer needs.
package cssize

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"cssnest/ast"
)

// DefaultMaxNesting bounds recursion when no explicit limit is given.
const DefaultMaxNesting = 512

// ErrNestingTooDeep is returned when the tree is nested deeper than the
// configured limit.
var ErrNestingTooDeep = errors.New("nesting too deep")

type Option func(*Cssize)

// WithMaxNesting sets the recursion limit, values below 1 select the default.
func WithMaxNesting(n int) Option {
	return func(c *Cssize) {
		if n < 1 {
			n = DefaultMaxNesting
		}
		c.maxNesting = n
	}
}

// Cssize is a single use nesting resolver. It is not safe for concurrent
// use, create one per compilation.
type Cssize struct {
	log        *zap.Logger
	maxNesting int
	op         *ast.Operation

	ancestors []ast.Statement
	blocks    []*ast.Block
	depth     int
}

func New(log *zap.Logger, opts ...Option) *Cssize {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Cssize{
		log:        log.Named("cssize"),
		maxNesting: DefaultMaxNesting,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.op = &ast.Operation{
		Block:        c.block,
		Ruleset:      c.ruleset,
		MediaBlock:   c.media,
		FeatureBlock: c.feature,
		AtRule:       c.atRule,
		KeyframeRule: c.keyframeRule,
		AtRootBlock:  c.atRoot,
	}
	return c
}

// Run resolves nesting of the tree under root. The input tree is not
// modified structurally, although statements passed through unchanged are
// shared with the result.
func (c *Cssize) Run(root *ast.Block) (*ast.Block, error) {
	if root == nil {
		return nil, errors.New("nil root block")
	}

	start := time.Now()
	c.ancestors, c.blocks, c.depth = nil, nil, 0

	c.log.Debug("Resolving nesting", zap.String("source", root.Pos().Source), zap.Int("statements", ast.Count(root)))

	res, err := c.perform(root)
	if err != nil {
		return nil, err
	}
	out, ok := res.(*ast.Block)
	if !ok {
		out = ast.NewRoot(root.Pos())
		out.Append(res)
	}
	out.IsRoot = root.IsRoot

	c.log.Debug("Nesting resolved",
		zap.String("source", root.Pos().Source),
		zap.Int("statements", ast.Count(out)),
		zap.Duration("elapsed", time.Since(start)))
	return out, nil
}

func (c *Cssize) perform(s ast.Statement) (ast.Statement, error) {
	if _, ok := s.(*ast.Block); !ok {
		c.depth++
		defer func() { c.depth-- }()
		if c.depth > c.maxNesting {
			return nil, fmt.Errorf("%s: %w (limit %d)", s.Pos(), ErrNestingTooDeep, c.maxNesting)
		}
	}
	return c.op.Perform(s)
}

// performBody transforms a body block, a missing body yields an empty block.
func (c *Cssize) performBody(b *ast.Block, pos ast.Position) (*ast.Block, error) {
	if b == nil {
		return ast.NewBlock(pos), nil
	}
	res, err := c.perform(b)
	if err != nil {
		return nil, err
	}
	return res.(*ast.Block), nil
}

// parent returns the nearest rule-like ancestor or the root output block.
func (c *Cssize) parent() ast.Statement {
	if n := len(c.ancestors); n > 0 {
		return c.ancestors[n-1]
	}
	if len(c.blocks) > 0 {
		return c.blocks[0]
	}
	return ast.NewRoot(ast.Position{})
}

func (c *Cssize) push(s ast.Statement) {
	c.ancestors = append(c.ancestors, s)
}

func (c *Cssize) pop() {
	c.ancestors = c.ancestors[:len(c.ancestors)-1]
}

func parentIsRuleset(p ast.Statement) bool {
	_, ok := p.(*ast.Ruleset)
	return ok
}

func isEmpty(h ast.HasBody) bool {
	return h.Body() == nil || h.Body().Len() == 0
}

func (c *Cssize) block(b *ast.Block) (ast.Statement, error) {
	res := ast.NewBlock(b.Pos())
	res.IsRoot = b.IsRoot
	res.SetTabs(b.Tabs())

	c.blocks = append(c.blocks, res)
	defer func() { c.blocks = c.blocks[:len(c.blocks)-1] }()

	for _, child := range b.Children {
		out, err := c.perform(child)
		if err != nil {
			return nil, err
		}
		appendResult(res, out)
	}
	return res, nil
}

// appendResult splices a block result into dst.
func appendResult(dst *ast.Block, s ast.Statement) {
	switch n := s.(type) {
	case nil:
	case *ast.Block:
		dst.Append(n.Children...)
	default:
		dst.Append(s)
	}
}

func (c *Cssize) ruleset(r *ast.Ruleset) (ast.Statement, error) {
	c.push(r)
	body, err := c.performBody(r.Body(), r.Pos())
	c.pop()
	if err != nil {
		return nil, err
	}

	var props, rules []ast.Statement
	for _, s := range body.Children {
		if ast.Bubblable(s) {
			rules = append(rules, s)
		} else {
			props = append(props, s)
		}
	}

	if len(props) > 0 {
		rr, err := ast.CloneShell(r)
		if err != nil {
			return nil, err
		}
		rr.Body().Append(props...)
		for _, s := range rules {
			s.SetTabs(s.Tabs() + 1)
		}
		rules = append([]ast.Statement{rr}, rules...)
	}

	out, err := c.debubble(body.Pos(), rules, nil)
	if err != nil {
		return nil, err
	}
	if last := out.Last(); last != nil && ast.Bubblable(last) && !parentIsRuleset(c.parent()) {
		last.SetGroupEnd(true)
	}
	return out, nil
}

func (c *Cssize) media(m *ast.MediaBlock) (ast.Statement, error) {
	switch c.parent().(type) {
	case *ast.Ruleset:
		return c.bubble(m)
	case *ast.MediaBlock:
		return ast.NewBubble(m), nil
	}
	return c.resolve(m)
}

// feature has no short-circuit for a @supports parent, nested conditions are
// resolved like top level ones.
func (c *Cssize) feature(f *ast.FeatureBlock) (ast.Statement, error) {
	if isEmpty(f) {
		return ast.Clone(f)
	}
	if parentIsRuleset(c.parent()) {
		return c.bubble(f)
	}
	return c.resolve(f)
}

// resolve transforms the body of a directive that stays where it is and
// reassembles the result under a copy of the directive.
func (c *Cssize) resolve(h ast.HasBody) (ast.Statement, error) {
	c.push(h)
	body, err := c.performBody(h.Body(), h.Pos())
	c.pop()
	if err != nil {
		return nil, err
	}
	hh, err := ast.CloneShell(h)
	if err != nil {
		return nil, err
	}
	hh.SetBody(body)
	return c.debubble(body.Pos(), body.Children, hh)
}

func (c *Cssize) atRule(r *ast.AtRule) (ast.Statement, error) {
	if isEmpty(r) {
		return ast.Clone(r)
	}
	if parentIsRuleset(c.parent()) {
		if r.IsKeyframes() {
			return ast.NewBubble(r), nil
		}
		return c.bubble(r)
	}

	c.push(r)
	body, err := c.performBody(r.Body(), r.Pos())
	c.pop()
	if err != nil {
		return nil, err
	}
	rr, err := ast.CloneShell(r)
	if err != nil {
		return nil, err
	}
	rr.SetBody(body)

	res := ast.NewBlock(r.Pos())
	if !r.IsKeyframes() && !directiveSurvives(r.Keyword, body) {
		// keep an empty copy so the directive itself is still emitted
		placeholder, err := ast.CloneShell(rr)
		if err != nil {
			return nil, err
		}
		res.Append(placeholder)
	}

	out, err := c.debubble(body.Pos(), body.Children, rr)
	if err != nil {
		return nil, err
	}
	res.Append(out.Children...)
	return res, nil
}

// directiveSurvives reports whether the transformed body still holds a
// resolved statement or a bubbled directive with the same keyword.
func directiveSurvives(keyword string, body *ast.Block) bool {
	for _, s := range body.Children {
		b, ok := s.(*ast.Bubble)
		if !ok {
			return true
		}
		if inner, ok := b.Node.(*ast.AtRule); ok && inner.Keyword == keyword {
			return true
		}
	}
	return false
}

// keyframeRule never bubbles and is never an ancestor of its content.
func (c *Cssize) keyframeRule(k *ast.KeyframeRule) (ast.Statement, error) {
	if isEmpty(k) {
		return ast.Clone(k)
	}
	body, err := c.performBody(k.Body(), k.Pos())
	if err != nil {
		return nil, err
	}
	kk, err := ast.CloneShell(k)
	if err != nil {
		return nil, err
	}
	kk.SetBody(body)
	return c.debubble(body.Pos(), body.Children, kk)
}

func (c *Cssize) atRoot(a *ast.AtRootBlock) (ast.Statement, error) {
	var excluded bool
	for _, s := range c.ancestors {
		excluded = excluded || a.ExcludesNode(s)
	}

	if !excluded {
		body, err := c.performBody(a.Body(), a.Pos())
		if err != nil {
			return nil, err
		}
		var last ast.Statement
		for _, s := range body.Children {
			if ast.Bubblable(s) {
				s.SetTabs(s.Tabs() + a.Tabs())
				last = s
			}
		}
		if last != nil && last == body.Last() {
			last.SetGroupEnd(a.GroupEnd())
		}
		return body, nil
	}

	if a.ExcludesNode(c.parent()) {
		return ast.NewBubble(a), nil
	}
	return c.bubble(a)
}
