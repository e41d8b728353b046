package css

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"cssnest/ast"
	"cssnest/common"
)

// ErrUnresolvedBubble is returned when a tree still carries bubble wrappers,
// which means it did not go through the nesting pass.
var ErrUnresolvedBubble = errors.New("unresolved bubble")

// Printer serializes resolved statement trees.
type Printer struct {
	style common.OutputStyle
}

// NewPrinter returns a printer for the given output style.
func NewPrinter(style common.OutputStyle) *Printer {
	if !style.IsValid() {
		style = common.OutputStyleNested
	}
	return &Printer{style: style}
}

// Format is a shortcut for printing root into a string.
func Format(root *ast.Block, style common.OutputStyle) (string, error) {
	var sb strings.Builder
	if err := NewPrinter(style).Print(&sb, root); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// chunk is a printable statement with formatting already decided.
type chunk struct {
	head     string // selector or directive prelude, empty for leaves
	text     string // leaf text without terminating semicolon
	semi     bool   // leaf is terminated by ';'
	body     bool
	ruleset  bool
	tabs     int
	groupEnd bool
	children []chunk
}

// Print writes root to w. Output containing non-ASCII characters is
// prefixed with a charset rule, or a byte order mark when compressed.
func (p *Printer) Print(w io.Writer, root *ast.Block) error {
	if root == nil {
		return errors.New("nothing to print")
	}
	chunks, err := p.collect(root.Children)
	if err != nil {
		return err
	}

	var sb strings.Builder
	switch p.style {
	case common.OutputStyleExpanded:
		p.expandedBlock(&sb, chunks)
	case common.OutputStyleCompact:
		p.compactBlock(&sb, chunks)
	case common.OutputStyleCompressed:
		p.compressedBlock(&sb, chunks, false)
	default:
		p.nestedBlock(&sb, chunks)
	}

	out := sb.String()
	if out != "" && p.style != common.OutputStyleCompressed {
		out += "\n"
	}
	if !isASCII(out) {
		if p.style == common.OutputStyleCompressed {
			out = "\uFEFF" + out
		} else {
			out = "@charset \"UTF-8\";\n" + out
		}
	}

	_, err = io.WriteString(w, out)
	return err
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func (p *Printer) compressed() bool {
	return p.style == common.OutputStyleCompressed
}

func (p *Printer) selector(sel ast.SelectorList) string {
	if p.compressed() {
		return strings.Join(sel, ",")
	}
	return sel.String()
}

// collect converts statements to chunks dropping what prints as nothing.
// Blocks and at-root blocks are transparent.
func (p *Printer) collect(stmts []ast.Statement) ([]chunk, error) {
	var out []chunk
	for _, s := range stmts {
		switch n := s.(type) {
		case *ast.Block:
			cc, err := p.collect(n.Children)
			if err != nil {
				return nil, err
			}
			out = append(out, cc...)

		case *ast.AtRootBlock:
			if n.Block == nil {
				continue
			}
			cc, err := p.collect(n.Block.Children)
			if err != nil {
				return nil, err
			}
			out = append(out, cc...)

		case *ast.Bubble:
			return nil, fmt.Errorf("%s: %w", n.Pos(), ErrUnresolvedBubble)

		case *ast.Declaration:
			sep := ": "
			if p.compressed() {
				sep = ":"
			}
			text := n.Property + sep + n.Value
			if n.Important {
				if p.compressed() {
					text += "!important"
				} else {
					text += " !important"
				}
			}
			out = append(out, chunk{text: text, semi: true, tabs: n.Tabs(), groupEnd: n.GroupEnd()})

		case *ast.Comment:
			if p.compressed() && !n.Preserved() {
				continue
			}
			out = append(out, chunk{text: n.Text, tabs: n.Tabs(), groupEnd: n.GroupEnd()})

		case *ast.Ruleset:
			c, ok, err := p.container(n, p.selector(n.Selector), false)
			if err != nil {
				return nil, err
			}
			if ok {
				c.ruleset = true
				out = append(out, c)
			}

		case *ast.KeyframeRule:
			c, ok, err := p.container(n, p.selector(n.Selector), false)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, c)
			}

		case *ast.MediaBlock:
			queries := n.QueryString()
			if p.compressed() {
				queries = strings.ReplaceAll(queries, ", ", ",")
			}
			c, ok, err := p.container(n, "@media "+queries, false)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, c)
			}

		case *ast.FeatureBlock:
			c, ok, err := p.container(n, "@supports "+n.Condition, false)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, c)
			}

		case *ast.AtRule:
			head := n.Keyword
			switch {
			case n.Value != "":
				head += " " + n.Value
			case len(n.Selector) > 0:
				head += " " + p.selector(n.Selector)
			}
			if n.Block == nil {
				out = append(out, chunk{text: head, semi: true, tabs: n.Tabs(), groupEnd: n.GroupEnd()})
				continue
			}
			c, _, err := p.container(n, head, true)
			if err != nil {
				return nil, err
			}
			out = append(out, c)

		default:
			return nil, &ast.UnknownStatementKindError{Pos: s.Pos(), Type: ast.TypeName(s)}
		}
	}
	return out, nil
}

// container collects a statement with a body. Empty bodies are reported as
// not printable unless keepEmpty is set.
func (p *Printer) container(h ast.HasBody, head string, keepEmpty bool) (chunk, bool, error) {
	c := chunk{head: head, body: true, tabs: h.Tabs(), groupEnd: h.GroupEnd()}
	if b := h.Body(); b != nil {
		children, err := p.collect(b.Children)
		if err != nil {
			return chunk{}, false, err
		}
		c.children = children
	}
	return c, len(c.children) > 0 || keepEmpty, nil
}

// separated reports whether a blank line follows c at the top level.
func separated(c chunk) bool {
	return c.groupEnd || (c.body && !c.ruleset)
}

func (p *Printer) nestedBlock(sb *strings.Builder, chunks []chunk) {
	for i, c := range chunks {
		if i > 0 {
			sb.WriteByte('\n')
			if separated(chunks[i-1]) {
				sb.WriteByte('\n')
			}
		}
		p.nested(sb, c, 0)
	}
}

// nested indents by directive depth plus tabs and closes braces on the last
// line of the body.
func (p *Printer) nested(sb *strings.Builder, c chunk, level int) {
	level += c.tabs
	sb.WriteString(strings.Repeat("  ", level))
	if !c.body {
		sb.WriteString(leafText(c, true))
		return
	}
	sb.WriteString(c.head)
	if len(c.children) == 0 {
		sb.WriteString(" {}")
		return
	}
	sb.WriteString(" {")
	for _, child := range c.children {
		sb.WriteByte('\n')
		p.nested(sb, child, level+1)
	}
	sb.WriteString(" }")
}

func (p *Printer) expandedBlock(sb *strings.Builder, chunks []chunk) {
	for i, c := range chunks {
		if i > 0 {
			sb.WriteByte('\n')
			if c.body || chunks[i-1].body {
				sb.WriteByte('\n')
			}
		}
		p.expanded(sb, c, 0)
	}
}

func (p *Printer) expanded(sb *strings.Builder, c chunk, level int) {
	indent := strings.Repeat("  ", level)
	sb.WriteString(indent)
	if !c.body {
		sb.WriteString(leafText(c, true))
		return
	}
	sb.WriteString(c.head)
	if len(c.children) == 0 {
		sb.WriteString(" {}")
		return
	}
	sb.WriteString(" {")
	for _, child := range c.children {
		sb.WriteByte('\n')
		p.expanded(sb, child, level+1)
	}
	sb.WriteString("\n" + indent + "}")
}

func (p *Printer) compactBlock(sb *strings.Builder, chunks []chunk) {
	for i, c := range chunks {
		if i > 0 {
			sb.WriteByte('\n')
			if separated(chunks[i-1]) {
				sb.WriteByte('\n')
			}
		}
		p.compact(sb, c)
	}
}

func (p *Printer) compact(sb *strings.Builder, c chunk) {
	if !c.body {
		sb.WriteString(leafText(c, true))
		return
	}
	sb.WriteString(c.head)
	if len(c.children) == 0 {
		sb.WriteString(" {}")
		return
	}
	sb.WriteString(" {")
	for _, child := range c.children {
		sb.WriteByte(' ')
		p.compact(sb, child)
	}
	sb.WriteString(" }")
}

// compressedBlock writes chunks without optional whitespace. Inside a body
// the last semicolon is dropped.
func (p *Printer) compressedBlock(sb *strings.Builder, chunks []chunk, inBody bool) {
	for i, c := range chunks {
		if !c.body {
			sb.WriteString(leafText(c, !inBody || i < len(chunks)-1))
			continue
		}
		sb.WriteString(c.head)
		sb.WriteByte('{')
		p.compressedBlock(sb, c.children, true)
		sb.WriteByte('}')
	}
}

func leafText(c chunk, semi bool) string {
	if c.semi && semi {
		return c.text + ";"
	}
	return c.text
}
