// Package css loads nested stylesheets into statement trees and serializes
// resolved trees back to CSS text.
package css

import (
	"errors"
	"fmt"
	"io"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"

	"cssnest/ast"
)

// SyntaxError reports malformed input at a source position.
type SyntaxError struct {
	Pos ast.Position
	Msg string
}

func (e *SyntaxError) Error() string {
	return e.Pos.String() + ": " + e.Msg
}

// Parser reads nested CSS (no variables, mixins or control flow) into a
// statement tree, resolving nested selectors against their parents.
type Parser struct {
	log *zap.Logger
}

// NewParser creates a new CSS parser.
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log.Named("css-parser")}
}

// Parse decodes data and parses it into a root block. Source is used in
// node positions and error messages.
func (p *Parser) Parse(data []byte, source string) (*ast.Block, error) {
	text, charset, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}

	toks, err := tokenize(text, source)
	if err != nil {
		return nil, err
	}

	st := &state{log: p.log, toks: toks}
	children, err := st.block(scope{}, false, ast.Position{})
	if err != nil {
		return nil, err
	}

	root := ast.NewRoot(ast.Position{Source: source, Line: 1, Column: 1})
	root.Append(children...)

	p.log.Debug("Parsed stylesheet",
		zap.String("source", source),
		zap.String("charset", charset),
		zap.Int("bytes", len(data)),
		zap.Int("statements", ast.Count(root)))
	return root, nil
}

type token struct {
	tt   css.TokenType
	data string
	pos  ast.Position
}

func (t *token) is(tt css.TokenType, data string) bool {
	return t != nil && t.tt == tt && strings.EqualFold(t.data, data)
}

func tokenize(data []byte, source string) ([]token, error) {
	l := css.NewLexer(parse.NewInputBytes(data))

	line, col := 1, 1
	var toks []token
	for {
		tt, b := l.Next()
		if tt == css.ErrorToken {
			if err := l.Err(); err != nil && !errors.Is(err, io.EOF) {
				return nil, &SyntaxError{Pos: ast.Position{Source: source, Line: line, Column: col}, Msg: err.Error()}
			}
			return toks, nil
		}

		t := token{tt: tt, data: string(b), pos: ast.Position{Source: source, Line: line, Column: col}}
		switch tt {
		case css.BadStringToken:
			return nil, &SyntaxError{Pos: t.pos, Msg: "unterminated string"}
		case css.BadURLToken:
			return nil, &SyntaxError{Pos: t.pos, Msg: "malformed url()"}
		}
		toks = append(toks, t)

		for _, r := range t.data {
			if r == '\n' {
				line++
				col = 1
			} else {
				col++
			}
		}
	}
}

// scope describes where a statement sits while parsing.
type scope struct {
	selectors ast.SelectorList // resolved selectors of the enclosing rule
	detached  bool             // next rule is not joined with selectors (@at-root)
	keyframes bool             // rules are keyframe steps
	inBody    bool             // inside any block, declarations are allowed
}

type state struct {
	log  *zap.Logger
	toks []token
	i    int
}

func (s *state) peek() *token {
	if s.i >= len(s.toks) {
		return nil
	}
	return &s.toks[s.i]
}

func (s *state) errorf(pos ast.Position, format string, args ...any) error {
	return &SyntaxError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// block parses statements until the closing brace (nested) or end of input.
func (s *state) block(sc scope, nested bool, open ast.Position) ([]ast.Statement, error) {
	var out []ast.Statement
	for {
		t := s.peek()
		if t == nil {
			if nested {
				return nil, s.errorf(open, "unterminated block")
			}
			return out, nil
		}

		switch t.tt {
		case css.WhitespaceToken, css.CDOToken, css.CDCToken, css.SemicolonToken:
			s.i++
		case css.CommentToken:
			s.i++
			out = append(out, ast.NewComment(t.pos, t.data))
		case css.RightBraceToken:
			s.i++
			if !nested {
				return nil, s.errorf(t.pos, "unexpected }")
			}
			return out, nil
		case css.AtKeywordToken:
			st, err := s.atRule(sc)
			if err != nil {
				return nil, err
			}
			if st != nil {
				out = append(out, st)
			}
		default:
			st, err := s.ruleOrDeclaration(sc)
			if err != nil {
				return nil, err
			}
			out = append(out, st)
		}
	}
}

// prelude collects tokens up to a top level '{', ';' or '}'. The first two
// are consumed and returned as terminator, '}' and end of input give nil.
func (s *state) prelude() ([]token, *token) {
	var toks []token
	depth := 0
	for t := s.peek(); t != nil; t = s.peek() {
		switch t.tt {
		case css.LeftParenthesisToken, css.LeftBracketToken, css.FunctionToken:
			depth++
		case css.RightParenthesisToken, css.RightBracketToken:
			if depth > 0 {
				depth--
			}
		case css.LeftBraceToken, css.SemicolonToken:
			if depth == 0 {
				s.i++
				return toks, t
			}
		case css.RightBraceToken:
			if depth == 0 {
				return toks, nil
			}
		}
		toks = append(toks, *t)
		s.i++
	}
	return toks, nil
}

func (s *state) ruleOrDeclaration(sc scope) (ast.Statement, error) {
	start := s.peek().pos
	toks, term := s.prelude()
	if term != nil && term.tt == css.LeftBraceToken {
		return s.ruleset(sc, toks, start, term.pos)
	}
	if !sc.inBody {
		return nil, s.errorf(start, "declaration outside of a rule")
	}
	return declaration(toks, start)
}

func declaration(toks []token, start ast.Position) (ast.Statement, error) {
	colon := -1
	for i, t := range toks {
		if t.tt == css.ColonToken {
			colon = i
			break
		}
	}
	if colon < 0 {
		return nil, &SyntaxError{Pos: start, Msg: fmt.Sprintf("expected ':' after %q", valueText(toks))}
	}
	prop := valueText(toks[:colon])
	if prop == "" {
		return nil, &SyntaxError{Pos: start, Msg: "missing property name"}
	}

	value := trimSpace(toks[colon+1:])
	important := false
	if n := len(value); n >= 2 && value[n-1].is(css.IdentToken, "important") {
		rest := trimSpace(value[:n-1])
		if m := len(rest); m > 0 && rest[m-1].is(css.DelimToken, "!") {
			important = true
			value = rest[:m-1]
		}
	}
	return ast.NewDeclaration(start, prop, valueText(value), important), nil
}

func (s *state) ruleset(sc scope, toks []token, start, open ast.Position) (ast.Statement, error) {
	parts := splitCommas(trimSpace(toks))
	if len(parts) == 0 {
		return nil, s.errorf(start, "missing selector")
	}

	if sc.keyframes {
		var sel ast.SelectorList
		for _, part := range parts {
			sel = append(sel, valueText(part))
		}
		body, err := s.block(scope{inBody: true}, true, open)
		if err != nil {
			return nil, err
		}
		return ast.NewKeyframeRule(start, sel, ast.NewBlock(open, body...)), nil
	}

	sel, err := contextualize(sc, parts, start)
	if err != nil {
		return nil, err
	}
	body, err := s.block(scope{selectors: sel, inBody: true}, true, open)
	if err != nil {
		return nil, err
	}
	return ast.NewRuleset(start, sel, ast.NewBlock(open, body...)), nil
}

// contextualize resolves nested selectors: '&' is replaced by every parent
// selector, otherwise the parent is prepended as a descendant.
func contextualize(sc scope, parts [][]token, pos ast.Position) (ast.SelectorList, error) {
	parents := sc.selectors
	if len(parents) == 0 {
		parents = ast.SelectorList{""}
	}

	var out ast.SelectorList
	for _, parent := range parents {
		for _, part := range parts {
			text, amp := selectorText(part, parent)
			if amp && parent == "" {
				return nil, &SyntaxError{Pos: pos, Msg: "'&' used outside of a rule"}
			}
			if !amp && parent != "" && !sc.detached {
				text = parent + " " + text
			}
			out = append(out, text)
		}
	}
	return out, nil
}

// selectorText renders selector tokens substituting '&' with parent and
// normalizing combinator spacing.
func selectorText(toks []token, parent string) (string, bool) {
	var sb strings.Builder
	amp := false
	depth := 0
	for _, t := range toks {
		switch t.tt {
		case css.CommentToken:
			continue
		case css.WhitespaceToken:
			sb.WriteByte(' ')
			continue
		case css.LeftBracketToken, css.LeftParenthesisToken, css.FunctionToken:
			depth++
		case css.RightBracketToken, css.RightParenthesisToken:
			depth--
		case css.DelimToken:
			switch {
			case t.data == "&":
				amp = true
				sb.WriteString(parent)
				continue
			case depth == 0 && (t.data == ">" || t.data == "+" || t.data == "~"):
				sb.WriteString(" " + t.data + " ")
				continue
			}
		}
		sb.WriteString(t.data)
	}
	return strings.Join(strings.Fields(sb.String()), " "), amp
}

func (s *state) atRule(sc scope) (ast.Statement, error) {
	kw := s.peek()
	s.i++
	keyword := strings.ToLower(kw.data)
	toks, term := s.prelude()
	toks = trimSpace(toks)
	hasBody := term != nil && term.tt == css.LeftBraceToken

	var open ast.Position
	if hasBody {
		open = term.pos
	}
	inner := sc
	inner.inBody = true
	inner.keyframes = false

	body := func(bsc scope) (*ast.Block, error) {
		children, err := s.block(bsc, true, open)
		if err != nil {
			return nil, err
		}
		return ast.NewBlock(open, children...), nil
	}

	switch {
	case keyword == "@charset":
		s.log.Debug("Dropping @charset rule, output is always UTF-8", zap.Stringer("at", kw.pos))
		if hasBody {
			if _, err := body(inner); err != nil {
				return nil, err
			}
		}
		return nil, nil

	case keyword == "@media":
		if !hasBody {
			return nil, s.errorf(kw.pos, "expected '{' after @media")
		}
		queries, err := mediaQueries(toks, kw.pos)
		if err != nil {
			return nil, err
		}
		b, err := body(inner)
		if err != nil {
			return nil, err
		}
		return ast.NewMediaBlock(kw.pos, queries, b), nil

	case keyword == "@supports":
		if !hasBody {
			return nil, s.errorf(kw.pos, "expected '{' after @supports")
		}
		if len(toks) == 0 {
			return nil, s.errorf(kw.pos, "missing @supports condition")
		}
		b, err := body(inner)
		if err != nil {
			return nil, err
		}
		return ast.NewFeatureBlock(kw.pos, conditionText(toks), b), nil

	case keyword == "@at-root":
		if !hasBody {
			return nil, s.errorf(kw.pos, "expected '{' after @at-root")
		}
		return s.atRoot(inner, toks, kw.pos, open)

	case (&ast.AtRule{Keyword: keyword}).IsKeyframes():
		if !hasBody {
			return nil, s.errorf(kw.pos, "expected '{' after %s", keyword)
		}
		b, err := body(scope{keyframes: true, inBody: true})
		if err != nil {
			return nil, err
		}
		return ast.NewAtRule(kw.pos, keyword, valueText(toks), b), nil
	}

	r := ast.NewAtRule(kw.pos, keyword, valueText(toks), nil)
	if hasBody {
		b, err := body(inner)
		if err != nil {
			return nil, err
		}
		r.SetBody(b)
	}
	return r, nil
}

func (s *state) atRoot(sc scope, toks []token, pos, open ast.Position) (ast.Statement, error) {
	if len(toks) > 0 && toks[0].tt == css.LeftParenthesisToken {
		query, err := atRootQuery(toks, pos)
		if err != nil {
			return nil, err
		}
		if query.Excludes("rule") {
			sc.detached = true
		}
		children, err := s.block(sc, true, open)
		if err != nil {
			return nil, err
		}
		return ast.NewAtRootBlock(pos, query, ast.NewBlock(open, children...)), nil
	}

	sc.detached = true
	if len(toks) == 0 {
		children, err := s.block(sc, true, open)
		if err != nil {
			return nil, err
		}
		return ast.NewAtRootBlock(pos, nil, ast.NewBlock(open, children...)), nil
	}

	// inline selector form: @at-root .sel { ... }
	rule, err := s.ruleset(sc, toks, toks[0].pos, open)
	if err != nil {
		return nil, err
	}
	return ast.NewAtRootBlock(pos, nil, ast.NewBlock(open, rule)), nil
}

func atRootQuery(toks []token, pos ast.Position) (*ast.AtRootQuery, error) {
	var words []token
	for _, t := range toks {
		switch t.tt {
		case css.WhitespaceToken, css.CommentToken, css.LeftParenthesisToken, css.RightParenthesisToken:
		default:
			words = append(words, t)
		}
	}
	if len(words) < 2 || words[1].tt != css.ColonToken ||
		!(words[0].is(css.IdentToken, "with") || words[0].is(css.IdentToken, "without")) {
		return nil, &SyntaxError{Pos: pos, Msg: "expected (with: ...) or (without: ...) in @at-root"}
	}

	q := &ast.AtRootQuery{With: words[0].is(css.IdentToken, "with")}
	for _, w := range words[2:] {
		if w.tt != css.IdentToken {
			return nil, &SyntaxError{Pos: w.pos, Msg: fmt.Sprintf("unexpected %q in @at-root query", w.data)}
		}
		q.Names = append(q.Names, strings.ToLower(w.data))
	}
	return q, nil
}

// mediaQueries parses "[only|not] type and (feature) ..., ..." lists.
func mediaQueries(toks []token, pos ast.Position) ([]*ast.MediaQuery, error) {
	var out []*ast.MediaQuery
	for _, part := range splitCommas(toks) {
		q := &ast.MediaQuery{}
		for i := 0; i < len(part); i++ {
			t := part[i]
			switch {
			case t.tt == css.WhitespaceToken || t.tt == css.CommentToken:
			case t.is(css.IdentToken, "and"):
			case t.is(css.IdentToken, "only") && q.Type == "" && len(q.Features) == 0:
				q.Restricted = true
			case t.is(css.IdentToken, "not") && q.Type == "" && len(q.Features) == 0:
				q.Negated = true
			case t.tt == css.IdentToken && q.Type == "" && len(q.Features) == 0:
				q.Type = strings.ToLower(t.data)
			case t.tt == css.LeftParenthesisToken:
				end := matchingParen(part, i)
				if end < 0 {
					return nil, &SyntaxError{Pos: t.pos, Msg: "unbalanced parenthesis in media query"}
				}
				q.Features = append(q.Features, conditionText(part[i:end+1]))
				i = end
			default:
				return nil, &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf("unexpected %q in media query", t.data)}
			}
		}
		if q.Type == "" && len(q.Features) == 0 {
			return nil, &SyntaxError{Pos: pos, Msg: "empty media query"}
		}
		out = append(out, q)
	}
	if len(out) == 0 {
		return nil, &SyntaxError{Pos: pos, Msg: "missing media query"}
	}
	return out, nil
}

func matchingParen(toks []token, open int) int {
	depth := 0
	for i := open; i < len(toks); i++ {
		switch toks[i].tt {
		case css.LeftParenthesisToken, css.FunctionToken:
			depth++
		case css.RightParenthesisToken:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func trimSpace(toks []token) []token {
	for len(toks) > 0 && (toks[0].tt == css.WhitespaceToken || toks[0].tt == css.CommentToken) {
		toks = toks[1:]
	}
	for len(toks) > 0 && (toks[len(toks)-1].tt == css.WhitespaceToken || toks[len(toks)-1].tt == css.CommentToken) {
		toks = toks[:len(toks)-1]
	}
	return toks
}

// splitCommas splits tokens on top level commas dropping empty parts.
func splitCommas(toks []token) [][]token {
	var (
		parts [][]token
		cur   []token
		depth int
	)
	flush := func() {
		if c := trimSpace(cur); len(c) > 0 {
			parts = append(parts, c)
		}
		cur = nil
	}
	for _, t := range toks {
		switch t.tt {
		case css.LeftParenthesisToken, css.LeftBracketToken, css.FunctionToken:
			depth++
		case css.RightParenthesisToken, css.RightBracketToken:
			depth--
		case css.CommaToken:
			if depth == 0 {
				flush()
				continue
			}
		}
		cur = append(cur, t)
	}
	flush()
	return parts
}

// valueText joins tokens collapsing whitespace and dropping comments.
func valueText(toks []token) string {
	var sb strings.Builder
	space := false
	for _, t := range trimSpace(toks) {
		switch t.tt {
		case css.WhitespaceToken:
			space = true
			continue
		case css.CommentToken:
			continue
		}
		if space {
			sb.WriteByte(' ')
			space = false
		}
		sb.WriteString(t.data)
	}
	return sb.String()
}

// conditionText is valueText with "name: value" spacing and no padding
// inside parentheses, so "( min-width:500px )" reads "(min-width: 500px)".
func conditionText(toks []token) string {
	var sb strings.Builder
	space := false
	prev := css.ErrorToken
	for _, t := range trimSpace(toks) {
		switch t.tt {
		case css.WhitespaceToken:
			space = true
			continue
		case css.CommentToken:
			continue
		}
		switch {
		case prev == css.ColonToken:
			sb.WriteByte(' ')
		case !space:
		case t.tt == css.ColonToken, t.tt == css.RightParenthesisToken:
		case prev == css.LeftParenthesisToken, prev == css.FunctionToken:
		default:
			sb.WriteByte(' ')
		}
		space = false
		sb.WriteString(t.data)
		prev = t.tt
	}
	return sb.String()
}
