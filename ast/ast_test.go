package ast_test

import (
	"errors"
	"strings"
	"testing"

	"cssnest/ast"
)

// alien is a statement the ast package does not know about.
type alien struct {
	*ast.Declaration
}

func newAlien() alien {
	return alien{ast.NewDeclaration(ast.Position{Source: "x.css", Line: 3, Column: 7}, "a", "b", false)}
}

func TestBubbles(t *testing.T) {
	var pos ast.Position
	body := ast.NewBlock(pos)
	tests := []struct {
		stmt      ast.Statement
		bubbles   bool
		bubblable bool
	}{
		{ast.NewRuleset(pos, ast.SelectorList{".a"}, body), false, true},
		{ast.NewMediaBlock(pos, nil, body), true, true},
		{ast.NewFeatureBlock(pos, "(display: grid)", body), true, true},
		{ast.NewAtRootBlock(pos, nil, body), true, true},
		{ast.NewAtRule(pos, "@font-face", "", body), false, false},
		{ast.NewAtRule(pos, "@keyframes", "spin", body), true, true},
		{ast.NewAtRule(pos, "@-webkit-keyframes", "spin", body), true, true},
		{ast.NewAtRule(pos, "@MEDIA", "print", body), true, true},
		{ast.NewAtRule(pos, "@-webkit-media", "screen", body), true, true},
		{ast.NewAtRule(pos, "@-moz-media", "screen", body), true, true},
		{ast.NewAtRule(pos, "@-o-media", "screen", body), true, true},
		{ast.NewAtRule(pos, "@-ms-media", "screen", body), false, false},
		{ast.NewKeyframeRule(pos, ast.SelectorList{"from"}, body), false, false},
		{ast.NewBubble(ast.NewDeclaration(pos, "a", "b", false)), true, true},
		{ast.NewDeclaration(pos, "color", "red", false), false, false},
		{ast.NewComment(pos, "/* x */"), false, false},
	}
	for _, tt := range tests {
		if got := tt.stmt.Bubbles(); got != tt.bubbles {
			t.Errorf("%s.Bubbles() = %v, want %v", ast.TypeName(tt.stmt), got, tt.bubbles)
		}
		if got := ast.Bubblable(tt.stmt); got != tt.bubblable {
			t.Errorf("Bubblable(%s) = %v, want %v", ast.TypeName(tt.stmt), got, tt.bubblable)
		}
	}
}

func TestNewBubbleEndsGroup(t *testing.T) {
	var pos ast.Position
	b := ast.NewBubble(ast.NewDeclaration(pos, "a", "b", false))
	if !b.GroupEnd() {
		t.Error("new bubble must end its group")
	}
	if b.Tabs() != 0 {
		t.Errorf("tabs = %d, want 0", b.Tabs())
	}
}

func TestPositionString(t *testing.T) {
	tests := []struct {
		pos  ast.Position
		want string
	}{
		{ast.Position{}, "-"},
		{ast.Position{Source: "a.css"}, "a.css"},
		{ast.Position{Line: 2, Column: 5}, "2:5"},
		{ast.Position{Source: "a.css", Line: 2, Column: 5}, "a.css:2:5"},
	}
	for _, tt := range tests {
		if got := tt.pos.String(); got != tt.want {
			t.Errorf("%#v.String() = %q, want %q", tt.pos, got, tt.want)
		}
	}
}

func TestMediaQueryString(t *testing.T) {
	tests := []struct {
		q    ast.MediaQuery
		want string
	}{
		{ast.MediaQuery{Type: "screen"}, "screen"},
		{ast.MediaQuery{Restricted: true, Type: "screen"}, "only screen"},
		{ast.MediaQuery{Negated: true, Type: "print", Features: []string{"(color)"}}, "not print and (color)"},
		{ast.MediaQuery{Features: []string{"(min-width: 500px)", "(max-width: 900px)"}}, "(min-width: 500px) and (max-width: 900px)"},
	}
	for _, tt := range tests {
		if got := tt.q.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestQueriesEqual(t *testing.T) {
	a := []*ast.MediaQuery{{Type: "screen", Features: []string{"(color)"}}}
	b := ast.CloneQueries(a)
	if !ast.QueriesEqual(a, b) {
		t.Fatal("clone is not equal to original")
	}
	b[0].Features[0] = "(monochrome)"
	if a[0].Features[0] != "(color)" {
		t.Fatal("CloneQueries shares feature storage")
	}
	if ast.QueriesEqual(a, b) {
		t.Error("different features compare equal")
	}
	if ast.QueriesEqual(a, nil) {
		t.Error("different lengths compare equal")
	}
}

func TestAtRootQueryExcludes(t *testing.T) {
	var pos ast.Position
	body := ast.NewBlock(pos)
	rule := ast.NewRuleset(pos, ast.SelectorList{".a"}, body)
	media := ast.NewMediaBlock(pos, nil, body)
	supports := ast.NewFeatureBlock(pos, "(x: y)", body)
	fontFace := ast.NewAtRule(pos, "@font-face", "", body)
	keyframes := ast.NewAtRule(pos, "@-moz-keyframes", "spin", body)

	tests := []struct {
		name  string
		query *ast.AtRootQuery
		node  ast.Statement
		want  bool
	}{
		{"nil excludes rule", nil, rule, true},
		{"nil keeps media", nil, media, false},
		{"without empty excludes rule", &ast.AtRootQuery{}, rule, true},
		{"without media", &ast.AtRootQuery{Names: []string{"media"}}, media, true},
		{"without media keeps rule", &ast.AtRootQuery{Names: []string{"media"}}, rule, false},
		{"without all", &ast.AtRootQuery{Names: []string{"all"}}, supports, true},
		{"without at-rule name", &ast.AtRootQuery{Names: []string{"font-face"}}, fontFace, true},
		{"without keyframes keeps prefixed keyframes", &ast.AtRootQuery{Names: []string{"keyframes"}}, keyframes, false},
		{"without prefixed keyframes", &ast.AtRootQuery{Names: []string{"-moz-keyframes"}}, keyframes, true},
		{"with empty keeps rule", &ast.AtRootQuery{With: true}, rule, false},
		{"with empty excludes media", &ast.AtRootQuery{With: true}, media, true},
		{"with media keeps media", &ast.AtRootQuery{With: true, Names: []string{"media"}}, media, false},
		{"with media excludes rule", &ast.AtRootQuery{With: true, Names: []string{"media"}}, rule, true},
		{"with all keeps supports", &ast.AtRootQuery{With: true, Names: []string{"all"}}, supports, false},
		{"declaration never excluded", &ast.AtRootQuery{Names: []string{"all"}}, ast.NewDeclaration(pos, "a", "b", false), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.query.ExcludesNode(tt.node); got != tt.want {
				t.Errorf("ExcludesNode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClone(t *testing.T) {
	pos := ast.Position{Source: "a.css", Line: 1, Column: 1}
	body := ast.NewBlock(pos, ast.NewDeclaration(pos, "color", "red", false))
	m := ast.NewMediaBlock(pos, []*ast.MediaQuery{{Type: "screen"}}, body)
	m.SetTabs(2)
	m.SetGroupEnd(true)

	c, err := ast.Clone(m)
	if err != nil {
		t.Fatalf("Clone() error = %v", err)
	}
	mc := c.(*ast.MediaBlock)
	if mc == m {
		t.Fatal("Clone() returned the same pointer")
	}
	if mc.Tabs() != 2 || !mc.GroupEnd() {
		t.Errorf("annotations not copied: tabs=%d group_end=%v", mc.Tabs(), mc.GroupEnd())
	}
	if mc.Body() != body {
		t.Error("Clone() must keep the body")
	}
	mc.Queries[0].Type = "print"
	mc.SetTabs(5)
	if m.Queries[0].Type != "screen" || m.Tabs() != 2 {
		t.Error("mutating the clone changed the original")
	}

	shell, err := ast.CloneShell(m)
	if err != nil {
		t.Fatalf("CloneShell() error = %v", err)
	}
	if shell.Body() == nil || shell.Body().Len() != 0 {
		t.Fatalf("CloneShell() body = %v, want empty block", shell.Body())
	}
	if body.Len() != 1 {
		t.Error("CloneShell() touched the original body")
	}
}

func TestCloneUnknownKind(t *testing.T) {
	_, err := ast.Clone(newAlien())
	if !errors.Is(err, ast.ErrUnknownStatementKind) {
		t.Fatalf("Clone() error = %v, want ErrUnknownStatementKind", err)
	}
	var uerr *ast.UnknownStatementKindError
	if !errors.As(err, &uerr) {
		t.Fatalf("error %T is not *UnknownStatementKindError", err)
	}
	if uerr.Pos.Line != 3 || uerr.Pos.Column != 7 {
		t.Errorf("error position = %v, want x.css:3:7", uerr.Pos)
	}
	if !strings.Contains(err.Error(), "x.css:3:7") {
		t.Errorf("error text %q does not carry the position", err.Error())
	}
}

func TestOperationPerform(t *testing.T) {
	var pos ast.Position
	decl := ast.NewDeclaration(pos, "color", "red", false)
	rule := ast.NewRuleset(pos, ast.SelectorList{".a"}, ast.NewBlock(pos, decl))

	t.Run("missing handlers are identity", func(t *testing.T) {
		op := &ast.Operation{}
		got, err := op.Perform(rule)
		if err != nil {
			t.Fatalf("Perform() error = %v", err)
		}
		if got != rule {
			t.Error("Perform() without handlers must return its argument")
		}
	})

	t.Run("handler selected by variant", func(t *testing.T) {
		var seen []string
		op := &ast.Operation{
			Ruleset: func(r *ast.Ruleset) (ast.Statement, error) {
				seen = append(seen, "rule "+r.Selector.String())
				return r, nil
			},
			Declaration: func(d *ast.Declaration) (ast.Statement, error) {
				seen = append(seen, "decl "+d.Property)
				return nil, nil
			},
		}
		if _, err := op.Perform(rule); err != nil {
			t.Fatal(err)
		}
		if _, err := op.Perform(decl); err != nil {
			t.Fatal(err)
		}
		if strings.Join(seen, "|") != "rule .a|decl color" {
			t.Errorf("handlers called: %v", seen)
		}
	})

	t.Run("fallback", func(t *testing.T) {
		var fallbacks int
		op := &ast.Operation{
			Fallback: func(s ast.Statement) (ast.Statement, error) {
				fallbacks++
				return ast.NewComment(s.Pos(), "/* replaced */"), nil
			},
		}
		got, err := op.Perform(decl)
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := got.(*ast.Comment); !ok || fallbacks != 1 {
			t.Errorf("fallback not used: got %s, calls %d", ast.TypeName(got), fallbacks)
		}
	})

	t.Run("unknown kind", func(t *testing.T) {
		op := &ast.Operation{
			Fallback: func(s ast.Statement) (ast.Statement, error) { return s, nil },
		}
		_, err := op.Perform(newAlien())
		if !errors.Is(err, ast.ErrUnknownStatementKind) {
			t.Fatalf("Perform() error = %v, want ErrUnknownStatementKind", err)
		}
		if _, err := op.Perform(nil); !errors.Is(err, ast.ErrUnknownStatementKind) {
			t.Fatalf("Perform(nil) error = %v, want ErrUnknownStatementKind", err)
		}
	})
}

func TestDumpAndInspect(t *testing.T) {
	pos := ast.Position{Line: 1, Column: 1}
	inner := ast.NewMediaBlock(pos, []*ast.MediaQuery{{Type: "print"}},
		ast.NewBlock(pos, ast.NewDeclaration(pos, "color", "red", true)))
	root := ast.NewRoot(pos)
	rule := ast.NewRuleset(pos, ast.SelectorList{".a", ".b"}, ast.NewBlock(pos, ast.NewBubble(inner)))
	rule.SetGroupEnd(true)
	root.Append(rule)

	out := ast.Dump(root)
	for _, want := range []string{
		"Block root at=\"1:1\"\n",
		"  Ruleset selector=\".a, .b\" group_end at=\"1:1\"\n",
		"    Bubble group_end at=\"1:1\"\n",
		"      MediaBlock queries=\"print\" at=\"1:1\"\n",
		"        Declaration property=\"color\" value=\"red\" important at=\"1:1\"\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Dump() missing %q in:\n%s", want, out)
		}
	}

	var bubbles int
	ast.Inspect(root, func(s ast.Statement) bool {
		if _, ok := s.(*ast.Bubble); ok {
			bubbles++
		}
		return true
	})
	if bubbles != 1 {
		t.Errorf("Inspect() found %d bubbles, want 1", bubbles)
	}
	if got := ast.Count(root); got != 4 {
		t.Errorf("Count() = %d, want 4", got)
	}
}
