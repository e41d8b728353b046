package cssize

import (
	"strings"
	"testing"

	"cssnest/ast"
)

func mq(mod, typ string, features ...string) *ast.MediaQuery {
	return &ast.MediaQuery{
		Negated:    mod == "not",
		Restricted: mod == "only",
		Type:       typ,
		Features:   features,
	}
}

func TestMergeMediaQuery(t *testing.T) {
	tests := []struct {
		name  string
		inner *ast.MediaQuery
		outer *ast.MediaQuery
		want  string // "<nil>" for unsatisfiable
	}{
		{"same query doubles features", mq("", "screen", "(a)"), mq("", "screen", "(a)"), "screen and (a) and (a)"},
		{"outer features first", mq("", "screen", "(inner)"), mq("", "screen", "(outer)"), "screen and (outer) and (inner)"},
		{"inner inherits outer type", mq("", "", "(min-width: 500px)"), mq("", "print"), "print and (min-width: 500px)"},
		{"outer inherits inner type", mq("", "screen"), mq("", "", "(min-width: 500px)"), "screen and (min-width: 500px)"},
		{"different types", mq("", "screen"), mq("", "print"), "<nil>"},
		{"negated inner same type", mq("not", "screen"), mq("", "screen"), "<nil>"},
		{"negated outer same type", mq("", "screen"), mq("not", "screen"), "<nil>"},
		{"negated inner other type", mq("not", "screen"), mq("", "print"), "print"},
		{"negated outer other type", mq("", "screen"), mq("not", "print"), "screen"},
		{"negated inner keeps outer only", mq("not", "screen"), mq("only", "print"), "only print"},
		{"both negated same type", mq("not", "screen", "(a)"), mq("not", "screen", "(b)"), "not screen and (b) and (a)"},
		{"both negated different types", mq("not", "screen"), mq("not", "print"), "<nil>"},
		{"only on inner", mq("only", "screen"), mq("", "screen"), "only screen"},
		{"only on outer", mq("", "screen"), mq("only", "screen"), "only screen"},
		{"no types", mq("", "", "(a)"), mq("", "", "(b)"), "(b) and (a)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := "<nil>"
			if q := MergeMediaQuery(tt.inner, tt.outer); q != nil {
				got = q.String()
			}
			if got != tt.want {
				t.Errorf("MergeMediaQuery(%q, %q) = %q, want %q", tt.inner, tt.outer, got, tt.want)
			}
		})
	}
}

func TestMergeMediaQueryDoesNotAlias(t *testing.T) {
	q1 := mq("", "screen", "(a)")
	q2 := mq("", "screen", "(b)")
	m := MergeMediaQuery(q1, q2)
	m.Features[0] = "(changed)"
	if q2.Features[0] != "(b)" || q1.Features[0] != "(a)" {
		t.Error("merged query shares feature storage with its inputs")
	}
}

func TestMergeMediaQueries(t *testing.T) {
	inner := []*ast.MediaQuery{mq("", "", "(a)"), mq("", "", "(b)")}
	outer := []*ast.MediaQuery{mq("", "screen"), mq("", "print")}

	got := MergeMediaQueries(inner, outer)
	parts := make([]string, 0, len(got))
	for _, q := range got {
		parts = append(parts, q.String())
	}
	want := "screen and (a), print and (a), screen and (b), print and (b)"
	if s := strings.Join(parts, ", "); s != want {
		t.Errorf("MergeMediaQueries() = %q, want %q", s, want)
	}

	none := MergeMediaQueries([]*ast.MediaQuery{mq("", "screen")}, []*ast.MediaQuery{mq("", "print"), mq("not", "screen")})
	if len(none) != 0 {
		t.Errorf("unsatisfiable combination produced %d queries", len(none))
	}

	partial := MergeMediaQueries([]*ast.MediaQuery{mq("", "screen")}, []*ast.MediaQuery{mq("", "print"), mq("", "screen", "(color)")})
	if len(partial) != 1 || partial[0].String() != "screen and (color)" {
		t.Errorf("unsatisfiable pair not dropped: %v", partial)
	}
}
