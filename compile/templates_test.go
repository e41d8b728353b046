package compile

import (
	"path/filepath"
	"strings"
	"testing"

	"cssnest/config"
)

func TestNewValues(t *testing.T) {
	tests := []struct {
		src  string
		want Values
	}{
		{"site.css", Values{Name: "site", Ext: ".css"}},
		{filepath.FromSlash("themes/dark/site.min.css"), Values{Name: "site.min", Dir: "themes/dark", Ext: ".css"}},
		{"README", Values{Name: "README"}},
	}
	for _, tt := range tests {
		got := newValues(config.OutputNameTemplateFieldName, tt.src, "nested", "id")
		tt.want.Context, tt.want.Style, tt.want.ID = string(config.OutputNameTemplateFieldName), "nested", "id"
		if got != tt.want {
			t.Errorf("newValues(%q) = %+v, want %+v", tt.src, got, tt.want)
		}
	}
}

func TestExpandTemplate(t *testing.T) {
	values := newValues(config.OutputNameTemplateFieldName, "themes/Site.css", "compact", "0001")

	tests := []struct {
		name     string
		template string
		want     string
	}{
		{"simple text", "simple-text", "simple-text"},
		{"fields", "{{ .Dir }}/{{ .Name }}{{ .Ext }}", "themes/Site.css"},
		{"style and id", "{{ .Style }}-{{ .ID }}", "compact-0001"},
		{"context", "{{ .Context }}", "output_name_template"},
		{"sprig functions", "{{ .Name | lower | repeat 2 }}", "sitesite"},
		{"sprig default", `{{ .Dir | replace "themes" "" | default "root" }}`, "root"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := expandTemplate(config.OutputNameTemplateFieldName, tt.template, values)
			if err != nil {
				t.Fatalf("expandTemplate() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("expandTemplate() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExpandTemplate_Errors(t *testing.T) {
	values := newValues(config.OutputNameTemplateFieldName, "site.css", "nested", "1")

	_, err := expandTemplate(config.OutputNameTemplateFieldName, "{{ .Name ", values)
	if err == nil || !strings.Contains(err.Error(), "unable to parse template field output_name_template") {
		t.Errorf("Expected parse error, got %v", err)
	}

	if _, err := expandTemplate(config.OutputNameTemplateFieldName, "{{ .Missing }}", values); err == nil {
		t.Error("Expected execution error for unknown field")
	}
}
