package compile

import (
	"bytes"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"

	"cssnest/config"
)

// Values is a struct that holds variables we make available for template
// expansion.
type Values struct {
	Context string
	Name    string // source base name without extension
	Dir     string // source directory relative to the input root, slash separated
	Ext     string // source extension including dot
	Style   string
	ID      string // unique compilation identifier
}

func newValues(name config.TemplateFieldName, src, style, id string) Values {
	src = filepath.ToSlash(src)
	ext := path.Ext(src)
	dir := path.Dir(src)
	if dir == "." {
		dir = ""
	}
	return Values{
		Context: string(name),
		Name:    strings.TrimSuffix(path.Base(src), ext),
		Dir:     dir,
		Ext:     ext,
		Style:   style,
		ID:      id,
	}
}

func expandTemplate(name config.TemplateFieldName, field string, values Values) (string, error) {
	tmpl, err := template.New(string(name)).Funcs(sprig.FuncMap()).Parse(field)
	if err != nil {
		return "", fmt.Errorf("unable to parse template field %s: %w", name, err)
	}

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, values); err != nil {
		return "", err
	}
	return buf.String(), nil
}
