package debug

import (
	"fmt"
	"strconv"
	"strings"
)

// TreeWriter accumulates an indented text rendering of a tree, one node per
// line.
type TreeWriter struct {
	w      *strings.Builder
	indent string
}

type Option func(*TreeWriter)

// WithIndent replaces the default two space indentation unit.
func WithIndent(unit string) Option {
	return func(tw *TreeWriter) {
		tw.indent = unit
	}
}

func NewTreeWriter(opts ...Option) *TreeWriter {
	tw := &TreeWriter{
		w:      &strings.Builder{},
		indent: "  ",
	}
	for _, opt := range opts {
		opt(tw)
	}
	return tw
}

func (tw *TreeWriter) String() string {
	return tw.w.String()
}

func (tw *TreeWriter) pad(depth int) {
	for range depth {
		tw.w.WriteString(tw.indent)
	}
}

func (tw *TreeWriter) Line(depth int, format string, args ...any) {
	tw.pad(depth)
	fmt.Fprintf(tw.w, format, args...)
	tw.w.WriteByte('\n')
}

func (tw *TreeWriter) TextBlock(depth int, label, value string) {
	tw.pad(depth)
	tw.w.WriteString(label)
	tw.w.WriteString(": ")
	tw.w.WriteString(encodeText(value))
	tw.w.WriteByte('\n')
}

// Attr is a single key[=value] annotation of a node line. Attributes with an
// empty key are not written.
type Attr struct {
	Key   string
	Value string
}

// Str is a quoted attribute, dropped when value is empty.
func Str(key, value string) Attr {
	if value == "" {
		return Attr{}
	}
	return Attr{Key: key, Value: encodeText(value)}
}

// Int is a numeric attribute, dropped when zero.
func Int(key string, value int) Attr {
	if value == 0 {
		return Attr{}
	}
	return Attr{Key: key, Value: strconv.Itoa(value)}
}

// Flag is written as a bare key when set.
func Flag(key string, set bool) Attr {
	if !set {
		return Attr{}
	}
	return Attr{Key: key}
}

// Node writes the node kind followed by its attributes.
func (tw *TreeWriter) Node(depth int, kind string, attrs ...Attr) {
	tw.pad(depth)
	tw.w.WriteString(kind)
	for _, a := range attrs {
		if a.Key == "" {
			continue
		}
		tw.w.WriteByte(' ')
		tw.w.WriteString(a.Key)
		if a.Value != "" {
			tw.w.WriteByte('=')
			tw.w.WriteString(a.Value)
		}
	}
	tw.w.WriteByte('\n')
}

func encodeText(raw string) string {
	if raw == "" {
		return raw
	}
	return strconv.Quote(raw)
}
