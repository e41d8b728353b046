package css

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/ianaindex"
	xunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16BE = []byte{0xFE, 0xFF}
	bomUTF16LE = []byte{0xFF, 0xFE}

	charsetPrefix = []byte(`@charset "`)
)

// Decode converts stylesheet bytes to UTF-8 and returns the name of the
// source encoding. A byte order mark wins, then a leading @charset rule,
// otherwise the input has to be valid UTF-8 already.
func Decode(data []byte) ([]byte, string, error) {
	if name := bomCharset(data); name != "" {
		out, _, err := transform.Bytes(xunicode.BOMOverride(transform.Nop), data)
		if err != nil {
			return nil, "", fmt.Errorf("unable to decode %s input: %w", name, err)
		}
		return out, name, nil
	}

	if name := declaredCharset(data); name != "" {
		enc, err := ianaindex.IANA.Encoding(name)
		if err != nil {
			return nil, "", fmt.Errorf("unsupported charset %q: %w", name, err)
		}
		if enc == nil {
			return nil, "", fmt.Errorf("unsupported charset %q", name)
		}
		canonical, err := ianaindex.IANA.Name(enc)
		if err != nil {
			canonical = name
		}
		if canonical == "UTF-8" {
			return checkUTF8(data)
		}
		out, err := enc.NewDecoder().Bytes(data)
		if err != nil {
			return nil, "", fmt.Errorf("unable to decode %s input: %w", canonical, err)
		}
		return out, canonical, nil
	}

	return checkUTF8(data)
}

func checkUTF8(data []byte) ([]byte, string, error) {
	if !utf8.Valid(data) {
		return nil, "", fmt.Errorf("input is not valid UTF-8 and has no @charset rule")
	}
	return data, "UTF-8", nil
}

func bomCharset(data []byte) string {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return "UTF-8"
	case bytes.HasPrefix(data, bomUTF16BE):
		return "UTF-16BE"
	case bytes.HasPrefix(data, bomUTF16LE):
		return "UTF-16LE"
	}
	return ""
}

// declaredCharset returns the name from a leading `@charset "name";`.
func declaredCharset(data []byte) string {
	if !bytes.HasPrefix(data, charsetPrefix) {
		return ""
	}
	rest := data[len(charsetPrefix):]
	end := bytes.IndexByte(rest, '"')
	if end <= 0 || end > 64 {
		return ""
	}
	return string(rest[:end])
}
