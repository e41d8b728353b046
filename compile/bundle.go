package compile

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	fixzip "github.com/hidez8891/zip"

	"cssnest/common"
)

// bundle collects compiled stylesheets to be written as a single zip
// archive instead of separate files.
type bundle struct {
	path  string
	files map[string][]byte
}

func newBundle(path string) *bundle {
	return &bundle{path: path, files: make(map[string][]byte)}
}

// add stores data under slash separated name. Names have to be unique.
func (b *bundle) add(name string, data []byte) error {
	name = strings.TrimPrefix(filepath.ToSlash(name), "/")
	if _, exists := b.files[name]; exists {
		return fmt.Errorf("duplicate name in bundle: %s", name)
	}
	b.files[name] = data
	return nil
}

func (b *bundle) len() int {
	return len(b.files)
}

// write creates the archive, entries are stored in natural name order.
func (b *bundle) write(overwrite bool) (err error) {
	if _, err := os.Stat(b.path); err == nil && !overwrite {
		return fmt.Errorf("output file already exists: %s", b.path)
	}
	if err := os.MkdirAll(filepath.Dir(b.path), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}

	out, err := os.Create(b.path)
	if err != nil {
		return fmt.Errorf("unable to create bundle: %w", err)
	}
	defer func() {
		if e := out.Close(); err == nil {
			err = e
		}
	}()

	names := make([]string, 0, len(b.files))
	for name := range b.files {
		names = append(names, name)
	}
	slices.SortFunc(names, common.CompareNatural)

	w := fixzip.NewWriter(out)
	for _, name := range names {
		f, err := w.Create(name)
		if err != nil {
			return fmt.Errorf("unable to add %s to bundle: %w", name, err)
		}
		if _, err := f.Write(b.files[name]); err != nil {
			return fmt.Errorf("unable to write %s to bundle: %w", name, err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("unable to finalize bundle: %w", err)
	}
	return nil
}
