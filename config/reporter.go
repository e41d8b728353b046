package config

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"cssnest/common"
	"cssnest/misc"
)

type ReporterConfig struct {
	Destination string `yaml:"destination" sanitize:"path_clean,assure_dir_exists_for_file" validate:"required,filepath"`
}

// Prepare opens report archive at configured destination, falling back to a
// temporary file when destination cannot be created.
func (conf *ReporterConfig) Prepare() (*Report, error) {
	f, err := os.Create(conf.Destination)
	if err != nil {
		if f, err = os.CreateTemp("", misc.GetAppName()+"-report.*.zip"); err != nil {
			return nil, fmt.Errorf("unable to create report: %w", err)
		}
	}
	return &Report{entries: make(map[string]entry), file: f}, nil
}

type entry struct {
	original string
	actual   string
	stamp    time.Time
	data     []byte
	tempDir  string // removed on Close
}

// Report collects everything that goes into debug archive: logs, effective
// configuration, source snapshots, statement tree dumps and results. Nil
// *Report is valid and ignores all calls.
// NOTE: not safe for concurrent use.
type Report struct {
	entries map[string]entry
	file    *os.File
}

// Close writes the archive and removes private copies.
func (r *Report) Close() error {
	if r == nil || r.file == nil {
		return nil
	}
	defer r.file.Close()
	defer r.cleanup()
	return r.finalize()
}

func (r *Report) cleanup() {
	for _, e := range r.entries {
		if e.tempDir != "" {
			os.RemoveAll(e.tempDir)
		}
	}
}

// Name returns absolute name of the report archive.
func (r *Report) Name() string {
	if r == nil || r.file == nil {
		return ""
	}
	if n, err := filepath.Abs(r.file.Name()); err == nil {
		return n
	}
	return r.file.Name()
}

// Store records path to be archived under name when report is closed. File
// content is read at that time, not now.
func (r *Report) Store(name, path string) {
	if r == nil {
		return
	}
	if old, exists := r.entries[name]; exists && old.original != path {
		panic(fmt.Sprintf("report entry %q already points to %s, refusing %s", name, old.original, path))
	}
	actual := path
	if p, err := filepath.Abs(path); err == nil {
		actual = p
	}
	r.entries[name] = entry{original: path, actual: actual}
}

// StoreData records data to be archived as file name.
func (r *Report) StoreData(name string, data []byte) {
	if r == nil {
		return
	}
	if _, exists := r.entries[name]; exists {
		panic(fmt.Sprintf("report entry %q already exists", name))
	}
	r.entries[name] = entry{data: data, stamp: time.Now()}
}

// StoreCopy snapshots file or directory tree at path into a private temporary
// location, so the report keeps content as it was at the time of the call.
// Repeated names get a unique suffix.
func (r *Report) StoreCopy(name, path string) error {
	if r == nil {
		return nil
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	dir, err := os.MkdirTemp("", misc.GetAppName()+"-r-")
	if err != nil {
		return err
	}
	actual, err := snapshot(dir, abs)
	if err != nil {
		os.RemoveAll(dir)
		return fmt.Errorf("unable to copy %s: %w", path, err)
	}

	if _, exists := r.entries[name]; exists {
		name += "-" + uuid.NewString()
	}
	r.entries[name] = entry{original: path, actual: actual, stamp: time.Now(), tempDir: dir}
	return nil
}

// snapshot copies regular file or directory tree src under dir and returns
// the path to archive later.
func snapshot(dir, src string) (string, error) {
	info, err := os.Stat(src)
	if err != nil {
		return "", err
	}
	if info.Mode().IsRegular() {
		dst := filepath.Join(dir, filepath.Base(src))
		return dst, copyFile(dst, src, info.ModTime())
	}
	if !info.IsDir() {
		return "", fmt.Errorf("unsupported file mode %s", info.Mode())
	}
	err = filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.Type().IsRegular() {
			// links and other special files are not copied
			return err
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		return copyFile(filepath.Join(dir, rel), path, fi.ModTime())
	})
	return dir, err
}

func copyFile(dst, src string, stamp time.Time) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0700); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	_, err = io.Copy(out, in)
	if err = multierr.Append(err, out.Close()); err != nil {
		return err
	}
	return os.Chtimes(dst, stamp, stamp)
}

// finalize writes manifest followed by every stored item into the report
// archive.
func (r *Report) finalize() error {
	arc := zip.NewWriter(r.file)

	names, manifest := prepareManifest(r.entries)
	err := saveFile(arc, "MANIFEST", time.Now(), manifest)
	for _, name := range names {
		if err != nil {
			break
		}
		err = r.entries[name].save(arc, name)
	}
	return multierr.Append(err, arc.Close())
}

// save puts entry content into archive under name. Paths which no longer
// exist are skipped.
func (e entry) save(arc *zip.Writer, name string) error {
	if len(e.data) > 0 {
		return saveFile(arc, name, e.stamp, bytes.NewReader(e.data))
	}
	info, err := os.Stat(e.actual)
	switch {
	case err != nil:
		return nil
	case info.IsDir():
		return saveDir(arc, name, e.actual)
	case info.Mode().IsRegular():
		return savePath(arc, name, e.actual, info.ModTime())
	}
	return nil
}

func prepareManifest(entries map[string]entry) ([]string, *bytes.Buffer) {
	buf := new(bytes.Buffer)

	// "result-2" before "result-10"
	keys := slices.SortedFunc(maps.Keys(entries), common.CompareNatural)

	now := time.Now()
	for _, k := range keys {
		e := entries[k]
		stamp := e.stamp
		if stamp.IsZero() {
			stamp = now
		}
		fmt.Fprintf(buf, "%s\t%s\t%s : %s\n", stamp.UTC().Format(time.UnixDate), k, e.original, e.actual)
	}
	return keys, buf
}

func saveFile(arc *zip.Writer, name string, t time.Time, src io.Reader) error {
	w, err := arc.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: t})
	if err != nil {
		return err
	}
	_, err = io.Copy(w, src)
	return err
}

func savePath(arc *zip.Writer, name, path string, t time.Time) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return saveFile(arc, name, t, f)
}

func saveDir(arc *zip.Writer, name, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.Type().IsRegular() {
			return err
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		return savePath(arc, filepath.ToSlash(filepath.Join(name, rel)), path, fi.ModTime())
	})
}
