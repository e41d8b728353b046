package config

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestReport(t *testing.T) *Report {
	t.Helper()
	conf := ReporterConfig{Destination: filepath.Join(t.TempDir(), "report.zip")}
	r, err := conf.Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	return r
}

func readArchive(t *testing.T, name string) map[string]string {
	t.Helper()
	zr, err := zip.OpenReader(name)
	if err != nil {
		t.Fatalf("unable to open report: %v", err)
	}
	defer zr.Close()

	files := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("unable to open %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("unable to read %s: %v", f.Name, err)
		}
		files[f.Name] = string(data)
	}
	return files
}

func TestReport_Finalize(t *testing.T) {
	r := newTestReport(t)

	src := filepath.Join(t.TempDir(), "input.css")
	if err := os.WriteFile(src, []byte(".a{x:y}"), 0644); err != nil {
		t.Fatalf("failed to write source: %v", err)
	}

	r.Store("source.css", src)
	r.StoreData("dump-10.txt", []byte("ten"))
	r.StoreData("dump-2.txt", []byte("two"))
	if err := r.StoreCopy("copy", src); err != nil {
		t.Fatalf("StoreCopy() error = %v", err)
	}
	if err := r.StoreCopy("copy", src); err != nil {
		t.Fatalf("second StoreCopy() error = %v", err)
	}

	name := r.Name()
	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	files := readArchive(t, name)
	if files["source.css"] != ".a{x:y}" {
		t.Errorf("source.css = %q", files["source.css"])
	}
	if files["dump-2.txt"] != "two" || files["dump-10.txt"] != "ten" {
		t.Errorf("stored data missing: %v", files)
	}

	copies := 0
	for n := range files {
		if strings.HasPrefix(n, "copy") {
			copies++
		}
	}
	if copies != 2 {
		t.Errorf("got %d copies in report, want 2", copies)
	}

	manifest := files["MANIFEST"]
	if i2, i10 := strings.Index(manifest, "dump-2.txt"), strings.Index(manifest, "dump-10.txt"); i2 < 0 || i10 < 0 || i2 > i10 {
		t.Errorf("manifest is not in natural order:\n%s", manifest)
	}
}

func TestReportClose_RemovesCopies(t *testing.T) {
	r := newTestReport(t)

	src := t.TempDir()
	if err := os.WriteFile(filepath.Join(src, "debug.txt"), []byte("test"), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
	if err := r.StoreCopy("workdir", src); err != nil {
		t.Fatalf("StoreCopy() error = %v", err)
	}
	copied := r.entries["workdir"].tempDir
	if copied == "" {
		t.Fatal("StoreCopy() did not record its private copy")
	}

	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := os.Stat(copied); !os.IsNotExist(err) {
		os.RemoveAll(copied)
		t.Errorf("expected %s to be removed", copied)
	}
	if _, err := os.Stat(src); err != nil {
		t.Errorf("original directory should be kept: %v", err)
	}
}

func TestReportStore_Duplicate(t *testing.T) {
	r := &Report{entries: make(map[string]entry)}
	r.StoreData("x", []byte("1"))
	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate data entry")
		}
	}()
	r.StoreData("x", []byte("2"))
}

func TestReportClose_NilReport(t *testing.T) {
	var r *Report
	r.Store("a", "b")
	r.StoreData("a", nil)
	if err := r.StoreCopy("a", "b"); err != nil {
		t.Errorf("StoreCopy on nil report should not error, got: %v", err)
	}
	if r.Name() != "" {
		t.Error("nil report has a name")
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close on nil report should not error, got: %v", err)
	}
}

func TestReportClose_NilFile(t *testing.T) {
	r := &Report{entries: make(map[string]entry)}
	if err := r.Close(); err != nil {
		t.Errorf("Close with nil file should not error, got: %v", err)
	}
}

func TestReportStoreCopy_Tree(t *testing.T) {
	r := newTestReport(t)

	src := t.TempDir()
	for name, content := range map[string]string{
		"a.css":             ".a{}",
		"sub/b.css":         ".b{}",
		"sub/deeper/c.scss": ".c{}",
	} {
		path := filepath.Join(src, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("failed to create directory: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	if err := r.StoreCopy("source/tree", src); err != nil {
		t.Fatalf("StoreCopy() error = %v", err)
	}
	// later changes must not leak into report
	if err := os.WriteFile(filepath.Join(src, "a.css"), []byte("changed"), 0644); err != nil {
		t.Fatalf("failed to rewrite source: %v", err)
	}

	name := r.Name()
	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	files := readArchive(t, name)
	for n, want := range map[string]string{
		"source/tree/a.css":             ".a{}",
		"source/tree/sub/b.css":         ".b{}",
		"source/tree/sub/deeper/c.scss": ".c{}",
	} {
		if files[n] != want {
			t.Errorf("%s = %q, want %q", n, files[n], want)
		}
	}
}

func TestReportStoreCopy_Missing(t *testing.T) {
	r := newTestReport(t)
	defer r.Close()

	if err := r.StoreCopy("gone", filepath.Join(t.TempDir(), "gone.css")); err == nil {
		t.Fatal("StoreCopy() of missing path should fail")
	}
	if _, exists := r.entries["gone"]; exists {
		t.Error("failed copy should not be recorded")
	}
}
