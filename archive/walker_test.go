package archive

import (
	"archive/zip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

type entry struct {
	name    string
	content string
}

func makeZip(t *testing.T, entries ...entry) string {
	t.Helper()
	zipPath := filepath.Join(t.TempDir(), "test.zip")
	zipFile, err := os.Create(zipPath)
	if err != nil {
		t.Fatalf("Failed to create zip file: %v", err)
	}
	defer zipFile.Close()

	w := zip.NewWriter(zipFile)
	for _, e := range entries {
		fw, err := w.Create(e.name)
		if err != nil {
			t.Fatalf("Failed to create file %s in zip: %v", e.name, err)
		}
		if _, err := fw.Write([]byte(e.content)); err != nil {
			t.Fatalf("Failed to write content for %s: %v", e.name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to close zip writer: %v", err)
	}
	return zipPath
}

func visit(t *testing.T, zipPath, prefix string, matchers ...MatchFunc) []string {
	t.Helper()
	var visited []string
	err := Walk(zipPath, prefix, func(archive string, file *zip.File) error {
		if archive != zipPath {
			t.Errorf("archive = %s, want %s", archive, zipPath)
		}
		visited = append(visited, file.Name)
		return nil
	}, matchers...)
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	return visited
}

func TestWalk(t *testing.T) {
	zipPath := makeZip(t,
		entry{"styles/part10.css", "c"},
		entry{"styles/part2.css", "b"},
		entry{"styles/part1.CSS", "a"},
		entry{"styles/readme.txt", "text"},
		entry{"styles/sub/", ""},
		entry{"theme/main.css", "d"},
		entry{"index.css", "e"},
	)

	tests := []struct {
		name     string
		prefix   string
		matchers []MatchFunc
		want     []string
	}{
		{"everything", "", nil, []string{"index.css", "styles/part1.CSS", "styles/part2.css", "styles/part10.css", "styles/readme.txt", "theme/main.css"}},
		{"prefix", "styles/", nil, []string{"styles/part1.CSS", "styles/part2.css", "styles/part10.css", "styles/readme.txt"}},
		{"prefix and extension", "styles/", []MatchFunc{WithExtensions(".css")}, []string{"styles/part1.CSS", "styles/part2.css", "styles/part10.css"}},
		{"single file", "theme/main.css", nil, []string{"theme/main.css"}},
		{"no match", "nonexistent/", nil, nil},
		{"all matchers apply", "", []MatchFunc{WithExtensions(".css", ".txt"), func(name string) bool { return name != "index.css" }},
			[]string{"styles/part1.CSS", "styles/part2.css", "styles/part10.css", "styles/readme.txt", "theme/main.css"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := visit(t, zipPath, tt.prefix, tt.matchers...); !slices.Equal(got, tt.want) {
				t.Errorf("visited %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWalk_EarlyTermination(t *testing.T) {
	zipPath := makeZip(t, entry{"a.css", "a"}, entry{"b.css", "b"}, entry{"c.css", "c"})

	expectedErr := errors.New("stop")
	count := 0
	err := Walk(zipPath, "", func(string, *zip.File) error {
		count++
		if count == 2 {
			return expectedErr
		}
		return nil
	})
	if !errors.Is(err, expectedErr) {
		t.Errorf("Walk() error = %v, want %v", err, expectedErr)
	}
	if count != 2 {
		t.Errorf("walkFn called %d times, want 2", count)
	}
}

func TestWalk_FileContent(t *testing.T) {
	zipPath := makeZip(t, entry{"main.css", ".a { color: red }"})

	err := Walk(zipPath, "", func(_ string, file *zip.File) error {
		rc, err := file.Open()
		if err != nil {
			return err
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return err
		}
		if string(data) != ".a { color: red }" {
			t.Errorf("content = %q", data)
		}
		return nil
	})
	if err != nil {
		t.Errorf("Walk() error = %v", err)
	}
}

func TestWalk_InvalidArchive(t *testing.T) {
	noop := func(string, *zip.File) error { return nil }

	if err := Walk("/nonexistent/file.zip", "", noop); err == nil {
		t.Error("Walk() on nonexistent file succeeded")
	}

	notZip := filepath.Join(t.TempDir(), "invalid.zip")
	if err := os.WriteFile(notZip, []byte("not a zip file"), 0644); err != nil {
		t.Fatalf("Failed to create invalid zip: %v", err)
	}
	if err := Walk(notZip, "", noop); err == nil {
		t.Error("Walk() on invalid archive succeeded")
	}
}

func TestWalk_UnsafePaths(t *testing.T) {
	for _, name := range []string{"../escape.css", "a/../../b.css", "/abs.css"} {
		t.Run(name, func(t *testing.T) {
			zipPath := makeZip(t, entry{"ok.css", "a"}, entry{name, "b"})
			called := false
			err := Walk(zipPath, "", func(string, *zip.File) error {
				called = true
				return nil
			})
			if err == nil {
				t.Error("Walk() accepted unsafe entry")
			}
			if called {
				t.Error("walkFn called before unsafe entry was rejected")
			}
		})
	}
}

func TestIsSafePath(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"a.css", true},
		{"dir/a.css", true},
		{"dir/..a.css", true},
		{"../a.css", false},
		{"dir/../../a.css", false},
		{"/a.css", false},
		{`\a.css`, false},
	}
	for _, tt := range tests {
		if got := isSafePath(tt.name); got != tt.want {
			t.Errorf("isSafePath(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
