package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile creates dir/name with data and returns the absolute path
func WriteFile(t testing.TB, dir, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		t.Fatalf("abs %s: %v", path, err)
	}
	return abs
}

// WriteFileAtomic writes data under name+".tmp" and renames it into place,
// the way producers hand files to a polled directory
func WriteFileAtomic(t testing.TB, dir, name string, data []byte) string {
	t.Helper()

	tmp := WriteFile(t, dir, name+".tmp", data)
	final := filepath.Join(filepath.Dir(tmp), filepath.Base(name))
	if err := os.Rename(tmp, final); err != nil {
		t.Fatalf("rename %s: %v", tmp, err)
	}
	return final
}

// ReadFile returns the contents of path
func ReadFile(t testing.TB, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return data
}
