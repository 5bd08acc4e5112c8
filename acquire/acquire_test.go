package acquire

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
)

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestUnpackArchiveFlattensSingleTopDir(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "factory.zip")
	writeZip(t, archivePath, map[string]string{
		"device-build/system.img": "system contents",
		"device-build/vendor.img": "vendor contents",
	})

	destDir := filepath.Join(dir, "out")
	if err := os.MkdirAll(destDir, 0755); err != nil {
		t.Fatal(err)
	}

	if err := unpackArchive(archivePath, destDir); err != nil {
		t.Fatalf("unpackArchive: %v", err)
	}

	if _, err := os.Stat(filepath.Join(destDir, "system.img")); err != nil {
		t.Fatalf("expected system.img flattened to dest root: %v", err)
	}
	if _, err := os.Stat(filepath.Join(destDir, "device-build")); !os.IsNotExist(err) {
		t.Fatal("expected wrapping top-level directory to be removed")
	}
}

func TestUnpackArchiveRejectsPathTraversal(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "evil.zip")
	writeZip(t, archivePath, map[string]string{
		"../escape.img": "should not escape",
	})

	destDir := filepath.Join(dir, "out")
	if err := os.MkdirAll(destDir, 0755); err != nil {
		t.Fatal(err)
	}

	if err := unpackArchive(archivePath, destDir); err == nil {
		t.Fatal("expected error for a path-traversal archive entry")
	}
}

func TestFlattenDirLeavesMultiEntryDirAlone(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.img"), nil, 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "b.img"), nil, 0644); err != nil {
		t.Fatal(err)
	}

	if err := flattenDir(dir); err != nil {
		t.Fatalf("flattenDir: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "a.img")); err != nil {
		t.Fatal("expected a.img to remain in place")
	}
}
