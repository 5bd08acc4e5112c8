package acquire

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestArchiveTarGzRoundTrip(t *testing.T) {
	srcDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(srcDir, "system", "lib64"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(srcDir, "system", "lib64", "libfoo.so"), []byte("elf bytes"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(srcDir, "vendor.img"), []byte("raw image bytes"), 0644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := archiveTarGz(srcDir, &buf); err != nil {
		t.Fatalf("archiveTarGz: %v", err)
	}

	destDir := t.TempDir()
	if err := extractTarGz(&buf, destDir); err != nil {
		t.Fatalf("extractTarGz: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(destDir, "system", "lib64", "libfoo.so"))
	if err != nil {
		t.Fatalf("read round-tripped file: %v", err)
	}
	if string(got) != "elf bytes" {
		t.Fatalf("content = %q, want %q", got, "elf bytes")
	}

	got2, err := os.ReadFile(filepath.Join(destDir, "vendor.img"))
	if err != nil {
		t.Fatalf("read round-tripped file: %v", err)
	}
	if string(got2) != "raw image bytes" {
		t.Fatalf("content = %q", got2)
	}
}

func TestRemoteCacheKey(t *testing.T) {
	r := &RemoteCache{Bucket: "team-cache"}
	if got, want := r.key("deadbeef"), "deadbeef.tar.gz"; got != want {
		t.Fatalf("key() = %q, want %q", got, want)
	}

	r.Prefix = "extract-utils"
	if got, want := r.key("deadbeef"), "extract-utils/deadbeef.tar.gz"; got != want {
		t.Fatalf("key() with prefix = %q, want %q", got, want)
	}
}
