package image

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/LineageOS/android-tools-extract-utils/tool"
)

func TestExtractExt4CreatesPerPartitionDir(t *testing.T) {
	outDir := t.TempDir()
	r := &fakeRunner{}
	debugfs := &tool.Debugfs{Runner: r}

	err := ExtractExt4(context.Background(), debugfs, []string{"/tmp/product.img"}, outDir)
	if err != nil {
		t.Fatalf("ExtractExt4: %v", err)
	}

	if _, err := os.Stat(filepath.Join(outDir, "product")); err != nil {
		t.Fatalf("expected product dir to exist: %v", err)
	}
}

func TestExtractExt4SurfacesIncompatibleTool(t *testing.T) {
	outDir := t.TempDir()
	r := &fakeRunner{
		out: []byte("Attempt to read block from filesystem resulted in short read while reading symlink\n"),
	}
	debugfs := &tool.Debugfs{Runner: r}

	err := ExtractExt4(context.Background(), debugfs, []string{"/tmp/system.img"}, outDir)
	if err == nil {
		t.Fatal("expected an error")
	}

	var incompat *tool.IncompatibleTool
	if !errors.As(err, &incompat) {
		t.Fatalf("expected *tool.IncompatibleTool in chain, got %v", err)
	}
}
