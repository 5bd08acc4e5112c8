package image

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/LineageOS/android-tools-extract-utils/tool"
)

func TestExtractErofsCreatesPerPartitionDir(t *testing.T) {
	outDir := t.TempDir()
	r := &fakeRunner{}
	fsck := &tool.Fsck{Runner: r}

	err := ExtractErofs(context.Background(), fsck, []string{"/tmp/vendor.img"}, outDir)
	if err != nil {
		t.Fatalf("ExtractErofs: %v", err)
	}

	if _, err := os.Stat(filepath.Join(outDir, "vendor")); err != nil {
		t.Fatalf("expected vendor dir to exist: %v", err)
	}
	if got := r.callCount(); got != 1 {
		t.Fatalf("expected 1 fsck.erofs call, got %d", got)
	}
}
